package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaoban/internal/config"
)

func TestDriverFactory_Create(t *testing.T) {
	factory := NewDriverFactory()

	assert.Equal(t, []string{config.DriverFFmpeg, config.DriverMediaDevices, config.DriverMock}, factory.SupportedDrivers())

	driver, err := factory.Create(config.DriverMock)
	require.NoError(t, err)
	assert.IsType(t, &MockDriver{}, driver)

	driver, err = factory.Create(config.DriverFFmpeg)
	require.NoError(t, err)
	assert.IsType(t, &FFmpegDriver{}, driver)

	_, err = factory.Create("gstreamer")
	assert.Error(t, err)
}

func TestDriverFactory_Register(t *testing.T) {
	factory := NewDriverFactory()
	mock := NewMockDriver()
	factory.Register("custom", func() Driver { return mock })

	driver, err := factory.Create("custom")
	require.NoError(t, err)
	assert.Same(t, mock, driver)
}

func TestNewDriver(t *testing.T) {
	driver, err := NewDriver(config.CameraConfig{Driver: config.DriverMock})
	require.NoError(t, err)
	assert.NotNil(t, driver)
}
