package camera

import (
	"fmt"
	"sort"

	"kaoban/internal/config"
)

// DriverCreator はドライバー作成関数の型
type DriverCreator func() Driver

// DriverFactory は設定名からドライバーを作成する
type DriverFactory struct {
	creators map[string]DriverCreator
}

// NewDriverFactory は新しいファクトリーを作成する
func NewDriverFactory() *DriverFactory {
	factory := &DriverFactory{
		creators: make(map[string]DriverCreator),
	}

	// pion/mediadevices
	factory.Register(config.DriverMediaDevices, func() Driver { return NewMediaDevicesDriver() })

	// ffmpeg による1枚ずつの撮影
	factory.Register(config.DriverFFmpeg, func() Driver { return NewFFmpegDriver() })

	// 実機なし
	factory.Register(config.DriverMock, func() Driver { return NewMockDriver() })

	return factory
}

// Register はドライバー作成関数を登録する
func (f *DriverFactory) Register(name string, creator DriverCreator) {
	f.creators[name] = creator
}

// Create はドライバーを作成する
func (f *DriverFactory) Create(name string) (Driver, error) {
	creator, exists := f.creators[name]
	if !exists {
		return nil, fmt.Errorf("サポートされていないカメラドライバー: %s", name)
	}

	return creator(), nil
}

// SupportedDrivers は登録されているドライバー名を返す
func (f *DriverFactory) SupportedDrivers() []string {
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDriver は設定に応じたドライバーを作成する
func NewDriver(cfg config.CameraConfig) (Driver, error) {
	return NewDriverFactory().Create(cfg.Driver)
}
