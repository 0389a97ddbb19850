package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMJPEG はバックエンドと同じ形式でフレームを書き出す
func writeMJPEG(c *gin.Context, frames [][]byte) {
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Status(http.StatusOK)
	for _, frame := range frames {
		_, _ = c.Writer.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n"))
		_, _ = c.Writer.Write(frame)
		_, _ = c.Writer.Write([]byte("\r\n"))
		c.Writer.Flush()
	}
}

func TestStream_Next(t *testing.T) {
	frame1 := append([]byte{}, jpegBytes...)
	frame2 := append([]byte{0xFF, 0xD8, 0x01, 0x02}, 0xFF, 0xD9)

	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/camera/stream", func(c *gin.Context) {
			writeMJPEG(c, [][]byte{frame1, frame2})
			_, _ = c.Writer.Write([]byte("--frame--\r\n"))
		})
	})

	stream, err := client.OpenStream(context.Background())
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	got, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, frame1, got)

	got, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, frame2, got)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_FrameTooLarge(t *testing.T) {
	oversized := bytes.Repeat([]byte{0xAB}, maxFrameSize+1)

	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/camera/stream", func(c *gin.Context) {
			writeMJPEG(c, [][]byte{oversized, jpegBytes})
			_, _ = c.Writer.Write([]byte("--frame--\r\n"))
		})
	})

	stream, err := client.OpenStream(context.Background())
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	got, err := stream.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Nil(t, got)
}

func TestStream_NotMultipart(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/camera/stream", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	})

	_, err := client.OpenStream(context.Background())
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindServerError, gwErr.Kind)
}

func TestStream_ServerError(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/camera/stream", func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "camera busy"})
		})
	})

	_, err := client.OpenStream(context.Background())
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Equal(t, "camera busy", gwErr.Message())
	assert.False(t, errors.Is(err, io.EOF))
}
