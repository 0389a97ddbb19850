package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// DefaultFFmpegDevice は DeviceID 未指定時に使うデバイス
const DefaultFFmpegDevice = "/dev/video0"

// testCaptureTimeout はデバイスがライブか確認するキャプチャの上限時間
const testCaptureTimeout = 10 * time.Second

// FFmpegDriver はffmpegでV4L2デバイスから静止画を取得する
type FFmpegDriver struct {
	// ffmpegの実行ファイル
	binary string
}

// NewFFmpegDriver は新しいFFmpegDriverを作成する
func NewFFmpegDriver() *FFmpegDriver {
	return &FFmpegDriver{binary: "ffmpeg"}
}

// Open はデバイスの事前チェックとテストキャプチャを行い、成功したデバイスを返す
func (d *FFmpegDriver) Open(ctx context.Context, c Constraints) (Device, error) {
	path := c.DeviceID
	if path == "" {
		path = DefaultFFmpegDevice
	}

	if err := CheckDevice(path); err != nil {
		return nil, err
	}

	if _, err := exec.LookPath(d.binary); err != nil {
		return nil, &Error{Kind: KindDeviceUnavailable, Op: "Open", Err: fmt.Errorf("ffmpegが見つかりません: %w", err)}
	}

	dev := &ffmpegDevice{
		binary:      d.binary,
		devicePath:  path,
		constraints: c,
	}

	testCtx, cancel := context.WithTimeout(ctx, testCaptureTimeout)
	defer cancel()
	if _, err := dev.Snapshot(testCtx); err != nil {
		return nil, &Error{Kind: KindDeviceUnavailable, Op: "Open", Err: err}
	}

	return dev, nil
}

// Devices はV4L2デバイス一覧を返す
func (d *FFmpegDriver) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return ScanDevices(ctx)
}

// ffmpegDevice はffmpegで開いたV4L2デバイス
// Snapshot のたびにffmpegを1回起動する
type ffmpegDevice struct {
	binary      string
	devicePath  string
	constraints Constraints

	mu     sync.Mutex
	closed bool
}

func (d *ffmpegDevice) ID() string {
	return d.devicePath
}

// Snapshot は1フレームをキャプチャしてJPEGバイト配列として返す
func (d *ffmpegDevice) Snapshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("デバイスは停止済みです")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if d.constraints.Width > 0 && d.constraints.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", d.constraints.Width, d.constraints.Height))
	}
	if d.constraints.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(d.constraints.FPS))
	}
	args = append(args,
		"-i", d.devicePath,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2", // 高品質JPEG
		"-",
	)

	cmd := exec.CommandContext(ctx, d.binary, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("JPEGフレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpegがフレームを出力しませんでした")
	}

	return stdout.Bytes(), nil
}

func (d *ffmpegDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
