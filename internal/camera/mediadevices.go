package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // カメラドライバーを登録
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog/log"
)

// MediaDevicesDriver はpion/mediadevicesでローカルカメラを開く
type MediaDevicesDriver struct {
	quality int
}

// NewMediaDevicesDriver は新しいMediaDevicesDriverを作成する
func NewMediaDevicesDriver() *MediaDevicesDriver {
	return &MediaDevicesDriver{quality: 90}
}

// Open は映像トラックを取得し、最初のフレームが読めた時点でライブとみなす
func (d *MediaDevicesDriver) Open(ctx context.Context, c Constraints) (Device, error) {
	if strings.HasPrefix(c.DeviceID, "/dev/") {
		if err := CheckDevice(c.DeviceID); err != nil {
			return nil, err
		}
	}

	constraints := mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			if c.Width > 0 {
				mc.Width = prop.Int(int32(c.Width))
			}
			if c.Height > 0 {
				mc.Height = prop.Int(int32(c.Height))
			}
			if c.FPS > 0 {
				mc.FrameRate = prop.Float(float32(c.FPS))
			}
			if c.DeviceID != "" {
				mc.DeviceID = prop.String(c.DeviceID)
			}
		},
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		log.Debug().Str("component", "camera").Err(err).Msg("指定した条件でデバイスを開けないため、デバイス指定のみで再試行します")

		constraints = mediadevices.MediaStreamConstraints{
			Video: func(mc *mediadevices.MediaTrackConstraints) {
				if c.DeviceID != "" {
					mc.DeviceID = prop.String(c.DeviceID)
				}
			},
		}
		stream, err = mediadevices.GetUserMedia(constraints)
		if err != nil {
			return nil, fmt.Errorf("メディアデバイスの取得に失敗: %w", err)
		}
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, &Error{Kind: KindDeviceUnavailable, Op: "Open", Err: ErrNoDevice}
	}

	videoTrack, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		_ = closeTracks(stream.GetTracks())
		return nil, &Error{Kind: KindDeviceUnavailable, Op: "Open", Err: fmt.Errorf("映像トラックではありません: %T", tracks[0])}
	}

	dev := &mediaDevice{
		stream:  stream,
		track:   videoTrack,
		reader:  videoTrack.NewReader(false),
		quality: d.quality,
	}

	// 1フレーム読めるまではライブではない
	if _, err := dev.Snapshot(ctx); err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("最初のフレームの取得に失敗: %w", err)
	}

	return dev, nil
}

// Devices は映像入力デバイスの一覧を返す
func (d *MediaDevicesDriver) Devices(_ context.Context) ([]DeviceInfo, error) {
	devices := mediadevices.EnumerateDevices()
	result := make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		if device.Kind != mediadevices.VideoInput {
			continue
		}
		result = append(result, DeviceInfo{
			ID:     device.DeviceID,
			Label:  device.Label,
			Driver: "mediadevices",
		})
	}
	return result, nil
}

type frameReader interface {
	Read() (image.Image, func(), error)
}

// mediaDevice はmediadevicesで開いた映像トラック
type mediaDevice struct {
	stream  mediadevices.MediaStream
	track   *mediadevices.VideoTrack
	reader  frameReader
	quality int

	// reader の呼び出しを1つずつにする
	readMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

func (d *mediaDevice) ID() string {
	return d.track.ID()
}

type snapshotResult struct {
	data []byte
	err  error
}

// Snapshot は現在のフレームをJPEGにエンコードして返す
func (d *mediaDevice) Snapshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, errors.New("デバイスは停止済みです")
	}
	d.mu.Unlock()

	result := make(chan snapshotResult, 1)
	go func() {
		d.readMu.Lock()
		defer d.readMu.Unlock()

		img, release, err := d.reader.Read()
		if err != nil {
			result <- snapshotResult{err: fmt.Errorf("フレームの読み込みに失敗: %w", err)}
			return
		}
		defer release()

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
			result <- snapshotResult{err: fmt.Errorf("JPEGエンコードに失敗: %w", err)}
			return
		}
		result <- snapshotResult{data: buf.Bytes()}
	}()

	select {
	case r := <-result:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close はすべてのトラックを停止する
func (d *mediaDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return closeTracks(d.stream.GetTracks())
}

func closeTracks(tracks []mediadevices.Track) error {
	var errs []error
	for _, track := range tracks {
		if err := track.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
