package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"kaoban/internal/config"
)

// Holder はカメラを保持しているものを表す
type Holder int

const (
	HolderNone         Holder = iota // 誰も保持していない
	HolderRemoteStream               // バックエンドの連続ストリーム
	HolderLocalDevice                // ローカルの撮影デバイス
)

func (h Holder) String() string {
	switch h {
	case HolderRemoteStream:
		return "RemoteStream"
	case HolderLocalDevice:
		return "LocalDevice"
	default:
		return "None"
	}
}

// Lease は現在のカメラ保持状態
// Device は Holder が HolderLocalDevice の場合のみ設定される
type Lease struct {
	Holder Holder
	Device Device
}

// Constraints はローカルデバイスを開くときの条件
type Constraints struct {
	DeviceID string // 空ならデフォルトデバイス
	Width    int
	Height   int
	FPS      int
}

// ConstraintsFromConfig は設定から Constraints を作る
func ConstraintsFromConfig(cfg config.CameraConfig) Constraints {
	return Constraints{
		DeviceID: cfg.DeviceID,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.FPS,
	}
}

// StreamHandle はリモートストリームの取得結果
type StreamHandle struct {
	URL       string
	ClaimedAt time.Time
}

// DeviceInfo はローカルカメラデバイスの情報
type DeviceInfo struct {
	ID     string // デバイスID(V4L2ならデバイスパス)
	Label  string // 表示名
	Driver string // 検出したドライバー
}

// Device は開いているローカル撮影デバイス
type Device interface {
	// ID はデバイスの識別子を返す
	ID() string

	// Snapshot は現在のライブフレームをJPEGで返す
	Snapshot(ctx context.Context) ([]byte, error)

	// Close はすべてのトラックを停止する
	Close() error
}

// Driver はローカル撮影デバイスを開く
type Driver interface {
	// Open はデバイスを開き、ライブ状態になったものを返す
	Open(ctx context.Context, c Constraints) (Device, error)

	// Devices は利用可能なデバイス一覧を返す
	Devices(ctx context.Context) ([]DeviceInfo, error)
}

// Backend はバックエンドのカメラ制御
// gateway.Client が実装する
type Backend interface {
	ReleaseCamera(ctx context.Context) error
	ReopenCamera(ctx context.Context) error
	StreamURL() string
}

// ErrorKind はローカルデバイスの失敗の分類
type ErrorKind string

const (
	KindDeviceUnavailable ErrorKind = "DeviceUnavailable"
	KindAccessDenied      ErrorKind = "AccessDenied"
)

// オペレーター向けメッセージ
const (
	MessageDeviceUnavailable = "カメラを利用できません。他のアプリケーションが使用していないか確認してください。"
	MessageAccessDenied      = "カメラへのアクセスが拒否されました。権限を確認してください。"
)

var (
	ErrRemoteStreamHeld = errors.New("リモートストリームがカメラを保持しています")
	ErrLocalDeviceHeld  = errors.New("ローカルデバイスがカメラを保持しています")
	ErrNoDevice         = errors.New("カメラデバイスが見つかりません")
)

// Error はカメラ操作の失敗
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message はオペレーターに表示するメッセージを返す
func (e *Error) Message() string {
	if e.Kind == KindAccessDenied {
		return MessageAccessDenied
	}
	return MessageDeviceUnavailable
}

// classify はドライバーのエラーを Error に分類する
func classify(op string, err error) *Error {
	var camErr *Error
	if errors.As(err, &camErr) {
		return camErr
	}
	if errors.Is(err, os.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return &Error{Kind: KindAccessDenied, Op: op, Err: err}
	}
	return &Error{Kind: KindDeviceUnavailable, Op: op, Err: err}
}
