// Package capture は顔登録の撮影ワークフローを実装する
//
// # 状態遷移
//
//	Idle --start--> Starting --(成功)--> Live --capture--> Captured --submit--> Submitting
//	Starting --(失敗)--> Idle
//	Captured --retake--> Starting
//	Submitting --> Succeeded --(一定時間後)--> Idle
//	Submitting --> Failed --retry--> Captured
//	Failed --restart--> Idle
//
// 非同期の操作は1つずつ実行し、実行中に来た操作は ErrBusy で拒否する。
// 登録画面を離れると、状態に関係なくローカルデバイスを解放する。
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kaoban/internal/camera"
	"kaoban/internal/config"
	"kaoban/internal/gateway"
)

// State はワークフローの状態
type State string

const (
	StateIdle       State = "Idle"
	StateStarting   State = "Starting"
	StateLive       State = "Live"
	StateCaptured   State = "Captured"
	StateSubmitting State = "Submitting"
	StateSucceeded  State = "Succeeded"
	StateFailed     State = "Failed"
)

// ErrorKind はオペレーターに表示するエラーの分類
type ErrorKind string

const (
	KindDeviceUnavailable     ErrorKind = "DeviceUnavailable"
	KindAccessDenied          ErrorKind = "AccessDenied"
	KindValidation            ErrorKind = "ValidationError"
	KindRemoteSemanticFailure ErrorKind = "RemoteSemanticFailure"
	KindServerError           ErrorKind = "ServerError"
	KindNoResponse            ErrorKind = "NoResponse"
	KindRequestConstruction   ErrorKind = "RequestConstructionError"
)

// ErrorInfo はセッションに残すエラー
type ErrorInfo struct {
	Kind    ErrorKind
	Message string
}

var (
	ErrBusy              = errors.New("別の操作を実行中です")
	ErrInvalidTransition = errors.New("現在の状態ではこの操作はできません")
	ErrNotEntered        = errors.New("登録画面が開かれていません")
	ErrAborted           = errors.New("登録画面を離れたため結果を破棄しました")
)

// 検証エラーのメッセージ
const (
	MessageNameRequired  = "名前を入力してください。"
	MessageImageRequired = "画像を撮影してください。"
	MessageRegisterFail  = "顔の登録に失敗しました。"
)

// ValidationError は送信前の入力検証エラー
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Session は登録画面1回分の状態
// StillImage は変更しないこと
type Session struct {
	ID           uuid.UUID
	State        State
	StillImage   []byte
	OperatorName string
	LastError    *ErrorInfo
	FaceID       string // 登録成功時のID
	Message      string // 登録成功時のメッセージ
	Busy         bool
	UpdatedAt    time.Time
}

// HasStill は静止画があるか返す
func (s Session) HasStill() bool {
	return len(s.StillImage) > 0
}

func newSession() Session {
	return Session{
		ID:        uuid.New(),
		State:     StateIdle,
		UpdatedAt: time.Now(),
	}
}

// Camera はワークフローが使うカメラ操作
// camera.Arbiter が実装する
type Camera interface {
	ReleaseRemoteStream(ctx context.Context) error
	ClaimRemoteStream(ctx context.Context) (camera.StreamHandle, error)
	ClaimLocalDevice(ctx context.Context, c camera.Constraints) (camera.Device, error)
	ReleaseLocalDevice()
}

// Registrar は顔の登録
// gateway.Client が実装する
type Registrar interface {
	RegisterFace(ctx context.Context, name string, image []byte) (*gateway.RegisterResult, error)
}

// DefaultAutoResetDelay は成功後に Idle へ戻るまでの既定時間
const DefaultAutoResetDelay = 3 * time.Second

// DefaultCaptureKey は撮影ショートカットの既定値
const DefaultCaptureKey = "Space"

// Options はワークフローの設定
type Options struct {
	Constraints    camera.Constraints
	AutoResetDelay time.Duration
	CaptureKey     string
}

// OptionsFromConfig は設定から Options を作る
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Constraints:    camera.ConstraintsFromConfig(cfg.Camera),
		AutoResetDelay: cfg.Capture.AutoResetDelay,
		CaptureKey:     cfg.Capture.CaptureKey,
	}
}

// errorInfo はエラーをオペレーター向けの ErrorInfo にする
// 分類できないものは fallback として扱う
func errorInfo(err error, fallback ErrorKind) *ErrorInfo {
	var camErr *camera.Error
	if errors.As(err, &camErr) {
		kind := KindDeviceUnavailable
		if camErr.Kind == camera.KindAccessDenied {
			kind = KindAccessDenied
		}
		return &ErrorInfo{Kind: kind, Message: camErr.Message()}
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		kind := KindServerError
		switch gwErr.Kind {
		case gateway.KindNoResponse:
			kind = KindNoResponse
		case gateway.KindRequestConstruction:
			kind = KindRequestConstruction
		}
		return &ErrorInfo{Kind: kind, Message: gwErr.Message()}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return &ErrorInfo{Kind: KindValidation, Message: vErr.Message}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrorInfo{Kind: KindNoResponse, Message: gateway.MessageNoResponse}
	}

	switch fallback {
	case KindDeviceUnavailable:
		return &ErrorInfo{Kind: fallback, Message: camera.MessageDeviceUnavailable}
	case KindNoResponse:
		return &ErrorInfo{Kind: fallback, Message: gateway.MessageNoResponse}
	default:
		return &ErrorInfo{Kind: fallback, Message: err.Error()}
	}
}
