package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Arbiter はリモートストリームとローカルデバイスの間でカメラを調停する
// Lease はこの構造体だけが変更する
type Arbiter struct {
	backend Backend
	driver  Driver

	// 取得・解放の操作を1つずつ実行する
	opMu sync.Mutex

	mu        sync.RWMutex
	lease     Lease
	claimedAt time.Time
}

// NewArbiter は新しいArbiterを作成する
// 初期状態の保持者は HolderNone
func NewArbiter(backend Backend, driver Driver) *Arbiter {
	return &Arbiter{
		backend: backend,
		driver:  driver,
	}
}

// Lease は現在の保持状態を返す
func (a *Arbiter) Lease() Lease {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lease
}

// Holder は現在の保持者を返す
func (a *Arbiter) Holder() Holder {
	return a.Lease().Holder
}

// Devices はドライバーが認識しているローカルデバイス一覧を返す
func (a *Arbiter) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return a.driver.Devices(ctx)
}

func (a *Arbiter) setLease(l Lease) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lease = l
	if l.Holder != HolderNone {
		a.claimedAt = time.Now()
	}
}

// ClaimRemoteStream はバックエンドにカメラの再オープンを指示し、リモートストリームの保持者になる
// ローカルデバイスを保持している間は失敗する
func (a *Arbiter) ClaimRemoteStream(ctx context.Context) (StreamHandle, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.RLock()
	current, claimedAt := a.lease, a.claimedAt
	a.mu.RUnlock()

	switch current.Holder {
	case HolderRemoteStream:
		return StreamHandle{URL: a.backend.StreamURL(), ClaimedAt: claimedAt}, nil
	case HolderLocalDevice:
		return StreamHandle{}, &Error{Kind: KindDeviceUnavailable, Op: "ClaimRemoteStream", Err: ErrLocalDeviceHeld}
	}

	if err := a.backend.ReopenCamera(ctx); err != nil {
		return StreamHandle{}, fmt.Errorf("カメラの再オープンに失敗: %w", err)
	}

	a.setLease(Lease{Holder: HolderRemoteStream})
	log.Debug().Str("component", "camera").Msg("リモートストリームがカメラを取得しました")

	a.mu.RLock()
	defer a.mu.RUnlock()
	return StreamHandle{URL: a.backend.StreamURL(), ClaimedAt: a.claimedAt}, nil
}

// ReleaseRemoteStream はバックエンドにカメラの解放を指示し、保持者を HolderNone にする
// ローカルデバイスを保持している場合は何もしない
func (a *Arbiter) ReleaseRemoteStream(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if a.Holder() == HolderLocalDevice {
		return nil
	}

	// 保持者がいなくてもバックエンド側のカメラは開いている場合があるため必ず指示する
	if err := a.backend.ReleaseCamera(ctx); err != nil {
		return fmt.Errorf("カメラの解放に失敗: %w", err)
	}

	a.setLease(Lease{Holder: HolderNone})
	log.Debug().Str("component", "camera").Msg("リモートストリームがカメラを解放しました")
	return nil
}

// ClaimLocalDevice はローカルデバイスを開き、その保持者になる
// リモートストリームを保持している間は Lease を変更せずに失敗する
func (a *Arbiter) ClaimLocalDevice(ctx context.Context, c Constraints) (Device, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	current := a.Lease()
	switch current.Holder {
	case HolderLocalDevice:
		return current.Device, nil
	case HolderRemoteStream:
		return nil, &Error{Kind: KindDeviceUnavailable, Op: "ClaimLocalDevice", Err: ErrRemoteStreamHeld}
	}

	device, err := a.driver.Open(ctx, c)
	if err != nil {
		camErr := classify("ClaimLocalDevice", err)
		log.Warn().Str("component", "camera").Str("kind", string(camErr.Kind)).Err(err).Msg("ローカルデバイスを開けませんでした")
		return nil, camErr
	}

	a.setLease(Lease{Holder: HolderLocalDevice, Device: device})
	log.Info().Str("component", "camera").Str("device", device.ID()).Msg("ローカルデバイスがカメラを取得しました")
	return device, nil
}

// ReleaseLocalDevice は保持しているローカルデバイスのトラックをすべて停止する
// 何も保持していない場合は何もしない
func (a *Arbiter) ReleaseLocalDevice() {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.releaseLocalDevice()
}

func (a *Arbiter) releaseLocalDevice() {
	current := a.Lease()
	if current.Holder != HolderLocalDevice {
		return
	}

	if current.Device != nil {
		if err := current.Device.Close(); err != nil {
			log.Warn().Str("component", "camera").Err(err).Msg("ローカルデバイスの停止に失敗しました")
		}
	}
	a.setLease(Lease{Holder: HolderNone})
	log.Info().Str("component", "camera").Msg("ローカルデバイスを解放しました")
}

// Close は保持しているリソースを解放し、Lease を HolderNone に戻す
// バックエンド側のカメラには何も指示しない
func (a *Arbiter) Close() {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.releaseLocalDevice()
	a.setLease(Lease{Holder: HolderNone})
}
