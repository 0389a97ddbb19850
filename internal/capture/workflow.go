package capture

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Workflow は撮影から登録までの状態機械
type Workflow struct {
	cam       Camera
	registrar Registrar
	opts      Options

	mu         sync.Mutex
	session    Session
	entered    bool
	busy       bool
	generation uint64
	device     deviceHandle
	resetTimer *time.Timer
	listeners  map[int]func(Session)
	nextID     int

	// 登録画面にいる間の操作用コンテキスト
	opCtx    context.Context
	opCancel context.CancelFunc
	inflight sync.WaitGroup
}

// deviceHandle は Snapshot だけを使う
type deviceHandle interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// New は新しいWorkflowを作成する
func New(cam Camera, registrar Registrar, opts Options) *Workflow {
	if opts.AutoResetDelay <= 0 {
		opts.AutoResetDelay = DefaultAutoResetDelay
	}
	if opts.CaptureKey == "" {
		opts.CaptureKey = DefaultCaptureKey
	}
	return &Workflow{
		cam:       cam,
		registrar: registrar,
		opts:      opts,
		session:   newSession(),
		listeners: make(map[int]func(Session)),
	}
}

// Session は現在のセッションを返す
func (w *Workflow) Session() Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Entered は登録画面が開かれているか返す
func (w *Workflow) Entered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entered
}

// CaptureKey は撮影ショートカットのキー名を返す
func (w *Workflow) CaptureKey() string {
	return w.opts.CaptureKey
}

// Subscribe はセッションの変化を受け取るコールバックを登録する
func (w *Workflow) Subscribe(fn func(Session)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.listeners[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Enter は登録画面を開く
// リモートストリームに解放を指示し、新しいセッションを作る
func (w *Workflow) Enter(ctx context.Context) error {
	w.mu.Lock()
	if w.entered {
		w.mu.Unlock()
		return nil
	}
	w.entered = true
	w.generation++
	w.opCtx, w.opCancel = context.WithCancel(context.Background())
	w.session = newSession()
	gen := w.generation
	w.busy = true
	w.inflight.Add(1)
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()

	log.Info().Str("component", "capture").Str("session", w.Session().ID.String()).Msg("登録画面を開きました")

	err := w.cam.ReleaseRemoteStream(ctx)
	if err != nil {
		log.Warn().Str("component", "capture").Err(err).Msg("リモートストリームを解放できませんでした")
	}

	w.finish(gen, func() {
		if err != nil {
			w.session.LastError = errorInfo(err, KindNoResponse)
		}
	})
	return err
}

// Leave は登録画面を閉じる
// 実行中の操作を中断し、状態に関係なくローカルデバイスを解放してリモートストリームを取得し直す
func (w *Workflow) Leave(ctx context.Context) error {
	w.mu.Lock()
	if !w.entered {
		w.mu.Unlock()
		return nil
	}
	w.entered = false
	w.generation++
	w.opCancel()
	w.stopResetTimerLocked()
	w.mu.Unlock()

	w.inflight.Wait()
	w.cam.ReleaseLocalDevice()

	w.mu.Lock()
	w.busy = false
	w.device = nil
	w.session = newSession()
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()

	log.Info().Str("component", "capture").Msg("登録画面を閉じました")

	if _, err := w.cam.ClaimRemoteStream(ctx); err != nil {
		log.Warn().Str("component", "capture").Err(err).Msg("リモートストリームを取得し直せませんでした")
		return err
	}
	return nil
}

// Start はローカルデバイスを開く (Idle -> Starting -> Live)
// 失敗した場合は Idle に戻り LastError が設定される
func (w *Workflow) Start(ctx context.Context) error {
	return w.startDevice(ctx, StateIdle)
}

// Retake は静止画と名前を破棄して撮り直す (Captured -> Starting)
func (w *Workflow) Retake(ctx context.Context) error {
	return w.startDevice(ctx, StateCaptured)
}

func (w *Workflow) startDevice(_ context.Context, from State) error {
	w.mu.Lock()
	if err := w.guardLocked(from); err != nil {
		w.mu.Unlock()
		return err
	}
	opCtx, gen := w.beginLocked()
	w.session.State = StateStarting
	w.session.StillImage = nil
	w.session.OperatorName = ""
	w.session.LastError = nil
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()

	dev, err := w.cam.ClaimLocalDevice(opCtx, w.opts.Constraints)

	var result error
	if !w.finish(gen, func() {
		if err != nil {
			w.session.State = StateIdle
			w.session.LastError = errorInfo(err, KindDeviceUnavailable)
			result = err
			return
		}
		w.device = dev
		w.session.State = StateLive
	}) {
		return ErrAborted
	}

	if err != nil {
		log.Warn().Str("component", "capture").Err(err).Msg("カメラを開始できませんでした")
	}
	return result
}

// Capture は現在のライブフレームを静止画として保存し、デバイスを解放する (Live -> Captured)
// Live 以外では何もせず ErrInvalidTransition を返す
func (w *Workflow) Capture(_ context.Context) error {
	w.mu.Lock()
	if err := w.guardLocked(StateLive); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.device == nil {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	dev := w.device
	opCtx, gen := w.beginLocked()
	w.session.LastError = nil
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()

	still, err := dev.Snapshot(opCtx)
	if err == nil {
		// 静止画を取得したらデバイスは止める
		w.cam.ReleaseLocalDevice()
	}

	var result error
	if !w.finish(gen, func() {
		if err != nil {
			w.session.LastError = errorInfo(err, KindDeviceUnavailable)
			result = err
			return
		}
		w.device = nil
		w.session.StillImage = still
		w.session.State = StateCaptured
	}) {
		return ErrAborted
	}
	return result
}

// HandleKey はキー入力を処理する
// 撮影キーは Live のときだけ有効で、それ以外は無視する
func (w *Workflow) HandleKey(ctx context.Context, key string) (bool, error) {
	if !w.isCaptureKey(key) {
		return false, nil
	}

	w.mu.Lock()
	honored := w.entered && !w.busy && w.session.State == StateLive
	w.mu.Unlock()
	if !honored {
		return false, nil
	}

	if err := w.Capture(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (w *Workflow) isCaptureKey(key string) bool {
	return normalizeKey(key) == normalizeKey(w.opts.CaptureKey)
}

// normalizeKey はキー名を比較用にそろえる
func normalizeKey(key string) string {
	if key == " " {
		return "space"
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// SetOperatorName は登録する名前を設定する
// Live, Captured, Failed のときのみ変更できる
func (w *Workflow) SetOperatorName(name string) error {
	w.mu.Lock()
	if err := w.guardLocked(StateLive, StateCaptured, StateFailed); err != nil {
		w.mu.Unlock()
		return err
	}
	w.session.OperatorName = name
	if w.session.LastError != nil && w.session.LastError.Kind == KindValidation {
		w.session.LastError = nil
	}
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()
	return nil
}

// Submit は名前と静止画をバックエンドに登録する (Captured -> Submitting -> Succeeded/Failed)
// 名前か静止画がない場合は Captured のまま検証エラーを設定する
func (w *Workflow) Submit(_ context.Context) error {
	w.mu.Lock()
	if err := w.guardLocked(StateCaptured); err != nil {
		w.mu.Unlock()
		return err
	}

	name := strings.TrimSpace(w.session.OperatorName)
	var vErr *ValidationError
	switch {
	case name == "":
		vErr = &ValidationError{Field: "name", Message: MessageNameRequired}
	case !w.session.HasStill():
		vErr = &ValidationError{Field: "image", Message: MessageImageRequired}
	}
	if vErr != nil {
		w.session.LastError = &ErrorInfo{Kind: KindValidation, Message: vErr.Message}
		notify := w.changedLocked()
		w.mu.Unlock()
		notify()
		return vErr
	}

	still := w.session.StillImage
	opCtx, gen := w.beginLocked()
	w.session.State = StateSubmitting
	w.session.LastError = nil
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()

	res, err := w.registrar.RegisterFace(opCtx, name, still)

	var result error
	if !w.finish(gen, func() {
		switch {
		case err != nil:
			w.session.State = StateFailed
			w.session.LastError = errorInfo(err, KindNoResponse)
			result = err
		case !res.Success:
			msg := res.Message
			if strings.TrimSpace(msg) == "" {
				msg = MessageRegisterFail
			}
			w.session.State = StateFailed
			w.session.LastError = &ErrorInfo{Kind: KindRemoteSemanticFailure, Message: msg}
			result = &SemanticFailure{Message: msg}
		default:
			w.session.State = StateSucceeded
			w.session.FaceID = res.FaceID
			w.session.Message = res.Message
			w.scheduleResetLocked(w.session.ID)
		}
	}) {
		return ErrAborted
	}

	if result != nil {
		log.Warn().Str("component", "capture").Err(result).Msg("顔の登録に失敗しました")
	} else {
		log.Info().Str("component", "capture").Str("face_id", res.FaceID).Str("name", name).Msg("顔を登録しました")
	}
	return result
}

// SemanticFailure はバックエンドが success=false を返したことを表す
type SemanticFailure struct {
	Message string
}

func (e *SemanticFailure) Error() string {
	return "登録が拒否されました: " + e.Message
}

// Retry は静止画を保持したまま送信前の状態に戻る (Failed -> Captured)
func (w *Workflow) Retry() error {
	w.mu.Lock()
	if err := w.guardLocked(StateFailed); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.session.HasStill() {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	w.session.State = StateCaptured
	w.session.LastError = nil
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()
	return nil
}

// Restart はセッションを破棄して最初からやり直す (Failed/Succeeded -> Idle)
func (w *Workflow) Restart() error {
	w.mu.Lock()
	if err := w.guardLocked(StateFailed, StateSucceeded); err != nil {
		w.mu.Unlock()
		return err
	}
	w.stopResetTimerLocked()
	w.session = newSession()
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()
	return nil
}

func (w *Workflow) scheduleResetLocked(id uuid.UUID) {
	w.stopResetTimerLocked()
	w.resetTimer = time.AfterFunc(w.opts.AutoResetDelay, func() {
		w.autoReset(id)
	})
}

func (w *Workflow) stopResetTimerLocked() {
	if w.resetTimer != nil {
		w.resetTimer.Stop()
		w.resetTimer = nil
	}
}

// autoReset は成功したセッションを破棄して Idle に戻す
func (w *Workflow) autoReset(id uuid.UUID) {
	w.mu.Lock()
	if !w.entered || w.session.ID != id || w.session.State != StateSucceeded {
		w.mu.Unlock()
		return
	}
	w.resetTimer = nil
	w.session = newSession()
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()

	log.Debug().Str("component", "capture").Msg("登録完了後にIdleへ戻りました")
}

// guardLocked は操作できる状態か確認する
func (w *Workflow) guardLocked(allowed ...State) error {
	if !w.entered {
		return ErrNotEntered
	}
	if w.busy {
		return ErrBusy
	}
	for _, s := range allowed {
		if w.session.State == s {
			return nil
		}
	}
	return ErrInvalidTransition
}

// beginLocked は非同期操作を開始する
func (w *Workflow) beginLocked() (context.Context, uint64) {
	w.busy = true
	w.inflight.Add(1)
	return w.opCtx, w.generation
}

// finish は非同期操作の結果を反映する
// 操作の間に登録画面を離れていた場合は反映せず false を返す
func (w *Workflow) finish(gen uint64, apply func()) bool {
	defer w.inflight.Done()

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return false
	}
	w.busy = false
	apply()
	notify := w.changedLocked()
	w.mu.Unlock()
	notify()
	return true
}

func (w *Workflow) snapshotLocked() Session {
	s := w.session
	s.Busy = w.busy
	if s.LastError != nil {
		e := *s.LastError
		s.LastError = &e
	}
	return s
}

// changedLocked は更新時刻を進め、ロック解放後に呼ぶ通知関数を返す
func (w *Workflow) changedLocked() func() {
	w.session.UpdatedAt = time.Now()
	snap := w.snapshotLocked()
	listeners := make([]func(Session), 0, len(w.listeners))
	for _, fn := range w.listeners {
		listeners = append(listeners, fn)
	}
	return func() {
		for _, fn := range listeners {
			fn(snap)
		}
	}
}
