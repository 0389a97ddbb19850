// Package monitor は監視画面のリモートストリームを管理する
//
// リモートストリームを取得して読み込み、最初のフレームを受信した時点で
// ライブとみなして統計の取得を開始する。ストリームが途切れたら統計の取得を止める。
package monitor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"kaoban/internal/camera"
	"kaoban/internal/gateway"
)

// State はストリームの状態
type State string

const (
	StateIdle       State = "idle"       // 監視画面を表示していない
	StateConnecting State = "connecting" // 最初のフレーム待ち
	StateLive       State = "live"       // フレームを受信している
	StateOffline    State = "offline"    // 接続できない、または途切れた
)

// Status は監視画面の状態
type Status struct {
	State  State     `json:"state"`
	Since  time.Time `json:"since"`
	Frames uint64    `json:"frames"`
	Error  string    `json:"error,omitempty"`
}

// FrameStream はJPEGフレームの連続
type FrameStream interface {
	Next() ([]byte, error)
	Close() error
}

// Opener はリモートストリームを開く
type Opener func(ctx context.Context) (FrameStream, error)

// FromGateway はgateway.Clientのストリームを Opener にする
func FromGateway(client *gateway.Client) Opener {
	return func(ctx context.Context) (FrameStream, error) {
		s, err := client.OpenStream(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Camera はリモートストリームの取得
// camera.Arbiter が実装する
type Camera interface {
	ClaimRemoteStream(ctx context.Context) (camera.StreamHandle, error)
}

// Poller は統計取得の開始・停止
// stats.Poller が実装する
type Poller interface {
	Start()
	Stop()
}

const subscriberBuffer = 2

// Monitor は監視画面のストリームとその生存状態を管理する
type Monitor struct {
	camera Camera
	open   Opener
	poller Poller

	mu        sync.Mutex
	status    Status
	latest    []byte
	cancel    context.CancelFunc
	done      chan struct{}
	subs      map[int]chan []byte
	listeners map[int]func(Status)
	nextID    int
}

// New は新しいMonitorを作成する
func New(cam Camera, open Opener, poller Poller) *Monitor {
	return &Monitor{
		camera:    cam,
		open:      open,
		poller:    poller,
		status:    Status{State: StateIdle, Since: time.Now()},
		subs:      make(map[int]chan []byte),
		listeners: make(map[int]func(Status)),
	}
}

// Enter はリモートストリームを取得し、バックグラウンドで読み込みを開始する
// 既に読み込み中の場合は何もしない。オフラインの場合は接続し直す
func (m *Monitor) Enter(ctx context.Context) error {
	m.mu.Lock()
	active := m.cancel != nil && m.status.State != StateOffline
	m.mu.Unlock()
	if active {
		return nil
	}
	m.stopReader()

	if _, err := m.camera.ClaimRemoteStream(ctx); err != nil {
		m.setStatus(StateOffline, err)
		return err
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(runCtx, m.done)
	notify := m.setStatusLocked(StateConnecting, nil)
	m.mu.Unlock()

	notify()
	return nil
}

// Leave は読み込みと統計の取得を止める
// カメラの解放は行わない
func (m *Monitor) Leave() {
	m.stopReader()
	m.poller.Stop()
	m.setStatus(StateIdle, nil)
}

// stopReader は読み込み中のgoroutineを止めて終了を待つ
func (m *Monitor) stopReader() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Status は現在の状態を返す
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Live はフレームを受信中か返す
func (m *Monitor) Live() bool {
	return m.Status().State == StateLive
}

// Latest は最後に受信したフレームを返す
func (m *Monitor) Latest() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return nil
	}
	return append([]byte(nil), m.latest...)
}

// Subscribe はフレームを受け取るチャンネルを返す
// 受信が追いつかない場合は古いフレームから捨てる
func (m *Monitor) Subscribe() (<-chan []byte, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan []byte, subscriberBuffer)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

// OnStatus は状態の変化を受け取るコールバックを登録する
func (m *Monitor) OnStatus(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	stream, err := m.open(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.goOffline(err)
		}
		return
	}
	defer func() { _ = stream.Close() }()

	// Leave で読み込みを中断する
	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	for {
		frame, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = errors.New("ストリームが終了しました")
			}
			m.goOffline(err)
			return
		}
		m.deliver(ctx, frame)
	}
}

// deliver はフレームを保存して購読者へ配る
// 最初のフレームでライブになり統計の取得を開始する
func (m *Monitor) deliver(ctx context.Context, frame []byte) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.latest = frame
	m.status.Frames++
	becameLive := m.status.State != StateLive
	notify := func() {}
	if becameLive {
		notify = m.setStatusLocked(StateLive, nil)
	}

	for _, ch := range m.subs {
		select {
		case ch <- frame:
		default:
			// チャンネルがフルの場合は古いフレームを破棄
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
	m.mu.Unlock()
	notify()

	if becameLive {
		log.Info().Str("component", "monitor").Msg("ストリームがライブになりました")
		m.poller.Start()
	}
}

func (m *Monitor) goOffline(err error) {
	log.Warn().Str("component", "monitor").Err(err).Msg("ストリームがオフラインになりました")
	m.poller.Stop()
	m.setStatus(StateOffline, err)
}

func (m *Monitor) setStatus(state State, err error) {
	m.mu.Lock()
	notify := m.setStatusLocked(state, err)
	m.mu.Unlock()
	notify()
}

// setStatusLocked は状態を更新し、ロック解放後に呼ぶ通知関数を返す
func (m *Monitor) setStatusLocked(state State, err error) func() {
	m.status.State = state
	m.status.Since = time.Now()
	m.status.Error = ""
	if err != nil {
		m.status.Error = errorMessage(err)
	}
	if state == StateIdle || state == StateConnecting {
		m.status.Frames = 0
	}

	snap := m.status
	listeners := make([]func(Status), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	return func() {
		for _, fn := range listeners {
			fn(snap)
		}
	}
}

// errorMessage はオペレーター向けのメッセージを返す
func errorMessage(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Message()
	}
	var camErr *camera.Error
	if errors.As(err, &camErr) {
		return camErr.Message()
	}
	return err.Error()
}
