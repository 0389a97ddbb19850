package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"kaoban/internal/capture"
	"kaoban/internal/monitor"
	"kaoban/internal/roster"
)

// View はコンソールで表示している画面
type View string

const (
	ViewNone         View = "none"
	ViewMonitor      View = "monitor"
	ViewRegistration View = "registration"
	ViewRoster       View = "roster"
)

// Valid は既知の画面か返す
func (v View) Valid() bool {
	switch v {
	case ViewNone, ViewMonitor, ViewRegistration, ViewRoster:
		return true
	}
	return false
}

// Navigator は画面の切り替えを管理する
// 新しい画面に入る前に必ず前の画面を離れる
type Navigator struct {
	monitor  *monitor.Monitor
	workflow *capture.Workflow
	roster   *roster.Manager

	mu       sync.Mutex
	current  View
	onChange func(View)
}

// NewNavigator は新しいNavigatorを作成する
func NewNavigator(m *monitor.Monitor, w *capture.Workflow, r *roster.Manager) *Navigator {
	return &Navigator{
		monitor:  m,
		workflow: w,
		roster:   r,
		current:  ViewNone,
	}
}

// Current は現在の画面を返す
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// OnChange は画面が切り替わったときのコールバックを設定する
func (n *Navigator) OnChange(fn func(View)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Navigate は to の画面に切り替える
// 同じ画面を指定した場合は入り直す(監視画面の再接続、一覧の再取得)
// 入る処理が失敗しても画面は切り替わり、エラーを返す
// ctx のキャンセルは無視する
func (n *Navigator) Navigate(ctx context.Context, to View) error {
	if !to.Valid() {
		return fmt.Errorf("不明な画面: %q", to)
	}

	// リクエストが切断されてもカメラの受け渡しは最後まで行う
	// バックエンド呼び出しはゲートウェイのタイムアウトで打ち切られる
	ctx = context.WithoutCancel(ctx)

	n.mu.Lock()
	defer n.mu.Unlock()

	from := n.current
	var errs []error
	if from != to {
		if err := n.leave(ctx, from); err != nil {
			errs = append(errs, err)
		}
		n.current = to
	}
	if err := n.enter(ctx, to); err != nil {
		errs = append(errs, err)
	}

	if from != to {
		log.Info().Str("component", "console").Str("from", string(from)).Str("to", string(to)).Msg("画面を切り替えました")
		if n.onChange != nil {
			n.onChange(to)
		}
	}
	return errors.Join(errs...)
}

// Close は現在の画面を離れる
func (n *Navigator) Close(ctx context.Context) error {
	return n.Navigate(ctx, ViewNone)
}

func (n *Navigator) leave(ctx context.Context, v View) error {
	switch v {
	case ViewMonitor:
		n.monitor.Leave()
	case ViewRegistration:
		return n.workflow.Leave(ctx)
	}
	return nil
}

func (n *Navigator) enter(ctx context.Context, v View) error {
	switch v {
	case ViewMonitor:
		return n.monitor.Enter(ctx)
	case ViewRegistration:
		return n.workflow.Enter(ctx)
	case ViewRoster:
		_, err := n.roster.List(ctx)
		return err
	}
	return nil
}
