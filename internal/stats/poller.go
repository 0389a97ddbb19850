// Package stats はライブストリームの統計を定期取得する
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"kaoban/internal/gateway"
)

// DefaultInterval は取得間隔の既定値
const DefaultInterval = time.Second

// Fetcher は統計を1回取得する
// gateway.Client が実装する
type Fetcher interface {
	CameraStats(ctx context.Context) (gateway.StreamStats, error)
}

// Snapshot は表示用の統計
// 取得に失敗した場合は直前の値を Stale=true で保持する
type Snapshot struct {
	Stats     gateway.StreamStats `json:"stats"`
	Valid     bool                `json:"valid"` // 一度でも取得に成功したか
	Stale     bool                `json:"stale"` // 直近の取得に失敗したか
	Failures  int                 `json:"failures"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Poller はストリームがライブの間だけ統計を取得する
// 購読者のコールバックから Stop を呼んではならない
type Poller struct {
	fetcher Fetcher

	mu         sync.Mutex
	interval   time.Duration
	running    bool
	generation uint64
	cancel     context.CancelFunc
	last       Snapshot
	listeners  map[int]func(Snapshot)
	nextID     int

	// 配信中に Stop が戻らないようにする
	deliverMu sync.Mutex
}

// NewPoller は新しいPollerを作成する
func NewPoller(fetcher Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:   fetcher,
		interval:  interval,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Start は即座に1回取得し、以降は一定間隔で取得する
// 既に実行中の場合は何もしない
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

func (p *Poller) startLocked() {
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.generation++
	p.cancel = cancel

	go p.run(ctx, p.generation, p.interval)
	log.Debug().Str("component", "stats").Dur("interval", p.interval).Msg("統計の取得を開始しました")
}

// Stop は以降の取得を止める
// 取得中のリクエストは完了させるが、その結果は破棄する
func (p *Poller) Stop() {
	// 配信中のものがあれば終わるまで待つ
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if !p.running {
		return
	}
	p.running = false
	p.generation++
	p.cancel()
	p.cancel = nil
	log.Debug().Str("component", "stats").Msg("統計の取得を停止しました")
}

// Running は実行中か返す
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Interval は現在の取得間隔を返す
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval は取得間隔を変更する
// 実行中の場合は新しい間隔で再開する
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval == d {
		return
	}
	p.interval = d
	if p.running {
		p.stopLocked()
		p.startLocked()
	}
}

// Last は最後に公開した統計を返す
func (p *Poller) Last() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Subscribe は統計の更新を受け取るコールバックを登録する
// 戻り値の関数で登録を解除する
func (p *Poller) Subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Poller) run(ctx context.Context, gen uint64, interval time.Duration) {
	p.tick(gen)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(gen)
		}
	}
}

// tick は1回取得して公開する
// 停止後に戻ってきた結果は公開しない
func (p *Poller) tick(gen uint64) {
	stats, err := p.fetcher.CameraStats(context.Background())
	if err != nil {
		log.Warn().Str("component", "stats").Err(err).Msg("統計の取得に失敗しました")
	}
	p.publish(gen, stats, err)
}

func (p *Poller) publish(gen uint64, stats gateway.StreamStats, fetchErr error) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if !p.running || gen != p.generation {
		p.mu.Unlock()
		return
	}

	snap := p.last
	if fetchErr != nil {
		snap.Stale = true
		snap.Failures++
	} else {
		snap = Snapshot{
			Stats:     stats,
			Valid:     true,
			UpdatedAt: time.Now(),
		}
	}
	p.last = snap

	listeners := make([]func(Snapshot), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
