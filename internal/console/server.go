package console

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kaoban/internal/camera"
	"kaoban/internal/capture"
	"kaoban/internal/config"
	"kaoban/internal/generated"
	"kaoban/internal/monitor"
	"kaoban/internal/roster"
	"kaoban/internal/stats"
)

// Deps はコンソールが操作するコンポーネント
type Deps struct {
	Arbiter  *camera.Arbiter
	Monitor  *monitor.Monitor
	Poller   *stats.Poller
	Workflow *capture.Workflow
	Roster   *roster.Manager
	Health   HealthChecker
	Hub      *Hub // nil の場合は作成する
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	engine     *gin.Engine
	handler    *ConsoleHandler
	hub        *Hub
	nav        *Navigator
	deps       Deps
	unsubs     []func()
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, deps Deps) (*Server, error) {
	hub := deps.Hub
	if hub == nil {
		hub = NewHub()
	}
	nav := NewNavigator(deps.Monitor, deps.Workflow, deps.Roster)

	handler := &ConsoleHandler{
		config:   cfg,
		nav:      nav,
		arbiter:  deps.Arbiter,
		monitor:  deps.Monitor,
		poller:   deps.Poller,
		workflow: deps.Workflow,
		roster:   deps.Roster,
		health:   deps.Health,
		hub:      hub,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		config:  cfg,
		engine:  engine,
		handler: handler,
		hub:     hub,
		nav:     nav,
		deps:    deps,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	s.subscribe()
	return s, nil
}

// Handler はHTTPハンドラーを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Navigator は画面の切り替えを返す
func (s *Server) Navigator() *Navigator {
	return s.nav
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() error {
	swagger, err := generated.GetSwagger()
	if err != nil {
		return err
	}
	validator, err := newRequestValidator(swagger)
	if err != nil {
		return err
	}

	generated.RegisterHandlersWithOptions(s.engine, s.handler, generated.GinServerOptions{
		Middlewares: []generated.MiddlewareFunc{validator.Middleware()},
		ErrorHandler: func(c *gin.Context, err error, status int) {
			abortWithError(c, status, "invalid_parameter", "リクエストの形式が正しくありません", err.Error())
		},
	})

	// 静的ファイルとAPI定義
	s.engine.GET("/", s.handleIndex)
	s.engine.StaticFS("/static", GetStaticFS())
	s.engine.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", generated.SpecYAML())
	})
	return nil
}

// subscribe は各コンポーネントの変化をWebSocketに流す
func (s *Server) subscribe() {
	s.unsubs = append(s.unsubs,
		s.deps.Poller.Subscribe(func(snap stats.Snapshot) {
			s.hub.Broadcast(EventStats, convertSnapshot(snap))
		}),
		s.deps.Workflow.Subscribe(func(session capture.Session) {
			s.hub.Broadcast(EventSession, convertSession(session, s.deps.Workflow.CaptureKey()))
		}),
		s.deps.Monitor.OnStatus(func(st monitor.Status) {
			s.hub.Broadcast(EventStream, convertMonitorStatus(st))
		}),
	)
	s.nav.OnChange(func(v View) {
		s.hub.Broadcast(EventView, generated.ViewResponse{View: generated.ViewName(v)})
	})
}

// handleIndex はコンソール画面を返す
func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}

// Start はサーバーを起動する
// initial が ViewNone 以外の場合はその画面を開いてから待ち受ける
func (s *Server) Start(ctx context.Context, initial View) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	return s.Serve(ctx, listener, initial)
}

// Serve は listener で待ち受ける
func (s *Server) Serve(ctx context.Context, listener net.Listener, initial View) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Info().Str("component", "console").Str("addr", listener.Addr().String()).Msg("HTTPサーバーを起動しています")
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	if initial != ViewNone {
		if err := s.nav.Navigate(ctx, initial); err != nil {
			log.Warn().Str("component", "console").Err(err).Str("view", string(initial)).Msg("初期画面を開けませんでした")
		}
	}

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Info().Str("component", "console").Msg("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Info().Str("component", "console").Str("signal", sig.String()).Msg("シグナルを受信しました")
	case err := <-shutdownCh:
		s.teardown(context.Background())
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 開いている画面を離れ、ローカルデバイスを必ず解放する
func (s *Server) Shutdown() error {
	log.Info().Str("component", "console").Int("ws_clients", s.hub.Clients()).Msg("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 画面を先に閉じてストリーム中継を終わらせる
	s.hub.Close()
	s.teardown(ctx)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Info().Str("component", "console").Msg("サーバーが正常にシャットダウンされました")
	return nil
}

func (s *Server) teardown(ctx context.Context) {
	if err := s.nav.Close(ctx); err != nil {
		log.Warn().Str("component", "console").Err(err).Msg("画面を閉じる際にエラーが発生しました")
	}
	s.deps.Poller.Stop()
	s.deps.Arbiter.Close()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// requestLogger はリクエストごとにIDを振ってログに残す
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Debug().
			Str("component", "console").
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("リクエストを処理しました")
	}
}
