package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kaoban/internal/camera"
	"kaoban/internal/capture"
	"kaoban/internal/config"
	"kaoban/internal/console"
	"kaoban/internal/logging"
	"kaoban/internal/monitor"
	"kaoban/internal/roster"
	"kaoban/internal/stats"
)

var (
	serveHost string
	servePort int
	serveView string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "オペレーターコンソールを起動する",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "サーバーのポート (デフォルト: 8080)")
	serveCmd.Flags().StringVar(&serveView, "view", string(console.ViewMonitor), "起動時に開く画面 (none, monitor, registration, roster)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// コマンドラインオプションで設定を上書き
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	initial := console.View(serveView)
	if !initial.Valid() {
		return fmt.Errorf("不明な画面: %s", serveView)
	}

	driver, err := camera.NewDriver(cfg.Camera)
	if err != nil {
		return err
	}

	client := newClient()
	arbiter := camera.NewArbiter(client, driver)
	poller := stats.NewPoller(client, cfg.Stats.Interval)
	hub := console.NewHub()

	srv, err := console.New(cfg, console.Deps{
		Arbiter:  arbiter,
		Monitor:  monitor.New(arbiter, monitor.FromGateway(client), poller),
		Poller:   poller,
		Workflow: capture.New(arbiter, client, capture.OptionsFromConfig(cfg)),
		Roster:   roster.NewManager(client, hub.Alerter()),
		Health:   client,
		Hub:      hub,
	})
	if err != nil {
		return fmt.Errorf("サーバーの作成に失敗しました: %w", err)
	}

	// 設定ファイルの変更を反映する
	if loader != nil {
		loader.OnChange(func(c *config.Config) {
			poller.SetInterval(c.Stats.Interval)
			logging.SetLevel(c.Log.Level)
			log.Info().
				Str("component", "cmd").
				Dur("stats_interval", c.Stats.Interval).
				Str("log_level", c.Log.Level).
				Msg("設定を再読み込みしました")
		})
		if err := loader.Watch(); err != nil {
			log.Warn().Str("component", "cmd").Err(err).Msg("設定ファイルを監視できません")
		}
		defer loader.Close()
	}

	log.Info().
		Str("component", "cmd").
		Str("addr", cfg.ServerAddress()).
		Str("backend", client.BaseURL()).
		Str("driver", cfg.Camera.Driver).
		Msg("Kaoban サーバーを起動します")

	return srv.Start(cmd.Context(), initial)
}
