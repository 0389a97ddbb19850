// Package cmd はkaobanのコマンドラインの実装です
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kaoban/internal/config"
	"kaoban/internal/gateway"
	"kaoban/internal/logging"
)

// Version はアプリケーションのバージョン
const Version = "0.1.0"

var (
	// cfg はサブコマンドで共有する設定
	cfg *config.Config
	// loader は --config 指定時のみ作成される
	loader *config.Loader

	configPath string
	backendURL string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "kaoban",
	Short:         "顔認識アプライアンスのオペレーターコンソール",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			loader = config.NewLoader(configPath)
			cfg, err = loader.Load()
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
		}

		// フラグで設定を上書き
		if backendURL != "" {
			cfg.Backend.BaseURL = backendURL
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logging.Setup(cfg.Log)
		return nil
	},
}

// Execute はルートコマンドを実行する
func Execute() {
	// Ctrl+C (SIGINT) と SIGTERM でキャンセルされるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "設定ファイル (.yaml / .toml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "バックエンドのURL (デフォルト: http://localhost:8000/api)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
}

// newClient は設定からバックエンドクライアントを作成する
func newClient() *gateway.Client {
	return gateway.NewFromConfig(cfg.Backend)
}
