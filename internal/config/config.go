package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Backend BackendConfig `yaml:"backend" toml:"backend"`
	Camera  CameraConfig  `yaml:"camera" toml:"camera"`
	Stats   StatsConfig   `yaml:"stats" toml:"stats"`
	Capture CaptureConfig `yaml:"capture" toml:"capture"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// ServerConfig はオペレーターコンソール(HTTPサーバー)の設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"` // リッスンするホスト
	Port int    `yaml:"port" toml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`   // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"` // 書き込みタイムアウト
}

// BackendConfig は顔認識バックエンドへの接続設定
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"` // 例: http://localhost:8000/api
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`   // リクエストタイムアウト
}

// CameraConfig はローカル撮影デバイスの設定
type CameraConfig struct {
	Driver   string `yaml:"driver" toml:"driver"`       // "mediadevices" または "ffmpeg"
	DeviceID string `yaml:"device_id" toml:"device_id"` // 空ならデフォルトデバイス
	Width    int    `yaml:"width" toml:"width"`
	Height   int    `yaml:"height" toml:"height"`
	FPS      int    `yaml:"fps" toml:"fps"`
}

// StatsConfig は統計ポーリングの設定
type StatsConfig struct {
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

// CaptureConfig は登録ワークフローの設定
type CaptureConfig struct {
	AutoResetDelay time.Duration `yaml:"auto_reset_delay" toml:"auto_reset_delay"` // 成功後にIdleへ戻るまでの時間
	CaptureKey     string        `yaml:"capture_key" toml:"capture_key"`           // 撮影ショートカット
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // console または json
}

// 対応しているカメラドライバー
const (
	DriverMediaDevices = "mediadevices"
	DriverFFmpeg       = "ffmpeg"
	DriverMock         = "mock" // 実機なしで動かす場合
)

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 10 * time.Second,
		},
		Camera: CameraConfig{
			Driver: DriverMediaDevices,
			Width:  1280,
			Height: 720,
			FPS:    15,
		},
		Stats: StatsConfig{
			Interval: 1 * time.Second,
		},
		Capture: CaptureConfig{
			AutoResetDelay: 3 * time.Second,
			CaptureKey:     "Space",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load は設定を読み込む
// デフォルト値に環境変数を上書きしたものを返す
func Load() (*Config, error) {
	cfg := Default()
	cfg.ApplyEnvOverrides()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides は環境変数で設定を上書きする
func (c *Config) ApplyEnvOverrides() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Backend.BaseURL = getEnvOrDefault("BACKEND_URL", c.Backend.BaseURL)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("無効なバックエンドURL: %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("無効なリクエストタイムアウト: %s", c.Backend.Timeout)
	}

	switch c.Camera.Driver {
	case DriverMediaDevices, DriverFFmpeg, DriverMock:
	default:
		return fmt.Errorf("サポートされていないカメラドライバー: %q", c.Camera.Driver)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		return fmt.Errorf("無効なカメラ解像度: %dx%d@%d", c.Camera.Width, c.Camera.Height, c.Camera.FPS)
	}

	if c.Stats.Interval <= 0 {
		return fmt.Errorf("無効なポーリング間隔: %s", c.Stats.Interval)
	}
	if c.Capture.AutoResetDelay <= 0 {
		return fmt.Errorf("無効な自動リセット時間: %s", c.Capture.AutoResetDelay)
	}
	if strings.TrimSpace(c.Capture.CaptureKey) == "" {
		return fmt.Errorf("撮影キーが設定されていません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
