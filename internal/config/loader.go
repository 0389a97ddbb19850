package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadFile は設定ファイルを読み込む
// 拡張子で形式を判定し、未指定の項目はデフォルト値のままとなる
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("YAMLの解析に失敗: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("TOMLの解析に失敗: %w", err)
		}
	default:
		return nil, fmt.Errorf("サポートされていない設定ファイル形式: %s", ext)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Loader は設定ファイルの読み込みと変更監視を担う
type Loader struct {
	path     string
	config   *Config
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	done     chan struct{}

	debounce time.Duration
}

// NewLoader は新しいLoaderを作成する
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		done:     make(chan struct{}),
		debounce: 100 * time.Millisecond,
	}
}

// Load は設定ファイルを読み込んで保持する
func (l *Loader) Load() (*Config, error) {
	cfg, err := LoadFile(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()

	return cfg, nil
}

// Config は現在の設定を返す
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange は設定が再読み込みされた時に呼ばれるコールバックを登録する
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch は設定ファイルの監視を開始する
// エディタの置き換え保存に対応するため、ディレクトリ単位で監視する
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ファイル監視の作成に失敗: %w", err)
	}

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("ディレクトリの監視に失敗: %w", err)
	}
	l.watcher = watcher

	go l.watchLoop()
	return nil
}

// Close は監視を停止する
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	close(l.done)
	return l.watcher.Close()
}

// watchLoop はファイルシステムイベントを処理する
func (l *Loader) watchLoop() {
	var timer *time.Timer
	target := filepath.Clean(l.path)

	for {
		select {
		case <-l.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// 連続した書き込みをまとめる
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(l.debounce, l.reload)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("component", "config").Msg("設定ファイル監視でエラーが発生しました")
		}
	}
}

// reload は設定を再読み込みしてコールバックを呼び出す
func (l *Loader) reload() {
	cfg, err := l.Load()
	if err != nil {
		// 壊れた設定では前の設定を使い続ける
		log.Warn().Err(err).Str("path", l.path).Str("component", "config").Msg("設定の再読み込みに失敗しました")
		return
	}

	l.mu.RLock()
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.RUnlock()

	log.Info().Str("path", l.path).Str("component", "config").Msg("設定を再読み込みしました")
	for _, fn := range callbacks {
		fn(cfg)
	}
}
