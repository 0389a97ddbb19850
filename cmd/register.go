package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kaoban/internal/camera"
	"kaoban/internal/capture"
)

var (
	registerName  string
	registerImage string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "カメラで撮影して顔を登録する",
	Long: `登録画面と同じ手順 (カメラ開始 → 撮影 → 名前入力 → 登録) を画面なしで実行します。
--image を指定した場合はカメラの代わりにその画像を撮影結果として使います。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var driver camera.Driver
		if registerImage != "" {
			frame, err := os.ReadFile(registerImage)
			if err != nil {
				return fmt.Errorf("画像の読み込みに失敗しました: %w", err)
			}
			mock := camera.NewMockDriver()
			mock.SetFrame(frame)
			driver = mock
		} else {
			var err error
			if driver, err = camera.NewDriver(cfg.Camera); err != nil {
				return err
			}
		}

		client := newClient()
		workflow := capture.New(camera.NewArbiter(client, driver), client, capture.OptionsFromConfig(cfg))
		return runRegister(cmd.Context(), cmd.OutOrStdout(), workflow, registerName)
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerName, "name", "n", "", "登録する名前")
	registerCmd.Flags().StringVar(&registerImage, "image", "", "カメラの代わりに使う画像ファイル")
	_ = registerCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(registerCmd)
}

// registerFlow は登録ワークフローのうち画面なしで使う操作
type registerFlow interface {
	Enter(ctx context.Context) error
	Leave(ctx context.Context) error
	Start(ctx context.Context) error
	Capture(ctx context.Context) error
	SetOperatorName(name string) error
	Submit(ctx context.Context) error
	Session() capture.Session
}

func runRegister(ctx context.Context, out io.Writer, w registerFlow, name string) error {
	// 解放に失敗しても続行する (ローカルデバイスが開けるかはStartで分かる)
	if err := w.Enter(ctx); err != nil {
		log.Warn().Str("component", "cmd").Err(err).Msg("リモートストリームを解放できませんでした")
	}
	defer func() {
		// 終了時は必ずローカルデバイスを解放してリモートストリームを戻す
		if err := w.Leave(context.Background()); err != nil {
			log.Warn().Str("component", "cmd").Err(err).Msg("リモートストリームを取得し直せませんでした")
		}
	}()

	steps := []struct {
		label string
		run   func() error
	}{
		{"📷 カメラを開始しています...", func() error { return w.Start(ctx) }},
		{"📸 撮影しています...", func() error { return w.Capture(ctx) }},
		{"✏️  名前を設定しています...", func() error { return w.SetOperatorName(name) }},
		{"📤 登録しています...", func() error { return w.Submit(ctx) }},
	}
	for _, step := range steps {
		fmt.Fprintln(out, step.label)
		if err := step.run(); err != nil {
			return sessionError(w.Session(), err)
		}
	}

	s := w.Session()
	fmt.Fprintf(out, "✨ 登録しました: %s (%s)\n", s.Message, s.FaceID)
	return nil
}

// sessionError はセッションに残ったオペレーター向けのメッセージを優先する
func sessionError(s capture.Session, err error) error {
	if s.LastError != nil && s.LastError.Message != "" {
		return errors.New(s.LastError.Message)
	}
	var vErr *capture.ValidationError
	if errors.As(err, &vErr) {
		return errors.New(vErr.Message)
	}
	return err
}
