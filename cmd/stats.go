package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kaoban/internal/roster"
	"kaoban/internal/stats"
)

var (
	statsWatch    bool
	statsInterval time.Duration
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "ライブストリームの統計を表示する",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if !statsWatch {
			s, err := client.CameraStats(cmd.Context())
			if err != nil {
				return errors.New(roster.Message(err))
			}
			printStats(cmd.OutOrStdout(), stats.Snapshot{Stats: s, Valid: true, UpdatedAt: time.Now()})
			return nil
		}

		interval := statsInterval
		if interval <= 0 {
			interval = cfg.Stats.Interval
		}
		watchStats(cmd.Context(), cmd.OutOrStdout(), stats.NewPoller(client, interval))
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVarP(&statsWatch, "watch", "w", false, "Ctrl+C まで一定間隔で表示し続ける")
	statsCmd.Flags().DurationVar(&statsInterval, "interval", 0, "更新間隔 (デフォルト: 設定値)")
	rootCmd.AddCommand(statsCmd)
}

// watchStats はコンテキストがキャンセルされるまで統計を表示する
func watchStats(ctx context.Context, out io.Writer, poller *stats.Poller) {
	unsubscribe := poller.Subscribe(func(s stats.Snapshot) {
		printStats(out, s)
	})
	defer unsubscribe()

	poller.Start()
	defer poller.Stop()

	<-ctx.Done()
}

func printStats(out io.Writer, s stats.Snapshot) {
	if !s.Valid {
		fmt.Fprintf(out, "%s  統計を取得できません (失敗 %d 回)\n", s.UpdatedAt.Format(time.TimeOnly), s.Failures)
		return
	}

	stale := ""
	if s.Stale {
		stale = fmt.Sprintf("  ⚠️ 古い値 (失敗 %d 回)", s.Failures)
	}
	fmt.Fprintf(out, "%s  検出 %d  認識 %d  FPS %.1f%s\n",
		s.UpdatedAt.Format(time.TimeOnly), s.Stats.FacesDetected, s.Stats.FacesRecognized, s.Stats.FPS, stale)
}
