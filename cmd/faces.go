package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"kaoban/internal/gateway"
	"kaoban/internal/roster"
)

var assumeYes bool

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "登録済みの顔データを管理する",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "顔データの一覧を表示する",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := roster.NewManager(newClient(), nil)
		faces, err := m.List(cmd.Context())
		if err != nil {
			return errors.New(roster.Message(err))
		}
		printFaces(cmd.OutOrStdout(), faces)
		return nil
	},
}

var facesDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "同じ名前で登録された顔データを表示する",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := roster.NewManager(newClient(), nil)
		if _, err := m.List(cmd.Context()); err != nil {
			return errors.New(roster.Message(err))
		}
		printDuplicates(cmd.OutOrStdout(), m.Duplicates())
		return nil
	},
}

var facesDeleteCmd = &cobra.Command{
	Use:   "delete <face-id>",
	Short: "顔データを削除する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m := roster.NewManager(newClient(), nil)
		if _, err := m.List(ctx); err != nil {
			return errors.New(roster.Message(err))
		}

		err := m.Remove(ctx, args[0], newConfirmer(cmd))
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  %s を削除しました\n", args[0])
			return nil
		case errors.Is(err, roster.ErrCancelled):
			fmt.Fprintln(cmd.OutOrStdout(), "キャンセルしました")
			return nil
		case errors.Is(err, roster.ErrNotFound):
			return fmt.Errorf("顔データが見つかりません: %s", args[0])
		default:
			return errors.New(roster.Message(err))
		}
	},
}

var facesMergeCmd = &cobra.Command{
	Use:   "merge <name>",
	Short: "同じ名前の顔データを1件に統合する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m := roster.NewManager(newClient(), nil)
		if _, err := m.List(ctx); err != nil {
			return errors.New(roster.Message(err))
		}

		res, err := m.MergeByName(ctx, args[0], newConfirmer(cmd))
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "✨ %s: %d件を統合しました (%s)\n", res.Name, res.MergedCount, res.MergedFaceID)
			return nil
		case errors.Is(err, roster.ErrCancelled):
			fmt.Fprintln(cmd.OutOrStdout(), "キャンセルしました")
			return nil
		case errors.Is(err, roster.ErrNotDuplicate):
			return fmt.Errorf("「%s」は重複していません", args[0])
		default:
			return errors.New(roster.Message(err))
		}
	},
}

var facesAddSampleCmd = &cobra.Command{
	Use:   "add-sample <face-id> <image>...",
	Short: "顔データにサンプル画像を追加する",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAddSample(cmd.Context(), cmd.OutOrStdout(), roster.NewManager(newClient(), nil), args[0], args[1:])
	},
}

func init() {
	facesDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "確認せずに実行する")
	facesMergeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "確認せずに実行する")

	facesCmd.AddCommand(facesListCmd, facesDuplicatesCmd, facesDeleteCmd, facesMergeCmd, facesAddSampleCmd)
	rootCmd.AddCommand(facesCmd)
}

// sampleAdder は roster.Manager のサンプル追加
type sampleAdder interface {
	AddSample(ctx context.Context, faceID string, image []byte) (*gateway.SampleResult, error)
}

// runAddSample は画像を1枚ずつ追加し、失敗しても残りを続ける
func runAddSample(ctx context.Context, out io.Writer, m sampleAdder, faceID string, paths []string) error {
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("📤 サンプル追加"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var failed []string
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		image, err := os.ReadFile(path)
		if err == nil {
			_, err = m.AddSample(ctx, faceID, image)
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %s", path, roster.Message(err)))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	fmt.Fprintf(out, "%d/%d 件のサンプルを追加しました\n", len(paths)-len(failed), len(paths))
	if len(failed) > 0 {
		return fmt.Errorf("%d件の追加に失敗しました:\n  %s", len(failed), strings.Join(failed, "\n  "))
	}
	return nil
}

// newConfirmer は --yes ならすべて承認し、それ以外は標準入力で y/N を尋ねる
func newConfirmer(cmd *cobra.Command) roster.Confirmer {
	if assumeYes {
		return roster.AlwaysConfirm
	}
	return promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
}

func promptConfirmer(in io.Reader, out io.Writer) roster.Confirmer {
	reader := bufio.NewReader(in)
	return roster.ConfirmFunc(func(_ context.Context, c roster.Confirmation) (bool, error) {
		fmt.Fprintf(out, "⚠️  %s [y/N]: ", c.Prompt)
		res, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		res = strings.TrimSpace(strings.ToLower(res))
		return res == "y" || res == "yes", nil
	})
}

func printFaces(out io.Writer, faces []gateway.FaceRecord) {
	if len(faces) == 0 {
		fmt.Fprintln(out, "顔データは登録されていません")
		return
	}

	dups := make(map[string]bool)
	for _, name := range roster.DuplicateNames(faces) {
		dups[name] = true
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSAMPLES\tRECOGNIZED\tREGISTERED\tLAST SEEN")
	fmt.Fprintln(w, "--\t----\t-------\t----------\t----------\t---------")

	for _, f := range faces {
		name := f.Name
		if dups[f.Name] {
			name += " (重複)"
		}
		lastSeen := "-"
		if f.LastSeen != nil && !f.LastSeen.IsZero() {
			lastSeen = f.LastSeen.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			f.FaceID, name, f.SampleCount, f.RecognitionCount,
			f.RegisteredAt.Local().Format("2006-01-02 15:04"), lastSeen)
	}
	w.Flush()
}

func printDuplicates(out io.Writer, groups []roster.DuplicateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(out, "重複している名前はありません")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOUNT\tFACE IDS")
	fmt.Fprintln(w, "----\t-----\t--------")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\t%s\n", g.Name, g.Count, strings.Join(g.FaceIDs, ", "))
	}
	w.Flush()
}
