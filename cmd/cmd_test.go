package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaoban/internal/camera"
	"kaoban/internal/capture"
	"kaoban/internal/gateway"
	"kaoban/internal/roster"
	"kaoban/internal/stats"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"y", "y\n", true},
		{"yes 大文字", "YES\n", true},
		{"空行", "\n", false},
		{"no", "n\n", false},
		{"入力なし", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := promptConfirmer(strings.NewReader(tt.input), &out)

			ok, err := c.Confirm(context.Background(), roster.Confirmation{
				Action: roster.ActionDelete,
				Target: "Jane",
				Prompt: "「Jane」を削除しますか？",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "「Jane」を削除しますか？ [y/N]")
		})
	}
}

func TestPrintFaces(t *testing.T) {
	registered := gateway.Timestamp{Time: time.Date(2024, 5, 1, 10, 20, 0, 0, time.Local)}
	faces := []gateway.FaceRecord{
		{FaceID: "p1", Name: "Jane", SampleCount: 1, RegisteredAt: registered},
		{FaceID: "p2", Name: "Bob", SampleCount: 3, RecognitionCount: 7, RegisteredAt: registered},
		{FaceID: "p3", Name: "Jane", SampleCount: 2, RegisteredAt: registered},
	}

	var out bytes.Buffer
	printFaces(&out, faces)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[2], "Jane (重複)")
	assert.Contains(t, lines[2], "2024-05-01 10:20")
	assert.NotContains(t, lines[3], "重複")
	assert.Contains(t, lines[4], "Jane (重複)")

	out.Reset()
	printFaces(&out, nil)
	assert.Equal(t, "顔データは登録されていません\n", out.String())
}

func TestPrintDuplicates(t *testing.T) {
	var out bytes.Buffer
	printDuplicates(&out, []roster.DuplicateGroup{{Name: "Jane", Count: 2, FaceIDs: []string{"p1", "p3"}}})
	assert.Contains(t, out.String(), "p1, p3")

	out.Reset()
	printDuplicates(&out, nil)
	assert.Equal(t, "重複している名前はありません\n", out.String())
}

func TestPrintStats(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 20, 30, 0, time.Local)

	var out bytes.Buffer
	printStats(&out, stats.Snapshot{
		Stats:     gateway.StreamStats{FacesDetected: 2, FacesRecognized: 1, FPS: 12.46},
		Valid:     true,
		UpdatedAt: at,
	})
	assert.Equal(t, "10:20:30  検出 2  認識 1  FPS 12.5\n", out.String())

	out.Reset()
	printStats(&out, stats.Snapshot{Valid: true, Stale: true, Failures: 2, UpdatedAt: at})
	assert.Contains(t, out.String(), "古い値 (失敗 2 回)")

	out.Reset()
	printStats(&out, stats.Snapshot{Failures: 1, UpdatedAt: at})
	assert.Contains(t, out.String(), "統計を取得できません")
}

type fakeSampleAdder struct {
	mu    sync.Mutex
	calls [][]byte
	err   error
}

func (f *fakeSampleAdder) AddSample(_ context.Context, faceID string, image []byte) (*gateway.SampleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, image)
	if f.err != nil {
		return &gateway.SampleResult{FaceID: faceID}, f.err
	}
	return &gateway.SampleResult{Success: true, FaceID: faceID, SampleCount: uint(len(f.calls))}, nil
}

func TestRunAddSample(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.jpg")
	second := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(first, camera.MockFrame, 0o600))
	require.NoError(t, os.WriteFile(second, camera.MockFrame, 0o600))

	t.Run("すべて成功", func(t *testing.T) {
		adder := &fakeSampleAdder{}
		var out bytes.Buffer

		err := runAddSample(context.Background(), &out, adder, "p1", []string{first, second})
		require.NoError(t, err)
		assert.Len(t, adder.calls, 2)
		assert.Contains(t, out.String(), "2/2 件")
	})

	t.Run("存在しないファイルは飛ばして続ける", func(t *testing.T) {
		adder := &fakeSampleAdder{}
		var out bytes.Buffer

		err := runAddSample(context.Background(), &out, adder, "p1", []string{filepath.Join(dir, "missing.jpg"), second})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing.jpg")
		assert.Len(t, adder.calls, 1)
		assert.Contains(t, out.String(), "1/2 件")
	})

	t.Run("バックエンドが拒否", func(t *testing.T) {
		adder := &fakeSampleAdder{err: &gateway.SemanticError{Op: "AddSample", Message: "顔が検出されませんでした"}}
		var out bytes.Buffer

		err := runAddSample(context.Background(), &out, adder, "p1", []string{first})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "顔が検出されませんでした")
	})
}

type fakeRegistrar struct {
	names  []string
	result *gateway.RegisterResult
	err    error
}

func (f *fakeRegistrar) RegisterFace(_ context.Context, name string, _ []byte) (*gateway.RegisterResult, error) {
	f.names = append(f.names, name)
	return f.result, f.err
}

func newRegisterWorkflow(t *testing.T, registrar capture.Registrar) (*capture.Workflow, *camera.MockBackend, *camera.MockDriver, *camera.Arbiter) {
	t.Helper()
	backend := camera.NewMockBackend()
	driver := camera.NewMockDriver()
	arbiter := camera.NewArbiter(backend, driver)
	return capture.New(arbiter, registrar, capture.Options{AutoResetDelay: time.Hour}), backend, driver, arbiter
}

func TestRunRegister(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		registrar := &fakeRegistrar{result: &gateway.RegisterResult{Success: true, FaceID: "new1", Message: "登録しました"}}
		workflow, _, driver, arbiter := newRegisterWorkflow(t, registrar)
		var out bytes.Buffer

		err := runRegister(context.Background(), &out, workflow, "  Yamada ")
		require.NoError(t, err)
		assert.Equal(t, []string{"Yamada"}, registrar.names)
		assert.Contains(t, out.String(), "登録しました (new1)")

		// 終了後はローカルデバイスを解放してリモートストリームに戻す
		require.Len(t, driver.Opened(), 1)
		assert.True(t, driver.Opened()[0].Closed())
		assert.Equal(t, camera.HolderRemoteStream, arbiter.Holder())
	})

	t.Run("名前が空", func(t *testing.T) {
		registrar := &fakeRegistrar{}
		workflow, _, _, arbiter := newRegisterWorkflow(t, registrar)

		err := runRegister(context.Background(), &bytes.Buffer{}, workflow, "   ")
		require.Error(t, err)
		assert.Equal(t, capture.MessageNameRequired, err.Error())
		assert.Empty(t, registrar.names)
		assert.Equal(t, camera.HolderRemoteStream, arbiter.Holder())
	})

	t.Run("バックエンドが拒否", func(t *testing.T) {
		registrar := &fakeRegistrar{result: &gateway.RegisterResult{Success: false, Message: "顔が検出されませんでした"}}
		workflow, _, _, _ := newRegisterWorkflow(t, registrar)

		err := runRegister(context.Background(), &bytes.Buffer{}, workflow, "Yamada")
		require.Error(t, err)
		assert.Equal(t, "顔が検出されませんでした", err.Error())
	})

	t.Run("カメラを開けない", func(t *testing.T) {
		registrar := &fakeRegistrar{}
		workflow, _, driver, _ := newRegisterWorkflow(t, registrar)
		driver.SetOpenError(&camera.Error{Kind: camera.KindAccessDenied, Op: "open", Err: errors.New("permission denied")})

		err := runRegister(context.Background(), &bytes.Buffer{}, workflow, "Yamada")
		require.Error(t, err)
		assert.Equal(t, camera.MessageAccessDenied, err.Error())
		assert.Empty(t, registrar.names)
	})
}
