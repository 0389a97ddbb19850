package capture

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaoban/internal/camera"
	"kaoban/internal/gateway"
)

type registerCall struct {
	name  string
	image []byte
}

// fakeRegistrar は登録リクエストを記録するRegistrar
type fakeRegistrar struct {
	mu     sync.Mutex
	calls  []registerCall
	result *gateway.RegisterResult
	err    error
	block  chan struct{}
}

func (r *fakeRegistrar) RegisterFace(ctx context.Context, name string, image []byte) (*gateway.RegisterResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, registerCall{name: name, image: image})
	block, result, err := r.block, r.result, r.err
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &gateway.Error{Kind: gateway.KindNoResponse, Op: "RegisterFace", Err: ctx.Err()}
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &gateway.RegisterResult{Success: true, FaceID: "p1", Name: name, Message: "ok"}, nil
	}
	return result, nil
}

func (r *fakeRegistrar) callList() []registerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]registerCall(nil), r.calls...)
}

type fixture struct {
	workflow  *Workflow
	arbiter   *camera.Arbiter
	backend   *camera.MockBackend
	driver    *camera.MockDriver
	registrar *fakeRegistrar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := camera.NewMockBackend()
	driver := camera.NewMockDriver()
	arbiter := camera.NewArbiter(backend, driver)
	registrar := &fakeRegistrar{}
	w := New(arbiter, registrar, Options{AutoResetDelay: 30 * time.Millisecond})
	t.Cleanup(func() { _ = w.Leave(context.Background()) })
	return &fixture{workflow: w, arbiter: arbiter, backend: backend, driver: driver, registrar: registrar}
}

// toCaptured は登録画面を開いて静止画を撮影した状態にする
func (f *fixture) toCaptured(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.workflow.Enter(ctx))
	require.NoError(t, f.workflow.Start(ctx))
	require.NoError(t, f.workflow.Capture(ctx))
	require.Equal(t, StateCaptured, f.workflow.Session().State)
}

func TestWorkflow_HappyPathWithAutoReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.workflow

	require.NoError(t, w.Enter(ctx))
	first := w.Session()
	assert.Equal(t, StateIdle, first.State)
	assert.Equal(t, []string{"release"}, f.backend.Calls())

	require.NoError(t, w.Start(ctx))
	assert.Equal(t, StateLive, w.Session().State)
	assert.Equal(t, camera.HolderLocalDevice, f.arbiter.Holder())

	handled, err := w.HandleKey(ctx, "Space")
	require.NoError(t, err)
	assert.True(t, handled)

	s := w.Session()
	assert.Equal(t, StateCaptured, s.State)
	assert.Equal(t, camera.MockFrame, s.StillImage)
	assert.Equal(t, camera.HolderNone, f.arbiter.Holder(), "撮影後はデバイスを解放する")
	assert.True(t, f.driver.Opened()[0].Closed())

	require.NoError(t, w.SetOperatorName("  Jane "))
	require.NoError(t, w.Submit(ctx))

	s = w.Session()
	assert.Equal(t, StateSucceeded, s.State)
	assert.Equal(t, "p1", s.FaceID)
	assert.Equal(t, "ok", s.Message)

	calls := f.registrar.callList()
	require.Len(t, calls, 1)
	assert.Equal(t, "Jane", calls[0].name)
	assert.Equal(t, camera.MockFrame, calls[0].image)

	// 操作しなくてもIdleに戻り、すべてのフィールドが消える
	require.Eventually(t, func() bool { return w.Session().State == StateIdle }, time.Second, 5*time.Millisecond)
	s = w.Session()
	assert.Nil(t, s.StillImage)
	assert.Empty(t, s.OperatorName)
	assert.Nil(t, s.LastError)
	assert.Empty(t, s.FaceID)
	assert.Empty(t, s.Message)
	assert.NotEqual(t, first.ID, s.ID)
}

func TestWorkflow_SemanticFailureKeepsStill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.workflow
	f.registrar.result = &gateway.RegisterResult{Success: false, Message: "no face detected"}

	f.toCaptured(t)
	require.NoError(t, w.SetOperatorName("Jane"))

	err := w.Submit(ctx)
	var semErr *SemanticFailure
	require.ErrorAs(t, err, &semErr)

	s := w.Session()
	assert.Equal(t, StateFailed, s.State)
	require.NotNil(t, s.LastError)
	assert.Equal(t, KindRemoteSemanticFailure, s.LastError.Kind)
	assert.Equal(t, "no face detected", s.LastError.Message)
	assert.Equal(t, camera.MockFrame, s.StillImage)

	// 撮り直さずに再送できる
	require.NoError(t, w.Retry())
	assert.Equal(t, StateCaptured, w.Session().State)
	assert.Equal(t, "Jane", w.Session().OperatorName)

	f.registrar.mu.Lock()
	f.registrar.result = nil
	f.registrar.mu.Unlock()

	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, StateSucceeded, w.Session().State)
	assert.Len(t, f.driver.Opened(), 1, "再送でカメラは開かない")
}

func TestWorkflow_ServerErrorWithoutBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/face/register", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx := context.Background()
	backend := camera.NewMockBackend()
	arbiter := camera.NewArbiter(backend, camera.NewMockDriver())
	w := New(arbiter, gateway.New(srv.URL+"/api", time.Second), Options{})
	defer func() { _ = w.Leave(ctx) }()

	require.NoError(t, w.Enter(ctx))
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Capture(ctx))
	require.NoError(t, w.SetOperatorName("Jane"))

	err := w.Submit(ctx)
	require.Error(t, err)

	s := w.Session()
	assert.Equal(t, StateFailed, s.State)
	require.NotNil(t, s.LastError)
	assert.Equal(t, KindServerError, s.LastError.Kind)
	assert.Equal(t, gateway.MessageServerError, s.LastError.Message)
	assert.True(t, s.HasStill())
}

func TestWorkflow_TransportFailureKinds(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			"検証エラー一覧",
			&gateway.Error{Kind: gateway.KindServerError, StatusCode: 422, Validation: []gateway.ValidationIssue{{Loc: []any{"body", "name"}, Msg: "field required"}}, Detail: "ignored"},
			KindServerError,
			"name: field required",
		},
		{"サーバーのメッセージ", &gateway.Error{Kind: gateway.KindServerError, StatusCode: 400, Detail: "invalid image"}, KindServerError, "invalid image"},
		{"応答なし", &gateway.Error{Kind: gateway.KindNoResponse}, KindNoResponse, gateway.MessageNoResponse},
		{"送信できない", &gateway.Error{Kind: gateway.KindRequestConstruction}, KindRequestConstruction, gateway.MessageRequestConstruction},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.registrar.err = tc.err
			f.toCaptured(t)
			require.NoError(t, f.workflow.SetOperatorName("Jane"))

			require.Error(t, f.workflow.Submit(context.Background()))
			s := f.workflow.Session()
			assert.Equal(t, StateFailed, s.State)
			assert.Equal(t, tc.wantKind, s.LastError.Kind)
			assert.Equal(t, tc.wantMsg, s.LastError.Message)
		})
	}
}

func TestWorkflow_SubmitValidation(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			f := newFixture(t)
			f.toCaptured(t)
			require.NoError(t, f.workflow.SetOperatorName(name))

			err := f.workflow.Submit(context.Background())
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "name", vErr.Field)

			s := f.workflow.Session()
			assert.Equal(t, StateCaptured, s.State, "Capturedのまま")
			assert.Equal(t, KindValidation, s.LastError.Kind)
			assert.Equal(t, MessageNameRequired, s.LastError.Message)
			assert.Empty(t, f.registrar.callList(), "通信しない")

			// 名前を入力すると検証エラーは消える
			require.NoError(t, f.workflow.SetOperatorName("Jane"))
			assert.Nil(t, f.workflow.Session().LastError)
		})
	}
}

func TestWorkflow_StartFailure(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantKind ErrorKind
	}{
		{"権限なし", fmt.Errorf("open: %w", os.ErrPermission), KindAccessDenied},
		{"使用中", errors.New("device busy"), KindDeviceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.driver.SetOpenError(tc.err)

			require.NoError(t, f.workflow.Enter(ctx))
			require.Error(t, f.workflow.Start(ctx))

			s := f.workflow.Session()
			assert.Equal(t, StateIdle, s.State)
			require.NotNil(t, s.LastError)
			assert.Equal(t, tc.wantKind, s.LastError.Kind)
			assert.Equal(t, camera.HolderNone, f.arbiter.Holder())

			// 撮影はできない
			assert.ErrorIs(t, f.workflow.Capture(ctx), ErrInvalidTransition)
		})
	}
}

func TestWorkflow_EnterReleaseFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// 監視画面がリモートストリームを保持している
	_, err := f.arbiter.ClaimRemoteStream(ctx)
	require.NoError(t, err)
	f.backend.SetReleaseError(&gateway.Error{Kind: gateway.KindNoResponse, Op: "ReleaseCamera"})

	require.Error(t, f.workflow.Enter(ctx))
	assert.True(t, f.workflow.Entered())
	assert.Equal(t, KindNoResponse, f.workflow.Session().LastError.Kind)

	require.Error(t, f.workflow.Start(ctx))
	s := f.workflow.Session()
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, KindDeviceUnavailable, s.LastError.Kind)
	assert.Empty(t, f.driver.Opened())
}

func TestWorkflow_CaptureGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.workflow

	assert.ErrorIs(t, w.Start(ctx), ErrNotEntered)

	require.NoError(t, w.Enter(ctx))
	assert.ErrorIs(t, w.Capture(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, w.Submit(ctx), ErrInvalidTransition)

	handled, err := w.HandleKey(ctx, "Space")
	require.NoError(t, err)
	assert.False(t, handled, "Live以外ではショートカットを無視する")
	assert.Equal(t, StateIdle, w.Session().State)

	require.NoError(t, w.Start(ctx))

	handled, err = w.HandleKey(ctx, "Enter")
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, StateLive, w.Session().State)

	handled, err = w.HandleKey(ctx, " ")
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, StateCaptured, w.Session().State)

	handled, err = w.HandleKey(ctx, "space")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestWorkflow_CaptureSnapshotFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.workflow.Enter(ctx))
	require.NoError(t, f.workflow.Start(ctx))

	f.driver.Opened()[0].SetSnapshotError(errors.New("frame timeout"))
	require.Error(t, f.workflow.Capture(ctx))

	s := f.workflow.Session()
	assert.Equal(t, StateLive, s.State)
	assert.Equal(t, KindDeviceUnavailable, s.LastError.Kind)
	assert.Equal(t, camera.HolderLocalDevice, f.arbiter.Holder())
}

func TestWorkflow_Retake(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.toCaptured(t)
	require.NoError(t, f.workflow.SetOperatorName("Jane"))

	require.NoError(t, f.workflow.Retake(ctx))

	s := f.workflow.Session()
	assert.Equal(t, StateLive, s.State)
	assert.False(t, s.HasStill())
	assert.Empty(t, s.OperatorName)
	assert.Len(t, f.driver.Opened(), 2)
	assert.Equal(t, camera.HolderLocalDevice, f.arbiter.Holder())
}

func TestWorkflow_Restart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registrar.result = &gateway.RegisterResult{Success: false, Message: "no face detected"}
	f.toCaptured(t)
	require.NoError(t, f.workflow.SetOperatorName("Jane"))
	require.Error(t, f.workflow.Submit(ctx))

	before := f.workflow.Session().ID
	require.NoError(t, f.workflow.Restart())

	s := f.workflow.Session()
	assert.Equal(t, StateIdle, s.State)
	assert.False(t, s.HasStill())
	assert.Nil(t, s.LastError)
	assert.NotEqual(t, before, s.ID)

	assert.ErrorIs(t, f.workflow.Retry(), ErrInvalidTransition)
}

func TestWorkflow_ConcurrentSubmitIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registrar.block = make(chan struct{})
	f.toCaptured(t)
	require.NoError(t, f.workflow.SetOperatorName("Jane"))

	done := make(chan error, 1)
	go func() { done <- f.workflow.Submit(ctx) }()

	require.Eventually(t, func() bool { return f.workflow.Session().State == StateSubmitting }, time.Second, time.Millisecond)
	assert.True(t, f.workflow.Session().Busy)

	assert.ErrorIs(t, f.workflow.Submit(ctx), ErrBusy)
	assert.ErrorIs(t, f.workflow.Retake(ctx), ErrBusy)
	assert.ErrorIs(t, f.workflow.SetOperatorName("Bob"), ErrBusy)

	close(f.registrar.block)
	require.NoError(t, <-done)
	assert.Len(t, f.registrar.callList(), 1)
	assert.Equal(t, StateSucceeded, f.workflow.Session().State)
}

func TestWorkflow_LeaveDuringSubmitDiscardsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registrar.block = make(chan struct{})
	f.toCaptured(t)
	require.NoError(t, f.workflow.SetOperatorName("Jane"))

	done := make(chan error, 1)
	go func() { done <- f.workflow.Submit(ctx) }()
	require.Eventually(t, func() bool { return f.workflow.Session().State == StateSubmitting }, time.Second, time.Millisecond)

	require.NoError(t, f.workflow.Leave(ctx))
	assert.ErrorIs(t, <-done, ErrAborted)

	s := f.workflow.Session()
	assert.Equal(t, StateIdle, s.State)
	assert.Nil(t, s.LastError)
	assert.False(t, f.workflow.Entered())
	assert.Equal(t, camera.HolderRemoteStream, f.arbiter.Holder())
}

func TestWorkflow_LeaveDuringStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	release := f.driver.Hold()
	defer release()

	require.NoError(t, f.workflow.Enter(ctx))
	done := make(chan error, 1)
	go func() { done <- f.workflow.Start(ctx) }()
	require.Eventually(t, func() bool { return f.workflow.Session().State == StateStarting }, time.Second, time.Millisecond)

	require.NoError(t, f.workflow.Leave(ctx))
	assert.ErrorIs(t, <-done, ErrAborted)
	assert.Equal(t, camera.HolderRemoteStream, f.arbiter.Holder())
	assert.Empty(t, f.driver.Opened())
}

func TestWorkflow_LeaveReleasesLocalDevice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.workflow.Enter(ctx))
	require.NoError(t, f.workflow.Start(ctx))

	require.NoError(t, f.workflow.Leave(ctx))
	assert.True(t, f.driver.Opened()[0].Closed())
	assert.Equal(t, camera.HolderRemoteStream, f.arbiter.Holder())
	assert.Equal(t, []string{"release", "reopen"}, f.backend.Calls())

	// 2回目は何もしない
	require.NoError(t, f.workflow.Leave(ctx))
	assert.Equal(t, []string{"release", "reopen"}, f.backend.Calls())
}

func TestWorkflow_LeaveCancelsAutoReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.toCaptured(t)
	require.NoError(t, f.workflow.SetOperatorName("Jane"))
	require.NoError(t, f.workflow.Submit(ctx))

	require.NoError(t, f.workflow.Leave(ctx))
	require.NoError(t, f.workflow.Enter(ctx))
	id := f.workflow.Session().ID

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, id, f.workflow.Session().ID)
}

func TestWorkflow_Subscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var mu sync.Mutex
	var states []State
	unsubscribe := f.workflow.Subscribe(func(s Session) {
		mu.Lock()
		defer mu.Unlock()
		if len(states) == 0 || states[len(states)-1] != s.State {
			states = append(states, s.State)
		}
	})
	defer unsubscribe()

	f.toCaptured(t)
	require.NoError(t, f.workflow.SetOperatorName("Jane"))
	require.NoError(t, f.workflow.Submit(ctx))

	mu.Lock()
	defer mu.Unlock()
	// 自動でIdleに戻る通知が続くことがある
	require.GreaterOrEqual(t, len(states), 6)
	assert.Equal(t, []State{StateIdle, StateStarting, StateLive, StateCaptured, StateSubmitting, StateSucceeded}, states[:6])
}

// 任意の操作列で、名前か静止画が欠けたまま送信されることはない
func TestWorkflow_NeverSubmitsWithoutNameOrStill(t *testing.T) {
	ctx := context.Background()
	names := []string{"", " ", "Jane", "\t", "김 철수"}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		f := newFixture(t)
		if run%2 == 1 {
			f.registrar.result = &gateway.RegisterResult{Success: false, Message: "no face detected"}
		}
		require.NoError(t, f.workflow.Enter(ctx))

		for step := 0; step < 40; step++ {
			switch rng.Intn(8) {
			case 0:
				_ = f.workflow.Start(ctx)
			case 1:
				_ = f.workflow.Capture(ctx)
			case 2:
				_ = f.workflow.Retake(ctx)
			case 3:
				_ = f.workflow.Submit(ctx)
			case 4:
				_ = f.workflow.SetOperatorName(names[rng.Intn(len(names))])
			case 5:
				_ = f.workflow.Retry()
			case 6:
				_ = f.workflow.Restart()
			case 7:
				_, _ = f.workflow.HandleKey(ctx, "Space")
			}
		}

		for _, call := range f.registrar.callList() {
			assert.NotEmpty(t, strings.TrimSpace(call.name))
			assert.NotEmpty(t, call.image)
		}
		_ = f.workflow.Leave(ctx)
	}
}
