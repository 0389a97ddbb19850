package roster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaoban/internal/gateway"
)

type fakeClient struct {
	mu        sync.Mutex
	faces     []gateway.FaceRecord
	listErr   error
	deleteErr error
	sample    *gateway.SampleResult
	sampleErr error
	merge     *gateway.MergeResult
	mergeErr  error

	listCalls int
	deleted   []string
	merged    []string
}

func (f *fakeClient) ListFaces(context.Context) ([]gateway.FaceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]gateway.FaceRecord(nil), f.faces...), nil
}

func (f *fakeClient) DeleteFace(_ context.Context, faceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, faceID)
	return f.deleteErr
}

func (f *fakeClient) AddSample(context.Context, string, []byte) (*gateway.SampleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sample, f.sampleErr
}

func (f *fakeClient) MergeByName(_ context.Context, name string) (*gateway.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, name)
	return f.merge, f.mergeErr
}

type recorder struct {
	confirmations []Confirmation
	alerts        []Alert
	answer        bool
}

func (r *recorder) Confirm(_ context.Context, c Confirmation) (bool, error) {
	r.confirmations = append(r.confirmations, c)
	return r.answer, nil
}

func (r *recorder) Alert(a Alert) {
	r.alerts = append(r.alerts, a)
}

func faces(pairs ...string) []gateway.FaceRecord {
	var out []gateway.FaceRecord
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, gateway.FaceRecord{FaceID: pairs[i], Name: pairs[i+1]})
	}
	return out
}

func newLoaded(t *testing.T, client *fakeClient) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{answer: true}
	m := NewManager(client, rec)
	_, err := m.List(context.Background())
	require.NoError(t, err)
	return m, rec
}

func TestDuplicateNames(t *testing.T) {
	tests := []struct {
		name  string
		faces []gateway.FaceRecord
		want  []string
	}{
		{"空", nil, []string{}},
		{"重複なし", faces("1", "A", "2", "B"), []string{}},
		{"A,B,A", faces("1", "A", "2", "B", "3", "A"), []string{"A"}},
		{"複数の重複", faces("1", "B", "2", "A", "3", "B", "4", "A", "5", "C"), []string{"B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DuplicateNames(tt.faces))
		})
	}
}

func TestDuplicates_Groups(t *testing.T) {
	groups := Duplicates(faces("1", "A", "2", "B", "3", "A", "4", "A"))
	require.Len(t, groups, 1)
	assert.Equal(t, DuplicateGroup{Name: "A", Count: 3, FaceIDs: []string{"1", "3", "4"}}, groups[0])

	assert.True(t, IsDuplicate(faces("1", "A", "2", "A"), "A"))
	assert.False(t, IsDuplicate(faces("1", "A", "2", "B"), "A"))
}

func TestManager_ListFailureKeepsCache(t *testing.T) {
	client := &fakeClient{faces: faces("1", "A")}
	m, _ := newLoaded(t, client)

	client.listErr = errors.New("接続できません")
	_, err := m.List(context.Background())
	require.Error(t, err)

	assert.Equal(t, faces("1", "A"), m.Faces())
	assert.True(t, m.Loaded())
}

func TestManager_RemoveSuccess(t *testing.T) {
	client := &fakeClient{faces: faces("1", "A", "2", "B")}
	m, rec := newLoaded(t, client)

	require.NoError(t, m.Remove(context.Background(), "1", rec))

	assert.Equal(t, []string{"1"}, client.deleted)
	assert.Equal(t, faces("2", "B"), m.Faces())
	require.Len(t, rec.confirmations, 1)
	assert.Equal(t, ActionDelete, rec.confirmations[0].Action)
	assert.Contains(t, rec.confirmations[0].Prompt, "A")
	assert.Empty(t, rec.alerts)
}

func TestManager_RemoveFailureKeepsCacheAndAlerts(t *testing.T) {
	client := &fakeClient{
		faces:     faces("1", "A", "2", "B"),
		deleteErr: &gateway.Error{Kind: gateway.KindServerError, Op: "DeleteFace", StatusCode: 500},
	}
	m, rec := newLoaded(t, client)

	err := m.Remove(context.Background(), "1", rec)
	require.Error(t, err)

	assert.Equal(t, faces("1", "A", "2", "B"), m.Faces())
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, ActionDelete, rec.alerts[0].Action)
	assert.Equal(t, "A", rec.alerts[0].Target)
	assert.Equal(t, gateway.MessageServerError, rec.alerts[0].Message)
}

func TestManager_RemoveCancelled(t *testing.T) {
	client := &fakeClient{faces: faces("1", "A")}
	m, rec := newLoaded(t, client)
	rec.answer = false

	err := m.Remove(context.Background(), "1", rec)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, client.deleted)
	assert.Len(t, m.Faces(), 1)
}

func TestManager_RemoveUnknown(t *testing.T) {
	client := &fakeClient{faces: faces("1", "A")}
	m, rec := newLoaded(t, client)

	err := m.Remove(context.Background(), "9", rec)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, rec.confirmations)
}

func TestManager_RemoveUsesFaceIDWhenNameBlank(t *testing.T) {
	client := &fakeClient{faces: faces("1", "")}
	m, rec := newLoaded(t, client)

	require.NoError(t, m.Remove(context.Background(), "1", rec))
	require.Len(t, rec.confirmations, 1)
	assert.Contains(t, rec.confirmations[0].Prompt, "1")
}

func TestManager_AddSample(t *testing.T) {
	t.Run("成功すると再取得する", func(t *testing.T) {
		client := &fakeClient{
			faces:  faces("1", "A"),
			sample: &gateway.SampleResult{Success: true, FaceID: "1", SampleCount: 2},
		}
		m, _ := newLoaded(t, client)
		client.faces = []gateway.FaceRecord{{FaceID: "1", Name: "A", SampleCount: 2}}

		res, err := m.AddSample(context.Background(), "1", []byte("jpeg"))
		require.NoError(t, err)
		assert.Equal(t, uint(2), res.SampleCount)
		assert.Equal(t, 2, client.listCalls)
		assert.Equal(t, uint(2), m.Faces()[0].SampleCount)
	})

	t.Run("success=falseは意味的な失敗", func(t *testing.T) {
		client := &fakeClient{
			faces:  faces("1", "A"),
			sample: &gateway.SampleResult{Success: false, Message: "顔が検出されませんでした"},
		}
		m, _ := newLoaded(t, client)

		_, err := m.AddSample(context.Background(), "1", []byte("jpeg"))
		var semErr *gateway.SemanticError
		require.ErrorAs(t, err, &semErr)
		assert.Equal(t, "顔が検出されませんでした", semErr.Message)
		assert.Equal(t, 1, client.listCalls)
	})

	t.Run("通信失敗", func(t *testing.T) {
		client := &fakeClient{
			faces:     faces("1", "A"),
			sampleErr: &gateway.Error{Kind: gateway.KindNoResponse, Op: "AddSample"},
		}
		m, _ := newLoaded(t, client)

		_, err := m.AddSample(context.Background(), "1", []byte("jpeg"))
		assert.Equal(t, gateway.MessageNoResponse, Message(err))
		assert.Equal(t, 1, client.listCalls)
	})
}

func TestManager_MergeByName(t *testing.T) {
	t.Run("重複していない名前は拒否する", func(t *testing.T) {
		client := &fakeClient{faces: faces("1", "A", "2", "B")}
		m, rec := newLoaded(t, client)

		_, err := m.MergeByName(context.Background(), "A", rec)
		assert.ErrorIs(t, err, ErrNotDuplicate)
		assert.Empty(t, rec.confirmations)
		assert.Empty(t, client.merged)
	})

	t.Run("一覧を取得する前は拒否する", func(t *testing.T) {
		client := &fakeClient{faces: faces("1", "A", "2", "A")}
		m := NewManager(client, nil)
		rec := &recorder{answer: true}

		_, err := m.MergeByName(context.Background(), "A", rec)
		assert.ErrorIs(t, err, ErrNotDuplicate)
		assert.Empty(t, rec.confirmations)
		assert.Empty(t, client.merged)
	})

	t.Run("確認の上で統合して再取得する", func(t *testing.T) {
		client := &fakeClient{
			faces: faces("1", "A", "2", "B", "3", "A"),
			merge: &gateway.MergeResult{Success: true, Name: "A", MergedFaceID: "1", MergedCount: 2},
		}
		m, rec := newLoaded(t, client)
		client.faces = faces("1", "A", "2", "B")

		res, err := m.MergeByName(context.Background(), "A", rec)
		require.NoError(t, err)
		assert.Equal(t, 2, res.MergedCount)
		assert.Equal(t, []string{"A"}, client.merged)

		require.Len(t, rec.confirmations, 1)
		assert.Equal(t, ActionMerge, rec.confirmations[0].Action)
		assert.Equal(t, 2, rec.confirmations[0].Count)
		assert.Contains(t, rec.confirmations[0].Prompt, "A")

		assert.Empty(t, m.Duplicates())
	})

	t.Run("取り消し", func(t *testing.T) {
		client := &fakeClient{faces: faces("1", "A", "2", "A")}
		m, rec := newLoaded(t, client)
		rec.answer = false

		_, err := m.MergeByName(context.Background(), "A", rec)
		assert.ErrorIs(t, err, ErrCancelled)
		assert.Empty(t, client.merged)
	})

	t.Run("失敗すると警告する", func(t *testing.T) {
		client := &fakeClient{
			faces: faces("1", "A", "2", "A"),
			merge: &gateway.MergeResult{Success: false, Message: "統合に失敗しました"},
		}
		m, rec := newLoaded(t, client)

		_, err := m.MergeByName(context.Background(), "A", rec)
		require.Error(t, err)
		require.Len(t, rec.alerts, 1)
		assert.Equal(t, "統合に失敗しました", rec.alerts[0].Message)
		assert.Len(t, m.Faces(), 2)
	})
}

func TestManager_NilConfirmerCancels(t *testing.T) {
	client := &fakeClient{faces: faces("1", "A")}
	m := NewManager(client, nil)
	_, err := m.List(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Remove(context.Background(), "1", nil), ErrCancelled)
	assert.Empty(t, client.deleted)
}
