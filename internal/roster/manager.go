// Package roster は登録済みの顔データ一覧を管理する
//
// 一覧はバックエンドから読み込んだキャッシュとして保持し、
// 削除・サンプル追加・統合の後に更新する。
// 削除と統合は対象の名前を含む確認を経てから実行する。
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"kaoban/internal/gateway"
)

// Client は顔データのAPI
// gateway.Client が実装する
type Client interface {
	ListFaces(ctx context.Context) ([]gateway.FaceRecord, error)
	DeleteFace(ctx context.Context, faceID string) error
	AddSample(ctx context.Context, faceID string, image []byte) (*gateway.SampleResult, error)
	MergeByName(ctx context.Context, name string) (*gateway.MergeResult, error)
}

var (
	ErrNotFound     = errors.New("顔データが見つかりません")
	ErrCancelled    = errors.New("操作は取り消されました")
	ErrNotDuplicate = errors.New("同じ名前の顔データが2件以上ありません")
)

// Manager は顔データ一覧のキャッシュと変更操作を扱う
type Manager struct {
	client  Client
	alerter Alerter

	mu     sync.RWMutex
	faces  []gateway.FaceRecord
	loaded bool
}

// NewManager は新しいManagerを作成する
// alerter が nil の場合は警告をログに出すだけになる
func NewManager(client Client, alerter Alerter) *Manager {
	if alerter == nil {
		alerter = LogAlerter
	}
	return &Manager{
		client:  client,
		alerter: alerter,
	}
}

// List はバックエンドから一覧を取得してキャッシュを置き換える
// 失敗した場合はキャッシュを変更しない
func (m *Manager) List(ctx context.Context) ([]gateway.FaceRecord, error) {
	faces, err := m.client.ListFaces(ctx)
	if err != nil {
		return nil, err
	}
	if faces == nil {
		faces = []gateway.FaceRecord{}
	}

	m.mu.Lock()
	m.faces = faces
	m.loaded = true
	m.mu.Unlock()

	return cloneFaces(faces), nil
}

// Faces はキャッシュしている一覧を返す
func (m *Manager) Faces() []gateway.FaceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneFaces(m.faces)
}

// Loaded は一度でも一覧を取得したか返す
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Find はキャッシュから顔データを探す
func (m *Manager) Find(faceID string) (gateway.FaceRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.faces {
		if f.FaceID == faceID {
			return f, true
		}
	}
	return gateway.FaceRecord{}, false
}

// Duplicates は現在のキャッシュから重複している名前を求める
func (m *Manager) Duplicates() []DuplicateGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Duplicates(m.faces)
}

// Remove は確認の上で顔データを削除する
// 成功した場合はキャッシュからも取り除き、失敗した場合はキャッシュを変えずに警告を出す
func (m *Manager) Remove(ctx context.Context, faceID string, confirmer Confirmer) error {
	rec, ok := m.Find(faceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, faceID)
	}

	c := deleteConfirmation(rec)
	if err := confirm(ctx, confirmer, c); err != nil {
		return err
	}

	if err := m.client.DeleteFace(ctx, faceID); err != nil {
		m.alert(ActionDelete, c.Target, err)
		return err
	}

	m.mu.Lock()
	for i, f := range m.faces {
		if f.FaceID == faceID {
			m.faces = append(m.faces[:i:i], m.faces[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	log.Info().Str("component", "roster").Str("face_id", faceID).Str("name", rec.Name).Msg("顔データを削除しました")
	return nil
}

// AddSample は既存の顔データにサンプル画像を追加する
// success=false の場合は gateway.SemanticError を返す。成功した場合のみ一覧を取得し直す
func (m *Manager) AddSample(ctx context.Context, faceID string, image []byte) (*gateway.SampleResult, error) {
	res, err := m.client.AddSample(ctx, faceID, image)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return res, &gateway.SemanticError{Op: "AddSample", Message: res.Message}
	}

	m.refresh(ctx)
	return res, nil
}

// MergeByName は同じ名前の顔データを確認の上で1件に統合する
// キャッシュ内で name が重複していない場合は ErrNotDuplicate を返す
func (m *Manager) MergeByName(ctx context.Context, name string, confirmer Confirmer) (*gateway.MergeResult, error) {
	faces := m.Faces()
	if !IsDuplicate(faces, name) {
		return nil, fmt.Errorf("%w: %s", ErrNotDuplicate, name)
	}

	var group DuplicateGroup
	for _, g := range Duplicates(faces) {
		if g.Name == name {
			group = g
			break
		}
	}

	c := mergeConfirmation(group)
	if err := confirm(ctx, confirmer, c); err != nil {
		return nil, err
	}

	res, err := m.client.MergeByName(ctx, name)
	if err != nil {
		m.alert(ActionMerge, name, err)
		return nil, err
	}
	if !res.Success {
		semErr := &gateway.SemanticError{Op: "MergeByName", Message: res.Message}
		m.alert(ActionMerge, name, semErr)
		return res, semErr
	}

	log.Info().Str("component", "roster").Str("name", name).Int("merged_count", res.MergedCount).Msg("顔データを統合しました")
	m.refresh(ctx)
	return res, nil
}

// confirm は承認されなかった場合に ErrCancelled を返す
func confirm(ctx context.Context, confirmer Confirmer, c Confirmation) error {
	if confirmer == nil {
		return ErrCancelled
	}
	ok, err := confirmer.Confirm(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

func (m *Manager) alert(action Action, target string, err error) {
	m.alerter.Alert(Alert{
		Action:  action,
		Target:  target,
		Message: Message(err),
		Err:     err,
	})
}

// refresh は一覧を取得し直す
// 失敗してもログに残すだけにする
func (m *Manager) refresh(ctx context.Context) {
	if _, err := m.List(ctx); err != nil {
		log.Warn().Str("component", "roster").Err(err).Msg("一覧の再取得に失敗しました")
	}
}

// Message はオペレーター向けのメッセージを返す
func Message(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Message()
	}
	var semErr *gateway.SemanticError
	if errors.As(err, &semErr) {
		return semErr.Message
	}
	return err.Error()
}

func cloneFaces(faces []gateway.FaceRecord) []gateway.FaceRecord {
	return append(make([]gateway.FaceRecord, 0, len(faces)), faces...)
}
