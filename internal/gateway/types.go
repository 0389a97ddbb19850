package gateway

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// FaceRecord はバックエンドに登録された顔データ
type FaceRecord struct {
	FaceID           string     `json:"face_id"`
	Name             string     `json:"name"`
	SampleCount      uint       `json:"sample_count"`
	RecognitionCount uint       `json:"recognition_count"`
	RegisteredAt     Timestamp  `json:"registered_at"`
	LastSeen         *Timestamp `json:"last_seen,omitempty"`
	ImagePath        string     `json:"image_path,omitempty"`
}

// DisplayName は確認ダイアログ等で表示する名前を返す
func (r FaceRecord) DisplayName() string {
	if strings.TrimSpace(r.Name) == "" {
		return r.FaceID
	}
	return r.Name
}

// faceListResponse は GET /faces/list のレスポンス
type faceListResponse struct {
	Total int          `json:"total"`
	Faces []FaceRecord `json:"faces"`
}

// RegisterResult は顔登録の結果
// HTTPステータスではなく Success が成否を決める
type RegisterResult struct {
	Success bool   `json:"success"`
	FaceID  string `json:"face_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// SampleResult は追加サンプル登録の結果
type SampleResult struct {
	Success     bool   `json:"success"`
	FaceID      string `json:"face_id"`
	SampleCount uint   `json:"sample_count"`
	Message     string `json:"message"`
}

// MergeResult は同名の顔データ統合の結果
type MergeResult struct {
	Success      bool   `json:"success"`
	MergedFaceID string `json:"merged_face_id,omitempty"`
	Name         string `json:"name"`
	MergedCount  int    `json:"merged_count"`
	Message      string `json:"message"`
}

// StreamStats はライブストリームの統計値
type StreamStats struct {
	FacesDetected   uint      `json:"faces_detected"`
	FacesRecognized uint      `json:"faces_recognized"`
	FPS             float64   `json:"fps"`
	LastUpdated     Timestamp `json:"last_updated"`
}

// HealthStatus はバックエンドのヘルスチェック結果
type HealthStatus struct {
	Status       string         `json:"status"`
	ModelInfo    map[string]any `json:"model_info"`
	DatabaseInfo map[string]any `json:"database_info"`
}

// Timestamp はタイムゾーンなしのISO8601にも対応した時刻
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON はバックエンドが返す複数の時刻形式を解釈する
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("時刻の解析に失敗: %q", s)
}

// MarshalJSON はRFC3339形式で出力する
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}
