package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kaoban/internal/config"
)

const (
	// DefaultTimeout はリクエストタイムアウトの既定値
	DefaultTimeout = 10 * time.Second

	// maxBodySize はレスポンスボディの読み込み上限
	maxBodySize = 8 << 20

	imageField = "image"
	nameField  = "name"
)

var tracer = otel.Tracer("kaoban/internal/gateway")

// Client は顔認識バックエンドのAPIクライアント
// 設定以外の内部状態は持たない
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

// New は新しいClientを作成する
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// ストリームは終わりがないため、レスポンスヘッダーの待ち時間のみ制限する
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = timeout

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{Transport: streamTransport},
	}
}

// NewFromConfig は設定からClientを作成する
func NewFromConfig(cfg config.BackendConfig) *Client {
	return New(cfg.BaseURL, cfg.Timeout)
}

// BaseURL は接続先のベースURLを返す
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamURL はカメラストリームのURLを返す
func (c *Client) StreamURL() string {
	return c.baseURL + "/camera/stream"
}

// Health はバックエンドのヘルスチェックを行う
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, "Health", http.MethodGet, "/health", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFaces は登録済みの顔データ一覧を取得する
func (c *Client) ListFaces(ctx context.Context) ([]FaceRecord, error) {
	var out faceListResponse
	if err := c.do(ctx, "ListFaces", http.MethodGet, "/faces/list", nil, "", &out); err != nil {
		return nil, err
	}
	if out.Faces == nil {
		return []FaceRecord{}, nil
	}
	return out.Faces, nil
}

// RegisterFace は顔を新規登録する
// 戻り値の Success が false でもエラーにはならない
func (c *Client) RegisterFace(ctx context.Context, name string, image []byte) (*RegisterResult, error) {
	body, contentType, err := buildMultipart(map[string]string{nameField: name}, image)
	if err != nil {
		return nil, &Error{Kind: KindRequestConstruction, Op: "RegisterFace", Err: err}
	}

	var out RegisterResult
	if err := c.do(ctx, "RegisterFace", http.MethodPost, "/face/register", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFace は顔データを削除する
// この操作のみ成否はHTTPステータスで判定する
func (c *Client) DeleteFace(ctx context.Context, faceID string) error {
	return c.do(ctx, "DeleteFace", http.MethodDelete, "/face/"+url.PathEscape(faceID), nil, "", nil)
}

// AddSample は既存の顔データにサンプル画像を追加する
func (c *Client) AddSample(ctx context.Context, faceID string, image []byte) (*SampleResult, error) {
	body, contentType, err := buildMultipart(nil, image)
	if err != nil {
		return nil, &Error{Kind: KindRequestConstruction, Op: "AddSample", Err: err}
	}

	var out SampleResult
	path := "/face/" + url.PathEscape(faceID) + "/add-sample"
	if err := c.do(ctx, "AddSample", http.MethodPost, path, body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MergeByName は同じ名前の顔データを1件に統合する
func (c *Client) MergeByName(ctx context.Context, name string) (*MergeResult, error) {
	var out MergeResult
	path := "/faces/merge/" + url.PathEscape(name)
	if err := c.do(ctx, "MergeByName", http.MethodPost, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CameraStats はライブストリームの統計を取得する
func (c *Client) CameraStats(ctx context.Context) (StreamStats, error) {
	var out StreamStats
	if err := c.do(ctx, "CameraStats", http.MethodGet, "/camera/stats", nil, "", &out); err != nil {
		return StreamStats{}, err
	}
	return out, nil
}

// ReleaseCamera はバックエンドにカメラの解放を指示する
func (c *Client) ReleaseCamera(ctx context.Context) error {
	return c.do(ctx, "ReleaseCamera", http.MethodPost, "/camera/release", nil, "", nil)
}

// ReopenCamera はバックエンドにカメラの再オープンを指示する
func (c *Client) ReopenCamera(ctx context.Context) error {
	return c.do(ctx, "ReopenCamera", http.MethodPost, "/camera/reopen", nil, "", nil)
}

// do はリクエストを送信し、2xxの場合のみ out にデコードする
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) (err error) {
	ctx, span := tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op)
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindRequestConstruction, Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNoResponse, Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Kind: KindNoResponse, Op: op, Err: fmt.Errorf("レスポンスの読み込みに失敗: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, issues := parseErrorBody(data)
		return &Error{
			Kind:       KindServerError,
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     detail,
			Validation: issues,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Kind:       KindServerError,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("レスポンスの解析に失敗: %w", err),
		}
	}
	return nil
}

// buildMultipart は画像とフィールドをmultipart/form-dataに組み立てる
func buildMultipart(fields map[string]string, image []byte) (*bytes.Buffer, string, error) {
	if len(image) == 0 {
		return nil, "", errors.New("画像が空です")
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("フィールド %s の書き込みに失敗: %w", k, err)
		}
	}

	mimeType := http.DetectContentType(image)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, imageField, "capture"+extensionFor(mimeType)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("画像パートの作成に失敗: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("画像の書き込みに失敗: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipartの終端に失敗: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
