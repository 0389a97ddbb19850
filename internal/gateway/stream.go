package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// maxFrameSize は1フレームの読み込み上限
const maxFrameSize = 4 << 20

// ErrFrameTooLarge は1フレームが上限を超えたときのエラー
var ErrFrameTooLarge = errors.New("フレームが大きすぎます")

// Stream はバックエンドのMJPEGストリーム
type Stream struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

// OpenStream はカメラストリームに接続する
func (c *Client) OpenStream(ctx context.Context) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamURL(), nil)
	if err != nil {
		return nil, &Error{Kind: KindRequestConstruction, Op: "OpenStream", Err: err}
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNoResponse, Op: "OpenStream", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
		detail, issues := parseErrorBody(data)
		return nil, &Error{Kind: KindServerError, Op: "OpenStream", StatusCode: resp.StatusCode, Detail: detail, Validation: issues}
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		_ = resp.Body.Close()
		return nil, &Error{
			Kind:       KindServerError,
			Op:         "OpenStream",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("MJPEGストリームではありません: %q", resp.Header.Get("Content-Type")),
		}
	}

	return &Stream{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// Next は次のフレームを返す
// ストリームが終了した場合は io.EOF 等のエラーを返す
func (s *Stream) Next() ([]byte, error) {
	for {
		part, err := s.reader.NextPart()
		if err != nil {
			return nil, err
		}

		frame, err := io.ReadAll(io.LimitReader(part, maxFrameSize+1))
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("フレームの読み込みに失敗: %w", err)
		}
		// 途中で切った画像は壊れているので渡さない
		if len(frame) > maxFrameSize {
			return nil, ErrFrameTooLarge
		}
		if len(frame) == 0 {
			continue
		}
		return frame, nil
	}
}

// Close はストリームを切断する
func (s *Stream) Close() error {
	return s.body.Close()
}
