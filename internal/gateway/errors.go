package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorKind は通信失敗の分類
type ErrorKind string

const (
	// KindServerError はサーバーが2xx以外のステータスを返したことを表す
	KindServerError ErrorKind = "ServerError"
	// KindNoResponse はリクエスト送信後に応答が得られなかったことを表す（タイムアウト含む）
	KindNoResponse ErrorKind = "NoResponse"
	// KindRequestConstruction はリクエストを組み立てられなかったことを表す
	KindRequestConstruction ErrorKind = "RequestConstructionError"
)

// 汎用メッセージ
const (
	MessageServerError         = "サーバーでエラーが発生しました。しばらくしてから再度お試しください。"
	MessageNoResponse          = "サーバーから応答がありません。バックエンドが起動しているか確認してください。"
	MessageRequestConstruction = "リクエストを送信できませんでした。"
)

// ValidationIssue はバックエンドの入力検証エラー1件
type ValidationIssue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// String は "field: message" 形式で返す
func (v ValidationIssue) String() string {
	var path []string
	for _, l := range v.Loc {
		s := fmt.Sprint(l)
		if s == "body" || s == "query" || s == "path" {
			continue
		}
		path = append(path, s)
	}
	if len(path) == 0 {
		return v.Msg
	}
	return strings.Join(path, ".") + ": " + v.Msg
}

// Error はバックエンド呼び出しの通信レベルの失敗
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Detail     string
	Validation []ValidationIssue
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerError:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message())
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message はオペレーターに表示するメッセージを返す
// 優先順位: 検証エラー一覧 > サーバーのメッセージ > 汎用メッセージ
func (e *Error) Message() string {
	if len(e.Validation) > 0 {
		msgs := make([]string, 0, len(e.Validation))
		for _, v := range e.Validation {
			msgs = append(msgs, v.String())
		}
		return strings.Join(msgs, "\n")
	}
	if strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	switch e.Kind {
	case KindServerError:
		return MessageServerError
	case KindNoResponse:
		return MessageNoResponse
	default:
		return MessageRequestConstruction
	}
}

// SemanticError はHTTP的には成功したがペイロードが失敗を示したことを表す
type SemanticError struct {
	Op      string
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// parseErrorBody はエラーレスポンスから検証エラーまたはメッセージを取り出す
// 解析できない場合は空のまま返す
func parseErrorBody(body []byte) (string, []ValidationIssue) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	if raw, ok := payload["detail"]; ok {
		var issues []ValidationIssue
		if err := json.Unmarshal(raw, &issues); err == nil && len(issues) > 0 {
			return "", issues
		}
		var detail string
		if err := json.Unmarshal(raw, &detail); err == nil && detail != "" {
			return detail, nil
		}
	}

	for _, key := range []string{"error", "message"} {
		if raw, ok := payload[key]; ok {
			var msg string
			if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
				return msg, nil
			}
		}
	}

	return "", nil
}
