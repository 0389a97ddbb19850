package roster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"kaoban/internal/gateway"
)

// Action は確認が必要な操作
type Action string

const (
	ActionDelete Action = "delete"
	ActionMerge  Action = "merge"
)

// Confirmation は破壊的な操作の確認内容
// Prompt には対象の表示名が必ず含まれる
type Confirmation struct {
	Action Action
	Target string // 対象の表示名
	FaceID string // 削除の場合のみ
	Count  int    // 統合の場合のみ
	Prompt string
}

// Confirmer はオペレーターに確認を求める
type Confirmer interface {
	Confirm(ctx context.Context, c Confirmation) (bool, error)
}

// ConfirmFunc は関数を Confirmer として使う
type ConfirmFunc func(ctx context.Context, c Confirmation) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, c Confirmation) (bool, error) {
	return f(ctx, c)
}

// AlwaysConfirm はすべて承認する
var AlwaysConfirm = ConfirmFunc(func(context.Context, Confirmation) (bool, error) {
	return true, nil
})

func deleteConfirmation(rec gateway.FaceRecord) Confirmation {
	name := rec.DisplayName()
	return Confirmation{
		Action: ActionDelete,
		Target: name,
		FaceID: rec.FaceID,
		Prompt: fmt.Sprintf("「%s」を削除しますか？この操作は取り消せません。", name),
	}
}

func mergeConfirmation(g DuplicateGroup) Confirmation {
	return Confirmation{
		Action: ActionMerge,
		Target: g.Name,
		Count:  g.Count,
		Prompt: fmt.Sprintf("「%s」の顔データ%d件を1件に統合しますか？この操作は取り消せません。", g.Name, g.Count),
	}
}

// Alert は利用者に知らせる失敗
type Alert struct {
	Action  Action
	Target  string
	Message string
	Err     error
}

// Alerter は失敗を利用者に知らせる
type Alerter interface {
	Alert(a Alert)
}

// AlertFunc は関数を Alerter として使う
type AlertFunc func(a Alert)

func (f AlertFunc) Alert(a Alert) {
	f(a)
}

// LogAlerter は警告をログに出す
var LogAlerter = AlertFunc(func(a Alert) {
	log.Error().Str("component", "roster").Str("action", string(a.Action)).Str("target", a.Target).Err(a.Err).Msg(a.Message)
})
