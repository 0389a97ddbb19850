// Package console は、オペレーターコンソールのHTTPサーバーを管理します。
//
// このパッケージは、監視・登録・一覧の3画面をHTTP APIとして公開し、
// 画面の切り替えに合わせてカメラと統計取得を開始・停止します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 画面の切り替え(前の画面を必ず離れてから次の画面に入る)
//   - 監視ストリームのMJPEG中継
//   - WebSocketによる統計・セッション・警告の配信
//   - 静的ファイル(HTML/JS)の配信
//
// 仕様:
//   - ルーティングは internal/generated の ServerInterface を使用
//   - /api/* のリクエストはOpenAPI定義で検証
//   - グレースフルシャットダウン時にローカルデバイスを解放
package console
