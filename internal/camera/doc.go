// Package camera 物理カメラの排他利用を調停する
//
// # 責務
// - カメラの保持者(リモートストリーム / ローカルデバイス)の管理
// - バックエンドへのカメラ解放・再オープン指示
// - ローカル撮影デバイスのオープンと停止
// - V4L2デバイスの事前チェックと一覧取得
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 監視画面と登録画面の間でカメラを受け渡したい
// - ローカルデバイスから静止画を1枚取得したい
// - 利用可能なカメラデバイスを確認したい
//
// # 仕様
// - Arbiter: Lease を唯一保持し、取得・解放を直列化する
// - 解放してから取得するのは呼び出し側の責任で、Arbiter は自動で解放しない
// - 同じ保持者による再取得は冪等
// - ReleaseRemoteStream は保持者がいなくてもバックエンドに解放を指示する
// - MediaDevicesDriver: pion/mediadevices 経由で映像トラックを開く
// - FFmpegDriver: ffmpeg で1フレームずつJPEGを取得する
// - DriverFactory: 設定のドライバー名から Driver を作る
//
// # 前提要件
//   - ffmpeg: FFmpegDriver で使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - v4l-utils: デバイス名の取得に使用(任意)
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
