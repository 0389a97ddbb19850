package console

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"kaoban/internal/monitor"
)

const mjpegBoundary = "frame"

// streamMJPEG は監視ストリームのフレームをMJPEGとして中継する
func (h *ConsoleHandler) streamMJPEG(c *gin.Context) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	// レスポンスライターを取得
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// フレームチャンネルを取得
	frameChan, unsubscribe := h.monitor.Subscribe()
	defer unsubscribe()

	// 監視画面が閉じられたら配信を終える
	stopped := make(chan struct{})
	var once sync.Once
	unwatch := h.monitor.OnStatus(func(s monitor.Status) {
		if s.State == monitor.StateIdle || s.State == monitor.StateOffline {
			once.Do(func() { close(stopped) })
		}
	})
	defer unwatch()

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	c.Status(http.StatusOK)

	// 最新のフレームがあれば先に送る
	if latest := h.monitor.Latest(); latest != nil {
		if err := writeFrame(writer, latest); err != nil {
			return
		}
		flusher.Flush()
	}

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			// クライアントが切断された
			return

		case <-stopped:
			return

		case frame, ok := <-frameChan:
			if !ok {
				return
			}

			if err := writeFrame(writer, frame); err != nil {
				return
			}

			// バッファをフラッシュ
			flusher.Flush()
		}
	}
}

// writeFrame はMJPEGのパートを1つ書き込む
func writeFrame(w http.ResponseWriter, frame []byte) error {
	header := "--" + mjpegBoundary + "\r\n" +
		"Content-Type: image/jpeg\r\n" +
		"Content-Length: " + strconv.Itoa(len(frame)) + "\r\n\r\n"
	if _, err := w.Write([]byte(header)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
