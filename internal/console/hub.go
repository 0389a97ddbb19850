package console

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"kaoban/internal/roster"
)

// EventType はWebSocketで配信するイベントの種類
type EventType string

const (
	EventStats   EventType = "stats"   // 統計の更新
	EventSession EventType = "session" // 登録セッションの変化
	EventStream  EventType = "stream"  // 監視ストリームの状態
	EventAlert   EventType = "alert"   // 削除・統合の失敗
	EventView    EventType = "view"    // 画面の切り替え
)

// Event はクライアントに送るメッセージ
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Hub は接続中のWebSocketクライアントにイベントを配信する
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub は新しいHubを作成する
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // ローカルネットワーク内のコンソールなので全て許可
			},
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeWS は接続をWebSocketに切り替えて登録する
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		return conn.Close()
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("component", "console").Str("remote", r.RemoteAddr).Int("clients", count).Msg("WebSocketクライアントが接続しました")

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Broadcast は全クライアントにイベントを送る
// 送信が追いつかないクライアントは切断する
func (h *Hub) Broadcast(t EventType, data any) {
	payload, err := json.Marshal(Event{Type: t, Data: data, Timestamp: time.Now()})
	if err != nil {
		log.Error().Str("component", "console").Err(err).Str("event", string(t)).Msg("イベントのエンコードに失敗しました")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Warn().Str("component", "console").Msg("送信が追いつかないWebSocketクライアントを切断します")
			h.removeLocked(c)
		}
	}
}

// Alerter は削除・統合の失敗をログとWebSocketに流す
func (h *Hub) Alerter() roster.Alerter {
	return roster.AlertFunc(func(a roster.Alert) {
		roster.LogAlerter.Alert(a)
		h.Broadcast(EventAlert, convertAlert(a))
	})
}

// Clients は接続中のクライアント数を返す
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close は全クライアントを切断する
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump はクライアントからのメッセージを読み捨て、切断を検知する
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Str("component", "console").Err(err).Msg("WebSocketの読み込みエラー")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
