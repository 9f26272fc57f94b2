package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const spectateInterval = 100 * time.Millisecond

// SpectatorConn 观战连接：只推送 JSON 快照，不接受输入
type SpectatorConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
}

func NewSpectatorConn(ws *websocket.Conn) *SpectatorConn {
	return &SpectatorConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, 8),
		done: make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *SpectatorConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃（下一帧快照会覆盖）
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *SpectatorConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// readPump 丢弃客户端消息，仅用于感知断开与处理 pong
func (c *SpectatorConn) readPump() {
	defer close(c.done)
	c.ws.SetReadLimit(1024)
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// 观战数据只读，允许所有来源
		return true
	},
}

func (s *Server) handleSpectate(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnw("spectator upgrade", "err", err)
		return
	}
	sc := NewSpectatorConn(ws)
	s.log.Infow("spectator joined", "id", sc.id, "remote", ws.RemoteAddr())

	go sc.writePump()
	go sc.readPump()
	go s.feedSpectator(sc)
}

// feedSpectator 按固定频率推送最新快照，直到连接断开
func (s *Server) feedSpectator(sc *SpectatorConn) {
	ticker := time.NewTicker(spectateInterval)
	defer ticker.Stop()
	var last int64 = -1
	for {
		select {
		case <-sc.done:
			s.log.Infow("spectator left", "id", sc.id)
			return
		case <-ticker.C:
			snap := s.snapshot.Load()
			if snap == nil || snap.Tick == last {
				continue
			}
			last = snap.Tick
			b, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			sc.Enqueue(b)
		}
	}
}
