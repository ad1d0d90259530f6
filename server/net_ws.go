package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	once   sync.Once
	mu     sync.RWMutex
	closed bool

	writeWait  time.Duration
	pingPeriod time.Duration
}

func NewClientConn(ws *websocket.Conn, queue int, writeWait, pingPeriod time.Duration) *ClientConn {
	return &ClientConn{
		ws:         ws,
		send:       make(chan []byte, queue),
		writeWait:  writeWait,
		pingPeriod: pingPeriod,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃新消息（防止阻塞分发）
		return false
	}
}

// Close 关闭发送队列与底层连接，可重复调用
func (c *ClientConn) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端帧并交给路由；退出时通知路由移除该连接
func (c *ClientConn) readPump(router *Router, id PlayerID, readLimit int64, pongWait time.Duration) {
	defer c.Close()
	defer router.Disconnect(id)
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				router.log.Debugw("websocket closed unexpectedly", "player", id, "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage {
			router.metrics.IncMalformed()
			continue
		}
		router.Dispatch(id, payload)
	}
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 浏览器客户端可能部署在其他域名，允许所有来源
			return true
		},
	}
}

// HandleWS WebSocket 接入：每个连接分配一个新的 uuid 作为玩家 id
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}

	id := PlayerID(uuid.NewString())
	client := NewClientConn(ws, s.cfg.SendQueueSize, s.cfg.WriteWait, s.cfg.PingPeriod())
	s.Router.Connect(id, client)

	go client.writePump()
	go client.readPump(s.Router, id, s.cfg.ReadLimit, s.cfg.PongWait)
}
