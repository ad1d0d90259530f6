package server

import "github.com/sasha-s/go-deadlock"

// Conn 出站方向的连接抽象；Enqueue 不阻塞，队列满返回 false
type Conn interface {
	Enqueue(b []byte) bool
	Close()
}

// Hub 维护所有打开的连接（无论是否已 player_info），负责三种扇出
type Hub struct {
	mu      deadlock.RWMutex
	conns   map[PlayerID]Conn
	metrics *Metrics
}

func NewHub(metrics *Metrics) *Hub {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Hub{conns: make(map[PlayerID]Conn), metrics: metrics}
}

func (h *Hub) Add(id PlayerID, c Conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
	h.metrics.IncConnections()
}

// Remove 移除连接但不关闭，关闭由读写泵负责
func (h *Hub) Remove(id PlayerID) (Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
		h.metrics.DecConnections()
	}
	return c, ok
}

// Send 单播
func (h *Hub) Send(id PlayerID, b []byte) bool {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.enqueue(c, b)
}

// Broadcast 排除发送者的广播
func (h *Hub) Broadcast(b []byte, except PlayerID) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.conns {
		if id == except {
			continue
		}
		h.enqueue(c, b)
	}
}

// BroadcastAll 包含发送者的广播
func (h *Hub) BroadcastAll(b []byte) {
	h.Broadcast(b, "")
}

func (h *Hub) enqueue(c Conn, b []byte) bool {
	if c.Enqueue(b) {
		h.metrics.IncSent()
		return true
	}
	h.metrics.IncSendDropped()
	return false
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll 关闭全部连接（服务退出）
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[PlayerID]Conn)
	h.mu.Unlock()
	for _, c := range conns {
		h.metrics.DecConnections()
		c.Close()
	}
}
