package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skirmish/logging"
	"skirmish/protocol"
)

// ErrReconnectFailed 重连次数用尽
var ErrReconnectFailed = errors.New("reconnect attempts exhausted")

const sendQueueSize = 64

// Client 连接中继服务的无界面客户端：传输协程负责收发与重连，
// 世界状态只在 Loop 协程内修改
type Client struct {
	cfg    Config
	log    *zap.SugaredLogger
	dialer *websocket.Dialer

	World *World
	loop  *Loop

	mu   sync.Mutex
	send chan []byte // 当前连接的发送队列，未连接时为 nil

	status   atomic.Int32
	selfID   atomic.Value
	onStatus func(Status)

	quit     chan struct{}
	quitOnce sync.Once
}

// New 构造客户端；onStatus 可为空
func New(cfg Config, log *zap.SugaredLogger, onStatus func(Status)) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	c := &Client{
		cfg:      cfg,
		log:      log,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		onStatus: onStatus,
		quit:     make(chan struct{}),
	}
	c.selfID.Store("")
	c.World = NewWorld(cfg, log, c)
	c.World.OnIdentity = func(id string) { c.selfID.Store(id) }
	c.loop = NewLoop(c.World, cfg.TickRate, cfg.InboxSize)
	return c, nil
}

func (c *Client) Status() Status { return Status(c.status.Load()) }

// ID 服务端分配的 id，尚未分配时为空
func (c *Client) ID() string { return c.selfID.Load().(string) }

func (c *Client) setStatus(s Status) {
	if Status(c.status.Swap(int32(s))) == s {
		return
	}
	c.log.Infow("connection status", "status", s.String())
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

// Do 在循环协程中访问世界状态并等待完成
func (c *Client) Do(ctx context.Context, fn func(*World)) error {
	return c.loop.Do(ctx, fn)
}

// Emit 编码并入队；未连接或队列满时丢弃
func (c *Client) Emit(kind string, payload any) bool {
	b, err := protocol.Encode(kind, payload)
	if err != nil {
		c.log.Errorw("encode outbound message", "type", kind, "err", err)
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send == nil {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 通知服务端离开并断开；Run 随后返回
func (c *Client) Close() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Run 连接并运行直到 ctx 结束、Close 被调用或重连次数用尽
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.loop.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	c.setStatus(StatusConnecting)
	attempts := 0
	for {
		ws, err := c.dial(ctx)
		if err == nil {
			attempts = 0
			c.setStatus(StatusConnected)
			err = c.serve(ctx, ws)
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warnw("connection lost", "attempt", attempts, "err", err)

		if attempts >= c.cfg.MaxReconnectAttempts {
			c.setStatus(StatusFailed)
			return fmt.Errorf("%w after %d attempts: %v", ErrReconnectFailed, attempts, err)
		}
		attempts++
		c.setStatus(StatusReconnecting)
		c.selfID.Store("")
		if err := c.loop.Post(ctx, (*World).Reset); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	ws, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return ws, nil
}

// serve 处理一个连接直到其关闭；ctx 结束时先发送 player_disconnect 再关闭
func (c *Client) serve(ctx context.Context, ws *websocket.Conn) error {
	send := make(chan []byte, sendQueueSize)
	c.mu.Lock()
	c.send = send
	c.mu.Unlock()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump(ws, send)
	}()

	readDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.detach(send, protocol.MustEncode(protocol.KindPlayerDisconnect, protocol.PlayerDisconnect{ID: c.ID()}))
			// 等待写泵发完告别消息与关闭帧，读循环随后因连接关闭而退出
			select {
			case <-writeDone:
			case <-time.After(c.cfg.WriteWait):
			}
			_ = ws.Close()
		case <-readDone:
		}
	}()

	err := c.readPump(ws)
	close(readDone)
	c.detach(send, nil)
	<-writeDone
	_ = ws.Close()
	return err
}

// detach 停止向该连接入队；farewell 非空时作为最后一条消息发送
func (c *Client) detach(send chan []byte, farewell []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send != send {
		return
	}
	if farewell != nil {
		select {
		case send <- farewell:
		default:
		}
	}
	close(send)
	c.send = nil
}

// readPump 读超时内收不到任何帧（含 ping/pong）即返回，触发重连
func (c *Client) readPump(ws *websocket.Conn) error {
	pongWait := c.cfg.PongWait
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(pongWait)) })
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	for {
		mt, b, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage {
			c.log.Warnw("dropping non-text frame", "messageType", mt)
			continue
		}
		if !c.loop.OnFrame(b) {
			c.log.Warnw("inbox full, dropping frame")
		}
	}
}

// writePump 写出发送队列并定时 ping；队列关闭后发送关闭帧
func (c *Client) writePump(ws *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(c.cfg.PingPeriod())
	defer ticker.Stop()
	for {
		select {
		case b, ok := <-send:
			if !ok {
				_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.drainAfter(err, send)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drainAfter(err, send)
				return
			}
		}
	}
}

// drainAfter 写失败后继续消费直到队列关闭，避免 Emit 侧阻塞
func (c *Client) drainAfter(err error, send <-chan []byte) {
	c.log.Debugw("write failed", "err", err)
	for range send {
	}
}
