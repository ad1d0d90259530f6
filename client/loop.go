package client

import (
	"context"
	"time"
)

// inbound 入站帧或需要在循环协程执行的操作，二者共用一个队列以保持先后顺序
type inbound struct {
	frame []byte
	fn    func(*World)
}

// Loop 客户端的单线程推进：先处理入站，再推进世界
type Loop struct {
	world *World
	inbox chan inbound
	tick  time.Duration
	last  time.Time
}

func NewLoop(w *World, tick time.Duration, queue int) *Loop {
	return &Loop{
		world: w,
		inbox: make(chan inbound, queue), // 足够缓冲，避免网络读阻塞影响 tick
		tick:  tick,
	}
}

// OnFrame 入站帧入队（不阻塞，队列满则丢弃）
func (l *Loop) OnFrame(b []byte) bool {
	select {
	case l.inbox <- inbound{frame: b}:
		return true
	default:
		return false
	}
}

// Post 在循环协程中执行 fn；必须生效的操作（如重连清理）使用阻塞写入
func (l *Loop) Post(ctx context.Context, fn func(*World)) error {
	select {
	case l.inbox <- inbound{fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do 在循环协程中执行 fn 并等待完成
func (l *Loop) Do(ctx context.Context, fn func(*World)) error {
	done := make(chan struct{})
	if err := l.Post(ctx, func(w *World) {
		defer close(done)
		fn(w)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain 非阻塞地处理当前积压的全部入站
func (l *Loop) drain(now time.Time) {
	for {
		select {
		case in := <-l.inbox:
			if in.fn != nil {
				in.fn(l.world)
				continue
			}
			l.world.Handle(in.frame, now)
		default:
			return
		}
	}
}

// Step 推进一帧：处理入站 → 推进世界
func (l *Loop) Step(now time.Time) {
	dt := l.tick
	if !l.last.IsZero() {
		dt = now.Sub(l.last)
	}
	l.last = now
	l.drain(now)
	l.world.Tick(now, dt)
}

// Run 按固定频率推进直到 ctx 结束
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Step(now)
		}
	}
}
