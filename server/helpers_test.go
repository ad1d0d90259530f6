package server

import (
	"sort"
	"sync"
	"testing"
	"time"

	"skirmish/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func (f *fakeConn) Enqueue(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full || f.closed {
		return false
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(f.frames))
	for _, b := range f.frames {
		env, err := protocol.Decode(b)
		if err != nil {
			t.Fatalf("server sent undecodable frame %q: %v", b, err)
		}
		out = append(out, env)
	}
	return out
}

func (f *fakeConn) kinds(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, env := range f.envelopes(t) {
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

// ofKind 解析指定类型的全部载荷
func ofKind[T any](t *testing.T, f *fakeConn, kind string) []T {
	t.Helper()
	var out []T
	for _, env := range f.envelopes(t) {
		if env.Type != kind {
			continue
		}
		v, err := protocol.DecodePayload[T](env)
		if err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		out = append(out, v)
	}
	return out
}

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (m *manualTimer) Stop() bool {
	wasActive := !m.stopped && !m.fired
	m.stopped = true
	return wasActive
}

// manualScheduler 手动推进时间的调度器
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTimer
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Unix(1700000000, 0)}
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{at: s.now.Add(d), f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance 推进时间并在锁外执行到期任务
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due []*manualTimer
	for _, t := range s.tasks {
		if !t.stopped && !t.fired && !t.at.After(s.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (s *manualScheduler) task(i int) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[i]
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func frame(kind string, payload any) []byte {
	return protocol.MustEncode(kind, payload)
}

func ptr[T any](v T) *T { return &v }

type harness struct {
	router  *Router
	reg     *Registry
	hub     *Hub
	sched   *manualScheduler
	metrics *Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched := newManualScheduler()
	metrics := &Metrics{}
	reg := NewRegistry(RegistryConfig{Scheduler: sched})
	hub := NewHub(metrics)
	router := NewRouter(reg, hub, RouterConfig{SpawnX: DefaultSpawnX, SpawnY: DefaultSpawnY, Metrics: metrics})
	t.Cleanup(reg.Close)
	return &harness{router: router, reg: reg, hub: hub, sched: sched, metrics: metrics}
}

// connect 打开连接但不发送 player_info
func (h *harness) connect(id PlayerID) *fakeConn {
	c := &fakeConn{}
	h.router.Connect(id, c)
	return c
}

// join 打开连接并发送 player_info，返回前清空已收帧
func (h *harness) join(id PlayerID, name string, x, y float64) *fakeConn {
	c := h.connect(id)
	h.router.Dispatch(id, frame(protocol.KindPlayerInfo, protocol.PlayerInfo{Username: name, X: ptr(x), Y: ptr(y)}))
	return c
}

func (h *harness) hit(shooter, target PlayerID, bullet string) {
	h.router.Dispatch(shooter, frame(protocol.KindBulletHit, protocol.BulletHit{TargetID: string(target), BulletID: bullet}))
}
