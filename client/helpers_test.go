package client

import (
	"encoding/json"
	"testing"
	"time"

	"skirmish/protocol"
)

type sent struct {
	kind    string
	payload []byte
}

// recorder 记录 World 发出的全部消息
type recorder struct {
	msgs    []sent
	offline bool
}

func (r *recorder) Emit(kind string, payload any) bool {
	if r.offline {
		return false
	}
	b, _ := json.Marshal(payload)
	r.msgs = append(r.msgs, sent{kind: kind, payload: b})
	return true
}

func (r *recorder) kinds() []string {
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.kind)
	}
	return out
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, m := range r.msgs {
		if m.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.msgs = nil }

func lastOf[T any](t *testing.T, r *recorder, kind string) T {
	t.Helper()
	var out T
	found := false
	for _, m := range r.msgs {
		if m.kind != kind {
			continue
		}
		out = *new(T)
		if err := json.Unmarshal(m.payload, &out); err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		found = true
	}
	if !found {
		t.Fatalf("no %s emitted; got %v", kind, r.kinds())
	}
	return out
}

var epoch = time.Unix(1700000000, 0)

func at(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

// newTestWorld 空地图，避免默认障碍物干扰
func newTestWorld(t *testing.T) (*World, *recorder) {
	t.Helper()
	rec := &recorder{}
	w := NewWorld(DefaultConfig(), nil, rec)
	w.Obstacles = NewObstacleLayer(w.cfg.MapWidth, w.cfg.MapHeight)
	return w, rec
}

func deliver(w *World, kind string, payload any, now time.Time) {
	w.Handle(protocol.MustEncode(kind, payload), now)
}

// joinedWorld 已收到 playerID 的世界
func joinedWorld(t *testing.T, id string) (*World, *recorder) {
	t.Helper()
	w, rec := newTestWorld(t)
	deliver(w, protocol.KindPlayerID, protocol.PlayerID{ID: id}, epoch)
	rec.reset()
	return w, rec
}
