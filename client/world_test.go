package client

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"skirmish/protocol"
)

func TestPlayerIDSendsPlayerInfo(t *testing.T) {
	w, rec := newTestWorld(t)
	var announced string
	w.OnIdentity = func(id string) { announced = id }

	deliver(w, protocol.KindPlayerID, protocol.PlayerID{ID: "me"}, epoch)

	if w.SelfID() != "me" || announced != "me" {
		t.Fatalf("self id = %q announced = %q", w.SelfID(), announced)
	}
	info := lastOf[protocol.PlayerInfo](t, rec, protocol.KindPlayerInfo)
	if info.Username != "bot" || info.X == nil || *info.X != 400 || info.Y == nil || *info.Y != 300 {
		t.Fatalf("player_info = %+v", info)
	}
}

func TestRosterMessagesBuildShadows(t *testing.T) {
	w, _ := joinedWorld(t, "me")
	deliver(w, protocol.KindSyncPlayers, protocol.SyncPlayers{Players: []protocol.PlayerSnapshot{
		{ID: "a", Username: "Alice", X: 400, Y: 300, Health: 10},
		{ID: "me", Username: "bot", X: 1, Y: 1, Health: 10},
	}}, epoch)
	deliver(w, protocol.KindPlayerJoined, protocol.PlayerSnapshot{ID: "b", Username: "Bob", X: 500, Y: 600, Health: 10}, epoch)

	if w.Remote.Len() != 2 {
		t.Fatalf("shadows = %d, want 2", w.Remote.Len())
	}
	b, ok := w.Remote.Get("b")
	if !ok || b.X != 500 || b.Y != 600 || b.Username != "Bob" {
		t.Fatalf("bob shadow = %+v", b)
	}
}

func TestSelfEchoIsIgnored(t *testing.T) {
	w, _ := joinedWorld(t, "me")
	deliver(w, protocol.KindPlayerMoved, protocol.PlayerMoved{ID: "me", X: 0, Y: 0, Direction: protocol.DirUp, State: protocol.StateRun}, epoch)
	if w.Local.X != 400 || w.Remote.Len() != 0 {
		t.Fatalf("self echo moved local player or created a shadow")
	}
}

func TestDisconnectedShadowGoneWithinOneTick(t *testing.T) {
	w, _ := joinedWorld(t, "me")
	deliver(w, protocol.KindPlayerJoined, protocol.PlayerSnapshot{ID: "a", X: 1, Y: 1, Health: 10}, epoch)
	deliver(w, protocol.KindPlayerDisconnected, protocol.PlayerDisconnected{ID: "a"}, at(1))
	w.Tick(at(16), 16*time.Millisecond)
	if _, ok := w.Remote.Get("a"); ok {
		t.Fatalf("shadow survived playerDisconnected")
	}
}

func TestLocalLifecycleFromServer(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	deliver(w, protocol.KindPlayerHit, protocol.PlayerHit{ID: "me", Health: 3, ShooterID: "a", BulletID: "1"}, epoch)
	if w.Local.Health != 3 {
		t.Fatalf("health = %d", w.Local.Health)
	}
	deliver(w, protocol.KindPlayerDied, protocol.PlayerDied{ID: "me", InvulnerableDuration: 5000}, epoch)
	inv := true
	deliver(w, protocol.KindPlayerHit, protocol.PlayerHit{ID: "me", Health: 10, ShooterID: "a", BulletID: "2", IsInvulnerable: &inv}, epoch)
	if !w.Local.Invulnerable || w.Local.Health != 10 {
		t.Fatalf("after death %+v", w.Local)
	}
	if _, err := w.Fire(at(1000)); !errors.Is(err, ErrRespawning) {
		t.Fatalf("fire while invulnerable: %v", err)
	}
	if rec.count(protocol.KindPlayerShoot) != 0 {
		t.Fatalf("invulnerable player emitted playerShoot")
	}
	deliver(w, protocol.KindPlayerVulnerable, protocol.PlayerVulnerable{ID: "me"}, at(5000))
	if w.Local.Invulnerable {
		t.Fatalf("still invulnerable")
	}
	if _, err := w.Fire(at(5001)); err != nil {
		t.Fatalf("fire after respawn: %v", err)
	}
}

func TestMoveToEmitsImmediately(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	w.MoveTo(400, 100, epoch)
	mv := lastOf[protocol.PlayerMove](t, rec, protocol.KindPlayerMove)
	if mv.State != protocol.StateRun || mv.Direction != protocol.DirUp || mv.X != 400 || mv.Y != 300 {
		t.Fatalf("playerMove = %+v", mv)
	}
}

func TestTickMovesAreThrottled(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	w.MoveTo(1000, 300, epoch)
	for i := 1; i <= 12; i++ {
		w.Tick(at(16*i), 16*time.Millisecond)
	}
	// 0ms 输入立即上报，其后 64/128/192ms 各一次
	if n := rec.count(protocol.KindPlayerMove); n != 4 {
		t.Fatalf("playerMove count = %d, want 4", n)
	}
	if w.Local.X <= 400 || w.Local.Direction != protocol.DirRight {
		t.Fatalf("local did not advance: %+v", w.Local)
	}
}

func TestTouchThrottleIsLonger(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	w.cfg.Touch = true
	w.MoveTo(1000, 300, epoch)
	for i := 1; i <= 12; i++ {
		w.Tick(at(16*i), 16*time.Millisecond)
	}
	// 0ms 输入，其后 112ms 一次
	if n := rec.count(protocol.KindPlayerMove); n != 2 {
		t.Fatalf("playerMove count = %d, want 2", n)
	}
}

func TestArrivalEmitsFinalMoveAndState(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	w.MoveTo(410, 300, epoch)
	rec.reset()
	for i := 1; i <= 10; i++ {
		w.Tick(at(16*i), 16*time.Millisecond)
	}
	if w.Local.HasTarget || w.Local.State != protocol.StateIdle {
		t.Fatalf("did not arrive: %+v", w.Local)
	}
	if got := lastOf[protocol.PlayerStateUpdate](t, rec, protocol.KindPlayerStateUpdate); got.State != protocol.StateIdle {
		t.Fatalf("state update = %+v", got)
	}
	if got := lastOf[protocol.PlayerMove](t, rec, protocol.KindPlayerMove); got.State != protocol.StateIdle || got.X != 410 || got.Y != 300 {
		t.Fatalf("final move = %+v", got)
	}
	if w.Local.X != 410 || w.Local.Y != 300 {
		t.Fatalf("local rests at (%v,%v), want target", w.Local.X, w.Local.Y)
	}
	if rec.count(protocol.KindPlayerStateUpdate) != 1 {
		t.Fatalf("state updates = %d", rec.count(protocol.KindPlayerStateUpdate))
	}
}

func TestObstacleStopsLocalPlayer(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	w.Obstacles.Add(Rect{X: 430, Y: 250, W: 20, H: 100})
	w.MoveTo(600, 300, epoch)
	rec.reset()
	for i := 1; i <= 20; i++ {
		w.Tick(at(16*i), 16*time.Millisecond)
	}
	if w.Local.State != protocol.StateIdle || w.Local.HasTarget {
		t.Fatalf("local not stopped: %+v", w.Local)
	}
	if w.Local.X+w.cfg.PlayerSize/2 > 430 {
		t.Fatalf("local entered obstacle at x=%v", w.Local.X)
	}
	if rec.count(protocol.KindPlayerStateUpdate) != 1 {
		t.Fatalf("expected one playerStateUpdate, got %v", rec.kinds())
	}
}

func TestHeartbeatAndRosterRefresh(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	w.Tick(at(2999), 16*time.Millisecond)
	if len(rec.msgs) != 0 {
		t.Fatalf("idle client emitted %v before heartbeat", rec.kinds())
	}
	w.Tick(at(3000), 16*time.Millisecond)
	if rec.count(protocol.KindPlayerMove) != 1 {
		t.Fatalf("heartbeat missing: %v", rec.kinds())
	}
	w.Tick(at(10000), 16*time.Millisecond)
	if rec.count(protocol.KindGetAllPlayers) != 1 {
		t.Fatalf("roster refresh missing: %v", rec.kinds())
	}
}

func TestNothingEmittedBeforeIdentity(t *testing.T) {
	w, rec := newTestWorld(t)
	w.MoveTo(500, 300, epoch)
	w.Tick(at(20000), 16*time.Millisecond)
	if len(rec.msgs) != 0 {
		t.Fatalf("emitted before playerID: %v", rec.kinds())
	}
}

func TestBadFramesDoNotStopTheWorld(t *testing.T) {
	w, _ := joinedWorld(t, "me")
	w.Handle([]byte("garbage"), epoch)
	w.Handle([]byte(`{"type":"playerMoved","data":{"x":"nope"}}`), epoch)
	w.Handle([]byte(`{"type":"playerStateUpdated","data":{"id":"a"}}`), epoch)
	w.Handle([]byte(`{"type":"somethingElse","data":{}}`), epoch)
	deliver(w, protocol.KindPlayerJoined, protocol.PlayerSnapshot{ID: "a", Health: 10}, epoch)
	if w.Remote.Len() != 1 {
		t.Fatalf("world stopped handling after bad frames")
	}
}

func TestOwnBulletReportsHitOnce(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	deliver(w, protocol.KindPlayerJoined, protocol.PlayerSnapshot{ID: "a", X: 500, Y: 300, Health: 10}, epoch)
	w.Local.Direction = protocol.DirRight

	b, err := w.Fire(epoch)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	shot := lastOf[protocol.PlayerShoot](t, rec, protocol.KindPlayerShoot)
	if shot.BulletID != b.ID || shot.X != 420 || shot.Y != 300 || shot.Direction != protocol.DirRight {
		t.Fatalf("playerShoot = %+v bullet = %+v", shot, b)
	}

	for i := 1; i <= 3; i++ {
		w.Tick(at(16*i), 16*time.Millisecond)
	}
	if n := rec.count(protocol.KindBulletHit); n != 1 {
		t.Fatalf("bulletHit count = %d", n)
	}
	hit := lastOf[protocol.BulletHit](t, rec, protocol.KindBulletHit)
	if hit.TargetID != "a" || hit.BulletID != b.ID || hit.Health == nil || *hit.Health != 9 {
		t.Fatalf("bulletHit = %+v", hit)
	}
	if s, _ := w.Remote.Get("a"); s.Health != 9 {
		t.Fatalf("predicted health = %d", s.Health)
	}
	if _, ok := w.Combat.Get("me", b.ID); !ok {
		t.Fatalf("bullet removed before server confirmation")
	}

	deliver(w, protocol.KindPlayerHit, protocol.PlayerHit{ID: "a", Health: 9, BulletID: b.ID, ShooterID: "me"}, at(60))
	if _, ok := w.Combat.Get("me", b.ID); ok {
		t.Fatalf("bullet survived playerHit")
	}
}

func TestRemoteBulletSpawnsButNeverReports(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	deliver(w, protocol.KindPlayerJoined, protocol.PlayerSnapshot{ID: "c", X: 500, Y: 300, Health: 10}, epoch)
	deliver(w, protocol.KindBulletCreated, protocol.BulletCreated{ID: "a", X: 420, Y: 300, Direction: protocol.DirRight, BulletID: "77"}, epoch)
	if _, ok := w.Remote.Get("a"); !ok {
		t.Fatalf("shooter shadow not created from bulletCreated")
	}
	if _, ok := w.Combat.Get("a", "77"); !ok {
		t.Fatalf("remote bullet not spawned")
	}
	for i := 1; i <= 5; i++ {
		w.Tick(at(16*i), 16*time.Millisecond)
	}
	if rec.count(protocol.KindBulletHit) != 0 {
		t.Fatalf("remote bullet reported a hit")
	}
}

func TestResetClearsShadowsAndIdentity(t *testing.T) {
	w, rec := joinedWorld(t, "me")
	deliver(w, protocol.KindPlayerJoined, protocol.PlayerSnapshot{ID: "a", Health: 10}, epoch)
	w.Local.Direction = protocol.DirLeft
	if _, err := w.Fire(epoch); err != nil {
		t.Fatalf("fire: %v", err)
	}
	w.Reset()
	if w.Remote.Len() != 0 || len(w.Combat.Bullets()) != 0 || w.SelfID() != "" {
		t.Fatalf("reset left state behind")
	}
	rec.reset()
	w.Tick(at(60000), 16*time.Millisecond)
	if len(rec.msgs) != 0 {
		t.Fatalf("reset world still emitting: %v", rec.kinds())
	}
	deliver(w, protocol.KindPlayerID, protocol.PlayerID{ID: "me2"}, at(60001))
	if !reflect.DeepEqual(rec.kinds(), []string{protocol.KindPlayerInfo}) {
		t.Fatalf("rejoin emitted %v", rec.kinds())
	}
}
