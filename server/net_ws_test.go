package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"skirmish/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StaticDir = ""
	srv := New(cfg, nil, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readKind 读取直到出现指定类型的消息
func readKind[T any](t *testing.T, ws *websocket.Conn, kind string) T {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = ws.SetReadDeadline(deadline)
		_, b, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", kind, err)
		}
		env, err := protocol.Decode(b)
		if err != nil {
			t.Fatalf("decode frame %q: %v", b, err)
		}
		if env.Type != kind {
			continue
		}
		v, err := protocol.DecodePayload[T](env)
		if err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		return v
	}
}

func sendWS(t *testing.T, ws *websocket.Conn, kind string, payload any) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, protocol.MustEncode(kind, payload)); err != nil {
		t.Fatalf("write %s: %v", kind, err)
	}
}

func TestWebSocketJoinMoveLeave(t *testing.T) {
	srv, ts := newTestServer(t)

	alice := dialWS(t, ts, "/ws")
	aliceID := readKind[protocol.PlayerID](t, alice, protocol.KindPlayerID).ID
	if aliceID == "" {
		t.Fatalf("empty player id")
	}
	sendWS(t, alice, protocol.KindPlayerInfo, protocol.PlayerInfo{Username: "Alice", X: ptr(400.0), Y: ptr(300.0)})
	if sync := readKind[protocol.SyncPlayers](t, alice, protocol.KindSyncPlayers); len(sync.Players) != 0 {
		t.Fatalf("first player should see empty roster, got %+v", sync.Players)
	}

	bob := dialWS(t, ts, "/.netlify/functions/websocket")
	bobID := readKind[protocol.PlayerID](t, bob, protocol.KindPlayerID).ID
	if bobID == aliceID {
		t.Fatalf("ids must be unique")
	}
	sendWS(t, bob, protocol.KindPlayerInfo, protocol.PlayerInfo{Username: "Bob", X: ptr(500.0), Y: ptr(600.0)})
	sync := readKind[protocol.SyncPlayers](t, bob, protocol.KindSyncPlayers)
	if len(sync.Players) != 1 || sync.Players[0].ID != aliceID || sync.Players[0].Username != "Alice" {
		t.Fatalf("bob roster = %+v", sync.Players)
	}
	joined := readKind[protocol.PlayerSnapshot](t, alice, protocol.KindPlayerJoined)
	if joined.ID != bobID || joined.X != 500 || joined.Y != 600 {
		t.Fatalf("alice saw join %+v", joined)
	}

	sendWS(t, alice, protocol.KindPlayerMove, protocol.PlayerMove{X: 10, Y: 20, Direction: protocol.DirLeft, State: protocol.StateRun})
	for _, ws := range []*websocket.Conn{alice, bob} {
		moved := readKind[protocol.PlayerMoved](t, ws, protocol.KindPlayerMoved)
		if moved.ID != aliceID || moved.X != 10 || moved.Direction != protocol.DirLeft {
			t.Fatalf("moved = %+v", moved)
		}
	}

	_ = bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = bob.Close()
	gone := readKind[protocol.PlayerDisconnected](t, alice, protocol.KindPlayerDisconnected)
	if gone.ID != bobID {
		t.Fatalf("disconnected id = %s, want %s", gone.ID, bobID)
	}
	if srv.Registry.Has(PlayerID(bobID)) {
		t.Fatalf("bob still registered after close")
	}
}

func TestWebSocketSurvivesGarbage(t *testing.T) {
	srv, ts := newTestServer(t)
	ws := dialWS(t, ts, "/ws")
	readKind[protocol.PlayerID](t, ws, protocol.KindPlayerID)

	_ = ws.WriteMessage(websocket.TextMessage, []byte("definitely not json"))
	_ = ws.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
	sendWS(t, ws, protocol.KindPlayerInfo, protocol.PlayerInfo{Username: "Still here"})
	readKind[protocol.SyncPlayers](t, ws, protocol.KindSyncPlayers)

	snap := srv.Metrics.Snapshot()
	if snap["malformed"].(int64) != 2 {
		t.Fatalf("malformed = %v", snap["malformed"])
	}
}
