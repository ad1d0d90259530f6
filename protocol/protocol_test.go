package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeDecodeEnvelope(t *testing.T) {
	b, err := Encode(KindPlayerMoved, PlayerMoved{ID: "a", X: 100, Y: 200, Direction: DirDown, State: StateRun})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("frame is not a json object: %v", err)
	}
	if _, ok := raw["type"]; !ok {
		t.Fatalf("frame missing type: %s", b)
	}
	if _, ok := raw["data"]; !ok {
		t.Fatalf("frame missing data: %s", b)
	}

	env, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != KindPlayerMoved {
		t.Fatalf("type = %q", env.Type)
	}
	moved, err := DecodePayload[PlayerMoved](env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := PlayerMoved{ID: "a", X: 100, Y: 200, Direction: DirDown, State: StateRun}
	if moved != want {
		t.Fatalf("payload = %+v, want %+v", moved, want)
	}
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	for _, frame := range []string{"", "not json", `{"data":{}}`, `[1,2]`} {
		if _, err := Decode([]byte(frame)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", frame, err)
		}
	}
}

func TestDecodePayloadMissingDataIsEmpty(t *testing.T) {
	env, err := Decode([]byte(`{"type":"getAllPlayers"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := DecodePayload[struct{}](env); err != nil {
		t.Fatalf("expected empty payload to decode, got %v", err)
	}

	env = Envelope{Type: KindPlayerMove, Data: json.RawMessage(`{"x":"far"}`)}
	if _, err := DecodePayload[PlayerMove](env); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestPlayerHitOmitsInvulnerableUnlessSet(t *testing.T) {
	b, _ := json.Marshal(PlayerHit{ID: "a", Health: 9, BulletID: "1", ShooterID: "b"})
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["isInvulnerable"]; ok {
		t.Fatalf("isInvulnerable should be omitted: %s", b)
	}
	yes := true
	b, _ = json.Marshal(PlayerHit{ID: "a", Health: 10, IsInvulnerable: &yes})
	m = nil
	_ = json.Unmarshal(b, &m)
	if m["isInvulnerable"] != true {
		t.Fatalf("isInvulnerable should be true: %s", b)
	}
}
