package client

import (
	"testing"
	"time"
)

func TestDefaultsPerInputMode(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LerpFactor() != 0.2 || cfg.MoveThrottle() != 50*time.Millisecond {
		t.Fatalf("desktop lerp=%v throttle=%s", cfg.LerpFactor(), cfg.MoveThrottle())
	}
	cfg.Touch = true
	if cfg.LerpFactor() != 0.3 || cfg.MoveThrottle() != 100*time.Millisecond {
		t.Fatalf("touch lerp=%v throttle=%s", cfg.LerpFactor(), cfg.MoveThrottle())
	}
}

func TestClientApplyEnv(t *testing.T) {
	env := map[string]string{
		"SKIRMISH_URL":                "ws://example:9000/ws",
		"SKIRMISH_USERNAME":           "zed",
		"SKIRMISH_TOUCH":              "true",
		"SKIRMISH_RECONNECT_DELAY":    "500ms",
		"SKIRMISH_RECONNECT_ATTEMPTS": "2",
	}
	cfg := DefaultConfig()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.URL != "ws://example:9000/ws" || cfg.Username != "zed" || !cfg.Touch {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ReconnectDelay != 500*time.Millisecond || cfg.MaxReconnectAttempts != 2 {
		t.Fatalf("reconnect delay=%s attempts=%d", cfg.ReconnectDelay, cfg.MaxReconnectAttempts)
	}

	if err := cfg.applyEnv(func(k string) string {
		if k == "SKIRMISH_TOUCH" {
			return "maybe"
		}
		return ""
	}); err == nil {
		t.Fatalf("bad bool accepted")
	}
}

func TestValidateRejectsBadLerp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LerpDesktop = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero lerp accepted")
	}
}
