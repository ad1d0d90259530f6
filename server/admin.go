package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// HandleAdminConfig 提供战斗参数的读取与更新（热更新）
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		InvulnerabilityMs *int64 `json:"invulnerabilityMs,omitempty"`
		DamagePerHit      *int   `json:"damagePerHit,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		ms := s.Registry.InvulnerabilityDuration().Milliseconds()
		dmg := s.Router.DamagePerHit()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cfg{InvulnerabilityMs: &ms, DamagePerHit: &dmg})
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.InvulnerabilityMs != nil && *body.InvulnerabilityMs <= 0 {
			http.Error(w, "invulnerabilityMs must be positive", http.StatusBadRequest)
			return
		}
		if body.DamagePerHit != nil && *body.DamagePerHit <= 0 {
			http.Error(w, "damagePerHit must be positive", http.StatusBadRequest)
			return
		}
		if body.InvulnerabilityMs != nil {
			s.Registry.SetInvulnerabilityDuration(time.Duration(*body.InvulnerabilityMs) * time.Millisecond)
		}
		if body.DamagePerHit != nil {
			s.Router.SetDamagePerHit(*body.DamagePerHit)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		s.log.Infow("config updated",
			"invulnerability", s.Registry.InvulnerabilityDuration(), "damagePerHit", s.Router.DamagePerHit())
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"players": s.Registry.Len(),
		"metrics": s.Metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleHealth 健康检查，附带在线人数
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "players": s.Registry.Len()})
}

// HandlePlayers 导出注册表快照；?format=msgpack 或 Accept: application/msgpack 时输出 MessagePack
func (s *Server) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	players := s.Registry.Snapshot("")
	if r.URL.Query().Get("format") == "msgpack" || strings.Contains(r.Header.Get("Accept"), "application/msgpack") {
		w.Header().Set("Content-Type", "application/msgpack")
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(players); err != nil {
			s.log.Warnw("encode msgpack snapshot", "err", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(players)
}
