package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skirmish/logging"
)

// Server 组装注册表、连接集合、路由与 HTTP 接口；由 main 构造并在退出时 Close
type Server struct {
	cfg Config
	log *zap.SugaredLogger

	Registry *Registry
	Hub      *Hub
	Router   *Router
	Metrics  *Metrics

	upgrader websocket.Upgrader
}

// New 构造服务；sched 为空时使用真实时间
func New(cfg Config, log *zap.SugaredLogger, sched Scheduler) *Server {
	if log == nil {
		log = logging.Nop()
	}
	metrics := &Metrics{}
	reg := NewRegistry(RegistryConfig{
		MaxHealth:       cfg.MaxHealth,
		Invulnerability: cfg.InvulnerabilityDuration,
		Scheduler:       sched,
	})
	hub := NewHub(metrics)
	router := NewRouter(reg, hub, RouterConfig{
		SpawnX:       cfg.SpawnX,
		SpawnY:       cfg.SpawnY,
		DamagePerHit: cfg.DamagePerHit,
		Metrics:      metrics,
		Logger:       log,
	})
	return &Server{
		cfg:      cfg,
		log:      log,
		Registry: reg,
		Hub:      hub,
		Router:   router,
		Metrics:  metrics,
		upgrader: newUpgrader(),
	}
}

// Routes 返回完整的 HTTP 路由
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	// 旧版浏览器客户端固定连接的路径
	mux.HandleFunc("/.netlify/functions/websocket", s.HandleWS)
	mux.Handle("/health", withCORS(http.HandlerFunc(s.HandleHealth)))
	mux.Handle("/metrics", withCORS(http.HandlerFunc(s.HandleMetrics)))
	mux.Handle("/admin/config", withCORS(http.HandlerFunc(s.HandleAdminConfig)))
	mux.Handle("/admin/players", withCORS(http.HandlerFunc(s.HandlePlayers)))
	if s.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return mux
}

// Close 关闭全部连接并停止无敌定时器
func (s *Server) Close() {
	s.Hub.CloseAll()
	s.Registry.Close()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
