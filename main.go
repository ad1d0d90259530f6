package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sasha-s/go-deadlock"

	"skirmish/logging"
	"skirmish/server"
)

// 中继服务入口：启动 HTTP + WebSocket 服务，玩家状态只保存在内存
func main() {
	var envFile, addr, static, logFile string
	flag.StringVar(&envFile, "env", ".env", "optional dotenv file")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :3000 (overrides PORT)")
	flag.StringVar(&static, "static", "", "directory served at /")
	flag.StringVar(&logFile, "log", "", "log file path")
	flag.Parse()

	cfg, err := server.LoadConfig(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if static != "" {
		cfg.StaticDir = static
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	deadlock.Opts.Disable = !cfg.DeadlockDetection

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	srv := server.New(cfg, log, nil)
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.Routes()}

	go func() {
		log.Infof("relay listening on %s; websocket at ws://localhost%s/ws", cfg.Addr, cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}
	srv.Close()
}
