package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"skirmish/client"
	"skirmish/logging"
)

// 无界面机器人：连接中继服务，在地图上游走并朝最近的玩家开火
func main() {
	var envFile, url, name, logFile string
	var touch bool
	var think time.Duration
	flag.StringVar(&envFile, "env", ".env", "optional dotenv file")
	flag.StringVar(&url, "url", "", "relay websocket url (overrides SKIRMISH_URL)")
	flag.StringVar(&name, "name", "", "username")
	flag.StringVar(&logFile, "log", "bot.log", "log file path")
	flag.BoolVar(&touch, "touch", false, "use touch interpolation and throttling")
	flag.DurationVar(&think, "think", 800*time.Millisecond, "interval between decisions")
	flag.Parse()

	cfg, err := client.LoadConfig(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if url != "" {
		cfg.URL = url
	}
	if name != "" {
		cfg.Username = name
	}
	if touch {
		cfg.Touch = true
	}

	lcfg := logging.DefaultConfig()
	lcfg.File = logFile
	lcfg.Level = "info"
	lcfg.Console = true
	log, err := logging.New(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	c, err := client.New(cfg, log, nil)
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go wander(ctx, c, cfg, think, log)

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorw("bot stopped", "err", err)
		os.Exit(1)
	}
	log.Info("bye")
}

// wander 每个决策周期选一个目标点：有其他玩家时逼近最近的那个并开火，否则随机游走
func wander(ctx context.Context, c *client.Client, cfg client.Config, every time.Duration, log *zap.SugaredLogger) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if c.Status() != client.StatusConnected {
			continue
		}
		err := c.Do(ctx, func(w *client.World) {
			now := time.Now()
			if w.SelfID() == "" || w.Local.Invulnerable {
				return
			}
			if target, ok := nearest(w); ok {
				w.MoveTo(target.X, target.Y, now)
				if _, err := w.Fire(now); err != nil {
					log.Debugw("hold fire", "err", err)
				}
				return
			}
			if !w.Local.HasTarget {
				margin := cfg.PlayerSize * 2
				x := margin + rng.Float64()*(cfg.MapWidth-2*margin)
				y := margin + rng.Float64()*(cfg.MapHeight-2*margin)
				w.MoveTo(x, y, now)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Warnw("bot decision skipped", "err", err)
		}
	}
}

func nearest(w *client.World) (*client.Shadow, bool) {
	var best *client.Shadow
	bestDist := math.Inf(1)
	for _, s := range w.Remote.All() {
		if s.Invulnerable {
			continue
		}
		d := math.Hypot(s.X-w.Local.X, s.Y-w.Local.Y)
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, best != nil
}
