package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 客户端参数；桌面与触屏的插值系数、上报节流不同
type Config struct {
	URL      string
	Username string
	SpawnX   float64
	SpawnY   float64
	Touch    bool

	TickRate time.Duration // 固定步长

	LerpDesktop   float64
	LerpTouch     float64
	SnapThreshold float64 // 距离低于该值直接吸附到目标
	Speed         float64 // 本地玩家每秒移动距离

	MoveThrottleDesktop time.Duration
	MoveThrottleTouch   time.Duration
	Heartbeat           time.Duration // 强制上报位置
	RosterRefresh       time.Duration // getAllPlayers 周期

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	WriteWait            time.Duration
	PongWait             time.Duration // 读超时，期间收不到任何帧视为连接已断
	InboxSize            int

	FireDelay      time.Duration
	BulletSpeed    float64
	BulletStep     float64 // 子弹单次子步长
	SpawnOffset    float64
	BulletLifetime time.Duration
	BulletRange    float64

	PlayerSize float64
	BulletSize float64
	MapWidth   float64
	MapHeight  float64
	MaxHealth  int
}

func DefaultConfig() Config {
	return Config{
		URL:      "ws://localhost:3000/ws",
		Username: "bot",
		SpawnX:   400,
		SpawnY:   300,

		TickRate: time.Second / 60,

		LerpDesktop:   0.2,
		LerpTouch:     0.3,
		SnapThreshold: 5,
		Speed:         150,

		MoveThrottleDesktop: 50 * time.Millisecond,
		MoveThrottleTouch:   100 * time.Millisecond,
		Heartbeat:           3 * time.Second,
		RosterRefresh:       10 * time.Second,

		ReconnectDelay:       3000 * time.Millisecond,
		MaxReconnectAttempts: 5,
		WriteWait:            5 * time.Second,
		PongWait:             60 * time.Second,
		InboxSize:            256,

		FireDelay:      500 * time.Millisecond,
		BulletSpeed:    3000,
		BulletStep:     8,
		SpawnOffset:    20,
		BulletLifetime: 5 * time.Second,
		BulletRange:    2000,

		PlayerSize: 32,
		BulletSize: 8,
		MapWidth:   2000,
		MapHeight:  2000,
		MaxHealth:  10,
	}
}

// LerpFactor 每个 tick 向目标插值的比例
func (c Config) LerpFactor() float64 {
	if c.Touch {
		return c.LerpTouch
	}
	return c.LerpDesktop
}

func (c Config) MoveThrottle() time.Duration {
	if c.Touch {
		return c.MoveThrottleTouch
	}
	return c.MoveThrottleDesktop
}

// PingPeriod 必须小于 PongWait
func (c Config) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %s", c.TickRate)
	}
	if f := c.LerpFactor(); f <= 0 || f > 1 {
		return fmt.Errorf("lerp factor must be in (0,1], got %v", f)
	}
	if c.BulletStep <= 0 || c.BulletSpeed <= 0 {
		return fmt.Errorf("bullet speed and step must be positive")
	}
	if c.PongWait <= 0 {
		return fmt.Errorf("pong wait must be positive, got %s", c.PongWait)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max reconnect attempts must not be negative")
	}
	return nil
}

// LoadConfig 与服务端相同：先读 .env（可缺失），再应用 SKIRMISH_* 覆盖
func LoadConfig(envFiles ...string) (Config, error) {
	cfg := DefaultConfig()
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SKIRMISH_URL"); v != "" {
		c.URL = v
	}
	if v := getenv("SKIRMISH_USERNAME"); v != "" {
		c.Username = v
	}
	var err error
	if v := getenv("SKIRMISH_TOUCH"); v != "" {
		if c.Touch, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("SKIRMISH_TOUCH=%q: %w", v, err)
		}
	}
	if v := getenv("SKIRMISH_RECONNECT_DELAY"); v != "" {
		if c.ReconnectDelay, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("SKIRMISH_RECONNECT_DELAY=%q: %w", v, err)
		}
	}
	if v := getenv("SKIRMISH_RECONNECT_ATTEMPTS"); v != "" {
		if c.MaxReconnectAttempts, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("SKIRMISH_RECONNECT_ATTEMPTS=%q: %w", v, err)
		}
	}
	return nil
}
