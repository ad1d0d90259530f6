package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"skirmish/logging"
)

const (
	// MaxHealth 满血值，重生时恢复到该值
	MaxHealth = 10
	// InvulnerabilityDuration 死亡后的无敌时长
	InvulnerabilityDuration = 5000 * time.Millisecond
	// DefaultSpawnX / DefaultSpawnY player_info 未携带坐标时的出生点
	DefaultSpawnX = 400
	DefaultSpawnY = 300
)

// Config 服务端配置：默认值 -> .env -> 环境变量 -> 命令行
type Config struct {
	Addr      string
	StaticDir string
	Log       logging.Config

	MaxHealth               int
	DamagePerHit            int
	InvulnerabilityDuration time.Duration
	SpawnX, SpawnY          float64

	SendQueueSize int           // 每连接发送队列容量
	ReadLimit     int64         // 单帧上限
	PongWait      time.Duration // 读超时
	WriteWait     time.Duration

	DeadlockDetection bool
}

func DefaultConfig() Config {
	return Config{
		Addr:                    ":3000",
		StaticDir:               "public",
		Log:                     logging.DefaultConfig(),
		MaxHealth:               MaxHealth,
		DamagePerHit:            1,
		InvulnerabilityDuration: InvulnerabilityDuration,
		SpawnX:                  DefaultSpawnX,
		SpawnY:                  DefaultSpawnY,
		SendQueueSize:           64,
		ReadLimit:               1 << 20, // 1MB
		PongWait:                60 * time.Second,
		WriteWait:               5 * time.Second,
	}
}

// PingPeriod 必须小于 PongWait
func (c Config) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// LoadConfig 读取 .env（文件不存在不算错误）并应用环境变量覆盖
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
	if v := getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := getenv("SKIRMISH_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("SKIRMISH_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := getenv("SKIRMISH_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("SKIRMISH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	var err error
	if v := getenv("SKIRMISH_LOG_CONSOLE"); v != "" {
		if c.Log.Console, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("SKIRMISH_LOG_CONSOLE=%q: %w", v, err)
		}
	}
	if v := getenv("SKIRMISH_INVULNERABILITY"); v != "" {
		if c.InvulnerabilityDuration, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("SKIRMISH_INVULNERABILITY=%q: %w", v, err)
		}
	}
	if v := getenv("SKIRMISH_DAMAGE_PER_HIT"); v != "" {
		if c.DamagePerHit, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("SKIRMISH_DAMAGE_PER_HIT=%q: %w", v, err)
		}
	}
	if v := getenv("SKIRMISH_SEND_QUEUE"); v != "" {
		if c.SendQueueSize, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("SKIRMISH_SEND_QUEUE=%q: %w", v, err)
		}
	}
	if v := getenv("SKIRMISH_DEADLOCK_DETECTION"); v != "" {
		if c.DeadlockDetection, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("SKIRMISH_DEADLOCK_DETECTION=%q: %w", v, err)
		}
	}
	return nil
}

// Validate 拒绝会破坏状态机的配置
func (c Config) Validate() error {
	if c.MaxHealth <= 0 {
		return fmt.Errorf("max health must be positive, got %d", c.MaxHealth)
	}
	if c.DamagePerHit <= 0 {
		return fmt.Errorf("damage per hit must be positive, got %d", c.DamagePerHit)
	}
	if c.InvulnerabilityDuration <= 0 {
		return fmt.Errorf("invulnerability duration must be positive, got %s", c.InvulnerabilityDuration)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send queue size must be positive, got %d", c.SendQueueSize)
	}
	return nil
}
