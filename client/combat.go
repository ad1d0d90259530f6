package client

import (
	"errors"
	"math"
	"strconv"
	"time"

	"skirmish/protocol"
)

var (
	// ErrCoolingDown 距上次开火不足 FireDelay
	ErrCoolingDown = errors.New("weapon cooling down")
	// ErrRespawning 本地玩家处于无敌窗口，不能开火
	ErrRespawning = errors.New("cannot fire while invulnerable")
	// ErrNoIdentity 尚未收到 playerID
	ErrNoIdentity = errors.New("player id not assigned")
)

// Bullet 纯客户端子弹；只有命中事件由服务端校验
type Bullet struct {
	ID        string
	ShooterID string
	X, Y      float64
	OriginX   float64
	OriginY   float64
	VX, VY    float64
	Direction protocol.Direction
	SpawnedAt time.Time
	Reported  bool // 已上报 bulletHit
}

type bulletKey struct {
	shooter, bullet string
}

// Hit 本地子弹命中他人，需要上报
type Hit struct {
	TargetID string
	BulletID string
	Health   int // 本地预测血量
}

// Combat 子弹模拟与开火节流
type Combat struct {
	cfg      Config
	bullets  map[bulletKey]*Bullet
	order    []bulletKey
	lastFire time.Time
}

func NewCombat(cfg Config) *Combat {
	return &Combat{cfg: cfg, bullets: make(map[bulletKey]*Bullet)}
}

// Fire 从本地玩家位置开火；返回需要发送的 playerShoot 与本地子弹
func (c *Combat) Fire(p *LocalPlayer, now time.Time) (protocol.PlayerShoot, *Bullet, error) {
	if p.ID == "" {
		return protocol.PlayerShoot{}, nil, ErrNoIdentity
	}
	if p.Invulnerable {
		return protocol.PlayerShoot{}, nil, ErrRespawning
	}
	if !c.lastFire.IsZero() && now.Sub(c.lastFire) < c.cfg.FireDelay {
		return protocol.PlayerShoot{}, nil, ErrCoolingDown
	}
	c.lastFire = now

	ox, oy := c.muzzle(p.Direction)
	shot := protocol.PlayerShoot{
		X:         p.X + ox,
		Y:         p.Y + oy,
		Direction: p.Direction,
		BulletID:  strconv.FormatInt(now.UnixMilli(), 10),
	}
	b := c.Spawn(p.ID, shot.BulletID, shot.X, shot.Y, shot.Direction, now)
	return shot, b, nil
}

// muzzle 枪口偏移；斜向时每个分量乘 0.7
func (c *Combat) muzzle(dir protocol.Direction) (float64, float64) {
	vx, vy := dir.Vector()
	off := c.cfg.SpawnOffset
	if dir.Diagonal() {
		off *= 0.7
	}
	return sign(vx) * off, sign(vy) * off
}

func sign(v float64) float64 {
	switch {
	case v > 1e-9:
		return 1
	case v < -1e-9:
		return -1
	}
	return 0
}

// Spawn 创建子弹；远端 bulletCreated 也走这里
func (c *Combat) Spawn(shooter, id string, x, y float64, dir protocol.Direction, now time.Time) *Bullet {
	key := bulletKey{shooter, id}
	if b, ok := c.bullets[key]; ok {
		return b
	}
	vx, vy := dir.Vector()
	b := &Bullet{
		ID:        id,
		ShooterID: shooter,
		X:         x,
		Y:         y,
		OriginX:   x,
		OriginY:   y,
		VX:        vx * c.cfg.BulletSpeed,
		VY:        vy * c.cfg.BulletSpeed,
		Direction: dir,
		SpawnedAt: now,
	}
	c.bullets[key] = b
	c.order = append(c.order, key)
	return b
}

// Resolve 收到服务端 playerHit 后移除对应子弹
func (c *Combat) Resolve(shooter, id string) bool {
	key := bulletKey{shooter, id}
	if _, ok := c.bullets[key]; !ok {
		return false
	}
	c.remove(key)
	return true
}

func (c *Combat) remove(key bulletKey) {
	delete(c.bullets, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Step 推进全部子弹。子弹按子步长移动，遇障碍物、超出射程或寿命结束即移除；
// 本地玩家的子弹首次与他人受击框重叠时返回 Hit，子弹保留到服务端确认。
func (c *Combat) Step(dt time.Duration, now time.Time, self string, targets []*Shadow, obstacles *ObstacleLayer) []Hit {
	var hits []Hit
	for _, key := range append([]bulletKey(nil), c.order...) {
		b := c.bullets[key]
		if now.Sub(b.SpawnedAt) >= c.cfg.BulletLifetime {
			c.remove(key)
			continue
		}
		total := c.cfg.BulletSpeed * dt.Seconds()
		steps := int(math.Ceil(total / c.cfg.BulletStep))
		if steps < 1 {
			steps = 1
		}
		sx, sy := b.VX*dt.Seconds()/float64(steps), b.VY*dt.Seconds()/float64(steps)
		alive := true
		for i := 0; i < steps && alive; i++ {
			b.X += sx
			b.Y += sy
			half := c.cfg.BulletSize / 2
			if obstacles.Overlaps(b.X-half, b.Y-half, c.cfg.BulletSize, c.cfg.BulletSize) {
				alive = false
				break
			}
			if math.Hypot(b.X-b.OriginX, b.Y-b.OriginY) > c.cfg.BulletRange {
				alive = false
				break
			}
			if b.Reported || b.ShooterID != self || self == "" {
				continue
			}
			box := Centered(b.X, b.Y, c.cfg.BulletSize, c.cfg.BulletSize)
			for _, t := range targets {
				if t.ID == self || t.Invulnerable {
					continue
				}
				if box.Intersects(t.Rect(c.cfg.PlayerSize)) {
					b.Reported = true
					health := t.Health - 1
					if health < 0 {
						health = 0
					}
					hits = append(hits, Hit{TargetID: t.ID, BulletID: b.ID, Health: health})
					break
				}
			}
		}
		if !alive {
			c.remove(key)
		}
	}
	return hits
}

func (c *Combat) Get(shooter, id string) (*Bullet, bool) {
	b, ok := c.bullets[bulletKey{shooter, id}]
	return b, ok
}

// Bullets 按创建顺序返回
func (c *Combat) Bullets() []*Bullet {
	out := make([]*Bullet, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.bullets[k])
	}
	return out
}

func (c *Combat) Clear() {
	c.bullets = make(map[bulletKey]*Bullet)
	c.order = nil
}
