package client

import (
	"math"
	"time"

	"skirmish/protocol"
)

// LocalPlayer 本地玩家；输入立即生效，不等待服务端确认
type LocalPlayer struct {
	ID           string
	Username     string
	X, Y         float64
	TargetX      float64
	TargetY      float64
	HasTarget    bool
	Direction    protocol.Direction
	State        protocol.State
	Health       int
	Invulnerable bool
}

func NewLocalPlayer(cfg Config) *LocalPlayer {
	return &LocalPlayer{
		Username:  cfg.Username,
		X:         cfg.SpawnX,
		Y:         cfg.SpawnY,
		Direction: protocol.DirDown,
		State:     protocol.StateIdle,
		Health:    cfg.MaxHealth,
	}
}

func (p *LocalPlayer) Rect(size float64) Rect {
	return Centered(p.X, p.Y, size, size)
}

// SetTarget 指针输入：设置目标，进入 run 并朝向目标
func (p *LocalPlayer) SetTarget(x, y float64) {
	p.TargetX, p.TargetY = x, y
	p.HasTarget = true
	p.State = protocol.StateRun
	if x != p.X || y != p.Y {
		p.Direction = protocol.DirectionBetween(p.X, p.Y, x, y)
	}
}

// Stop 清除目标并转为待机
func (p *LocalPlayer) Stop() {
	p.HasTarget = false
	p.State = protocol.StateIdle
}

type stepResult int

const (
	stepIdle stepResult = iota
	stepMoved
	stepArrived
	stepBlocked
)

// advance 以固定速度向目标推进一个 tick
func (p *LocalPlayer) advance(dt time.Duration, speed, snap, size float64, obstacles *ObstacleLayer) stepResult {
	if !p.HasTarget {
		return stepIdle
	}
	dx, dy := p.TargetX-p.X, p.TargetY-p.Y
	dist := math.Hypot(dx, dy)
	if dist < snap {
		p.X, p.Y = p.TargetX, p.TargetY
		p.Stop()
		return stepArrived
	}
	d := speed * dt.Seconds()
	if d > dist {
		d = dist
	}
	nx, ny := p.X+dx/dist*d, p.Y+dy/dist*d
	if obstacles.Overlaps(nx-size/2, ny-size/2, size, size) {
		p.Stop()
		return stepBlocked
	}
	p.X, p.Y = nx, ny
	p.Direction = protocol.DirectionFromAngle(math.Atan2(dy, dx))
	return stepMoved
}

func (p *LocalPlayer) move() protocol.PlayerMove {
	return protocol.PlayerMove{X: p.X, Y: p.Y, Direction: p.Direction, State: p.State}
}

func (p *LocalPlayer) SpriteKey(available func(string) bool) string {
	return SpriteKey(p.State, p.Direction, available)
}
