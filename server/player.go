package server

import (
	"time"

	"skirmish/protocol"
)

// PlayerID 连接级唯一标识，断线重连后会变化
type PlayerID string

// Player 服务端权威玩家记录
type Player struct {
	ID        PlayerID
	Username  string
	X         float64
	Y         float64
	Direction protocol.Direction
	State     protocol.State
	Health    int

	life life
}

// Invulnerable 是否处于重生无敌窗口
func (p *Player) Invulnerable() bool {
	_, ok := p.life.(respawning)
	return ok
}

// InvulnerableUntil 无敌结束的绝对时间；存活状态返回零值
func (p *Player) InvulnerableUntil() time.Time {
	if r, ok := p.life.(respawning); ok {
		return r.until
	}
	return time.Time{}
}

// Snapshot 转换为线上结构
func (p *Player) Snapshot() protocol.PlayerSnapshot {
	return protocol.PlayerSnapshot{
		ID:             string(p.ID),
		Username:       p.Username,
		X:              p.X,
		Y:              p.Y,
		Health:         p.Health,
		Direction:      p.Direction,
		State:          p.State,
		IsInvulnerable: p.Invulnerable(),
	}
}
