package server

import "time"

// life 玩家生命状态：alive 或 respawning（死亡后满血 + 无敌窗口）
type life interface{ isLife() }

type alive struct{}

// respawning 每次死亡分配新的 epoch，到期定时器只清理自己那一轮
type respawning struct {
	epoch uint64
	until time.Time
}

func (alive) isLife()      {}
func (respawning) isLife() {}

type lifeEvent interface{ isLifeEvent() }

// damaged 受到伤害；若致死则以 epoch/until 进入 respawning
type damaged struct {
	amount    int
	maxHealth int
	epoch     uint64
	until     time.Time
}

// shielded 直接进入无敌窗口（SetInvulnerable）
type shielded struct {
	epoch uint64
	until time.Time
}

// expired 无敌定时器到期
type expired struct {
	epoch uint64
}

func (damaged) isLifeEvent()  {}
func (shielded) isLifeEvent() {}
func (expired) isLifeEvent()  {}

// transition 结果
type transition struct {
	applied bool
	health  int // 扣血后的血量（死亡时为 0）
	died    bool
	reset   int // 死亡后恢复的血量
}

// apply 唯一的状态转移函数，调用方须持有注册表写锁
func (p *Player) apply(ev lifeEvent) transition {
	switch e := ev.(type) {
	case damaged:
		if _, ok := p.life.(respawning); ok {
			return transition{}
		}
		p.Health -= e.amount
		if p.Health < 0 {
			p.Health = 0
		}
		t := transition{applied: true, health: p.Health}
		if p.Health == 0 {
			p.Health = e.maxHealth
			p.life = respawning{epoch: e.epoch, until: e.until}
			t.died = true
			t.reset = p.Health
		}
		return t
	case shielded:
		p.life = respawning{epoch: e.epoch, until: e.until}
		return transition{applied: true, health: p.Health}
	case expired:
		r, ok := p.life.(respawning)
		if !ok || r.epoch != e.epoch {
			return transition{}
		}
		p.life = alive{}
		return transition{applied: true, health: p.Health}
	}
	return transition{}
}
