package server

import (
	"sort"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"

	"skirmish/protocol"
)

// RegistryConfig 注册表构造参数
type RegistryConfig struct {
	MaxHealth       int
	Invulnerability time.Duration
	Scheduler       Scheduler
}

// HitOutcome 一次有效伤害的结果
type HitOutcome struct {
	Health       int           // 扣血后的血量
	Died         bool          // 本次伤害致死
	ResetHealth  int           // 致死后恢复的血量
	Invulnerable time.Duration // 本次无敌时长
}

// Registry 连接 -> 玩家记录，持有位置、血量、朝向、状态与无敌窗口的权威副本
type Registry struct {
	mu      deadlock.RWMutex
	players map[PlayerID]*Player
	joined  map[PlayerID]uint64
	timers  map[PlayerID]Timer
	seq     uint64
	epoch   uint64
	closed  bool

	sched           Scheduler
	maxHealth       int
	invulnerability time.Duration

	// guard 与 onVulnerable 由 Router 绑定：到期回调与消息分发串行
	guard        sync.Locker
	onVulnerable func(PlayerID)
}

// NewRegistry 创建空注册表；零值字段使用默认常量
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = MaxHealth
	}
	if cfg.Invulnerability <= 0 {
		cfg.Invulnerability = InvulnerabilityDuration
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler
	}
	return &Registry{
		players:         make(map[PlayerID]*Player),
		joined:          make(map[PlayerID]uint64),
		timers:          make(map[PlayerID]Timer),
		sched:           cfg.Scheduler,
		maxHealth:       cfg.MaxHealth,
		invulnerability: cfg.Invulnerability,
	}
}

// Bind 绑定分发锁与解除无敌的通知，需在首个连接前调用
func (r *Registry) Bind(guard sync.Locker, onVulnerable func(PlayerID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = guard
	r.onVulnerable = onVulnerable
}

// Register 首次 player_info 时创建记录；已存在则不做修改
func (r *Registry) Register(id PlayerID, username string, x, y float64) (protocol.PlayerSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		return p.Snapshot(), false
	}
	p := &Player{
		ID:        id,
		Username:  username,
		X:         x,
		Y:         y,
		Direction: protocol.DirDown,
		State:     protocol.StateIdle,
		Health:    r.maxHealth,
		life:      alive{},
	}
	r.seq++
	r.players[id] = p
	r.joined[id] = r.seq
	return p.Snapshot(), true
}

func (r *Registry) Get(id PlayerID) (protocol.PlayerSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return protocol.PlayerSnapshot{}, false
	}
	return p.Snapshot(), true
}

// Has 是否已注册
func (r *Registry) Has(id PlayerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[id]
	return ok
}

// UpdatePosition 覆盖位置、朝向与状态（后写覆盖，不做累加）
func (r *Registry) UpdatePosition(id PlayerID, x, y float64, dir protocol.Direction, state protocol.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.X, p.Y = x, y
	p.Direction = dir
	p.State = state
	return true
}

func (r *Registry) SetState(id PlayerID, state protocol.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.State = state
	return true
}

func (r *Registry) IsInvulnerable(id PlayerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return ok && p.Invulnerable()
}

// ApplyDamage 扣血；目标不存在或无敌时返回 false。
// 读血量、判定死亡、回满血、进入无敌、安排到期在同一把锁内完成。
func (r *Registry) ApplyDamage(target PlayerID, amount int) (HitOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[target]
	if !ok || r.closed {
		return HitOutcome{}, false
	}
	epoch := r.epoch + 1
	t := p.apply(damaged{
		amount:    amount,
		maxHealth: r.maxHealth,
		epoch:     epoch,
		until:     r.sched.Now().Add(r.invulnerability),
	})
	if !t.applied {
		return HitOutcome{}, false
	}
	out := HitOutcome{Health: t.health}
	if t.died {
		r.epoch = epoch
		r.armLocked(target, epoch, r.invulnerability)
		out.Died = true
		out.ResetHealth = t.reset
		out.Invulnerable = r.invulnerability
	}
	return out, true
}

// SetInvulnerable 进入无敌窗口并安排到期清理
func (r *Registry) SetInvulnerable(id PlayerID, d time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok || r.closed {
		return false
	}
	r.epoch++
	p.apply(shielded{epoch: r.epoch, until: r.sched.Now().Add(d)})
	r.armLocked(id, r.epoch, d)
	return true
}

func (r *Registry) armLocked(id PlayerID, epoch uint64, d time.Duration) {
	if old, ok := r.timers[id]; ok {
		old.Stop()
	}
	r.timers[id] = r.sched.AfterFunc(d, func() { r.expire(id, epoch) })
}

// expire 到期回调：玩家可能已离开或已进入下一轮无敌，均需容忍
func (r *Registry) expire(id PlayerID, epoch uint64) {
	r.mu.RLock()
	guard := r.guard
	r.mu.RUnlock()
	if guard != nil {
		guard.Lock()
		defer guard.Unlock()
	}

	r.mu.Lock()
	cleared := false
	if p, ok := r.players[id]; ok {
		cleared = p.apply(expired{epoch: epoch}).applied
	}
	if cleared {
		delete(r.timers, id)
	}
	hook := r.onVulnerable
	r.mu.Unlock()

	if cleared && hook != nil {
		hook(id)
	}
}

// Remove 删除记录并取消其定时器
func (r *Registry) Remove(id PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; !ok {
		return false
	}
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	delete(r.players, id)
	delete(r.joined, id)
	return true
}

// Snapshot 按加入顺序返回全部玩家，exclude 为空则不排除
func (r *Registry) Snapshot(exclude PlayerID) []protocol.PlayerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]PlayerID, 0, len(r.players))
	for id := range r.players {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return r.joined[ids[i]] < r.joined[ids[j]] })
	out := make([]protocol.PlayerSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.players[id].Snapshot())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *Registry) InvulnerabilityDuration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invulnerability
}

// SetInvulnerabilityDuration 热更新，只影响之后的死亡
func (r *Registry) SetInvulnerabilityDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.invulnerability = d
	r.mu.Unlock()
}

// Close 服务关闭时调用：取消全部定时器并清空记录
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	r.players = make(map[PlayerID]*Player)
	r.joined = make(map[PlayerID]uint64)
	r.closed = true
}
