package client

import (
	"math"
	"sort"

	"skirmish/protocol"
)

// Shadow 远端玩家的本地影子。X/Y 为当前渲染位置，目标位置在收到服务端数据后才存在。
type Shadow struct {
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

// Rect 影子的受击框
func (s *Shadow) Rect(size float64) Rect {
	return Centered(s.X, s.Y, size, size)
}

func (s *Shadow) SpriteKey(available func(string) bool) string {
	return SpriteKey(s.State, s.Direction, available)
}

func (s *Shadow) setTarget(x, y float64) {
	s.TargetX, s.TargetY = x, y
	s.HasTarget = true
}

// Reconciler 维护全部远端影子，只由客户端循环协程访问
type Reconciler struct {
	self      string
	shadows   map[string]*Shadow
	lerp      float64
	snap      float64
	maxHealth int
}

func NewReconciler(cfg Config) *Reconciler {
	return &Reconciler{
		shadows:   make(map[string]*Shadow),
		lerp:      cfg.LerpFactor(),
		snap:      cfg.SnapThreshold,
		maxHealth: cfg.MaxHealth,
	}
}

// SetSelf 记录本地 id，之后关于该 id 的消息不会生成影子
func (r *Reconciler) SetSelf(id string) {
	r.self = id
	delete(r.shadows, id)
}

func (r *Reconciler) isSelf(id string) bool {
	return id == "" || id == r.self
}

func (r *Reconciler) create(id string, x, y float64) *Shadow {
	s := &Shadow{
		ID:        id,
		X:         x,
		Y:         y,
		Direction: protocol.DirDown,
		State:     protocol.StateIdle,
		Health:    r.maxHealth,
	}
	r.shadows[id] = s
	return s
}

// Upsert 处理 syncPlayers / playerJoined：新 id 直接落在给定位置，已知 id 只更新目标
func (r *Reconciler) Upsert(p protocol.PlayerSnapshot) *Shadow {
	if r.isSelf(p.ID) {
		return nil
	}
	s, ok := r.shadows[p.ID]
	if !ok {
		s = r.create(p.ID, p.X, p.Y)
	} else {
		s.setTarget(p.X, p.Y)
	}
	s.Username = p.Username
	s.Health = p.Health
	s.Invulnerable = p.IsInvulnerable
	if p.Direction.Valid() {
		s.Direction = p.Direction
	}
	if p.State.Valid() {
		s.State = p.State
	}
	return s
}

// ApplyMove 处理 playerMoved；已知 id 不吸附位置
func (r *Reconciler) ApplyMove(m protocol.PlayerMoved) *Shadow {
	if r.isSelf(m.ID) {
		return nil
	}
	s, ok := r.shadows[m.ID]
	if !ok {
		s = r.create(m.ID, m.X, m.Y)
	}
	s.setTarget(m.X, m.Y)
	s.Direction = m.Direction
	s.State = m.State
	return s
}

// Spotted 子弹先于任何位置消息到达时，以开火点创建影子
func (r *Reconciler) Spotted(id string, x, y float64, dir protocol.Direction) *Shadow {
	if r.isSelf(id) {
		return nil
	}
	if s, ok := r.shadows[id]; ok {
		return s
	}
	s := r.create(id, x, y)
	if dir.Valid() {
		s.Direction = dir
	}
	return s
}

func (r *Reconciler) ApplyState(id string, state protocol.State) bool {
	s, ok := r.shadows[id]
	if !ok {
		return false
	}
	s.State = state
	return true
}

// ApplyHit 服务端血量总是覆盖本地预测
func (r *Reconciler) ApplyHit(id string, health int, invulnerable *bool) bool {
	s, ok := r.shadows[id]
	if !ok {
		return false
	}
	s.Health = health
	if invulnerable != nil {
		s.Invulnerable = *invulnerable
	}
	return true
}

// PredictHit 本地子弹命中后的即时反馈，等待服务端 playerHit 覆盖
func (r *Reconciler) PredictHit(id string) {
	if s, ok := r.shadows[id]; ok && s.Health > 0 {
		s.Health--
	}
}

func (r *Reconciler) MarkDied(id string) bool {
	s, ok := r.shadows[id]
	if !ok {
		return false
	}
	s.Invulnerable = true
	return true
}

func (r *Reconciler) MarkVulnerable(id string) bool {
	s, ok := r.shadows[id]
	if !ok {
		return false
	}
	s.Invulnerable = false
	return true
}

func (r *Reconciler) Remove(id string) bool {
	if _, ok := r.shadows[id]; !ok {
		return false
	}
	delete(r.shadows, id)
	return true
}

// Clear 重连时清空，避免重新同步后出现重复影子
func (r *Reconciler) Clear() {
	r.shadows = make(map[string]*Shadow)
}

// Step 每个 tick 向目标插值；距离小于阈值时吸附并转为待机
func (r *Reconciler) Step() {
	for _, s := range r.shadows {
		if !s.HasTarget {
			continue
		}
		dx, dy := s.TargetX-s.X, s.TargetY-s.Y
		if math.Hypot(dx, dy) > r.snap {
			nx, ny := s.X+dx*r.lerp, s.Y+dy*r.lerp
			s.Direction = protocol.DirectionBetween(s.X, s.Y, nx, ny)
			s.X, s.Y = nx, ny
			s.State = protocol.StateRun
			continue
		}
		s.X, s.Y = s.TargetX, s.TargetY
		s.HasTarget = false
		s.State = protocol.StateIdle
	}
}

func (r *Reconciler) Get(id string) (*Shadow, bool) {
	s, ok := r.shadows[id]
	return s, ok
}

// All 按 id 排序，便于确定性遍历
func (r *Reconciler) All() []*Shadow {
	out := make([]*Shadow, 0, len(r.shadows))
	for _, s := range r.shadows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Reconciler) Len() int { return len(r.shadows) }
