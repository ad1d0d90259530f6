package server

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"skirmish/logging"
	"skirmish/protocol"
)

var (
	// ErrNotRegistered 发送者尚未 player_info
	ErrNotRegistered = errors.New("sender not registered")
	// ErrInvulnerable 发送者处于无敌窗口，不能开火
	ErrInvulnerable = errors.New("sender invulnerable")
	// ErrTargetUnavailable 命中目标不存在或处于无敌窗口
	ErrTargetUnavailable = errors.New("hit target unavailable")
)

// RouterConfig 路由参数
type RouterConfig struct {
	SpawnX, SpawnY float64
	DamagePerHit   int
	Metrics        *Metrics
	Logger         *zap.SugaredLogger
}

// Router 解析入站帧，按类型分发到注册表变更，并决定扇出范围。
// 所有连接的分发在 mu 下串行，保证每个客户端看到相同的事件顺序。
type Router struct {
	mu  deadlock.Mutex
	reg *Registry
	hub *Hub

	spawnX, spawnY float64
	damage         atomic.Int64

	metrics *Metrics
	log     *zap.SugaredLogger
}

type handlerFunc func(r *Router, from PlayerID, env protocol.Envelope) error

// handlers 入站消息类型的封闭集合，每种类型只有一个处理函数
var handlers = map[string]handlerFunc{
	protocol.KindPlayerInfo:        (*Router).handlePlayerInfo,
	protocol.KindGetAllPlayers:     (*Router).handleGetAllPlayers,
	protocol.KindPlayerMove:        (*Router).handlePlayerMove,
	protocol.KindPlayerShoot:       (*Router).handlePlayerShoot,
	protocol.KindBulletHit:         (*Router).handleBulletHit,
	protocol.KindPlayerStateUpdate: (*Router).handlePlayerStateUpdate,
	protocol.KindPlayerDisconnect:  (*Router).handlePlayerDisconnect,
}

func NewRouter(reg *Registry, hub *Hub, cfg RouterConfig) *Router {
	if cfg.Metrics == nil {
		cfg.Metrics = &Metrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.DamagePerHit <= 0 {
		cfg.DamagePerHit = 1
	}
	r := &Router{
		reg:     reg,
		hub:     hub,
		spawnX:  cfg.SpawnX,
		spawnY:  cfg.SpawnY,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}
	r.damage.Store(int64(cfg.DamagePerHit))
	reg.Bind(&r.mu, r.announceVulnerable)
	return r
}

func (r *Router) DamagePerHit() int { return int(r.damage.Load()) }

// SetDamagePerHit 热更新
func (r *Router) SetDamagePerHit(n int) {
	if n > 0 {
		r.damage.Store(int64(n))
	}
}

// Connect 登记新连接并告知其 id
func (r *Router) Connect(id PlayerID, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hub.Add(id, c)
	r.hub.Send(id, protocol.MustEncode(protocol.KindPlayerID, protocol.PlayerID{ID: string(id)}))
	r.log.Infow("connection opened", "player", id, "connections", r.hub.Len())
}

// Disconnect 传输层关闭：移除记录并通知其他人
func (r *Router) Disconnect(id PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(id, "closed")
	r.hub.Remove(id)
}

// Dispatch 处理一帧入站消息。错误只记录，不会关闭连接，也不会回给发送者。
func (r *Router) Dispatch(from PlayerID, frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		r.metrics.IncMalformed()
		r.log.Warnw("discarding malformed frame", "player", from, "err", err)
		return
	}
	h, ok := handlers[env.Type]
	if !ok {
		r.metrics.IncUnknownKind()
		r.log.Debugw("ignoring unknown message kind", "player", from, "type", env.Type)
		return
	}

	r.mu.Lock()
	err = h(r, from, env)
	r.mu.Unlock()

	switch {
	case err == nil:
		r.metrics.IncHandled()
	case errors.Is(err, protocol.ErrMalformed):
		r.metrics.IncMalformed()
		r.log.Warnw("discarding malformed payload", "player", from, "type", env.Type, "err", err)
	case errors.Is(err, ErrNotRegistered), errors.Is(err, ErrInvulnerable), errors.Is(err, ErrTargetUnavailable):
		r.metrics.IncPreconditionDropped()
		r.log.Debugw("message dropped", "player", from, "type", env.Type, "err", err)
	default:
		r.log.Errorw("message handler failed", "player", from, "type", env.Type, "err", err)
	}
}

func (r *Router) handlePlayerInfo(from PlayerID, env protocol.Envelope) error {
	info, err := protocol.DecodePayload[protocol.PlayerInfo](env)
	if err != nil {
		return err
	}
	x, y := r.spawnX, r.spawnY
	if info.X != nil && *info.X != 0 {
		x = *info.X
	}
	if info.Y != nil && *info.Y != 0 {
		y = *info.Y
	}
	snap, created := r.reg.Register(from, info.Username, x, y)
	if err := r.sendSync(from); err != nil {
		return err
	}
	if !created {
		r.log.Debugw("player_info for registered player, resynced", "player", from)
		return nil
	}
	b, err := protocol.Encode(protocol.KindPlayerJoined, snap)
	if err != nil {
		return err
	}
	r.hub.Broadcast(b, from)
	r.log.Infow("player joined", "player", from, "username", snap.Username, "x", snap.X, "y", snap.Y, "players", r.reg.Len())
	return nil
}

func (r *Router) handleGetAllPlayers(from PlayerID, _ protocol.Envelope) error {
	if !r.reg.Has(from) {
		return ErrNotRegistered
	}
	return r.sendSync(from)
}

func (r *Router) sendSync(to PlayerID) error {
	b, err := protocol.Encode(protocol.KindSyncPlayers, protocol.SyncPlayers{Players: r.reg.Snapshot(to)})
	if err != nil {
		return err
	}
	r.hub.Send(to, b)
	return nil
}

// handlePlayerMove 广播给所有人（包括发送者）
func (r *Router) handlePlayerMove(from PlayerID, env protocol.Envelope) error {
	mv, err := protocol.DecodePayload[protocol.PlayerMove](env)
	if err != nil {
		return err
	}
	if !mv.Direction.Valid() || !mv.State.Valid() {
		return fmt.Errorf("%w: playerMove needs direction and state", protocol.ErrMalformed)
	}
	if !r.reg.UpdatePosition(from, mv.X, mv.Y, mv.Direction, mv.State) {
		return ErrNotRegistered
	}
	b, err := protocol.Encode(protocol.KindPlayerMoved, protocol.PlayerMoved{
		ID:        string(from),
		X:         mv.X,
		Y:         mv.Y,
		Direction: mv.Direction,
		State:     mv.State,
	})
	if err != nil {
		return err
	}
	r.hub.BroadcastAll(b)
	return nil
}

func (r *Router) handlePlayerShoot(from PlayerID, env protocol.Envelope) error {
	shot, err := protocol.DecodePayload[protocol.PlayerShoot](env)
	if err != nil {
		return err
	}
	if !shot.Direction.Valid() {
		return fmt.Errorf("%w: playerShoot needs direction", protocol.ErrMalformed)
	}
	shooter, ok := r.reg.Get(from)
	if !ok {
		return ErrNotRegistered
	}
	if shooter.IsInvulnerable {
		return ErrInvulnerable
	}
	b, err := protocol.Encode(protocol.KindBulletCreated, protocol.BulletCreated{
		ID:        string(from),
		X:         shot.X,
		Y:         shot.Y,
		Direction: shot.Direction,
		BulletID:  shot.BulletID,
	})
	if err != nil {
		return err
	}
	r.hub.Broadcast(b, from)
	return nil
}

// handleBulletHit 对已死亡或无敌目标的重复命中为空操作，避免同帧多客户端重复击杀
func (r *Router) handleBulletHit(from PlayerID, env protocol.Envelope) error {
	hit, err := protocol.DecodePayload[protocol.BulletHit](env)
	if err != nil {
		return err
	}
	target := PlayerID(hit.TargetID)
	out, ok := r.reg.ApplyDamage(target, r.DamagePerHit())
	if !ok {
		r.metrics.IncHitsIgnored()
		return fmt.Errorf("%w: %s", ErrTargetUnavailable, target)
	}
	r.metrics.IncHitsApplied()

	b, err := protocol.Encode(protocol.KindPlayerHit, protocol.PlayerHit{
		ID:        hit.TargetID,
		Health:    out.Health,
		BulletID:  hit.BulletID,
		ShooterID: string(from),
	})
	if err != nil {
		return err
	}
	r.hub.BroadcastAll(b)
	if !out.Died {
		return nil
	}

	r.metrics.IncKills()
	r.hub.BroadcastAll(protocol.MustEncode(protocol.KindPlayerDied, protocol.PlayerDied{
		ID:                   hit.TargetID,
		InvulnerableDuration: out.Invulnerable.Milliseconds(),
	}))
	invulnerable := true
	r.hub.BroadcastAll(protocol.MustEncode(protocol.KindPlayerHit, protocol.PlayerHit{
		ID:             hit.TargetID,
		Health:         out.ResetHealth,
		BulletID:       hit.BulletID,
		ShooterID:      string(from),
		IsInvulnerable: &invulnerable,
	}))
	r.log.Infow("player died", "player", target, "shooter", from, "invulnerable", out.Invulnerable)
	return nil
}

func (r *Router) handlePlayerStateUpdate(from PlayerID, env protocol.Envelope) error {
	up, err := protocol.DecodePayload[protocol.PlayerStateUpdate](env)
	if err != nil {
		return err
	}
	if !up.State.Valid() {
		return fmt.Errorf("%w: playerStateUpdate needs state", protocol.ErrMalformed)
	}
	if !r.reg.SetState(from, up.State) {
		return ErrNotRegistered
	}
	b, err := protocol.Encode(protocol.KindPlayerStateUpdated, protocol.PlayerStateUpdated{ID: string(from), State: up.State})
	if err != nil {
		return err
	}
	r.hub.Broadcast(b, from)
	return nil
}

// handlePlayerDisconnect 主动下线；连接本身保持打开直到传输层关闭
func (r *Router) handlePlayerDisconnect(from PlayerID, _ protocol.Envelope) error {
	if !r.leave(from, "player_disconnect") {
		return ErrNotRegistered
	}
	return nil
}

// leave 调用方须持有 mu
func (r *Router) leave(id PlayerID, reason string) bool {
	if !r.reg.Remove(id) {
		return false
	}
	r.hub.Broadcast(protocol.MustEncode(protocol.KindPlayerDisconnected, protocol.PlayerDisconnected{ID: string(id)}), id)
	r.log.Infow("player left", "player", id, "reason", reason, "players", r.reg.Len())
	return true
}

// announceVulnerable 由注册表到期回调触发，此时 mu 已被持有
func (r *Router) announceVulnerable(id PlayerID) {
	r.hub.BroadcastAll(protocol.MustEncode(protocol.KindPlayerVulnerable, protocol.PlayerVulnerable{ID: string(id)}))
	r.log.Infow("player vulnerable again", "player", id)
}
