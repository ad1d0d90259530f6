package client

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skirmish/logging"
	"skirmish/protocol"
)

// Emitter 出站方向；未连接时丢弃并返回 false，消息不重试
type Emitter interface {
	Emit(kind string, payload any) bool
}

// World 客户端全部状态：本地玩家、远端影子、子弹与障碍物。
// 只由循环协程访问，入站消息与 tick 在同一协程内串行。
type World struct {
	cfg Config
	log *zap.SugaredLogger
	out Emitter

	Local     *LocalPlayer
	Remote    *Reconciler
	Combat    *Combat
	Obstacles *ObstacleLayer

	joined        bool
	lastMove      time.Time
	lastHeartbeat time.Time
	lastRoster    time.Time
	now           time.Time

	// OnIdentity 收到 playerID 后回调（由传输层记录 id）
	OnIdentity func(id string)
}

type worldHandler func(w *World, env protocol.Envelope) error

// worldHandlers 唯一的入站分发表，每种消息一个处理函数
var worldHandlers = map[string]worldHandler{
	protocol.KindPlayerID:           (*World).onPlayerID,
	protocol.KindSyncPlayers:        (*World).onSyncPlayers,
	protocol.KindPlayerJoined:       (*World).onPlayerJoined,
	protocol.KindPlayerMoved:        (*World).onPlayerMoved,
	protocol.KindBulletCreated:      (*World).onBulletCreated,
	protocol.KindPlayerHit:          (*World).onPlayerHit,
	protocol.KindPlayerDied:         (*World).onPlayerDied,
	protocol.KindPlayerVulnerable:   (*World).onPlayerVulnerable,
	protocol.KindPlayerStateUpdated: (*World).onPlayerStateUpdated,
	protocol.KindPlayerDisconnected: (*World).onPlayerDisconnected,
}

func NewWorld(cfg Config, log *zap.SugaredLogger, out Emitter) *World {
	if log == nil {
		log = logging.Nop()
	}
	return &World{
		cfg:       cfg,
		log:       log,
		out:       out,
		Local:     NewLocalPlayer(cfg),
		Remote:    NewReconciler(cfg),
		Combat:    NewCombat(cfg),
		Obstacles: NewObstacleLayer(cfg.MapWidth, cfg.MapHeight, DefaultObstacles(cfg.MapWidth, cfg.MapHeight)...),
	}
}

// SelfID 本地 id，未分配时为空
func (w *World) SelfID() string { return w.Local.ID }

// Handle 处理一帧入站消息；解析失败或处理出错只记录日志，不影响循环
func (w *World) Handle(frame []byte, now time.Time) {
	w.now = now
	env, err := protocol.Decode(frame)
	if err != nil {
		w.log.Warnw("dropping malformed frame", "err", err)
		return
	}
	h, ok := worldHandlers[env.Type]
	if !ok {
		w.log.Debugw("ignoring unknown message kind", "type", env.Type)
		return
	}
	if err := w.safely(h, env); err != nil {
		if errors.Is(err, protocol.ErrMalformed) {
			w.log.Warnw("dropping malformed payload", "type", env.Type, "err", err)
			return
		}
		w.log.Errorw("message handler failed", "type", env.Type, "err", err)
	}
}

func (w *World) safely(h worldHandler, env protocol.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(w, env)
}

func (w *World) emit(kind string, payload any) {
	if w.out == nil {
		return
	}
	if !w.out.Emit(kind, payload) {
		w.log.Debugw("outbound message dropped", "type", kind)
	}
}

func (w *World) onPlayerID(env protocol.Envelope) error {
	msg, err := protocol.DecodePayload[protocol.PlayerID](env)
	if err != nil {
		return err
	}
	if msg.ID == "" {
		return fmt.Errorf("%w: empty player id", protocol.ErrMalformed)
	}
	w.Local.ID = msg.ID
	w.Remote.SetSelf(msg.ID)
	if w.OnIdentity != nil {
		w.OnIdentity(msg.ID)
	}
	x, y := w.Local.X, w.Local.Y
	w.emit(protocol.KindPlayerInfo, protocol.PlayerInfo{Username: w.Local.Username, X: &x, Y: &y})
	w.joined = true
	w.lastMove, w.lastHeartbeat, w.lastRoster = w.now, w.now, w.now
	w.log.Infow("assigned player id", "player", msg.ID)
	return nil
}

func (w *World) onSyncPlayers(env protocol.Envelope) error {
	msg, err := protocol.DecodePayload[protocol.SyncPlayers](env)
	if err != nil {
		return err
	}
	for _, p := range msg.Players {
		w.Remote.Upsert(p)
	}
	return nil
}

func (w *World) onPlayerJoined(env protocol.Envelope) error {
	p, err := protocol.DecodePayload[protocol.PlayerSnapshot](env)
	if err != nil {
		return err
	}
	if s := w.Remote.Upsert(p); s != nil {
		w.log.Infow("player joined", "player", p.ID, "username", p.Username)
	}
	return nil
}

// onPlayerMoved 关于自己的回显忽略，本地渲染领先于网络
func (w *World) onPlayerMoved(env protocol.Envelope) error {
	m, err := protocol.DecodePayload[protocol.PlayerMoved](env)
	if err != nil {
		return err
	}
	w.Remote.ApplyMove(m)
	return nil
}

func (w *World) onBulletCreated(env protocol.Envelope) error {
	b, err := protocol.DecodePayload[protocol.BulletCreated](env)
	if err != nil {
		return err
	}
	if b.ID == w.Local.ID {
		return nil
	}
	w.Remote.Spotted(b.ID, b.X, b.Y, b.Direction)
	w.Combat.Spawn(b.ID, b.BulletID, b.X, b.Y, b.Direction, w.now)
	return nil
}

// onPlayerHit 服务端血量覆盖本地预测，并结束对应子弹
func (w *World) onPlayerHit(env protocol.Envelope) error {
	h, err := protocol.DecodePayload[protocol.PlayerHit](env)
	if err != nil {
		return err
	}
	w.Combat.Resolve(h.ShooterID, h.BulletID)
	if h.ID == w.Local.ID {
		w.Local.Health = h.Health
		if h.IsInvulnerable != nil {
			w.Local.Invulnerable = *h.IsInvulnerable
		}
		return nil
	}
	w.Remote.ApplyHit(h.ID, h.Health, h.IsInvulnerable)
	return nil
}

func (w *World) onPlayerDied(env protocol.Envelope) error {
	d, err := protocol.DecodePayload[protocol.PlayerDied](env)
	if err != nil {
		return err
	}
	if d.ID == w.Local.ID {
		w.Local.Invulnerable = true
		w.Local.Stop()
		w.log.Infow("local player died", "invulnerableMs", d.InvulnerableDuration)
		return nil
	}
	w.Remote.MarkDied(d.ID)
	return nil
}

func (w *World) onPlayerVulnerable(env protocol.Envelope) error {
	v, err := protocol.DecodePayload[protocol.PlayerVulnerable](env)
	if err != nil {
		return err
	}
	if v.ID == w.Local.ID {
		w.Local.Invulnerable = false
		return nil
	}
	w.Remote.MarkVulnerable(v.ID)
	return nil
}

func (w *World) onPlayerStateUpdated(env protocol.Envelope) error {
	u, err := protocol.DecodePayload[protocol.PlayerStateUpdated](env)
	if err != nil {
		return err
	}
	if !u.State.Valid() {
		return fmt.Errorf("%w: missing state", protocol.ErrMalformed)
	}
	w.Remote.ApplyState(u.ID, u.State)
	return nil
}

func (w *World) onPlayerDisconnected(env protocol.Envelope) error {
	d, err := protocol.DecodePayload[protocol.PlayerDisconnected](env)
	if err != nil {
		return err
	}
	if w.Remote.Remove(d.ID) {
		w.log.Infow("player left", "player", d.ID)
	}
	return nil
}

// MoveTo 指针输入：立即改变目标并上报，不等待确认
func (w *World) MoveTo(x, y float64, now time.Time) {
	w.Local.SetTarget(x, y)
	w.sendMove(now)
}

// Fire 开火：先发送 playerShoot，再生成本地子弹
func (w *World) Fire(now time.Time) (*Bullet, error) {
	shot, b, err := w.Combat.Fire(w.Local, now)
	if err != nil {
		return nil, err
	}
	w.emit(protocol.KindPlayerShoot, shot)
	return b, nil
}

func (w *World) sendMove(now time.Time) {
	if !w.joined {
		return
	}
	w.emit(protocol.KindPlayerMove, w.Local.move())
	w.lastMove = now
	w.lastHeartbeat = now
}

func (w *World) sendState() {
	if !w.joined {
		return
	}
	w.emit(protocol.KindPlayerStateUpdate, protocol.PlayerStateUpdate{State: w.Local.State})
}

// Tick 固定步长推进：本地移动、周期上报、远端插值、子弹与命中
func (w *World) Tick(now time.Time, dt time.Duration) {
	w.now = now

	switch w.Local.advance(dt, w.cfg.Speed, w.cfg.SnapThreshold, w.cfg.PlayerSize, w.Obstacles) {
	case stepMoved:
		if now.Sub(w.lastMove) >= w.cfg.MoveThrottle() {
			w.sendMove(now)
		}
	case stepArrived:
		w.sendMove(now)
		w.sendState()
	case stepBlocked:
		w.sendState()
	}

	if w.joined {
		if now.Sub(w.lastHeartbeat) >= w.cfg.Heartbeat {
			w.sendMove(now)
		}
		if now.Sub(w.lastRoster) >= w.cfg.RosterRefresh {
			w.emit(protocol.KindGetAllPlayers, nil)
			w.lastRoster = now
		}
	}

	w.Remote.Step()

	for _, hit := range w.Combat.Step(dt, now, w.Local.ID, w.Remote.All(), w.Obstacles) {
		health := hit.Health
		w.emit(protocol.KindBulletHit, protocol.BulletHit{TargetID: hit.TargetID, BulletID: hit.BulletID, Health: &health})
		w.Remote.PredictHit(hit.TargetID)
	}
}

// Reset 重连时调用：清空影子与子弹，等待新的 playerID
func (w *World) Reset() {
	w.Remote.Clear()
	w.Combat.Clear()
	w.Local.ID = ""
	w.Local.Invulnerable = false
	w.Local.Health = w.cfg.MaxHealth
	w.Local.Stop()
	w.joined = false
}
