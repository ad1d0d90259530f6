package protocol

// PlayerInfo 入场信息（连接后第一条业务消息）
type PlayerInfo struct {
	Username string   `json:"username" jsonschema:"description=Display name chosen at login"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

// PlayerMove 本地玩家的位置上报，服务端以最后一次为准
type PlayerMove struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Direction Direction `json:"direction" jsonschema:"enum=up,enum=down,enum=left,enum=right,enum=left_up,enum=left_down,enum=right_up,enum=right_down"`
	State     State     `json:"state" jsonschema:"enum=idle,enum=run"`
}

// PlayerShoot 开火通知；子弹只在客户端模拟
type PlayerShoot struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Direction Direction `json:"direction" jsonschema:"enum=up,enum=down,enum=left,enum=right,enum=left_up,enum=left_down,enum=right_up,enum=right_down"`
	BulletID  string    `json:"bulletId"`
}

// BulletHit 射手客户端检测到命中后上报；Health 为客户端预测值，服务端忽略
type BulletHit struct {
	TargetID string `json:"targetId"`
	BulletID string `json:"bulletId"`
	Health   *int   `json:"health,omitempty"`
}

type PlayerStateUpdate struct {
	State State `json:"state" jsonschema:"enum=idle,enum=run"`
}

type PlayerDisconnect struct {
	ID string `json:"id,omitempty"`
}

type PlayerID struct {
	ID string `json:"id"`
}

// PlayerSnapshot 玩家完整状态，用于 syncPlayers 与 playerJoined
type PlayerSnapshot struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	X              float64   `json:"x"`
	Y              float64   `json:"y"`
	Health         int       `json:"health"`
	Direction      Direction `json:"direction"`
	State          State     `json:"state"`
	IsInvulnerable bool      `json:"isInvulnerable"`
}

type SyncPlayers struct {
	Players []PlayerSnapshot `json:"players"`
}

type PlayerMoved struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Direction Direction `json:"direction"`
	State     State     `json:"state"`
}

type BulletCreated struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Direction Direction `json:"direction"`
	BulletID  string    `json:"bulletId"`
}

// PlayerHit 权威血量；死亡后的第二条 playerHit 携带 isInvulnerable
type PlayerHit struct {
	ID             string `json:"id"`
	Health         int    `json:"health"`
	BulletID       string `json:"bulletId"`
	ShooterID      string `json:"shooterId"`
	IsInvulnerable *bool  `json:"isInvulnerable,omitempty"`
}

// PlayerDied InvulnerableDuration 单位毫秒
type PlayerDied struct {
	ID                   string `json:"id"`
	InvulnerableDuration int64  `json:"invulnerableDuration"`
}

type PlayerVulnerable struct {
	ID string `json:"id"`
}

type PlayerStateUpdated struct {
	ID    string `json:"id"`
	State State  `json:"state"`
}

type PlayerDisconnected struct {
	ID string `json:"id"`
}
