package protocol

// Inbound 客户端可发送的消息类型及其载荷
var Inbound = map[string]any{
	KindPlayerInfo:        PlayerInfo{},
	KindGetAllPlayers:     struct{}{},
	KindPlayerMove:        PlayerMove{},
	KindPlayerShoot:       PlayerShoot{},
	KindBulletHit:         BulletHit{},
	KindPlayerStateUpdate: PlayerStateUpdate{},
	KindPlayerDisconnect:  PlayerDisconnect{},
}

// Outbound 服务端下发的消息类型及其载荷
var Outbound = map[string]any{
	KindPlayerID:           PlayerID{},
	KindSyncPlayers:        SyncPlayers{},
	KindPlayerJoined:       PlayerSnapshot{},
	KindPlayerMoved:        PlayerMoved{},
	KindBulletCreated:      BulletCreated{},
	KindPlayerHit:          PlayerHit{},
	KindPlayerDied:         PlayerDied{},
	KindPlayerVulnerable:   PlayerVulnerable{},
	KindPlayerStateUpdated: PlayerStateUpdated{},
	KindPlayerDisconnected: PlayerDisconnected{},
}
