package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 客户端 -> 服务端
const (
	KindPlayerInfo        = "player_info"
	KindGetAllPlayers     = "getAllPlayers"
	KindPlayerMove        = "playerMove"
	KindPlayerShoot       = "playerShoot"
	KindBulletHit         = "bulletHit"
	KindPlayerStateUpdate = "playerStateUpdate"
	KindPlayerDisconnect  = "player_disconnect"
)

// 服务端 -> 客户端
const (
	KindPlayerID           = "playerID"
	KindSyncPlayers        = "syncPlayers"
	KindPlayerJoined       = "playerJoined"
	KindPlayerMoved        = "playerMoved"
	KindBulletCreated      = "bulletCreated"
	KindPlayerHit          = "playerHit"
	KindPlayerDied         = "playerDied"
	KindPlayerVulnerable   = "playerVulnerable"
	KindPlayerStateUpdated = "playerStateUpdated"
	KindPlayerDisconnected = "playerDisconnected"
)

// ErrMalformed 无法解析的帧或载荷
var ErrMalformed = errors.New("malformed message")

// Envelope 所有消息的统一外壳：{"type": "...", "data": {...}}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode 将载荷包装成文本帧
func Encode(kind string, payload any) ([]byte, error) {
	if kind == "" {
		return nil, fmt.Errorf("encode: empty message type")
	}
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Data: data})
}

// MustEncode 仅用于载荷类型固定、不可能失败的场景
func MustEncode(kind string, payload any) []byte {
	b, err := Encode(kind, payload)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode 解析外壳，载荷保持原始字节
func Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// DecodePayload 按类型解析 data 字段；缺失的 data 视为空对象
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	return out, nil
}
