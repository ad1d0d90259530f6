package client

import "skirmish/protocol"

var idleKeys = map[protocol.Direction]string{
	protocol.DirUp:        "idle_back",
	protocol.DirDown:      "idle_front",
	protocol.DirLeft:      "idle_left",
	protocol.DirRight:     "idle_right",
	protocol.DirLeftUp:    "idle_leftback",
	protocol.DirLeftDown:  "idle_leftfront",
	protocol.DirRightUp:   "idle_rightback",
	protocol.DirRightDown: "idle_rightfront",
}

var runKeys = map[protocol.Direction]string{
	protocol.DirUp:        "run_up",
	protocol.DirDown:      "run_down",
	protocol.DirLeft:      "run_left",
	protocol.DirRight:     "run_right",
	protocol.DirLeftUp:    "run_leftup",
	protocol.DirLeftDown:  "run_leftdown",
	protocol.DirRightUp:   "run_rightup",
	protocol.DirRightDown: "run_rightdown",
}

// SpriteKey 由状态与朝向选择动画；斜向待机素材缺失时退回同侧的水平朝向。
// available 为空表示全部素材可用。
func SpriteKey(state protocol.State, dir protocol.Direction, available func(string) bool) string {
	if !dir.Valid() {
		dir = protocol.DirDown
	}
	if state == protocol.StateRun {
		return runKeys[dir]
	}
	key := idleKeys[dir]
	if !dir.Diagonal() || available == nil || available(key) {
		return key
	}
	switch dir {
	case protocol.DirLeftUp, protocol.DirLeftDown:
		return idleKeys[protocol.DirLeft]
	default:
		return idleKeys[protocol.DirRight]
	}
}
