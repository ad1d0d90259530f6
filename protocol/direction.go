package protocol

import (
	"fmt"
	"math"
)

// Direction 八向朝向，线上以字符串传输
type Direction string

const (
	DirUp        Direction = "up"
	DirDown      Direction = "down"
	DirLeft      Direction = "left"
	DirRight     Direction = "right"
	DirLeftUp    Direction = "left_up"
	DirLeftDown  Direction = "left_down"
	DirRightUp   Direction = "right_up"
	DirRightDown Direction = "right_down"
)

// Directions 按顺时针列出全部朝向（从 right 开始，屏幕坐标 y 向下）
var Directions = []Direction{
	DirRight, DirRightDown, DirDown, DirLeftDown,
	DirLeft, DirLeftUp, DirUp, DirRightUp,
}

// Valid 判断是否为八向之一
func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight, DirLeftUp, DirLeftDown, DirRightUp, DirRightDown:
		return true
	}
	return false
}

// Diagonal 是否为斜向
func (d Direction) Diagonal() bool {
	switch d {
	case DirLeftUp, DirLeftDown, DirRightUp, DirRightDown:
		return true
	}
	return false
}

// Angle 返回朝向对应的弧度（0 为正右，顺时针为正）
func (d Direction) Angle() float64 {
	switch d {
	case DirUp:
		return -math.Pi / 2
	case DirDown:
		return math.Pi / 2
	case DirLeft:
		return math.Pi
	case DirLeftUp:
		return -3 * math.Pi / 4
	case DirLeftDown:
		return 3 * math.Pi / 4
	case DirRightUp:
		return -math.Pi / 4
	case DirRightDown:
		return math.Pi / 4
	default:
		return 0
	}
}

// Vector 返回单位方向向量
func (d Direction) Vector() (float64, float64) {
	a := d.Angle()
	return math.Cos(a), math.Sin(a)
}

func (d *Direction) UnmarshalText(b []byte) error {
	v := Direction(b)
	if !v.Valid() {
		return fmt.Errorf("unknown direction %q", string(b))
	}
	*d = v
	return nil
}

// DirectionFromDegrees 将角度（度，范围 [-180,180]）划分为 8 个 45° 扇区。
// 扇区为左闭右开 [lower, upper)；left 扇区在 ±180 两端均闭合。
// 非有限值返回 down。
func DirectionFromDegrees(deg float64) Direction {
	if math.IsInf(deg, 0) || math.IsNaN(deg) {
		return DirDown
	}
	deg = math.Remainder(deg, 360)
	switch {
	case deg >= -22.5 && deg < 22.5:
		return DirRight
	case deg >= 22.5 && deg < 67.5:
		return DirRightDown
	case deg >= 67.5 && deg < 112.5:
		return DirDown
	case deg >= 112.5 && deg < 157.5:
		return DirLeftDown
	case (deg >= 157.5 && deg <= 180) || (deg >= -180 && deg < -157.5):
		return DirLeft
	case deg >= -157.5 && deg < -112.5:
		return DirLeftUp
	case deg >= -112.5 && deg < -67.5:
		return DirUp
	default:
		return DirRightUp
	}
}

// DirectionFromAngle 以弧度（atan2 结果）计算朝向
func DirectionFromAngle(rad float64) Direction {
	return DirectionFromDegrees(rad * 180 / math.Pi)
}

// DirectionBetween 从 (x0,y0) 指向 (x1,y1) 的朝向
func DirectionBetween(x0, y0, x1, y1 float64) Direction {
	return DirectionFromAngle(math.Atan2(y1-y0, x1-x0))
}

// State 动作状态
type State string

const (
	StateIdle State = "idle"
	StateRun  State = "run"
)

func (s State) Valid() bool {
	return s == StateIdle || s == StateRun
}

func (s *State) UnmarshalText(b []byte) error {
	v := State(b)
	if !v.Valid() {
		return fmt.Errorf("unknown state %q", string(b))
	}
	*s = v
	return nil
}
