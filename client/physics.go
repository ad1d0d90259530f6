package client

import (
	"math"

	"github.com/solarlune/resolv"
)

const (
	tagObstacle = "obstacle"
	tagProbe    = "probe"

	cellSize = 32
)

// Rect 轴对齐矩形，X/Y 为左上角
type Rect struct {
	X, Y, W, H float64
}

// Centered 以中心点构造矩形
func Centered(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// ObstacleLayer 静态障碍物层；resolv 网格做粗筛，再用 AABB 精确判定
type ObstacleLayer struct {
	space        *resolv.Space
	gridW, gridH float64 // 网格覆盖的世界范围
	rects        []Rect
}

func NewObstacleLayer(width, height float64, rects ...Rect) *ObstacleLayer {
	cols := int(math.Ceil(width/cellSize)) + 1
	rows := int(math.Ceil(height/cellSize)) + 1
	l := &ObstacleLayer{
		space: resolv.NewSpace(cols*cellSize, rows*cellSize, cellSize, cellSize),
		gridW: float64(cols * cellSize),
		gridH: float64(rows * cellSize),
	}
	for _, r := range rects {
		l.Add(r)
	}
	return l
}

func (l *ObstacleLayer) Add(r Rect) {
	l.rects = append(l.rects, r)
	l.space.Add(resolv.NewObject(r.X, r.Y, r.W, r.H, tagObstacle))
}

// Overlaps 判断矩形 (x,y,w,h) 是否与任一障碍物重叠
func (l *ObstacleLayer) Overlaps(x, y, w, h float64) bool {
	if l == nil || len(l.rects) == 0 {
		return false
	}
	// resolv 按 [x, x+w-1] 计算所占格子，探针向外扩 1 以免漏掉贴边的障碍物
	probe := resolv.NewObject(x-1, y-1, w+2, h+2, tagProbe)
	l.space.Add(probe)
	defer l.space.Remove(probe)

	want := Rect{X: x, Y: y, W: w, H: h}
	if c := probe.Check(0, 0, tagObstacle); c != nil {
		for _, o := range c.Objects {
			if want.Intersects(Rect{X: o.X, Y: o.Y, W: o.W, H: o.H}) {
				return true
			}
		}
	}
	// 超出网格范围的部分 resolv 不收录，退回逐个比较
	if x-1 < 0 || y-1 < 0 || x+w+1 > l.gridW || y+h+1 > l.gridH {
		for _, r := range l.rects {
			if want.Intersects(r) {
				return true
			}
		}
	}
	return false
}

func (l *ObstacleLayer) Rects() []Rect {
	out := make([]Rect, len(l.rects))
	copy(out, l.rects)
	return out
}

// DefaultObstacles 默认地图：四面边墙、四角方块与中央方块
func DefaultObstacles(width, height float64) []Rect {
	const border = 20
	return []Rect{
		Centered(width/2, border/2, width, border),
		Centered(width/2, height-border/2, width, border),
		Centered(border/2, height/2, border, height),
		Centered(width-border/2, height/2, border, height),

		Centered(width*0.25, height*0.25, 100, 100),
		Centered(width*0.75, height*0.25, 100, 100),
		Centered(width*0.25, height*0.75, 100, 100),
		Centered(width*0.75, height*0.75, 100, 100),

		Centered(width*0.5, height*0.5, 150, 150),
	}
}
