package game

import "fmt"

// Vec2 网格上的整数坐标（值类型）
type Vec2 struct {
	X int
	Y int
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// LengthSq 长度的平方，避免开方
func (v Vec2) LengthSq() int { return v.X*v.X + v.Y*v.Y }

func (v Vec2) String() string { return fmt.Sprintf("(%d,%d)", v.X, v.Y) }
