package game

// Direction 移动/朝向方向，数值与线上协议一致
type Direction uint8

const (
	DirUp    Direction = 0
	DirDown  Direction = 1
	DirLeft  Direction = 2
	DirRight Direction = 3
	DirNone  Direction = 0xFF
)

// Delta 方向对应的单位位移
func (d Direction) Delta() Vec2 {
	switch d {
	case DirUp:
		return Vec2{X: 0, Y: -1}
	case DirDown:
		return Vec2{X: 0, Y: 1}
	case DirLeft:
		return Vec2{X: -1, Y: 0}
	case DirRight:
		return Vec2{X: 1, Y: 0}
	default:
		return Vec2{}
	}
}

// Valid 是否为四个实际方向之一
func (d Direction) Valid() bool {
	return d <= DirRight
}

func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return DirNone
	}
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}
