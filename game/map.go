package game

import "fmt"

// Terrain 地形
type Terrain uint8

const (
	TerrainFloor Terrain = 0
	TerrainWall  Terrain = 1
)

// OutOfBoundsError 写入越界坐标时返回
type OutOfBoundsError struct {
	Pos  Vec2
	Size int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("position %s out of range [0-%d]", e.Pos, e.Size-1)
}

// Map 正方形网格地图：四周为墙，内部为地面。归属于唯一一个 Arena
type Map struct {
	size   int
	ground []Terrain
}

// NewMap 创建 size x size 的地图，边界一圈是墙
func NewMap(size int) *Map {
	if size < 0 {
		size = 0
	}
	m := &Map{size: size, ground: make([]Terrain, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x == 0 || y == 0 || x == size-1 || y == size-1 {
				m.ground[y*size+x] = TerrainWall
			}
		}
	}
	return m
}

func (m *Map) Size() int { return m.size }

// InBounds 坐标是否在网格内
func (m *Map) InBounds(p Vec2) bool {
	return p.X >= 0 && p.X < m.size && p.Y >= 0 && p.Y < m.size
}

// Terrain 越界一律视为墙，保证任何东西都走不出网格
func (m *Map) Terrain(p Vec2) Terrain {
	if !m.InBounds(p) {
		return TerrainWall
	}
	return m.ground[m.Index(p)]
}

func (m *Map) SetTerrain(p Vec2, t Terrain) error {
	if !m.InBounds(p) {
		return &OutOfBoundsError{Pos: p, Size: m.size}
	}
	m.ground[m.Index(p)] = t
	return nil
}

// Walkable 在界内且为地面
func (m *Map) Walkable(p Vec2) bool {
	return m.Terrain(p) == TerrainFloor
}

func (m *Map) Index(p Vec2) int { return p.Y*m.size + p.X }

func (m *Map) Pos(index int) Vec2 {
	if m.size == 0 {
		return Vec2{}
	}
	return Vec2{X: index % m.size, Y: index / m.size}
}

// Center 地图中心，出生点兜底
func (m *Map) Center() Vec2 { return Vec2{X: m.size / 2, Y: m.size / 2} }

// Ground 按行优先返回地形副本，用于下发 StartArena
func (m *Map) Ground() []Terrain {
	out := make([]Terrain, len(m.ground))
	copy(out, m.ground)
	return out
}
