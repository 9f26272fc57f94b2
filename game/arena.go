package game

import (
	"errors"
	"time"
)

const (
	MaxEntities    = 16
	MaxProjectiles = 64
)

var (
	ErrEntityLimit     = errors.New("arena entity capacity reached")
	ErrProjectileLimit = errors.New("arena projectile capacity reached")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrNotAlive        = errors.New("entity is not alive")
	ErrCooldown        = errors.New("action on cooldown")
	ErrNoEnergy        = errors.New("not enough energy")
)

// Arena 一局的战场：地图 + 实体 + 弹道
// 实体槽位在一局内只增不减，id→槽位 通过 index 查找；弹道每 Tick 末尾做稳定压缩
type Arena struct {
	m           *Map
	entities    []Entity
	index       map[int32]int
	projectiles []Projectile

	nextEntityID     int32
	nextProjectileID int32
}

func NewArena(mapSize int) *Arena {
	return &Arena{
		m:                NewMap(mapSize),
		entities:         make([]Entity, 0, MaxEntities),
		index:            make(map[int32]int, MaxEntities),
		projectiles:      make([]Projectile, 0, MaxProjectiles),
		nextEntityID:     1,
		nextProjectileID: 1,
	}
}

func (a *Arena) Map() *Map { return a.m }

// Entities 只读视图，调用方不得修改
func (a *Arena) Entities() []Entity { return a.entities }

func (a *Arena) Projectiles() []Projectile { return a.projectiles }

// AddEntity 容量已满时返回 ErrEntityLimit
func (a *Arena) AddEntity(symbol byte, pos Vec2, maxHealth, maxEnergy int) (int32, error) {
	if len(a.entities) >= MaxEntities {
		return -1, ErrEntityLimit
	}
	id := a.nextEntityID
	a.nextEntityID++
	a.index[id] = len(a.entities)
	a.entities = append(a.entities, NewEntity(id, symbol, pos, maxHealth, maxEnergy))
	return id, nil
}

func (a *Arena) AddProjectile(casterID int32, pos Vec2, dir Direction, kind AttackKind) (int32, error) {
	if len(a.projectiles) >= MaxProjectiles {
		return -1, ErrProjectileLimit
	}
	id := a.nextProjectileID
	a.nextProjectileID++
	a.projectiles = append(a.projectiles, NewProjectile(id, casterID, pos, dir, kind))
	return id, nil
}

func (a *Arena) Entity(id int32) (*Entity, bool) {
	i, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return &a.entities[i], true
}

// EntityAt 返回该格上的存活实体
func (a *Arena) EntityAt(p Vec2) (*Entity, bool) {
	for i := range a.entities {
		if a.entities[i].Alive && a.entities[i].Pos == p {
			return &a.entities[i], true
		}
	}
	return nil, false
}

func (a *Arena) Occupied(p Vec2) bool {
	_, ok := a.EntityAt(p)
	return ok
}

func (a *Arena) CountAlive() int {
	n := 0
	for i := range a.entities {
		if a.entities[i].Alive {
			n++
		}
	}
	return n
}

// MoveEntity 目标格不可走或被其他实体占据时拒绝；弹道不阻挡移动
func (a *Arena) MoveEntity(id int32, dir Direction) bool {
	e, ok := a.Entity(id)
	if !ok || !e.CanMove() || !dir.Valid() {
		return false
	}
	next := e.Pos.Add(dir.Delta())
	if !a.m.Walkable(next) || a.Occupied(next) {
		return false
	}
	e.Facing = dir
	e.Move(next)
	return true
}

// CastSkill 在施法者前方一格生成弹道
// 出生格立即做一次碰撞判定（墙→销毁，实体→命中）
func (a *Arena) CastSkill(id int32, dir Direction, kind AttackKind) (int32, error) {
	e, ok := a.Entity(id)
	if !ok {
		return -1, ErrUnknownEntity
	}
	if !e.Alive {
		return -1, ErrNotAlive
	}
	if e.CastCooldown > 0 {
		return -1, ErrCooldown
	}
	if !dir.Valid() {
		dir = e.Facing
	}
	spec := SpecFor(kind)
	if e.Energy < spec.EnergyCost {
		return -1, ErrNoEnergy
	}
	if len(a.projectiles) >= MaxProjectiles {
		return -1, ErrProjectileLimit
	}
	e.UseEnergy(spec.EnergyCost)
	e.CastCooldown = CastCooldown
	e.Facing = dir

	pid, err := a.AddProjectile(id, e.Pos.Add(dir.Delta()), dir, kind)
	if err != nil {
		return -1, err
	}
	p := &a.projectiles[len(a.projectiles)-1]
	a.resolve(p)
	return pid, nil
}

// Retire 玩家离开时让其实体退场（不计分，不再阻挡）
func (a *Arena) Retire(id int32) {
	if e, ok := a.Entity(id); ok {
		e.Health = 0
		e.Alive = false
	}
}

// Update 执行一个 Tick：冷却递减 → 弹道分步推进 → 压缩已销毁弹道
func (a *Arena) Update(dt time.Duration) {
	for i := range a.entities {
		a.entities[i].UpdateCooldowns(dt)
	}
	for i := range a.projectiles {
		a.advance(&a.projectiles[i], dt)
	}
	a.compact()
}

// advance 按量子逐格推进，每一步都重新检测碰撞，防止高速弹道穿透
func (a *Arena) advance(p *Projectile, dt time.Duration) {
	if p.Destroyed {
		return
	}
	p.stepTimer += dt.Seconds() * p.Speed
	for p.stepTimer >= StepQuantum && !p.Destroyed {
		p.stepTimer -= StepQuantum
		p.Pos = p.NextPos()
		if a.resolve(p) {
			return
		}
	}
}

// resolve 在弹道当前格做碰撞判定，返回弹道是否被销毁
func (a *Arena) resolve(p *Projectile) bool {
	if !a.m.Walkable(p.Pos) {
		p.Destroy()
		return true
	}
	for i := range a.entities {
		e := &a.entities[i]
		if !e.Alive || e.ID == p.CasterID || p.HasAffected(e.ID) {
			continue
		}
		if e.Pos == p.Pos {
			e.TakeDamage(p.Damage)
			p.MarkAffected(e.ID)
			p.Destroy()
			return true
		}
	}
	return false
}

// compact 稳定压缩，保持剩余弹道的相对顺序
func (a *Arena) compact() {
	w := 0
	for i := range a.projectiles {
		if a.projectiles[i].Destroyed {
			continue
		}
		if w != i {
			a.projectiles[w] = a.projectiles[i]
		}
		w++
	}
	clear(a.projectiles[w:])
	a.projectiles = a.projectiles[:w]
}
