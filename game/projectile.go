package game

// StepQuantum 弹道每推进一格需要累计的量
const StepQuantum = 0.066

// MaxAffected 一个弹道最多记录的已命中目标数
const MaxAffected = 16

// Projectile 飞行中的攻击。每个目标最多命中一次
type Projectile struct {
	ID       int32
	CasterID int32
	Pos      Vec2
	Dir      Direction
	Damage   int
	Speed    float64
	Kind     AttackKind

	// stepTimer 累计 elapsed*speed，超过 StepQuantum 即前进一格
	stepTimer float64
	affected  []int32
	Destroyed bool
}

func NewProjectile(id, casterID int32, pos Vec2, dir Direction, kind AttackKind) Projectile {
	spec := SpecFor(kind)
	return Projectile{
		ID:       id,
		CasterID: casterID,
		Pos:      pos,
		Dir:      dir,
		Damage:   spec.Damage,
		Speed:    spec.Speed,
		Kind:     kind,
		affected: make([]int32, 0, 2),
	}
}

func (p *Projectile) HasAffected(id int32) bool {
	for _, a := range p.affected {
		if a == id {
			return true
		}
	}
	return false
}

func (p *Projectile) MarkAffected(id int32) {
	if len(p.affected) >= MaxAffected || p.HasAffected(id) {
		return
	}
	p.affected = append(p.affected, id)
}

func (p *Projectile) Destroy() { p.Destroyed = true }

func (p *Projectile) NextPos() Vec2 { return p.Pos.Add(p.Dir.Delta()) }
