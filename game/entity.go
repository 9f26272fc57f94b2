package game

import "time"

// AttackKind 攻击类型，数值与协议一致
type AttackKind uint8

const (
	AttackBasic     AttackKind = 1 // 基础攻击：伤害低，不耗能
	AttackEmpowered AttackKind = 2 // 强化攻击：伤害高，耗能，速度翻倍
)

const (
	DefaultMaxHealth = 100
	DefaultMaxEnergy = 100

	MoveCooldown    = 150 * time.Millisecond
	CastCooldown    = 500 * time.Millisecond
	DamageFlashTime = 66 * time.Millisecond
)

// AttackSpec 一种攻击变体的参数
type AttackSpec struct {
	Damage     int
	Speed      float64 // 每秒推进的量子数
	EnergyCost int
}

var attackSpecs = map[AttackKind]AttackSpec{
	AttackBasic:     {Damage: 5, Speed: 5, EnergyCost: 0},
	AttackEmpowered: {Damage: 10, Speed: 10, EnergyCost: 10},
}

// SpecFor 未知类型按基础攻击处理
func SpecFor(kind AttackKind) AttackSpec {
	if s, ok := attackSpecs[kind]; ok {
		return s
	}
	return attackSpecs[AttackBasic]
}

// ParseAttackKind 协议里除 2 以外都视为基础攻击
func ParseAttackKind(v uint8) AttackKind {
	if AttackKind(v) == AttackEmpowered {
		return AttackEmpowered
	}
	return AttackBasic
}

// Entity 竞技场中的一个战斗单位
// 不变量：Health ∈ [0, MaxHealth]，Alive ⇔ Health > 0；死亡后不可复活
type Entity struct {
	ID        int32
	Symbol    byte
	Pos       Vec2
	Health    int
	MaxHealth int
	Energy    int
	MaxEnergy int
	Facing    Direction
	Attack    AttackKind
	Alive     bool

	MoveCooldown time.Duration
	CastCooldown time.Duration
	DamageFlash  time.Duration // 仅用于表现层
}

func NewEntity(id int32, symbol byte, pos Vec2, maxHealth, maxEnergy int) Entity {
	return Entity{
		ID:        id,
		Symbol:    symbol,
		Pos:       pos,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Energy:    maxEnergy,
		MaxEnergy: maxEnergy,
		Facing:    DirDown,
		Attack:    AttackBasic,
		Alive:     maxHealth > 0,
	}
}

// Move 设置位置并开始移动冷却
func (e *Entity) Move(p Vec2) {
	if !e.Alive {
		return
	}
	e.Pos = p
	e.MoveCooldown = MoveCooldown
}

func (e *Entity) TakeDamage(amount int) {
	if !e.Alive || amount <= 0 {
		return
	}
	e.Health -= amount
	e.DamageFlash = DamageFlashTime
	if e.Health <= 0 {
		e.Health = 0
		e.Alive = false
	}
}

func (e *Entity) Heal(amount int) {
	if !e.Alive || amount <= 0 {
		return
	}
	e.Health = min(e.Health+amount, e.MaxHealth)
}

// UseEnergy 能量不足返回 false，不扣除
func (e *Entity) UseEnergy(amount int) bool {
	if amount < 0 || e.Energy < amount {
		return false
	}
	e.Energy -= amount
	return true
}

func (e *Entity) RestoreEnergy(amount int) {
	if amount <= 0 {
		return
	}
	e.Energy = min(e.Energy+amount, e.MaxEnergy)
}

// UpdateCooldowns 三个计时器各自递减，下限为 0
func (e *Entity) UpdateCooldowns(dt time.Duration) {
	e.MoveCooldown = decay(e.MoveCooldown, dt)
	e.CastCooldown = decay(e.CastCooldown, dt)
	e.DamageFlash = decay(e.DamageFlash, dt)
}

func (e *Entity) CanMove() bool {
	return e.Alive && e.MoveCooldown <= 0
}

// CanCast 按当前选中的攻击类型判断
func (e *Entity) CanCast() bool {
	return e.canCastKind(e.Attack)
}

func (e *Entity) canCastKind(kind AttackKind) bool {
	if !e.Alive || e.CastCooldown > 0 {
		return false
	}
	return e.Energy >= SpecFor(kind).EnergyCost
}

func decay(v, dt time.Duration) time.Duration {
	if v <= 0 {
		return 0
	}
	v -= dt
	if v < 0 {
		return 0
	}
	return v
}
