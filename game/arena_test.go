package game

import (
	"errors"
	"testing"
	"time"
)

const tick = 16 * time.Millisecond

func mustAdd(t *testing.T, a *Arena, symbol byte, p Vec2) int32 {
	t.Helper()
	id, err := a.AddEntity(symbol, p, DefaultMaxHealth, DefaultMaxEnergy)
	if err != nil {
		t.Fatalf("AddEntity(%c): %v", symbol, err)
	}
	return id
}

func TestArenaMoveIntoWallRejected(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 1, Y: 5})
	mustAdd(t, a, 'B', Vec2{X: 10, Y: 10})

	if a.MoveEntity(aID, DirLeft) {
		t.Fatalf("move into wall should be rejected")
	}
	e, _ := a.Entity(aID)
	if e.Pos != (Vec2{X: 1, Y: 5}) {
		t.Errorf("position changed to %s", e.Pos)
	}
}

func TestArenaMoveBlockedByEntityAndCooldown(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 5, Y: 5})
	mustAdd(t, a, 'B', Vec2{X: 6, Y: 5})

	if a.MoveEntity(aID, DirRight) {
		t.Fatalf("move onto another entity should be rejected")
	}
	if !a.MoveEntity(aID, DirUp) {
		t.Fatalf("move to free floor should succeed")
	}
	if a.MoveEntity(aID, DirUp) {
		t.Fatalf("second move inside cooldown should be rejected")
	}
	a.Update(MoveCooldown)
	if !a.MoveEntity(aID, DirUp) {
		t.Fatalf("move after cooldown should succeed")
	}
	e, _ := a.Entity(aID)
	if e.Pos != (Vec2{X: 5, Y: 3}) || e.Facing != DirUp {
		t.Errorf("pos=%s facing=%s", e.Pos, e.Facing)
	}
}

func TestArenaMoveNotBlockedByProjectile(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 5, Y: 5})
	if _, err := a.AddProjectile(99, Vec2{X: 5, Y: 4}, DirNone, AttackBasic); err != nil {
		t.Fatalf("AddProjectile: %v", err)
	}
	if !a.MoveEntity(aID, DirUp) {
		t.Fatalf("projectiles must not block movement")
	}
}

func TestArenaBasicCastHitsOnce(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 5, Y: 5})
	bID := mustAdd(t, a, 'B', Vec2{X: 10, Y: 5})

	if _, err := a.CastSkill(aID, DirRight, AttackBasic); err != nil {
		t.Fatalf("CastSkill: %v", err)
	}
	ps := a.Projectiles()
	if len(ps) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(ps))
	}
	if ps[0].Pos != (Vec2{X: 6, Y: 5}) || ps[0].Damage != 5 || ps[0].Dir != DirRight {
		t.Fatalf("projectile = %+v", ps[0])
	}

	for i := 0; i < 200 && len(a.Projectiles()) > 0; i++ {
		a.Update(tick)
	}
	if len(a.Projectiles()) != 0 {
		t.Fatalf("projectile should be gone after hitting B")
	}
	b, _ := a.Entity(bID)
	if b.Health != DefaultMaxHealth-5 {
		t.Errorf("B health = %d, want %d", b.Health, DefaultMaxHealth-5)
	}
	caster, _ := a.Entity(aID)
	if caster.Health != DefaultMaxHealth {
		t.Errorf("caster must not be damaged, health = %d", caster.Health)
	}
	for i := 0; i < 50; i++ {
		a.Update(tick)
	}
	if b.Health != DefaultMaxHealth-5 {
		t.Errorf("B hit more than once, health = %d", b.Health)
	}
}

func TestArenaFastProjectileDoesNotTunnel(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 2, Y: 5})
	bID := mustAdd(t, a, 'B', Vec2{X: 4, Y: 5})
	cID := mustAdd(t, a, 'C', Vec2{X: 6, Y: 5})

	if _, err := a.CastSkill(aID, DirRight, AttackEmpowered); err != nil {
		t.Fatalf("CastSkill: %v", err)
	}
	// 一秒的步长足够跨越整张地图
	a.Update(time.Second)

	b, _ := a.Entity(bID)
	c, _ := a.Entity(cID)
	if b.Health != DefaultMaxHealth-10 {
		t.Errorf("B health = %d, want %d", b.Health, DefaultMaxHealth-10)
	}
	if c.Health != DefaultMaxHealth {
		t.Errorf("C behind B must be untouched, health = %d", c.Health)
	}
	caster, _ := a.Entity(aID)
	if caster.Energy != DefaultMaxEnergy-10 {
		t.Errorf("energy = %d, want %d", caster.Energy, DefaultMaxEnergy-10)
	}
	if len(a.Projectiles()) != 0 {
		t.Errorf("projectile should be compacted")
	}
}

func TestArenaProjectileDestroyedByWall(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 17, Y: 5})
	if _, err := a.CastSkill(aID, DirRight, AttackBasic); err != nil {
		t.Fatalf("CastSkill: %v", err)
	}
	a.Update(time.Second)
	if len(a.Projectiles()) != 0 {
		t.Fatalf("projectile should be destroyed by the border wall")
	}
}

func TestArenaCastIntoAdjacentEntityHitsImmediately(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 5, Y: 5})
	bID := mustAdd(t, a, 'B', Vec2{X: 6, Y: 5})

	if _, err := a.CastSkill(aID, DirRight, AttackBasic); err != nil {
		t.Fatalf("CastSkill: %v", err)
	}
	b, _ := a.Entity(bID)
	if b.Health != DefaultMaxHealth-5 {
		t.Fatalf("B health = %d, want %d", b.Health, DefaultMaxHealth-5)
	}
	if !a.Projectiles()[0].Destroyed {
		t.Fatalf("projectile should be destroyed on spawn hit")
	}
	a.Update(tick)
	if len(a.Projectiles()) != 0 {
		t.Errorf("destroyed projectile should be pruned on next tick")
	}
}

func TestArenaAffectedTargetIsSkipped(t *testing.T) {
	a := NewArena(20)
	bID := mustAdd(t, a, 'B', Vec2{X: 6, Y: 5})
	if _, err := a.AddProjectile(99, Vec2{X: 5, Y: 5}, DirRight, AttackBasic); err != nil {
		t.Fatalf("AddProjectile: %v", err)
	}
	a.projectiles[0].MarkAffected(bID)
	a.Update(time.Second)

	b, _ := a.Entity(bID)
	if b.Health != DefaultMaxHealth {
		t.Errorf("already affected target was hit again, health = %d", b.Health)
	}
	if len(a.Projectiles()) != 0 {
		t.Errorf("projectile should end at the wall")
	}
}

func TestArenaCastRejections(t *testing.T) {
	a := NewArena(20)
	aID := mustAdd(t, a, 'A', Vec2{X: 5, Y: 5})

	if _, err := a.CastSkill(aID, DirUp, AttackBasic); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	if _, err := a.CastSkill(aID, DirUp, AttackBasic); !errors.Is(err, ErrCooldown) {
		t.Fatalf("second cast err = %v, want ErrCooldown", err)
	}

	e, _ := a.Entity(aID)
	e.CastCooldown = 0
	e.Energy = 3
	if _, err := a.CastSkill(aID, DirUp, AttackEmpowered); !errors.Is(err, ErrNoEnergy) {
		t.Fatalf("empowered cast err = %v, want ErrNoEnergy", err)
	}
	if e.Energy != 3 {
		t.Errorf("rejected cast must not spend energy, energy = %d", e.Energy)
	}

	if _, err := a.CastSkill(42, DirUp, AttackBasic); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("unknown entity err = %v", err)
	}
	e.TakeDamage(1000)
	if _, err := a.CastSkill(aID, DirUp, AttackBasic); !errors.Is(err, ErrNotAlive) {
		t.Errorf("dead caster err = %v", err)
	}
}

func TestArenaCapacity(t *testing.T) {
	a := NewArena(50)
	for i := 0; i < MaxEntities; i++ {
		mustAdd(t, a, 'A', Vec2{X: 1 + i, Y: 1})
	}
	if _, err := a.AddEntity('Z', Vec2{X: 1, Y: 2}, 100, 100); !errors.Is(err, ErrEntityLimit) {
		t.Fatalf("err = %v, want ErrEntityLimit", err)
	}
	for i := 0; i < MaxProjectiles; i++ {
		if _, err := a.AddProjectile(1, Vec2{X: 2, Y: 2}, DirNone, AttackBasic); err != nil {
			t.Fatalf("AddProjectile %d: %v", i, err)
		}
	}
	if _, err := a.AddProjectile(1, Vec2{X: 2, Y: 2}, DirNone, AttackBasic); !errors.Is(err, ErrProjectileLimit) {
		t.Fatalf("err = %v, want ErrProjectileLimit", err)
	}
}

func TestArenaCompactionIsStable(t *testing.T) {
	a := NewArena(20)
	for i := 0; i < 4; i++ {
		if _, err := a.AddProjectile(1, Vec2{X: 3 + i, Y: 3}, DirNone, AttackBasic); err != nil {
			t.Fatalf("AddProjectile: %v", err)
		}
	}
	a.projectiles[1].Destroy()
	a.projectiles[2].Destroy()
	a.Update(0)

	ps := a.Projectiles()
	if len(ps) != 2 || ps[0].ID != 1 || ps[1].ID != 4 {
		t.Fatalf("after compaction ids = %v", projectileIDs(ps))
	}
}

func TestArenaHealthInvariantUnderFire(t *testing.T) {
	a := NewArena(12)
	aID := mustAdd(t, a, 'A', Vec2{X: 2, Y: 5})
	bID := mustAdd(t, a, 'B', Vec2{X: 9, Y: 5})

	for i := 0; i < 2000; i++ {
		if _, err := a.CastSkill(aID, DirRight, AttackEmpowered); errors.Is(err, ErrNoEnergy) {
			_, _ = a.CastSkill(aID, DirRight, AttackBasic)
		}
		a.Update(tick)
		for _, e := range a.Entities() {
			if e.Health < 0 || e.Health > e.MaxHealth {
				t.Fatalf("tick %d: entity %d health %d out of range", i, e.ID, e.Health)
			}
			if e.Alive != (e.Health > 0) {
				t.Fatalf("tick %d: entity %d alive=%v health=%d", i, e.ID, e.Alive, e.Health)
			}
		}
	}
	b, _ := a.Entity(bID)
	if b.Alive {
		t.Fatalf("B should eventually die under constant fire")
	}
	a.Update(tick)
	if b.Alive || b.Health != 0 {
		t.Errorf("death must be irreversible")
	}
}

func projectileIDs(ps []Projectile) []int32 {
	ids := make([]int32, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}
