package game

import (
	"testing"
	"time"
)

func TestEntityTakeDamageClampsAndDies(t *testing.T) {
	e := NewEntity(1, 'A', Vec2{X: 1, Y: 1}, 20, 50)
	e.TakeDamage(5)
	if e.Health != 15 || !e.Alive {
		t.Fatalf("after 5 dmg: health=%d alive=%v", e.Health, e.Alive)
	}
	if e.DamageFlash != DamageFlashTime {
		t.Errorf("damage flash = %v, want %v", e.DamageFlash, DamageFlashTime)
	}
	e.TakeDamage(100)
	if e.Health != 0 || e.Alive {
		t.Fatalf("after overkill: health=%d alive=%v", e.Health, e.Alive)
	}
	e.Heal(10)
	if e.Health != 0 || e.Alive {
		t.Errorf("dead entity must not heal: health=%d alive=%v", e.Health, e.Alive)
	}
}

func TestEntityHealAndEnergyClamp(t *testing.T) {
	e := NewEntity(1, 'A', Vec2{}, 100, 100)
	e.TakeDamage(10)
	e.Heal(50)
	if e.Health != 100 {
		t.Errorf("health = %d, want 100", e.Health)
	}
	if !e.UseEnergy(30) || e.Energy != 70 {
		t.Fatalf("UseEnergy(30): energy=%d", e.Energy)
	}
	if e.UseEnergy(71) {
		t.Errorf("UseEnergy beyond balance should fail")
	}
	e.RestoreEnergy(500)
	if e.Energy != 100 {
		t.Errorf("energy = %d, want 100", e.Energy)
	}
}

func TestEntityCooldownsFloorAtZero(t *testing.T) {
	e := NewEntity(1, 'A', Vec2{X: 2, Y: 2}, 100, 100)
	e.Move(Vec2{X: 3, Y: 2})
	if e.CanMove() {
		t.Fatalf("move cooldown should block immediately after Move")
	}
	e.UpdateCooldowns(100 * time.Millisecond)
	if e.CanMove() {
		t.Fatalf("move cooldown should still be active")
	}
	e.UpdateCooldowns(time.Second)
	if e.MoveCooldown != 0 || !e.CanMove() {
		t.Fatalf("move cooldown = %v, want 0", e.MoveCooldown)
	}
}

func TestEntityCanCastNeedsEnergyForEmpowered(t *testing.T) {
	e := NewEntity(1, 'A', Vec2{}, 100, 5)
	e.Attack = AttackEmpowered
	if e.CanCast() {
		t.Errorf("empowered attack should need %d energy", SpecFor(AttackEmpowered).EnergyCost)
	}
	e.Attack = AttackBasic
	if !e.CanCast() {
		t.Errorf("basic attack should be castable without energy")
	}
	e.CastCooldown = CastCooldown
	if e.CanCast() {
		t.Errorf("cast cooldown should block casting")
	}
}

func TestParseAttackKind(t *testing.T) {
	if ParseAttackKind(2) != AttackEmpowered {
		t.Errorf("2 should parse as empowered")
	}
	for _, v := range []uint8{0, 1, 3, 255} {
		if ParseAttackKind(v) != AttackBasic {
			t.Errorf("%d should parse as basic", v)
		}
	}
}
