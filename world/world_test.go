package world

import (
	"testing"
	"time"

	"github.com/fortress-go/core/mapdata"
)

func blankMap(t *testing.T, data string) mapdata.Map {
	t.Helper()
	m, ok := mapdata.Load("test", data)
	if !ok {
		t.Fatal("map load failed")
	}
	return m
}

func TestCommitPromotesReservedEntities(t *testing.T) {
	m := blankMap(t, "     \n     \n     \n")
	w := New(m, nil)

	id, _ := w.players.Reserve(Player{Name: "a", Team: TeamRed, Alive: true, MaxHealth: 100, Health: 100})
	if w.players.Find(id) != nil {
		t.Fatal("player should not be visible before commit")
	}

	w.Update(time.Second / 20)

	if w.players.Find(id) == nil {
		t.Fatal("player should be visible after the tick's commit")
	}
}

func TestProjectileDamagesEnemyPlayer(t *testing.T) {
	m := blankMap(t, "     \n     \n     \n     \n     \n")
	w := New(m, nil)

	pid, _ := w.players.Reserve(Player{Team: TeamRed, Alive: true, MaxHealth: 100, Health: 100, Position: Vec2{2, 2}})
	w.players.Commit()

	_, _ = w.projectiles.Reserve(Projectile{Team: TeamBlue, Position: Vec2{1, 2}, Velocity: Vec2{1, 0}})
	w.projectiles.Commit()

	w.rebuildCollisionMap()
	for _, e := range w.projectiles.Stable() {
		w.stepProjectile(e.Id, e.Slot.Velocity)
	}

	p := w.players.Find(pid)
	if p == nil {
		t.Fatal("player should still exist")
	}
	if p.Health != 100-projectileDamage {
		t.Fatalf("player health = %d, want %d", p.Health, 100-projectileDamage)
	}
	if w.projectiles.Len() != 0 {
		t.Fatalf("projectile should have been consumed on hit, Len() = %d", w.projectiles.Len())
	}
}

func TestProjectileDoesNotDamageTeammate(t *testing.T) {
	m := blankMap(t, "     \n     \n     \n     \n     \n")
	w := New(m, nil)

	pid, _ := w.players.Reserve(Player{Team: TeamRed, Alive: true, MaxHealth: 100, Health: 100, Position: Vec2{2, 2}})
	w.players.Commit()

	_, _ = w.projectiles.Reserve(Projectile{Team: TeamRed, Position: Vec2{1, 2}, Velocity: Vec2{1, 0}})
	w.projectiles.Commit()

	w.rebuildCollisionMap()
	for _, e := range w.projectiles.Stable() {
		w.stepProjectile(e.Id, e.Slot.Velocity)
	}

	p := w.players.Find(pid)
	if p.Health != 100 {
		t.Fatalf("teammate projectile should not damage, health = %d", p.Health)
	}
}

func TestMedkitHealsBelowMaxOnly(t *testing.T) {
	m := blankMap(t, "     \n     \n     \n")
	w := New(m, nil)

	pid, _ := w.players.Reserve(Player{Team: TeamRed, Alive: true, MaxHealth: 100, Health: 40, Position: Vec2{1, 1}})
	w.players.Commit()
	mid, _ := w.medkits.Reserve(Medkit{Position: Vec2{1, 1}, Alive: true})
	w.medkits.Commit()

	w.rebuildCollisionMap()
	w.checkCollisions(EntityRef{KindPlayer, pid}, Vec2{1, 1})

	p := w.players.Find(pid)
	if p.Health != 100 {
		t.Fatalf("player should be healed to max, got %d", p.Health)
	}
	mk := w.medkits.Find(mid)
	if mk.Alive {
		t.Fatal("medkit should go on cooldown after use")
	}
}

func TestStepPlayerClippedByWall(t *testing.T) {
	m := blankMap(t, "#####\n#   #\n#####\n")
	w := New(m, nil)
	pid, _ := w.players.Reserve(Player{Team: TeamRed, Alive: true, Position: Vec2{1, 1}})
	w.players.Commit()
	w.rebuildCollisionMap()

	w.StepPlayer(pid, mapdata.DirUp) // blocked by wall row
	p := w.players.Find(pid)
	if p.Position != (Vec2{1, 1}) {
		t.Fatalf("player moved into solid wall: %v", p.Position)
	}

	w.StepPlayer(pid, mapdata.DirRight)
	p = w.players.Find(pid)
	if p.Position != (Vec2{2, 1}) {
		t.Fatalf("player should move right into open space, got %v", p.Position)
	}
}

func TestSnapshotHidesDisguiseFromEnemiesOnly(t *testing.T) {
	m := blankMap(t, "     \n     \n")
	w := New(m, nil)

	redId, _ := w.players.Reserve(Player{Team: TeamRed, Alive: true, Disguised: true, DisguisedTeam: TeamBlue, MaxHealth: 100, Health: 100})
	blueId, _ := w.players.Reserve(Player{Team: TeamBlue, Alive: true, MaxHealth: 100, Health: 100})
	w.players.Commit()

	blueSnap := w.TakeSnapshot(blueId)
	var sawRed PlayerView
	for _, pv := range blueSnap.Players {
		if pv.Id == redId {
			sawRed = pv
		}
	}
	if sawRed.Team != TeamBlue {
		t.Fatalf("enemy should see disguised player as %v, got %v", TeamBlue, sawRed.Team)
	}
}

func TestRegistryStabilityAcrossErase(t *testing.T) {
	m := blankMap(t, "   \n")
	w := New(m, nil)
	id, _ := w.players.Reserve(Player{Alive: true})
	w.players.Commit()
	w.players.Erase(id)
	if w.players.Find(id) != nil {
		t.Fatal("erased player should not be findable before commit clears the id slot")
	}
	w.players.Commit()
	if w.players.Find(id) != nil {
		t.Fatal("erased player should never reappear")
	}
}
