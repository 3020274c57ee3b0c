package world

import (
	"time"

	"github.com/fortress-go/core/registry"
)

// Kind tags which registry an EntityRef points into. The collision
// dispatch table below is keyed by a canonicalized (Kind, Kind) pair:
// tagged values with a match-dispatched handler table, no vtables, no
// dynamic allocation.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindProjectile
	KindExplosion
	KindSentryGun
	KindMedkit
	KindAmmopack
	KindGenericEntity
	KindFlag
	KindPayloadCart
	numKinds
)

// EntityRef is a tagged, non-owning handle to a live entity slot:
// valid only until the next commit rebuilds the collision map.
type EntityRef struct {
	Kind Kind
	Id   registry.Id
}

// CollisionMap maps a grid cell to every entity occupying it this tick,
// rebuilt from scratch at the start of every tick.
type CollisionMap map[Vec2][]EntityRef

func (m CollisionMap) add(p Vec2, ref EntityRef) {
	m[p] = append(m[p], ref)
}

// rebuild clears and repopulates the collision map from every live
// entity, in a fixed container order: players, projectiles, explosions
// (nine cells each), sentry
// guns, medkits, ammopacks, generic entities (one cell per non-air tile),
// flags, carts (current track cell).
func (w *World) rebuildCollisionMap() {
	for k := range w.collisionMap {
		delete(w.collisionMap, k)
	}

	w.players.Live(func(id PlayerId, p *Player) {
		w.collisionMap.add(p.Position, EntityRef{KindPlayer, id})
	})
	w.projectiles.Live(func(id ProjectileId, p *Projectile) {
		w.collisionMap.add(p.Position, EntityRef{KindProjectile, id})
	})
	w.explosions.Live(func(id ExplosionId, e *Explosion) {
		for dy := int16(-1); dy <= 1; dy++ {
			for dx := int16(-1); dx <= 1; dx++ {
				w.collisionMap.add(Vec2{e.Position.X + dx, e.Position.Y + dy}, EntityRef{KindExplosion, id})
			}
		}
	})
	w.sentryGuns.Live(func(id SentryGunId, s *SentryGun) {
		w.collisionMap.add(s.Position, EntityRef{KindSentryGun, id})
	})
	w.medkits.Live(func(id MedkitId, m *Medkit) {
		w.collisionMap.add(m.Position, EntityRef{KindMedkit, id})
	})
	w.ammopacks.Live(func(id AmmopackId, a *Ammopack) {
		w.collisionMap.add(a.Position, EntityRef{KindAmmopack, id})
	})
	w.genericEntities.Live(func(id GenericEntityId, g *GenericEntity) {
		tiles := g.Tiles
		for y := 0; y < tiles.Height(); y++ {
			for x := 0; x < tiles.Width(); x++ {
				if tiles.Get(x, y, ' ') == ' ' {
					continue
				}
				cell := Vec2{g.Position.X + int16(x), g.Position.Y + int16(y)}
				w.collisionMap.add(cell, EntityRef{KindGenericEntity, id})
			}
		}
	})
	w.flags.Live(func(id FlagId, f *Flag) {
		w.collisionMap.add(f.Position, EntityRef{KindFlag, id})
	})
	w.carts.Live(func(id PayloadCartId, c *PayloadCart) {
		track := w.cartTrack(c.Team)
		w.collisionMap.add(c.TrackPosition(track), EntityRef{KindPayloadCart, id})
	})
}

// isCollideable reports whether ref is still eligible to participate in
// collision dispatch this tick. A ref can go stale mid-tick if an earlier
// handler erased it; re-fetching through Find is how callers detect that.
func (w *World) isCollideable(ref EntityRef) bool {
	switch ref.Kind {
	case KindPlayer:
		p := w.players.Find(ref.Id)
		return p != nil && p.Alive
	case KindProjectile:
		return w.projectiles.Find(ref.Id) != nil
	case KindExplosion:
		return w.explosions.Find(ref.Id) != nil
	case KindSentryGun:
		s := w.sentryGuns.Find(ref.Id)
		return s != nil && s.Health > 0
	case KindMedkit:
		m := w.medkits.Find(ref.Id)
		return m != nil && m.Alive
	case KindAmmopack:
		a := w.ammopacks.Find(ref.Id)
		return a != nil && a.Alive
	case KindGenericEntity:
		return w.genericEntities.Find(ref.Id) != nil
	case KindFlag:
		return w.flags.Find(ref.Id) != nil
	case KindPayloadCart:
		return w.carts.Find(ref.Id) != nil
	default:
		return false
	}
}

// teamOf returns the team tag of ref, or TeamNone for kinds with no team
// (medkits, ammopacks, generic entities).
func (w *World) teamOf(ref EntityRef) Team {
	switch ref.Kind {
	case KindPlayer:
		if p := w.players.Find(ref.Id); p != nil {
			return p.Team
		}
	case KindProjectile:
		if p := w.projectiles.Find(ref.Id); p != nil {
			return p.Team
		}
	case KindExplosion:
		if e := w.explosions.Find(ref.Id); e != nil {
			return e.Team
		}
	case KindSentryGun:
		if s := w.sentryGuns.Find(ref.Id); s != nil {
			return s.Team
		}
	case KindFlag:
		if f := w.flags.Find(ref.Id); f != nil {
			return f.Team
		}
	case KindPayloadCart:
		if c := w.carts.Find(ref.Id); c != nil {
			return c.Team
		}
	}
	return TeamNone
}

// canCollide enforces the team rules: a projectile
// damages enemies only; a medkit collides with a player only while that
// player's health is below max.
func (w *World) canCollide(self, other EntityRef) bool {
	switch {
	case self.Kind == KindPlayer && other.Kind == KindMedkit:
		p := w.players.Find(self.Id)
		return p != nil && p.Health < p.MaxHealth
	case self.Kind == KindMedkit && other.Kind == KindPlayer:
		p := w.players.Find(other.Id)
		return p != nil && p.Health < p.MaxHealth
	case self.Kind == KindProjectile && other.Kind == KindPlayer,
		self.Kind == KindPlayer && other.Kind == KindProjectile,
		self.Kind == KindProjectile && other.Kind == KindSentryGun,
		self.Kind == KindSentryGun && other.Kind == KindProjectile,
		self.Kind == KindExplosion && other.Kind == KindPlayer,
		self.Kind == KindPlayer && other.Kind == KindExplosion,
		self.Kind == KindExplosion && other.Kind == KindSentryGun,
		self.Kind == KindSentryGun && other.Kind == KindExplosion:
		return w.teamOf(self) != w.teamOf(other)
	case self.Kind == KindPlayer && other.Kind == KindFlag,
		self.Kind == KindFlag && other.Kind == KindPlayer:
		return true
	default:
		return true
	}
}

// collideHandler performs at most one state mutation. Both
// refs have already passed isCollideable/canCollide when this runs.
type collideHandler func(w *World, a, b EntityRef)

// canonical orders (self, other) so each unordered Kind pair has exactly
// one registered handler.
func canonical(a, b EntityRef) (EntityRef, EntityRef) {
	if a.Kind <= b.Kind {
		return a, b
	}
	return b, a
}

var collideTable = buildCollideTable()

func buildCollideTable() map[[2]Kind]collideHandler {
	t := make(map[[2]Kind]collideHandler)
	reg := func(a, b Kind, h collideHandler) { t[[2]Kind{a, b}] = h }

	reg(KindPlayer, KindProjectile, func(w *World, a, b EntityRef) {
		pRef, projRef := a, b
		if a.Kind != KindPlayer {
			pRef, projRef = b, a
		}
		proj := w.projectiles.Find(projRef.Id)
		player := w.players.Find(pRef.Id)
		if proj == nil || player == nil {
			return
		}
		player.Health -= projectileDamage
		w.projectiles.Erase(projRef.Id)
		if player.Health <= 0 {
			w.killPlayer(pRef.Id)
		}
	})

	reg(KindPlayer, KindExplosion, func(w *World, a, b EntityRef) {
		pRef := a
		if a.Kind != KindPlayer {
			pRef = b
		}
		player := w.players.Find(pRef.Id)
		if player == nil {
			return
		}
		player.Health -= explosionDamage
		if player.Health <= 0 {
			w.killPlayer(pRef.Id)
		}
	})

	reg(KindSentryGun, KindProjectile, func(w *World, a, b EntityRef) {
		sRef, projRef := a, b
		if a.Kind != KindSentryGun {
			sRef, projRef = b, a
		}
		sentry := w.sentryGuns.Find(sRef.Id)
		if sentry == nil {
			return
		}
		w.projectiles.Erase(projRef.Id)
		sentry.Health -= projectileDamage
		if sentry.Health <= 0 {
			w.sentryGuns.Erase(sRef.Id)
		}
	})

	reg(KindSentryGun, KindExplosion, func(w *World, a, b EntityRef) {
		sRef := a
		if a.Kind != KindSentryGun {
			sRef = b
		}
		sentry := w.sentryGuns.Find(sRef.Id)
		if sentry == nil {
			return
		}
		sentry.Health -= explosionDamage
		if sentry.Health <= 0 {
			w.sentryGuns.Erase(sRef.Id)
		}
	})

	reg(KindProjectile, KindGenericEntity, func(w *World, a, b EntityRef) {
		projRef := a
		if a.Kind != KindProjectile {
			projRef = b
		}
		if w.projectiles.Find(projRef.Id) != nil {
			w.projectiles.Erase(projRef.Id)
		}
	})

	reg(KindPlayer, KindMedkit, func(w *World, a, b EntityRef) {
		pRef, mRef := a, b
		if a.Kind != KindPlayer {
			pRef, mRef = b, a
		}
		player := w.players.Find(pRef.Id)
		medkit := w.medkits.Find(mRef.Id)
		if player == nil || medkit == nil {
			return
		}
		player.Health = player.MaxHealth
		medkit.Alive = false
		medkit.RespawnCountdown.Start(medkitRespawnDelay)
	})

	reg(KindPlayer, KindAmmopack, func(w *World, a, b EntityRef) {
		aRef := a
		if a.Kind != KindAmmopack {
			aRef = b
		}
		ammo := w.ammopacks.Find(aRef.Id)
		if ammo == nil {
			return
		}
		ammo.Alive = false
		ammo.RespawnCountdown.Start(ammopackRespawnDelay)
	})

	reg(KindPlayer, KindFlag, func(w *World, a, b EntityRef) {
		pRef, fRef := a, b
		if a.Kind != KindPlayer {
			pRef, fRef = b, a
		}
		player := w.players.Find(pRef.Id)
		flag := w.flags.Find(fRef.Id)
		if player == nil || flag == nil {
			return
		}
		if !flag.Carried && player.Team != flag.Team && player.Team != TeamNone && player.Team != TeamSpectators {
			flag.Carried = true
			flag.Carrier = pRef.Id
		} else if flag.Carried && flag.Carrier == pRef.Id && player.Team == flag.Team {
			flag.Score++
			w.returnFlag(fRef.Id)
		}
	})

	return t
}

const (
	projectileDamage   = 25
	explosionDamage    = 50
	medkitRespawnDelay = 20 * time.Second
	ammopackRespawnDelay = 20 * time.Second
)

// checkCollisions walks every cell ref's entity occupies and dispatches
// collide() against each other entity found there, guarded by
// isCollideable/canCollide. It is called once after an
// entity moves (stepPlayer/stepProjectile/stepGenericEntity) and once per
// explosion cell per tick.
func (w *World) checkCollisions(ref EntityRef, cell Vec2) {
	if !w.isCollideable(ref) {
		return
	}
	entities := w.collisionMap[cell]
	for _, other := range entities {
		if other == ref {
			continue
		}
		if !w.isCollideable(ref) {
			return
		}
		if !w.isCollideable(other) {
			continue
		}
		if !w.canCollide(ref, other) {
			continue
		}
		a, b := canonical(ref, other)
		if h, ok := collideTable[[2]Kind{a.Kind, b.Kind}]; ok {
			h(w, a, b)
		}
	}
}
