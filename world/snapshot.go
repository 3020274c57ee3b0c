package world

// PlayerView is what Snapshot exposes for a player other than its owner:
// enemy class is hidden, and a disguised player appears as the opposing
// team to enemies only.
type PlayerView struct {
	Id       PlayerId
	Name     string
	Team     Team
	Position Vec2
	Health   int
	Alive    bool
}

type ProjectileView struct {
	Id       ProjectileId
	Team     Team
	Position Vec2
}

type ExplosionView struct {
	Id       ExplosionId
	Position Vec2
}

type SentryGunView struct {
	Id       SentryGunId
	Team     Team
	Position Vec2
	Health   int
}

type MedkitView struct {
	Id       MedkitId
	Position Vec2
	Alive    bool
}

type AmmopackView struct {
	Id       AmmopackId
	Position Vec2
	Alive    bool
}

type FlagView struct {
	Id       FlagId
	Team     Team
	Position Vec2
	Carried  bool
	Score    int
}

type PayloadCartView struct {
	Id                PayloadCartId
	Team              Team
	Position          Vec2
	CurrentTrackIndex int
}

type GenericEntityView struct {
	Id       GenericEntityId
	Position Vec2
}

type CorpseView struct {
	Id       PlayerId
	Team     Team
	Position Vec2
}

// Snapshot is the immutable, value-type view of World state transmitted to
// one player: self-player full state, per-team visible
// player state, and lists of every other visible entity kind.
type Snapshot struct {
	Self PlayerView

	Players     []PlayerView
	Projectiles []ProjectileView
	Explosions  []ExplosionView
	SentryGuns  []SentryGunView
	Medkits     []MedkitView
	Ammopacks   []AmmopackView
	Flags       []FlagView
	Carts       []PayloadCartView
	Generic     []GenericEntityView
	Corpses     []CorpseView
}

// effectiveTeam is the team a viewer sees for a player: true team, unless
// that player is disguised and the viewer is on an opposing team, in which
// case the disguise team is shown instead.
func effectiveTeam(p *Player, viewerTeam Team) Team {
	if p.Disguised && p.Team != viewerTeam {
		return p.DisguisedTeam
	}
	return p.Team
}

// TakeSnapshot assembles the value-type view for pid. Returns
// the zero Snapshot if pid is not a live player.
func (w *World) TakeSnapshot(pid PlayerId) Snapshot {
	self := w.players.Find(pid)
	if self == nil {
		return Snapshot{}
	}
	viewerTeam := self.Team

	snap := Snapshot{
		Self: PlayerView{Id: pid, Name: self.Name, Team: self.Team, Position: self.Position, Health: self.Health, Alive: self.Alive},
	}

	w.players.Live(func(id PlayerId, p *Player) {
		if id == pid {
			if !p.Alive {
				snap.Corpses = append(snap.Corpses, CorpseView{Id: id, Team: p.Team, Position: p.Position})
			}
			return
		}
		if !p.Alive {
			snap.Corpses = append(snap.Corpses, CorpseView{Id: id, Team: p.Team, Position: p.Position})
			return
		}
		snap.Players = append(snap.Players, PlayerView{
			Id:       id,
			Name:     p.Name,
			Team:     effectiveTeam(p, viewerTeam),
			Position: p.Position,
			Health:   p.Health,
			Alive:    p.Alive,
		})
	})

	w.projectiles.Live(func(id ProjectileId, p *Projectile) {
		snap.Projectiles = append(snap.Projectiles, ProjectileView{Id: id, Team: p.Team, Position: p.Position})
	})
	w.explosions.Live(func(id ExplosionId, e *Explosion) {
		snap.Explosions = append(snap.Explosions, ExplosionView{Id: id, Position: e.Position})
	})
	w.sentryGuns.Live(func(id SentryGunId, s *SentryGun) {
		snap.SentryGuns = append(snap.SentryGuns, SentryGunView{Id: id, Team: s.Team, Position: s.Position, Health: s.Health})
	})
	w.medkits.Live(func(id MedkitId, m *Medkit) {
		snap.Medkits = append(snap.Medkits, MedkitView{Id: id, Position: m.Position, Alive: m.Alive})
	})
	w.ammopacks.Live(func(id AmmopackId, a *Ammopack) {
		snap.Ammopacks = append(snap.Ammopacks, AmmopackView{Id: id, Position: a.Position, Alive: a.Alive})
	})
	w.flags.Live(func(id FlagId, f *Flag) {
		snap.Flags = append(snap.Flags, FlagView{Id: id, Team: f.Team, Position: f.Position, Carried: f.Carried, Score: f.Score})
	})
	w.carts.Live(func(id PayloadCartId, c *PayloadCart) {
		snap.Carts = append(snap.Carts, PayloadCartView{
			Id:                id,
			Team:              c.Team,
			Position:          c.TrackPosition(w.cartTrack(c.Team)),
			CurrentTrackIndex: c.CurrentTrackIndex,
		})
	})
	w.genericEntities.Live(func(id GenericEntityId, g *GenericEntity) {
		snap.Generic = append(snap.Generic, GenericEntityView{Id: id, Position: g.Position})
	})

	return snap
}
