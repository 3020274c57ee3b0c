package world

import (
	"time"

	"github.com/fortress-go/core/mapdata"
	"github.com/fortress-go/core/registry"
)

// Vec2 is an entity position in map grid cells.
type Vec2 struct{ X, Y int16 }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Grid converts v to the mapdata package's plain-int grid coordinate.
func (v Vec2) Grid() mapdata.Vec2 { return mapdata.Vec2{X: int(v.X), Y: int(v.Y)} }

func fromGrid(p mapdata.Vec2) Vec2 { return Vec2{X: int16(p.X), Y: int16(p.Y)} }

// Id aliases registry.Id per-kind so signatures document which registry a
// key belongs to; every entity kind draws from its own registry's id
// space.
type (
	PlayerId        = registry.Id
	ProjectileId    = registry.Id
	ExplosionId     = registry.Id
	SentryGunId     = registry.Id
	MedkitId        = registry.Id
	AmmopackId      = registry.Id
	GenericEntityId = registry.Id
	FlagId          = registry.Id
	PayloadCartId   = registry.Id
)

// Countdown is a simple one-shot timer.
type Countdown struct {
	deadline time.Time
	active   bool
}

func (c *Countdown) Start(d time.Duration) { c.deadline = time.Now().Add(d); c.active = true }
func (c *Countdown) Reset()                { *c = Countdown{} }
func (c Countdown) Active() bool           { return c.active }
func (c Countdown) Done(now time.Time) bool {
	return c.active && !now.Before(c.deadline)
}

// Player is the avatar a connected client controls.
type Player struct {
	Name   string
	Team   Team
	Position Vec2
	Health   int
	MaxHealth int
	Alive    bool
	Disguised      bool
	DisguisedTeam  Team
	Noclip   bool

	RespawnCountdown Countdown
	Respawning       bool

	Score int
}

// Projectile is a moving, owner-tagged hazard (rockets, grenades, ...).
type Projectile struct {
	Owner    PlayerId
	Team     Team
	Position Vec2
	Velocity Vec2
	Lifetime Countdown
}

// Explosion is a short-lived area-of-effect hazard; it contributes nine
// cells (a radius-1 square) to the collision map.
type Explosion struct {
	Owner    PlayerId
	Team     Team
	Position Vec2
	Expiry   Countdown
}

// SentryGun is a placed, auto-firing structure.
type SentryGun struct {
	Owner    PlayerId
	Team     Team
	Position Vec2
	Health   int
	ShootCountdown Countdown
}

// Medkit is a respawning pickup that heals a player below class max health.
type Medkit struct {
	Position        Vec2
	Alive           bool
	RespawnCountdown Countdown
}

// Ammopack is a respawning pickup that resupplies ammo.
type Ammopack struct {
	Position        Vec2
	Alive           bool
	RespawnCountdown Countdown
}

// Solid flag bits for GenericEntity.SolidFlags, naming which categories of
// environment/entity the piece collides with.
const (
	SolidWorld Solid = 1 << iota
	SolidRedEnvironment
	SolidBlueEnvironment
	SolidPlayers
)

type Solid uint8

// GenericEntity owns a small tile matrix (a movable prop/vehicle chassis)
// and a bitset naming which environment categories it collides with.
type GenericEntity struct {
	Position   Vec2
	Velocity   Vec2
	SolidFlags Solid
	Tiles      mapdata.TileMatrix
}

// Flag is a capturable team objective; carried/score state is part of
// every snapshot.
type Flag struct {
	Team       Team
	Position   Vec2
	SpawnPosition Vec2
	Carrier    PlayerId
	Carried    bool
	Score      int
}

// PayloadCart tracks progress along one of Map's ordered track paths.
type PayloadCart struct {
	Team             Team
	CurrentTrackIndex int
	PushTimer        Countdown
}

// TrackPosition returns the cart's current world position by indexing into
// track (the map's RedCartPath/BlueCartPath for this cart's team).
func (c PayloadCart) TrackPosition(track []mapdata.Vec2) Vec2 {
	if c.CurrentTrackIndex < 0 || c.CurrentTrackIndex >= len(track) {
		return Vec2{}
	}
	return fromGrid(track[c.CurrentTrackIndex])
}
