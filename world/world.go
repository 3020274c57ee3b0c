// Package world implements the authoritative simulation: per-kind entity
// registries with a shared commit barrier, a collision index rebuilt
// every tick, pairwise collision dispatch, movement/clipping against a
// mapdata.Map, and per-player snapshot assembly. The weapons/classes/
// scoring game-rules layer stays an external collaborator reached through
// the Server interface below.
package world

import (
	"time"

	"github.com/fortress-go/core/mapdata"
	"github.com/fortress-go/core/registry"
)

// Server is the set of hooks a game-rules layer built on top of World
// must satisfy. World never makes balance decisions itself; it only calls
// out at round-lifecycle transitions.
type Server interface {
	OnRoundWon(team Team)
	OnStalemate()
	OnMapStart()
	OnMapEnd()
	OnRoundReset()
}

// World is the authoritative per-tick simulation state. It owns every
// entity registry, the collision map, and round-lifecycle bookkeeping; it
// is driven entirely by Update: single-threaded, cooperative, no internal
// goroutines.
type World struct {
	mp     mapdata.Map
	server Server

	players         *registry.Registry[Player]
	projectiles     *registry.Registry[Projectile]
	explosions      *registry.Registry[Explosion]
	sentryGuns      *registry.Registry[SentryGun]
	medkits         *registry.Registry[Medkit]
	ammopacks       *registry.Registry[Ammopack]
	genericEntities *registry.Registry[GenericEntity]
	flags           *registry.Registry[Flag]
	carts           *registry.Registry[PayloadCart]

	collisionMap CollisionMap

	tickCount   uint64
	mapTime     time.Duration
	roundsPlayed int

	teamSwitchCountdown Countdown
	roundCountdown      Countdown

	respawnIndexRed  int
	respawnIndexBlue int

	// Round-state tunables, exposed as plain fields for the owner's
	// console/cvar layer to drive.
	WinLimit                 int
	RoundLimit                int
	TimeLimit                 time.Duration
	SwitchTeamsBetweenRounds bool
	RoundEndDelay            time.Duration
}

// New constructs a World over a loaded map. server may be nil if no
// game-rules layer is attached (e.g. a unit test exercising only movement
// and collision).
func New(mp mapdata.Map, server Server) *World {
	return &World{
		mp:              mp,
		server:          server,
		players:         registry.New[Player](),
		projectiles:     registry.New[Projectile](),
		explosions:      registry.New[Explosion](),
		sentryGuns:      registry.New[SentryGun](),
		medkits:         registry.New[Medkit](),
		ammopacks:       registry.New[Ammopack](),
		genericEntities: registry.New[GenericEntity](),
		flags:           registry.New[Flag](),
		carts:           registry.New[PayloadCart](),
		collisionMap:    make(CollisionMap),
		RoundEndDelay:   5 * time.Second,
	}
}

func (w *World) Map() mapdata.Map { return w.mp }
func (w *World) TickCount() uint64 { return w.tickCount }
func (w *World) MapTime() time.Duration { return w.mapTime }
func (w *World) RoundsPlayed() int { return w.roundsPlayed }

func (w *World) Players() *registry.Registry[Player]                 { return w.players }
func (w *World) Projectiles() *registry.Registry[Projectile]         { return w.projectiles }
func (w *World) Explosions() *registry.Registry[Explosion]           { return w.explosions }
func (w *World) SentryGuns() *registry.Registry[SentryGun]           { return w.sentryGuns }
func (w *World) Medkits() *registry.Registry[Medkit]                 { return w.medkits }
func (w *World) Ammopacks() *registry.Registry[Ammopack]             { return w.ammopacks }
func (w *World) GenericEntities() *registry.Registry[GenericEntity] { return w.genericEntities }
func (w *World) Flags() *registry.Registry[Flag]                     { return w.flags }
func (w *World) Carts() *registry.Registry[PayloadCart]             { return w.carts }

// EntityCounts reports the live population of every entity kind, keyed by
// name, for metrics scraping (metrics.WorldStats).
func (w *World) EntityCounts() map[string]int {
	return map[string]int{
		"player":         w.players.Len(),
		"projectile":     w.projectiles.Len(),
		"explosion":      w.explosions.Len(),
		"sentry_gun":     w.sentryGuns.Len(),
		"medkit":         w.medkits.Len(),
		"ammopack":       w.ammopacks.Len(),
		"generic_entity": w.genericEntities.Len(),
		"flag":           w.flags.Len(),
		"payload_cart":   w.carts.Len(),
	}
}

// Update runs one tick: commit every registry in a fixed order, rebuild
// the collision map, step every per-kind update, then
// advance round-state timers. Commit is the only point mid-tick where
// registry iterators may be invalidated; no update method below may
// trigger one.
func (w *World) Update(dt time.Duration) {
	w.tickCount++
	w.mapTime += dt

	w.players.Commit()
	w.projectiles.Commit()
	w.explosions.Commit()
	w.sentryGuns.Commit()
	w.medkits.Commit()
	w.ammopacks.Commit()
	w.genericEntities.Commit()
	w.flags.Commit()
	w.carts.Commit()

	w.rebuildCollisionMap()

	w.updatePlayers()
	w.updateProjectiles(dt)
	w.updateExplosions()
	w.updateSentryGuns(dt)
	w.updateMedkits()
	w.updateAmmopacks()
	w.updateGenericEntities()
	w.updateCarts(dt)

	w.updateRoundState(dt)
}

// updatePlayers respawns every player whose respawn countdown has run out.
// Movement itself is input-driven (StepPlayer), so this is the only
// tick-side player bookkeeping.
func (w *World) updatePlayers() {
	now := time.Now()
	for _, e := range w.players.Stable() {
		if e.Slot == nil {
			continue
		}
		if e.Slot.Respawning && e.Slot.RespawnCountdown.Done(now) {
			w.respawnPlayer(e.Id)
		}
	}
}

// respawnPlayer revives a player at the next spawn point for its team,
// round-robining through the map's spawn list.
func (w *World) respawnPlayer(id PlayerId) {
	p := w.players.Find(id)
	if p == nil {
		return
	}
	p.Respawning = false
	p.RespawnCountdown.Reset()
	p.Alive = true
	p.Health = p.MaxHealth
	switch p.Team {
	case TeamRed:
		w.TeleportPlayerToSpawn(id, &w.respawnIndexRed)
	case TeamBlue:
		w.TeleportPlayerToSpawn(id, &w.respawnIndexBlue)
	}
}

func (w *World) updateProjectiles(dt time.Duration) {
	for _, e := range w.projectiles.Stable() {
		if e.Slot == nil {
			continue
		}
		w.stepProjectile(e.Id, e.Slot.Velocity)
		if e.Slot = w.projectiles.Find(e.Id); e.Slot == nil {
			continue
		}
		if e.Slot.Lifetime.Done(time.Now()) {
			w.projectiles.Erase(e.Id)
		}
	}
}

func (w *World) stepProjectile(id ProjectileId, velocity Vec2) {
	p := w.projectiles.Find(id)
	if p == nil {
		return
	}
	destination := p.Position.Add(velocity)
	if p.Position == destination {
		return
	}
	p.Position = destination
	w.checkCollisions(EntityRef{KindProjectile, id}, p.Position)
}

func (w *World) updateExplosions() {
	now := time.Now()
	for _, e := range w.explosions.Stable() {
		if e.Slot == nil {
			continue
		}
		for dy := int16(-1); dy <= 1; dy++ {
			for dx := int16(-1); dx <= 1; dx++ {
				w.checkCollisions(EntityRef{KindExplosion, e.Id}, Vec2{e.Slot.Position.X + dx, e.Slot.Position.Y + dy})
				if w.explosions.Find(e.Id) == nil {
					break
				}
			}
		}
		if e.Slot = w.explosions.Find(e.Id); e.Slot != nil && e.Slot.Expiry.Done(now) {
			w.explosions.Erase(e.Id)
		}
	}
}

func (w *World) updateSentryGuns(dt time.Duration) {
	now := time.Now()
	for _, e := range w.sentryGuns.Stable() {
		if e.Slot == nil {
			continue
		}
		if e.Slot.ShootCountdown.Done(now) {
			e.Slot.ShootCountdown.Start(sentryFireInterval)
			w.sentryFire(e.Id)
		}
	}
}

// sentryFire spawns a projectile aimed at the nearest enemy player in line
// of sight, the stripped-down analogue of World's full targeting/weapon
// logic (the actual weapon balance stays in the out-of-scope game-rules
// layer; this is the hook point it would call through).
func (w *World) sentryFire(id SentryGunId) {
	s := w.sentryGuns.Find(id)
	if s == nil {
		return
	}
	var target *Player
	var targetPos Vec2
	bestDist := -1
	w.players.Live(func(_ PlayerId, p *Player) {
		if !p.Alive || p.Team == s.Team {
			return
		}
		if !w.mp.LineOfSight(s.Position.Grid(), p.Position.Grid()) {
			return
		}
		dx, dy := int(p.Position.X-s.Position.X), int(p.Position.Y-s.Position.Y)
		dist := dx*dx + dy*dy
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			target = p
			targetPos = p.Position
		}
	})
	if target == nil {
		return
	}
	velocity := aimVelocity(s.Position, targetPos)
	id2, _ := w.projectiles.Reserve(Projectile{Team: s.Team, Position: s.Position, Velocity: velocity})
	_ = id2
}

func aimVelocity(from, to Vec2) Vec2 {
	dx, dy := to.X-from.X, to.Y-from.Y
	clamp := func(v int16) int16 {
		if v > 1 {
			return 1
		}
		if v < -1 {
			return -1
		}
		return v
	}
	return Vec2{clamp(dx), clamp(dy)}
}

func (w *World) updateMedkits() {
	now := time.Now()
	for _, e := range w.medkits.Stable() {
		if e.Slot == nil || e.Slot.Alive {
			continue
		}
		if e.Slot.RespawnCountdown.Done(now) {
			e.Slot.Alive = true
			e.Slot.RespawnCountdown.Reset()
		}
	}
}

func (w *World) updateAmmopacks() {
	now := time.Now()
	for _, e := range w.ammopacks.Stable() {
		if e.Slot == nil || e.Slot.Alive {
			continue
		}
		if e.Slot.RespawnCountdown.Done(now) {
			e.Slot.Alive = true
			e.Slot.RespawnCountdown.Reset()
		}
	}
}

// maxMoveStepsPerFrame bounds a single generic entity's Bresenham step
// walk per tick so a runaway velocity cannot stall the tick.
const maxMoveStepsPerFrame = 64

func (w *World) updateGenericEntities() {
	for _, e := range w.genericEntities.Stable() {
		if e.Slot == nil {
			continue
		}
		w.stepGenericEntity(e.Id, 0)
	}
}

// stepGenericEntity walks a generic entity toward position+velocity one
// grid cell at a time via Bresenham. When a cell is blocked it computes a
// collision normal from which of the horizontal/vertical sub-steps was
// blocked, passes it nowhere, and stops at the previous cell.
func (w *World) stepGenericEntity(id GenericEntityId, steps int) {
	g := w.genericEntities.Find(id)
	if g == nil || g.Velocity == (Vec2{}) {
		return
	}

	position := g.Position
	velocity := g.Velocity
	destination := position.Add(velocity)
	red := g.SolidFlags&SolidRedEnvironment == 0
	blue := g.SolidFlags&SolidBlueEnvironment == 0
	noclip := g.SolidFlags&SolidWorld == 0
	moveDirection := mapdata.DirectionFromVector(velocity.Grid())

	dx, dy := abs16(velocity.X), abs16(velocity.Y)
	sx, sy := int16(1), int16(1)
	if velocity.X < 0 {
		sx = -1
	}
	if velocity.Y < 0 {
		sy = -1
	}
	var err int16
	if dx > dy {
		err = dx / 2
	} else {
		err = -dy / 2
	}

	for position != destination {
		if steps >= maxMoveStepsPerFrame {
			return
		}
		steps++
		previous := g.Position
		e2 := err
		if e2 > -dx {
			err -= dy
			position.X += sx
		}
		if e2 < dy {
			err += dx
			position.Y += sy
		}
		g.Position = position

		if !w.canMove(red, blue, noclip, position, moveDirection) {
			canMoveHorizontal := w.canMove(red, blue, noclip, Vec2{position.X, previous.Y}, moveDirection)
			canMoveVertical := w.canMove(red, blue, noclip, Vec2{previous.X, position.Y}, moveDirection)
			normal := Vec2{-velocity.X, -velocity.Y}
			if canMoveHorizontal && !canMoveVertical {
				normal.X = 0
			} else if canMoveVertical && !canMoveHorizontal {
				normal.Y = 0
			}
			_ = normal // a script hook would consume the collision normal; no scripting layer here
			g.Position = previous
			return
		}

		w.checkCollisions(EntityRef{KindGenericEntity, id}, position)
		if g = w.genericEntities.Find(id); g == nil {
			return
		}
		if g.Position != position {
			return
		}
		if g.Velocity != velocity {
			g.Position = previous
			w.stepGenericEntity(id, steps)
			return
		}
	}
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func (w *World) cartTrack(team Team) []mapdata.Vec2 {
	if team == TeamRed {
		return w.mp.RedCartPath()
	}
	return w.mp.BlueCartPath()
}

func (w *World) updateCarts(dt time.Duration) {
	now := time.Now()
	for _, e := range w.carts.Stable() {
		if e.Slot == nil {
			continue
		}
		track := w.cartTrack(e.Slot.Team)
		if len(track) == 0 || e.Slot.CurrentTrackIndex >= len(track)-1 {
			continue
		}
		if len(w.playersPushingCart(e.Id)) == 0 {
			continue
		}
		if !e.Slot.PushTimer.Done(now) {
			continue
		}
		e.Slot.PushTimer.Start(cartPushInterval)
		e.Slot.CurrentTrackIndex++
		w.checkCollisions(EntityRef{KindPayloadCart, e.Id}, e.Slot.TrackPosition(track))
	}
}

// playersPushingCart returns every living, non-disguised player of the
// cart's own team standing within a 5x5 box around its current track cell;
// any enemy presence in that box clears the list entirely.
func (w *World) playersPushingCart(id PayloadCartId) []PlayerId {
	c := w.carts.Find(id)
	if c == nil {
		return nil
	}
	track := w.cartTrack(c.Team)
	pos := c.TrackPosition(track)

	var pushing []PlayerId
	blocked := false
	w.players.Live(func(pid PlayerId, p *Player) {
		if !p.Alive {
			return
		}
		if int16(abs16(p.Position.X-pos.X)) > 2 || int16(abs16(p.Position.Y-pos.Y)) > 2 {
			return
		}
		if p.Team == c.Team {
			if !p.Disguised {
				pushing = append(pushing, pid)
			}
		} else {
			blocked = true
		}
	})
	if blocked {
		return nil
	}
	return pushing
}

func (w *World) updateRoundState(dt time.Duration) {
	now := time.Now()
	if w.roundCountdown.Active() && w.roundCountdown.Done(now) {
		w.roundCountdown.Reset()
		w.mapTime = 0
	}
	if w.teamSwitchCountdown.Active() && w.teamSwitchCountdown.Done(now) {
		w.teamSwitchCountdown.Reset()
		w.switchTeams()
	}
	if w.TimeLimit > 0 && w.mapTime >= w.TimeLimit && !w.roundCountdown.Active() {
		w.Stalemate()
	}
}

func (w *World) switchTeams() {
	for _, e := range w.players.Stable() {
		if e.Slot == nil {
			continue
		}
		if e.Slot.Team == TeamRed {
			e.Slot.Team = TeamBlue
		} else if e.Slot.Team == TeamBlue {
			e.Slot.Team = TeamRed
		}
	}
}

// killPlayer marks a player dead and starts its respawn countdown; the
// scoring/sound/chat side effects stay in the game-rules layer.
func (w *World) killPlayer(id PlayerId) {
	p := w.players.Find(id)
	if p == nil || !p.Alive {
		return
	}
	p.Alive = false
	p.Respawning = true
	p.RespawnCountdown.Start(playerRespawnDelay)
	for _, e := range w.flags.Stable() {
		if e.Slot != nil && e.Slot.Carried && e.Slot.Carrier == id {
			w.returnFlag(e.Id)
		}
	}
}

// returnFlag resets a flag to its spawn, clearing any carry state.
func (w *World) returnFlag(id FlagId) {
	f := w.flags.Find(id)
	if f == nil {
		return
	}
	f.Carried = false
	f.Carrier = 0
	f.Position = f.SpawnPosition
}

const (
	sentryFireInterval = 800 * time.Millisecond
	cartPushInterval   = 200 * time.Millisecond
	playerRespawnDelay = 5 * time.Second
)

// Reset clears every registry and round timer, leaving the map itself
// loaded.
func (w *World) Reset() {
	if w.server != nil {
		w.server.OnMapEnd()
	}
	w.tickCount = 0
	w.mapTime = 0
	w.roundsPlayed = 0
	w.players.Clear()
	w.projectiles.Clear()
	w.explosions.Clear()
	w.sentryGuns.Clear()
	w.medkits.Clear()
	w.ammopacks.Clear()
	w.genericEntities.Clear()
	w.flags.Clear()
	w.carts.Clear()
	w.collisionMap = make(CollisionMap)
	w.roundCountdown.Reset()
	w.teamSwitchCountdown.Reset()
}

// StartMap runs map-start hooks and begins the first round.
func (w *World) StartMap() {
	if w.server != nil {
		w.server.OnMapStart()
	}
	w.StartRound(0)
}

// ResetRound resets flags/carts/sentries/players/pickups to round-start
// state, in a fixed registry order, then begins the next round.
func (w *World) ResetRound() {
	if w.server != nil {
		w.server.OnRoundReset()
	}
	for _, e := range w.flags.Stable() {
		if e.Slot == nil {
			continue
		}
		e.Slot.Score = 0
		w.returnFlag(e.Id)
	}
	for _, e := range w.carts.Stable() {
		if e.Slot == nil {
			continue
		}
		e.Slot.CurrentTrackIndex = 0
		e.Slot.PushTimer.Reset()
	}
	for _, e := range w.sentryGuns.Stable() {
		if e.Slot != nil {
			w.sentryGuns.Erase(e.Id)
		}
	}
	for _, e := range w.players.Stable() {
		if e.Slot == nil {
			continue
		}
		if e.Slot.Alive {
			w.killPlayer(e.Id)
			if p := w.players.Find(e.Id); p != nil {
				p.RespawnCountdown.Start(w.RoundEndDelay)
				p.Respawning = true
			}
		} else if e.Slot.Team != TeamNone && e.Slot.Team != TeamSpectators {
			e.Slot.RespawnCountdown.Start(w.RoundEndDelay)
			e.Slot.Respawning = true
		}
	}
	for _, e := range w.medkits.Stable() {
		if e.Slot != nil {
			e.Slot.RespawnCountdown.Reset()
			e.Slot.Alive = true
		}
	}
	for _, e := range w.ammopacks.Stable() {
		if e.Slot != nil {
			e.Slot.RespawnCountdown.Reset()
			e.Slot.Alive = true
		}
	}
	w.StartRound(w.RoundEndDelay)
}

// StartRound begins the round countdown after delay.
func (w *World) StartRound(delay time.Duration) {
	w.roundCountdown.Start(delay)
}

// Win awards round-win/lose scores by team, then resets the round.
func (w *World) Win(team Team) {
	w.roundsPlayed++
	if w.server != nil {
		w.server.OnRoundWon(team)
	}
	w.players.Live(func(_ PlayerId, p *Player) {
		if p.Team == team {
			p.Score += scoreWin
		} else if p.Team != TeamSpectators {
			p.Score += scoreLose
		}
	})
	w.ResetRound()
	if w.SwitchTeamsBetweenRounds {
		w.teamSwitchCountdown.Start(w.RoundEndDelay * 3 / 4)
	}
}

// Stalemate resets the round with no score change.
func (w *World) Stalemate() {
	w.roundsPlayed++
	if w.server != nil {
		w.server.OnStalemate()
	}
	w.ResetRound()
	if w.SwitchTeamsBetweenRounds {
		w.teamSwitchCountdown.Start(w.RoundEndDelay * 3 / 4)
	}
}

const (
	scoreWin  = 5
	scoreLose = -2
)

// canTeleport reports whether destination is a valid teleport target:
// always valid in noclip within map bounds, otherwise ordinary solidity.
func (w *World) canTeleport(red, blue, noclip bool, destination Vec2) bool {
	g := destination.Grid()
	if noclip && g.X >= 0 && g.X < w.mp.Width() && g.Y >= 0 && g.Y < w.mp.Height() {
		return true
	}
	return !w.mp.IsSolid(g, red, blue)
}

// canMove is Map solidity with respect to one-way tiles plus
// respawn-room visualizers, honoring noclip.
func (w *World) canMove(red, blue, noclip bool, destination Vec2, moveDirection mapdata.Direction) bool {
	g := destination.Grid()
	if noclip && g.X >= 0 && g.X < w.mp.Width() && g.Y >= 0 && g.Y < w.mp.Height() {
		return true
	}
	return !w.mp.IsSolidDir(g, red, blue, moveDirection)
}

// getClippedMovementDestination tries the full diagonal step first; on
// block, it tries the horizontal-only and vertical-only sub-steps. When
// both are blocked the step is refused and position is returned
// unchanged.
func (w *World) getClippedMovementDestination(position Vec2, red, blue, noclip bool, moveDirection mapdata.Direction) Vec2 {
	moveVector := directionVector(moveDirection)
	if moveVector == (Vec2{}) {
		return position
	}
	destination := position.Add(moveVector)
	if w.canMove(red, blue, noclip, destination, moveDirection) {
		return destination
	}

	horizontal := moveDirection.Horizontal()
	vertical := moveDirection.Vertical()
	horizontalDestination := Vec2{destination.X, position.Y}
	verticalDestination := Vec2{position.X, destination.Y}

	xBlocked := !w.canMove(red, blue, noclip, horizontalDestination, horizontal)
	yBlocked := !w.canMove(red, blue, noclip, verticalDestination, vertical)
	switch {
	case xBlocked && !yBlocked:
		return verticalDestination
	case yBlocked && !xBlocked:
		return horizontalDestination
	default:
		return position
	}
}

func directionVector(d mapdata.Direction) Vec2 {
	var v Vec2
	if d.HasUp() {
		v.Y--
	}
	if d.HasDown() {
		v.Y++
	}
	if d.HasLeft() {
		v.X--
	}
	if d.HasRight() {
		v.X++
	}
	return v
}

// StepPlayer moves a player one cell in moveDirection, clipped against
// map solidity, and dispatches collisions at the new position.
func (w *World) StepPlayer(id PlayerId, moveDirection mapdata.Direction) {
	p := w.players.Find(id)
	if p == nil {
		return
	}
	destination := w.getClippedMovementDestination(p.Position, p.Team == TeamRed, p.Team == TeamBlue, p.Noclip, moveDirection)
	if p.Position != destination {
		p.Position = destination
		w.checkCollisions(EntityRef{KindPlayer, id}, p.Position)
	}
}

// TeleportPlayer moves a player directly to destination if it is a valid
// teleport target, returning whether the move happened.
func (w *World) TeleportPlayer(id PlayerId, destination Vec2) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	if !w.canTeleport(p.Team == TeamRed, p.Team == TeamBlue, p.Noclip, destination) {
		return false
	}
	p.Position = destination
	w.checkCollisions(EntityRef{KindPlayer, id}, p.Position)
	return true
}

// TeleportPlayerToSpawn teleports a player to the next spawn point for
// its team, round-robining through the map's spawn list. Returns false if
// the team has no spawns.
func (w *World) TeleportPlayerToSpawn(id PlayerId, spawnIndex *int) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	var spawns []mapdata.Vec2
	switch p.Team {
	case TeamRed:
		spawns = w.mp.RedSpawns()
	case TeamBlue:
		spawns = w.mp.BlueSpawns()
	}
	if len(spawns) == 0 {
		return false
	}
	point := fromGrid(spawns[*spawnIndex%len(spawns)])
	*spawnIndex++
	return w.TeleportPlayer(id, point)
}
