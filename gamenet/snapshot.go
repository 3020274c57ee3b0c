package gamenet

import (
	"github.com/fortress-go/core/netmsg"
	"github.com/fortress-go/core/world"
)

// Snapshot carries one world.Snapshot to a single player, the wire form of
// World.TakeSnapshot. Encode/Decode walk every view list in a
// fixed order; the length prefix on each is bounds-checked against
// netmsg.MaxContainerLen the same way meta.AddressList guards its entries,
// since a snapshot crosses the wire unauthenticated-length the same as any
// other message.
type Snapshot struct {
	S world.Snapshot
}

func (Snapshot) Category() netmsg.Category { return netmsg.Unreliable }

func putVec2(w *netmsg.Writer, v world.Vec2) {
	w.PutInt16(v.X)
	w.PutInt16(v.Y)
}

func getVec2(r *netmsg.Reader) (world.Vec2, error) {
	x, err := r.GetInt16()
	if err != nil {
		return world.Vec2{}, err
	}
	y, err := r.GetInt16()
	if err != nil {
		return world.Vec2{}, err
	}
	return world.Vec2{X: x, Y: y}, nil
}

func putPlayerView(w *netmsg.Writer, p world.PlayerView) {
	w.PutUint32(uint32(p.Id))
	w.PutString(p.Name)
	w.PutUint8(uint8(p.Team))
	putVec2(w, p.Position)
	w.PutInt32(int32(p.Health))
	w.PutBool(p.Alive)
}

func getPlayerView(r *netmsg.Reader) (world.PlayerView, error) {
	var p world.PlayerView
	id, err := r.GetUint32()
	if err != nil {
		return p, err
	}
	p.Id = world.PlayerId(id)
	if p.Name, err = r.GetString(); err != nil {
		return p, err
	}
	team, err := r.GetUint8()
	if err != nil {
		return p, err
	}
	p.Team = world.Team(team)
	if p.Position, err = getVec2(r); err != nil {
		return p, err
	}
	health, err := r.GetInt32()
	if err != nil {
		return p, err
	}
	p.Health = int(health)
	p.Alive, err = r.GetBool()
	return p, err
}

func (m Snapshot) Encode(w *netmsg.Writer) {
	putPlayerView(w, m.S.Self)

	w.PutUint32(uint32(len(m.S.Players)))
	for _, p := range m.S.Players {
		putPlayerView(w, p)
	}

	w.PutUint32(uint32(len(m.S.Projectiles)))
	for _, p := range m.S.Projectiles {
		w.PutUint32(uint32(p.Id))
		w.PutUint8(uint8(p.Team))
		putVec2(w, p.Position)
	}

	w.PutUint32(uint32(len(m.S.Explosions)))
	for _, e := range m.S.Explosions {
		w.PutUint32(uint32(e.Id))
		putVec2(w, e.Position)
	}

	w.PutUint32(uint32(len(m.S.SentryGuns)))
	for _, s := range m.S.SentryGuns {
		w.PutUint32(uint32(s.Id))
		w.PutUint8(uint8(s.Team))
		putVec2(w, s.Position)
		w.PutInt32(int32(s.Health))
	}

	w.PutUint32(uint32(len(m.S.Medkits)))
	for _, k := range m.S.Medkits {
		w.PutUint32(uint32(k.Id))
		putVec2(w, k.Position)
		w.PutBool(k.Alive)
	}

	w.PutUint32(uint32(len(m.S.Ammopacks)))
	for _, a := range m.S.Ammopacks {
		w.PutUint32(uint32(a.Id))
		putVec2(w, a.Position)
		w.PutBool(a.Alive)
	}

	w.PutUint32(uint32(len(m.S.Flags)))
	for _, f := range m.S.Flags {
		w.PutUint32(uint32(f.Id))
		w.PutUint8(uint8(f.Team))
		putVec2(w, f.Position)
		w.PutBool(f.Carried)
		w.PutInt32(int32(f.Score))
	}

	w.PutUint32(uint32(len(m.S.Carts)))
	for _, c := range m.S.Carts {
		w.PutUint32(uint32(c.Id))
		w.PutUint8(uint8(c.Team))
		putVec2(w, c.Position)
		w.PutInt32(int32(c.CurrentTrackIndex))
	}

	w.PutUint32(uint32(len(m.S.Generic)))
	for _, g := range m.S.Generic {
		w.PutUint32(uint32(g.Id))
		putVec2(w, g.Position)
	}

	w.PutUint32(uint32(len(m.S.Corpses)))
	for _, c := range m.S.Corpses {
		w.PutUint32(uint32(c.Id))
		w.PutUint8(uint8(c.Team))
		putVec2(w, c.Position)
	}
}

// count reads and bounds-checks a length prefix.
func count(r *netmsg.Reader) (uint32, error) {
	n, err := r.GetUint32()
	if err != nil {
		return 0, err
	}
	if n > netmsg.MaxContainerLen {
		return 0, netmsg.ErrLengthPrefix
	}
	return n, nil
}

func (m *Snapshot) Decode(r *netmsg.Reader) error {
	self, err := getPlayerView(r)
	if err != nil {
		return err
	}
	m.S.Self = self

	n, err := count(r)
	if err != nil {
		return err
	}
	m.S.Players = make([]world.PlayerView, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := getPlayerView(r)
		if err != nil {
			return err
		}
		m.S.Players = append(m.S.Players, p)
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Projectiles = make([]world.ProjectileView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		team, err := r.GetUint8()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		m.S.Projectiles = append(m.S.Projectiles, world.ProjectileView{Id: world.ProjectileId(id), Team: world.Team(team), Position: pos})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Explosions = make([]world.ExplosionView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		m.S.Explosions = append(m.S.Explosions, world.ExplosionView{Id: world.ExplosionId(id), Position: pos})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.SentryGuns = make([]world.SentryGunView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		team, err := r.GetUint8()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		health, err := r.GetInt32()
		if err != nil {
			return err
		}
		m.S.SentryGuns = append(m.S.SentryGuns, world.SentryGunView{Id: world.SentryGunId(id), Team: world.Team(team), Position: pos, Health: int(health)})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Medkits = make([]world.MedkitView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		alive, err := r.GetBool()
		if err != nil {
			return err
		}
		m.S.Medkits = append(m.S.Medkits, world.MedkitView{Id: world.MedkitId(id), Position: pos, Alive: alive})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Ammopacks = make([]world.AmmopackView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		alive, err := r.GetBool()
		if err != nil {
			return err
		}
		m.S.Ammopacks = append(m.S.Ammopacks, world.AmmopackView{Id: world.AmmopackId(id), Position: pos, Alive: alive})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Flags = make([]world.FlagView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		team, err := r.GetUint8()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		carried, err := r.GetBool()
		if err != nil {
			return err
		}
		score, err := r.GetInt32()
		if err != nil {
			return err
		}
		m.S.Flags = append(m.S.Flags, world.FlagView{Id: world.FlagId(id), Team: world.Team(team), Position: pos, Carried: carried, Score: int(score)})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Carts = make([]world.PayloadCartView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		team, err := r.GetUint8()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		idx, err := r.GetInt32()
		if err != nil {
			return err
		}
		m.S.Carts = append(m.S.Carts, world.PayloadCartView{Id: world.PayloadCartId(id), Team: world.Team(team), Position: pos, CurrentTrackIndex: int(idx)})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Generic = make([]world.GenericEntityView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		m.S.Generic = append(m.S.Generic, world.GenericEntityView{Id: world.GenericEntityId(id), Position: pos})
	}

	if n, err = count(r); err != nil {
		return err
	}
	m.S.Corpses = make([]world.CorpseView, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.GetUint32()
		if err != nil {
			return err
		}
		team, err := r.GetUint8()
		if err != nil {
			return err
		}
		pos, err := getVec2(r)
		if err != nil {
			return err
		}
		m.S.Corpses = append(m.S.Corpses, world.CorpseView{Id: world.PlayerId(id), Team: world.Team(team), Position: pos})
	}

	return nil
}
