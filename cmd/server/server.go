package main

import (
	"time"

	"github.com/rs/xid"

	"github.com/fortress-go/core/gamenet"
	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/mapdata"
	"github.com/fortress-go/core/metrics"
	"github.com/fortress-go/core/netchan"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
	"github.com/fortress-go/core/serverconfig"
	"github.com/fortress-go/core/world"
)

// conn is the per-client bookkeeping a connected NetChannel needs beyond
// what NetChannel itself tracks: which world player it owns, and whether
// it has sent Join yet. A player entity only exists once a client has
// actually joined, not merely connected.
type conn struct {
	channel   *netchan.NetChannel
	metricsId string
	playerId  world.PlayerId
	joined    bool
}

// gameServer wires netio+netchan+world+mapdata+metrics+serverconfig
// together into a single-threaded, cooperative tick loop. It owns one
// NetChannel per client endpoint, keyed by remote address.
type gameServer struct {
	cfg    serverconfig.Config
	socket *netio.UDPSocket
	world  *world.World
	rules  *gameRules

	conns map[string]*conn

	spawnIndexRed  int
	spawnIndexBlue int

	connCollector *metrics.ConnectionCollector
}

func newGameServer(cfg serverconfig.Config, socket *netio.UDPSocket, mp mapdata.Map, connCollector *metrics.ConnectionCollector) *gameServer {
	rules := &gameRules{mapName: mp.Name()}
	s := &gameServer{
		cfg:           cfg,
		socket:        socket,
		rules:         rules,
		conns:         make(map[string]*conn),
		connCollector: connCollector,
	}
	s.world = world.New(mp, rules)
	s.world.WinLimit = 5
	s.world.RoundLimit = 0
	return s
}

func (s *gameServer) handlers() []netchan.HandlerFunc {
	return []netchan.HandlerFunc{
		s.handleJoin,
		s.handleInput,
		s.handleChatSend,
		noopHandler, // Welcome: server never receives one
		noopHandler, // Snapshot: server never receives one
		noopHandler, // ChatBroadcast: server never receives one
	}
}

func noopHandler(*netchan.NetChannel, *netmsg.Reader) error { return nil }

func (s *gameServer) connFor(ch *netchan.NetChannel) *conn {
	return s.conns[ch.RemoteEndpoint().String()]
}

func (s *gameServer) handleJoin(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m gamenet.Join
	if err := m.Decode(r); err != nil {
		return err
	}
	c := s.connFor(ch)
	if c == nil || c.joined {
		return nil
	}
	name := m.Name
	if len(name) > s.cfg.Wire.MaxUsernameLength {
		name = name[:s.cfg.Wire.MaxUsernameLength]
	}
	team := s.autoAssignTeam()
	pos := s.nextSpawn(team)
	id, _ := s.world.Players().Reserve(world.Player{
		Name: name, Team: team, MaxHealth: 100, Health: 100, Alive: true, Position: pos,
	})
	c.playerId = id
	c.joined = true

	logging.Success("%s joined as %s", name, teamName(team))
	ch.Send(gamenet.TypeWelcome, gamenet.Welcome{
		YourId:     id,
		MapName:    s.world.Map().Name(),
		WinLimit:   int32(s.world.WinLimit),
		RoundLimit: int32(s.world.RoundLimit),
		TimeLimit:  int64(s.world.TimeLimit / time.Second),
	})
	s.broadcastChat("", name+" joined the game")
	return nil
}

// nextSpawn round-robins through the map's spawn list for team, the same
// rotation World.TeleportPlayerToSpawn drives for respawns, done directly
// here since the player doesn't exist in the registry yet for that method
// to look up a team from.
func (s *gameServer) nextSpawn(team world.Team) world.Vec2 {
	var spawns []mapdata.Vec2
	var index *int
	if team == world.TeamRed {
		spawns = s.world.Map().RedSpawns()
		index = &s.spawnIndexRed
	} else {
		spawns = s.world.Map().BlueSpawns()
		index = &s.spawnIndexBlue
	}
	if len(spawns) == 0 {
		return world.Vec2{}
	}
	p := spawns[*index%len(spawns)]
	*index++
	return world.Vec2{X: int16(p.X), Y: int16(p.Y)}
}

func (s *gameServer) autoAssignTeam() world.Team {
	red, blue := 0, 0
	s.world.Players().Live(func(_ world.PlayerId, p *world.Player) {
		switch p.Team {
		case world.TeamRed:
			red++
		case world.TeamBlue:
			blue++
		}
	})
	if red <= blue {
		return world.TeamRed
	}
	return world.TeamBlue
}

func (s *gameServer) handleInput(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m gamenet.Input
	if err := m.Decode(r); err != nil {
		return err
	}
	c := s.connFor(ch)
	if c == nil || !c.joined {
		return nil
	}
	s.world.StepPlayer(c.playerId, m.MoveDirection)
	return nil
}

func (s *gameServer) handleChatSend(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m gamenet.ChatSend
	if err := m.Decode(r); err != nil {
		return err
	}
	c := s.connFor(ch)
	if c == nil || !c.joined {
		return nil
	}
	text := m.Text
	if len(text) > s.cfg.Wire.MaxChatMessageLength {
		text = text[:s.cfg.Wire.MaxChatMessageLength]
	}
	if p := s.world.Players().Find(c.playerId); p != nil {
		s.broadcastChat(p.Name, text)
	}
	return nil
}

func (s *gameServer) broadcastChat(name, text string) {
	for _, c := range s.conns {
		if c.joined {
			c.channel.Send(gamenet.TypeChatBroadcast, gamenet.ChatBroadcast{Name: name, Text: text})
		}
	}
}

func (s *gameServer) onPeerConnected(ch *netchan.NetChannel) {
	logging.Debug("peer connected from %s", ch.RemoteEndpoint())
}

// ReceivePackets drains every datagram currently queued, routing it to its
// existing connection or standing up a new one for an unrecognized sender
// (the same first-packet routing meta.Server.ReceivePackets uses).
func (s *gameServer) ReceivePackets() {
	buf := make([]byte, netchan.MaxPacketSize)
	for {
		n, from, err := s.socket.ReceiveFrom(buf)
		if err != nil {
			return
		}
		key := from.String()
		c, ok := s.conns[key]
		if !ok {
			ch := netchan.New(s.handlers(), s.onPeerConnected, s.socket)
			ch.SetTimeout(s.cfg.Wire.ConnectDuration)
			ch.SetThrottleMaxSendBufferSize(s.cfg.Wire.ThrottleMaxSendBufferSize)
			ch.SetThrottleMaxPeriod(s.cfg.Wire.ThrottleMaxPeriod)
			if err := ch.Accept(from); err != nil {
				logging.Warn("failed to accept %s: %v", key, err)
				continue
			}
			c = &conn{channel: ch, metricsId: xid.New().String()}
			s.conns[key] = c
			if s.connCollector != nil {
				s.connCollector.Add(c.metricsId, ch)
			}
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		c.channel.ReceivePacket(data)
	}
}

// Tick runs one iteration of the server loop: drain the socket, advance
// every connection, advance the simulation, then broadcast a fresh
// snapshot to every joined player.
func (s *gameServer) Tick(dt time.Duration) {
	s.ReceivePackets()

	for key, c := range s.conns {
		if !c.channel.Update() {
			s.dropConn(key, c)
			continue
		}
	}

	s.world.Update(dt)

	for _, c := range s.conns {
		if c.joined {
			snap := s.world.TakeSnapshot(c.playerId)
			c.channel.Send(gamenet.TypeSnapshot, gamenet.Snapshot{S: snap})
		}
		c.channel.SendPackets()
	}
}

func (s *gameServer) dropConn(key string, c *conn) {
	if c.joined {
		if p := s.world.Players().Find(c.playerId); p != nil {
			name := p.Name
			s.world.Players().Erase(c.playerId)
			s.broadcastChat("", name+" left the game")
		}
	}
	if s.connCollector != nil {
		s.connCollector.Remove(c.metricsId)
	}
	delete(s.conns, key)
	logging.Info("connection from %s closed: %s", key, c.channel.DisconnectMessage())
}

// PlayerCount reports the number of joined players, for heartbeat/metrics.
func (s *gameServer) PlayerCount() int {
	return s.world.Players().Len()
}
