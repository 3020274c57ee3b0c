package meta

import (
	"time"

	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/netchan"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
)

// EvictAfter is how stale a heartbeat can get before Server stops listing
// a server.
const EvictAfter = 30 * time.Second

// Server accepts game-server heartbeats and answers client address-list
// requests, backed by a Store. One NetChannel per peer endpoint, tracked
// from the first packet it sends (not just once fully connected).
type Server struct {
	socket *netio.UDPSocket
	store  *Store
	conns  map[string]*netchan.NetChannel
}

// NewServer wraps an already bound socket and an already opened store;
// it neither binds nor opens anything itself.
func NewServer(socket *netio.UDPSocket, store *Store) *Server {
	return &Server{socket: socket, store: store, conns: make(map[string]*netchan.NetChannel)}
}

func (s *Server) handlers() []netchan.HandlerFunc {
	return []netchan.HandlerFunc{
		s.handleHeartbeat,
		s.handleAddressListRequest,
	}
}

func (s *Server) handleHeartbeat(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m Heartbeat
	if err := m.Decode(r); err != nil {
		return err
	}
	key := ch.RemoteEndpoint().String()
	entry := ServerEntry{
		Endpoint:    ch.RemoteEndpoint(),
		Name:        m.Name,
		MapName:     m.MapName,
		PlayerCount: m.PlayerCount,
		MaxPlayers:  m.MaxPlayers,
	}
	if err := s.store.Upsert(key, entry, time.Now()); err != nil {
		logging.Warn("meta: failed to record heartbeat from %s: %v", key, err)
	}
	return nil
}

func (s *Server) handleAddressListRequest(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m AddressListRequest
	if err := m.Decode(r); err != nil {
		return err
	}
	entries, err := s.store.List(time.Now(), EvictAfter)
	if err != nil {
		logging.Warn("meta: failed to list servers: %v", err)
		entries = nil
	}
	ch.Send(TypeAddressList, AddressList{Entries: entries})
	return nil
}

func (s *Server) onPeerConnected(ch *netchan.NetChannel) {
	logging.Debug("meta: peer connected from %s", ch.RemoteEndpoint())
}

// ReceivePackets drains every datagram currently queued on the socket,
// routing each to its existing channel or standing up a new one for an
// unrecognized sender.
func (s *Server) ReceivePackets() {
	buf := make([]byte, netchan.MaxPacketSize)
	for {
		n, from, err := s.socket.ReceiveFrom(buf)
		if err != nil {
			return
		}
		key := from.String()
		ch, ok := s.conns[key]
		if !ok {
			ch = netchan.New(s.handlers(), s.onPeerConnected, s.socket)
			if err := ch.Accept(from); err != nil {
				logging.Warn("meta: failed to accept %s: %v", key, err)
				continue
			}
			s.conns[key] = ch
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		ch.ReceivePacket(data)
	}
}

// Tick drives every connection's Update/SendPackets and prunes dead ones,
// the meta-server equivalent of World.Update in the game server's tick
// loop.
func (s *Server) Tick() {
	s.ReceivePackets()
	for key, ch := range s.conns {
		if !ch.Update() {
			if err := s.store.Remove(key); err != nil {
				logging.Warn("meta: failed to remove %s: %v", key, err)
			}
			delete(s.conns, key)
			continue
		}
		ch.SendPackets()
	}
	if err := s.store.Prune(time.Now(), EvictAfter); err != nil {
		logging.Warn("meta: prune failed: %v", err)
	}
}
