// Package meta implements the meta server/client pair: a small registry
// of known game servers, kept fresh by periodic heartbeats and served to
// clients as an address list, transported over the same netchan.NetChannel
// used for gameplay.
package meta

import (
	"github.com/fortress-go/core/netchan"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
)

// Wire types for this package's application messages. NetChannel dispatches
// on the raw wire byte against a handler slice with the 9 reserved
// NetChannel handlers first, so application types must start numbering
// after netchan.NumReservedMessages rather than at 0.
const (
	TypeHeartbeat netmsg.Type = netchan.NumReservedMessages + iota
	TypeAddressListRequest
	TypeAddressList
)

// Heartbeat is sent by a game server to announce (or refresh) its
// listing.
type Heartbeat struct {
	Name        string
	MapName     string
	PlayerCount uint32
	MaxPlayers  uint32
}

func (Heartbeat) Category() netmsg.Category { return netmsg.Reliable }

func (m Heartbeat) Encode(w *netmsg.Writer) {
	w.PutString(m.Name)
	w.PutString(m.MapName)
	w.PutUint32(m.PlayerCount)
	w.PutUint32(m.MaxPlayers)
}

func (m *Heartbeat) Decode(r *netmsg.Reader) error {
	var err error
	if m.Name, err = r.GetString(); err != nil {
		return err
	}
	if m.MapName, err = r.GetString(); err != nil {
		return err
	}
	if m.PlayerCount, err = r.GetUint32(); err != nil {
		return err
	}
	if m.MaxPlayers, err = r.GetUint32(); err != nil {
		return err
	}
	return nil
}

// AddressListRequest is sent by a meta client asking for the current
// server list; it carries no fields.
type AddressListRequest struct{}

func (AddressListRequest) Category() netmsg.Category   { return netmsg.Reliable }
func (AddressListRequest) Encode(*netmsg.Writer)       {}
func (*AddressListRequest) Decode(*netmsg.Reader) error { return nil }

// ServerEntry is one listed game server, as shown to a querying client.
type ServerEntry struct {
	Endpoint    netio.IpEndpoint
	Name        string
	MapName     string
	PlayerCount uint32
	MaxPlayers  uint32
}

// AddressList answers an AddressListRequest with every currently listed
// server.
type AddressList struct {
	Entries []ServerEntry
}

func (AddressList) Category() netmsg.Category { return netmsg.Reliable }

func (m AddressList) Encode(w *netmsg.Writer) {
	w.PutUint32(uint32(len(m.Entries)))
	for _, e := range m.Entries {
		w.PutUint8(e.Endpoint.Address.A)
		w.PutUint8(e.Endpoint.Address.B)
		w.PutUint8(e.Endpoint.Address.C)
		w.PutUint8(e.Endpoint.Address.D)
		w.PutUint16(e.Endpoint.Port)
		w.PutString(e.Name)
		w.PutString(e.MapName)
		w.PutUint32(e.PlayerCount)
		w.PutUint32(e.MaxPlayers)
	}
}

func (m *AddressList) Decode(r *netmsg.Reader) error {
	n, err := r.GetUint32()
	if err != nil {
		return err
	}
	if n > netmsg.MaxContainerLen {
		return netmsg.ErrLengthPrefix
	}
	m.Entries = make([]ServerEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		var e ServerEntry
		a, err := r.GetUint8()
		if err != nil {
			return err
		}
		b, err := r.GetUint8()
		if err != nil {
			return err
		}
		c, err := r.GetUint8()
		if err != nil {
			return err
		}
		d, err := r.GetUint8()
		if err != nil {
			return err
		}
		port, err := r.GetUint16()
		if err != nil {
			return err
		}
		e.Endpoint = netio.IpEndpoint{Address: netio.IpAddress{A: a, B: b, C: c, D: d}, Port: port}
		if e.Name, err = r.GetString(); err != nil {
			return err
		}
		if e.MapName, err = r.GetString(); err != nil {
			return err
		}
		if e.PlayerCount, err = r.GetUint32(); err != nil {
			return err
		}
		if e.MaxPlayers, err = r.GetUint32(); err != nil {
			return err
		}
		m.Entries = append(m.Entries, e)
	}
	return nil
}
