// Package gamenet is the application message set carried over a
// netchan.NetChannel once it reaches StateConnected: joining, per-tick
// input, chat, and the server's snapshot broadcast. Client-bound and
// server-bound messages live in the one package since both ends share
// this module.
package gamenet

import (
	"github.com/fortress-go/core/mapdata"
	"github.com/fortress-go/core/netchan"
	"github.com/fortress-go/core/netmsg"
	"github.com/fortress-go/core/world"
)

// Wire types for every message carried once a NetChannel is connected.
// Application types are numbered after netchan.NumReservedMessages so the
// raw wire byte indexes directly into the concatenated handler table (see
// netchan.New). Both Server and Client build their handler slice in this
// exact order, even though each side only ever receives half of it; the
// other half's slot is a no-op.
const (
	TypeJoin netmsg.Type = netchan.NumReservedMessages + iota
	TypeInput
	TypeChatSend
	TypeWelcome
	TypeSnapshot
	TypeChatBroadcast
)

// Join is a new client's request to enter the game under Name.
type Join struct {
	Name string
}

func (Join) Category() netmsg.Category { return netmsg.Reliable }
func (m Join) Encode(w *netmsg.Writer)  { w.PutString(m.Name) }
func (m *Join) Decode(r *netmsg.Reader) error {
	var err error
	m.Name, err = r.GetString()
	return err
}

// Input is one tick's worth of player intent: movement and whether the
// player wants to switch to noclip-free normal play isn't modeled here
// (class/weapon selection stays in the out-of-scope game-rules layer),
// just the movement direction World.StepPlayer consumes.
type Input struct {
	MoveDirection mapdata.Direction
}

func (Input) Category() netmsg.Category { return netmsg.Unreliable }
func (m Input) Encode(w *netmsg.Writer)  { w.PutUint8(uint8(m.MoveDirection)) }
func (m *Input) Decode(r *netmsg.Reader) error {
	v, err := r.GetUint8()
	if err != nil {
		return err
	}
	m.MoveDirection = mapdata.Direction(v)
	return nil
}

// ChatSend is a client's outgoing chat line; the server clamps and
// rebroadcasts it as ChatBroadcast.
type ChatSend struct {
	Text string
}

func (ChatSend) Category() netmsg.Category { return netmsg.Reliable }
func (m ChatSend) Encode(w *netmsg.Writer)  { w.PutString(m.Text) }
func (m *ChatSend) Decode(r *netmsg.Reader) error {
	var err error
	m.Text, err = r.GetString()
	return err
}

// Welcome answers a Join, assigning the new player's id and handing over
// the round-state tunables a client needs to render a scoreboard
// (World.WinLimit/RoundLimit/TimeLimit).
type Welcome struct {
	YourId     world.PlayerId
	MapName    string
	WinLimit   int32
	RoundLimit int32
	TimeLimit  int64 // seconds; 0 means no limit
}

func (Welcome) Category() netmsg.Category { return netmsg.Reliable }

func (m Welcome) Encode(w *netmsg.Writer) {
	w.PutUint32(uint32(m.YourId))
	w.PutString(m.MapName)
	w.PutInt32(m.WinLimit)
	w.PutInt32(m.RoundLimit)
	w.PutUint64(uint64(m.TimeLimit))
}

func (m *Welcome) Decode(r *netmsg.Reader) error {
	id, err := r.GetUint32()
	if err != nil {
		return err
	}
	m.YourId = world.PlayerId(id)
	if m.MapName, err = r.GetString(); err != nil {
		return err
	}
	if m.WinLimit, err = r.GetInt32(); err != nil {
		return err
	}
	if m.RoundLimit, err = r.GetInt32(); err != nil {
		return err
	}
	ticks, err := r.GetUint64()
	if err != nil {
		return err
	}
	m.TimeLimit = int64(ticks)
	return nil
}

// ChatBroadcast is a rebroadcast chat line, tagged with the speaker's name
// (empty Name means a server announcement).
type ChatBroadcast struct {
	Name string
	Text string
}

func (ChatBroadcast) Category() netmsg.Category { return netmsg.Reliable }

func (m ChatBroadcast) Encode(w *netmsg.Writer) {
	w.PutString(m.Name)
	w.PutString(m.Text)
}

func (m *ChatBroadcast) Decode(r *netmsg.Reader) error {
	var err error
	if m.Name, err = r.GetString(); err != nil {
		return err
	}
	m.Text, err = r.GetString()
	return err
}
