package netchan

import (
	"github.com/fortress-go/core/netcrypto"
	"github.com/fortress-go/core/netmsg"
)

// Reserved wire types for the 9 built-in NetChannel messages. Application
// message tables start numbering after NumReservedMessages.
const (
	TypeHandshakePart1 netmsg.Type = iota
	TypeHandshakePart2
	TypeHandshakePart3
	TypeConnect
	TypeDisconnect
	TypeClose
	TypePing
	TypePong
	TypeEncryptedMessage
	NumReservedMessages
)

// IsReservedMessage reports whether typ is one of the NetChannel's own
// handshake/keepalive messages rather than an application message.
func IsReservedMessage(typ netmsg.Type) bool { return typ < NumReservedMessages }

// --- HandshakePart1: sent by each side when the connection starts,
// carries the sender's public key and a locally generated access token
// the peer must echo back verbatim in HandshakePart3.

type handshakePart1In struct {
	PublicKey netcrypto.PublicKey
	Token     netcrypto.AccessToken
}

func (handshakePart1In) Category() netmsg.Category { return netmsg.Reliable }

func (m *handshakePart1In) Decode(r *netmsg.Reader) error {
	pub, err := r.GetBytesRaw(netcrypto.KeySize)
	if err != nil {
		return err
	}
	copy(m.PublicKey[:], pub)
	tok, err := r.GetBytesRaw(netcrypto.TokenSize)
	if err != nil {
		return err
	}
	copy(m.Token[:], tok)
	return nil
}

type handshakePart1Out struct {
	PublicKey netcrypto.PublicKey
	Token     netcrypto.AccessToken
}

func (handshakePart1Out) Category() netmsg.Category { return netmsg.Reliable }

func (m handshakePart1Out) Encode(w *netmsg.Writer) {
	w.PutBytesRaw(m.PublicKey[:])
	w.PutBytesRaw(m.Token[:])
}

// --- HandshakePart2: each side's reply to the peer's HandshakePart1,
// carries the send stream header the peer needs to initialize its
// matching receive stream.

type handshakePart2In struct {
	Header netcrypto.Header
}

func (handshakePart2In) Category() netmsg.Category { return netmsg.Reliable }

func (m *handshakePart2In) Decode(r *netmsg.Reader) error {
	h, err := r.GetBytesRaw(netcrypto.HeaderSize)
	if err != nil {
		return err
	}
	copy(m.Header[:], h)
	return nil
}

type handshakePart2Out struct {
	Header netcrypto.Header
}

func (handshakePart2Out) Category() netmsg.Category { return netmsg.Reliable }

func (m handshakePart2Out) Encode(w *netmsg.Writer) {
	w.PutBytesRaw(m.Header[:])
}

// --- HandshakePart3: each side's reply to the peer's HandshakePart2,
// echoes the peer's access token back encrypted, proving the sender
// derived the session keys correctly.
// Sent as a Secret message (wrapped in EncryptedMessage), unlike the other
// handshake messages.

type handshakePart3In struct {
	Token netcrypto.AccessToken
}

func (handshakePart3In) Category() netmsg.Category { return netmsg.Secret }

func (m *handshakePart3In) Decode(r *netmsg.Reader) error {
	tok, err := r.GetBytesRaw(netcrypto.TokenSize)
	if err != nil {
		return err
	}
	copy(m.Token[:], tok)
	return nil
}

type handshakePart3Out struct {
	Token netcrypto.AccessToken
}

func (handshakePart3Out) Category() netmsg.Category { return netmsg.Secret }

func (m handshakePart3Out) Encode(w *netmsg.Writer) {
	w.PutBytesRaw(m.Token[:])
}

// --- Connect: sent by each side once the peer's HandshakePart3 verifies;
// receiving the peer's Connect marks the receiving side CONNECTED.

type connectIn struct{}

func (connectIn) Category() netmsg.Category       { return netmsg.Reliable }
func (*connectIn) Decode(*netmsg.Reader) error     { return nil }

type connectOut struct{}

func (connectOut) Category() netmsg.Category    { return netmsg.Reliable }
func (connectOut) Encode(*netmsg.Writer)        {}

// --- Disconnect: graceful teardown, carries a human-readable reason.

type disconnectIn struct {
	Message string
}

func (disconnectIn) Category() netmsg.Category { return netmsg.Reliable }

func (m *disconnectIn) Decode(r *netmsg.Reader) error {
	s, err := r.GetString()
	if err != nil {
		return err
	}
	m.Message = s
	return nil
}

type disconnectOut struct {
	Message string
}

func (disconnectOut) Category() netmsg.Category { return netmsg.Reliable }

func (m disconnectOut) Encode(w *netmsg.Writer) {
	w.PutString(m.Message)
}

// --- Close: the final handshake of a graceful teardown, echoed until both
// sides reach DISCONNECTED.

type closeIn struct{}

func (closeIn) Category() netmsg.Category   { return netmsg.Reliable }
func (*closeIn) Decode(*netmsg.Reader) error { return nil }

type closeOut struct{}

func (closeOut) Category() netmsg.Category { return netmsg.Reliable }
func (closeOut) Encode(*netmsg.Writer)     {}

// --- Ping/Pong: round-trip latency measurement.

type pingIn struct{}

func (pingIn) Category() netmsg.Category   { return netmsg.Reliable }
func (*pingIn) Decode(*netmsg.Reader) error { return nil }

type pingOut struct{}

func (pingOut) Category() netmsg.Category { return netmsg.Reliable }
func (pingOut) Encode(*netmsg.Writer)     {}

type pongIn struct{}

func (pongIn) Category() netmsg.Category   { return netmsg.Reliable }
func (*pongIn) Decode(*netmsg.Reader) error { return nil }

type pongOut struct{}

func (pongOut) Category() netmsg.Category { return netmsg.Reliable }
func (pongOut) Encode(*netmsg.Writer)     {}

// --- EncryptedMessage: the envelope a Secret message travels inside once
// the handshake has established a send/receive Stream pair.

type encryptedMessageIn struct {
	CipherText []byte
}

func (encryptedMessageIn) Category() netmsg.Category { return netmsg.Reliable }

func (m *encryptedMessageIn) Decode(r *netmsg.Reader) error {
	b, err := r.GetBytes()
	if err != nil {
		return err
	}
	m.CipherText = b
	return nil
}

type encryptedMessageOut struct {
	CipherText []byte
}

func (encryptedMessageOut) Category() netmsg.Category { return netmsg.Reliable }

func (m encryptedMessageOut) Encode(w *netmsg.Writer) {
	w.PutBytes(m.CipherText)
}
