// Package netchan implements the reliable-UDP connection layer: packet
// framing, sequencing, acknowledgement, message splitting/reassembly,
// the crypto handshake, and the connection state machine.
package netchan

import (
	"hash/crc32"

	"github.com/fortress-go/core/netmsg"
)

// SequenceNumber is a wrapping 16-bit packet counter.
type SequenceNumber = uint16

// SequenceDistance is the signed wrap-aware difference between two
// SequenceNumbers, used to order them despite 16-bit overflow.
type SequenceDistance = int16

// PacketMask holds up to 32 early-ack bits, one per sequence number
// immediately following the packet's primary ack.
type PacketMask = uint32

const packetMaskBits = 32

// ProtocolID is mixed into every packet's checksum so packets belonging to
// a different protocol version are rejected outright rather than parsed.
var ProtocolID = [5]byte{'A', 'F', '2', 'V', '2'}

// Flags is the packet header's bitset.
type Flags uint8

const (
	FlagNone       Flags = 0
	FlagCompressed Flags = 1 << 1
	FlagReliable   Flags = 1 << 2
	FlagSplit      Flags = 1 << 3
	FlagLastPiece  Flags = 1 << 4
	FlagEarlyAcks  Flags = 1 << 5
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// MaxPacketSize is the largest UDP datagram this channel will ever send or
// accept.
const MaxPacketSize = 1200

// headerMaxSize upper-bounds PacketHeader.Encode's output: checksum(4) +
// flags(1) + ack(2) + mask(4) + seq(2).
const headerMaxSize = 4 + 1 + 2 + 4 + 2

// MaxPacketPayloadSize is the space left in a packet for message bytes
// once the header is accounted for.
const MaxPacketPayloadSize = MaxPacketSize - headerMaxSize

// MaxMessageSize bounds a single logical message so it can always be
// split into a representable number of pieces.
const MaxMessageSize = MaxPacketPayloadSize * (65536 / 2)

// calculateChecksum hashes ProtocolID followed by payload, so a packet
// from an incompatible protocol version fails the check immediately.
func calculateChecksum(payload []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(ProtocolID[:])
	h.Write(payload)
	return h.Sum32()
}

// Acknowledgement is a primary sequence number plus a mask of additional
// packets received out of order immediately after it.
type Acknowledgement struct {
	Ack  SequenceNumber
	Mask PacketMask
}

// Less reports whether a is strictly older than b: first by wrap-aware
// sequence distance, and when the primary acks tie, by which carries more
// early-ack bits (a newer mask confirms strictly more packets).
func (a Acknowledgement) Less(b Acknowledgement) bool {
	if a.Ack == b.Ack {
		return popcount(a.Mask) < popcount(b.Mask)
	}
	return SequenceDistance(a.Ack-b.Ack) < 0
}

// Greater is the inverse of Less, used when checking for a newer ack.
func (a Acknowledgement) Greater(b Acknowledgement) bool { return b.Less(a) }

func popcount(m PacketMask) int {
	n := 0
	for m != 0 {
		n += int(m & 1)
		m >>= 1
	}
	return n
}

// PacketHeader is the wire header prefixing every packet's payload.
type PacketHeader struct {
	Checksum uint32
	Flags    Flags
	Ack      SequenceNumber
	Mask     PacketMask // present only when Flags.Has(FlagEarlyAcks)
	Seq      SequenceNumber // present only when Flags.Has(FlagReliable)
}

// Encode writes the header (not including the payload that follows it) to
// w, omitting the mask/seq fields the flags say are absent.
func (h PacketHeader) Encode(w *netmsg.Writer) {
	w.PutUint32(h.Checksum)
	w.PutUint8(uint8(h.Flags))
	w.PutUint16(h.Ack)
	if h.Flags.Has(FlagEarlyAcks) {
		w.PutUint32(h.Mask)
	}
	if h.Flags.Has(FlagReliable) {
		w.PutUint16(h.Seq)
	}
}

// DecodePacketHeader reads a header from r, leaving r positioned at the
// start of the payload on success.
func DecodePacketHeader(r *netmsg.Reader) (PacketHeader, error) {
	var h PacketHeader
	checksum, err := r.GetUint32()
	if err != nil {
		return h, err
	}
	flagsByte, err := r.GetUint8()
	if err != nil {
		return h, err
	}
	ack, err := r.GetUint16()
	if err != nil {
		return h, err
	}
	h.Checksum = checksum
	h.Flags = Flags(flagsByte)
	h.Ack = ack
	if h.Flags.Has(FlagEarlyAcks) {
		mask, err := r.GetUint32()
		if err != nil {
			return h, err
		}
		h.Mask = mask
	}
	if h.Flags.Has(FlagReliable) {
		seq, err := r.GetUint16()
		if err != nil {
			return h, err
		}
		h.Seq = seq
	}
	return h, nil
}
