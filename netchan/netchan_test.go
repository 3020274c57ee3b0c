package netchan

import (
	"testing"
	"time"

	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
)

// --- CRC agreement -----------------------------------------

func TestChecksumAgreement(t *testing.T) {
	payload := []byte("hello, ascii-fortress")
	a := calculateChecksum(payload)
	b := calculateChecksum(payload)
	if a != b {
		t.Fatalf("checksum not stable: %d != %d", a, b)
	}

	altered := append([]byte(nil), payload...)
	altered[0] ^= 0x01
	if calculateChecksum(altered) == a {
		t.Fatalf("checksum did not change for an altered payload")
	}
}

func BenchmarkChecksum(b *testing.B) {
	payload := make([]byte, MaxPacketPayloadSize)
	for i := 0; i < b.N; i++ {
		calculateChecksum(payload)
	}
}

// --- sequence ordering / reassembly ring -------

type orderIn struct{ N byte }

func (orderIn) Category() netmsg.Category { return netmsg.Reliable }
func (m *orderIn) Decode(r *netmsg.Reader) error {
	n, err := r.GetUint8()
	if err != nil {
		return err
	}
	m.N = n
	return nil
}

const typeOrder netmsg.Type = NumReservedMessages

func newOrderRecordingChannel() (*NetChannel, *[]byte) {
	var order []byte
	handler := func(ch *NetChannel, r *netmsg.Reader) error {
		var m orderIn
		if err := m.Decode(r); err != nil {
			return err
		}
		order = append(order, m.N)
		return nil
	}
	c := New([]HandlerFunc{handler}, nil, nil)
	return c, &order
}

func buildReliablePacket(seq SequenceNumber, marker byte) []byte {
	payload := netmsg.NewWriter(2)
	payload.PutUint8(typeOrder)
	payload.PutUint8(marker)
	body := payload.Bytes()

	h := PacketHeader{Flags: FlagReliable, Seq: seq, Checksum: calculateChecksum(body)}
	w := netmsg.NewWriter(headerMaxSize + len(body))
	h.Encode(w)
	w.PutBytesRaw(body)
	return w.Bytes()
}

func TestReliableSequenceOrdering(t *testing.T) {
	c, order := newOrderRecordingChannel()

	// Sender enqueues 1..5; network reorders delivery to 1, 3, 4, 2, 5.
	for _, seq := range []SequenceNumber{1, 3, 4, 2, 5} {
		c.handleRawPacket(buildReliablePacket(seq, byte(seq)))
	}

	want := []byte{1, 2, 3, 4, 5}
	if len(*order) != len(want) {
		t.Fatalf("dispatch order = %v, want %v", *order, want)
	}
	for i := range want {
		if (*order)[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", *order, want)
		}
	}
	if len(c.receiveBuffer) != 0 {
		t.Fatalf("receive buffer not empty after full drain: %v", c.receiveBuffer)
	}
	if c.latestSeqHandled != 5 {
		t.Fatalf("latestSeqHandled = %d, want 5", c.latestSeqHandled)
	}
}

func TestReliableOutOfOrderIsBuffered(t *testing.T) {
	c, order := newOrderRecordingChannel()

	c.handleRawPacket(buildReliablePacket(2, 2))
	if len(*order) != 0 {
		t.Fatalf("seq 2 dispatched before seq 1 arrived: %v", *order)
	}
	if _, ok := c.receiveBuffer[2]; !ok {
		t.Fatalf("seq 2 was not buffered")
	}
	if c.stats.ReliablePacketsReceivedOutOfOrder != 1 {
		t.Fatalf("ReliablePacketsReceivedOutOfOrder = %d, want 1", c.stats.ReliablePacketsReceivedOutOfOrder)
	}

	c.handleRawPacket(buildReliablePacket(1, 1))
	if len(*order) != 2 || (*order)[0] != 1 || (*order)[1] != 2 {
		t.Fatalf("dispatch order = %v, want [1 2]", *order)
	}
}

// --- split round-trip ---------------------------------------

// TestSplitReassemblyBytesExact verifies the joined buffer handed to
// dispatchPayload is byte-identical to the original message, by feeding a
// hand-split message through handleRawPacket piece by piece (mirroring
// what splitAndSendMessage produces) and recording what dispatch received.
func TestSplitReassemblyBytesExact(t *testing.T) {
	var message []byte
	for i := 0; i < 4096; i++ {
		message = append(message, byte(7*i+3))
	}

	c := New(nil, nil, nil)
	var got []byte
	// Wrap dispatchPayload indirectly: since SPLIT pieces carry a raw type
	// byte followed by raw bytes, prefix the message with a registered type
	// so dispatchPayload's normal path records it faithfully.
	handler := func(ch *NetChannel, r *netmsg.Reader) error {
		got = append(got, r.Rest()...)
		// consume the rest so the dispatch loop terminates cleanly.
		_, _ = r.GetBytesRaw(r.Remaining())
		return nil
	}
	c.handlers = append(c.handlers, handler)

	framed := append([]byte{typeOrder}, message...)

	const pieceSize = MaxPacketPayloadSize
	var seq SequenceNumber
	for off := 0; off < len(framed); off += pieceSize {
		end := off + pieceSize
		if end > len(framed) {
			end = len(framed)
		}
		seq++
		flags := FlagReliable | FlagSplit
		if end == len(framed) {
			flags |= FlagLastPiece
		}
		body := framed[off:end]
		h := PacketHeader{Flags: flags, Seq: seq, Checksum: calculateChecksum(body)}
		w := netmsg.NewWriter(headerMaxSize + len(body))
		h.Encode(w)
		w.PutBytesRaw(body)
		c.handleRawPacket(w.Bytes())
	}

	if len(got) != len(message) {
		t.Fatalf("reassembled length = %d, want %d", len(got), len(message))
	}
	for i := range message {
		if got[i] != message[i] {
			t.Fatalf("reassembled byte %d = %d, want %d", i, got[i], message[i])
		}
	}
}

// --- compressed payload round-trip -------------------------------------

func TestCompressedPayloadRoundTrip(t *testing.T) {
	payload := bytesRepeating(1000)
	compressed, ok := compressPayload(payload)
	if !ok {
		t.Fatalf("a repetitive %d-byte payload should compress", len(payload))
	}
	if len(compressed) >= len(payload) {
		t.Fatalf("compressed size %d not smaller than %d", len(compressed), len(payload))
	}
	inflated, err := decompressPayload(compressed)
	if err != nil {
		t.Fatalf("decompressPayload: %v", err)
	}
	if len(inflated) != len(payload) {
		t.Fatalf("inflated length = %d, want %d", len(inflated), len(payload))
	}
	for i := range payload {
		if inflated[i] != payload[i] {
			t.Fatalf("inflated byte %d = %d, want %d", i, inflated[i], payload[i])
		}
	}
}

func TestCompressedPacketDispatches(t *testing.T) {
	c, order := newOrderRecordingChannel()

	body := netmsg.NewWriter(2)
	body.PutUint8(typeOrder)
	body.PutUint8(42)
	payload := body.Bytes()
	// Pad with extra copies of the same message so the payload both clears
	// the compress threshold and actually shrinks.
	for i := 0; i < 200; i++ {
		payload = append(payload, typeOrder, 42)
	}
	compressed, ok := compressPayload(payload)
	if !ok {
		t.Fatal("payload should compress")
	}

	h := PacketHeader{Flags: FlagReliable | FlagCompressed, Seq: 1, Checksum: calculateChecksum(compressed)}
	w := netmsg.NewWriter(headerMaxSize + len(compressed))
	h.Encode(w)
	w.PutBytesRaw(compressed)
	c.handleRawPacket(w.Bytes())

	if len(*order) != 201 {
		t.Fatalf("dispatched %d messages, want 201", len(*order))
	}
	for _, n := range *order {
		if n != 42 {
			t.Fatalf("dispatched marker %d, want 42", n)
		}
	}
}

func bytesRepeating(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 16)
	}
	return out
}

// --- ack drain -----------------------------------------------

func TestAckDrain(t *testing.T) {
	c := New(nil, nil, nil)
	c.sendBuffer = []outgoingPacket{
		{header: PacketHeader{Seq: 1}},
		{header: PacketHeader{Seq: 2}},
		{header: PacketHeader{Seq: 3}},
		{header: PacketHeader{Seq: 4}},
		{header: PacketHeader{Seq: 5}},
	}

	// ack=2 acknowledges seq<=2 outright; mask bit 0 (seq 2+2+0=4) says seq 4
	// was received out of order too.
	c.applyAcknowledgement(Acknowledgement{Ack: 2, Mask: 1 << 0})

	for _, pkt := range c.sendBuffer {
		if pkt.header.Seq <= 2 {
			t.Fatalf("seq %d should have been dropped from the send buffer", pkt.header.Seq)
		}
	}
	var sawAcked4, sawUnacked3, sawUnacked5 bool
	for _, pkt := range c.sendBuffer {
		switch pkt.header.Seq {
		case 3:
			sawUnacked3 = !pkt.acked
		case 4:
			sawAcked4 = pkt.acked
		case 5:
			sawUnacked5 = !pkt.acked
		}
	}
	if !sawAcked4 {
		t.Fatalf("seq 4 should be flagged acked via the mask bit")
	}
	if !sawUnacked3 || !sawUnacked5 {
		t.Fatalf("seq 3 and 5 should remain unacked: %+v", c.sendBuffer)
	}
}

// --- idempotent close ----------------------------------------

func TestIdempotentClose(t *testing.T) {
	c := New(nil, nil, nil)
	c.state = StateConnected

	if !c.CloseWithMessage("first reason") {
		t.Fatalf("first Close should report a state change")
	}
	if !c.Disconnected() {
		t.Fatalf("channel should be Disconnected after Close")
	}
	if c.DisconnectMessage() != "first reason" {
		t.Fatalf("disconnect message = %q, want %q", c.DisconnectMessage(), "first reason")
	}

	if c.Close() {
		t.Fatalf("second Close should report no state change")
	}
	if c.CloseWithMessage("second reason") {
		t.Fatalf("CloseWithMessage after Close should report no state change")
	}
	if c.DisconnectMessage() != "first reason" {
		t.Fatalf("disconnect message changed on a later Close: %q", c.DisconnectMessage())
	}
}

// --- handshake happy path, end-to-end ------------

func pumpInto(sock *netio.UDPSocket, dst *NetChannel) {
	buf := make([]byte, MaxPacketSize)
	for {
		n, _, err := sock.ReceiveFrom(buf)
		if err != nil {
			return
		}
		data := append([]byte(nil), buf[:n]...)
		dst.ReceivePacket(data)
	}
}

func TestHandshakeHappyPath(t *testing.T) {
	sockA, err := netio.Bind(netio.IpEndpoint{Address: netio.IpAddress{A: 127, B: 0, C: 0, D: 1}})
	if err != nil {
		t.Fatalf("bind A: %v", err)
	}
	defer sockA.Close()
	sockB, err := netio.Bind(netio.IpEndpoint{Address: netio.IpAddress{A: 127, B: 0, C: 0, D: 1}})
	if err != nil {
		t.Fatalf("bind B: %v", err)
	}
	defer sockB.Close()

	epA, err := sockA.LocalEndpoint()
	if err != nil {
		t.Fatalf("local endpoint A: %v", err)
	}
	epB, err := sockB.LocalEndpoint()
	if err != nil {
		t.Fatalf("local endpoint B: %v", err)
	}

	var connectedA, connectedB int
	chA := New(nil, func(*NetChannel) { connectedA++ }, sockA)
	chB := New(nil, func(*NetChannel) { connectedB++ }, sockB)

	if err := chA.Connect(epB); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := chB.Accept(epA); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	for i := 0; i < 200 && !(chA.Connected() && chB.Connected()); i++ {
		chA.Update()
		chB.Update()
		chA.SendPackets()
		chB.SendPackets()
		pumpInto(sockA, chA)
		pumpInto(sockB, chB)
		time.Sleep(2 * time.Millisecond)
	}

	if !chA.Connected() {
		t.Fatalf("A never reached Connected (state=%d, msg=%q)", chA.State(), chA.DisconnectMessage())
	}
	if !chB.Connected() {
		t.Fatalf("B never reached Connected (state=%d, msg=%q)", chB.State(), chB.DisconnectMessage())
	}
	if connectedA != 1 {
		t.Fatalf("A's Connected callback fired %d times, want 1", connectedA)
	}
	if connectedB != 1 {
		t.Fatalf("B's Connected callback fired %d times, want 1", connectedB)
	}
}
