package netchan

import "github.com/fortress-go/core/netmsg"

// receiveBufferCapacity bounds how many out-of-order reliable packets may
// sit in the reassembly ring at once; it is also the limit splitAndSendMessage
// checks a split message's piece count against before committing to send
// any of it.
const receiveBufferCapacity = packetMaskBits

// processReceivedPackets drains every datagram queued by ReceivePacket
// since the last Update: validates its checksum, folds the piggybacked
// ack/mask into the send buffer, and either dispatches or reorders it.
func (c *NetChannel) processReceivedPackets() {
	raw := c.receivedRaw
	c.receivedRaw = nil
	for _, data := range raw {
		c.handleRawPacket(data)
	}
}

func (c *NetChannel) handleRawPacket(data []byte) {
	r := netmsg.NewReader(data)
	header, err := DecodePacketHeader(r)
	if err != nil {
		c.stats.InvalidPacketHeaderCount++
		return
	}
	payload := r.Rest()
	if calculateChecksum(payload) != header.Checksum {
		c.stats.InvalidPacketChecksumCount++
		return
	}

	if header.Flags.Has(FlagCompressed) {
		inflated, err := decompressPayload(payload)
		if err != nil {
			c.stats.InvalidPacketHeaderCount++
			return
		}
		payload = inflated
	}

	c.applyAcknowledgement(Acknowledgement{Ack: header.Ack, Mask: header.Mask})

	if !header.Flags.Has(FlagReliable) {
		c.dispatchPayload(payload)
		return
	}

	c.stats.ReliablePacketsReceived++
	expected := c.latestSeqHandled + 1
	if header.Seq == expected {
		c.handleInOrderReliable(header, payload)
		c.drainReceiveBuffer()
		return
	}

	// Negative wrap-distance from expected means this seq was already
	// handled (a retransmit of something we've consumed) and is dropped.
	if SequenceDistance(header.Seq-expected) < 0 {
		return
	}
	if _, buffered := c.receiveBuffer[header.Seq]; buffered {
		return
	}
	if len(c.receiveBuffer) >= receiveBufferCapacity {
		c.stats.ReceiveBufferOverflowCount++
		return
	}
	c.receiveBuffer[header.Seq] = incomingPacket{header: header, payload: append([]byte(nil), payload...)}
	c.stats.ReliablePacketsReceivedOutOfOrder++
}

// drainReceiveBuffer promotes buffered packets into the handled stream
// while the next expected sequence number is present, so a run of
// reordered packets gets replayed in sender order the instant the gap
// closes.
func (c *NetChannel) drainReceiveBuffer() {
	for {
		next := c.latestSeqHandled + 1
		pkt, ok := c.receiveBuffer[next]
		if !ok {
			return
		}
		delete(c.receiveBuffer, next)
		c.handleInOrderReliable(pkt.header, pkt.payload)
	}
}

// handleInOrderReliable advances latestSeqHandled past header.Seq and
// either dispatches payload directly or, for a SPLIT piece, appends it to
// the in-flight reassembly buffer and dispatches only once LAST_PIECE
// arrives.
func (c *NetChannel) handleInOrderReliable(header PacketHeader, payload []byte) {
	c.latestSeqHandled = header.Seq

	if !header.Flags.Has(FlagSplit) {
		c.dispatchPayload(payload)
		return
	}

	c.reassembling = append(c.reassembling, payload...)
	if header.Flags.Has(FlagLastPiece) {
		joined := c.reassembling
		c.reassembling = nil
		c.dispatchPayload(joined)
	}
}

// dispatchPayload reads and handles every message in payload in order.
// An unknown type discards the remainder of payload (the post-message
// cursor is undefined); a message that fails to decode
// counts the failure and the loop simply tries the next byte, which in
// practice means the stream is exhausted and the loop exits on its own.
func (c *NetChannel) dispatchPayload(payload []byte) {
	r := netmsg.NewReader(payload)
	for r.Remaining() > 0 {
		typ, err := r.GetUint8()
		if err != nil {
			return
		}
		if int(typ) >= len(c.handlers) {
			c.stats.InvalidMessageTypeCount++
			return
		}
		if err := c.handlers[typ](c, r); err != nil {
			c.stats.InvalidMessagePayloadCount++
			continue
		}
	}
}

// applyAcknowledgement folds a freshly received (ack, mask) pair into the
// send buffer: packets at or before ack are fully acknowledged and
// dropped; packets named by a mask bit are flagged acked but kept (they
// still block a contiguous ack advance until the gap behind them closes).
// Acknowledgement.Less/Greater guards against an older ack/mask pair
// racing in after a newer one at the UDP layer.
func (c *NetChannel) applyAcknowledgement(ack Acknowledgement) {
	if !ack.Greater(c.latestAckReceived) {
		return
	}
	c.latestAckReceived = ack

	kept := c.sendBuffer[:0]
	for _, pkt := range c.sendBuffer {
		dist := SequenceDistance(pkt.header.Seq - ack.Ack)
		if dist <= 0 {
			continue
		}
		if bit := dist - 2; bit >= 0 && int(bit) < packetMaskBits && ack.Mask&(1<<uint(bit)) != 0 {
			pkt.acked = true
		}
		kept = append(kept, pkt)
	}
	c.sendBuffer = kept
}
