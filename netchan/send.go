package netchan

import "github.com/fortress-go/core/netmsg"

// Send queues an application message for the next SendPackets. typ must be
// NumReservedMessages-or-greater and indexed consistently with the decoder
// slice the channel's application handlers were built from.
func (c *NetChannel) Send(typ netmsg.Type, msg netmsg.OutputMessage) bool {
	return c.write(typ, msg)
}

// write encodes typ+msg and queues it for the next SendPackets, unless it
// exceeds the size this connection (or, for a Secret message, the crypto
// stream) can carry, in which case it is dropped and counted.
func (c *NetChannel) write(typ netmsg.Type, msg netmsg.OutputMessage) bool {
	w := netmsg.NewWriter(64)
	w.PutUint8(typ)
	msg.Encode(w)
	data := w.Bytes()

	category := msg.Category()
	if category == netmsg.Secret {
		if len(data) > maxSecretPlaintext {
			c.stats.InvalidOutgoingSecretMessageSizeCount++
			return false
		}
	} else if len(data) > MaxMessageSize {
		c.stats.InvalidOutgoingMessageSizeCount++
		return false
	}

	c.bufferedMessages = append(c.bufferedMessages, bufferedMessage{category: category, data: data})
	return true
}

func (c *NetChannel) send() SendStatus {
	if len(c.sendBuffer) > c.throttleMaxSendBufferSize {
		if c.throttle() {
			c.stats.SendRateThrottleCount++
			return SendSuccess
		}
	} else {
		c.throttlePeriod = 0
		c.throttleCounter = 0
	}

	mask := c.earlyPacketMask()
	flags := FlagNone
	if mask != 0 {
		flags = FlagEarlyAcks
	}
	var payload []byte

	if len(c.bufferedMessages) == 0 && len(c.sendBuffer) == 0 {
		header := PacketHeader{Flags: flags, Ack: c.latestSeqHandled, Mask: mask}
		return c.sendPacketDirect(header, payload)
	}

	for i := range c.sendBuffer {
		pkt := &c.sendBuffer[i]
		if pkt.acked {
			continue
		}
		header := pkt.header
		if mask != 0 {
			header.Flags |= FlagEarlyAcks
		} else {
			header.Flags &^= FlagEarlyAcks
		}
		header.Ack = c.latestSeqHandled
		header.Mask = mask
		if status := c.sendPacketDirect(header, pkt.payload); status != SendSuccess {
			return status
		}
	}

	if status := c.writeMessages(&flags, mask, &payload); status != SendSuccess {
		return status
	}

	if len(payload) > 0 {
		return c.sendPacketFramed(flags, mask, payload)
	}
	return SendSuccess
}

func (c *NetChannel) throttle() bool {
	if c.throttlePeriod == 0 {
		if c.throttlePeriod < c.throttleMaxPeriod {
			c.throttlePeriod = len(c.sendBuffer) / c.throttleMaxSendBufferSize
			if c.throttlePeriod > c.throttleMaxPeriod {
				c.throttlePeriod = c.throttleMaxPeriod
			}
			return true
		}
		return false
	}
	c.throttleCounter++
	if c.throttleCounter < c.throttlePeriod {
		return true
	}
	c.throttleCounter = 0
	if c.throttlePeriod < c.throttleMaxPeriod {
		c.throttlePeriod++
	}
	return false
}

// earlyPacketMask builds the EARLY_ACKS bitmap: bit i set iff packet
// ack+2+i (ack == latestSeqHandled, the value this packet's header will
// carry) sits in the reorder buffer.
func (c *NetChannel) earlyPacketMask() PacketMask {
	var mask PacketMask
	for seq := range c.receiveBuffer {
		i := SequenceDistance(seq-c.latestSeqHandled) - 2
		if i >= 0 && int(i) < packetMaskBits {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// writeMessages drains c.bufferedMessages into payload, flushing full
// packets as it goes. Messages that cannot be sent yet (not connected and
// not a NetChannel message) are left buffered for the next call.
func (c *NetChannel) writeMessages(flags *Flags, mask PacketMask, payload *[]byte) SendStatus {
	messages := c.bufferedMessages
	var kept []bufferedMessage

	for i := 0; i < len(messages); i++ {
		message := messages[i]

		if !c.Connected() && len(message.data) > 0 && !IsReservedMessage(message.data[0]) {
			kept = append(kept, message)
			continue
		}

		if message.category == netmsg.Secret {
			ciphertext, ok := c.encryptMessage(message.data)
			if !ok {
				kept = append(kept, messages[i:]...)
				c.bufferedMessages = kept
				return SendEncryptionFailed
			}
			w := netmsg.NewWriter(len(ciphertext) + 8)
			w.PutUint8(TypeEncryptedMessage)
			encryptedMessageOut{CipherText: ciphertext}.Encode(w)
			message.data = w.Bytes()
			message.category = netmsg.Reliable
		}

		if len(message.data) > MaxPacketPayloadSize {
			if status := c.splitAndSendMessage(payload, flags, mask, message.data); status != SendSuccess {
				kept = append(kept, messages[i+1:]...)
				c.bufferedMessages = kept
				return status
			}
			*payload = (*payload)[:0]
			*flags &^= FlagReliable
			continue
		}

		if message.category == netmsg.Reliable {
			*flags |= FlagReliable
		}

		if len(*payload)+len(message.data) > MaxPacketPayloadSize {
			if status := c.sendPacketFramed(*flags, mask, *payload); status != SendSuccess {
				kept = append(kept, messages[i:]...)
				c.bufferedMessages = kept
				return status
			}
			*payload = nil
			*flags &^= FlagReliable
		}

		*payload = append(*payload, message.data...)
	}

	c.bufferedMessages = kept
	return SendSuccess
}

func (c *NetChannel) splitAndSendMessage(payload *[]byte, flags *Flags, mask PacketMask, message []byte) SendStatus {
	i := MaxPacketPayloadSize - len(*payload)

	pieces := 1
	if remaining := len(message) - i; remaining > 0 {
		pieces += (remaining + MaxPacketPayloadSize - 1) / MaxPacketPayloadSize
	}
	if pieces > receiveBufferCapacity {
		c.stats.SendBufferOverflowCount++
		return SendBufferOverflow
	}

	firstPiece := append(append([]byte(nil), *payload...), message[:i]...)
	header := PacketHeader{Flags: *flags | FlagReliable | FlagSplit, Ack: c.latestSeqHandled, Mask: mask}
	c.latestSeqSent++
	header.Seq = c.latestSeqSent
	if status := c.sendAndBufferPacket(header, firstPiece); status != SendSuccess {
		return status
	}

	for ; i+MaxPacketPayloadSize < len(message); i += MaxPacketPayloadSize {
		piece := append([]byte(nil), message[i:i+MaxPacketPayloadSize]...)
		c.latestSeqSent++
		header.Seq = c.latestSeqSent
		if status := c.sendAndBufferPacket(header, piece); status != SendSuccess {
			return status
		}
	}

	lastPiece := append([]byte(nil), message[i:]...)
	header.Flags |= FlagLastPiece
	c.latestSeqSent++
	header.Seq = c.latestSeqSent
	return c.sendAndBufferPacket(header, lastPiece)
}

func (c *NetChannel) sendPacketFramed(flags Flags, mask PacketMask, payload []byte) SendStatus {
	header := PacketHeader{Flags: flags, Ack: c.latestSeqHandled, Mask: mask}
	if flags.Has(FlagReliable) {
		c.latestSeqSent++
		header.Seq = c.latestSeqSent
		return c.sendAndBufferPacket(header, payload)
	}
	return c.sendPacketDirect(header, payload)
}

func (c *NetChannel) sendAndBufferPacket(header PacketHeader, payload []byte) SendStatus {
	c.sendBuffer = append(c.sendBuffer, outgoingPacket{header: header, payload: payload})
	c.stats.ReliablePacketsWritten++
	return c.sendPacketDirect(header, payload)
}

func (c *NetChannel) sendPacketDirect(header PacketHeader, payload []byte) SendStatus {
	if len(payload) >= compressThreshold {
		if compressed, ok := compressPayload(payload); ok {
			header.Flags |= FlagCompressed
			payload = compressed
		}
	}
	header.Checksum = calculateChecksum(payload)
	w := netmsg.NewWriter(headerMaxSize + len(payload))
	header.Encode(w)
	w.PutBytesRaw(payload)
	packet := w.Bytes()

	c.stats.PacketsSent++
	c.stats.BytesSent += uint64(len(packet))

	if _, err := c.socket.SendTo(c.endpoint, packet); err != nil {
		c.stats.PacketSendErrorCount++
		return SendPacketFailed
	}
	return SendSuccess
}
