package netchan

import (
	"time"

	"github.com/fortress-go/core/netcrypto"
	"github.com/fortress-go/core/netmsg"
)

func (c *NetChannel) onHandshakePart1(msg netmsg.InputMessage) error {
	m := msg.(*handshakePart1In)

	if c.state != StateHandshakePart1 {
		c.stats.InvalidMessageOrderCount++
		c.Disconnect("Invalid handshake sequence.", c.timeout)
		return nil
	}

	var rx, tx netcrypto.SessionKey
	var err error
	if c.serverSide {
		rx, tx, err = netcrypto.GenerateSessionKeysServerSide(c.secretKey, c.publicKey, m.PublicKey)
	} else {
		rx, tx, err = netcrypto.GenerateSessionKeysClientSide(c.secretKey, c.publicKey, m.PublicKey)
	}
	if err != nil {
		c.Disconnect("Suspicious peer public key.", c.timeout)
		return nil
	}
	c.receiveKey, c.sendKey = rx, tx

	header, err := netcrypto.GenerateHeader()
	if err != nil {
		c.Disconnect("Failed to initialize secret stream header.", c.timeout)
		return nil
	}
	if err := c.sendStream.Init(header, c.sendKey); err != nil {
		c.Disconnect("Failed to initialize secret stream header.", c.timeout)
		return nil
	}

	if !c.write(TypeHandshakePart2, handshakePart2Out{Header: header}) {
		c.CloseWithMessage("Failed to write handshake message.")
		return nil
	}

	c.remoteHandshakeToken = m.Token
	c.state = StateHandshakePart2
	return nil
}

func (c *NetChannel) onHandshakePart2(msg netmsg.InputMessage) error {
	m := msg.(*handshakePart2In)

	if c.state != StateHandshakePart2 {
		c.stats.InvalidMessageOrderCount++
		c.Disconnect("Invalid handshake sequence.", c.timeout)
		return nil
	}

	if err := c.receiveStream.Init(m.Header, c.receiveKey); err != nil {
		c.Disconnect("Invalid secret stream header.", c.timeout)
		return nil
	}

	if !c.write(TypeHandshakePart3, handshakePart3Out{Token: c.remoteHandshakeToken}) {
		c.CloseWithMessage("Failed to write handshake message.")
		return nil
	}

	c.state = StateHandshakePart3
	return nil
}

func (c *NetChannel) onHandshakePart3(msg netmsg.InputMessage) error {
	m := msg.(*handshakePart3In)

	if c.state != StateHandshakePart3 {
		c.stats.InvalidMessageOrderCount++
		c.Disconnect("Invalid handshake sequence.", c.timeout)
		return nil
	}

	if !netcrypto.VerifyAccessToken(c.localHandshakeToken, m.Token) {
		c.Disconnect("Invalid handshake token.", c.timeout)
		return nil
	}

	if !c.write(TypeConnect, connectOut{}) {
		c.CloseWithMessage("Failed to write handshake message.")
		return nil
	}

	c.state = StateConnecting
	return nil
}

func (c *NetChannel) onConnect(netmsg.InputMessage) error {
	if c.state != StateConnecting {
		c.stats.InvalidMessageOrderCount++
		c.Disconnect("Invalid handshake sequence.", c.timeout)
		return nil
	}

	c.disconnectMessage = ""
	c.state = StateConnected
	if c.onConnected != nil {
		c.onConnected(c)
	}
	return nil
}

func (c *NetChannel) onDisconnect(msg netmsg.InputMessage) error {
	m := msg.(*disconnectIn)

	if !c.Disconnecting() {
		c.state = StateDisconnecting
		c.disconnectTime = time.Now().Add(minDuration(DisconnectDuration, c.timeout))
		c.disconnectMessage = sanitizeMessage(m.Message, false)
	} else {
		c.stats.InvalidMessageOrderCount++
	}
	if !c.write(TypeClose, closeOut{}) {
		c.Close()
	}
	return nil
}

func (c *NetChannel) onClose(netmsg.InputMessage) error {
	if c.serverSide {
		if c.state != StateDisconnectingMyself {
			c.state = StateDisconnectingMyself
			c.disconnectTime = time.Now().Add(minDuration(DisconnectDuration, c.timeout))
		}
		if !c.write(TypeClose, closeOut{}) {
			c.Close()
		}
	} else {
		c.state = StateDisconnecting
		c.disconnectTime = time.Now()
	}
	return nil
}

func (c *NetChannel) onPing(netmsg.InputMessage) error {
	if !c.write(TypePong, pongOut{}) {
		c.CloseWithMessage("Failed to write pong.")
	}
	return nil
}

func (c *NetChannel) onPong(netmsg.InputMessage) error {
	if len(c.pingTimeBuffer) == 0 {
		c.stats.InvalidMessageOrderCount++
		return nil
	}
	c.latestMeasuredPingDuration = time.Since(c.pingTimeBuffer[0])
	c.pingTimeBuffer = c.pingTimeBuffer[1:]
	return nil
}

func (c *NetChannel) onEncryptedMessage(msg netmsg.InputMessage) error {
	m := msg.(*encryptedMessageIn)

	plaintext, err := c.receiveStream.Pull(m.CipherText)
	if err != nil {
		c.stats.InvalidEncryptedMessageCount++
		return nil
	}

	r := netmsg.NewReader(plaintext)
	typ, err := r.GetUint8()
	if err != nil {
		c.stats.InvalidEncryptedMessageCount++
		return nil
	}
	if int(typ) >= len(c.handlers) {
		c.stats.InvalidMessageTypeCount++
		return nil
	}
	if typ == TypeEncryptedMessage {
		c.stats.InvalidMessageTypeCount++
		return nil
	}
	return c.handlers[typ](c, r)
}

// sanitizeMessage clamps length and strips control characters from a
// peer-supplied chat/disconnect message before it is ever displayed or
// logged.
func sanitizeMessage(message string, allowNewlines bool) string {
	if len(message) > MaxChatMessageLength {
		message = message[:MaxChatMessageLength]
	}
	out := make([]byte, 0, len(message))
	for i := 0; i < len(message); i++ {
		ch := message[i]
		switch {
		case ch == '\n':
			if allowNewlines {
				out = append(out, '\n')
			} else {
				out = append(out, ' ')
			}
		case ch >= ' ' && ch <= '~':
			out = append(out, ch)
		}
	}
	return string(out)
}
