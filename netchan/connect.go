package netchan

import (
	"time"

	"github.com/fortress-go/core/netcrypto"
	"github.com/fortress-go/core/netio"
)

func (c *NetChannel) initializeConnection(serverSide bool, endpoint netio.IpEndpoint) error {
	c.reset()
	c.serverSide = serverSide
	c.endpoint = endpoint

	now := time.Now()
	c.latestPacketReceiveTime = now
	c.nextPingMeasureTime = now.Add(PingInterval)
	c.latestMeasuredPingDuration = 0

	pub, sec, err := netcrypto.GenerateKeypair()
	if err != nil {
		c.CloseWithMessage("Failed to create cryptographic keys.")
		return err
	}
	c.publicKey, c.secretKey = pub, sec

	token, err := netcrypto.GenerateAccessToken()
	if err != nil {
		c.CloseWithMessage("Failed to create cryptographic keys.")
		return err
	}
	c.localHandshakeToken = token

	c.state = StateHandshakePart1

	if !c.write(TypeHandshakePart1, handshakePart1Out{PublicKey: pub, Token: token}) {
		c.CloseWithMessage("Failed to write handshake message.")
		return nil
	}

	c.disconnectTime = now.Add(minDuration(ConnectDuration, c.timeout))
	c.disconnectMessage = "Connection handshake timed out."
	return nil
}

func (c *NetChannel) checkConnection() bool {
	if c.Disconnected() {
		return false
	}

	now := time.Now()

	if !c.Connected() && !now.Before(c.disconnectTime) {
		c.Close()
		return false
	}

	if len(c.receivedRaw) == 0 {
		if now.Sub(c.latestPacketReceiveTime) >= c.timeout {
			c.CloseWithMessage("Connection timed out (not receiving packets).")
			return false
		}
	} else {
		c.latestPacketReceiveTime = now
	}

	pingBudget := c.timeout
	if PingInterval*2 > pingBudget {
		pingBudget = PingInterval * 2
	}
	if time.Duration(len(c.pingTimeBuffer))*PingInterval > pingBudget {
		c.CloseWithMessage("Connection timed out (not receiving ping responses).")
		return false
	}
	return true
}
