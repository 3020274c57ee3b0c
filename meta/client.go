package meta

import (
	"time"

	"github.com/fortress-go/core/netchan"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
)

// Client is one peer's connection to a meta server: either a game server
// sending periodic Heartbeats, or a browser sending one
// AddressListRequest and waiting on OnAddressList.
type Client struct {
	socket  *netio.UDPSocket
	channel *netchan.NetChannel

	OnAddressList func(AddressList)

	heartbeatInterval time.Duration
	nextHeartbeat     time.Time
	heartbeat         func() Heartbeat
}

// NewClient builds a Client bound to socket, connecting to the meta
// server at endpoint. heartbeat, if non-nil, is called every interval to
// produce the next Heartbeat to send (a game server supplies this; a
// bare browser leaves it nil and only calls RequestAddressList).
func NewClient(socket *netio.UDPSocket, endpoint netio.IpEndpoint, heartbeat func() Heartbeat, interval time.Duration) (*Client, error) {
	c := &Client{socket: socket, heartbeat: heartbeat, heartbeatInterval: interval}
	c.channel = netchan.New(c.handlers(), nil, socket)
	if err := c.channel.Connect(endpoint); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) handlers() []netchan.HandlerFunc {
	return []netchan.HandlerFunc{
		func(ch *netchan.NetChannel, r *netmsg.Reader) error { return nil }, // Heartbeat has no reply on this side
		func(ch *netchan.NetChannel, r *netmsg.Reader) error { return nil }, // AddressListRequest likewise
		c.handleAddressList,
	}
}

func (c *Client) handleAddressList(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m AddressList
	if err := m.Decode(r); err != nil {
		return err
	}
	if c.OnAddressList != nil {
		c.OnAddressList(m)
	}
	return nil
}

// RequestAddressList asks the meta server for its current listing; the
// response arrives via OnAddressList on a later Tick.
func (c *Client) RequestAddressList() bool {
	return c.channel.Send(TypeAddressListRequest, AddressListRequest{})
}

// receivePackets drains every datagram queued on the client's own socket
// into the channel. The socket is private to this client (bound to an
// ephemeral port), so everything that arrives belongs to this connection.
func (c *Client) receivePackets() {
	buf := make([]byte, netchan.MaxPacketSize)
	for {
		n, _, err := c.socket.ReceiveFrom(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		c.channel.ReceivePacket(data)
	}
}

// Tick drives the connection and, once connected, sends a heartbeat every
// heartbeatInterval if a heartbeat source was configured.
func (c *Client) Tick() bool {
	c.receivePackets()
	if !c.channel.Update() {
		return false
	}
	if c.heartbeat != nil && c.channel.Connected() {
		now := time.Now()
		if !now.Before(c.nextHeartbeat) {
			c.channel.Send(TypeHeartbeat, c.heartbeat())
			c.nextHeartbeat = now.Add(c.heartbeatInterval)
		}
	}
	c.channel.SendPackets()
	return true
}

func (c *Client) Connected() bool { return c.channel.Connected() }
func (c *Client) Channel() *netchan.NetChannel { return c.channel }
