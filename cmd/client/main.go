// Command client runs a headless fortress-go client: it connects a
// NetChannel to a game server, joins under a username, and prints chat
// and periodic snapshot summaries to the console. Rendering is out of
// scope; this is the connection/state half of a game client, exercising
// the full handshake, snapshot decode, and input path without a terminal
// renderer on top.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortress-go/core/gamenet"
	"github.com/fortress-go/core/logging"
	"github.com/fortress-go/core/netchan"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
)

type client struct {
	socket  *netio.UDPSocket
	channel *netchan.NetChannel
	name    string

	joined        bool
	snapshotCount int
}

func (c *client) handlers() []netchan.HandlerFunc {
	return []netchan.HandlerFunc{
		noopHandler, // Join: client never receives one
		noopHandler, // Input: client never receives one
		noopHandler, // ChatSend: client never receives one
		c.handleWelcome,
		c.handleSnapshot,
		c.handleChatBroadcast,
	}
}

func noopHandler(*netchan.NetChannel, *netmsg.Reader) error { return nil }

func (c *client) onConnected(ch *netchan.NetChannel) {
	logging.Success("connected to %s", ch.RemoteEndpoint())
	ch.Send(gamenet.TypeJoin, gamenet.Join{Name: c.name})
}

func (c *client) handleWelcome(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m gamenet.Welcome
	if err := m.Decode(r); err != nil {
		return err
	}
	c.joined = true
	logging.InfoCyan("joined %s as player %d (win limit %d)", m.MapName, m.YourId, m.WinLimit)
	return nil
}

func (c *client) handleSnapshot(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m gamenet.Snapshot
	if err := m.Decode(r); err != nil {
		return err
	}
	c.snapshotCount++
	// One line per second at the default 20 Hz snapshot rate is enough for a
	// headless console.
	if c.snapshotCount%20 == 1 {
		logging.Info("pos=(%d,%d) hp=%d players=%d projectiles=%d",
			m.S.Self.Position.X, m.S.Self.Position.Y, m.S.Self.Health,
			len(m.S.Players)+1, len(m.S.Projectiles))
	}
	return nil
}

func (c *client) handleChatBroadcast(ch *netchan.NetChannel, r *netmsg.Reader) error {
	var m gamenet.ChatBroadcast
	if err := m.Decode(r); err != nil {
		return err
	}
	if m.Name == "" {
		logging.InfoCyan("*** %s", m.Text)
	} else {
		logging.Info("<%s> %s", m.Name, m.Text)
	}
	return nil
}

func (c *client) receivePackets() {
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

// tick drives one iteration of the connection loop; returns false once the
// channel has closed.
func (c *client) tick() bool {
	c.receivePackets()
	if !c.channel.Update() {
		return false
	}
	c.channel.SendPackets()
	return true
}

func main() {
	var (
		server = flag.String("server", "127.0.0.1:7777", "game server address")
		name   = flag.String("name", "player", "username to join as")
	)
	flag.Parse()

	endpoint, err := netio.ParseIpEndpoint(*server)
	if err != nil {
		logging.Fatal("invalid -server endpoint: %v", err)
	}
	socket, err := netio.Bind(netio.IpEndpoint{})
	if err != nil {
		logging.Fatal("failed to bind local socket: %v", err)
	}
	defer socket.Close()

	c := &client{socket: socket, name: *name}
	c.channel = netchan.New(c.handlers(), c.onConnected, socket)
	if err := c.channel.Connect(endpoint); err != nil {
		logging.Fatal("failed to connect: %v", err)
	}
	logging.Info("connecting to %s ...", endpoint)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !c.tick() {
				logging.Warn("connection closed: %s", c.channel.DisconnectMessage())
				return
			}
		case <-sigChan:
			logging.Info("disconnecting")
			c.channel.Disconnect("Client quitting.", time.Second)
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) && c.tick() {
				time.Sleep(20 * time.Millisecond)
			}
			return
		}
	}
}
