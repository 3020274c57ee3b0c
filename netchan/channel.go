package netchan

import (
	"time"

	"github.com/fortress-go/core/netcrypto"
	"github.com/fortress-go/core/netio"
	"github.com/fortress-go/core/netmsg"
)

// Connection timing tunables. The throttle values are defaults,
// overridable per channel via SetThrottleMaxSendBufferSize and
// SetThrottleMaxPeriod.
const (
	PingInterval               = time.Second
	ConnectDuration            = 10 * time.Second
	DisconnectDuration         = 3 * time.Second
	MaxChatMessageLength       = 256
	DefaultThrottleMaxSendBufferSize = 64
	DefaultThrottleMaxPeriod         = 30
)

// State is the connection's position in the handshake/connected/teardown
// state machine.
type State uint8

const (
	StateDisconnected State = iota
	StateHandshakePart1
	StateHandshakePart2
	StateHandshakePart3
	StateConnecting
	StateConnected
	StateDisconnectingMyself
	StateDisconnecting
)

// SendStatus reports the outcome of a send attempt.
type SendStatus uint8

const (
	SendSuccess SendStatus = iota
	SendPacketFailed
	SendBufferOverflow
	SendEncryptionFailed
)

// HandlerFunc decodes and handles one application message read from r. It
// is invoked with the channel so handlers can inspect connection state or
// write a reply.
type HandlerFunc func(ch *NetChannel, r *netmsg.Reader) error

type outgoingPacket struct {
	header  PacketHeader
	payload []byte
	acked   bool
}

type incomingPacket struct {
	header  PacketHeader
	payload []byte
}

type bufferedMessage struct {
	category netmsg.Category
	data     []byte
}

// ConnectedCallback is invoked once both sides have completed the
// handshake and reached StateConnected.
type ConnectedCallback func(ch *NetChannel)

// NetChannel is one peer's end of a reliable-UDP connection: a single
// cooperative, non-reentrant state machine driven entirely by Update,
// SendPackets and ReceivePacket. No internal goroutines, no locking.
type NetChannel struct {
	handlers    []HandlerFunc
	onConnected ConnectedCallback
	socket      *netio.UDPSocket
	endpoint    netio.IpEndpoint

	timeout                  time.Duration
	throttleMaxSendBufferSize int
	throttleMaxPeriod         int

	serverSide bool
	state      State

	publicKey netcrypto.PublicKey
	secretKey netcrypto.SecretKey
	sendKey   netcrypto.SessionKey
	receiveKey netcrypto.SessionKey
	sendStream    netcrypto.Stream
	receiveStream netcrypto.Stream

	localHandshakeToken  netcrypto.AccessToken
	remoteHandshakeToken netcrypto.AccessToken

	sendBuffer    []outgoingPacket
	receiveBuffer map[SequenceNumber]incomingPacket
	receivedRaw   [][]byte
	bufferedMessages []bufferedMessage
	reassembling  []byte

	pingTimeBuffer []time.Time

	disconnectMessage string
	disconnectTime    time.Time

	latestSeqSent     SequenceNumber
	latestSeqHandled  SequenceNumber
	latestAckReceived Acknowledgement

	latestPacketReceiveTime   time.Time
	nextPingMeasureTime       time.Time
	latestMeasuredPingDuration time.Duration

	throttlePeriod  int
	throttleCounter int

	stats ConnectionStats
}

// New constructs a NetChannel bound to socket, dispatching application
// messages (indexed starting at NumReservedMessages) through handlers.
func New(handlers []HandlerFunc, onConnected ConnectedCallback, socket *netio.UDPSocket) *NetChannel {
	c := &NetChannel{
		onConnected:               onConnected,
		socket:                    socket,
		timeout:                   ConnectDuration,
		throttleMaxSendBufferSize: DefaultThrottleMaxSendBufferSize,
		throttleMaxPeriod:         DefaultThrottleMaxPeriod,
		receiveBuffer:             make(map[SequenceNumber]incomingPacket),
	}
	reserved := []HandlerFunc{
		wrapReserved(func() netmsg.InputMessage { return &handshakePart1In{} }, (*NetChannel).onHandshakePart1),
		wrapReserved(func() netmsg.InputMessage { return &handshakePart2In{} }, (*NetChannel).onHandshakePart2),
		wrapReserved(func() netmsg.InputMessage { return &handshakePart3In{} }, (*NetChannel).onHandshakePart3),
		wrapReserved(func() netmsg.InputMessage { return &connectIn{} }, (*NetChannel).onConnect),
		wrapReserved(func() netmsg.InputMessage { return &disconnectIn{} }, (*NetChannel).onDisconnect),
		wrapReserved(func() netmsg.InputMessage { return &closeIn{} }, (*NetChannel).onClose),
		wrapReserved(func() netmsg.InputMessage { return &pingIn{} }, (*NetChannel).onPing),
		wrapReserved(func() netmsg.InputMessage { return &pongIn{} }, (*NetChannel).onPong),
		wrapReserved(func() netmsg.InputMessage { return &encryptedMessageIn{} }, (*NetChannel).onEncryptedMessage),
	}
	c.handlers = append(reserved, handlers...)
	return c
}

// wrapReserved binds a decoder and a typed handler method into the
// untyped HandlerFunc shape the dispatch table stores.
func wrapReserved(dec netmsg.Decoder, handle func(*NetChannel, netmsg.InputMessage) error) HandlerFunc {
	return func(c *NetChannel, r *netmsg.Reader) error {
		msg := dec()
		if err := msg.Decode(r); err != nil {
			return err
		}
		return handle(c, msg)
	}
}

// --- accessors -------------------------------------------------------

func (c *NetChannel) RemoteEndpoint() netio.IpEndpoint { return c.endpoint }
func (c *NetChannel) LatestMeasuredPingDuration() time.Duration { return c.latestMeasuredPingDuration }
func (c *NetChannel) Timeout() time.Duration { return c.timeout }
func (c *NetChannel) SetTimeout(d time.Duration) { c.timeout = d }
func (c *NetChannel) SetThrottleMaxSendBufferSize(n int) { c.throttleMaxSendBufferSize = n }
func (c *NetChannel) SetThrottleMaxPeriod(n int) { c.throttleMaxPeriod = n }
func (c *NetChannel) DisconnectMessage() string { return c.disconnectMessage }
func (c *NetChannel) Stats() ConnectionStats { return c.stats }
func (c *NetChannel) State() State { return c.state }

func (c *NetChannel) Connecting() bool {
	switch c.state {
	case StateHandshakePart1, StateHandshakePart2, StateHandshakePart3, StateConnecting:
		return true
	}
	return false
}

func (c *NetChannel) Connected() bool    { return c.state == StateConnected }
func (c *NetChannel) Disconnecting() bool {
	return c.state == StateDisconnectingMyself || c.state == StateDisconnecting
}
func (c *NetChannel) Disconnected() bool { return c.state == StateDisconnected }

// --- lifecycle ---------------------------------------------------------

// Connect begins the handshake as the initiating (client) side.
func (c *NetChannel) Connect(endpoint netio.IpEndpoint) error {
	return c.initializeConnection(false, endpoint)
}

// Accept begins the handshake as the responding (server) side.
func (c *NetChannel) Accept(endpoint netio.IpEndpoint) error {
	return c.initializeConnection(true, endpoint)
}

func (c *NetChannel) reset() {
	c.stats = ConnectionStats{}
	c.receiveBuffer = make(map[SequenceNumber]incomingPacket)
	c.sendBuffer = nil
	c.receivedRaw = nil
	c.bufferedMessages = nil
	c.reassembling = nil
	c.pingTimeBuffer = nil
	c.disconnectMessage = ""
	c.latestSeqSent = 0
	c.latestSeqHandled = 0
	c.latestAckReceived = Acknowledgement{}
	c.state = StateDisconnected
}

// Close immediately tears down the connection without recording a new
// message; a disconnect message recorded earlier, if any, is kept.
func (c *NetChannel) Close() bool {
	if !c.Disconnected() {
		c.state = StateDisconnected
		c.disconnectTime = time.Now()
		return true
	}
	return false
}

// CloseWithMessage is Close but records a reason for the local side to
// report (e.g. in a UI or log).
func (c *NetChannel) CloseWithMessage(message string) bool {
	if !c.Disconnected() {
		c.state = StateDisconnected
		c.disconnectTime = time.Now()
		c.disconnectMessage = message
		return true
	}
	return false
}

// Disconnect starts a graceful teardown, giving the peer up to delay
// (capped at the channel's timeout) to acknowledge before Close fires.
func (c *NetChannel) Disconnect(message string, delay time.Duration) bool {
	if c.Disconnected() {
		return false
	}
	if c.state == StateDisconnectingMyself {
		return false
	}
	c.state = StateDisconnectingMyself
	c.disconnectTime = time.Now().Add(minDuration(delay, c.timeout))
	c.disconnectMessage = message
	if !c.write(TypeDisconnect, disconnectOut{Message: message}) {
		c.Close()
		return false
	}
	return true
}

// Update runs one tick of connection bookkeeping: timeout checks and
// processing of packets received since the last Update. It returns false
// once the channel has closed.
func (c *NetChannel) Update() bool {
	if !c.checkConnection() {
		return false
	}
	c.processReceivedPackets()
	return true
}

// SendPackets flushes buffered messages and periodic pings onto the wire.
// Call once per tick, after Update.
func (c *NetChannel) SendPackets() {
	if c.Disconnected() {
		return
	}

	now := time.Now()
	if now.After(c.nextPingMeasureTime) || now.Equal(c.nextPingMeasureTime) {
		if c.Connected() {
			if c.write(TypePing, pingOut{}) {
				c.pingTimeBuffer = append(c.pingTimeBuffer, now)
			}
		}
		for !now.Before(c.nextPingMeasureTime) {
			c.nextPingMeasureTime = c.nextPingMeasureTime.Add(PingInterval)
		}
	}

	switch c.send() {
	case SendPacketFailed:
		c.CloseWithMessage("Failed to send packets.")
	case SendBufferOverflow:
		c.CloseWithMessage("Send buffer overflow.")
	case SendEncryptionFailed:
		c.CloseWithMessage("Failed to encrypt packet.")
	}
}

// ReceivePacket queues one datagram payload for processing on the next
// Update.
func (c *NetChannel) ReceivePacket(data []byte) bool {
	if c.Disconnected() {
		return false
	}
	c.stats.PacketsReceived++
	c.stats.BytesReceived += uint64(len(data))
	c.receivedRaw = append(c.receivedRaw, data)
	return true
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
