// Package metrics exposes a prometheus.Collector over every connected
// netchan.NetChannel's ConnectionStats, plus a handful of World gauges,
// following the Describe/Collect/Add/Remove shape of
// runZeroInc-conniver's pkg/exporter.TCPInfoCollector.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fortress-go/core/netchan"
)

type statField struct {
	desc  *prometheus.Desc
	value func(netchan.ConnectionStats) float64
}

// ConnectionCollector scrapes ConnectionStats from every NetChannel
// registered with Add, labeled by the connection id the caller assigns
// (typically an xid.ID string).
type ConnectionCollector struct {
	mu    sync.Mutex
	conns map[string]*netchan.NetChannel
	descs []statField
}

// NewConnectionCollector builds the field-to-Desc table once.
func NewConnectionCollector(constLabels prometheus.Labels) *ConnectionCollector {
	const ns = "netchan"
	labels := []string{"connection"}
	mk := func(name, help string, f func(netchan.ConnectionStats) float64) statField {
		return statField{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(ns, "", name), help, labels, constLabels),
			value: f,
		}
	}
	return &ConnectionCollector{
		conns: make(map[string]*netchan.NetChannel),
		descs: []statField{
			mk("packets_sent_total", "Total packets sent.", func(s netchan.ConnectionStats) float64 { return float64(s.PacketsSent) }),
			mk("packets_received_total", "Total packets received.", func(s netchan.ConnectionStats) float64 { return float64(s.PacketsReceived) }),
			mk("bytes_sent_total", "Total bytes sent.", func(s netchan.ConnectionStats) float64 { return float64(s.BytesSent) }),
			mk("bytes_received_total", "Total bytes received.", func(s netchan.ConnectionStats) float64 { return float64(s.BytesReceived) }),
			mk("reliable_packets_written_total", "Reliable packets written to the send buffer.", func(s netchan.ConnectionStats) float64 { return float64(s.ReliablePacketsWritten) }),
			mk("reliable_packets_received_total", "Reliable packets received.", func(s netchan.ConnectionStats) float64 { return float64(s.ReliablePacketsReceived) }),
			mk("reliable_packets_out_of_order_total", "Reliable packets received out of order.", func(s netchan.ConnectionStats) float64 { return float64(s.ReliablePacketsReceivedOutOfOrder) }),
			mk("send_rate_throttle_total", "Times the send rate was throttled.", func(s netchan.ConnectionStats) float64 { return float64(s.SendRateThrottleCount) }),
			mk("packet_send_errors_total", "Socket send errors.", func(s netchan.ConnectionStats) float64 { return float64(s.PacketSendErrorCount) }),
			mk("encryption_errors_total", "Failures to encrypt (seal) an outgoing secret message.", func(s netchan.ConnectionStats) float64 { return float64(s.EncryptionErrorCount) }),
			mk("invalid_message_type_total", "Messages with an unrecognized type byte.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidMessageTypeCount) }),
			mk("invalid_message_payload_total", "Messages that failed to decode.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidMessagePayloadCount) }),
			mk("invalid_message_order_total", "Handshake, disconnect or pong messages received out of sequence.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidMessageOrderCount) }),
			mk("invalid_packet_header_total", "Packets with a malformed header.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidPacketHeaderCount) }),
			mk("invalid_outgoing_message_size_total", "Outgoing messages rejected for exceeding MAX_MESSAGE_SIZE.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidOutgoingMessageSizeCount) }),
			mk("invalid_outgoing_secret_message_size_total", "Outgoing secret messages rejected for exceeding the stream's max size.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidOutgoingSecretMessageSizeCount) }),
			mk("invalid_encrypted_message_total", "Encrypted messages that failed to decrypt.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidEncryptedMessageCount) }),
			mk("invalid_packet_checksum_total", "Packets dropped for checksum mismatch.", func(s netchan.ConnectionStats) float64 { return float64(s.InvalidPacketChecksumCount) }),
			mk("send_buffer_overflow_total", "Times the send buffer overflowed.", func(s netchan.ConnectionStats) float64 { return float64(s.SendBufferOverflowCount) }),
			mk("receive_buffer_overflow_total", "Times the receive buffer overflowed.", func(s netchan.ConnectionStats) float64 { return float64(s.ReceiveBufferOverflowCount) }),
			mk("allocation_errors_total", "Allocation failures while assembling a message.", func(s netchan.ConnectionStats) float64 { return float64(s.AllocationErrorCount) }),
		},
	}
}

// Add registers a channel under id so its stats are scraped until Remove.
func (c *ConnectionCollector) Add(id string, ch *netchan.NetChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[id] = ch
}

func (c *ConnectionCollector) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, id)
}

func (c *ConnectionCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, f := range c.descs {
		descs <- f.desc
	}
}

func (c *ConnectionCollector) Collect(out chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.conns {
		stats := ch.Stats()
		for _, f := range c.descs {
			out <- prometheus.MustNewConstMetric(f.desc, prometheus.CounterValue, f.value(stats), id)
		}
	}
}

// WorldStats is the subset of world.World the collector needs; kept as an
// interface so metrics never imports world (world stays collector-free).
type WorldStats interface {
	TickCount() uint64
	EntityCounts() map[string]int
}

// WorldCollector exposes World tick count and per-kind live entity counts.
type WorldCollector struct {
	world  WorldStats
	tick   *prometheus.Desc
	counts *prometheus.Desc
}

func NewWorldCollector(world WorldStats, constLabels prometheus.Labels) *WorldCollector {
	return &WorldCollector{
		world:  world,
		tick:   prometheus.NewDesc("world_tick_count_total", "Simulation ticks processed.", nil, constLabels),
		counts: prometheus.NewDesc("world_entities", "Live entity count by kind.", []string{"kind"}, constLabels),
	}
}

func (w *WorldCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- w.tick
	descs <- w.counts
}

func (w *WorldCollector) Collect(out chan<- prometheus.Metric) {
	out <- prometheus.MustNewConstMetric(w.tick, prometheus.CounterValue, float64(w.world.TickCount()))
	for kind, n := range w.world.EntityCounts() {
		out <- prometheus.MustNewConstMetric(w.counts, prometheus.GaugeValue, float64(n), kind)
	}
}
