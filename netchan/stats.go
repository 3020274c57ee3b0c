package netchan

// ConnectionStats counts every packet, byte, and failure class a
// connection sees; the metrics package scrapes it into Prometheus
// counters.
type ConnectionStats struct {
	PacketsSent                          uint64
	PacketsReceived                      uint64
	BytesSent                            uint64
	BytesReceived                        uint64
	ReliablePacketsWritten               uint64
	ReliablePacketsReceived              uint64
	ReliablePacketsReceivedOutOfOrder    uint64
	SendRateThrottleCount                uint64
	PacketSendErrorCount                 uint64
	EncryptionErrorCount                 uint64
	InvalidMessageTypeCount              uint64
	InvalidMessagePayloadCount           uint64
	InvalidMessageOrderCount             uint64
	InvalidPacketHeaderCount             uint64
	InvalidOutgoingMessageSizeCount      uint64
	InvalidOutgoingSecretMessageSizeCount uint64
	InvalidEncryptedMessageCount         uint64
	InvalidPacketChecksumCount           uint64
	SendBufferOverflowCount              uint64
	ReceiveBufferOverflowCount           uint64
	AllocationErrorCount                 uint64
}
