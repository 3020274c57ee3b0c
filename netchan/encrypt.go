package netchan

import "github.com/fortress-go/core/netcrypto"

// maxSecretPlaintext is the largest serialized Secret message (type byte
// included) the send stream will accept in one Push.
const maxSecretPlaintext = netcrypto.MaxMessageSize

// encryptMessage pushes a serialized Secret message (type byte included)
// through the send stream. A push failure is counted and reported to the
// caller, which closes the channel; a skipped push would desynchronize
// the stream counters on both sides.
func (c *NetChannel) encryptMessage(plaintext []byte) ([]byte, bool) {
	ciphertext, err := c.sendStream.Push(plaintext)
	if err != nil {
		c.stats.EncryptionErrorCount++
		return nil, false
	}
	return ciphertext, true
}
