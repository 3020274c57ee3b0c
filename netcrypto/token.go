package netcrypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
)

// TokenSize is the size of the random nonce both sides echo back during
// the handshake to prove liveness/ownership of the derived session keys
// before any application message is accepted.
const TokenSize = 32

type AccessToken [TokenSize]byte

// GenerateAccessToken returns a fresh random handshake token.
func GenerateAccessToken() (AccessToken, error) {
	var tok AccessToken
	_, err := io.ReadFull(rand.Reader, tok[:])
	return tok, err
}

// VerifyAccessToken is a constant-time comparison, since the token is
// attacker-observable over the wire and a timing leak here would help
// forge HandshakePart3.
func VerifyAccessToken(expected, actual AccessToken) bool {
	return subtle.ConstantTimeCompare(expected[:], actual[:]) == 1
}
