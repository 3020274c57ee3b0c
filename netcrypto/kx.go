// Package netcrypto implements the handshake key exchange and streaming
// encryption used by netchan: X25519 key agreement with an HKDF-SHA256
// expansion (the same Diffie-Hellman-then-KDF construction libsodium's
// crypto_kx uses) and a directional XChaCha20-Poly1305 message stream
// modeled on libsodium's secretstream.
package netcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of a public/secret X25519 key and of a derived
// session key.
const KeySize = 32

type PublicKey [KeySize]byte
type SecretKey [KeySize]byte
type SessionKey [KeySize]byte

var ErrSuspiciousKey = errors.New("netcrypto: peer public key is all-zero (suspicious)")

// GenerateKeypair returns a fresh X25519 keypair generated for the
// lifetime of one NetChannel.
func GenerateKeypair() (pub PublicKey, sec SecretKey, err error) {
	if _, err = io.ReadFull(rand.Reader, sec[:]); err != nil {
		return pub, sec, err
	}
	p, err := curve25519.X25519(sec[:], curve25519.Basepoint)
	if err != nil {
		return pub, sec, err
	}
	copy(pub[:], p)
	return pub, sec, nil
}

// isSuspicious rejects an all-zero remote key, the classic curve25519
// low-order-point degenerate case that collapses the shared secret to a
// fixed value regardless of the local secret key.
func isSuspicious(remotePublic PublicKey) bool {
	var zero PublicKey
	return remotePublic == zero
}

// deriveSessionKeys runs X25519(localSecret, remotePublic) then an
// HKDF-SHA256 expansion keyed by both parties' public keys (client key
// first, then server key, matching libsodium's crypto_kx derivation
// order), producing two session keys ordered (rx, tx) from the caller's
// point of view.
func deriveSessionKeys(localSecret SecretKey, localPublic, remotePublic PublicKey, clientFirst bool) (rx, tx SessionKey, err error) {
	if isSuspicious(remotePublic) {
		return rx, tx, ErrSuspiciousKey
	}
	shared, err := curve25519.X25519(localSecret[:], remotePublic[:])
	if err != nil {
		return rx, tx, err
	}

	var clientKey, serverKey PublicKey
	if clientFirst {
		clientKey, serverKey = localPublic, remotePublic
	} else {
		clientKey, serverKey = remotePublic, localPublic
	}

	salt := make([]byte, 0, KeySize*2)
	salt = append(salt, clientKey[:]...)
	salt = append(salt, serverKey[:]...)

	h := hkdf.New(sha256.New, shared, salt, []byte("af2-netchan-kx"))
	var client2server, server2client SessionKey
	if _, err := io.ReadFull(h, client2server[:]); err != nil {
		return rx, tx, err
	}
	if _, err := io.ReadFull(h, server2client[:]); err != nil {
		return rx, tx, err
	}

	if clientFirst {
		// client receives what the server sends (server2client) and
		// transmits on client2server.
		return server2client, client2server, nil
	}
	return client2server, server2client, nil
}

// GenerateSessionKeysClientSide derives (rx, tx) for the connecting side.
func GenerateSessionKeysClientSide(localSecret SecretKey, localPublic, remotePublic PublicKey) (rx, tx SessionKey, err error) {
	return deriveSessionKeys(localSecret, localPublic, remotePublic, true)
}

// GenerateSessionKeysServerSide derives (rx, tx) for the accepting side.
func GenerateSessionKeysServerSide(localSecret SecretKey, localPublic, remotePublic PublicKey) (rx, tx SessionKey, err error) {
	return deriveSessionKeys(localSecret, localPublic, remotePublic, false)
}
