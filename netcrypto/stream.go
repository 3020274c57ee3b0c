package netcrypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// HeaderSize is the size of the stream header exchanged once during the
// handshake (HandshakePart2's header field) so the receiving side can
// initialize its receive stream from the same base nonce the sender used.
const HeaderSize = chacha20poly1305.NonceSizeX

// MessageAddedBytes is the fixed per-message overhead (the Poly1305
// authentication tag) added by Push.
const MessageAddedBytes = chacha20poly1305.Overhead

// MaxMessageSize is the largest plaintext a single secret message may
// carry.
const MaxMessageSize = 1 << 16

var (
	ErrStreamNotInitialized = errors.New("netcrypto: stream not initialized")
	ErrMessageTooLarge      = errors.New("netcrypto: secret message exceeds MaxMessageSize")
	ErrDecryptFailed        = errors.New("netcrypto: secret message authentication failed")
)

// Header is the random base nonce a Stream generates for itself on Init
// and that must be transmitted to the peer so its paired Stream can be
// initialized to decrypt the same sequence.
type Header [HeaderSize]byte

// Stream is a sequenced AEAD channel, the Go analogue of libsodium's
// crypto_secretstream_xchacha20poly1305: one Header establishes a base
// nonce, and each subsequent message advances an internal counter so
// every ciphertext uses a distinct nonce without retransmitting one.
// A Stream is directional: a NetChannel owns one send Stream and one
// receive Stream, each initialized from its own Header.
type Stream struct {
	aead    cipher.AEAD
	base    Header
	counter uint64
}

// GenerateHeader produces a fresh random base nonce for a send Stream.
func GenerateHeader() (Header, error) {
	var h Header
	_, err := io.ReadFull(rand.Reader, h[:])
	return h, err
}

// Init binds the stream to a session key and a (locally generated or
// peer-supplied) header.
func (s *Stream) Init(header Header, key SessionKey) error {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return err
	}
	s.aead = aead
	s.base = header
	s.counter = 0
	return nil
}

func (s *Stream) nonceFor(counter uint64) [chacha20poly1305.NonceSizeX]byte {
	var nonce [chacha20poly1305.NonceSizeX]byte
	copy(nonce[:], s.base[:])
	var ctr [8]byte
	binary.LittleEndian.PutUint64(ctr[:], counter)
	for i := range ctr {
		nonce[len(nonce)-8+i] ^= ctr[i]
	}
	return nonce
}

// Push encrypts plaintext into a self-contained ciphertext, advancing the
// stream's internal counter so the next call uses a fresh nonce.
func (s *Stream) Push(plaintext []byte) ([]byte, error) {
	if s.aead == nil {
		return nil, ErrStreamNotInitialized
	}
	if len(plaintext) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	nonce := s.nonceFor(s.counter)
	s.counter++
	return s.aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// Pull decrypts a ciphertext produced by the peer's Push, advancing this
// stream's counter in lockstep. Secret messages travel over the reliable
// channel, so delivery order, and thus counter order, is guaranteed.
func (s *Stream) Pull(ciphertext []byte) ([]byte, error) {
	if s.aead == nil {
		return nil, ErrStreamNotInitialized
	}
	nonce := s.nonceFor(s.counter)
	plaintext, err := s.aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	s.counter++
	return plaintext, nil
}
