// Package netmsg implements the wire codec shared by every NetChannel
// message: little-endian scalars, length-prefixed strings and lists, and
// fixed-size arrays, encoded and decoded field-by-field in declaration
// order through a typed Reader/Writer pair.
package netmsg

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned by every Get... method when the remaining
// input is not long enough to satisfy the read.
var ErrShortBuffer = errors.New("netmsg: short buffer")

// ErrLengthPrefix is returned when a string/list length prefix claims more
// bytes than remain in the stream.
var ErrLengthPrefix = errors.New("netmsg: over-long length prefix")

// MaxContainerLen bounds any single length-prefixed string or list so a
// corrupt or hostile length prefix cannot force a multi-gigabyte allocation
// before the short-buffer check below would have caught it.
const MaxContainerLen = 16 * 1024 * 1024

// Writer accumulates an encoded message payload.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with a pre-sized backing buffer.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the encoded payload so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) PutUint8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutUint8(1)
	} else {
		w.PutUint8(0)
	}
}

func (w *Writer) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutInt16(v int16) { w.PutUint16(uint16(v)) }

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutInt32(v int32) { w.PutUint32(uint32(v)) }

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutFloat32(v float32) { w.PutUint32(math.Float32bits(v)) }

// PutBytesRaw appends raw bytes with no length prefix; used for
// fixed-size arrays.
func (w *Writer) PutBytesRaw(b []byte) { w.buf = append(w.buf, b...) }

// PutBytes appends a u32 length prefix followed by the raw bytes.
func (w *Writer) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// PutString appends a u32 length prefix followed by the raw UTF-8 bytes.
func (w *Writer) PutString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader consumes an encoded message payload.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential decoding. buf is not copied or
// retained past the lifetime of the decode.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Rest returns the unread tail of the buffer without consuming it,
// letting a caller split a header off the front of a packet and hand the
// remainder to a separate decode pass (netchan's payload after the
// packet header).
func (r *Reader) Rest() []byte { return r.buf[r.off:] }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) GetUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) GetBool() (bool, error) {
	v, err := r.GetUint8()
	return v != 0, err
}

func (r *Reader) GetUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) GetInt16() (int16, error) {
	v, err := r.GetUint16()
	return int16(v), err
}

func (r *Reader) GetUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}

func (r *Reader) GetUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) GetFloat32() (float32, error) {
	v, err := r.GetUint32()
	return math.Float32frombits(v), err
}

// GetBytesRaw reads exactly n unprefixed bytes, for fixed-size arrays.
func (r *Reader) GetBytesRaw(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// GetBytes reads a u32-length-prefixed byte list.
func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	if n > MaxContainerLen || int(n) > r.Remaining() {
		return nil, ErrLengthPrefix
	}
	return r.GetBytesRaw(int(n))
}

// GetString reads a u32-length-prefixed UTF-8 string.
func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
