package netchan

import (
	"bytes"
	"compress/flate"
	"io"
)

// compressThreshold is the smallest payload worth running through deflate;
// below it the flate header overhead eats any gain.
const compressThreshold = 128

// compressPayload deflates payload, reporting false when compression did
// not shrink it (the packet is then sent uncompressed, so the COMPRESSED
// flag always marks a strictly smaller wire payload).
func compressPayload(payload []byte) ([]byte, bool) {
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return nil, false
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, false
	}
	if err := zw.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(payload) {
		return nil, false
	}
	return buf.Bytes(), true
}

// decompressPayload inflates a COMPRESSED packet's payload. The sender only
// ever compresses a payload that fit the packet budget, so anything
// inflating past MaxPacketSize is corrupt and rejected.
func decompressPayload(payload []byte) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(payload))
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, MaxPacketSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxPacketSize {
		return nil, io.ErrUnexpectedEOF
	}
	return out, nil
}
