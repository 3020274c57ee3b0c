package netmsg

import "testing"

func TestWriterReaderScalarRoundTrip(t *testing.T) {
	w := NewWriter(32)
	w.PutUint8(0x42)
	w.PutUint16(1234)
	w.PutUint32(567890)
	w.PutInt32(-42)
	w.PutFloat32(3.5)
	w.PutBool(true)
	w.PutString("Hello World")

	r := NewReader(w.Bytes())

	if v, err := r.GetUint8(); err != nil || v != 0x42 {
		t.Errorf("GetUint8: got %d, %v", v, err)
	}
	if v, err := r.GetUint16(); err != nil || v != 1234 {
		t.Errorf("GetUint16: got %d, %v", v, err)
	}
	if v, err := r.GetUint32(); err != nil || v != 567890 {
		t.Errorf("GetUint32: got %d, %v", v, err)
	}
	if v, err := r.GetInt32(); err != nil || v != -42 {
		t.Errorf("GetInt32: got %d, %v", v, err)
	}
	if v, err := r.GetFloat32(); err != nil || v != 3.5 {
		t.Errorf("GetFloat32: got %v, %v", v, err)
	}
	if v, err := r.GetBool(); err != nil || v != true {
		t.Errorf("GetBool: got %v, %v", v, err)
	}
	if v, err := r.GetString(); err != nil || v != "Hello World" {
		t.Errorf("GetString: got %q, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected 0 remaining bytes, got %d", r.Remaining())
	}
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.GetUint32(); err != ErrShortBuffer {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestReaderOverLongLengthPrefix(t *testing.T) {
	w := NewWriter(4)
	w.PutUint32(1000) // claims 1000 bytes but none follow
	r := NewReader(w.Bytes())
	if _, err := r.GetBytes(); err != ErrLengthPrefix {
		t.Errorf("expected ErrLengthPrefix, got %v", err)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	w := NewWriter(16)
	payload := []byte{1, 2, 3, 4, 5}
	w.PutBytes(payload)

	r := NewReader(w.Bytes())
	got, err := r.GetBytes()
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(got))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Errorf("byte %d: expected %d, got %d", i, payload[i], got[i])
		}
	}
}
