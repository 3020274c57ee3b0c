package netcrypto

import "testing"

func TestSessionKeysAgree(t *testing.T) {
	clientPub, clientSec, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("client GenerateKeypair: %v", err)
	}
	serverPub, serverSec, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("server GenerateKeypair: %v", err)
	}

	clientRx, clientTx, err := GenerateSessionKeysClientSide(clientSec, clientPub, serverPub)
	if err != nil {
		t.Fatalf("client side: %v", err)
	}
	serverRx, serverTx, err := GenerateSessionKeysServerSide(serverSec, serverPub, clientPub)
	if err != nil {
		t.Fatalf("server side: %v", err)
	}

	if clientTx != serverRx {
		t.Errorf("client tx key does not match server rx key")
	}
	if clientRx != serverTx {
		t.Errorf("client rx key does not match server tx key")
	}
}

func TestSessionKeysRejectSuspiciousKey(t *testing.T) {
	_, sec, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	var zero PublicKey
	if _, _, err := GenerateSessionKeysClientSide(sec, PublicKey{}, zero); err != ErrSuspiciousKey {
		t.Errorf("expected ErrSuspiciousKey, got %v", err)
	}
}

func TestStreamPushPullRoundTrip(t *testing.T) {
	var key SessionKey
	for i := range key {
		key[i] = byte(i)
	}
	header, err := GenerateHeader()
	if err != nil {
		t.Fatalf("GenerateHeader: %v", err)
	}

	var send, receive Stream
	if err := send.Init(header, key); err != nil {
		t.Fatalf("send.Init: %v", err)
	}
	if err := receive.Init(header, key); err != nil {
		t.Fatalf("receive.Init: %v", err)
	}

	messages := []string{"first", "second", "third"}
	for _, m := range messages {
		ct, err := send.Push([]byte(m))
		if err != nil {
			t.Fatalf("Push(%q): %v", m, err)
		}
		pt, err := receive.Pull(ct)
		if err != nil {
			t.Fatalf("Pull after Push(%q): %v", m, err)
		}
		if string(pt) != m {
			t.Errorf("round trip: expected %q, got %q", m, pt)
		}
	}
}

func TestStreamRejectsTamperedCiphertext(t *testing.T) {
	var key SessionKey
	header, _ := GenerateHeader()
	var send, receive Stream
	_ = send.Init(header, key)
	_ = receive.Init(header, key)

	ct, err := send.Push([]byte("payload"))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	ct[0] ^= 0xFF
	if _, err := receive.Pull(ct); err != ErrDecryptFailed {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	a, err := GenerateAccessToken()
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if !VerifyAccessToken(a, a) {
		t.Errorf("expected matching tokens to verify")
	}
	b, _ := GenerateAccessToken()
	if VerifyAccessToken(a, b) {
		t.Errorf("expected distinct tokens to fail verification")
	}
}
