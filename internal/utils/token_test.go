package utils

import "testing"

func TestLiveViewTokenRoundTrip(t *testing.T) {
	token, hash, err := NewLiveViewToken()
	if err != nil {
		t.Fatalf("NewLiveViewToken: %v", err)
	}
	if token == "" || hash == "" {
		t.Fatal("expected non-empty token and hash")
	}
	if token == hash {
		t.Fatal("hash must not equal plaintext token")
	}

	if err := CheckLiveViewToken(hash, token); err != nil {
		t.Errorf("minted token should verify: %v", err)
	}
	if err := CheckLiveViewToken(hash, "wrong-token"); err == nil {
		t.Error("wrong token must not verify")
	}
}

func TestTokensRotate(t *testing.T) {
	a, _, err := NewLiveViewToken()
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := NewLiveViewToken()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("consecutive tokens must differ")
	}
}
