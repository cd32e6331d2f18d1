package wire

import "testing"

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner([]byte("secret-key"), "hmac-sha256")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	frames := [][]byte{[]byte(`{"a":1}`), []byte(`{}`), []byte(`{}`), []byte(`{"code":"1+1"}`)}
	tag := s.Compute(frames...)
	if tag == "" {
		t.Fatal("Compute returned empty tag for a non-disabled signer")
	}
	if !s.Verify(tag, frames...) {
		t.Fatal("Verify rejected a tag this same signer just computed")
	}
}

func TestSignerDetectsTamperedFrame(t *testing.T) {
	s, err := NewSigner([]byte("secret-key"), "hmac-sha256")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	frames := [][]byte{[]byte(`{"a":1}`), []byte(`{}`), []byte(`{}`), []byte(`{"code":"1+1"}`)}
	tag := s.Compute(frames...)

	tampered := make([][]byte, len(frames))
	copy(tampered, frames)
	tampered[3] = []byte(`{"code":"2+2"}`)
	if s.Verify(tag, tampered...) {
		t.Fatal("Verify accepted a tag computed over a different content frame")
	}
}

func TestSignerDifferentKeysDisagree(t *testing.T) {
	a, err := NewSigner([]byte("key-a"), "hmac-sha256")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	b, err := NewSigner([]byte("key-b"), "hmac-sha256")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	frames := [][]byte{[]byte(`{}`), []byte(`{}`), []byte(`{}`), []byte(`{}`)}
	if b.Verify(a.Compute(frames...), frames...) {
		t.Fatal("Verify accepted a tag computed with a different key")
	}
}

func TestSignerEmptyKeyDisablesSigning(t *testing.T) {
	s, err := NewSigner(nil, "hmac-sha256")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if !s.Disabled() {
		t.Fatal("Disabled() should be true for an empty key")
	}
	frames := [][]byte{[]byte(`{}`), []byte(`{}`), []byte(`{}`), []byte(`{}`)}
	if tag := s.Compute(frames...); tag != "" {
		t.Fatalf("Compute with a disabled signer should return an empty tag, got %q", tag)
	}
	if !s.Verify("", frames...) {
		t.Fatal("Verify with a disabled signer should accept any tag, including empty")
	}
	if !s.Verify("garbage-not-hex", frames...) {
		t.Fatal("Verify with a disabled signer should accept any tag")
	}
}

func TestNewSignerRejectsUnsupportedScheme(t *testing.T) {
	if _, err := NewSigner([]byte("k"), "hmac-sha1"); err == nil {
		t.Fatal("expected NewSigner to reject an unsupported signature scheme")
	}
}
