package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-jupyter/jpyclient/jpyerrors"
)

// Signer computes and verifies the HMAC-SHA256 authentication tag over an
// ordered sequence of byte frames, as described by the Jupyter messaging
// protocol's wire format.
//
// The bytes hashed are exactly the concatenation of frames in order,
// with no separators and no length prefixes.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer for the given shared secret and signature
// scheme. Only "hmac-sha256" is supported; any other scheme is a
// jpyerrors.ConfigError, since the client has no other algorithm to fall
// back to.
func NewSigner(key []byte, scheme string) (*Signer, error) {
	if scheme != "hmac-sha256" {
		return nil, &jpyerrors.ConfigError{Msg: "unsupported signature_scheme " + scheme}
	}
	// Treat key as an opaque byte string: an empty key is valid and means
	// signing/verification is disabled (Jupyter's documented "no auth" mode).
	return &Signer{key: key}, nil
}

// Disabled reports whether this signer was built with an empty key, in
// which case Compute returns an empty tag and Verify accepts any tag the
// kernel sends (including an empty one).
func (s *Signer) Disabled() bool {
	return len(s.key) == 0
}

// Compute returns the lowercase hex HMAC-SHA256 tag over the concatenation
// of frames, in order.
func (s *Signer) Compute(frames ...[]byte) string {
	if s.Disabled() {
		return ""
	}
	mac := hmac.New(sha256.New, s.key)
	for _, f := range frames {
		mac.Write(f)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether tag is the correct signature for frames, using a
// constant-time comparison. When the signer is disabled (empty key), any
// tag is accepted, matching the kernel's own "auth disabled" behavior.
func (s *Signer) Verify(tag string, frames ...[]byte) bool {
	if s.Disabled() {
		return true
	}
	want, err := hex.DecodeString(tag)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	for _, f := range frames {
		mac.Write(f)
	}
	return hmac.Equal(mac.Sum(nil), want)
}
