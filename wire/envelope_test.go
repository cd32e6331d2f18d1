package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope() WireEnvelope {
	return WireEnvelope{
		Header:       json.RawMessage(`{"msg_id":"1","msg_type":"kernel_info_request"}`),
		ParentHeader: EmptyJSON,
		Metadata:     EmptyJSON,
		Content:      json.RawMessage(`{}`),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	signer, err := NewSigner([]byte("key"), "hmac-sha256")
	require.NoError(t, err)
	env := testEnvelope()
	frames := env.Encode(signer)
	require.Len(t, frames, 6)
	assert.Equal(t, Delimiter, frames[0])

	// Simulate a ROUTER peer prefixing an opaque identity frame.
	onWire := append([][]byte{[]byte("\x00identity\x00")}, frames...)

	identities, decoded, err := DecodeFrames(onWire, signer)
	require.NoError(t, err)
	assert.Len(t, identities, 1)
	assert.Equal(t, env.Header, decoded.Header)
	assert.Equal(t, env.Content, decoded.Content)
}

func TestDecodeFramesPreservesBuffers(t *testing.T) {
	signer, err := NewSigner([]byte("key"), "hmac-sha256")
	require.NoError(t, err)
	env := testEnvelope()
	env.Buffers = [][]byte{{0x01, 0x02}, {0xff}}
	frames := env.Encode(signer)
	require.Len(t, frames, 8)

	_, decoded, err := DecodeFrames(frames, signer)
	require.NoError(t, err)
	assert.Equal(t, env.Buffers, decoded.Buffers,
		"buffer frames after content must survive decode untouched")
}

func TestDecodeFramesDelimiterSubstringDoesNotMatch(t *testing.T) {
	signer, err := NewSigner(nil, "hmac-sha256")
	require.NoError(t, err)
	env := testEnvelope()
	frames := env.Encode(signer)

	// An identity frame containing the delimiter bytes as a substring must
	// not be mistaken for the delimiter itself.
	onWire := append([][]byte{[]byte(`{"note":"<IDS|MSG> inside json"}`)}, frames...)
	identities, _, err := DecodeFrames(onWire, signer)
	require.NoError(t, err)
	assert.Len(t, identities, 1)
}

func TestEncodeEmptyKeyProducesEmptySignatureFrame(t *testing.T) {
	signer, err := NewSigner(nil, "hmac-sha256")
	require.NoError(t, err)
	frames := testEnvelope().Encode(signer)
	require.Len(t, frames, 6)
	assert.Empty(t, frames[1], "signature frame must be empty bytes when the key is empty")

	_, _, err = DecodeFrames(frames, signer)
	assert.NoError(t, err)
}

func TestDecodeFramesMissingDelimiter(t *testing.T) {
	signer, _ := NewSigner(nil, "hmac-sha256")
	_, _, err := DecodeFrames([][]byte{[]byte("a"), []byte("b")}, signer)
	var malformed *jpyerrors.MalformedEnvelope
	require.Error(t, err)
	assert.True(t, errors.As(err, &malformed))
}

func TestDecodeFramesTooFewFrames(t *testing.T) {
	signer, _ := NewSigner(nil, "hmac-sha256")
	onWire := [][]byte{Delimiter, []byte(""), []byte("{}"), []byte("{}")}
	_, _, err := DecodeFrames(onWire, signer)
	var malformed *jpyerrors.MalformedEnvelope
	require.Error(t, err)
	assert.True(t, errors.As(err, &malformed))
}

func TestDecodeFramesSignatureMismatch(t *testing.T) {
	signer, err := NewSigner([]byte("key"), "hmac-sha256")
	require.NoError(t, err)
	env := testEnvelope()
	frames := env.Encode(signer)
	frames[1] = []byte("deadbeef")

	_, _, err = DecodeFrames(frames, signer)
	var mismatch *jpyerrors.SignatureMismatch
	require.Error(t, err)
	assert.True(t, errors.As(err, &mismatch))
}

func TestDecodeFramesInvalidUTF8(t *testing.T) {
	signer, _ := NewSigner(nil, "hmac-sha256")
	frames := [][]byte{Delimiter, []byte(""), {0xff, 0xfe}, []byte("{}"), []byte("{}"), []byte("{}")}
	_, _, err := DecodeFrames(frames, signer)
	var enc *jpyerrors.Encoding
	require.Error(t, err)
	assert.True(t, errors.As(err, &enc))
}
