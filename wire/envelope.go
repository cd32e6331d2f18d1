package wire

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/go-jupyter/jpyclient/jpyerrors"
)

// Delimiter is the literal frame separating an opaque routing-identity
// prefix from the signed payload of a Jupyter wire message.
var Delimiter = []byte("<IDS|MSG>")

// EmptyJSON is the literal empty-object JSON document used for any logical
// frame the protocol requires to be present but that carries no data
// (parent_header and metadata on outbound requests). The protocol never
// uses an empty byte string for this.
var EmptyJSON = json.RawMessage(`{}`)

// WireEnvelope holds the four logical frames of one Jupyter message, each
// a UTF-8 JSON document, in fixed order: header, parent_header, metadata,
// content.
type WireEnvelope struct {
	Header       json.RawMessage
	ParentHeader json.RawMessage
	Metadata     json.RawMessage
	Content      json.RawMessage

	// Buffers holds any raw frames that followed the content frame on the
	// wire. They are outside the signed region, opaque, and preserved
	// as-is: some kernels append binary buffers for large payloads.
	Buffers [][]byte
}

// logicalFrames returns the four logical frames in wire order, as bytes,
// substituting EmptyJSON for any unset (nil) frame.
func (e WireEnvelope) logicalFrames() [][]byte {
	fill := func(raw json.RawMessage) []byte {
		if len(raw) == 0 {
			return []byte(EmptyJSON)
		}
		return raw
	}
	return [][]byte{fill(e.Header), fill(e.ParentHeader), fill(e.Metadata), fill(e.Content)}
}

// Encode produces the full on-wire frame sequence for this envelope:
// [delimiter, signature, header, parent_header, metadata, content].
// Routing-identity prefix frames are a transport-layer concern and are
// not synthesized here.
func (e WireEnvelope) Encode(signer *Signer) [][]byte {
	logical := e.logicalFrames()
	sig := signer.Compute(logical...)
	frames := make([][]byte, 0, 6+len(e.Buffers))
	frames = append(frames, Delimiter, []byte(sig))
	frames = append(frames, logical...)
	frames = append(frames, e.Buffers...)
	return frames
}

// DecodeFrames parses a received multi-frame ZeroMQ message into its
// opaque identity prefix and a verified WireEnvelope.
//
// It locates the delimiter by exact byte match (never matching bytes
// that happen to appear inside a JSON frame's content, since frames are
// compared whole, not scanned for substrings), treats everything before
// it as routing identities, reads the next frame as the hex signature,
// the following four as the logical message, and verifies the signature
// over those four frames.
func DecodeFrames(frames [][]byte, signer *Signer) (identities [][]byte, env WireEnvelope, err error) {
	delimIdx := -1
	for i, f := range frames {
		if bytes.Equal(f, Delimiter) {
			delimIdx = i
			break
		}
	}
	if delimIdx == -1 {
		return nil, WireEnvelope{}, &jpyerrors.MalformedEnvelope{Msg: "delimiter <IDS|MSG> not found in received message"}
	}
	if len(frames)-delimIdx-1 < 5 {
		return nil, WireEnvelope{}, &jpyerrors.MalformedEnvelope{
			Msg: "fewer than 5 frames (signature plus four logical frames) found after delimiter",
		}
	}

	identities = frames[:delimIdx]
	sigFrame := frames[delimIdx+1]
	logical := frames[delimIdx+2 : delimIdx+6]

	for _, f := range logical {
		if !utf8.Valid(f) {
			return nil, WireEnvelope{}, &jpyerrors.Encoding{}
		}
	}

	if !signer.Verify(string(sigFrame), logical...) {
		return nil, WireEnvelope{}, &jpyerrors.SignatureMismatch{
			Msg: "HMAC tag does not match computed signature over header/parent_header/metadata/content",
		}
	}

	env = WireEnvelope{
		Header:       json.RawMessage(logical[0]),
		ParentHeader: json.RawMessage(logical[1]),
		Metadata:     json.RawMessage(logical[2]),
		Content:      json.RawMessage(logical[3]),
	}
	if len(frames) > delimIdx+6 {
		env.Buffers = frames[delimIdx+6:]
	}
	return identities, env, nil
}

// DecodeHeader unmarshals the envelope's header frame into a Header.
func (e WireEnvelope) DecodeHeader() (Header, error) {
	var h Header
	if err := json.Unmarshal(e.Header, &h); err != nil {
		return Header{}, &jpyerrors.MalformedEnvelope{Msg: "decoding header frame", Cause: err}
	}
	return h, nil
}

// DecodeParentHeader unmarshals the envelope's parent_header frame into a
// Header. An empty ("{}") parent_header decodes to the zero Header.
func (e WireEnvelope) DecodeParentHeader() (Header, error) {
	var h Header
	if err := json.Unmarshal(e.ParentHeader, &h); err != nil {
		return Header{}, &jpyerrors.MalformedEnvelope{Msg: "decoding parent_header frame", Cause: err}
	}
	return h, nil
}
