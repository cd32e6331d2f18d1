// Package jpyerrors defines the error taxonomy surfaced by jpyclient's
// wire, connection, command, response and client packages.
//
// Each kind is a small typed error; the kinds with a Cause field wrap the
// cause that triggered it, so errors.As/errors.Is work across layers and a
// github.com/pkg/errors-wrapped cause still prints its stack trace under
// %+v.
package jpyerrors

import "fmt"

// ConfigError reports a malformed connection description, an unsupported
// transport, or an unsupported signature scheme. Fatal at construction.
type ConfigError struct {
	Msg   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jpyclient: config error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("jpyclient: config error: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// TransportError reports a socket open/connect/send/recv failure. Bubbles
// to the caller and is fatal for the socket it occurred on.
type TransportError struct {
	Msg   string
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jpyclient: transport error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("jpyclient: transport error: %s", e.Msg)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// MalformedEnvelope reports a missing delimiter, a wrong frame count, or
// a header/parent_header frame that does not decode as a JSON header
// (invalid UTF-8 is reported as Encoding). Fatal for the current
// exchange; the shell socket is left poisoned.
type MalformedEnvelope struct {
	Msg   string
	Cause error
}

func (e *MalformedEnvelope) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jpyclient: malformed envelope: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("jpyclient: malformed envelope: %s", e.Msg)
}

func (e *MalformedEnvelope) Unwrap() error { return e.Cause }

// SignatureMismatch reports that the computed HMAC tag does not match the
// signature frame. Fatal for the current exchange.
type SignatureMismatch struct {
	Msg string
}

func (e *SignatureMismatch) Error() string {
	return fmt.Sprintf("jpyclient: signature mismatch: %s", e.Msg)
}

// Encoding reports that a frame expected to hold UTF-8 JSON was not valid
// UTF-8.
type Encoding struct {
	Msg string
}

func (e *Encoding) Error() string {
	if e.Msg == "" {
		return "jpyclient: frame is not valid UTF-8 where JSON was expected"
	}
	return fmt.Sprintf("jpyclient: invalid UTF-8 frame: %s", e.Msg)
}

// SchemaError reports content JSON that is well-formed but does not match
// the schema expected for a known msg_type.
type SchemaError struct {
	MsgType string
	Msg     string
	Cause   error
}

func (e *SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jpyclient: schema error decoding %q: %s: %v", e.MsgType, e.Msg, e.Cause)
	}
	return fmt.Sprintf("jpyclient: schema error decoding %q: %s", e.MsgType, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// Cancelled reports that a consumer or the Client was dropped while a
// blocking operation was in flight.
type Cancelled struct {
	Msg string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("jpyclient: cancelled: %s", e.Msg)
}

// UnknownMessageType is never returned to a caller as an error — dispatch
// on an unrecognized msg_type instead produces a response.Unknown value,
// since the protocol is extensible and an unrecognized reply must not
// crash a subscriber. It exists as a typed value so internal plumbing
// that wants to distinguish "no decoder for this msg_type" from a genuine
// schema mismatch can do so without string matching.
type UnknownMessageType struct {
	MsgType string
}

func (e *UnknownMessageType) Error() string {
	return fmt.Sprintf("jpyclient: no decoder registered for msg_type %q", e.MsgType)
}
