// Package wire implements the Jupyter messaging protocol's on-wire frame
// format: message headers, HMAC-SHA256 signing, and the multi-frame
// envelope that carries header/parent_header/metadata/content between a
// client and a kernel.
//
// Reference documentation:
// https://jupyter-client.readthedocs.io/en/latest/messaging.html
package wire

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// ProtocolVersion is the Jupyter messaging protocol version this client
// emits on outbound requests.
const ProtocolVersion = "5.0"

// Header is the six-field message header shared by every Jupyter message,
// used both for a message's own header and for its parent_header.
type Header struct {
	Date            string `json:"date"`
	MsgID           string `json:"msg_id"`
	Username        string `json:"username"`
	Session         string `json:"session"`
	MsgType         string `json:"msg_type"`
	ProtocolVersion string `json:"version"`
}

// EmptyHeader is the zero-value Header. It marshals with all six keys
// present as empty strings, not as "{}"; outbound requests carry EmptyJSON
// as their parent_header instead.
var EmptyHeader = Header{}

// NewHeader builds a fresh request header: a newly minted UUID v4 msg_id,
// the current UTC time in RFC-3339 form, and the given msgType and
// session. date is never left empty — kernels tolerate a missing date,
// but the protocol requires one.
func NewHeader(msgType, session, username string) (Header, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Header{}, errors.WithMessage(err, "wire.NewHeader: generating msg_id")
	}
	return Header{
		Date:            time.Now().UTC().Format(time.RFC3339),
		MsgID:           id.String(),
		Username:        username,
		Session:         session,
		MsgType:         msgType,
		ProtocolVersion: ProtocolVersion,
	}, nil
}
