package command

import (
	"encoding/json"
	"fmt"

	"github.com/go-jupyter/jpyclient/wire"
	"github.com/pkg/errors"
)

// Encoder turns Command values into ready-to-sign WireEnvelopes: the one
// place that stamps a fresh header (msg_id, date, session) onto every
// outbound message. It holds the session identifier that must stay stable
// across every request a Client emits, and the username recorded in each
// header.
type Encoder struct {
	Session  string
	Username string
}

// NewEncoder builds an Encoder for a single Client's lifetime. session
// should be a freshly generated UUID (Client does this at construction);
// username defaults to "jpyclient" when empty.
func NewEncoder(session, username string) *Encoder {
	if username == "" {
		username = "jpyclient"
	}
	return &Encoder{Session: session, Username: username}
}

// Encode builds the WireEnvelope for cmd: a fresh header with a unique
// msg_id and this Encoder's stable session, an empty parent_header and
// metadata (client requests have no parent), and the marshaled
// command-specific content.
func (e *Encoder) Encode(cmd Command) (wire.WireEnvelope, error) {
	header, err := wire.NewHeader(cmd.msgType(), e.Session, e.Username)
	if err != nil {
		return wire.WireEnvelope{}, errors.WithMessage(err, "command.Encode: building header")
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return wire.WireEnvelope{}, errors.WithMessage(err, "command.Encode: marshaling header")
	}

	content, err := contentFor(cmd)
	if err != nil {
		return wire.WireEnvelope{}, errors.WithMessagef(err, "command.Encode: building content for %q", cmd.msgType())
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return wire.WireEnvelope{}, errors.WithMessagef(err, "command.Encode: marshaling content for %q", cmd.msgType())
	}

	return wire.WireEnvelope{
		Header:       headerJSON,
		ParentHeader: wire.EmptyJSON,
		Metadata:     wire.EmptyJSON,
		Content:      contentJSON,
	}, nil
}

// executeContent is the on-wire shape of an Execute command's content.
type executeContent struct {
	Code            string            `json:"code"`
	Silent          bool              `json:"silent"`
	StoreHistory    bool              `json:"store_history"`
	UserExpressions map[string]string `json:"user_expressions"`
	AllowStdin      bool              `json:"allow_stdin"`
	StopOnError     bool              `json:"stop_on_error"`
}

// inspectContent is the on-wire shape of an Inspect command's content.
// detail_level is serialized as an integer 0/1, never the symbolic name.
type inspectContent struct {
	Code        string `json:"code"`
	CursorPos   int    `json:"cursor_pos"`
	DetailLevel int    `json:"detail_level"`
}

type completionContent struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

// historyCommon carries the fields every history_request shape shares.
// The per-access-type structs below embed it so the wire object stays
// flat: hist_access_type plus the active variant's own fields, all at
// top level, with explicit zeros rather than omitted keys (a Range over
// session 0 must say so on the wire).
type historyCommon struct {
	Output         bool   `json:"output"`
	Raw            bool   `json:"raw"`
	HistAccessType string `json:"hist_access_type"`
	Unique         bool   `json:"unique"`
}

type historyRangeContent struct {
	historyCommon
	Session int `json:"session"`
	Start   int `json:"start"`
	Stop    int `json:"stop"`
}

type historyTailContent struct {
	historyCommon
	N int `json:"n"`
}

type historySearchContent struct {
	historyCommon
	Pattern string `json:"pattern"`
}

type isCompleteContent struct {
	Code string `json:"code"`
}

type shutdownContent struct {
	Restart bool `json:"restart"`
}

type commInfoContent struct {
	TargetName string `json:"target_name,omitempty"`
}

// contentFor builds the marshal-ready content value for cmd. This is the
// one place variant naming, flattening, and numeric coercion are made
// explicit, rather than hidden behind reflection or serializer hints.
func contentFor(cmd Command) (any, error) {
	switch c := cmd.(type) {
	case KernelInfo:
		return struct{}{}, nil

	case Execute:
		userExpr := c.UserExpressions
		if userExpr == nil {
			userExpr = map[string]string{}
		}
		return executeContent{
			Code:            c.Code,
			Silent:          c.Silent,
			StoreHistory:    c.StoreHistory,
			UserExpressions: userExpr,
			AllowStdin:      c.AllowStdin,
			StopOnError:     c.StopOnError,
		}, nil

	case Inspect:
		return inspectContent{
			Code:        c.Code,
			CursorPos:   c.CursorPos,
			DetailLevel: int(c.DetailLevel),
		}, nil

	case Completion:
		return completionContent{Code: c.Code, CursorPos: c.CursorPos}, nil

	case History:
		common := historyCommon{Output: c.Output, Raw: c.Raw, Unique: c.Unique}
		switch a := c.AccessType.(type) {
		case Range:
			common.HistAccessType = "range"
			return historyRangeContent{historyCommon: common, Session: a.Session, Start: a.Start, Stop: a.Stop}, nil
		case Tail:
			common.HistAccessType = "tail"
			return historyTailContent{historyCommon: common, N: a.N}, nil
		case Search:
			common.HistAccessType = "search"
			return historySearchContent{historyCommon: common, Pattern: a.Pattern}, nil
		default:
			return nil, fmt.Errorf("unknown HistoryAccessType %T", c.AccessType)
		}

	case IsComplete:
		return isCompleteContent{Code: c.Code}, nil

	case Shutdown:
		return shutdownContent{Restart: c.Restart}, nil

	case CommInfo:
		return commInfoContent{TargetName: c.TargetName}, nil

	default:
		return nil, fmt.Errorf("unknown Command type %T", cmd)
	}
}
