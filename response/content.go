package response

import (
	"encoding/json"
	"fmt"

	"github.com/go-jupyter/jpyclient/jpyerrors"
)

// MIMEMap holds data keyed by MIME type, opaque to this client beyond
// the map structure itself.
type MIMEMap = map[string]interface{}

// Status is the tri-state outcome reported by most shell replies.
// kernel_info_reply's status is always treated as this enum, and an
// unrecognized value is rejected with a SchemaError rather than accepted
// as a bare string.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
	StatusAbort Status = "abort"
)

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &jpyerrors.SchemaError{Msg: "status is not a JSON string", Cause: err}
	}
	switch Status(raw) {
	case StatusOK, StatusError, StatusAbort:
		*s = Status(raw)
		return nil
	default:
		return &jpyerrors.SchemaError{Msg: fmt.Sprintf("unrecognized status %q", raw)}
	}
}

// ExecutionState is the kernel lifecycle state reported by a "status"
// iopub message.
type ExecutionState string

const (
	Busy     ExecutionState = "busy"
	Idle     ExecutionState = "idle"
	Starting ExecutionState = "starting"
)

// StreamName identifies which output stream a "stream" message carries.
type StreamName string

const (
	Stdout StreamName = "stdout"
	Stderr StreamName = "stderr"
)

// HelpLink is one entry of kernel_info_reply's help_links array.
type HelpLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// KernelInfoContent is kernel_info_reply's content.
type KernelInfoContent struct {
	ProtocolVersion       string     `json:"protocol_version"`
	Implementation        string     `json:"implementation"`
	ImplementationVersion string     `json:"implementation_version"`
	Status                Status     `json:"status"`
	Banner                string     `json:"banner"`
	HelpLinks             []HelpLink `json:"help_links"`
}

// ExecuteReplyContent is execute_reply's content. payload/user_expressions
// are populated iff status==ok; ename/evalue/traceback iff status==error.
type ExecuteReplyContent struct {
	Status          Status                   `json:"status"`
	ExecutionCount  int                      `json:"execution_count"`
	Payload         []map[string]interface{} `json:"payload,omitempty"`
	UserExpressions map[string]interface{}   `json:"user_expressions,omitempty"`
	Ename           string                   `json:"ename,omitempty"`
	Evalue          string                   `json:"evalue,omitempty"`
	Traceback       []string                 `json:"traceback,omitempty"`
}

// InspectContent is inspect_reply's content.
type InspectContent struct {
	Status   Status  `json:"status"`
	Found    bool    `json:"found"`
	Data     MIMEMap `json:"data"`
	Metadata MIMEMap `json:"metadata"`
}

// CompleteContent is complete_reply's content.
type CompleteContent struct {
	Status      Status   `json:"status"`
	Matches     []string `json:"matches"`
	CursorStart int      `json:"cursor_start"`
	CursorEnd   int      `json:"cursor_end"`
	Metadata    MIMEMap  `json:"metadata"`
}

// HistoryEntry is one line of a history_reply. Output and HasOutput
// distinguish a (session, line, input) tuple from a
// (session, line, (input, output)) tuple on the wire.
type HistoryEntry struct {
	Session   int
	Line      int
	Input     string
	Output    string
	HasOutput bool
}

// HistoryContent is history_reply's content: a list of tuples, each
// either (session, line_number, input) or
// (session, line_number, (input, output)).
type HistoryContent struct {
	History []HistoryEntry
}

func (h *HistoryContent) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return &jpyerrors.SchemaError{MsgType: "history_reply", Msg: "decoding history array", Cause: err}
	}
	entries := make([]HistoryEntry, 0, len(wrapper.History))
	for _, raw := range wrapper.History {
		var tuple []json.RawMessage
		if err := json.Unmarshal(raw, &tuple); err != nil {
			return &jpyerrors.SchemaError{MsgType: "history_reply", Msg: "history entry is not a JSON array", Cause: err}
		}
		if len(tuple) != 3 {
			return &jpyerrors.SchemaError{MsgType: "history_reply", Msg: fmt.Sprintf("history entry has %d elements, want 3", len(tuple))}
		}
		var entry HistoryEntry
		if err := json.Unmarshal(tuple[0], &entry.Session); err != nil {
			return &jpyerrors.SchemaError{MsgType: "history_reply", Msg: "decoding session", Cause: err}
		}
		if err := json.Unmarshal(tuple[1], &entry.Line); err != nil {
			return &jpyerrors.SchemaError{MsgType: "history_reply", Msg: "decoding line number", Cause: err}
		}
		// Third element is either a plain string (input only) or a
		// two-element array [input, output].
		var asString string
		if err := json.Unmarshal(tuple[2], &asString); err == nil {
			entry.Input = asString
		} else {
			var pair [2]string
			if err := json.Unmarshal(tuple[2], &pair); err != nil {
				return &jpyerrors.SchemaError{MsgType: "history_reply", Msg: "history entry's third element is neither a string nor a 2-tuple", Cause: err}
			}
			entry.Input, entry.Output = pair[0], pair[1]
			entry.HasOutput = true
		}
		entries = append(entries, entry)
	}
	h.History = entries
	return nil
}

// ShutdownContent is shutdown_reply's content.
type ShutdownContent struct {
	Restart bool `json:"restart"`
}

// CommInfoEntry describes one open comm.
type CommInfoEntry struct {
	TargetName string `json:"target_name"`
}

// CommInfoContent is comm_info_reply's content.
type CommInfoContent struct {
	Comms map[string]CommInfoEntry `json:"comms"`
}

// IsCompleteStatus is the sealed sum of is_complete_reply outcomes. The
// wire discriminator is the "status" field; "indent" is present only
// when status=="incomplete".
type IsCompleteStatus interface {
	isCompleteStatus()
}

// Complete means the code is ready to execute as-is.
type Complete struct{}

func (Complete) isCompleteStatus() {}

// Invalid means the code is definitely not completable.
type Invalid struct{}

func (Invalid) isCompleteStatus() {}

// IndeterminateCompleteness means the kernel could not decide.
type IndeterminateCompleteness struct{}

func (IndeterminateCompleteness) isCompleteStatus() {}

// Incomplete means more input is needed; Indent is the whitespace a
// front-end should prefill on the next input line.
type Incomplete struct {
	Indent string
}

func (Incomplete) isCompleteStatus() {}

func unmarshalIsCompleteStatus(data json.RawMessage) (IsCompleteStatus, error) {
	var wire struct {
		Status string  `json:"status"`
		Indent *string `json:"indent"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &jpyerrors.SchemaError{MsgType: "is_complete_reply", Msg: "decoding content", Cause: err}
	}
	switch wire.Status {
	case "complete":
		return Complete{}, nil
	case "invalid":
		return Invalid{}, nil
	case "unknown":
		return IndeterminateCompleteness{}, nil
	case "incomplete":
		if wire.Indent == nil {
			return nil, &jpyerrors.SchemaError{MsgType: "is_complete_reply", Msg: "status=incomplete but indent is missing"}
		}
		return Incomplete{Indent: *wire.Indent}, nil
	default:
		return nil, &jpyerrors.SchemaError{MsgType: "is_complete_reply", Msg: fmt.Sprintf("unrecognized status %q", wire.Status)}
	}
}

// StatusContent is a "status" iopub message's content.
type StatusContent struct {
	ExecutionState ExecutionState `json:"execution_state"`
}

// ExecuteInputContent is an "execute_input" iopub message's content.
type ExecuteInputContent struct {
	Code           string `json:"code"`
	ExecutionCount int    `json:"execution_count"`
}

// StreamContent is a "stream" iopub message's content.
type StreamContent struct {
	Name StreamName `json:"name"`
	Text string     `json:"text"`
}

// ErrorContent is an "error" iopub message's content.
type ErrorContent struct {
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// ExecuteResultContent is an "execute_result" iopub message's content.
type ExecuteResultContent struct {
	ExecutionCount int     `json:"execution_count"`
	Data           MIMEMap `json:"data"`
	Metadata       MIMEMap `json:"metadata"`
}

// DisplayDataContent is a "display_data" iopub message's content.
type DisplayDataContent struct {
	Data      MIMEMap `json:"data"`
	Metadata  MIMEMap `json:"metadata"`
	Transient MIMEMap `json:"transient"`
}

// ClearOutputContent is a "clear_output" iopub message's content.
type ClearOutputContent struct {
	Wait bool `json:"wait"`
}
