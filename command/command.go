// Package command defines the closed set of outbound Jupyter shell
// requests a client can issue, and encodes them to wire envelopes.
//
// The set of commands is small and closed, so encoding is hand-authored
// per variant instead of schema-driven: one case per msg_type. That keeps
// the two encoding rules the wire protocol actually needs (detail_level
// as an integer, history's access-type flattening) in one visible place
// instead of hidden behind marshal hints.
package command

// Command is the sealed set of requests a Client can send on the shell
// socket. msgType returns the wire msg_type for the *_request message
// this command encodes to.
type Command interface {
	msgType() string
}

// KernelInfo requests the kernel's implementation and protocol version
// information. It carries no fields.
type KernelInfo struct{}

func (KernelInfo) msgType() string { return "kernel_info_request" }

// Execute asks the kernel to run code.
type Execute struct {
	Code            string
	Silent          bool
	StoreHistory    bool
	UserExpressions map[string]string
	AllowStdin      bool
	StopOnError     bool
}

func (Execute) msgType() string { return "execute_request" }

// DetailLevel is the verbosity requested of an Inspect command: 0 for a
// brief description, 1 for a fuller one. It is a distinct type (rather
// than a bare int) so Inspect's DetailLevel field documents the only two
// valid values.
type DetailLevel int

const (
	DetailBrief DetailLevel = 0
	DetailFull  DetailLevel = 1
)

// Inspect requests introspection information (e.g. docstring, type) for
// the code under cursorPos.
type Inspect struct {
	Code        string
	CursorPos   int
	DetailLevel DetailLevel
}

func (Inspect) msgType() string { return "inspect_request" }

// Completion requests auto-complete candidates for the code under
// cursorPos.
type Completion struct {
	Code      string
	CursorPos int
}

func (Completion) msgType() string { return "complete_request" }

// HistoryAccessType is the sealed set of ways a History command can
// select which history entries to return.
type HistoryAccessType interface {
	historyAccessType() string
}

// Range selects history entries from a specific session, by line-number
// bounds.
type Range struct {
	Session int
	Start   int
	Stop    int
}

func (Range) historyAccessType() string { return "range" }

// Tail selects the last N history entries.
type Tail struct {
	N int
}

func (Tail) historyAccessType() string { return "tail" }

// Search selects history entries matching a glob-like pattern.
type Search struct {
	Pattern string
}

func (Search) historyAccessType() string { return "search" }

// History requests previously executed input (and optionally output).
type History struct {
	Output     bool
	Raw        bool
	AccessType HistoryAccessType
	Unique     bool
}

func (History) msgType() string { return "history_request" }

// IsComplete asks the kernel whether code is a complete, executable unit,
// used by front-ends to decide whether Enter should submit or insert a
// newline.
type IsComplete struct {
	Code string
}

func (IsComplete) msgType() string { return "is_complete_request" }

// Shutdown asks the kernel to shut down, optionally restarting.
type Shutdown struct {
	Restart bool
}

func (Shutdown) msgType() string { return "shutdown_request" }

// CommInfo requests the set of currently open comms, optionally filtered
// by target name.
type CommInfo struct {
	TargetName string // empty means "no filter"
}

func (CommInfo) msgType() string { return "comm_info_request" }
