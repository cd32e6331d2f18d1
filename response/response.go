// Package response defines the closed set of typed replies a Jupyter
// kernel can send back to this client — on the shell request/reply
// channel and on the iopub broadcast channel — and decodes wire
// envelopes into them.
//
// The wire format looks like an untagged union as far as the content
// frame goes: the real discriminator lives in the header's msg_type, not
// in the shape of the content. Decoder.Decode dispatches on msg_type
// first and only then parses content against a variant-specific schema.
package response

import (
	"encoding/json"

	"github.com/go-jupyter/jpyclient/wire"
)

// Response is implemented by every reply this client can decode,
// including the Unknown catch-all for unrecognized msg_types.
type Response interface {
	Header() wire.Header
	ParentHeader() wire.Header
	Metadata() json.RawMessage
	isResponse()
}

// ShellResponse is a Response received on the shell request/reply
// channel.
type ShellResponse interface {
	Response
	isShellResponse()
}

// IoPubResponse is a Response received on the iopub broadcast channel.
type IoPubResponse interface {
	Response
	isIoPubResponse()
}

// base carries the three fields every Response variant shares.
type base struct {
	Hdr    wire.Header
	Parent wire.Header
	Meta   json.RawMessage
}

func (b base) Header() wire.Header       { return b.Hdr }
func (b base) ParentHeader() wire.Header { return b.Parent }
func (b base) Metadata() json.RawMessage { return b.Meta }
func (base) isResponse()                 {}

// Shell reply variants.

type KernelInfoResponse struct {
	base
	Content KernelInfoContent
}

func (KernelInfoResponse) isShellResponse() {}

type ExecuteResponse struct {
	base
	Content ExecuteReplyContent
}

func (ExecuteResponse) isShellResponse() {}

type InspectResponse struct {
	base
	Content InspectContent
}

func (InspectResponse) isShellResponse() {}

type CompleteResponse struct {
	base
	Content CompleteContent
}

func (CompleteResponse) isShellResponse() {}

type HistoryResponse struct {
	base
	Content HistoryContent
}

func (HistoryResponse) isShellResponse() {}

type IsCompleteResponse struct {
	base
	Status IsCompleteStatus
}

func (IsCompleteResponse) isShellResponse() {}

type ShutdownResponse struct {
	base
	Content ShutdownContent
}

func (ShutdownResponse) isShellResponse() {}

type CommInfoResponse struct {
	base
	Content CommInfoContent
}

func (CommInfoResponse) isShellResponse() {}

// IoPub variants.

type StatusResponse struct {
	base
	Content StatusContent
}

func (StatusResponse) isIoPubResponse() {}

type ExecuteInputResponse struct {
	base
	Content ExecuteInputContent
}

func (ExecuteInputResponse) isIoPubResponse() {}

type StreamResponse struct {
	base
	Content StreamContent
}

func (StreamResponse) isIoPubResponse() {}

type ErrorResponse struct {
	base
	Content ErrorContent
}

func (ErrorResponse) isIoPubResponse() {}

type ExecuteResultResponse struct {
	base
	Content ExecuteResultContent
}

func (ExecuteResultResponse) isIoPubResponse() {}

type DisplayDataResponse struct {
	base
	Content DisplayDataContent
}

func (DisplayDataResponse) isIoPubResponse() {}

type ClearOutputResponse struct {
	base
	Content ClearOutputContent
}

func (ClearOutputResponse) isIoPubResponse() {}

// Unknown is returned when header.msg_type is not in the dispatch table.
// It implements Response only — not ShellResponse or IoPubResponse —
// since an extension message type's channel affinity isn't known to this
// client.
type Unknown struct {
	base
	MsgType     string
	ContentJSON json.RawMessage
}

func (Unknown) isResponse() {}
