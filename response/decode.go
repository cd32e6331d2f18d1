package response

import (
	"encoding/json"

	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/go-jupyter/jpyclient/wire"
)

// Decoder turns a received WireEnvelope into a typed Response.
type Decoder struct{}

// NewDecoder builds a Decoder. It holds no state — decoding is a pure
// function of the envelope — but is a type (rather than a bare package
// function) so Client can store one alongside its Encoder symmetrically.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode dispatches on env's header.msg_type to build a Response. An
// unrecognized msg_type is not an error: it yields an Unknown response.
func (d *Decoder) Decode(env wire.WireEnvelope) (Response, error) {
	header, err := env.DecodeHeader()
	if err != nil {
		return nil, err
	}
	parent, err := env.DecodeParentHeader()
	if err != nil {
		return nil, err
	}
	b := base{Hdr: header, Parent: parent, Meta: env.Metadata}

	switch header.MsgType {
	case "kernel_info_reply":
		var c KernelInfoContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return KernelInfoResponse{base: b, Content: c}, nil

	case "execute_reply":
		var c ExecuteReplyContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return ExecuteResponse{base: b, Content: c}, nil

	case "inspect_reply":
		var c InspectContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return InspectResponse{base: b, Content: c}, nil

	case "complete_reply":
		var c CompleteContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return CompleteResponse{base: b, Content: c}, nil

	case "history_reply":
		var c HistoryContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return HistoryResponse{base: b, Content: c}, nil

	case "is_complete_reply":
		status, err := unmarshalIsCompleteStatus(env.Content)
		if err != nil {
			return nil, err
		}
		return IsCompleteResponse{base: b, Status: status}, nil

	case "shutdown_reply":
		var c ShutdownContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return ShutdownResponse{base: b, Content: c}, nil

	case "comm_info_reply":
		var c CommInfoContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return CommInfoResponse{base: b, Content: c}, nil

	case "status":
		var c StatusContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return StatusResponse{base: b, Content: c}, nil

	case "execute_input":
		var c ExecuteInputContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return ExecuteInputResponse{base: b, Content: c}, nil

	case "stream":
		var c StreamContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return StreamResponse{base: b, Content: c}, nil

	case "error":
		var c ErrorContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return ErrorResponse{base: b, Content: c}, nil

	case "execute_result":
		var c ExecuteResultContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return ExecuteResultResponse{base: b, Content: c}, nil

	case "display_data":
		var c DisplayDataContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return DisplayDataResponse{base: b, Content: c}, nil

	case "clear_output":
		var c ClearOutputContent
		if err := unmarshalContent(header.MsgType, env.Content, &c); err != nil {
			return nil, err
		}
		return ClearOutputResponse{base: b, Content: c}, nil

	default:
		return Unknown{base: b, MsgType: header.MsgType, ContentJSON: env.Content}, nil
	}
}

func unmarshalContent(msgType string, raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		if se, ok := err.(*jpyerrors.SchemaError); ok {
			if se.MsgType == "" {
				se.MsgType = msgType
			}
			return se
		}
		return &jpyerrors.SchemaError{MsgType: msgType, Msg: "content does not match expected schema", Cause: err}
	}
	return nil
}
