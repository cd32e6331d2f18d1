package client

import (
	"context"

	"github.com/go-jupyter/jpyclient/command"
	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/go-jupyter/jpyclient/response"
	"github.com/go-jupyter/jpyclient/wire"
	"github.com/go-zeromq/zmq4"
	"k8s.io/klog/v2"
)

// SendShell encodes cmd, signs it, sends it on the shell socket, and
// blocks for the matching reply.
//
// Exchanges are strictly sequential: a second call made while one is in
// flight blocks on the internal lock rather than interleaving requests on
// the DEALER socket, since a DEALER/ROUTER pair guarantees FIFO delivery
// of one pending request at a time but gives no way to match a reply to
// a specific concurrent call.
//
// Replies are matched to the request by the reply's parent msg_id. When
// a call gives up on its reply (context cancellation, Client closed),
// the kernel's answer may still arrive later; shellReader consumes it
// and a subsequent SendShell discards it by that msg_id check, so an
// abandoned exchange never wedges the socket.
//
// A MalformedEnvelope or SignatureMismatch decoding a reply poisons the
// shell socket for all future calls (see ErrTransportBroken); a
// SchemaError decoding a reply's content does not, since it indicates
// only that one reply's content didn't match its declared msg_type, not
// that the stream itself is desynchronized.
func (c *Client) SendShell(ctx context.Context, cmd command.Command) (response.Response, error) {
	c.shellMu.Lock()
	defer c.shellMu.Unlock()

	if c.shellState.Load() == shellPoisoned {
		return nil, ErrTransportBroken
	}
	select {
	case <-c.stop:
		return nil, &jpyerrors.Cancelled{Msg: "client is closed"}
	default:
	}

	env, err := c.encoder.Encode(cmd)
	if err != nil {
		return nil, err
	}
	reqHeader, err := env.DecodeHeader()
	if err != nil {
		return nil, err
	}
	frames := env.Encode(c.signer)

	if err := c.shell.RunLocked(func(sock zmq4.Socket) error {
		return sock.Send(zmq4.NewMsgFrom(frames...))
	}); err != nil {
		return nil, &jpyerrors.TransportError{Msg: "sending shell request", Cause: err}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, &jpyerrors.Cancelled{Msg: "context cancelled while awaiting shell reply"}
		case <-c.stop:
			return nil, &jpyerrors.Cancelled{Msg: "client closed while awaiting shell reply"}
		case reply, ok := <-c.shellReplies:
			if !ok {
				select {
				case <-c.stop:
					return nil, &jpyerrors.Cancelled{Msg: "client closed while awaiting shell reply"}
				default:
					return nil, &jpyerrors.TransportError{Msg: "shell socket reader terminated"}
				}
			}
			if reply.err != nil {
				return nil, &jpyerrors.TransportError{Msg: "receiving shell reply", Cause: reply.err}
			}
			_, replyEnv, err := wire.DecodeFrames(reply.msg.Frames, c.signer)
			if err != nil {
				c.poisonShell()
				klog.Errorf("jpyclient: poisoning shell socket: %v", err)
				return nil, err
			}
			parent, err := replyEnv.DecodeParentHeader()
			if err != nil {
				c.poisonShell()
				klog.Errorf("jpyclient: poisoning shell socket: %v", err)
				return nil, err
			}
			if parent.MsgID != reqHeader.MsgID {
				klog.V(1).Infof("jpyclient: discarding stale shell reply (parent msg_id %q, awaiting %q)",
					parent.MsgID, reqHeader.MsgID)
				continue
			}
			resp, err := c.decoder.Decode(replyEnv)
			if err != nil {
				return nil, err
			}
			if _, ok := resp.(response.ShellResponse); !ok {
				klog.V(2).Infof("jpyclient: shell socket reply has non-shell msg_type %q", resp.Header().MsgType)
			}
			return resp, nil
		}
	}
}
