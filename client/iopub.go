package client

import (
	"context"
	"sync"

	"github.com/go-jupyter/jpyclient/internal/util"
	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/go-jupyter/jpyclient/response"
	"github.com/go-jupyter/jpyclient/wire"
	"github.com/go-zeromq/zmq4"
	"k8s.io/klog/v2"
)

// ioPubBufferSize bounds how many undelivered messages a slow
// IOPubSubscribe consumer can accumulate before the worker starts
// blocking on send.
const ioPubBufferSize = 64

// IOPubHandle is a live subscription to a Client's iopub broadcast
// channel. Messages arrive on C in broadcast order; Close stops the
// delivery goroutine without affecting the Client or any other handle.
type IOPubHandle struct {
	C <-chan response.Response

	done      chan struct{}
	closeOnce sync.Once
}

// Close stops this handle's delivery goroutine. It does not close the
// Client's iopub socket: other IOPubHandles, if any, keep working.
func (h *IOPubHandle) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// IOPubSubscribe starts a new delivery goroutine reading the iopub
// socket and decoding every message it receives into a Response, sent on
// the returned handle's channel. Every subscriber reads from the same
// underlying SUB socket under syncSocket's lock, so with more than one
// live handle any given broadcast message is delivered to exactly one of
// them — fan-out to every subscriber is not provided. One logical reader
// per process is the common case; this client does not multiplex one
// socket to many independent full-stream consumers.
func (c *Client) IOPubSubscribe(ctx context.Context) (*IOPubHandle, error) {
	select {
	case <-c.stop:
		return nil, &jpyerrors.Cancelled{Msg: "client is closed"}
	default:
	}

	ch := make(chan response.Response, ioPubBufferSize)
	handle := &IOPubHandle{
		C:    ch,
		done: make(chan struct{}),
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)
		defer util.RecoverAndLog("iopub worker")
		for {
			var msg zmq4.Msg
			recvErr := c.iopub.RunLocked(func(sock zmq4.Socket) error {
				var err error
				msg, err = sock.Recv()
				return err
			})
			select {
			case <-c.stop:
				return
			case <-handle.done:
				return
			case <-ctx.Done():
				return
			default:
			}
			if recvErr != nil {
				klog.V(1).Infof("jpyclient: iopub worker terminating: %v", recvErr)
				return
			}

			_, env, err := wire.DecodeFrames(msg.Frames, c.signer)
			if err != nil {
				klog.Errorf("jpyclient: iopub worker terminating on malformed message: %v", err)
				return
			}
			resp, err := c.decoder.Decode(env)
			if err != nil {
				klog.Errorf("jpyclient: iopub worker terminating on schema error: %v", err)
				return
			}

			select {
			case ch <- resp:
			case <-c.stop:
				return
			case <-handle.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return handle, nil
}
