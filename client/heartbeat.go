package client

import (
	"context"
	"sync"
	"time"

	"github.com/go-jupyter/jpyclient/internal/util"
	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/go-zeromq/zmq4"
	"k8s.io/klog/v2"
)

// HeartbeatHandle reports the outcome of each heartbeat round trip on
// Alive: true for a reply received within period, false for a timeout or
// transport error. Close stops the heartbeat loop.
type HeartbeatHandle struct {
	Alive <-chan bool

	done      chan struct{}
	closeOnce sync.Once
}

// Close stops the heartbeat loop started by Heartbeat.
func (h *HeartbeatHandle) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Heartbeat starts a goroutine that sends an empty frame on the
// heartbeat socket, waits up to period for the kernel to echo something
// back (the reply's contents are discarded — any reply counts as alive),
// reports the outcome on the returned handle's Alive channel, and sleeps
// period before the next round. Consecutive rounds are spaced by period
// measured from the end of the previous round trip, not from its start.
//
// When the kernel does not answer, the worker reports false every period
// while it keeps waiting for the overdue echo; it does not send another
// ping until that echo arrives, since the REQ socket alternates strictly
// between send and receive. A missed heartbeat is never fatal to the
// Client: it says nothing about the shell or iopub sockets, so it is
// reported on Alive rather than escalated.
//
// A Client supports one active heartbeat loop at a time.
func (c *Client) Heartbeat(ctx context.Context, period time.Duration) (*HeartbeatHandle, error) {
	select {
	case <-c.stop:
		return nil, &jpyerrors.Cancelled{Msg: "client is closed"}
	default:
	}

	alive := make(chan bool, 1)
	handle := &HeartbeatHandle{Alive: alive, done: make(chan struct{})}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(alive)
		defer util.RecoverAndLog("heartbeat worker")

		// report returns false when the worker should exit instead.
		report := func(ok bool) bool {
			select {
			case alive <- ok:
				return true
			case <-c.stop:
			case <-handle.done:
			case <-ctx.Done():
			}
			return false
		}

		pending := false
		for {
			if !pending {
				err := c.hb.RunLocked(func(sock zmq4.Socket) error {
					return sock.Send(zmq4.NewMsgFrom([]byte{}))
				})
				if err != nil {
					klog.V(2).Infof("jpyclient: heartbeat send failed: %v", err)
					report(false)
					return
				}
				pending = true
			}
			select {
			case _, ok := <-c.hbEchoes:
				if !ok {
					return
				}
				pending = false
				if !report(true) {
					return
				}
			case <-time.After(period):
				if !report(false) {
					return
				}
			case <-c.stop:
				return
			case <-handle.done:
				return
			case <-ctx.Done():
				return
			}
			if !pending {
				select {
				case <-time.After(period):
				case <-c.stop:
					return
				case <-handle.done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return handle, nil
}
