// Package client owns the three ZeroMQ sockets a Jupyter kernel exposes
// to a single client — shell (dealer), iopub (sub), heartbeat (req) —
// and multiplexes request, subscribe, and heartbeat traffic over them.
package client

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-jupyter/jpyclient/command"
	"github.com/go-jupyter/jpyclient/connection"
	"github.com/go-jupyter/jpyclient/internal/util"
	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/go-jupyter/jpyclient/response"
	"github.com/go-jupyter/jpyclient/wire"
	"github.com/go-zeromq/zmq4"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// shell socket states. A poisoned shell socket refuses all further
// SendShell calls: a MalformedEnvelope or SignatureMismatch decoding a
// reply poisons the socket, since the Client has no way to resynchronize
// a ROUTER/DEALER stream whose frame boundaries may be corrupted.
const (
	shellReady int32 = iota
	shellPoisoned
)

// Client is a single connection to one running Jupyter kernel.
//
// A Client is safe for concurrent use: SendShell calls serialize on the
// shell socket, IOPubSubscribe may be called any number of times and each
// call gets its own delivery goroutine, and Close tears everything down
// exactly once.
type Client struct {
	desc    *connection.Description
	signer  *wire.Signer
	encoder *command.Encoder
	decoder *response.Decoder

	shell *syncSocket
	iopub *syncSocket
	hb    *syncSocket

	shellReplies chan shellReply
	hbEchoes     chan struct{}

	shellMu    sync.Mutex
	shellState atomic.Int32

	stop      chan struct{}
	closeOnce sync.Once
	closeErr  error

	wg sync.WaitGroup
}

// New builds a Client from an already-parsed connection description,
// dialing all three sockets. The context governs only socket construction
// (go-zeromq/zmq4 sockets are created with a context that scopes their
// background I/O); it is not consulted again after New returns.
func New(ctx context.Context, desc *connection.Description) (*Client, error) {
	signer, err := wire.NewSigner(desc.KeyBytes(), desc.SignatureScheme)
	if err != nil {
		return nil, err
	}

	sessionID, err := uuid.NewV4()
	if err != nil {
		return nil, errors.WithMessage(err, "client.New: generating session id")
	}

	shellSock := zmq4.NewDealer(ctx)
	if err := shellSock.Dial(desc.ShellAddr()); err != nil {
		return nil, &jpyerrors.TransportError{Msg: "dialing shell socket " + desc.ShellAddr(), Cause: err}
	}

	iopubSock := zmq4.NewSub(ctx)
	if err := iopubSock.Dial(desc.IOPubAddr()); err != nil {
		util.ReportError(shellSock.Close())
		return nil, &jpyerrors.TransportError{Msg: "dialing iopub socket " + desc.IOPubAddr(), Cause: err}
	}
	if err := iopubSock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		util.ReportError(shellSock.Close())
		util.ReportError(iopubSock.Close())
		return nil, &jpyerrors.TransportError{Msg: "subscribing iopub socket to all topics", Cause: err}
	}

	hbSock := zmq4.NewReq(ctx)
	if err := hbSock.Dial(desc.HBAddr()); err != nil {
		util.ReportError(shellSock.Close())
		util.ReportError(iopubSock.Close())
		return nil, &jpyerrors.TransportError{Msg: "dialing heartbeat socket " + desc.HBAddr(), Cause: err}
	}

	klog.V(1).Infof("jpyclient: connected to kernel at %s (session %s)", desc.ShellAddr(), sessionID.String())

	c := &Client{
		desc:         desc,
		signer:       signer,
		encoder:      command.NewEncoder(sessionID.String(), ""),
		decoder:      response.NewDecoder(),
		shell:        &syncSocket{socket: shellSock},
		iopub:        &syncSocket{socket: iopubSock},
		hb:           &syncSocket{socket: hbSock},
		shellReplies: make(chan shellReply, 1),
		hbEchoes:     make(chan struct{}, 1),
		stop:         make(chan struct{}),
	}
	c.wg.Add(2)
	go c.shellReader()
	go c.hbReader()
	return c, nil
}

// shellReply pairs one frame group received on the shell socket with the
// Recv error, if any, that ended the read.
type shellReply struct {
	msg zmq4.Msg
	err error
}

// shellReader is the shell socket's only receiving goroutine, running
// for the life of the Client. Every received frame group is handed to
// the SendShell call awaiting it; SendShell matches replies to requests
// by parent msg_id, so the late reply to an exchange abandoned on
// context cancellation is consumed and discarded by a later call
// instead of wedging the socket.
func (c *Client) shellReader() {
	defer c.wg.Done()
	defer close(c.shellReplies)
	defer util.RecoverAndLog("shell reader")
	for {
		msg, err := c.shell.Recv()
		select {
		case c.shellReplies <- shellReply{msg: msg, err: err}:
		case <-c.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// hbReader is the heartbeat socket's only receiving goroutine. Each
// received echo becomes one tick on hbEchoes (contents discarded — any
// reply counts); the channel closes when the socket does.
func (c *Client) hbReader() {
	defer c.wg.Done()
	defer close(c.hbEchoes)
	defer util.RecoverAndLog("heartbeat reader")
	for {
		if _, err := c.hb.Recv(); err != nil {
			return
		}
		select {
		case c.hbEchoes <- struct{}{}:
		case <-c.stop:
			return
		}
	}
}

// FromConnectionFile reads a connection description file and connects to
// the kernel it describes.
func FromConnectionFile(ctx context.Context, path string) (*Client, error) {
	desc, err := connection.FromFile(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, desc)
}

// FromConnectionReader reads a connection description from r and connects
// to the kernel it describes.
func FromConnectionReader(ctx context.Context, r io.Reader) (*Client, error) {
	desc, err := connection.FromReader(r)
	if err != nil {
		return nil, err
	}
	return New(ctx, desc)
}

// Description returns the connection description this Client was built
// from.
func (c *Client) Description() *connection.Description { return c.desc }

// poisonShell marks the shell socket unusable for future exchanges. It
// does not close the socket: Close still needs it to aggregate errors.
func (c *Client) poisonShell() {
	c.shellState.Store(shellPoisoned)
}

// ErrTransportBroken is returned by SendShell once the shell socket has
// been poisoned by a prior malformed or unsigned reply.
var ErrTransportBroken = &jpyerrors.TransportError{Msg: "shell socket is poisoned by a prior protocol violation and can no longer be used"}

// Close shuts down every socket and signals all background workers to
// stop. Any SendShell, IOPubSubscribe consumer, or Heartbeat consumer
// blocked at the time of Close observes a Cancelled error or a closed
// channel within bounded time, since closing a socket unblocks any
// goroutine parked in that socket's Recv.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		var err error
		err = multierr.Append(err, c.shell.Close())
		err = multierr.Append(err, c.iopub.Close())
		err = multierr.Append(err, c.hb.Close())
		c.wg.Wait()
		c.closeErr = err
	})
	return c.closeErr
}
