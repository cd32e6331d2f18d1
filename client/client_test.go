package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-jupyter/jpyclient/command"
	"github.com/go-jupyter/jpyclient/connection"
	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/go-jupyter/jpyclient/response"
	"github.com/go-jupyter/jpyclient/wire"
	"github.com/go-zeromq/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKernel is the kernel side of the three channels a Client dials: a
// ROUTER listening for shell requests, a PUB broadcasting iopub traffic,
// and a REP echoing heartbeats. Each test wires only the loops it needs.
type fakeKernel struct {
	t      *testing.T
	signer *wire.Signer

	shell zmq4.Socket
	iopub zmq4.Socket
	hb    zmq4.Socket
}

func startFakeKernel(t *testing.T, key []byte) *fakeKernel {
	t.Helper()
	ctx := context.Background()
	signer, err := wire.NewSigner(key, "hmac-sha256")
	require.NoError(t, err)

	shell := zmq4.NewRouter(ctx)
	require.NoError(t, shell.Listen("tcp://127.0.0.1:0"))
	iopub := zmq4.NewPub(ctx)
	require.NoError(t, iopub.Listen("tcp://127.0.0.1:0"))
	hb := zmq4.NewRep(ctx)
	require.NoError(t, hb.Listen("tcp://127.0.0.1:0"))

	k := &fakeKernel{t: t, signer: signer, shell: shell, iopub: iopub, hb: hb}
	t.Cleanup(func() {
		_ = shell.Close()
		_ = iopub.Close()
		_ = hb.Close()
	})
	return k
}

func tcpPort(t *testing.T, sock zmq4.Socket) int {
	t.Helper()
	addr, ok := sock.Addr().(*net.TCPAddr)
	require.True(t, ok, "socket is not listening on TCP")
	return addr.Port
}

func (k *fakeKernel) description(key []byte) *connection.Description {
	hbPort := tcpPort(k.t, k.hb)
	return &connection.Description{
		Transport:       "tcp",
		IP:              "127.0.0.1",
		ShellPort:       tcpPort(k.t, k.shell),
		IOPubPort:       tcpPort(k.t, k.iopub),
		HBPort:          hbPort,
		StdinPort:       hbPort,
		ControlPort:     hbPort,
		Key:             string(key),
		SignatureScheme: "hmac-sha256",
		KernelName:      "fake",
	}
}

// replyTo answers one received shell request with a signed reply of the
// given msg_type and content, echoing the request's routing identities
// and carrying its header as the reply's parent_header.
func (k *fakeKernel) replyTo(msg zmq4.Msg, msgType, content string) {
	idents, env, err := wire.DecodeFrames(msg.Frames, k.signer)
	if err != nil {
		k.t.Errorf("fake kernel: decoding shell request: %v", err)
		return
	}
	header, err := wire.NewHeader(msgType, "kernel-session", "kernel")
	if err != nil {
		k.t.Errorf("fake kernel: building reply header: %v", err)
		return
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		k.t.Errorf("fake kernel: marshaling reply header: %v", err)
		return
	}
	reply := wire.WireEnvelope{
		Header:       headerJSON,
		ParentHeader: env.Header,
		Content:      json.RawMessage(content),
	}
	frames := append(append([][]byte{}, idents...), reply.Encode(k.signer)...)
	if err := k.shell.Send(zmq4.NewMsgFrom(frames...)); err != nil {
		k.t.Errorf("fake kernel: sending shell reply: %v", err)
	}
}

// serveShellOnce answers the next shell request with a signed reply.
func (k *fakeKernel) serveShellOnce(msgType, content string) {
	go func() {
		msg, err := k.shell.Recv()
		if err != nil {
			return
		}
		k.replyTo(msg, msgType, content)
	}()
}

const testKey = "test-signing-key"

const kernelInfoReplyContent = `{
	"protocol_version": "5.3", "implementation": "fake", "implementation_version": "1.0",
	"status": "ok", "banner": "fake kernel", "help_links": []
}`

func newTestClient(t *testing.T, k *fakeKernel) *Client {
	t.Helper()
	c, err := New(context.Background(), k.description([]byte(testKey)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendShellRoundTrip(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	k.serveShellOnce("kernel_info_reply", kernelInfoReplyContent)

	resp, err := c.SendShell(context.Background(), command.KernelInfo{})
	require.NoError(t, err)
	info, ok := resp.(response.KernelInfoResponse)
	require.True(t, ok, "expected KernelInfoResponse, got %T", resp)
	assert.Equal(t, "fake", info.Content.Implementation)
	assert.Equal(t, response.StatusOK, info.Content.Status)
	assert.Equal(t, "kernel_info_reply", info.Header().MsgType)
	assert.Equal(t, "kernel_info_request", info.ParentHeader().MsgType,
		"reply's parent_header must carry the request's header")
}

func TestSendShellSequentialExchanges(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	k.serveShellOnce("shutdown_reply", `{"restart": false}`)
	resp, err := c.SendShell(context.Background(), command.Shutdown{})
	require.NoError(t, err)
	require.IsType(t, response.ShutdownResponse{}, resp)

	k.serveShellOnce("is_complete_reply", `{"status": "complete"}`)
	resp, err = c.SendShell(context.Background(), command.IsComplete{Code: "1+1"})
	require.NoError(t, err)
	ic, ok := resp.(response.IsCompleteResponse)
	require.True(t, ok)
	assert.Equal(t, response.Complete{}, ic.Status)
}

// identitiesOf splits the routing identity prefix off a router-received
// frame sequence.
func identitiesOf(frames [][]byte) [][]byte {
	for i, f := range frames {
		if bytes.Equal(f, wire.Delimiter) {
			return frames[:i]
		}
	}
	return nil
}

func TestSendShellBadSignaturePoisonsSocket(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	go func() {
		msg, err := k.shell.Recv()
		if err != nil {
			return
		}
		frames := append(append([][]byte{}, identitiesOf(msg.Frames)...),
			wire.Delimiter,
			[]byte("00000000000000000000000000000000"),
			[]byte(`{"msg_type":"kernel_info_reply"}`),
			[]byte(`{}`), []byte(`{}`), []byte(`{}`))
		_ = k.shell.Send(zmq4.NewMsgFrom(frames...))
	}()

	_, err := c.SendShell(context.Background(), command.KernelInfo{})
	var mismatch *jpyerrors.SignatureMismatch
	require.Error(t, err)
	assert.True(t, errors.As(err, &mismatch), "want SignatureMismatch, got %v", err)

	_, err = c.SendShell(context.Background(), command.KernelInfo{})
	assert.ErrorIs(t, err, ErrTransportBroken, "a poisoned shell socket must fail fast")
}

func TestIOPubSubscribeDeliversStatus(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	handle, err := c.IOPubSubscribe(context.Background())
	require.NoError(t, err)
	defer handle.Close()

	// A freshly dialed SUB socket's subscription takes a moment to reach
	// the publisher, so publish on a loop until the subscriber sees it.
	stopPub := make(chan struct{})
	defer close(stopPub)
	go func() {
		header, err := wire.NewHeader("status", "kernel-session", "kernel")
		if err != nil {
			return
		}
		headerJSON, err := json.Marshal(header)
		if err != nil {
			return
		}
		env := wire.WireEnvelope{
			Header:  headerJSON,
			Content: json.RawMessage(`{"execution_state": "busy"}`),
		}
		frames := env.Encode(k.signer)
		for {
			select {
			case <-stopPub:
				return
			default:
			}
			if err := k.iopub.Send(zmq4.NewMsgFrom(frames...)); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	select {
	case resp, ok := <-handle.C:
		require.True(t, ok, "iopub channel closed before delivering anything")
		status, ok := resp.(response.StatusResponse)
		require.True(t, ok, "expected StatusResponse, got %T", resp)
		assert.Equal(t, response.Busy, status.Content.ExecutionState)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for an iopub message")
	}
}

func TestIOPubChannelClosesOnClientClose(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c, err := New(context.Background(), k.description([]byte(testKey)))
	require.NoError(t, err)

	handle, err := c.IOPubSubscribe(context.Background())
	require.NoError(t, err)
	handle.Close()
	handle.Close() // idempotent

	// Closing the Client unblocks the worker's Recv; the worker then
	// terminates and closes the delivery channel, possibly after flushing
	// messages already in flight.
	require.NoError(t, c.Close())
	deadline := time.After(10 * time.Second)
	for {
		select {
		case _, ok := <-handle.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("iopub channel not closed after Client.Close")
		}
	}
}

func TestHeartbeatReportsAlive(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	go func() {
		for {
			msg, err := k.hb.Recv()
			if err != nil {
				return
			}
			if err := k.hb.Send(msg); err != nil {
				return
			}
		}
	}()

	handle, err := c.Heartbeat(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	defer handle.Close()

	select {
	case alive, ok := <-handle.Alive:
		require.True(t, ok)
		assert.True(t, alive, "echoing kernel should be reported alive")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a heartbeat tick")
	}
}

func TestSendShellCancelledOnClose(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c, err := New(context.Background(), k.description([]byte(testKey)))
	require.NoError(t, err)

	// Swallow the request and never reply.
	go func() { _, _ = k.shell.Recv() }()

	errCh := make(chan error, 1)
	go func() {
		_, err := c.SendShell(context.Background(), command.KernelInfo{})
		errCh <- err
	}()
	time.Sleep(100 * time.Millisecond)
	_ = c.Close()

	select {
	case err := <-errCh:
		var cancelled *jpyerrors.Cancelled
		require.Error(t, err)
		assert.True(t, errors.As(err, &cancelled), "want Cancelled, got %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("SendShell did not return after Close")
	}

	_, err = c.SendShell(context.Background(), command.KernelInfo{})
	var cancelled *jpyerrors.Cancelled
	assert.True(t, errors.As(err, &cancelled), "SendShell after Close must be Cancelled")
}

func TestSendShellUsableAfterContextCancellation(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	// Answer every request, but deliver the first reply only after the
	// first call's deadline has long passed.
	go func() {
		first := true
		for {
			msg, err := k.shell.Recv()
			if err != nil {
				return
			}
			if first {
				first = false
				time.Sleep(500 * time.Millisecond)
			}
			k.replyTo(msg, "kernel_info_reply", kernelInfoReplyContent)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.SendShell(ctx, command.KernelInfo{})
	var cancelled *jpyerrors.Cancelled
	require.Error(t, err)
	require.True(t, errors.As(err, &cancelled), "want Cancelled, got %v", err)

	// The abandoned exchange must not wedge the socket, and its late
	// reply must not be delivered to the next call: it is discarded by
	// its parent msg_id and the follow-up exchange completes.
	resp, err := c.SendShell(context.Background(), command.KernelInfo{})
	require.NoError(t, err)
	require.IsType(t, response.KernelInfoResponse{}, resp)
}

func TestHeartbeatReportsDeadThenRecovers(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c := newTestClient(t, k)

	handle, err := c.Heartbeat(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	defer handle.Close()

	// Nothing answers the heartbeat socket yet: the worker must keep
	// reporting dead rounds rather than going silent after the first
	// unanswered one.
	for i := 0; i < 2; i++ {
		select {
		case alive, ok := <-handle.Alive:
			require.True(t, ok)
			assert.False(t, alive, "round %d against a silent kernel should report dead", i)
		case <-time.After(10 * time.Second):
			t.Fatal("heartbeat stopped reporting after an unanswered round")
		}
	}

	// Start echoing: the overdue ping is finally answered and liveness
	// recovers on the same handle.
	go func() {
		for {
			msg, err := k.hb.Recv()
			if err != nil {
				return
			}
			if err := k.hb.Send(msg); err != nil {
				return
			}
		}
	}()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case alive, ok := <-handle.Alive:
			require.True(t, ok, "Alive closed before recovery")
			if alive {
				return
			}
		case <-deadline:
			t.Fatal("heartbeat never recovered after the kernel started echoing")
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	k := startFakeKernel(t, []byte(testKey))
	c, err := New(context.Background(), k.description([]byte(testKey)))
	require.NoError(t, err)
	first := c.Close()
	assert.Equal(t, first, c.Close(), "second Close must return the first result")
}
