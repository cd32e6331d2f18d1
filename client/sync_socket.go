package client

import (
	"sync"

	"github.com/go-zeromq/zmq4"
)

// syncSocket pairs a ZeroMQ socket with a lock serializing sender access
// to it. A zmq4 socket supports one receiving goroutine running
// alongside senders, but concurrent senders — or concurrent receivers,
// as on the iopub socket with several subscriber goroutines — must be
// serialized.
type syncSocket struct {
	socket zmq4.Socket
	mu     sync.Mutex
}

// RunLocked holds the lock for the duration of fn.
func (s *syncSocket) RunLocked(fn func(zmq4.Socket) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.socket)
}

// Recv reads one message, bypassing the lock. Only a socket's single
// dedicated reader goroutine may call this; everything else goes
// through RunLocked. A reader parked here never blocks a sender, which
// is what lets a caller abandon an exchange (context cancellation,
// heartbeat timeout) without wedging the socket for the next one.
func (s *syncSocket) Recv() (zmq4.Msg, error) {
	return s.socket.Recv()
}

// Close closes the underlying socket. Safe to call concurrently with a
// blocked RunLocked(Recv) call in another goroutine: the intent is
// precisely to unblock it.
func (s *syncSocket) Close() error {
	return s.socket.Close()
}
