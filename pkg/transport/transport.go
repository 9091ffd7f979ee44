// Package transport ships encoded definitions to a synthesis engine.
//
// The compiler and codec never call into this package. Callers hand the
// encoded bytes to a Sender together with an optional continuation that runs
// when the engine acknowledges them.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dd0wney/synthgraph/pkg/logging"
)

// ErrClosed is returned by Send after Close
var ErrClosed = errors.New("transport closed")

// Sender delivers an opaque payload. When onAck is non-nil the sender waits
// for the engine's reply and passes it to onAck; otherwise it returns as soon
// as the payload is handed off.
type Sender interface {
	Send(ctx context.Context, payload []byte, onAck func(reply []byte)) error
}

// Socket is a request socket connected to an engine
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// DefaultTimeout bounds a send or an acknowledgement wait when the context
// carries no deadline
const DefaultTimeout = 5 * time.Second

// SocketSender adapts a Socket to the Sender interface. Sends are serialised
// because request sockets allow one outstanding request.
type SocketSender struct {
	mu      sync.Mutex
	sock    Socket
	timeout time.Duration
	logger  logging.Logger
	closed  bool
}

// NewSocketSender wraps sock. A non-positive timeout selects DefaultTimeout.
func NewSocketSender(sock Socket, timeout time.Duration, logger logging.Logger) *SocketSender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SocketSender{
		sock:    sock,
		timeout: timeout,
		logger:  logging.OrNop(logger).With(logging.Component("transport")),
	}
}

// Send implements Sender
func (s *SocketSender) Send(ctx context.Context, payload []byte, onAck func(reply []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wait := s.deadline(ctx)
	if err := s.sock.SetSendDeadline(wait); err != nil {
		return fmt.Errorf("failed to set send deadline: %w", err)
	}
	if err := s.sock.Send(payload); err != nil {
		return fmt.Errorf("failed to send definition: %w", err)
	}
	s.logger.Debug("payload sent", logging.Bytes(len(payload)))

	if onAck == nil {
		return nil
	}

	if err := s.sock.SetRecvDeadline(s.deadline(ctx)); err != nil {
		return fmt.Errorf("failed to set receive deadline: %w", err)
	}
	reply, err := s.sock.Recv()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to receive acknowledgement: %w", err)
	}
	s.logger.Debug("acknowledgement received", logging.Bytes(len(reply)))
	onAck(reply)
	return nil
}

func (s *SocketSender) deadline(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < s.timeout {
			if d <= 0 {
				return time.Millisecond
			}
			return d
		}
	}
	return s.timeout
}

// Close closes the underlying socket
func (s *SocketSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sock.Close()
}

var _ Sender = (*SocketSender)(nil)
