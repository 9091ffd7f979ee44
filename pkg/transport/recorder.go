package transport

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sender. It keeps a copy of every payload and
// acknowledges each one with Reply, or fails with Err when set.
type Recorder struct {
	mu    sync.Mutex
	sent  [][]byte
	Reply []byte
	Err   error
}

// Send implements Sender
func (r *Recorder) Send(ctx context.Context, payload []byte, onAck func(reply []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.Err != nil {
		err := r.Err
		r.mu.Unlock()
		return err
	}
	r.sent = append(r.sent, append([]byte(nil), payload...))
	reply := r.Reply
	r.mu.Unlock()

	if onAck != nil {
		onAck(reply)
	}
	return nil
}

// Sent returns the recorded payloads in send order
func (r *Recorder) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

var _ Sender = (*Recorder)(nil)
