//go:build zmq
// +build zmq

package transport

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/dd0wney/synthgraph/pkg/logging"
)

// zmqSocket wraps a ZeroMQ REQ socket to implement Socket
type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) Send(data []byte) error {
	_, err := s.sock.SendBytes(data, 0)
	return err
}

func (s *zmqSocket) Recv() ([]byte, error) {
	return s.sock.RecvBytes(0)
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}

func (s *zmqSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetRcvtimeo(d)
}

func (s *zmqSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetSndtimeo(d)
}

// DialZMQ connects a ZeroMQ REQ socket to addr
func DialZMQ(addr string, timeout time.Duration, logger logging.Logger) (*SocketSender, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create request socket: %w", err)
	}
	if err := sock.SetLinger(0); err != nil {
		_ = sock.Close()
		return nil, err
	}
	if err := sock.Connect(addr); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("failed to connect %s: %w", addr, err)
	}
	return NewSocketSender(&zmqSocket{sock: sock}, timeout, logger), nil
}
