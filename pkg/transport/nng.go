package transport

import (
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/synthgraph/pkg/logging"
)

// nngSocket wraps a mangos.Socket to implement Socket
type nngSocket struct {
	sock mangos.Socket
}

func (s *nngSocket) Send(data []byte) error {
	return s.sock.Send(data)
}

func (s *nngSocket) Recv() ([]byte, error) {
	return s.sock.Recv()
}

func (s *nngSocket) Close() error {
	return s.sock.Close()
}

func (s *nngSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *nngSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

// DialNNG connects a REQ socket to addr, e.g. "tcp://127.0.0.1:57110"
func DialNNG(addr string, timeout time.Duration, logger logging.Logger) (*SocketSender, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create request socket: %w", err)
	}
	if err := sock.Dial(addr); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return NewSocketSender(&nngSocket{sock: sock}, timeout, logger), nil
}
