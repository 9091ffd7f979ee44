package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/synthgraph/pkg/transport"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		addr string
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "send [file or library name]",
		Short: "Ship a definition file to an engine over nng",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Transport.Addr
			}
			if addr == "" {
				return fmt.Errorf("no engine address: pass --addr or set transport.addr")
			}

			_, data, err := a.readDefinitions(args[0])
			if err != nil {
				return err
			}

			sender, err := transport.DialNNG(addr, a.cfg.Transport.Timeout, a.logger)
			if err != nil {
				return err
			}
			defer sender.Close()

			return deliver(cmd.Context(), sender, data, wait, func(reply []byte) {
				fmt.Fprintf(a.out, "%s %q\n", successStyle.Render("acknowledged"), reply)
			}, func() {
				fmt.Fprintf(a.out, "%s %d bytes to %s\n", successStyle.Render("sent"), len(data), addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Engine address, e.g. tcp://127.0.0.1:57110")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the engine's acknowledgement")
	return cmd
}

// deliver sends data, waiting for a reply only when wait is set
func deliver(ctx context.Context, s transport.Sender, data []byte, wait bool, onAck func([]byte), onSent func()) error {
	var ack func([]byte)
	if wait {
		ack = onAck
	}
	if err := s.Send(ctx, data, ack); err != nil {
		return err
	}
	onSent()
	return nil
}
