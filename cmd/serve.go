// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"

	"soundlab/internal/log"
	"soundlab/internal/transport"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run analyses requested over a websocket (ws://ADDR/ws)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&a.cfg.Transport.WebSocketAddress, "addr", a.cfg.Transport.WebSocketAddress,
		"Listen address")
	addAnalysisFlags(cmd.Flags(), &a.cfg.Analysis)
	return cmd
}

// runServer serves until ctx is cancelled. Flag and file options become the
// defaults that each request's options override.
func (a *app) runServer(ctx context.Context, stdout io.Writer) error {
	srv, err := transport.NewWebSocketServer(a.cfg.Transport.WebSocketAddress, a.cfg.Analysis, nil)
	if err != nil {
		return xerrors.New(err)
	}
	fmt.Fprintf(stdout, "Listening on ws://%s/ws\n", srv.Addr())

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	select {
	case <-ctx.Done():
		log.Infof("Server: shutting down")
	case err := <-served:
		if err != nil {
			srv.Close()
			return xerrors.New(err)
		}
		return nil
	}

	if err := srv.Close(); err != nil {
		log.Warnf("Server: close: %v", err)
	}
	return <-served
}
