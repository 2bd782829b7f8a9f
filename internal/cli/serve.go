package cli

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/api"
)

// newServeCmd creates the serve command for the API server
func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the plank HTTP and WebSocket API.

The server exposes the store over REST:
  • Projects, tasks, milestones and subtasks
  • The activity feed and the current selection
  • A WebSocket at /api/ws that streams snapshots and notices

Without --actor the server starts logged out and every mutation is
rejected with NOT_AUTHENTICATED.

Example:
  plank serve --actor u-1              # Start on the configured port
  plank serve --actor u-1 --port 3000  # Start on a custom port`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.serving = true
			s, err := a.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			addr := s.cfg.Server.Addr()
			if cmd.Flags().Changed("host") || cmd.Flags().Changed("port") {
				h, p := s.cfg.Server.Host, s.cfg.Server.Port
				if cmd.Flags().Changed("host") {
					h = host
				}
				if cmd.Flags().Changed("port") {
					p = port
				}
				addr = net.JoinHostPort(h, strconv.Itoa(p))
			}

			server := api.New(s.store, &api.Config{Addr: addr, Logger: s.logger})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starting API server on %s...\n", addr)
			fmt.Fprintln(out, "Press Ctrl+C to stop")

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("serve %s: %w", addr, err)
			}
			fmt.Fprintln(out, "Shut down")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}
