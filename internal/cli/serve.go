package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/kindview/internal/metrics"
	"github.com/matzehuels/kindview/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API over HTTP",
		Long: `Serve POST /eval, POST /render, GET /kinds, GET /healthz and GET /metrics.

The server evaluates forms in one kernel, so bindings persist across
requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			m := metrics.New()
			m.Register()

			s, err := c.newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			srv := server.New(s.eval, server.WithLogger(c.Logger), server.WithMetrics(m.Handler()))
			return srv.ListenAndServe(cmd.Context(), addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
