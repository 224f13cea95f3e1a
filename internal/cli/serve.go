package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/propcheck/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	var noAdmin bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the generation scheduler and the admin HTTP server",
		Long: `Run a generation cycle immediately and then once per configured interval.
The admin server exposes /healthz, /metrics and scheduler controls. Stops on
SIGINT or SIGTERM after the in-flight reservation completes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := wire.Logger()
			scheduler := wire.SchedulerService()

			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			g, ctx := errgroup.WithContext(ctx)
			if !noAdmin {
				server := wire.AdminServer()
				g.Go(func() error {
					return server.ListenAndServe(ctx)
				})
			}
			g.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down")
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&noAdmin, "no-admin", false, "Do not start the admin HTTP server")
	return cmd
}
