// ABOUTME: serve subcommand running the HTTP API
// ABOUTME: Runs the API and the template watcher together until interrupted
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/canvass/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.Config.Address
			}
			server := web.NewServer(web.Config{
				Store:          app.Store,
				Uploader:       app.Uploader,
				Supervisor:     app.Supervisor,
				Scorer:         app.Scorer,
				Logger:         app.Logger.Named("http"),
				MaxUploadBytes: app.Config.MaxUploadBytes,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Start(gctx, addr)
			})
			if app.Watcher != nil {
				g.Go(func() error {
					return app.Watcher.Run(gctx)
				})
			}

			err = g.Wait()
			app.Logger.Info("server exiting", zap.Error(err))
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default CANVASS_ADDRESS or :8080)")
	return cmd
}
