// Package serve implements the serve subcommand.
package serve

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fieldarchive/unitlabel/cmd/cmdutil"
	"github.com/fieldarchive/unitlabel/internal/api"
	"github.com/fieldarchive/unitlabel/internal/app"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the identifier HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				settings.Server.Listen = listen
			}
			return cmdutil.WithApp(cmd.Context(), settings, runServe)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides server.listen")
	return cmd
}

func runServe(ctx context.Context, a *app.App) error {
	server, err := api.New(api.ConfigFromSettings(a.Settings), a.Service,
		api.WithLogger(logger.Global().Module("api")),
		api.WithHealthCheck(a.DB),
		api.WithMetricsHandler(a.Metrics.Handler()),
	)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}
