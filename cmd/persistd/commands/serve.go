package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/persistkit/cmd/persistd/api"
	"github.com/kbukum/persistkit/cmd/persistd/migrations"
	"github.com/kbukum/persistkit/observability"
	"github.com/kbukum/persistkit/persistence/migration"
	"github.com/kbukum/persistkit/server"
)

func newServeCmd(o *options) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the factory and serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newHost(o, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if migrate {
				h.app.OnStart(h.migrateUp)
			}
			srv, err := h.newServer()
			if err != nil {
				return err
			}
			if err := h.app.RegisterComponent(server.NewComponent(srv)); err != nil {
				return err
			}
			return h.app.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

// newServer builds the HTTP server with the default middleware, health checks and
// the /v1 API.
func (h *host) newServer() (*server.Server, error) {
	cfg := h.app.Cfg
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("request metrics: %w", err)
	}

	srv := server.New(cfg.Server, h.app.Logger)
	srv.ApplyMiddleware(metrics)
	srv.RegisterDefaultEndpoints(cfg.Name, h.app.Components.HealthAll)
	api.Register(srv.GinEngine(), h.mgr)
	srv.TrackRoutes(h.app.Summary)
	return srv, nil
}

// migrateUp applies the embedded migrations to the open factory.
func (h *host) migrateUp(_ context.Context) error {
	m, err := h.migrator()
	if err != nil {
		return err
	}
	return m.Up()
}

func (h *host) migrator() (*migration.Migrator, error) {
	f, err := h.mgr.Factory()
	if err != nil {
		return nil, err
	}
	return migration.New(f, migrations.FS, ".", h.app.Logger)
}
