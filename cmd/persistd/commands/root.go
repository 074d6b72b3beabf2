// Package commands implements the persistd CLI.
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/persistkit/bootstrap"
	"github.com/kbukum/persistkit/cmd/persistd/api"
	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/observability"
	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/version"
)

// options carries the persistent flags shared by all subcommands.
type options struct {
	configFile string
	envFile    string

	// log replaces the config-driven logger when set.
	log *logger.Logger
}

// Execute runs the persistd root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the persistd command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "persistd - shared persistence factory host",
		Long: `persistd opens one persistence factory per process, serves the notes API
on top of it and tears the factory down on shutdown.

Configuration is read from config.yml (./cmd/persistd, ./config or .)
and PERSISTD_* environment variables, e.g. PERSISTD_SERVER_PORT=9090.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&o.configFile, "config", "", "config file (default: first config.yml in the search path)")
	root.PersistentFlags().StringVar(&o.envFile, "env-file", "", ".env file (default: first .env in the search path)")

	root.AddCommand(newServeCmd(o))
	root.AddCommand(newCheckCmd(o))
	root.AddCommand(newMigrateCmd(o))
	root.AddCommand(newVersionCmd())
	return root
}

// host is an application with its persistence wiring.
type host struct {
	app *bootstrap.App[*Config]
	mgr *persistence.Manager
}

// newHost loads config and registers the observability and persistence
// components. Components stop in reverse order, so anything registered
// later is stopped before the factory is torn down.
func newHost(o *options, out io.Writer) (*host, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}

	appOpts := []bootstrap.Option{bootstrap.WithSummaryWriter(out)}
	if o.log != nil {
		appOpts = append(appOpts, bootstrap.WithLogger(o.log))
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	app, err := bootstrap.NewApp(cfg, appOpts...)
	if err != nil {
		return nil, err
	}

	reg, err := cfg.Persistence.Registry()
	if err != nil {
		return nil, err
	}
	mgr := persistence.NewManager(reg, app.Logger)

	if err := app.RegisterComponent(observability.NewComponent(cfg.Observability, cfg.ServiceConfig, app.Logger)); err != nil {
		return nil, err
	}
	pc := persistence.NewComponent(mgr, cfg.Persistence, app.Logger).WithAutoMigrate(api.Models()...)
	if err := app.RegisterComponent(pc); err != nil {
		return nil, err
	}
	return &host{app: app, mgr: mgr}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serviceName, version.Get())
		},
	}
}
