// Package bootstrap hosts a service: it starts registered components in
// order, runs lifecycle hooks, waits for a shutdown signal and stops the
// components in reverse order within a graceful timeout.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(persistence.NewComponent(mgr, cfg.Persistence, app.Logger))
//	app.RegisterComponent(server.NewComponent(cfg.Server, app.Logger))
//	return app.Run(ctx)
//
// A component whose Start fails aborts startup; components already started
// are stopped again before Run returns the error.
package bootstrap
