// Package persistence owns the application's single shared database
// factory and the short-lived handles requests create from it.
//
// A Manager is built once at startup from a Registry of named persistence
// units and handed to whatever needs data access. The host (bootstrap)
// drives its lifecycle through Component:
//
//	reg, _ := cfg.Persistence.Registry()
//	mgr := persistence.NewManager(reg, log)
//	app.RegisterComponent(persistence.NewComponent(mgr, cfg.Persistence, log))
//
// Consumers obtain the factory and always release their handle:
//
//	f, err := mgr.Factory()
//	if err != nil {
//	    return err
//	}
//	return persistence.WithHandle(ctx, f, func(h *persistence.Handle) error {
//	    return h.Persist(&order)
//	})
//
// The manager moves through uninitialized, open and closed exactly once.
// A second Initialize returns ErrAlreadyInitialized; Teardown on a closed
// factory is a no-op; handles cannot be created from a closed factory.
package persistence
