package persistence

import (
	"context"
	"fmt"

	"github.com/kbukum/persistkit/component"
	"github.com/kbukum/persistkit/logger"
)

// Component drives a Manager from the application lifecycle: Start
// initializes the configured unit and Stop tears the factory down.
type Component struct {
	mgr    *Manager
	cfg    Config
	log    *logger.Logger
	models []interface{}
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the persistence lifecycle component.
func NewComponent(mgr *Manager, cfg Config, log *logger.Logger) *Component {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		mgr: mgr,
		cfg: cfg,
		log: log.WithComponent("persistence"),
	}
}

// WithAutoMigrate registers models migrated on Start when the unit enables
// auto_migrate.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// Manager returns the manager the component drives.
func (c *Component) Manager() *Manager { return c.mgr }

// Name returns the component name.
func (c *Component) Name() string { return "persistence" }

// Start initializes the factory. An error aborts application startup.
func (c *Component) Start(ctx context.Context) error {
	f, err := c.mgr.Initialize(ctx, c.cfg.Unit, c.cfg.Properties)
	if err != nil {
		return fmt.Errorf("persistence start: %w", err)
	}
	if f.Unit().AutoMigrate && len(c.models) > 0 {
		if err := f.AutoMigrate(ctx, c.models...); err != nil {
			return fmt.Errorf("persistence auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop tears the factory down. Close failures are logged by the manager
// so shutdown of the remaining components continues.
func (c *Component) Stop(ctx context.Context) error {
	c.mgr.Teardown(ctx)
	return nil
}

// Health pings the database through the factory.
func (c *Component) Health(ctx context.Context) component.Health {
	f, err := c.mgr.Factory()
	if err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "factory not initialized",
		}
	}
	if !f.IsOpen() {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "factory closed",
		}
	}
	if err := f.Ping(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns the unit summary for the startup banner.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("unit=%s", c.cfg.Unit)
	if f, err := c.mgr.Factory(); err == nil {
		u := f.Unit()
		details = fmt.Sprintf("unit=%s driver=%s pool=%d/%d", u.Name, u.Driver, u.MaxOpenConns, u.MaxIdleConns)
		if u.AutoMigrate {
			details += " auto-migrate=on"
		}
	}
	return component.Description{
		Name:    "Persistence",
		Type:    "database",
		Details: details,
	}
}
