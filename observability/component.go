package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/persistkit/component"
	"github.com/kbukum/persistkit/config"
	"github.com/kbukum/persistkit/logger"
)

// Component manages the lifecycle of the OTLP trace and metric providers.
type Component struct {
	cfg     Config
	service config.ServiceConfig
	log     *logger.Logger

	mu      sync.Mutex
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	started bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates an observability component for the given service.
func NewComponent(cfg Config, service config.ServiceConfig, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		cfg:     cfg,
		service: service,
		log:     log.WithComponent("observability"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Start installs the OTLP providers globally when export is enabled.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled {
		c.log.Debug("Observability export disabled")
		c.started = true
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("observability start: %w", err)
	}

	tp, err := InitTracer(ctx, c.cfg.TracerConfig(c.service.Name, c.service.Version, c.service.Environment))
	if err != nil {
		return fmt.Errorf("observability start: tracer: %w", err)
	}
	mp, err := InitMeter(ctx, c.cfg.MeterConfig(c.service.Name, c.service.Version, c.service.Environment))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("observability start: meter: %w", err)
	}

	c.tracer, c.meter = tp, mp
	c.started = true
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.tracer != nil {
		if err := c.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		c.tracer = nil
	}
	if c.meter != nil {
		if err := c.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		c.meter = nil
	}
	c.started = false
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("Observability shutdown incomplete", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	return nil
}

// Health reports whether the component has been started.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.started:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.cfg.Enabled:
		h.Message = "export disabled"
	}
	return h
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s sample=%.2f interval=%s", c.cfg.Endpoint, c.cfg.SampleRate, c.cfg.Interval)
	}
	return component.Description{
		Name:    "Observability",
		Type:    "telemetry",
		Details: details,
	}
}
