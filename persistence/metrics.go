package persistence

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName names the otel meter and tracer of this package.
const instrumentationName = "github.com/kbukum/persistkit/persistence"

type factoryMetrics struct {
	opened   metric.Int64Counter
	active   metric.Int64UpDownCounter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	unit     metric.MeasurementOption
}

func newFactoryMetrics(meter metric.Meter, unit string) (*factoryMetrics, error) {
	opened, err := meter.Int64Counter("persistence.handles.opened",
		metric.WithDescription("Handles created from the factory"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persistence.handles.opened counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("persistence.handles.active",
		metric.WithDescription("Handles currently open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persistence.handles.active counter: %w", err)
	}

	duration, err := meter.Float64Histogram("persistence.handle.duration",
		metric.WithDescription("Lifetime of a handle from creation to close"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persistence.handle.duration histogram: %w", err)
	}

	errs, err := meter.Int64Counter("persistence.factory.errors",
		metric.WithDescription("Factory lifecycle failures by operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persistence.factory.errors counter: %w", err)
	}

	return &factoryMetrics{
		opened:   opened,
		active:   active,
		duration: duration,
		errors:   errs,
		unit:     metric.WithAttributes(attribute.String("unit", unit)),
	}, nil
}

func (m *factoryMetrics) handleOpened(ctx context.Context) {
	m.opened.Add(ctx, 1, m.unit)
	m.active.Add(ctx, 1, m.unit)
}

func (m *factoryMetrics) handleClosed(ctx context.Context, lifetime time.Duration, forced bool) {
	m.active.Add(ctx, -1, m.unit)
	m.duration.Record(ctx, lifetime.Seconds(), m.unit, metric.WithAttributes(attribute.Bool("forced", forced)))
}

func (m *factoryMetrics) failure(ctx context.Context, op string) {
	m.errors.Add(ctx, 1, m.unit, metric.WithAttributes(attribute.String("operation", op)))
}
