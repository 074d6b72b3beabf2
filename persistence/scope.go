package persistence

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// WithHandle creates a handle from f, runs fn with it and closes it on
// every path, including a panic in fn. A close error is joined with the
// error fn returned.
func WithHandle(ctx context.Context, f *Factory, fn func(h *Handle) error) (err error) {
	ctx, span := f.tracer.Start(ctx, "persistence.WithHandle",
		trace.WithAttributes(attribute.String("persistence.unit", f.Name())),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	h, err := f.CreateHandle(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("persistence.handle_id", h.ID().String()))

	defer func() {
		if cerr := h.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(h)
}

// InTransaction is WithHandle with fn running inside a transaction that
// commits when fn returns nil.
func InTransaction(ctx context.Context, f *Factory, fn func(h *Handle) error) error {
	return WithHandle(ctx, f, func(h *Handle) error {
		return h.Transaction(func(*gorm.DB) error {
			return fn(h)
		})
	})
}
