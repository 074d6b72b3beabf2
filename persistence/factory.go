package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/resilience"
	"github.com/kbukum/persistkit/util"
)

// Factory is the shared, process-wide source of per-request handles. It
// owns the GORM database and its connection pool.
type Factory struct {
	unit    Unit
	db      *gorm.DB
	sqlDB   *sql.DB
	log     *logger.Logger
	metrics *factoryMetrics
	tracer  trace.Tracer

	mu      sync.RWMutex
	open    bool
	handles map[uuid.UUID]*Handle
}

// FactoryOption customises Open.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	driver DriverFunc
	meter  metric.Meter
	tracer trace.Tracer
}

// WithDriver supplies the dialector instead of looking up the unit's driver name.
func WithDriver(fn DriverFunc) FactoryOption {
	return func(o *factoryOptions) { o.driver = fn }
}

// WithMeter records factory metrics on meter instead of the global provider.
func WithMeter(m metric.Meter) FactoryOption {
	return func(o *factoryOptions) { o.meter = m }
}

// WithTracer traces handle scopes on t instead of the global provider.
func WithTracer(t trace.Tracer) FactoryOption {
	return func(o *factoryOptions) { o.tracer = t }
}

// Open connects to the unit's data store, retrying with linear backoff, and
// returns an open factory. Cancelling ctx aborts the retry loop.
func Open(ctx context.Context, unit Unit, log *logger.Logger, opts ...FactoryOption) (*Factory, error) {
	o := factoryOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meter == nil {
		o.meter = otel.Meter(instrumentationName)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}

	unit.ApplyDefaults()
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	dialector, err := dialectorFor(unit, o.driver)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("persistence").WithFields(logger.Fields(logger.FieldUnit, unit.Name))
	metrics, err := newFactoryMetrics(o.meter, unit.Name)
	if err != nil {
		return nil, err
	}

	lifetime, idle, backoff, slow := unit.durations()
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, slow, parseLogLevel(unit.LogLevel)),
		TranslateError: true,
	}

	var (
		f        *Factory
		attempts int
	)
	retry := resilience.RetryConfig{
		MaxAttempts:    unit.MaxRetries,
		InitialBackoff: backoff,
		MaxBackoff:     time.Duration(unit.MaxRetries) * backoff,
		Strategy:       resilience.Linear,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Connection attempt failed, retrying", logger.Fields(
				"attempt", attempt,
				logger.FieldError, err.Error(),
				"backoff", wait.String(),
			))
		},
	}
	err = resilience.RetryFunc(ctx, retry, func() error {
		attempts++
		db, sqlDB, connErr := connect(ctx, dialector, gormCfg)
		if connErr != nil {
			metrics.failure(ctx, "open")
			return connErr
		}
		sqlDB.SetMaxOpenConns(unit.MaxOpenConns)
		sqlDB.SetMaxIdleConns(unit.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(lifetime)
		sqlDB.SetConnMaxIdleTime(idle)

		log.Info("Factory opened", logger.Fields(
			"driver", unit.Driver,
			"dsn", util.MaskDSN(unit.DSN),
			"attempt", attempts,
			"pool", fmt.Sprintf("%d/%d", unit.MaxOpenConns, unit.MaxIdleConns),
		))
		f = &Factory{
			unit:    unit,
			db:      db,
			sqlDB:   sqlDB,
			log:     log,
			metrics: metrics,
			tracer:  o.tracer,
			open:    true,
			handles: make(map[uuid.UUID]*Handle),
		}
		return nil
	})
	switch {
	case err == nil:
		return f, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("open unit %q canceled after %d attempts: %w", unit.Name, attempts, ctx.Err())
	default:
		return nil, fmt.Errorf("open unit %q: failed after %d attempts: %w", unit.Name, attempts, err)
	}
}

// connect opens and pings once. Every failure path releases the pool
// gorm.Open created, so failed attempts leave no connections behind.
func connect(ctx context.Context, dialector gorm.Dialector, cfg *gorm.Config) (*gorm.DB, *sql.DB, error) {
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		closePool(db)
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		closePool(db)
		return nil, nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return db, sqlDB, nil
}

func closePool(db *gorm.DB) {
	if db == nil || db.ConnPool == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Name returns the persistence unit name.
func (f *Factory) Name() string { return f.unit.Name }

// Unit returns the resolved unit the factory was opened with.
func (f *Factory) Unit() Unit { return f.unit }

// IsOpen reports whether the factory still hands out handles.
func (f *Factory) IsOpen() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.open
}

// CreateHandle returns a new handle bound to ctx. The caller owns it and
// must Close it on every path; WithHandle does that automatically.
func (f *Factory) CreateHandle(ctx context.Context) (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		f.metrics.failure(ctx, "create_handle")
		return nil, fmt.Errorf("create handle for unit %q: %w", f.unit.Name, ErrFactoryClosed)
	}

	h := newHandle(ctx, f)
	f.handles[h.id] = h
	f.metrics.handleOpened(ctx)
	return h, nil
}

// release is called by Handle.Close.
func (f *Factory) release(h *Handle, forced bool) {
	f.mu.Lock()
	delete(f.handles, h.id)
	f.mu.Unlock()
	f.metrics.handleClosed(context.Background(), time.Since(h.opened), forced)
}

// Close closes every outstanding handle, rolling back open transactions,
// then closes the connection pool. Calling Close on a closed factory is a
// no-op.
func (f *Factory) Close() error {
	outstanding, ok := f.markClosed()
	if !ok {
		return nil
	}
	return f.shutdown(outstanding)
}

// markClosed flips the factory to closed and returns the handles that were
// still open. ok is false when the factory was already closed. Once it
// returns, CreateHandle fails with ErrFactoryClosed.
func (f *Factory) markClosed() (outstanding []*Handle, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return nil, false
	}
	f.open = false
	outstanding = make([]*Handle, 0, len(f.handles))
	for _, h := range f.handles {
		outstanding = append(outstanding, h)
	}
	return outstanding, true
}

// shutdown force-closes outstanding handles and releases the pool.
func (f *Factory) shutdown(outstanding []*Handle) error {
	for _, h := range outstanding {
		f.log.Warn("Closing handle left open at factory shutdown", logger.Fields(
			logger.FieldHandleID, h.id.String(),
			"age", time.Since(h.opened).String(),
		))
		if err := h.close(true); err != nil {
			f.log.Warn("Handle close failed during factory shutdown", logger.Fields(
				logger.FieldHandleID, h.id.String(),
				logger.FieldError, err.Error(),
			))
		}
	}

	f.log.Info("Closing factory", logger.Fields("forced_handles", len(outstanding)))
	if err := f.sqlDB.Close(); err != nil {
		f.metrics.failure(context.Background(), "close")
		return fmt.Errorf("close unit %q: %w", f.unit.Name, err)
	}
	return nil
}

// Ping verifies the pool can reach the database.
func (f *Factory) Ping(ctx context.Context) error {
	if !f.IsOpen() {
		return ErrFactoryClosed
	}
	return f.sqlDB.PingContext(ctx)
}

// AutoMigrate runs GORM auto-migration for models.
func (f *Factory) AutoMigrate(ctx context.Context, models ...interface{}) error {
	if !f.IsOpen() {
		return ErrFactoryClosed
	}
	f.log.Info("Running auto-migration", logger.Fields("models", len(models)))
	for _, model := range models {
		if err := f.db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	f.log.Info("Auto-migration completed")
	return nil
}

// SQLDB exposes the underlying pool, e.g. for golang-migrate drivers.
func (f *Factory) SQLDB() *sql.DB { return f.sqlDB }

// Stats is a point-in-time view of the factory.
type Stats struct {
	Unit            string `json:"unit"`
	Driver          string `json:"driver"`
	Open            bool   `json:"open"`
	ActiveHandles   int    `json:"active_handles"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
}

// Stats reports handle and pool counters.
func (f *Factory) Stats() Stats {
	f.mu.RLock()
	s := Stats{
		Unit:          f.unit.Name,
		Driver:        f.unit.Driver,
		Open:          f.open,
		ActiveHandles: len(f.handles),
	}
	f.mu.RUnlock()

	db := f.sqlDB.Stats()
	s.OpenConnections = db.OpenConnections
	s.InUse = db.InUse
	s.Idle = db.Idle
	return s
}
