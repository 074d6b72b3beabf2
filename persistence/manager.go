package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/persistkit/logger"
)

// State is the lifecycle stage of a Manager's factory.
type State int

const (
	StateUninitialized State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Manager holds the application's one shared Factory. It is created in
// main and passed to the code that needs data access.
type Manager struct {
	registry *Registry
	base     *logger.Logger
	log      *logger.Logger
	opts     []FactoryOption

	// initMu serialises Initialize so readers never wait on connection retries.
	initMu sync.Mutex

	mu      sync.RWMutex
	factory *Factory
}

// NewManager creates a manager for the units in registry. opts are passed
// to Open when the factory is built.
func NewManager(registry *Registry, log *logger.Logger, opts ...FactoryOption) *Manager {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Manager{
		registry: registry,
		base:     log,
		log:      log.WithComponent("persistence"),
		opts:     opts,
	}
}

// Initialize builds the factory for the named unit with props applied on
// top of its configuration. It succeeds at most once per Manager; any later
// call returns ErrAlreadyInitialized and leaves the existing factory as it
// is, whether open or closed. A failed call leaves the manager
// uninitialized so the caller may abort startup.
func (m *Manager) Initialize(ctx context.Context, unitName string, props map[string]string) (*Factory, error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.current() != nil {
		return nil, fmt.Errorf("initialize unit %q: %w", unitName, ErrAlreadyInitialized)
	}

	unit, err := resolveUnit(m.registry, unitName, props)
	if err != nil {
		m.log.Error("Persistence unit configuration invalid", logger.Fields(
			logger.FieldUnit, unitName,
			logger.FieldError, err.Error(),
		))
		return nil, err
	}

	start := time.Now()
	f, err := Open(ctx, unit, m.base, m.opts...)
	if err != nil {
		m.log.Error("Failed to initialize persistence factory", logger.Fields(
			logger.FieldUnit, unitName,
			logger.FieldError, err.Error(),
		))
		return nil, err
	}

	m.mu.Lock()
	m.factory = f
	m.mu.Unlock()

	m.log.Info("Persistence factory initialized", logger.Fields(
		logger.FieldUnit, unitName,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return f, nil
}

// Factory returns the shared factory. It never constructs one: before
// Initialize it returns ErrNotInitialized, after Teardown it returns the
// same factory, now closed.
func (m *Manager) Factory() (*Factory, error) {
	if f := m.current(); f != nil {
		return f, nil
	}
	return nil, ErrNotInitialized
}

// MustFactory is Factory for callers that cannot run before Initialize.
func (m *Manager) MustFactory() *Factory {
	f, err := m.Factory()
	if err != nil {
		panic(err)
	}
	return f
}

// State reports the lifecycle stage.
func (m *Manager) State() State {
	f := m.current()
	switch {
	case f == nil:
		return StateUninitialized
	case f.IsOpen():
		return StateOpen
	default:
		return StateClosed
	}
}

// Teardown closes the factory if it is open. Calling it before Initialize
// or after a previous Teardown does nothing. The factory is marked closed
// before Teardown waits, so State reports closed and CreateHandle fails as
// soon as it returns. Rolling back outstanding handles and closing the pool
// are bounded by ctx: if ctx ends first the work finishes in the
// background. A close failure is logged and never returned.
func (m *Manager) Teardown(ctx context.Context) {
	f := m.current()
	if f == nil {
		m.log.Debug("Teardown skipped, factory never initialized")
		return
	}
	outstanding, ok := f.markClosed()
	if !ok {
		m.log.Debug("Teardown skipped, factory already closed", logger.Fields(logger.FieldUnit, f.Name()))
		return
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- f.shutdown(outstanding) }()

	select {
	case err := <-done:
		m.logClosed(f, start, err)
		return
	default:
	}
	select {
	case err := <-done:
		m.logClosed(f, start, err)
	case <-ctx.Done():
		m.log.Warn("Persistence factory close still running at shutdown deadline", logger.Fields(
			logger.FieldUnit, f.Name(),
			logger.FieldError, ctx.Err().Error(),
		))
	}
}

func (m *Manager) logClosed(f *Factory, start time.Time, err error) {
	if err != nil {
		m.log.Error("Persistence factory close failed", logger.Fields(
			logger.FieldUnit, f.Name(),
			logger.FieldError, err.Error(),
		))
		return
	}
	m.log.Info("Persistence factory closed", logger.Fields(
		logger.FieldUnit, f.Name(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
}

func (m *Manager) current() *Factory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.factory
}
