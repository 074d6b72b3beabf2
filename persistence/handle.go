package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/persistkit/logger"
)

// Handle is a short-lived unit of work created from a Factory. A handle
// belongs to one request and is not meant to be shared between goroutines;
// only Close may race with its use.
type Handle struct {
	id      uuid.UUID
	ctx     context.Context
	factory *Factory
	opened  time.Time

	mu     sync.Mutex
	closed bool
	tx     *gorm.DB
}

func newHandle(ctx context.Context, f *Factory) *Handle {
	return &Handle{
		id:      uuid.New(),
		ctx:     ctx,
		factory: f,
		opened:  time.Now(),
	}
}

// ID returns the handle identifier used in logs.
func (h *Handle) ID() uuid.UUID { return h.id }

// Context returns the context the handle was created with.
func (h *Handle) Context() context.Context { return h.ctx }

// IsOpen reports whether the handle can still be used.
func (h *Handle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

// InTransaction reports whether a transaction is active.
func (h *Handle) InTransaction() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tx != nil
}

// Session returns the active transaction, or a session scoped to the
// handle's context when none is active.
func (h *Handle) Session() (*gorm.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.tx != nil {
		return h.tx, nil
	}
	return h.factory.db.WithContext(h.ctx), nil
}

// Begin starts a transaction on the handle.
func (h *Handle) Begin() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	if h.tx != nil {
		return ErrTransactionActive
	}
	tx := h.factory.db.WithContext(h.ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	h.tx = tx
	return nil
}

// Commit commits the active transaction.
func (h *Handle) Commit() error {
	tx, err := h.takeTx()
	if err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the active transaction.
func (h *Handle) Rollback() error {
	tx, err := h.takeTx()
	if err != nil {
		return err
	}
	return rollback(tx)
}

func (h *Handle) takeTx() (*gorm.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.tx == nil {
		return nil, ErrNoActiveTransaction
	}
	tx := h.tx
	h.tx = nil
	return tx, nil
}

func rollback(tx *gorm.DB) error {
	err := tx.Rollback().Error
	// database/sql already rolled back when the context was canceled.
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Transaction runs fn inside a transaction, committing when fn returns nil
// and rolling back on error or panic. When a transaction is already active
// fn joins it and the outer caller decides the outcome.
func (h *Handle) Transaction(fn func(tx *gorm.DB) error) (err error) {
	if h.InTransaction() {
		tx, serr := h.Session()
		if serr != nil {
			return serr
		}
		return fn(tx)
	}

	if err := h.Begin(); err != nil {
		return err
	}
	tx, err := h.Session()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = h.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := h.Rollback(); rbErr != nil && !errors.Is(rbErr, ErrHandleClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return h.Commit()
}

// Find loads the first record matching conds into dest.
func (h *Handle) Find(dest interface{}, conds ...interface{}) error {
	db, err := h.Session()
	if err != nil {
		return err
	}
	return db.First(dest, conds...).Error
}

// Persist inserts value.
func (h *Handle) Persist(value interface{}) error {
	db, err := h.Session()
	if err != nil {
		return err
	}
	return db.Create(value).Error
}

// Merge inserts or updates value by primary key.
func (h *Handle) Merge(value interface{}) error {
	db, err := h.Session()
	if err != nil {
		return err
	}
	return db.Save(value).Error
}

// Remove deletes value, or the records matching conds.
func (h *Handle) Remove(value interface{}, conds ...interface{}) error {
	db, err := h.Session()
	if err != nil {
		return err
	}
	res := db.Delete(value, conds...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Close releases the handle, rolling back any active transaction. It is
// safe to call more than once.
func (h *Handle) Close() error {
	return h.close(false)
}

func (h *Handle) close(forced bool) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	tx := h.tx
	h.tx = nil
	h.mu.Unlock()

	var err error
	if tx != nil {
		err = rollback(tx)
		h.factory.log.Warn("Handle closed with active transaction, rolled back", logger.Fields(
			logger.FieldHandleID, h.id.String(),
		))
	}
	h.factory.release(h, forced)
	return err
}
