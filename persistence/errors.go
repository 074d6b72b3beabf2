package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/persistkit/errors"
)

var (
	// ErrFactoryClosed is returned when a handle is requested from a closed factory.
	ErrFactoryClosed = errors.New("persistence: factory closed")
	// ErrHandleClosed is returned when a closed handle is used.
	ErrHandleClosed = errors.New("persistence: handle closed")
	// ErrNotInitialized is returned when the factory is requested before Initialize.
	ErrNotInitialized = errors.New("persistence: factory not initialized")
	// ErrAlreadyInitialized is returned by every Initialize after the first success.
	ErrAlreadyInitialized = errors.New("persistence: factory already initialized")
	// ErrUnitNotFound is returned when no persistence unit has the requested name.
	ErrUnitNotFound = errors.New("persistence: unit not found")
	// ErrNoActiveTransaction is returned by Commit and Rollback without Begin.
	ErrNoActiveTransaction = errors.New("persistence: no active transaction")
	// ErrTransactionActive is returned by Begin while a transaction is open.
	ErrTransactionActive = errors.New("persistence: transaction already active")
)

// IsConnectionError reports whether err looks like a lost or refused
// database connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"driver: bad connection",
		"database is closed",
		"sql: database is closed",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a persistence error into an AppError for the
// service boundary. resource names the entity involved, e.g. "note".
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, ErrFactoryClosed):
		return apperrors.FactoryClosed("").WithCause(err)
	case errors.Is(err, ErrNotInitialized):
		return apperrors.NotInitialized("persistence factory").WithCause(err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, "").WithCause(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case IsConnectionError(err):
		return apperrors.ServiceUnavailable("database").WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
