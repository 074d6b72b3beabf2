package persistence

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/persistkit/errors"
)

func TestFromDatabase(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   apperrors.ErrorCode
		status int
	}{
		{"factory closed", fmt.Errorf("create handle: %w", ErrFactoryClosed), apperrors.ErrCodeFactoryClosed, http.StatusServiceUnavailable},
		{"not initialized", ErrNotInitialized, apperrors.ErrCodeNotInitialized, http.StatusServiceUnavailable},
		{"record not found", gorm.ErrRecordNotFound, apperrors.ErrCodeNotFound, http.StatusNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, apperrors.ErrCodeAlreadyExists, http.StatusConflict},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), apperrors.ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("syntax error at or near"), apperrors.ErrCodeDatabaseError, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromDatabase(tc.err, "note")
			if got.Code != tc.code || got.HTTPStatus != tc.status {
				t.Errorf("FromDatabase() = %s/%d, want %s/%d", got.Code, got.HTTPStatus, tc.code, tc.status)
			}
			if !errors.Is(got, tc.err) {
				t.Error("expected cause to be preserved")
			}
		})
	}
}

func TestFromDatabasePassesThrough(t *testing.T) {
	if FromDatabase(nil, "note") != nil {
		t.Error("expected nil for nil error")
	}
	orig := apperrors.Conflict("version mismatch")
	if got := FromDatabase(fmt.Errorf("update: %w", orig), "note"); got != orig {
		t.Errorf("expected existing AppError, got %v", got)
	}
}

func TestIsConnectionError(t *testing.T) {
	if !IsConnectionError(errors.New("sql: database is closed")) {
		t.Error("expected closed database to count as a connection error")
	}
	if IsConnectionError(errors.New("UNIQUE constraint failed")) || IsConnectionError(nil) {
		t.Error("unexpected connection error match")
	}
}
