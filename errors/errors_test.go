package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_RetryableDetection(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeNotFound, false},
		{ErrCodeTimeout, true},
		{ErrCodeDatabaseError, true},
		{ErrCodeFactoryClosed, false},
		{ErrCodeNotInitialized, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			err := New(tc.code, "msg", http.StatusInternalServerError)
			if err.Retryable != tc.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tc.retryable)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("note", "123")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
	if err.Details["id"] != "123" {
		t.Errorf("expected id=123, got %v", err.Details["id"])
	}

	noID := NotFound("note", "")
	if _, ok := noID.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestFactoryClosed(t *testing.T) {
	err := FactoryClosed("orders")
	if err.Code != ErrCodeFactoryClosed {
		t.Errorf("expected FACTORY_CLOSED, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", err.HTTPStatus)
	}
	if err.Details["unit"] != "orders" {
		t.Errorf("expected unit detail, got %v", err.Details)
	}
}

func TestNotInitialized(t *testing.T) {
	err := NotInitialized("persistence factory")
	if !strings.Contains(err.Message, "persistence factory") {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Code != ErrCodeNotInitialized {
		t.Errorf("expected NOT_INITIALIZED, got %s", err.Code)
	}
}

func TestErrorString(t *testing.T) {
	plain := Conflict("state changed")
	if plain.Error() != "CONFLICT: state changed" {
		t.Errorf("unexpected Error(): %q", plain.Error())
	}

	cause := fmt.Errorf("disk full")
	wrapped := DatabaseError(cause)
	if !strings.Contains(wrapped.Error(), "disk full") {
		t.Errorf("expected cause in Error(): %q", wrapped.Error())
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestWithDetail(t *testing.T) {
	err := Validation("bad").WithDetail("field", "title")
	if err.Details["field"] != "title" {
		t.Errorf("expected field detail, got %v", err.Details)
	}
}

func TestAsAppErrorAndFrom(t *testing.T) {
	inner := NotFound("note", "1")
	wrapped := fmt.Errorf("lookup: %w", inner)

	got, ok := AsAppError(wrapped)
	if !ok || got != inner {
		t.Fatalf("AsAppError() = %v, %v", got, ok)
	}
	if From(wrapped) != inner {
		t.Error("From should unwrap to the existing AppError")
	}

	plain := From(fmt.Errorf("unexpected"))
	if plain.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", plain.Code)
	}
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func TestToResponse(t *testing.T) {
	resp := InvalidInput("title", "must not be empty").ToResponse()
	if resp.Error.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Details["field"] != "title" {
		t.Errorf("expected field detail, got %v", resp.Error.Details)
	}
}

func TestPayloadTooLarge(t *testing.T) {
	err := PayloadTooLarge(1024)
	if err.Code != ErrCodeTooLarge || err.HTTPStatus != http.StatusRequestEntityTooLarge {
		t.Errorf("unexpected error: %+v", err)
	}
	if err.Details["limit"] != int64(1024) {
		t.Errorf("limit detail = %v", err.Details["limit"])
	}
}
