package util

import (
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/persistkit/errors"
)

// ParseID parses a UUID taken from a request, such as a path parameter.
// Failures are INVALID_INPUT AppErrors naming field.
func ParseID(field, value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, apperrors.InvalidInput(field, "cannot be empty")
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput(field, "must be a UUID").WithCause(err)
	}
	return id, nil
}
