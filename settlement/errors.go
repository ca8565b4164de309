package settlement

import (
	"errors"
	"sort"
	"strings"

	"github.com/sig-0/remesas/rates"
	"github.com/sig-0/remesas/storage"
)

var (
	// ErrNotAuthorized is returned when the caller may not perform the action
	ErrNotAuthorized = errors.New("not authorized")

	// ErrRatesUnavailable is returned when no rate snapshot was published yet
	ErrRatesUnavailable = errors.New("rates are not available yet")

	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrReceiptRequired is returned when completing without an admin receipt
	ErrReceiptRequired = errors.New("an admin receipt is required to complete a transaction")

	ErrRouteUnavailable = rates.ErrRouteUnavailable
	ErrInvalidAmount    = rates.ErrInvalidAmount
	ErrNotFound         = storage.ErrNotFound
)

// ValidationError holds field-level validation messages
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func newValidationError() *ValidationError {
	return &ValidationError{
		Fields: make(map[string]string),
	}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields[field] = msg
}

// orNil returns the error only if any field failed validation
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}

	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}
