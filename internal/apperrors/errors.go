// Package apperrors defines the error taxonomy shared by the validator,
// the aggregation engine, the stores and the HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that no events exist for the requested session.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates a missing or malformed request parameter.
	ErrBadRequest = errors.New("bad request")
)

// NotFound wraps ErrNotFound with a caller-facing message.
func NotFound(msg string) error {
	return &messageError{kind: ErrNotFound, msg: msg}
}

// BadRequest wraps ErrBadRequest with a caller-facing message.
func BadRequest(msg string) error {
	return &messageError{kind: ErrBadRequest, msg: msg}
}

type messageError struct {
	kind error
	msg  string
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.kind }

// FieldViolation describes one rejected field of a payload.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload is rejected. The payload is
// never partially accepted.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StoreError wraps a failure of the event store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError for op. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
