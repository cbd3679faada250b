package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports malformed input. It is raised before any store access.
type ValidationError struct {
	Field       string            `json:"field,omitempty"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		if e.Field == "" {
			return "validation failed: " + e.Message
		}
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for f := range e.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field error, keeping the first message seen for a field.
func (e *ValidationError) Add(field, message string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	if _, exists := e.FieldErrors[field]; exists {
		return
	}
	e.FieldErrors[field] = message
	if e.Message == "" {
		e.Message = "one or more fields are invalid"
	}
}

// OrNil returns nil when no field errors were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || (len(e.FieldErrors) == 0 && e.Message == "") {
		return nil
	}
	return e
}

// Conflict is a single overlap found while checking a candidate interval.
type Conflict struct {
	SubjectID  string       `json:"subjectId,omitempty"`
	ResourceID string       `json:"resourceId,omitempty"`
	Interval   TimeInterval `json:"interval"`
	Reason     string       `json:"reason,omitempty"`
}

type ConflictResult struct {
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
}

// ConflictError is an expected outcome of contention, not a failure.
type ConflictError struct {
	Reason    string     `json:"reason"`
	Conflicts []Conflict `json:"conflicts"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict: %s (%d conflicting intervals)", e.Reason, len(e.Conflicts))
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrConcurrencyConflict is matched by every ConcurrencyConflictError.
var ErrConcurrencyConflict = errors.New("concurrency conflict: version check failed")

// ConcurrencyConflictError is returned by a conditional write whose version token is stale.
type ConcurrencyConflictError struct {
	Scope string
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Scope == "" {
		return ErrConcurrencyConflict.Error()
	}
	return fmt.Sprintf("%s (scope %s)", ErrConcurrencyConflict.Error(), e.Scope)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }

// TransitionError rejects a status change the booking state machine does not allow.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %s to %s", e.From, e.To)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
