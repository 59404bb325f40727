package faults

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCategory string

const (
	ValidationError ErrorCategory = "ValidationError"
	NotFoundError   ErrorCategory = "NotFoundError"
	ConflictError   ErrorCategory = "ConflictError"
	AuthError       ErrorCategory = "AuthError"
	TransportError  ErrorCategory = "TransportError"
	InternalError   ErrorCategory = "InternalError"
	CanceledError   ErrorCategory = "CanceledError"
)

type TypedError struct {
	Category ErrorCategory
	Message  string
	Cause    error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// CategoryOf returns the category of the first TypedError in err's chain, or
// fallback when there is none.
func CategoryOf(err error, fallback ErrorCategory) ErrorCategory {
	var typedErr *TypedError
	if errors.As(err, &typedErr) && typedErr.Category != "" {
		return typedErr.Category
	}
	return fallback
}

// ServiceFault records that one service's Execute call failed as a whole.
type ServiceFault struct {
	Service string
	Err     error
}

func (f *ServiceFault) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Err == nil {
		return fmt.Sprintf("service %q failed", f.Service)
	}
	return fmt.Sprintf("service %q failed: %s", f.Service, f.Err.Error())
}

func (f *ServiceFault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// AggregateFault carries every service fault of one invocation. It is only
// raised after all services have settled.
type AggregateFault struct {
	Faults []error
}

func NewAggregateFault(faults ...error) *AggregateFault {
	kept := make([]error, 0, len(faults))
	for _, fault := range faults {
		if fault != nil {
			kept = append(kept, fault)
		}
	}
	return &AggregateFault{Faults: kept}
}

func (e *AggregateFault) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Faults) == 1 {
		return e.Faults[0].Error()
	}

	lines := make([]string, 0, len(e.Faults)+1)
	lines = append(lines, fmt.Sprintf("%d services failed:", len(e.Faults)))
	for _, fault := range e.Faults {
		lines = append(lines, "  - "+fault.Error())
	}
	return strings.Join(lines, "\n")
}

func (e *AggregateFault) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Faults
}

// FailuresError signals that every service completed but some entries ended
// up Failed.
type FailuresError struct {
	Operation string
	Count     int
}

func (e *FailuresError) Error() string {
	if e == nil {
		return "<nil>"
	}
	operation := strings.TrimSpace(e.Operation)
	if operation == "" {
		operation = "operation"
	}
	if e.Count == 1 {
		return fmt.Sprintf("%s completed with 1 failed entry", operation)
	}
	return fmt.Sprintf("%s completed with %d failed entries", operation, e.Count)
}

func IsFailures(err error) bool {
	var failures *FailuresError
	return errors.As(err, &failures)
}

func IsAggregateFault(err error) bool {
	var aggregate *AggregateFault
	return errors.As(err, &aggregate)
}
