// Package errors provides the domain-level error kinds shared by every core
// component. Transport mapping (HTTP status, WS code) belongs to the
// external shell, not here.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies which domain error variant a DomainError carries.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindNotAuthorized         Kind = "NOT_AUTHORIZED"
	KindInvalidState          Kind = "INVALID_STATE"
	KindInvalidInput          Kind = "INVALID_INPUT"
	KindInsufficientResources Kind = "INSUFFICIENT_RESOURCES"
	KindDuplicateProcess      Kind = "DUPLICATE_PROCESS"
	KindInvalidRoute          Kind = "INVALID_ROUTE"
	KindHopOffline            Kind = "HOP_OFFLINE"
	KindInsufficientFunds     Kind = "INSUFFICIENT_FUNDS"
	KindFormulaError          Kind = "FORMULA_ERROR"
	KindStoreError            Kind = "STORE_ERROR"
)

// DomainError is a structured error carrying a Kind and details, without any
// transport-specific fields (contrast with a typical ServiceError that also
// carries an HTTP status — that coupling belongs in the external shell).
type DomainError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

func (e *DomainError) WithDetails(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func new(kind Kind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

func wrap(kind Kind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// NotFound reports a missing entity, e.g. NotFound("server", id).
func NotFound(resource, id string) *DomainError {
	return new(KindNotFound, "resource not found").
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// NotAuthorized reports a policy denial against a resource.
func NotAuthorized(actor, resource string) *DomainError {
	return new(KindNotAuthorized, "not authorized").
		WithDetails("actor", actor).
		WithDetails("resource", resource)
}

// InvalidState reports a state-machine violation, e.g. pausing a non-running process.
func InvalidState(expected, actual string) *DomainError {
	return new(KindInvalidState, "invalid state transition").
		WithDetails("expected", expected).
		WithDetails("actual", actual)
}

// InvalidInput reports a failed validation on a single field.
func InvalidInput(field, reason string) *DomainError {
	return new(KindInvalidInput, "invalid input").
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// InsufficientResources reports a resource axis that cannot be satisfied.
func InsufficientResources(axis string, required, available float64) *DomainError {
	return new(KindInsufficientResources, "insufficient resources").
		WithDetails("axis", axis).
		WithDetails("required", required).
		WithDetails("available", available)
}

// DuplicateProcess reports an attempted duplicate submission, naming the existing id.
func DuplicateProcess(existingID string) *DomainError {
	return new(KindDuplicateProcess, "duplicate process").
		WithDetails("existing_id", existingID)
}

// InvalidRoute reports that a tunnel could not be resolved end to end.
func InvalidRoute(reason string) *DomainError {
	return new(KindInvalidRoute, reason)
}

// HopOffline reports that a named bounce hop is not online.
func HopOffline(ip string) *DomainError {
	return new(KindHopOffline, "hop offline").WithDetails("ip", ip)
}

// InsufficientFunds reports a failed money transfer, naming the shortfall.
func InsufficientFunds(deficit int64) *DomainError {
	return new(KindInsufficientFunds, "insufficient funds").WithDetails("deficit", deficit)
}

// FormulaErrorKind distinguishes the two ways a pure formula can fail.
type FormulaErrorKind string

const (
	FormulaInvalidParameter FormulaErrorKind = "InvalidParameter"
	FormulaOverflow         FormulaErrorKind = "Overflow"
)

// FormulaError reports an invalid input or overflow inside a C1 formula.
func FormulaError(kind FormulaErrorKind, param string) *DomainError {
	return new(KindFormulaError, string(kind)).WithDetails("param", param)
}

// StoreError wraps an underlying backing-store failure (disk, network, etc.).
func StoreError(operation string, err error) *DomainError {
	return wrap(KindStoreError, "store operation failed", err).WithDetails("operation", operation)
}

// Is reports whether err is a DomainError of the given kind.
func Is(err error, kind Kind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// As extracts a *DomainError from an error chain.
func As(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}
