package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrAccessDenied        = NewDomainError("ACCESS_DENIED", "Permission or tenancy check failed")
)

// ConfigurationError is a fatal boot-time error. A process holding a
// ConfigurationError must refuse to serve traffic rather than degrade
// with a partially valid registry or configuration.
type ConfigurationError struct {
	Component string
	Reason    string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Reason: reason}
}

// ContextPropagationError reports a failure to push or reset the store's
// connection-scoped security context. An establish failure is fatal for the
// request; a teardown failure is logged but must not fail a completed response.
type ContextPropagationError struct {
	Phase string // "establish" or "teardown"
	Cause error
}

// Error implements the error interface
func (e *ContextPropagationError) Error() string {
	return fmt.Sprintf("security context %s failed: %v", e.Phase, e.Cause)
}

// Unwrap returns the underlying cause
func (e *ContextPropagationError) Unwrap() error {
	return e.Cause
}

// NewContextPropagationError creates a new context propagation error
func NewContextPropagationError(phase string, cause error) *ContextPropagationError {
	return &ContextPropagationError{Phase: phase, Cause: cause}
}
