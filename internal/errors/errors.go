// Package errors provides centralized error definitions and error handling utilities
// for postoffice. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a specific subsystem:
//   - LoadError: a module could not be resolved, decoded, or executed
//
// Semantic errors represent common error conditions:
//   - KeyNotFoundError: a mailbox key is absent
//   - NotFoundError: a named resource (symbol, capability) is absent
//   - AlreadyExistsError: a named resource is already registered
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewLoadError("module file does not exist", errors.ErrModuleNotFound).
//	    WithPath("/etc/postoffice/mail.yaml")
//
//	if errors.Is(err, errors.ErrModuleNotFound) { ... }
//	if errors.Is(err, &errors.LoadError{}) { ... }
//
//	var keyErr *errors.KeyNotFoundError
//	if errors.As(err, &keyErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Module loading sentinel errors
var (
	// ErrModuleNotFound indicates that a module path does not resolve to a file.
	ErrModuleNotFound = New("module not found")
	// ErrModuleNotAllowed indicates that a module path is outside the allow list.
	ErrModuleNotAllowed = New("module path not allowed")
	// ErrModuleInvalid indicates that a module could not be decoded.
	ErrModuleInvalid = New("module is invalid")
	// ErrModuleExec indicates that executing a module's definitions failed.
	ErrModuleExec = New("module execution failed")
	// ErrUnknownCapability indicates a reference to an unregistered capability.
	ErrUnknownCapability = New("unknown capability")
)

// General sentinel errors
var (
	// ErrKeyNotFound indicates that a key is absent from a mailbox.
	ErrKeyNotFound = New("key not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PostofficeError is the base interface for all postoffice errors.
type PostofficeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if the cause matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LoadError reports a module that could not be resolved, decoded or executed.
//
// Example:
//
//	err := errors.NewLoadError("undefined reference", errors.ErrModuleExec).
//	    WithPath("mail.yaml").WithSymbol("alias")
//	fmt.Println(err) // "load error [path=mail.yaml, symbol=alias]: undefined reference: module execution failed"
type LoadError struct {
	baseError
	Path   string
	Symbol string
}

// NewLoadError creates a new LoadError.
func NewLoadError(message string, cause error) *LoadError {
	return &LoadError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithPath adds the module path to the error context.
func (e *LoadError) WithPath(path string) *LoadError {
	e.Path = path
	return e
}

// WithSymbol adds the symbol being executed to the error context.
func (e *LoadError) WithSymbol(name string) *LoadError {
	e.Symbol = name
	return e
}

// WithSeverity sets the error severity.
func (e *LoadError) WithSeverity(s Severity) *LoadError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *LoadError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Symbol != "" {
		parts = append(parts, fmt.Sprintf("symbol=%s", e.Symbol))
	}

	prefix := "load error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("load error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LoadError) Is(target error) bool {
	if _, ok := target.(*LoadError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// KeyNotFoundError reports a mailbox access for a key that is not set.
//
// Example:
//
//	err := errors.NewKeyNotFoundError("a")
//	fmt.Println(err) // "key 'a' not found"
type KeyNotFoundError struct {
	baseError
	Key any
}

// NewKeyNotFoundError creates a new KeyNotFoundError.
func NewKeyNotFoundError(key any) *KeyNotFoundError {
	return &KeyNotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("key '%v' not found", key),
			severity:   SeverityWarning,
			userFacing: true,
		},
		Key: key,
	}
}

// Error returns the formatted error message.
func (e *KeyNotFoundError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *KeyNotFoundError) Is(target error) bool {
	if _, ok := target.(*KeyNotFoundError); ok {
		return true
	}
	return target == ErrKeyNotFound
}

// NotFoundError represents a named resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("symbol", "send_mail")
//	fmt.Println(err) // "symbol 'send_mail' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a named resource that already exists.
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("symbol is not callable").WithField("greeting")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var poErr PostofficeError
	if As(err, &poErr) {
		return poErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PostofficeError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var poErr PostofficeError
	if As(err, &poErr) {
		return poErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
