package modelgraph

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("modelgraph: record not found")

	// ErrAlreadyRegistered is returned when a type is registered twice
	// under the same registry key.
	ErrAlreadyRegistered = errors.New("modelgraph: type already registered")

	// ErrMissingArgument is returned when a required argument is absent
	// or has an unusable value.
	ErrMissingArgument = errors.New("modelgraph: missing required argument")

	// ErrNegativeSample is returned by @sample for a negative k.
	ErrNegativeSample = errors.New("modelgraph: sample size must not be negative")

	// ErrUnvalidatedSave is returned when Save runs before a successful
	// IsValid pass.
	ErrUnvalidatedSave = errors.New("modelgraph: save called without successful validation")

	// ErrNotManyToMany is returned when a related write targets a field
	// that is not a many-to-many relation.
	ErrNotManyToMany = errors.New("modelgraph: field is not a many-to-many relation")
)

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("modelgraph: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("modelgraph: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the record label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given record type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ValidationError represents a validation error for field values.
type ValidationError struct {
	Name string // Field or record name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("modelgraph: validator failed for field %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RegistrationError represents a rejected registry registration.
type RegistrationError struct {
	Key string // Registry key the registration collided on or failed for
	Err error  // Underlying cause
}

// Error returns the error string.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("modelgraph: cannot register %q: %s", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// NewRegistrationError returns a new RegistrationError for a registry key.
func NewRegistrationError(key string, err error) *RegistrationError {
	return &RegistrationError{Key: key, Err: err}
}

// IsRegistrationError returns true if the error is a RegistrationError.
func IsRegistrationError(err error) bool {
	if err == nil {
		return false
	}
	var e *RegistrationError
	return errors.As(err, &e)
}

// ConfigError represents an invalid declarative option detected at
// schema-construction time. Configuration errors are fatal and abort the
// build; they are never surfaced inside a response envelope.
type ConfigError struct {
	Component string // Component that rejected the configuration
	Err       error  // Underlying cause
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("modelgraph: %s: invalid configuration: %s", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError returns a new ConfigError for the given component.
func NewConfigError(component string, err error) *ConfigError {
	return &ConfigError{Component: component, Err: err}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}
