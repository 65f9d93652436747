// Package errors provides custom error types for the sitecfg system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the sitecfg system
var (
	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSnapshotUnavailable indicates the platform snapshot could not be enumerated
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrStoreRead indicates the prior configuration could not be loaded
	ErrStoreRead = errors.New("configuration store read failed")

	// ErrStoreWrite indicates a configuration could not be persisted
	ErrStoreWrite = errors.New("configuration store write failed")

	// ErrAmbiguousVersion marks a version comparison with no defined order.
	// It is logged, never returned to callers.
	ErrAmbiguousVersion = errors.New("ambiguous version comparison")

	// ErrLocked indicates another reconciliation holds the configuration lock
	ErrLocked = errors.New("configuration locked")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// SnapshotError is returned when the platform snapshot cannot be discovered.
// It is fatal: reconciliation aborts before anything is persisted.
type SnapshotError struct {
	Site    string // Site location being discovered, if known
	Message string
	Err     error
}

// Error implements the error interface
func (e *SnapshotError) Error() string {
	if e.Site != "" {
		return fmt.Sprintf("snapshot unavailable for site %s: %s", e.Site, e.Message)
	}
	return fmt.Sprintf("snapshot unavailable: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SnapshotError) Is(target error) bool {
	return target == ErrSnapshotUnavailable
}

// NewSnapshotError creates a new SnapshotError
func NewSnapshotError(site string, err error) *SnapshotError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &SnapshotError{Site: site, Message: message, Err: err}
}

// StoreOp names the store operation that failed.
type StoreOp string

const (
	// StoreOpRead is a load of the current configuration.
	StoreOpRead StoreOp = "read"
	// StoreOpWrite is a save of a new configuration.
	StoreOpWrite StoreOp = "write"
)

// StoreError represents a configuration store failure
type StoreError struct {
	Op       StoreOp
	Location string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("configuration store %s failed at %s: %s", e.Op, e.Location, e.Message)
	}
	return fmt.Sprintf("configuration store %s failed: %s", e.Op, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StoreError) Is(target error) bool {
	switch e.Op {
	case StoreOpRead:
		return target == ErrStoreRead
	case StoreOpWrite:
		return target == ErrStoreWrite
	}
	return false
}

// NewStoreError creates a new StoreError
func NewStoreError(op StoreOp, location string, err error) *StoreError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &StoreError{Op: op, Location: location, Message: message, Err: err}
}

// Helper functions for error checking

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsSnapshotUnavailable checks if an error came from snapshot discovery
func IsSnapshotUnavailable(err error) bool {
	return errors.Is(err, ErrSnapshotUnavailable)
}

// IsStoreRead checks if an error is a configuration load failure
func IsStoreRead(err error) bool {
	return errors.Is(err, ErrStoreRead)
}

// IsStoreWrite checks if an error is a configuration save failure
func IsStoreWrite(err error) bool {
	return errors.Is(err, ErrStoreWrite)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "cbor", etc.
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close", "lock"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "load", "save", "resolve"
	Resource  string // "configuration", "site", "feature", "store"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapSnapshot wraps an error as a SnapshotError
func WrapSnapshot(site string, err error) error {
	if err == nil {
		return nil
	}
	return NewSnapshotError(site, err)
}

// WrapStore wraps an error as a StoreError
func WrapStore(op StoreOp, location string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(op, location, err)
}
