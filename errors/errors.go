// Package errors provides error types and utilities for the kvstore packages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeLookup represents failed key lookups
	ErrorTypeLookup ErrorType = "lookup"
	// ErrorTypeConfig represents invalid configuration
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeCodec represents serialization errors
	ErrorTypeCodec ErrorType = "codec"
	// ErrorTypePersistence represents snapshot errors
	ErrorTypePersistence ErrorType = "persistence"
)

// Common error types
var (
	// Lookup errors
	ErrKeyNotFound = errors.New("key not found")

	// Configuration errors
	ErrInvalidSize   = errors.New("max size cannot be negative")
	ErrInvalidPolicy = errors.New("unknown eviction policy")

	// Data errors
	ErrSerialization   = errors.New("serialization error")
	ErrDeserialization = errors.New("deserialization error")

	// Persistence errors
	ErrSnapshot = errors.New("snapshot error")
)

// StoreError represents a failed store operation
type StoreError struct {
	Op      string
	Key     any
	Err     error
	ErrType ErrorType
}

// determineErrorType determines the error type based on the error
func determineErrorType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return ErrorTypeLookup
	case errors.Is(err, ErrInvalidSize) || errors.Is(err, ErrInvalidPolicy):
		return ErrorTypeConfig
	case errors.Is(err, ErrSerialization) || errors.Is(err, ErrDeserialization):
		return ErrorTypeCodec
	case errors.Is(err, ErrSnapshot):
		return ErrorTypePersistence
	default:
		return ErrorTypePersistence
	}
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s: %s: key=%v: %v", e.ErrType, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.ErrType, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error is of the same type as the receiver
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.ErrType == t.ErrType && e.Op == t.Op && errors.Is(e.Err, t.Err)
}

// NewStoreError creates a new StoreError
func NewStoreError(errType ErrorType, op string, key any, err error) error {
	return &StoreError{
		ErrType: errType,
		Op:      op,
		Key:     key,
		Err:     err,
	}
}

// WrapError wraps an error with the operation and key that produced it
func WrapError(op string, key any, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(determineErrorType(err), op, key, err)
}

// Wrapf wraps a cause under one of the sentinel errors, keeping both
// reachable through errors.Is.
func Wrapf(op string, key any, sentinel error, format string, args ...any) error {
	cause := fmt.Errorf(format, args...)
	return NewStoreError(determineErrorType(sentinel), op, key, fmt.Errorf("%w: %w", sentinel, cause))
}

// GetStoreError returns the StoreError if the error is a StoreError
func GetStoreError(err error) *StoreError {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return nil
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if storeErr := GetStoreError(err); storeErr != nil {
		return storeErr.ErrType == errType
	}
	return false
}

// IsKeyNotFound checks if the error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsSerialization checks if the error came from a value codec
func IsSerialization(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrDeserialization)
}
