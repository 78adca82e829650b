package errors

import (
	"errors"
	"fmt"
)

var (
	// Transaction errors
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrActiveTransactionExists = errors.New("an active transaction already exists for this item")
	ErrSelfPurchase            = errors.New("buyer cannot purchase their own item")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrTransactionTerminal     = errors.New("transaction is already completed or cancelled")
	ErrStatusConflict          = errors.New("transaction status changed concurrently")

	// Item errors
	ErrItemNotFound    = errors.New("item not found")
	ErrItemUnavailable = errors.New("item is not available")

	// Payment errors
	ErrPaymentNotFound = errors.New("payment not found")

	// Collaborator errors
	ErrItemServiceUnavailable = errors.New("item service unavailable")
	ErrProviderNotFound       = errors.New("payment provider not found")
	ErrProviderUnavailable    = errors.New("payment provider unavailable")
	ErrProviderRejected       = errors.New("payment rejected by provider")
	ErrProviderTimeout        = errors.New("provider request timeout")

	// Messaging errors
	ErrMalformedMessage = errors.New("malformed message")
	ErrPublishFailed    = errors.New("failed to publish message")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Access errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors
	ErrInvalidData  = errors.New("invalid data")
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InvalidData reports a rejected purchase intent. The cause stays matchable with errors.Is.
func InvalidData(message string, cause error) *DomainError {
	return &DomainError{
		Code:    "invalid_data",
		Message: message,
		Err:     errors.Join(ErrInvalidData, cause),
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
