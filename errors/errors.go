package errors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c360/docstreams/pkg/retry"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration.
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing.
	ErrorFatal
)

// String returns the string representation of ErrorClass.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
var (
	// Event validation errors.
	ErrInvalidEvent    = errors.New("invalid cloud event")
	ErrSchemaViolation = errors.New("event schema violation")
	ErrUnknownKind     = errors.New("unknown metadata kind")

	// Pointer and reference resolution errors.
	ErrUnknownScheme    = errors.New("no data source for URI scheme")
	ErrAttributeMissing = errors.New("attribute path not present in event")
	ErrResolutionFailed = errors.New("reference resolution failed")

	// Storage errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrBlobNotFound       = errors.New("blob not found")

	// Conditional DSL errors.
	ErrInvalidConditional = errors.New("invalid conditional expression")
	ErrPolicyUnsupported  = errors.New("conditional cannot be expressed as a filter policy")

	// Graph construction errors.
	ErrIncompatibleTypes = errors.New("producer output types do not intersect consumer input types")
	ErrMissingMiddleware = errors.New("middleware implementation required")

	// Transport and delivery errors.
	ErrNoConnection  = errors.New("no connection available")
	ErrDeliveryError = errors.New("event delivery failed")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Lifecycle errors.
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrNoConnection) ||
		errors.Is(err, ErrDeliveryError) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsInvalid checks if an error is due to invalid input.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrSchemaViolation) ||
		errors.Is(err, ErrAttributeMissing) ||
		errors.Is(err, ErrInvalidConditional) ||
		errors.Is(err, ErrIncompatibleTypes) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}

// IsFatal checks if an error is fatal and should stop processing.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return false
}

// Classify returns the error class for an error. Unknown errors default
// to transient so the transport gets a chance to redeliver.
func Classify(err error) ErrorClass {
	switch {
	case IsInvalid(err):
		return ErrorInvalid
	case IsFatal(err):
		return ErrorFatal
	default:
		return ErrorTransient
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func newClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		err = errors.New(action)
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, method, action string) error {
	return newClassified(ErrorTransient, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	return newClassified(ErrorInvalid, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	return newClassified(ErrorFatal, err, component, method, action)
}

// RetryConfig defines configuration for retry operations driven by
// error classification.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns a sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ShouldRetry determines if an error should be retried at the given attempt.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries {
		return false
	}
	return IsTransient(err)
}

// ToRetryConfig converts to the retry framework's Config type. MaxRetries
// counts additional attempts, retry.Config counts total attempts.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
	}
}
