package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapFormatsContext(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, "Resolver", "Resolve", "fetch bytes")

	require.Error(t, err)
	assert.Equal(t, "Resolver.Resolve: fetch bytes failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		invalid   bool
		fatal     bool
	}{
		{
			name:      "wrapped transient",
			err:       WrapTransient(ErrStorageUnavailable, "CacheStorage", "Put", "write blob"),
			transient: true,
		},
		{
			name:    "wrapped invalid",
			err:     WrapInvalid(ErrAttributeMissing, "Resolver", "Resolve", "attribute lookup"),
			invalid: true,
		},
		{
			name:  "wrapped fatal",
			err:   WrapFatal(stderrors.New("corrupted state"), "Runner", "Start", "restore"),
			fatal: true,
		},
		{
			name:      "bare sentinel transient",
			err:       ErrDeliveryError,
			transient: true,
		},
		{
			name:    "bare sentinel invalid",
			err:     ErrSchemaViolation,
			invalid: true,
		},
		{
			name:      "context deadline",
			err:       fmt.Errorf("publish: %w", context.DeadlineExceeded),
			transient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.invalid, IsInvalid(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestClassifyDefaultsToTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
	assert.Equal(t, ErrorInvalid, Classify(ErrInvalidEvent))
	assert.Equal(t, ErrorFatal, Classify(WrapFatal(stderrors.New("x"), "c", "m", "a")))
}

func TestClassifiedErrorUnwraps(t *testing.T) {
	err := WrapInvalid(ErrIncompatibleTypes, "Node", "Pipe", "compatibility check")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Node", ce.Component)
	assert.True(t, stderrors.Is(err, ErrIncompatibleTypes))
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.True(t, cfg.ShouldRetry(ErrDeliveryError, 0))
	assert.False(t, cfg.ShouldRetry(ErrDeliveryError, cfg.MaxRetries))
	assert.False(t, cfg.ShouldRetry(ErrSchemaViolation, 0))
	assert.False(t, cfg.ShouldRetry(nil, 0))
}

func TestToRetryConfigCountsTotalAttempts(t *testing.T) {
	cfg := DefaultRetryConfig()
	rc := cfg.ToRetryConfig()

	assert.Equal(t, cfg.MaxRetries+1, rc.MaxAttempts)
	assert.True(t, rc.AddJitter)
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
}
