package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Invalid log level", f.New(errors.ErrInvalidLogLevel).Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "Operation failed: boom", f.Wrap(errors.ErrOperationFailed, fmt.Errorf("boom")).Error())
	assert.Equal(t, "Invalid argument provided: 42", f.WithData(errors.ErrInvalidArgument, 42).Error())
	assert.Equal(t, "unknown_code", errors.GetErrorMessage("unknown_code"))
}

func TestErrorCodeMatching(t *testing.T) {
	f := errors.New()
	cause := fmt.Errorf("disk full")
	err := fmt.Errorf("outer: %w", f.Wrap(errors.ErrLoadChart, cause))

	assert.True(t, errors.Is(err, f.New(errors.ErrLoadChart)))
	assert.False(t, errors.Is(err, f.New(errors.ErrTimeout)))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.HasCode(err, errors.ErrLoadChart))
	assert.Equal(t, errors.ErrLoadChart, errors.CodeOf(err))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(cause))
}

func TestWithDataKeepsCode(t *testing.T) {
	f := errors.New()
	base := f.Wrap(errors.ErrReadConfig, fmt.Errorf("bad toml"))
	withData := base.WithData("line 3")

	assert.Equal(t, errors.ErrReadConfig, withData.Code())
	assert.Equal(t, "line 3", withData.GetData())
	assert.Equal(t, base.Unwrap(), withData.Unwrap())
}

func TestEveryCodeHasMessage(t *testing.T) {
	codes := []errors.ErrorCode{
		errors.ErrInternal, errors.ErrInvalidArgument,
		errors.ErrInvalidConfig, errors.ErrBindFlags, errors.ErrReadConfig, errors.ErrInvalidInterval, errors.ErrInvalidUnit,
		errors.ErrInvalidLogLevel,
		errors.ErrInitFailed, errors.ErrShutdownFailed, errors.ErrAlreadyRunning,
		errors.ErrInitApp, errors.ErrLoadChart,
		errors.ErrOperationFailed, errors.ErrTimeout, errors.ErrInvalidOperation, errors.ErrClosed,
	}

	for _, code := range codes {
		assert.NotEqual(t, string(code), errors.GetErrorMessage(code), code)
	}
}
