package history

import "codeberg.org/mutker/sensorchart/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrReadFailed    = errors.ErrorCode("history_read_failed")
	ErrCanceled      = errors.ErrorCode("history_canceled")
)
