package delivery

import "codeberg.org/mutker/sensorchart/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidPayload  = errors.ErrorCode("delivery_invalid_payload")
	ErrConnectFailed   = errors.ErrorCode("delivery_connect_failed")
	ErrSubscribeFailed = errors.ErrorCode("delivery_subscribe_failed")
	ErrClosed          = errors.ErrClosed
)
