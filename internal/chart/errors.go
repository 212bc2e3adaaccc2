package chart

import "codeberg.org/mutker/sensorchart/internal/errors"

const (
	ErrLoadChart       = errors.ErrLoadChart
	ErrClosed          = errors.ErrClosed
	ErrInvalidSettings = errors.ErrorCode("chart_invalid_settings")
	ErrPollFailed      = errors.ErrorCode("chart_poll_failed")
)
