package storage

import (
	"context"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Writer persists live records.
type Writer interface {
	Write(ctx context.Context, r measurement.Record) error
	Flush() error
	Close() error
}
