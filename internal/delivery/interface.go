package delivery

import (
	"context"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Handler receives decoded records. It may be called from any goroutine.
type Handler func(measurement.Record)

// Source pushes newly observed records.
type Source interface {
	// Subscribe starts delivery to handler and returns once the source is
	// listening. Delivery stops when ctx is done or Close is called.
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
