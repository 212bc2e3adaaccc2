package chart

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorchart/internal/alert"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Loader provides history for a view. *history.Loader implements it.
type Loader interface {
	Load(ctx context.Context, sensorID string, since time.Time, fullHistory bool) ([]measurement.Record, error)
	Since(ctx context.Context, sensorID string, after time.Time) ([]measurement.Record, error)
}

// BoundsResolver provides alert bounds. *alert.Resolver implements it.
// Fetch may block; the view calls it from the load goroutine.
type BoundsResolver interface {
	Fetch(ctx context.Context, sensorID string, variant measurement.Variant) (alert.Bounds, bool, error)
}
