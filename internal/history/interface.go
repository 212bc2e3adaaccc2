package history

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Store is the query side of measurement storage. All methods return
// records ordered by timestamp.
type Store interface {
	// ReadRange returns records of sensorID newer than since. interval is
	// the minimum spacing between returned records; 0 keeps all of them.
	ReadRange(ctx context.Context, sensorID string, since time.Time, interval time.Duration) ([]measurement.Record, error)

	// ReadDownsampled returns records averaged into buckets at least
	// bucketMinutes wide, at most maxPoints of them.
	ReadDownsampled(ctx context.Context, sensorID string, since time.Time, bucketMinutes, maxPoints int) ([]measurement.Record, error)

	// ReadSince returns records strictly newer than after.
	ReadSince(ctx context.Context, sensorID string, after time.Time) ([]measurement.Record, error)
}
