package history

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Loader reads history for a chart, escalating large reads to downsampled
// queries.
type Loader struct {
	store Store
	cfg   Config
}

func NewLoader(store Store, cfg Config) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New().WithMessage(ErrInvalidConfig, "history store is nil")
	}
	return &Loader{store: store, cfg: cfg}, nil
}

func (l *Loader) Config() Config { return l.cfg }

// Load returns records of sensorID newer than since. With fullHistory the
// raw range is returned unconditionally. Otherwise the raw range is
// returned when it is smaller than the threshold, and a downsampled read
// capped at MaxPoints replaces it when it is not.
func (l *Loader) Load(ctx context.Context, sensorID string, since time.Time, fullHistory bool) ([]measurement.Record, error) {
	raw, err := l.store.ReadRange(ctx, sensorID, since, 0)
	if err != nil {
		return nil, l.wrap(ctx, err)
	}
	if fullHistory || len(raw) < l.cfg.Threshold {
		return raw, nil
	}

	bucketed, err := l.store.ReadDownsampled(ctx, sensorID, since, l.cfg.BucketMinutes, l.cfg.MaxPoints)
	if err != nil {
		return nil, l.wrap(ctx, err)
	}
	return thin(bucketed, l.cfg.MaxPoints), nil
}

// Since returns records strictly newer than after, for polling.
func (l *Loader) Since(ctx context.Context, sensorID string, after time.Time) ([]measurement.Record, error) {
	records, err := l.store.ReadSince(ctx, sensorID, after)
	if err != nil {
		return nil, l.wrap(ctx, err)
	}
	return records, nil
}

func (l *Loader) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.New().Wrap(ErrCanceled, ctx.Err())
	}
	return errors.New().Wrap(ErrReadFailed, err)
}

// thin keeps at most limit records by even striding, always keeping the
// newest record.
func thin(records []measurement.Record, limit int) []measurement.Record {
	n := len(records)
	if n <= limit {
		return records
	}
	out := make([]measurement.Record, 0, limit)
	step := float64(n-1) / float64(limit-1)
	for i := 0; i < limit; i++ {
		out = append(out, records[int(float64(i)*step+0.5)])
	}
	return out
}

// Since computes the start of the history window from the configured
// history length. With showAll, or a non-positive length, the window is
// unbounded and the zero time is returned.
func Since(now time.Time, hours int, showAll bool) time.Time {
	if showAll || hours <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}
