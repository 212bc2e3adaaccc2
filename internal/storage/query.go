package storage

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// ReadRange returns records of sensorID at or after since, ordered by
// timestamp. With a positive interval, records closer than interval to the
// previously returned one are skipped.
func (s *Store) ReadRange(ctx context.Context, sensorID string, since time.Time, interval time.Duration) ([]measurement.Record, error) {
	s.flushPending()

	records, err := s.query(ctx, selectRangeSQL, sensorID, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	if interval <= 0 || len(records) == 0 {
		return records, nil
	}

	out := records[:1]
	last := records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.Sub(last) >= interval {
			out = append(out, r)
			last = r.Timestamp
		}
	}
	return out, nil
}

// ReadSince returns records of sensorID strictly newer than after.
func (s *Store) ReadSince(ctx context.Context, sensorID string, after time.Time) ([]measurement.Record, error) {
	s.flushPending()
	return s.query(ctx, selectSinceSQL, sensorID, after.UnixMilli())
}

// ReadDownsampled averages the records of sensorID at or after since into
// buckets. Buckets are bucketMinutes wide, widened when needed so that no
// more than maxPoints buckets cover the range.
func (s *Store) ReadDownsampled(ctx context.Context, sensorID string, since time.Time, bucketMinutes, maxPoints int) ([]measurement.Record, error) {
	errFactory := errors.New()

	if bucketMinutes <= 0 || maxPoints < 2 {
		return nil, errFactory.WithData(errors.ErrInvalidArgument, struct {
			BucketMinutes int
			MaxPoints     int
		}{bucketMinutes, maxPoints})
	}

	s.flushPending()

	var first, last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, selectTimeSpanSQL, sensorID, since.UnixMilli()).Scan(&first, &last); err != nil {
		return nil, s.queryError(ctx, err)
	}
	if !first.Valid {
		return nil, nil
	}

	width := int64(bucketMinutes) * int64(time.Minute/time.Millisecond)
	span := last.Int64 - first.Int64
	if minWidth := span/int64(maxPoints-1) + 1; minWidth > width {
		width = minWidth
	}

	return s.query(ctx, selectBucketedSQL, sensorID, since.UnixMilli(), first.Int64, width, maxPoints)
}

// Count returns the number of stored records of sensorID.
func (s *Store) Count(ctx context.Context, sensorID string) (int, error) {
	s.flushPending()

	var n int
	if err := s.db.QueryRowContext(ctx, countRecordsSQL, sensorID).Scan(&n); err != nil {
		return 0, s.queryError(ctx, err)
	}
	return n, nil
}

// Prune deletes records older than before and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteOlderThanSQL, before.UnixMilli())
	if err != nil {
		return 0, s.queryError(ctx, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.New().Wrap(ErrStorageAccess, err)
	}
	return n, nil
}

func (s *Store) flushPending() {
	if err := s.Flush(); err != nil {
		s.logger.Warn().Err(err).Msg("Reading without buffered records")
	}
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]measurement.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(ctx, err)
	}
	defer rows.Close()

	var (
		records []measurement.Record
		millis  int64
		values  = make([]sql.NullFloat64, len(columns))
		dest    = make([]any, len(columns)+2)
	)
	for i := range values {
		dest[i+2] = &values[i]
	}

	for rows.Next() {
		var r measurement.Record
		dest[0], dest[1] = &r.SensorID, &millis
		if err := rows.Scan(dest...); err != nil {
			return nil, s.queryError(ctx, err)
		}
		r.Timestamp = time.UnixMilli(millis)
		for i, c := range columns {
			if values[i].Valid {
				r.Set(c.quantity, values[i].Float64)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(ctx, err)
	}

	return records, nil
}

func (s *Store) queryError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.New().Wrap(ErrOperationTimeout, ctx.Err())
	}
	return errors.New().Wrap(ErrQueryFailed, err)
}
