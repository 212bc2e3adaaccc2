package history_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/history"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	raw         []measurement.Record
	downsampled []measurement.Record
	err         error

	rangeCalls       int
	downsampledCalls int
	bucketMinutes    int
	maxPoints        int
}

func (f *fakeStore) ReadRange(_ context.Context, _ string, _ time.Time, _ time.Duration) ([]measurement.Record, error) {
	f.rangeCalls++
	return f.raw, f.err
}

func (f *fakeStore) ReadDownsampled(_ context.Context, _ string, _ time.Time, bucketMinutes, maxPoints int) ([]measurement.Record, error) {
	f.downsampledCalls++
	f.bucketMinutes = bucketMinutes
	f.maxPoints = maxPoints
	return f.downsampled, f.err
}

func (f *fakeStore) ReadSince(_ context.Context, _ string, after time.Time) ([]measurement.Record, error) {
	var out []measurement.Record
	for _, r := range f.raw {
		if r.Timestamp.After(after) {
			out = append(out, r)
		}
	}
	return out, f.err
}

func makeRecords(n int) []measurement.Record {
	out := make([]measurement.Record, n)
	for i := range out {
		out[i] = measurement.Record{
			SensorID:    "sensor",
			Timestamp:   time.Unix(int64(i*60), 0),
			Temperature: measurement.Float(float64(i)),
		}
	}
	return out
}

func newLoader(t *testing.T, store history.Store) *history.Loader {
	t.Helper()
	l, err := history.NewLoader(store, history.DefaultConfig())
	require.NoError(t, err)
	return l
}

func TestLoadBelowThresholdReturnsRaw(t *testing.T) {
	store := &fakeStore{raw: makeRecords(999), downsampled: makeRecords(10)}
	got, err := newLoader(t, store).Load(context.Background(), "sensor", time.Time{}, false)

	require.NoError(t, err)
	assert.Equal(t, store.raw, got)
	assert.Zero(t, store.downsampledCalls)
}

func TestLoadAtThresholdEscalates(t *testing.T) {
	store := &fakeStore{raw: makeRecords(1000), downsampled: makeRecords(500)}
	got, err := newLoader(t, store).Load(context.Background(), "sensor", time.Time{}, false)

	require.NoError(t, err)
	assert.Len(t, got, 500)
	assert.Equal(t, 1, store.downsampledCalls)
	assert.Equal(t, 15, store.bucketMinutes)
	assert.Equal(t, 3000, store.maxPoints)
}

func TestLoadCapsDownsampledResult(t *testing.T) {
	store := &fakeStore{raw: makeRecords(5000), downsampled: makeRecords(4500)}
	got, err := newLoader(t, store).Load(context.Background(), "sensor", time.Time{}, false)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 3000)
	assert.Equal(t, store.downsampled[0], got[0])
	assert.Equal(t, store.downsampled[len(store.downsampled)-1], got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}
}

func TestLoadFullHistorySkipsDownsampling(t *testing.T) {
	store := &fakeStore{raw: makeRecords(5000)}
	got, err := newLoader(t, store).Load(context.Background(), "sensor", time.Time{}, true)

	require.NoError(t, err)
	assert.Len(t, got, 5000)
	assert.Zero(t, store.downsampledCalls)
}

func TestLoadWrapsStoreErrors(t *testing.T) {
	store := &fakeStore{err: stderrors.New("disk I/O error")}
	_, err := newLoader(t, store).Load(context.Background(), "sensor", time.Time{}, false)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrReadFailed))
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{err: context.Canceled}
	_, err := newLoader(t, store).Load(ctx, "sensor", time.Time{}, false)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrCanceled))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderSince(t *testing.T) {
	store := &fakeStore{raw: makeRecords(10)}
	got, err := newLoader(t, store).Since(context.Background(), "sensor", time.Unix(6*60, 0))

	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*history.Config)
		wantErr bool
	}{
		{"defaults", func(*history.Config) {}, false},
		{"zero threshold", func(c *history.Config) { c.Threshold = 0 }, true},
		{"zero bucket", func(c *history.Config) { c.BucketMinutes = 0 }, true},
		{"one point", func(c *history.Config) { c.MaxPoints = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := history.DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, history.ErrInvalidConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(-24*time.Hour), history.Since(now, 24, false))
	assert.True(t, history.Since(now, 24, true).IsZero())
	assert.True(t, history.Since(now, 0, false).IsZero())
}
