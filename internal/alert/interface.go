package alert

import (
	"context"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Service exposes the alert configuration of sensors. Thresholds are in the
// canonical unit of the kind (°C, %RH, hPa, native units otherwise).
type Service interface {
	IsEnabled(sensorID string, kind measurement.Kind) bool
	Lower(sensorID string, kind measurement.Kind) (float64, bool)
	Upper(sensorID string, kind measurement.Kind) (float64, bool)
}

// Store reads alert configurations from a backend whose reads can block
// and fail. A Service that also implements Store is read through it by
// Resolver.Fetch.
type Store interface {
	Alert(ctx context.Context, sensorID string, kind measurement.Kind) (Config, error)
}

// Config is the stored alert configuration of one sensor and kind, in
// canonical units. A nil threshold is unset.
type Config struct {
	Enabled bool
	Lower   *float64
	Upper   *float64
}
