package storage

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/sensorchart/internal/alert"
	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// SetAlert stores the alert configuration of sensorID for kind.
func (s *Store) SetAlert(ctx context.Context, sensorID string, kind measurement.Kind, a alert.Config) error {
	if _, err := s.db.ExecContext(ctx, upsertAlertSQL,
		sensorID, string(kind), boolToInt(a.Enabled), nullFloat(a.Lower), nullFloat(a.Upper),
	); err != nil {
		return s.queryError(ctx, err)
	}
	return nil
}

// Alert returns the alert configuration of sensorID for kind. A missing
// configuration is a disabled alert.
func (s *Store) Alert(ctx context.Context, sensorID string, kind measurement.Kind) (alert.Config, error) {
	var (
		enabled      int
		lower, upper sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, selectAlertSQL, sensorID, string(kind)).Scan(&enabled, &lower, &upper)
	if errors.Is(err, sql.ErrNoRows) {
		return alert.Config{}, nil
	}
	if err != nil {
		return alert.Config{}, s.queryError(ctx, err)
	}

	a := alert.Config{Enabled: enabled == 1}
	if lower.Valid {
		a.Lower = measurement.Float(lower.Float64)
	}
	if upper.Valid {
		a.Upper = measurement.Float(upper.Float64)
	}
	return a, nil
}

// IsEnabled, Lower and Upper serve synchronous alert bounds resolution.
// Storage errors are logged and treated as no alert; alert.Resolver.Fetch
// reads through Alert instead and returns them.
func (s *Store) IsEnabled(sensorID string, kind measurement.Kind) bool {
	return s.alert(sensorID, kind).Enabled
}

func (s *Store) Lower(sensorID string, kind measurement.Kind) (float64, bool) {
	return deref(s.alert(sensorID, kind).Lower)
}

func (s *Store) Upper(sensorID string, kind measurement.Kind) (float64, bool) {
	return deref(s.alert(sensorID, kind).Upper)
}

func (s *Store) alert(sensorID string, kind measurement.Kind) alert.Config {
	a, err := s.Alert(context.Background(), sensorID, kind)
	if err != nil {
		s.logger.Warn().Err(err).Str("sensor", sensorID).Str("kind", string(kind)).Msg("Failed to read alert")
		return alert.Config{}
	}
	return a
}

// SetCalibration stores the offsets of sensorID.
func (s *Store) SetCalibration(ctx context.Context, sensorID string, c measurement.Calibration) error {
	if _, err := s.db.ExecContext(ctx, upsertCalibrationSQL,
		sensorID, c.TemperatureOffset, c.HumidityOffset, c.PressureOffset,
	); err != nil {
		return s.queryError(ctx, err)
	}
	return nil
}

// ReadCalibration returns the offsets of sensorID. Unset offsets are the
// zero Calibration.
func (s *Store) ReadCalibration(ctx context.Context, sensorID string) (measurement.Calibration, error) {
	var c measurement.Calibration
	err := s.db.QueryRowContext(ctx, selectCalibrationSQL, sensorID).
		Scan(&c.TemperatureOffset, &c.HumidityOffset, &c.PressureOffset)
	if errors.Is(err, sql.ErrNoRows) {
		return measurement.Calibration{}, nil
	}
	if err != nil {
		return measurement.Calibration{}, s.queryError(ctx, err)
	}
	return c, nil
}

// Calibration returns the offsets of sensorID, or none when unset or
// unreadable.
func (s *Store) Calibration(sensorID string) measurement.Calibration {
	c, err := s.ReadCalibration(context.Background(), sensorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("sensor", sensorID).Msg("Failed to read calibration")
	}
	return c
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
