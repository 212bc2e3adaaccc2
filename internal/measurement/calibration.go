package measurement

import "context"

// Calibration holds per-sensor offsets applied before unit conversion.
// Offsets are in canonical units: °C, %RH and hPa.
type Calibration struct {
	TemperatureOffset float64
	HumidityOffset    float64
	PressureOffset    float64
}

// CalibrationProvider returns the calibration of a sensor. Sensors without
// stored offsets get the zero Calibration.
type CalibrationProvider interface {
	Calibration(sensorID string) Calibration
}

// CalibrationFunc adapts a function to CalibrationProvider.
type CalibrationFunc func(sensorID string) Calibration

func (f CalibrationFunc) Calibration(sensorID string) Calibration {
	return f(sensorID)
}

// CalibrationStore reads calibrations from a backend whose reads can block
// and fail.
type CalibrationStore interface {
	ReadCalibration(ctx context.Context, sensorID string) (Calibration, error)
}

// ReadCalibration returns the calibration of sensorID from p. It reads
// through CalibrationStore when p implements it, so read failures are
// returned instead of hidden behind the zero Calibration.
func ReadCalibration(ctx context.Context, p CalibrationProvider, sensorID string) (Calibration, error) {
	if p == nil {
		return Calibration{}, nil
	}
	if s, ok := p.(CalibrationStore); ok {
		return s.ReadCalibration(ctx, sensorID)
	}
	return p.Calibration(sensorID), nil
}

// NoCalibration applies no offsets.
var NoCalibration = CalibrationFunc(func(string) Calibration { return Calibration{} })

func (c Calibration) temperature(r *Record) (float64, bool) {
	v, ok := r.Value(QuantityTemperature)
	if !ok {
		return 0, false
	}
	return v + c.TemperatureOffset, true
}

func (c Calibration) humidity(r *Record) (float64, bool) {
	v, ok := r.Value(QuantityHumidity)
	if !ok {
		return 0, false
	}
	return clamp(v+c.HumidityOffset, 0, 100), true
}

func (c Calibration) pressure(r *Record) (float64, bool) {
	v, ok := r.Value(QuantityPressure)
	if !ok {
		return 0, false
	}
	return v + c.PressureOffset, true
}
