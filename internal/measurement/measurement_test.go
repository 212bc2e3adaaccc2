package measurement_test

import (
	"context"
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(temp, humidity *float64) *measurement.Record {
	return &measurement.Record{
		SensorID:    "AA:BB:CC:DD:EE:FF",
		Timestamp:   time.Unix(1000, 0),
		Temperature: temp,
		Humidity:    humidity,
	}
}

func TestResolveAbsentQuantity(t *testing.T) {
	empty := &measurement.Record{SensorID: "s", Timestamp: time.Unix(1000, 0)}

	for _, v := range measurement.Variants() {
		t.Run(v.String(), func(t *testing.T) {
			got, ok := measurement.Resolve(empty, v, measurement.Calibration{})
			assert.False(t, ok)
			assert.Zero(t, got)
		})
	}
}

func TestResolveHumidityVariants(t *testing.T) {
	r := record(measurement.Float(20), measurement.Float(50))

	tests := []struct {
		name    string
		variant measurement.Variant
		want    float64
	}{
		{"percent", measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitRelativeHumidity}, 50},
		{"dew point celsius", measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointCelsius}, 9.26},
		{"dew point fahrenheit", measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointFahrenheit}, 48.67},
		{"dew point kelvin", measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointKelvin}, 282.41},
		{"absolute", measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitAbsoluteHumidity}, 8.64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := measurement.Resolve(r, tt.variant, measurement.Calibration{})
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestResolveDewPointNeedsTemperature(t *testing.T) {
	dew := measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointCelsius}

	_, ok := measurement.Resolve(record(nil, measurement.Float(50)), dew, measurement.Calibration{})
	assert.False(t, ok)

	_, ok = measurement.Resolve(record(measurement.Float(20), measurement.Float(0)), dew, measurement.Calibration{})
	assert.False(t, ok)
}

func TestResolveTemperatureAndPressure(t *testing.T) {
	r := &measurement.Record{
		Temperature: measurement.Float(25),
		Pressure:    measurement.Float(1013.25),
	}

	tests := []struct {
		variant measurement.Variant
		want    float64
	}{
		{measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitCelsius}, 25},
		{measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitFahrenheit}, 77},
		{measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitKelvin}, 298.15},
		{measurement.Variant{Kind: measurement.KindPressure, Unit: measurement.UnitHectopascal}, 1013.25},
		{measurement.Variant{Kind: measurement.KindPressure, Unit: measurement.UnitMillimetersOfMercury}, 760.0},
		{measurement.Variant{Kind: measurement.KindPressure, Unit: measurement.UnitInchesOfMercury}, 29.921},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			got, ok := measurement.Resolve(r, tt.variant, measurement.Calibration{})
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestResolveAppliesCalibration(t *testing.T) {
	r := record(measurement.Float(20), measurement.Float(98))
	cal := measurement.Calibration{TemperatureOffset: -1.5, HumidityOffset: 5}

	temp, ok := measurement.Resolve(r, measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitCelsius}, cal)
	require.True(t, ok)
	assert.InDelta(t, 18.5, temp, 1e-9)

	rh, ok := measurement.Resolve(r, measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitRelativeHumidity}, cal)
	require.True(t, ok)
	assert.InDelta(t, 100, rh, 1e-9, "calibrated humidity is clamped")
}

func TestResolveAirQualityIndex(t *testing.T) {
	aqi := measurement.Variant{Kind: measurement.KindAQI, Unit: measurement.UnitScore}

	tests := []struct {
		name string
		co2  *float64
		pm25 *float64
		want float64
		ok   bool
	}{
		{"clean air", measurement.Float(400), measurement.Float(0), 100, true},
		{"moderate", measurement.Float(800), measurement.Float(10), 73.8, true},
		{"saturated", measurement.Float(5000), measurement.Float(500), 0, true},
		{"co2 absent", nil, measurement.Float(10), 0, false},
		{"pm25 absent", measurement.Float(800), nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &measurement.Record{CO2: tt.co2, PM25: tt.pm25}
			got, ok := measurement.Resolve(r, aqi, measurement.Calibration{})
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.InDelta(t, tt.want, got, 0.1)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestResolveDropsNonFinite(t *testing.T) {
	r := &measurement.Record{CO2: measurement.Float(math.Inf(1))}
	_, ok := measurement.Resolve(r, measurement.Variant{Kind: measurement.KindCO2, Unit: measurement.UnitPPM}, measurement.Calibration{})
	assert.False(t, ok)

	r = &measurement.Record{Voltage: measurement.Float(math.NaN())}
	_, ok = measurement.Resolve(r, measurement.Variant{Kind: measurement.KindVoltage, Unit: measurement.UnitVolt}, measurement.Calibration{})
	assert.False(t, ok)
}

func TestResolveUnknownVariant(t *testing.T) {
	r := record(measurement.Float(20), measurement.Float(50))
	_, ok := measurement.Resolve(r, measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitHectopascal}, measurement.Calibration{})
	assert.False(t, ok)
}

func TestConvertCanonical(t *testing.T) {
	got, ok := measurement.ConvertCanonical(measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitFahrenheit}, 30)
	require.True(t, ok)
	assert.InDelta(t, 86, got, 1e-9)

	_, ok = measurement.ConvertCanonical(measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointCelsius}, 30)
	assert.False(t, ok)

	_, ok = measurement.ConvertCanonical(measurement.Variant{Kind: measurement.KindAQI, Unit: measurement.UnitScore}, 30)
	assert.False(t, ok)
}

func TestParseVariant(t *testing.T) {
	v, err := measurement.ParseVariant("humidity/dew_point_celsius")
	require.NoError(t, err)
	assert.Equal(t, measurement.Variant{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointCelsius}, v)

	v, err = measurement.ParseVariant("co2")
	require.NoError(t, err)
	assert.Equal(t, measurement.UnitPPM, v.Unit)

	_, err = measurement.ParseVariant("temperature/ppm")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidUnit))
}

func TestVariantFormat(t *testing.T) {
	assert.Equal(t, "21.35", measurement.Variant{Kind: measurement.KindTemperature, Unit: measurement.UnitCelsius}.Format(21.349))
	assert.Equal(t, "812", measurement.Variant{Kind: measurement.KindCO2, Unit: measurement.UnitPPM}.Format(811.6))
}

func TestRecordSetAndValue(t *testing.T) {
	var r measurement.Record
	for _, q := range measurement.Quantities() {
		_, ok := r.Value(q)
		assert.False(t, ok)
	}

	r.Set(measurement.QuantityMovementCounter, 12)
	v, ok := r.Value(measurement.QuantityMovementCounter)
	require.True(t, ok)
	assert.Equal(t, 12.0, v)
}

type calibrationStore struct {
	cal measurement.Calibration
	err error
}

func (s calibrationStore) Calibration(string) measurement.Calibration { return measurement.Calibration{} }

func (s calibrationStore) ReadCalibration(context.Context, string) (measurement.Calibration, error) {
	return s.cal, s.err
}

func TestReadCalibration(t *testing.T) {
	ctx := context.Background()
	offset := measurement.Calibration{TemperatureOffset: 0.5}

	got, err := measurement.ReadCalibration(ctx, calibrationStore{cal: offset}, "s")
	require.NoError(t, err)
	assert.Equal(t, offset, got)

	_, err = measurement.ReadCalibration(ctx, calibrationStore{err: errors.New().New(errors.ErrInternal)}, "s")
	assert.True(t, errors.HasCode(err, errors.ErrInternal))

	fn := measurement.CalibrationFunc(func(string) measurement.Calibration { return offset })
	got, err = measurement.ReadCalibration(ctx, fn, "s")
	require.NoError(t, err)
	assert.Equal(t, offset, got)

	got, err = measurement.ReadCalibration(ctx, nil, "s")
	require.NoError(t, err)
	assert.Equal(t, measurement.Calibration{}, got)
}
