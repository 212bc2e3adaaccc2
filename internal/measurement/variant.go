package measurement

import (
	"fmt"
	"math"
	"strings"

	"codeberg.org/mutker/sensorchart/internal/errors"
)

// Kind is what a chart displays, independent of unit.
type Kind string

const (
	KindTemperature     Kind = "temperature"
	KindHumidity        Kind = "humidity"
	KindPressure        Kind = "pressure"
	KindAQI             Kind = "aqi"
	KindCO2             Kind = "co2"
	KindPM1             Kind = "pm1"
	KindPM25            Kind = "pm25"
	KindPM4             Kind = "pm4"
	KindPM10            Kind = "pm10"
	KindVOC             Kind = "voc"
	KindNOx             Kind = "nox"
	KindLuminosity      Kind = "luminosity"
	KindSoundInstant    Kind = "sound_instant"
	KindSoundAverage    Kind = "sound_average"
	KindSoundPeak       Kind = "sound_peak"
	KindVoltage         Kind = "voltage"
	KindRSSI            Kind = "rssi"
	KindAccelerationX   Kind = "acceleration_x"
	KindAccelerationY   Kind = "acceleration_y"
	KindAccelerationZ   Kind = "acceleration_z"
	KindMovementCounter Kind = "movement_counter"
)

// Unit is a concrete display unit.
type Unit string

const (
	UnitCelsius    Unit = "celsius"
	UnitFahrenheit Unit = "fahrenheit"
	UnitKelvin     Unit = "kelvin"

	UnitRelativeHumidity   Unit = "percent"
	UnitAbsoluteHumidity   Unit = "g_m3"
	UnitDewPointCelsius    Unit = "dew_point_celsius"
	UnitDewPointFahrenheit Unit = "dew_point_fahrenheit"
	UnitDewPointKelvin     Unit = "dew_point_kelvin"

	UnitHectopascal          Unit = "hpa"
	UnitMillimetersOfMercury Unit = "mmhg"
	UnitInchesOfMercury      Unit = "inhg"

	UnitScore      Unit = "score"
	UnitPPM        Unit = "ppm"
	UnitMicrograms Unit = "ug_m3"
	UnitIndex      Unit = "index"
	UnitLux        Unit = "lx"
	UnitDecibel    Unit = "dba"
	UnitVolt       Unit = "v"
	UnitDBm        Unit = "dbm"
	UnitG          Unit = "g"
	UnitCount      Unit = "count"
)

// Variant binds a kind to a display unit. Variants are comparable and are
// used as map keys; two variants of one kind with different units produce
// different series.
type Variant struct {
	Kind Kind
	Unit Unit
}

func (v Variant) String() string {
	return string(v.Kind) + "/" + string(v.Unit)
}

// Valid reports whether the variant can be resolved.
func (v Variant) Valid() bool {
	_, ok := resolvers[v]
	return ok
}

// Decimals is the default number of fraction digits shown for the unit.
func (v Variant) Decimals() int {
	switch v.Unit {
	case UnitPPM, UnitIndex, UnitLux, UnitDBm, UnitCount, UnitScore:
		return 0
	case UnitVolt, UnitG, UnitInchesOfMercury:
		return 3
	default:
		return 2
	}
}

// ParseVariant parses the "kind/unit" form produced by String. A bare kind
// selects its native unit.
func ParseVariant(s string) (Variant, error) {
	kind, unit, found := strings.Cut(strings.TrimSpace(s), "/")
	v := Variant{Kind: Kind(kind), Unit: Unit(unit)}
	if !found {
		v.Unit = NativeUnit(v.Kind)
	}
	if !v.Valid() {
		return Variant{}, errors.New().WithData(errors.ErrInvalidUnit, s)
	}
	return v, nil
}

// NativeUnit returns the unit a kind is stored in.
func NativeUnit(k Kind) Unit {
	switch k {
	case KindTemperature:
		return UnitCelsius
	case KindHumidity:
		return UnitRelativeHumidity
	case KindPressure:
		return UnitHectopascal
	case KindAQI:
		return UnitScore
	case KindCO2:
		return UnitPPM
	case KindPM1, KindPM25, KindPM4, KindPM10:
		return UnitMicrograms
	case KindVOC, KindNOx:
		return UnitIndex
	case KindLuminosity:
		return UnitLux
	case KindSoundInstant, KindSoundAverage, KindSoundPeak:
		return UnitDecibel
	case KindVoltage:
		return UnitVolt
	case KindRSSI:
		return UnitDBm
	case KindAccelerationX, KindAccelerationY, KindAccelerationZ:
		return UnitG
	case KindMovementCounter:
		return UnitCount
	default:
		return ""
	}
}

// Round rounds value to the given number of fraction digits.
func Round(value float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(value*p) / p
}

// Format renders value with the variant's default precision.
func (v Variant) Format(value float64) string {
	return fmt.Sprintf("%.*f", v.Decimals(), Round(value, v.Decimals()))
}
