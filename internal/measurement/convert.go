package measurement

import "math"

const (
	kelvinOffset = 273.15

	hpaToMmHg = 0.750061683
	hpaToInHg = 0.0295299831

	// Magnus coefficients (Alduchov & Eskridge) for dew point over water.
	magnusA = 17.625
	magnusB = 243.04

	// Air quality score inputs are clamped to these ranges; the score is the
	// distance from the clean-air corner, scaled to 0..100.
	aqiMax  = 100.0
	pm25Min = 0.0
	pm25Max = 60.0
	co2Min  = 420.0
	co2Max  = 2300.0
)

// CelsiusTo converts a temperature in °C to unit. Unknown units return NaN.
func CelsiusTo(c float64, unit Unit) float64 {
	switch unit {
	case UnitCelsius, UnitDewPointCelsius:
		return c
	case UnitFahrenheit, UnitDewPointFahrenheit:
		return c*9/5 + 32
	case UnitKelvin, UnitDewPointKelvin:
		return c + kelvinOffset
	default:
		return math.NaN()
	}
}

// HectopascalTo converts a pressure in hPa to unit. Unknown units return NaN.
func HectopascalTo(hpa float64, unit Unit) float64 {
	switch unit {
	case UnitHectopascal:
		return hpa
	case UnitMillimetersOfMercury:
		return hpa * hpaToMmHg
	case UnitInchesOfMercury:
		return hpa * hpaToInHg
	default:
		return math.NaN()
	}
}

// DewPoint returns the dew point in °C for the given temperature (°C) and
// relative humidity (%RH). It is undefined for non-positive humidity.
func DewPoint(celsius, relativeHumidity float64) (float64, bool) {
	if relativeHumidity <= 0 {
		return 0, false
	}
	gamma := math.Log(relativeHumidity/100) + magnusA*celsius/(magnusB+celsius)
	dp := magnusB * gamma / (magnusA - gamma)
	return dp, isFinite(dp)
}

// AbsoluteHumidity returns water vapour density in g/m³ for the given
// temperature (°C) and relative humidity (%RH).
func AbsoluteHumidity(celsius, relativeHumidity float64) float64 {
	saturation := 6.112 * math.Exp(17.67*celsius/(celsius+243.5))
	return saturation * relativeHumidity * 2.1674 / (kelvinOffset + celsius)
}

// AirQualityIndex scores air quality from CO2 (ppm) and PM2.5 (µg/m³).
// The result is in [0, 100]; 100 is best.
func AirQualityIndex(co2, pm25 float64) float64 {
	if math.IsNaN(co2) || math.IsNaN(pm25) {
		return math.NaN()
	}
	dx := (clamp(pm25, pm25Min, pm25Max) - pm25Min) / (pm25Max - pm25Min) * aqiMax
	dy := (clamp(co2, co2Min, co2Max) - co2Min) / (co2Max - co2Min) * aqiMax
	return clamp(aqiMax-math.Hypot(dx, dy), 0, aqiMax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
