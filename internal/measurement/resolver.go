package measurement

type resolveFunc func(r *Record, c Calibration) (float64, bool)

// resolvers maps every supported variant to its extraction strategy. Adding
// a kind means adding entries here, never touching Resolve.
var resolvers = map[Variant]resolveFunc{}

// canonical maps units to the conversion from their kind's canonical unit.
// Derived units (dew point, absolute humidity, air quality) have no entry.
var canonical = map[Unit]func(float64) float64{}

func init() {
	identity := func(v float64) float64 { return v }

	for _, u := range []Unit{UnitCelsius, UnitFahrenheit, UnitKelvin} {
		unit := u
		resolvers[Variant{KindTemperature, unit}] = func(r *Record, c Calibration) (float64, bool) {
			t, ok := c.temperature(r)
			if !ok {
				return 0, false
			}
			return CelsiusTo(t, unit), true
		}
		canonical[unit] = func(v float64) float64 { return CelsiusTo(v, unit) }
	}

	resolvers[Variant{KindHumidity, UnitRelativeHumidity}] = func(r *Record, c Calibration) (float64, bool) {
		return c.humidity(r)
	}
	canonical[UnitRelativeHumidity] = identity

	resolvers[Variant{KindHumidity, UnitAbsoluteHumidity}] = func(r *Record, c Calibration) (float64, bool) {
		t, ok := c.temperature(r)
		if !ok {
			return 0, false
		}
		h, ok := c.humidity(r)
		if !ok {
			return 0, false
		}
		return AbsoluteHumidity(t, h), true
	}

	for _, u := range []Unit{UnitDewPointCelsius, UnitDewPointFahrenheit, UnitDewPointKelvin} {
		unit := u
		resolvers[Variant{KindHumidity, unit}] = func(r *Record, c Calibration) (float64, bool) {
			t, ok := c.temperature(r)
			if !ok {
				return 0, false
			}
			h, ok := c.humidity(r)
			if !ok {
				return 0, false
			}
			dp, ok := DewPoint(t, h)
			if !ok {
				return 0, false
			}
			return CelsiusTo(dp, unit), true
		}
	}

	for _, u := range []Unit{UnitHectopascal, UnitMillimetersOfMercury, UnitInchesOfMercury} {
		unit := u
		resolvers[Variant{KindPressure, unit}] = func(r *Record, c Calibration) (float64, bool) {
			p, ok := c.pressure(r)
			if !ok {
				return 0, false
			}
			return HectopascalTo(p, unit), true
		}
		canonical[unit] = func(v float64) float64 { return HectopascalTo(v, unit) }
	}

	resolvers[Variant{KindAQI, UnitScore}] = func(r *Record, _ Calibration) (float64, bool) {
		co2, ok := r.Value(QuantityCO2)
		if !ok {
			return 0, false
		}
		pm25, ok := r.Value(QuantityPM25)
		if !ok {
			return 0, false
		}
		return AirQualityIndex(co2, pm25), true
	}

	direct := map[Kind]Quantity{
		KindCO2:             QuantityCO2,
		KindPM1:             QuantityPM1,
		KindPM25:            QuantityPM25,
		KindPM4:             QuantityPM4,
		KindPM10:            QuantityPM10,
		KindVOC:             QuantityVOC,
		KindNOx:             QuantityNOx,
		KindLuminosity:      QuantityLuminosity,
		KindSoundInstant:    QuantitySoundInstant,
		KindSoundAverage:    QuantitySoundAverage,
		KindSoundPeak:       QuantitySoundPeak,
		KindVoltage:         QuantityVoltage,
		KindRSSI:            QuantityRSSI,
		KindAccelerationX:   QuantityAccelerationX,
		KindAccelerationY:   QuantityAccelerationY,
		KindAccelerationZ:   QuantityAccelerationZ,
		KindMovementCounter: QuantityMovementCounter,
	}
	for k, q := range direct {
		quantity := q
		unit := NativeUnit(k)
		resolvers[Variant{k, unit}] = func(r *Record, _ Calibration) (float64, bool) {
			return r.Value(quantity)
		}
		canonical[unit] = identity
	}
}

// Resolve extracts the value of variant from the record, applying the
// calibration and converting to the variant's unit. It returns false when
// the record lacks an input quantity, the variant is unknown, or the result
// is not finite.
func Resolve(r *Record, v Variant, c Calibration) (float64, bool) {
	resolve, ok := resolvers[v]
	if !ok || r == nil {
		return 0, false
	}
	value, ok := resolve(r, c)
	if !ok || !isFinite(value) {
		return 0, false
	}
	return value, true
}

// ConvertCanonical converts a value given in the canonical unit of the
// variant's kind into the variant's unit. Derived units cannot be reached
// from a single value and return false.
func ConvertCanonical(v Variant, value float64) (float64, bool) {
	if !v.Valid() {
		return 0, false
	}
	convert, ok := canonical[v.Unit]
	if !ok {
		return 0, false
	}
	out := convert(value)
	return out, isFinite(out)
}

// Variants returns every resolvable variant.
func Variants() []Variant {
	out := make([]Variant, 0, len(resolvers))
	for v := range resolvers {
		out = append(out, v)
	}
	return out
}
