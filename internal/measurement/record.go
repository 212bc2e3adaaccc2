package measurement

import "time"

// Quantity names one physical quantity a sensor may report.
type Quantity uint8

const (
	QuantityTemperature Quantity = iota
	QuantityHumidity
	QuantityPressure
	QuantityCO2
	QuantityPM1
	QuantityPM25
	QuantityPM4
	QuantityPM10
	QuantityVOC
	QuantityNOx
	QuantityLuminosity
	QuantitySoundInstant
	QuantitySoundAverage
	QuantitySoundPeak
	QuantityVoltage
	QuantityRSSI
	QuantityAccelerationX
	QuantityAccelerationY
	QuantityAccelerationZ
	QuantityMovementCounter
)

// Record is one raw sample from a sensor. Quantities are stored in their
// canonical unit (°C, %RH, hPa, ppm, µg/m³, index, lx, dBA, V, dBm, g, count)
// and are nil when the sensor did not report them.
type Record struct {
	SensorID        string
	Timestamp       time.Time
	Temperature     *float64
	Humidity        *float64
	Pressure        *float64
	CO2             *float64
	PM1             *float64
	PM25            *float64
	PM4             *float64
	PM10            *float64
	VOC             *float64
	NOx             *float64
	Luminosity      *float64
	SoundInstant    *float64
	SoundAverage    *float64
	SoundPeak       *float64
	Voltage         *float64
	RSSI            *float64
	AccelerationX   *float64
	AccelerationY   *float64
	AccelerationZ   *float64
	MovementCounter *float64
}

var fields = map[Quantity]func(*Record) **float64{
	QuantityTemperature:     func(r *Record) **float64 { return &r.Temperature },
	QuantityHumidity:        func(r *Record) **float64 { return &r.Humidity },
	QuantityPressure:        func(r *Record) **float64 { return &r.Pressure },
	QuantityCO2:             func(r *Record) **float64 { return &r.CO2 },
	QuantityPM1:             func(r *Record) **float64 { return &r.PM1 },
	QuantityPM25:            func(r *Record) **float64 { return &r.PM25 },
	QuantityPM4:             func(r *Record) **float64 { return &r.PM4 },
	QuantityPM10:            func(r *Record) **float64 { return &r.PM10 },
	QuantityVOC:             func(r *Record) **float64 { return &r.VOC },
	QuantityNOx:             func(r *Record) **float64 { return &r.NOx },
	QuantityLuminosity:      func(r *Record) **float64 { return &r.Luminosity },
	QuantitySoundInstant:    func(r *Record) **float64 { return &r.SoundInstant },
	QuantitySoundAverage:    func(r *Record) **float64 { return &r.SoundAverage },
	QuantitySoundPeak:       func(r *Record) **float64 { return &r.SoundPeak },
	QuantityVoltage:         func(r *Record) **float64 { return &r.Voltage },
	QuantityRSSI:            func(r *Record) **float64 { return &r.RSSI },
	QuantityAccelerationX:   func(r *Record) **float64 { return &r.AccelerationX },
	QuantityAccelerationY:   func(r *Record) **float64 { return &r.AccelerationY },
	QuantityAccelerationZ:   func(r *Record) **float64 { return &r.AccelerationZ },
	QuantityMovementCounter: func(r *Record) **float64 { return &r.MovementCounter },
}

// Quantities lists every quantity in declaration order.
func Quantities() []Quantity {
	out := make([]Quantity, 0, len(fields))
	for q := QuantityTemperature; q <= QuantityMovementCounter; q++ {
		out = append(out, q)
	}
	return out
}

// Value returns the raw value of q, or false when the record lacks it.
func (r *Record) Value(q Quantity) (float64, bool) {
	field, ok := fields[q]
	if !ok {
		return 0, false
	}
	p := *field(r)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set stores v as the value of q.
func (r *Record) Set(q Quantity, v float64) {
	if field, ok := fields[q]; ok {
		*field(r) = Float(v)
	}
}

// Seconds returns the record timestamp as fractional Unix seconds, the x
// coordinate used by chart entries.
func (r *Record) Seconds() float64 {
	return float64(r.Timestamp.UnixNano()) / 1e9
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
