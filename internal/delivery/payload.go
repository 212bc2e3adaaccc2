package delivery

import (
	"encoding/json"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// payload is the JSON form of a record as published by gateways and the
// cloud sync. Timestamps are Unix seconds.
type payload struct {
	SensorID        string   `json:"sensor_id"`
	Timestamp       float64  `json:"timestamp"`
	Temperature     *float64 `json:"temperature,omitempty"`
	Humidity        *float64 `json:"humidity,omitempty"`
	Pressure        *float64 `json:"pressure,omitempty"`
	CO2             *float64 `json:"co2,omitempty"`
	PM1             *float64 `json:"pm1,omitempty"`
	PM25            *float64 `json:"pm25,omitempty"`
	PM4             *float64 `json:"pm4,omitempty"`
	PM10            *float64 `json:"pm10,omitempty"`
	VOC             *float64 `json:"voc,omitempty"`
	NOx             *float64 `json:"nox,omitempty"`
	Luminosity      *float64 `json:"luminosity,omitempty"`
	SoundInstant    *float64 `json:"sound_instant,omitempty"`
	SoundAverage    *float64 `json:"sound_average,omitempty"`
	SoundPeak       *float64 `json:"sound_peak,omitempty"`
	Voltage         *float64 `json:"voltage,omitempty"`
	RSSI            *float64 `json:"rssi,omitempty"`
	AccelerationX   *float64 `json:"acceleration_x,omitempty"`
	AccelerationY   *float64 `json:"acceleration_y,omitempty"`
	AccelerationZ   *float64 `json:"acceleration_z,omitempty"`
	MovementCounter *float64 `json:"movement_counter,omitempty"`
}

// Decode parses a JSON record.
func Decode(data []byte) (measurement.Record, error) {
	errFactory := errors.New()

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return measurement.Record{}, errFactory.Wrap(ErrInvalidPayload, err)
	}
	if p.SensorID == "" {
		return measurement.Record{}, errFactory.WithMessage(ErrInvalidPayload, "payload has no sensor_id")
	}
	if p.Timestamp <= 0 {
		return measurement.Record{}, errFactory.WithMessage(ErrInvalidPayload, "payload has no timestamp")
	}

	sec := int64(p.Timestamp)
	nsec := int64((p.Timestamp - float64(sec)) * float64(time.Second))

	return measurement.Record{
		SensorID:        p.SensorID,
		Timestamp:       time.Unix(sec, nsec).Round(time.Millisecond),
		Temperature:     p.Temperature,
		Humidity:        p.Humidity,
		Pressure:        p.Pressure,
		CO2:             p.CO2,
		PM1:             p.PM1,
		PM25:            p.PM25,
		PM4:             p.PM4,
		PM10:            p.PM10,
		VOC:             p.VOC,
		NOx:             p.NOx,
		Luminosity:      p.Luminosity,
		SoundInstant:    p.SoundInstant,
		SoundAverage:    p.SoundAverage,
		SoundPeak:       p.SoundPeak,
		Voltage:         p.Voltage,
		RSSI:            p.RSSI,
		AccelerationX:   p.AccelerationX,
		AccelerationY:   p.AccelerationY,
		AccelerationZ:   p.AccelerationZ,
		MovementCounter: p.MovementCounter,
	}, nil
}

// Encode renders r in the form Decode accepts.
func Encode(r measurement.Record) ([]byte, error) {
	return json.Marshal(payload{
		SensorID:        r.SensorID,
		Timestamp:       float64(r.Timestamp.UnixMilli()) / 1000,
		Temperature:     r.Temperature,
		Humidity:        r.Humidity,
		Pressure:        r.Pressure,
		CO2:             r.CO2,
		PM1:             r.PM1,
		PM25:            r.PM25,
		PM4:             r.PM4,
		PM10:            r.PM10,
		VOC:             r.VOC,
		NOx:             r.NOx,
		Luminosity:      r.Luminosity,
		SoundInstant:    r.SoundInstant,
		SoundAverage:    r.SoundAverage,
		SoundPeak:       r.SoundPeak,
		Voltage:         r.Voltage,
		RSSI:            r.RSSI,
		AccelerationX:   r.AccelerationX,
		AccelerationY:   r.AccelerationY,
		AccelerationZ:   r.AccelerationZ,
		MovementCounter: r.MovementCounter,
	})
}
