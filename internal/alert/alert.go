package alert

import (
	"context"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Bounds are alert thresholds in a variant's display unit.
type Bounds struct {
	Lower float64
	Upper float64
}

// Contains reports whether y lies within the bounds.
func (b Bounds) Contains(y float64) bool {
	return y >= b.Lower && y <= b.Upper
}

// naturalRange is the full threshold range offered for a kind, in canonical
// units. A threshold left unset falls back to the matching edge.
var naturalRange = map[measurement.Kind]Bounds{
	measurement.KindTemperature:     {-40, 85},
	measurement.KindHumidity:        {0, 100},
	measurement.KindPressure:        {500, 1155},
	measurement.KindCO2:             {350, 2500},
	measurement.KindPM1:             {0, 250},
	measurement.KindPM25:            {0, 250},
	measurement.KindPM4:             {0, 250},
	measurement.KindPM10:            {0, 250},
	measurement.KindVOC:             {1, 500},
	measurement.KindNOx:             {1, 500},
	measurement.KindLuminosity:      {0, 144284},
	measurement.KindSoundInstant:    {0, 127},
	measurement.KindSoundAverage:    {0, 127},
	measurement.KindSoundPeak:       {0, 127},
	measurement.KindRSSI:            {-105, 0},
	measurement.KindMovementCounter: {0, 255},
}

// Resolver computes alert bounds for chart variants.
type Resolver struct {
	service Service
}

func NewResolver(service Service) *Resolver {
	return &Resolver{service: service}
}

// Bounds returns the alert thresholds of sensorID for variant, converted to
// the variant's unit. It returns false when no alert is enabled or the
// thresholds cannot be expressed in the variant's unit.
func (r *Resolver) Bounds(sensorID string, variant measurement.Variant) (Bounds, bool) {
	if r == nil || r.service == nil || !applies(variant) {
		return Bounds{}, false
	}
	if !r.service.IsEnabled(sensorID, variant.Kind) {
		return Bounds{}, false
	}

	lower, okLower := r.service.Lower(sensorID, variant.Kind)
	upper, okUpper := r.service.Upper(sensorID, variant.Kind)
	return resolve(variant, lower, okLower, upper, okUpper)
}

// Fetch is Bounds for callers that must not hide read failures. When the
// service implements Store the configuration is read once through it and
// its errors are returned.
func (r *Resolver) Fetch(ctx context.Context, sensorID string, variant measurement.Variant) (Bounds, bool, error) {
	if r == nil || r.service == nil || !applies(variant) {
		return Bounds{}, false, nil
	}
	store, ok := r.service.(Store)
	if !ok {
		b, ok := r.Bounds(sensorID, variant)
		return b, ok, nil
	}

	cfg, err := store.Alert(ctx, sensorID, variant.Kind)
	if err != nil {
		return Bounds{}, false, err
	}
	if !cfg.Enabled {
		return Bounds{}, false, nil
	}
	lower, okLower := deref(cfg.Lower)
	upper, okUpper := deref(cfg.Upper)
	b, ok := resolve(variant, lower, okLower, upper, okUpper)
	return b, ok, nil
}

// applies reports whether alerts are shown on variant. Humidity alerts are
// configured in %RH and only shown on that unit.
func applies(variant measurement.Variant) bool {
	return variant.Kind != measurement.KindHumidity || variant.Unit == measurement.UnitRelativeHumidity
}

func resolve(variant measurement.Variant, lower float64, okLower bool, upper float64, okUpper bool) (Bounds, bool) {
	natural, hasNatural := naturalRange[variant.Kind]

	switch {
	case !okLower && !okUpper:
		return Bounds{}, false
	case !okLower:
		if !hasNatural {
			return Bounds{}, false
		}
		lower = natural.Lower
	case !okUpper:
		if !hasNatural {
			return Bounds{}, false
		}
		upper = natural.Upper
	}

	lo, ok := measurement.ConvertCanonical(variant, lower)
	if !ok {
		return Bounds{}, false
	}
	hi, ok := measurement.ConvertCanonical(variant, upper)
	if !ok {
		return Bounds{}, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}

	return Bounds{Lower: lo, Upper: hi}, true
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Func adapts a function to a bounds lookup; it lets callers replace the
// resolver in tests.
type Func func(sensorID string, variant measurement.Variant) (Bounds, bool)

func (f Func) Bounds(sensorID string, variant measurement.Variant) (Bounds, bool) {
	return f(sensorID, variant)
}

func (f Func) Fetch(_ context.Context, sensorID string, variant measurement.Variant) (Bounds, bool, error) {
	b, ok := f(sensorID, variant)
	return b, ok, nil
}
