package series

import (
	"math"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// Entry is one chart point: x in Unix seconds, y in the variant's unit.
// Both coordinates are always finite.
type Entry struct {
	X float64
	Y float64
}

// Builder turns measurement records into per-variant entries.
type Builder struct {
	calibration measurement.Calibration
}

func NewBuilder(calibration measurement.Calibration) *Builder {
	return &Builder{calibration: calibration}
}

// Build resolves every record for every variant. Records must already be
// ordered by timestamp; output order follows input order. Values that
// cannot be resolved are skipped. Every requested variant has a key in
// the result, possibly with no entries.
func (b *Builder) Build(records []measurement.Record, variants []measurement.Variant) map[measurement.Variant][]Entry {
	out := make(map[measurement.Variant][]Entry, len(variants))
	for _, v := range variants {
		out[v] = make([]Entry, 0, len(records))
	}

	for i := range records {
		r := &records[i]
		x := r.Seconds()
		if !finite(x) {
			continue
		}
		for _, v := range variants {
			y, ok := measurement.Resolve(r, v, b.calibration)
			if !ok {
				continue
			}
			out[v] = append(out[v], Entry{X: x, Y: y})
		}
	}

	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
