package series

import "sort"

// Stats summarises the entries inside a visible x-window.
type Stats struct {
	Min float64
	Max float64
	Avg float64
}

// ComputeStats returns min, max and the time-weighted average of entries
// whose x lies in [xmin, xmax]. The average is the trapezoidal area divided
// by the span between the first and last visible entry; when that span is
// zero it is the arithmetic mean. It returns false when no entry is
// visible. entries must be ordered by x.
func ComputeStats(entries []Entry, xmin, xmax float64) (Stats, bool) {
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}
	lo := sort.Search(len(entries), func(i int) bool { return entries[i].X >= xmin })
	hi := sort.Search(len(entries), func(i int) bool { return entries[i].X > xmax })
	visible := entries[lo:hi]
	if len(visible) == 0 {
		return Stats{}, false
	}

	s := Stats{Min: visible[0].Y, Max: visible[0].Y}
	sum := visible[0].Y
	area := 0.0
	for i := 1; i < len(visible); i++ {
		prev, cur := visible[i-1], visible[i]
		s.Min = min(s.Min, cur.Y)
		s.Max = max(s.Max, cur.Y)
		sum += cur.Y
		area += (cur.X - prev.X) * (prev.Y + cur.Y) / 2
	}

	span := visible[len(visible)-1].X - visible[0].X
	if span > 0 {
		s.Avg = area / span
	} else {
		s.Avg = sum / float64(len(visible))
	}

	return s, true
}
