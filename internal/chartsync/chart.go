package chartsync

import (
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"codeberg.org/mutker/sensorchart/internal/series"
)

// axis is the time domain shared by every chart of a coordinator.
type axis struct {
	lo, hi float64
	ok     bool
}

// Chart is the interaction state of one variant chart.
type Chart struct {
	model     *series.Model
	axis      *axis
	transform Transform

	stats    series.Stats
	hasStats bool

	highlight    series.Entry
	hasHighlight bool

	sub *Subscription
}

func newChart(model *series.Model, ax *axis) *Chart {
	return &Chart{model: model, axis: ax, transform: Identity}
}

func (c *Chart) Variant() measurement.Variant { return c.model.Variant() }

func (c *Chart) Model() *series.Model { return c.model }

func (c *Chart) Transform() Transform { return c.transform }

// VisibleRange returns the x window currently shown, taken from the time
// axis shared with the other charts.
func (c *Chart) VisibleRange() (xmin, xmax float64, ok bool) {
	if c.axis == nil || !c.axis.ok {
		return 0, 0, false
	}
	u0, u1 := c.transform.Window()
	span := c.axis.hi - c.axis.lo
	return c.axis.lo + u0*span, c.axis.lo + u1*span, true
}

// Visible reports whether x lies in the visible window.
func (c *Chart) Visible(x float64) bool {
	xmin, xmax, ok := c.VisibleRange()
	return ok && x >= xmin && x <= xmax
}

// Stats returns the statistics of the visible window.
func (c *Chart) Stats() (series.Stats, bool) { return c.stats, c.hasStats }

// Highlighted returns the highlighted entry, if any.
func (c *Chart) Highlighted() (series.Entry, bool) { return c.highlight, c.hasHighlight }

// Refresh recomputes the visible statistics.
func (c *Chart) Refresh() {
	xmin, xmax, ok := c.VisibleRange()
	if !ok {
		c.stats, c.hasStats = series.Stats{}, false
		return
	}
	c.stats, c.hasStats = c.model.Stats(xmin, xmax)
}

func (c *Chart) setTransform(t Transform) {
	c.transform = t
	c.Refresh()
}

func (c *Chart) highlightAt(x float64) {
	c.highlight, c.hasHighlight = c.model.Nearest(x)
}

func (c *Chart) clearHighlight() {
	c.highlight, c.hasHighlight = series.Entry{}, false
}

func (c *Chart) handle(e Event) {
	switch e.Type {
	case EventTransform:
		if e.Origin == c.Variant() {
			return
		}
		c.setTransform(c.transform.Mirror(e.Transform))
	case EventHighlight:
		c.highlightAt(e.X)
	case EventReset:
		c.clearHighlight()
		c.setTransform(Identity)
	}
}
