package chartsync

import (
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"codeberg.org/mutker/sensorchart/internal/series"
)

// Coordinator keeps stacked charts aligned on the time axis. Each chart
// subscribes to a shared bus; the chart the user touches publishes and the
// others follow.
type Coordinator struct {
	bus    *Bus
	axis   *axis
	charts map[measurement.Variant]*Chart
	order  []measurement.Variant
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		bus:    NewBus(),
		axis:   &axis{},
		charts: make(map[measurement.Variant]*Chart),
	}
}

// Domain returns the shared time axis: the union of every chart's data.
func (c *Coordinator) Domain() (lo, hi float64, ok bool) {
	return c.axis.lo, c.axis.hi, c.axis.ok
}

// updateAxis recomputes the shared time axis and reports whether it moved.
func (c *Coordinator) updateAxis() bool {
	next := axis{}
	for _, chart := range c.charts {
		lo, hi, ok := chart.model.Domain()
		if !ok {
			continue
		}
		if !next.ok {
			next = axis{lo: lo, hi: hi, ok: true}
			continue
		}
		next.lo = min(next.lo, lo)
		next.hi = max(next.hi, hi)
	}
	if next == *c.axis {
		return false
	}
	*c.axis = next
	return true
}

func (c *Coordinator) refreshAll() {
	for _, chart := range c.charts {
		chart.Refresh()
	}
}

// Add registers a chart for model. A chart already registered for the
// variant is replaced, keeping its transform.
func (c *Coordinator) Add(model *series.Model) *Chart {
	v := model.Variant()
	chart := newChart(model, c.axis)
	if old, ok := c.charts[v]; ok {
		old.sub.Unsubscribe()
		chart.transform = old.transform
	} else {
		c.order = append(c.order, v)
	}
	chart.sub = c.bus.Subscribe(chart.handle)
	c.charts[v] = chart

	if c.updateAxis() {
		c.refreshAll()
	} else {
		chart.Refresh()
	}
	return chart
}

// Remove unregisters the chart of variant.
func (c *Coordinator) Remove(v measurement.Variant) {
	chart, ok := c.charts[v]
	if !ok {
		return
	}
	chart.sub.Unsubscribe()
	delete(c.charts, v)
	for i, o := range c.order {
		if o == v {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.updateAxis() {
		c.refreshAll()
	}
}

// Chart returns the chart of variant.
func (c *Coordinator) Chart(v measurement.Variant) (*Chart, bool) {
	chart, ok := c.charts[v]
	return chart, ok
}

// Charts returns the charts in registration order.
func (c *Coordinator) Charts() []*Chart {
	out := make([]*Chart, 0, len(c.order))
	for _, v := range c.order {
		out = append(out, c.charts[v])
	}
	return out
}

// Transform applies m to the origin chart and mirrors its x axis onto all
// other charts. Every chart recomputes its visible statistics.
func (c *Coordinator) Transform(origin measurement.Variant, m Transform) bool {
	chart, ok := c.charts[origin]
	if !ok {
		return false
	}
	m = m.Clamp()
	chart.setTransform(m)
	return c.bus.Publish(Event{Type: EventTransform, Origin: origin, Transform: m})
}

// Highlight marks the entry nearest to x on every chart.
func (c *Coordinator) Highlight(origin measurement.Variant, x float64) bool {
	if _, ok := c.charts[origin]; !ok {
		return false
	}
	return c.bus.Publish(Event{Type: EventHighlight, Origin: origin, X: x})
}

// Reset restores the identity transform and clears highlights everywhere.
func (c *Coordinator) Reset() {
	c.bus.Publish(Event{Type: EventReset})
}

// Refresh recomputes the shared axis and the statistics of every chart.
// Call it after models were replaced.
func (c *Coordinator) Refresh() {
	c.updateAxis()
	c.refreshAll()
}

// Appended is called after entries at xs were appended to the model of v.
// When they extend the shared axis every window moves and all charts
// recompute their statistics. Otherwise only the chart of v does, and only
// when one of xs is inside its visible window. It reports whether
// statistics were recomputed.
func (c *Coordinator) Appended(v measurement.Variant, xs ...float64) bool {
	chart, ok := c.charts[v]
	if !ok {
		return false
	}
	if c.updateAxis() {
		c.refreshAll()
		return true
	}
	for _, x := range xs {
		if chart.Visible(x) {
			chart.Refresh()
			return true
		}
	}
	return false
}

// Close unsubscribes every chart.
func (c *Coordinator) Close() {
	for _, chart := range c.charts {
		chart.sub.Unsubscribe()
	}
	c.charts = make(map[measurement.Variant]*Chart)
	c.order = nil
	*c.axis = axis{}
}
