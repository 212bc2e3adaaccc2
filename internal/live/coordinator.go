package live

import (
	"slices"

	"codeberg.org/mutker/sensorchart/internal/measurement"
	"codeberg.org/mutker/sensorchart/internal/series"
)

// State is the gesture state of a chart view.
type State int

const (
	// Active applies live records immediately.
	Active State = iota
	// Scrolling queues live records until the gesture ends.
	Scrolling
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Scrolling:
		return "scrolling"
	default:
		return "unknown"
	}
}

// Appender receives built entries. Entries of each variant are ordered by x.
type Appender interface {
	Append(batch map[measurement.Variant][]series.Entry)
}

// AppenderFunc adapts a function to Appender.
type AppenderFunc func(batch map[measurement.Variant][]series.Entry)

func (f AppenderFunc) Append(batch map[measurement.Variant][]series.Entry) { f(batch) }

// Coordinator applies live records to chart models, holding them back while
// the user scrolls. It is not safe for concurrent use; the owning view
// calls it from its own goroutine.
type Coordinator struct {
	builder  *series.Builder
	variants []measurement.Variant
	out      Appender

	state   State
	pending []measurement.Record
}

func NewCoordinator(builder *series.Builder, variants []measurement.Variant, out Appender) *Coordinator {
	return &Coordinator{
		builder:  builder,
		variants: slices.Clone(variants),
		out:      out,
	}
}

// Configure replaces the builder and variants used for later records, as
// happens when units or calibration change.
func (c *Coordinator) Configure(builder *series.Builder, variants []measurement.Variant) {
	c.builder = builder
	c.variants = slices.Clone(variants)
}

func (c *Coordinator) State() State { return c.state }

// Pending returns the number of queued records.
func (c *Coordinator) Pending() int { return len(c.pending) }

// Ingest applies r now, or queues it while scrolling.
func (c *Coordinator) Ingest(r measurement.Record) {
	if c.state == Scrolling {
		c.pending = append(c.pending, r)
		return
	}
	c.apply([]measurement.Record{r})
}

// ScrollStarted holds back live records until ScrollEnded.
func (c *Coordinator) ScrollStarted() {
	c.state = Scrolling
}

// ScrollEnded returns to Active and flushes queued records in timestamp
// order as one batch.
func (c *Coordinator) ScrollEnded() {
	if c.state != Scrolling {
		return
	}
	c.state = Active
	if len(c.pending) == 0 {
		return
	}

	batch := c.pending
	c.pending = nil
	slices.SortStableFunc(batch, func(a, b measurement.Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	c.apply(batch)
}

// Discard drops queued records without applying them.
func (c *Coordinator) Discard() {
	c.pending = nil
}

func (c *Coordinator) apply(records []measurement.Record) {
	if c.out == nil || c.builder == nil || len(c.variants) == 0 {
		return
	}
	built := c.builder.Build(records, c.variants)
	for v, entries := range built {
		if len(entries) == 0 {
			delete(built, v)
		}
	}
	if len(built) > 0 {
		c.out.Append(built)
	}
}
