package chart

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/sensorchart/internal/alert"
	"codeberg.org/mutker/sensorchart/internal/chartsync"
	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/live"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"codeberg.org/mutker/sensorchart/internal/series"
)

const (
	defaultCommandBuffer = 64
	defaultUpdateBuffer  = 16
)

// Options configures a View. Only Loader is required.
type Options struct {
	Loader Loader
	Alerts BoundsResolver
	// Calibration is read on the load goroutine with every load, through
	// measurement.CalibrationStore when implemented.
	Calibration measurement.CalibrationProvider
	Logger      logger.Logger
	// OnError receives load and poll failures, once per triggering action.
	// It runs on the view goroutine and must not call back into the view.
	OnError func(error)
	Now     func() time.Time
}

// UpdateType describes what changed in a view.
type UpdateType int

const (
	UpdateLoaded UpdateType = iota
	UpdateAppended
	UpdateTransformed
	UpdateHighlighted
	UpdateFailed
)

// Update is sent on the Updates channel after the view changed.
type Update struct {
	Type       UpdateType
	Generation uint64
	NoData     bool
	Err        error
}

// State describes the load status of a view.
type State struct {
	Generation uint64
	Loading    bool
	Loaded     bool
	// NoData is set after a successful load that produced no entry for
	// any variant, until a live record adds one.
	NoData  bool
	Err     error
	Scroll  live.State
	Pending int
}

// View owns the chart models of one sensor screen. All state is confined to
// a single goroutine that runs closures posted to a command channel; the
// exported methods are safe for concurrent use.
type View struct {
	opts Options
	log  logger.Logger

	cmds    chan func()
	done    chan struct{}
	updates chan Update

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Owned by the view goroutine.
	settings   Settings
	models     map[measurement.Variant]*series.Model
	charts     *chartsync.Coordinator
	live       *live.Coordinator
	generation uint64
	cancelLoad context.CancelFunc
	state      State
	backlog    []measurement.Record
	last       time.Time
	cal        measurement.Calibration
	stopping   bool
}

// fetched is what one load reads off the view goroutine.
type fetched struct {
	records   []measurement.Record
	cal       measurement.Calibration
	bounds    map[measurement.Variant]alert.Bounds
	err       error
	operation string
}

func New(opts Options) (*View, error) {
	if opts.Loader == nil {
		return nil, errors.New().WithMessage(errors.ErrInvalidArgument, "chart loader is nil")
	}
	if opts.Calibration == nil {
		opts.Calibration = measurement.NoCalibration
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		opts:    opts,
		log:     opts.Logger.With("chart"),
		cmds:    make(chan func(), defaultCommandBuffer),
		done:    make(chan struct{}),
		updates: make(chan Update, defaultUpdateBuffer),
		ctx:     ctx,
		cancel:  cancel,
		models:  make(map[measurement.Variant]*series.Model),
		charts:  chartsync.NewCoordinator(),
	}
	v.live = live.NewCoordinator(nil, nil, live.AppenderFunc(v.append))

	go v.run()

	return v, nil
}

func (v *View) run() {
	defer close(v.done)
	defer close(v.updates)

	for fn := range v.cmds {
		fn()
		if v.stopping {
			return
		}
	}
}

// do posts fn to the view goroutine. It reports false once the view is
// closed.
func (v *View) do(fn func()) bool {
	select {
	case <-v.done:
		return false
	default:
	}
	select {
	case v.cmds <- fn:
		return true
	case <-v.done:
		return false
	}
}

// call runs fn on the view goroutine and waits for it.
func (v *View) call(fn func()) bool {
	finished := make(chan struct{})
	if !v.do(func() { fn(); close(finished) }) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-v.done:
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

func closedError() error {
	return errors.New().WithMessage(ErrClosed, "chart view is closed")
}

// Updates delivers change notifications. Notifications are dropped when
// the receiver falls behind. The channel is closed by Close.
func (v *View) Updates() <-chan Update {
	return v.updates
}

// Reload applies settings and starts a history load, superseding any load
// in flight.
func (v *View) Reload(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s = s.clone()
	if !v.do(func() {
		v.applySettings(s)
		v.startLoad()
	}) {
		return closedError()
	}
	return nil
}

// Refresh reloads with the current settings, as done after a sync.
func (v *View) Refresh() error {
	if !v.do(func() {
		if v.settings.SensorID != "" {
			v.startLoad()
		}
	}) {
		return closedError()
	}
	return nil
}

// Deliver hands a live record to the view.
func (v *View) Deliver(r measurement.Record) error {
	if !v.do(func() { v.deliver(r) }) {
		return closedError()
	}
	return nil
}

// Poll fetches records newer than the latest one seen and applies them.
// It blocks on the store and must not be called from OnError.
func (v *View) Poll(ctx context.Context) error {
	var (
		sensorID string
		after    time.Time
	)
	if !v.call(func() { sensorID, after = v.settings.SensorID, v.last }) {
		return closedError()
	}
	if sensorID == "" {
		return nil
	}

	records, err := v.opts.Loader.Since(ctx, sensorID, after)
	if err != nil {
		wrapped := errors.New().Wrap(ErrPollFailed, err)
		v.do(func() {
			if v.settings.SensorID == sensorID {
				v.fail(wrapped, "poll")
			}
		})
		return wrapped
	}
	if len(records) == 0 {
		return nil
	}

	if !v.do(func() {
		if v.settings.SensorID != sensorID {
			return
		}
		for _, r := range records {
			if r.Timestamp.After(v.last) {
				v.deliver(r)
			}
		}
	}) {
		return closedError()
	}
	return nil
}

// OnScrollStart holds back live updates until OnScrollEnd.
func (v *View) OnScrollStart() {
	v.do(func() { v.live.ScrollStarted() })
}

// OnScrollEnd applies live updates queued during the gesture.
func (v *View) OnScrollEnd() {
	v.do(func() { v.live.ScrollEnded() })
}

// OnTransform applies a pan or zoom made on the chart of variant and
// mirrors it onto the others.
func (v *View) OnTransform(variant measurement.Variant, m chartsync.Transform) {
	v.do(func() {
		if v.charts.Transform(variant, m) {
			v.notify(Update{Type: UpdateTransformed})
		}
	})
}

// OnHighlight highlights the entry nearest to x on every chart.
func (v *View) OnHighlight(variant measurement.Variant, x float64) {
	v.do(func() {
		if v.charts.Highlight(variant, x) {
			v.notify(Update{Type: UpdateHighlighted})
		}
	})
}

// OnResetZoom shows the whole history on every chart.
func (v *View) OnResetZoom() {
	v.do(func() {
		v.charts.Reset()
		v.notify(Update{Type: UpdateTransformed})
	})
}

// Snapshot returns copies of the chart models in settings order.
func (v *View) Snapshot() []series.Snapshot {
	var out []series.Snapshot
	v.call(func() {
		out = make([]series.Snapshot, 0, len(v.settings.Variants))
		for _, variant := range v.settings.Variants {
			if m, ok := v.models[variant]; ok {
				out = append(out, m.Snapshot())
			}
		}
	})
	return out
}

// Stats returns the visible-range statistics of the chart of variant.
func (v *View) Stats(variant measurement.Variant) (series.Stats, bool) {
	var (
		stats series.Stats
		ok    bool
	)
	v.call(func() {
		if c, found := v.charts.Chart(variant); found {
			stats, ok = c.Stats()
		}
	})
	return stats, ok
}

// Highlighted returns the highlighted entry of the chart of variant.
func (v *View) Highlighted(variant measurement.Variant) (series.Entry, bool) {
	var (
		entry series.Entry
		ok    bool
	)
	v.call(func() {
		if c, found := v.charts.Chart(variant); found {
			entry, ok = c.Highlighted()
		}
	})
	return entry, ok
}

// Transform returns the current transform of the chart of variant.
func (v *View) Transform(variant measurement.Variant) (chartsync.Transform, bool) {
	var (
		t  chartsync.Transform
		ok bool
	)
	v.call(func() {
		if c, found := v.charts.Chart(variant); found {
			t, ok = c.Transform(), true
		}
	})
	return t, ok
}

// VisibleRange returns the time window shown by the chart of variant, in
// seconds. All charts of a view share one time axis.
func (v *View) VisibleRange(variant measurement.Variant) (xmin, xmax float64, ok bool) {
	v.call(func() {
		if c, found := v.charts.Chart(variant); found {
			xmin, xmax, ok = c.VisibleRange()
		}
	})
	return xmin, xmax, ok
}

// State returns the load status. A closed view returns the zero State.
func (v *View) State() State {
	var s State
	v.call(func() {
		s = v.state
		s.Generation = v.generation
		s.Scroll = v.live.State()
		s.Pending = v.live.Pending() + len(v.backlog)
	})
	return s
}

// Close cancels loads in flight, discards queued records and stops the
// view goroutine.
func (v *View) Close() error {
	v.closeOnce.Do(func() {
		v.cancel()
		v.do(func() {
			if v.cancelLoad != nil {
				v.cancelLoad()
				v.cancelLoad = nil
			}
			v.live.Discard()
			v.backlog = nil
			v.charts.Close()
			v.stopping = true
		})
		<-v.done
		v.log.Debug().Msg("chart view closed")
	})
	return nil
}

func (v *View) applySettings(s Settings) {
	if s.SensorID != v.settings.SensorID {
		v.charts.Close()
		v.models = make(map[measurement.Variant]*series.Model)
		v.live.Discard()
		v.backlog = nil
		v.last = time.Time{}
		v.cal = measurement.Calibration{}
		v.state = State{}
	}

	wanted := make(map[measurement.Variant]bool, len(s.Variants))
	variants := make([]measurement.Variant, 0, len(s.Variants))
	for _, variant := range s.Variants {
		if wanted[variant] {
			continue
		}
		wanted[variant] = true
		variants = append(variants, variant)
		if _, ok := v.models[variant]; !ok {
			m := series.NewModel(variant)
			v.models[variant] = m
			v.charts.Add(m)
		}
	}
	for variant := range v.models {
		if !wanted[variant] {
			delete(v.models, variant)
			v.charts.Remove(variant)
		}
	}

	s.Variants = variants
	v.settings = s
	v.live.Configure(series.NewBuilder(v.cal), variants)
}

func (v *View) startLoad() {
	if v.cancelLoad != nil {
		v.cancelLoad()
	}
	v.generation++
	gen := v.generation
	ctx, cancel := context.WithCancel(v.ctx)
	v.cancelLoad = cancel
	v.state.Loading = true

	s := v.settings.clone()
	since := s.Since(v.opts.Now())
	v.log.Debug().
		Str("sensor", s.SensorID).
		Uint64("generation", gen).
		Time("since", since).
		Bool("full", s.ShowAll).
		Msg("loading history")

	go func() {
		f := v.fetch(ctx, s, since)
		v.do(func() { v.loaded(gen, s, f) })
	}()
}

// fetch reads everything a load needs. It runs off the view goroutine and
// only touches immutable options.
func (v *View) fetch(ctx context.Context, s Settings, since time.Time) fetched {
	cal, err := measurement.ReadCalibration(ctx, v.opts.Calibration, s.SensorID)
	if err != nil {
		return fetched{err: err, operation: "calibration"}
	}

	bounds := make(map[measurement.Variant]alert.Bounds, len(s.Variants))
	if v.opts.Alerts != nil {
		for _, variant := range s.Variants {
			b, ok, err := v.opts.Alerts.Fetch(ctx, s.SensorID, variant)
			if err != nil {
				return fetched{err: err, operation: "alerts"}
			}
			if ok {
				bounds[variant] = b
			}
		}
	}

	records, err := v.opts.Loader.Load(ctx, s.SensorID, since, s.ShowAll)
	if err != nil {
		return fetched{err: err, operation: "load"}
	}
	return fetched{records: records, cal: cal, bounds: bounds}
}

func (v *View) loaded(gen uint64, s Settings, f fetched) {
	if gen != v.generation {
		v.log.Debug().Uint64("generation", gen).Msg("dropping superseded load")
		return
	}
	v.cancelLoad()
	v.cancelLoad = nil
	v.state.Loading = false

	backlog := v.backlog
	v.backlog = nil

	if f.err != nil {
		if v.ctx.Err() != nil {
			return
		}
		v.fail(errors.New().Wrap(ErrLoadChart, f.err), f.operation)
		v.ingest(backlog, time.Time{})
		return
	}

	records := f.records
	v.cal = f.cal
	builder := series.NewBuilder(f.cal)
	v.live.Configure(builder, s.Variants)

	built := builder.Build(records, s.Variants)
	noData := true
	for _, variant := range s.Variants {
		m := v.models[variant]
		m.Replace(built[variant])
		b, ok := f.bounds[variant]
		m.SetBounds(b, ok)
		if m.Len() > 0 {
			noData = false
		}
	}
	if n := len(records); n > 0 && records[n-1].Timestamp.After(v.last) {
		v.last = records[n-1].Timestamp
	}
	v.charts.Refresh()

	v.state.Loaded = true
	v.state.NoData = noData
	v.state.Err = nil

	v.log.Debug().
		Str("sensor", s.SensorID).
		Uint64("generation", gen).
		Int("records", len(records)).
		Bool("no_data", noData).
		Msg("history loaded")
	v.notify(Update{Type: UpdateLoaded, Generation: gen, NoData: noData})

	var loadedUntil time.Time
	if n := len(records); n > 0 {
		loadedUntil = records[n-1].Timestamp
	}
	v.ingest(backlog, loadedUntil)
}

// ingest applies records that are newer than after.
func (v *View) ingest(records []measurement.Record, after time.Time) {
	for _, r := range records {
		if after.IsZero() || r.Timestamp.After(after) {
			v.live.Ingest(r)
		}
	}
}

func (v *View) deliver(r measurement.Record) {
	if v.settings.SensorID == "" || (r.SensorID != "" && r.SensorID != v.settings.SensorID) {
		return
	}
	if r.Timestamp.After(v.last) {
		v.last = r.Timestamp
	}
	if v.state.Loading {
		v.backlog = append(v.backlog, r)
		return
	}
	v.live.Ingest(r)
}

func (v *View) append(batch map[measurement.Variant][]series.Entry) {
	changed := false
	for variant, entries := range batch {
		m, ok := v.models[variant]
		if !ok || len(entries) == 0 {
			continue
		}
		m.Append(entries...)
		xs := make([]float64, len(entries))
		for i, e := range entries {
			xs[i] = e.X
		}
		v.charts.Appended(variant, xs...)
		changed = true
	}
	if changed {
		v.state.NoData = false
		v.notify(Update{Type: UpdateAppended, Generation: v.generation})
	}
}

func (v *View) fail(err errors.Error, operation string) {
	v.state.Err = err
	v.log.ErrorWithCode(err).
		Str("operation", operation).
		Str("sensor", v.settings.SensorID).
		Send()
	v.opts.OnError(err)
	v.notify(Update{Type: UpdateFailed, Generation: v.generation, Err: err})
}

func (v *View) notify(u Update) {
	select {
	case v.updates <- u:
	default:
	}
}
