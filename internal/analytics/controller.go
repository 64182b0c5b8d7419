package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher retrieves analytics for a filter. Failures should be *QueryError so the
// controller can show the right message; other errors are treated as transport
// failures.
type Fetcher interface {
	FetchAnalytics(ctx context.Context, filter Filter) (*Result, error)
}

// Recorder receives query outcome metrics.
type Recorder interface {
	RecordQuery(ctx context.Context, outcome string, duration time.Duration)
	RecordStale(ctx context.Context)
}

// Outcome labels passed to Recorder.RecordQuery besides the ErrorKind values.
const OutcomeSuccess = "success"

// State is a consistent snapshot of the controller.
type State struct {
	// Version increases on every state change.
	Version uint64
	// Seq is the sequence number of the latest issued query.
	Seq uint64

	Phase   Phase
	Result  *Result
	Error   string
	Filter  Filter
	Applied Filter
}

// ControllerConfig holds configuration for the query controller.
type ControllerConfig struct {
	// Fetcher performs the analytics queries (required).
	Fetcher Fetcher

	// Logger for controller operations.
	Logger zerolog.Logger

	// Metrics records query outcomes (optional).
	Metrics Recorder
}

// Controller owns the analytics view state: filter inputs, the fetch lifecycle and
// the latest result.
//
// Overlapping queries are allowed and each one reaches the endpoint. Every query is
// tagged with a sequence number and only the most recently issued one may write its
// outcome; older resolutions are dropped.
type Controller struct {
	fetcher Fetcher
	logger  zerolog.Logger
	metrics Recorder

	activate sync.Once

	mu      sync.RWMutex
	version uint64
	seq     uint64
	phase   Phase
	result  *Result
	errMsg  string
	filter  Filter
	applied Filter

	subMu     sync.RWMutex
	nextSubID int
	subs      map[int]func(State)
}

// NewController creates a controller in the idle phase with an empty filter.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		phase:   PhaseIdle,
		subs:    make(map[int]func(State)),
	}
}

// Activate runs the unfiltered baseline query the first time the view becomes
// active. Later calls return the current state without querying.
func (c *Controller) Activate(ctx context.Context) State {
	ran := false
	var st State
	c.activate.Do(func() {
		ran = true
		st = c.RunQuery(ctx, Filter{})
	})
	if !ran {
		return c.Snapshot()
	}
	return st
}

// SetFilter replaces the filter inputs without querying.
func (c *Controller) SetFilter(f Filter) State {
	c.mu.Lock()
	c.filter = f
	st := c.commitLocked()
	c.mu.Unlock()

	c.publish(st)
	return st
}

// Query runs a query with the current filter inputs.
func (c *Controller) Query(ctx context.Context) State {
	c.mu.RLock()
	f := c.filter
	c.mu.RUnlock()

	return c.RunQuery(ctx, f)
}

// RunQuery fetches analytics for f and returns the state after resolution. The
// prior result and error are cleared as soon as the query is issued.
func (c *Controller) RunQuery(ctx context.Context, f Filter) State {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.phase = PhaseLoading
	c.result = nil
	c.errMsg = ""
	c.applied = f
	loading := c.commitLocked()
	c.mu.Unlock()

	c.publish(loading)

	c.logger.Debug().
		Uint64("seq", seq).
		Str("city", f.City).
		Str("start", f.Start).
		Str("end", f.End).
		Msg("running analytics query")

	start := time.Now()
	result, err := c.fetcher.FetchAnalytics(ctx, f)
	duration := time.Since(start)

	c.mu.Lock()
	if seq != c.seq {
		st := c.snapshotLocked()
		c.mu.Unlock()

		c.logger.Debug().
			Uint64("seq", seq).
			Uint64("latest_seq", st.Seq).
			Msg("discarding stale analytics response")
		if c.metrics != nil {
			c.metrics.RecordStale(ctx)
		}
		return st
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = string(errorKind(err))
		c.phase = PhaseError
		c.result = nil
		c.errMsg = errorMessage(err)
	} else if result == nil {
		outcome = string(KindTransport)
		c.phase = PhaseError
		c.errMsg = FallbackErrorMessage
	} else {
		c.phase = PhaseSuccess
		c.result = result
	}
	st := c.commitLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().
			Err(err).
			Uint64("seq", seq).
			Str("kind", outcome).
			Dur("duration", duration).
			Msg("analytics query failed")
	} else {
		c.logger.Info().
			Uint64("seq", seq).
			Str("city", f.City).
			Dur("duration", duration).
			Msg("analytics query completed")
	}
	if c.metrics != nil {
		c.metrics.RecordQuery(ctx, outcome, duration)
	}

	c.publish(st)
	return st
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// View returns the render-ready view of the current state.
func (c *Controller) View() View {
	return BuildView(c.Snapshot())
}

// Export renders the loaded result as CSV, labelled with the city of the query that
// produced it. It returns false when no result is loaded.
func (c *Controller) Export() (*Export, bool) {
	st := c.Snapshot()
	return ExportCSV(st.Result, st.Applied.City)
}

// ExportTo hands the current export to saver. It is a no-op returning false when
// no result is loaded.
func (c *Controller) ExportTo(ctx context.Context, saver Saver) (bool, error) {
	export, ok := c.Export()
	if !ok {
		return false, nil
	}
	if err := saver.Save(ctx, export); err != nil {
		return false, err
	}

	c.logger.Info().
		Str("filename", export.Filename).
		Int("bytes", len(export.Data)).
		Msg("analytics exported")
	return true, nil
}

// Subscribe registers fn to receive every state change. fn runs on the goroutine
// that caused the change and must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) publish(st State) {
	c.subMu.RLock()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(st)
	}
}

// commitLocked bumps the version and returns the new snapshot. c.mu must be held.
func (c *Controller) commitLocked() State {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	return State{
		Version: c.version,
		Seq:     c.seq,
		Phase:   c.phase,
		Result:  c.result,
		Error:   c.errMsg,
		Filter:  c.filter,
		Applied: c.applied,
	}
}
