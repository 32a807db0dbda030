package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"photo-curator/internal/logging"
	"photo-curator/internal/metrics"
)

// RunState is the lifecycle state of a Worker instance.
type RunState int32

const (
	// StateIdle is the state before Start.
	StateIdle RunState = iota
	// StateRunning means items are being dispatched.
	StateRunning
	// StatePaused means dispatch is blocked at the pause gate.
	StatePaused
	// StateStopping means a stop was requested and in-flight items are draining.
	StateStopping
	// StateFinished is the terminal state. A worker is single-use.
	StateFinished
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ProcessFunc performs the substantive per-item work (decode, RPC call,
// store write). It must return a Result rather than panic; panics are
// recovered and converted into failed results anyway.
type ProcessFunc func(ctx context.Context, item Item) Result

// PrefilterFunc runs once before the pool starts. It partitions the
// batch into items that still need work and results that can be served
// from a persistent cache; items in neither set are counted as skipped.
// The snapshot is taken before any parallel work begins, so one run
// never processes the same item twice.
type PrefilterFunc func(ctx context.Context, items []Item) (remaining []Item, cached []Result, err error)

// Worker is the shared shape of every batch task: a single-use
// orchestrating loop fanning items out to a bounded pool, with
// cooperative pause/resume/stop and progress reporting.
type Worker struct {
	name      string
	poolSize  int
	process   ProcessFunc
	prefilter PrefilterFunc

	state  atomic.Int32
	gate   *pauseGate
	stop   chan struct{}
	events chan Event
	done   chan struct{}
}

// Option configures a Worker.
type Option func(*Worker)

// WithPrefilter installs the cache-lookup pass that runs before the pool.
func WithPrefilter(f PrefilterFunc) Option {
	return func(w *Worker) { w.prefilter = f }
}

// New creates a worker named for logging, fanning out to poolSize
// parallel item processors.
func New(name string, poolSize int, process ProcessFunc, opts ...Option) *Worker {
	if poolSize < 1 {
		poolSize = 1
	}
	w := &Worker{
		name:     name,
		poolSize: poolSize,
		process:  process,
		gate:     newPauseGate(),
		stop:     make(chan struct{}),
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current lifecycle state.
func (w *Worker) State() RunState {
	return RunState(w.state.Load())
}

// Events returns the worker's event stream. It is closed after the
// terminal SummaryEvent.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Start begins processing items in a background goroutine. It may only
// be called once per instance; a finished worker is discarded, not reset.
func (w *Worker) Start(ctx context.Context, items []Item) error {
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("worker %s already started", w.name)
	}
	go w.run(ctx, items)
	return nil
}

// Pause blocks dispatch before the next item. It does not suspend an
// item that has already started; pause latency is bounded by one item.
func (w *Worker) Pause() {
	if w.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		w.gate.pause()
		logging.Debug("%s worker paused", w.name)
	}
}

// Resume unblocks a paused worker.
func (w *Worker) Resume() {
	if w.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		w.gate.resume()
		logging.Debug("%s worker resumed", w.name)
	}
}

// Stop requests a best-effort stop: items not yet started are skipped,
// in-flight calls run to completion. Stop also clears a pause so a
// stopped-while-paused worker drains instead of hanging.
func (w *Worker) Stop() {
	swapped := w.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) ||
		w.state.CompareAndSwap(int32(StatePaused), int32(StateStopping))
	if swapped {
		close(w.stop)
		w.gate.resume()
		logging.Debug("%s worker stop requested", w.name)
	}
}

// Wait blocks until the run has finished.
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) stopRequested() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (w *Worker) emit(ev Event) {
	w.events <- ev
}

// run is the orchestrating loop. Cleanup (closing the event stream,
// recording the terminal state) is guaranteed regardless of early stop.
func (w *Worker) run(ctx context.Context, items []Item) {
	start := time.Now()
	summary := SummaryEvent{}

	defer func() {
		summary.Elapsed = time.Since(start)
		summary.Stopped = w.stopRequested()
		w.state.Store(int32(StateFinished))
		w.emit(summary)
		close(w.events)
		close(w.done)
		metrics.BatchDuration.WithLabelValues(w.name).Observe(summary.Elapsed.Seconds())
		logging.Info("%s worker finished: %d ok, %d failed, %d skipped, %d cached (stopped=%v)",
			w.name, summary.Succeeded, summary.Failed, summary.Skipped, summary.FromCache, summary.Stopped)
	}()

	total := len(items)
	if total == 0 {
		w.emit(StatusEvent{Message: "No items to process."})
		return
	}

	remaining := items
	if w.prefilter != nil {
		var cached []Result
		var err error
		remaining, cached, err = w.prefilter(ctx, items)
		if err != nil {
			w.emit(StatusEvent{Message: fmt.Sprintf("Cache lookup failed: %v", err)})
			remaining = items
		}
		summary.Skipped = total - len(remaining) - len(cached)

		// Cached results are emitted immediately; they never join the pool.
		for _, res := range cached {
			res.FromCache = true
			summary.Succeeded++
			summary.FromCache++
			w.emit(ItemEvent{Result: res})
			metrics.ItemsProcessedTotal.WithLabelValues(w.name, "cached").Inc()
		}
		if len(cached) > 0 || summary.Skipped > 0 {
			w.emit(StatusEvent{Message: fmt.Sprintf("%d served from cache, %d skipped, %d to process",
				len(cached), summary.Skipped, len(remaining))})
			w.emit(ProgressEvent{Completed: total - len(remaining), Total: total, Skipped: summary.Skipped})
		}
	}

	if len(remaining) == 0 || w.stopRequested() {
		return
	}

	metrics.WorkerPoolSize.Set(float64(w.poolSize))
	logging.Debug("%s worker: processing %d items with %d workers", w.name, len(remaining), w.poolSize)

	results := make(chan Result)
	var g errgroup.Group
	g.SetLimit(w.poolSize)

	// Dispatcher: checks the pause gate and the stop flag before every
	// item. In-flight calls are never interrupted; stop takes effect at
	// the next poll point.
	go func() {
		for _, item := range remaining {
			if w.gate.wait(ctx) != nil || w.stopRequested() || ctx.Err() != nil {
				break
			}
			item := item
			g.Go(func() error {
				results <- w.safeProcess(ctx, item)
				return nil
			})
		}
		g.Wait() //nolint:errcheck // item failures are result values, not errors
		close(results)
	}()

	// Collector: the only goroutine that emits events, preserving
	// emission order. After a stop, straggler results are drained but
	// not reported.
	base := total - len(remaining)
	progress := newTracker(len(remaining))
	for res := range results {
		if w.stopRequested() {
			continue
		}
		if res.OK {
			summary.Succeeded++
			metrics.ItemsProcessedTotal.WithLabelValues(w.name, "ok").Inc()
		} else {
			summary.Failed++
			metrics.ItemsProcessedTotal.WithLabelValues(w.name, "failed").Inc()
		}
		completed, eta := progress.complete()
		w.emit(ItemEvent{Result: res})
		w.emit(ProgressEvent{Completed: base + completed, Total: total, Skipped: summary.Skipped, ETA: eta})
	}
}

// safeProcess runs the per-item function, converting panics into failed
// results so a bad item cannot take down the batch.
func (w *Worker) safeProcess(ctx context.Context, item Item) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("%s worker: panic processing %s: %v", w.name, item.Path, r)
			res = Result{Path: item.Path, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return w.process(ctx, item)
}
