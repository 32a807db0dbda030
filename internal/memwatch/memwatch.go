package memwatch

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"photo-curator/internal/logging"
	"photo-curator/internal/metrics"
)

// DefaultCheckInterval is how often the watcher samples heap usage.
const DefaultCheckInterval = 5 * time.Second

// DefaultWaterMark is the heap fraction of the limit that triggers relief.
const DefaultWaterMark = 0.85

// Watcher samples heap usage during long batch runs and, when usage
// crosses the water mark of the process memory limit, invokes the
// relief callback (dropping the decoded thumbnail tier) and forces a
// collection. With no limit configured it does nothing.
type Watcher struct {
	limit     int64
	waterMark float64
	interval  time.Duration
	relieve   func()

	mu       sync.Mutex
	relieved bool
	reliefs  int

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher with the limit taken from GOMEMLIMIT. relieve
// is called at most once per pressure episode.
func New(relieve func()) *Watcher {
	var limit int64
	if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
		limit = goMemLimit
		logging.Debug("Memory watcher using GOMEMLIMIT: %.1f MB", float64(limit)/(1024*1024))
	}

	return &Watcher{
		limit:     limit,
		waterMark: DefaultWaterMark,
		interval:  DefaultCheckInterval,
		relieve:   relieve,
		stop:      make(chan struct{}),
	}
}

// Start begins sampling in a background goroutine. Without a configured
// limit it is a no-op.
func (w *Watcher) Start() {
	if w.limit == 0 {
		logging.Debug("Memory watcher disabled: no GOMEMLIMIT set")
		return
	}
	go w.loop()
}

// Stop halts sampling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Reliefs returns how many times the relief callback has fired.
func (w *Watcher) Reliefs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reliefs
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) check() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	usage := float64(stats.Alloc) / float64(w.limit)
	metrics.MemoryUsageRatio.Set(usage)

	w.mu.Lock()
	defer w.mu.Unlock()

	if usage >= w.waterMark {
		if !w.relieved {
			logging.Warn("Memory pressure (%.0f%% of limit), dropping decoded thumbnails", usage*100)
			w.relieved = true
			w.reliefs++
			metrics.MemoryReliefsTotal.Inc()
			if w.relieve != nil {
				w.relieve()
			}
			runtime.GC()
		}
		return
	}
	if w.relieved && usage < w.waterMark*0.8 {
		logging.Debug("Memory pressure cleared (%.0f%% of limit)", usage*100)
		w.relieved = false
	}
}
