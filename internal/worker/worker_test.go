package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Path: fmt.Sprintf("/photos/img-%03d.jpg", i)}
	}
	return items
}

// collect drains the event stream and returns item results, progress
// events, and the terminal summary.
func collect(t *testing.T, w *Worker) ([]Result, []ProgressEvent, SummaryEvent) {
	t.Helper()
	var results []Result
	var progress []ProgressEvent
	var summary SummaryEvent
	sawSummary := false

	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				if !sawSummary {
					t.Fatal("event stream closed without a summary")
				}
				return results, progress, summary
			}
			switch e := ev.(type) {
			case ItemEvent:
				results = append(results, e.Result)
			case ProgressEvent:
				progress = append(progress, e)
			case SummaryEvent:
				summary = e
				sawSummary = true
			}
		case <-timeout:
			t.Fatal("timed out draining events")
		}
	}
}

func TestRunProcessesAllItems(t *testing.T) {
	var calls atomic.Int32
	w := New("test", 4, func(_ context.Context, item Item) Result {
		calls.Add(1)
		return Result{Path: item.Path, OK: true}
	})

	if err := w.Start(context.Background(), makeItems(10)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, progress, summary := collect(t, w)

	if calls.Load() != 10 {
		t.Errorf("process calls = %d, want 10", calls.Load())
	}
	if len(results) != 10 {
		t.Errorf("item events = %d, want 10", len(results))
	}
	if summary.Succeeded != 10 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 10 succeeded", summary)
	}
	if w.State() != StateFinished {
		t.Errorf("state = %v, want finished", w.State())
	}

	// Progress completes monotonically and ends at the full count.
	last := 0
	for _, p := range progress {
		if p.Completed < last {
			t.Errorf("progress went backwards: %d after %d", p.Completed, last)
		}
		last = p.Completed
		if p.Total != 10 {
			t.Errorf("progress total = %d, want 10", p.Total)
		}
	}
	if last != 10 {
		t.Errorf("final progress = %d, want 10", last)
	}
}

func TestStartTwiceFails(t *testing.T) {
	w := New("test", 1, func(_ context.Context, item Item) Result {
		return Result{Path: item.Path, OK: true}
	})

	if err := w.Start(context.Background(), makeItems(1)); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := w.Start(context.Background(), makeItems(1)); err == nil {
		t.Error("second Start succeeded, want error: workers are single-use")
	}
	collect(t, w)
}

func TestBatchResilience(t *testing.T) {
	// Every 3rd item fails; the batch must still process all of them.
	w := New("test", 3, func(_ context.Context, item Item) Result {
		var n int
		fmt.Sscanf(item.Path, "/photos/img-%d.jpg", &n)
		if n%3 == 0 {
			return Result{Path: item.Path, Reason: "network timeout"}
		}
		return Result{Path: item.Path, OK: true}
	})

	if err := w.Start(context.Background(), makeItems(12)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, _, summary := collect(t, w)

	if len(results) != 12 {
		t.Errorf("processed = %d, want 12", len(results))
	}
	if summary.Failed != 4 {
		t.Errorf("failed = %d, want 4", summary.Failed)
	}
	if summary.Succeeded != 8 {
		t.Errorf("succeeded = %d, want 8", summary.Succeeded)
	}
}

func TestPanicIsolatedToItem(t *testing.T) {
	w := New("test", 2, func(_ context.Context, item Item) Result {
		if item.Path == "/photos/img-001.jpg" {
			panic(errors.New("corrupt header"))
		}
		return Result{Path: item.Path, OK: true}
	})

	if err := w.Start(context.Background(), makeItems(4)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, _, summary := collect(t, w)

	if summary.Failed != 1 || summary.Succeeded != 3 {
		t.Errorf("summary = %+v, want 3 succeeded / 1 failed", summary)
	}
}

func TestStopWhilePausedFinishes(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	w := New("test", 1, func(_ context.Context, item Item) Result {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return Result{Path: item.Path, OK: true}
	})

	if err := w.Start(context.Background(), makeItems(5)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-started
	w.Pause()
	if w.State() != StatePaused {
		t.Fatalf("state = %v after Pause, want paused", w.State())
	}

	// Stop while paused must clear the pause and drain, not hang.
	w.Stop()
	close(release)

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish after stop-while-paused")
	}

	_, _, summary := collect(t, w)
	if !summary.Stopped {
		t.Error("summary.Stopped = false, want true")
	}
	if w.State() != StateFinished {
		t.Errorf("state = %v, want finished", w.State())
	}
}

func TestStopSkipsPendingItems(t *testing.T) {
	var calls atomic.Int32
	blocker := make(chan struct{})
	w := New("test", 1, func(_ context.Context, item Item) Result {
		calls.Add(1)
		<-blocker
		return Result{Path: item.Path, OK: true}
	})

	if err := w.Start(context.Background(), makeItems(50)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let the first item get in flight, then stop.
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	w.Stop()
	close(blocker)
	w.Wait()

	if calls.Load() > 2 {
		t.Errorf("process calls = %d after stop, want pending items skipped", calls.Load())
	}
	collect(t, w)
}

func TestPauseResume(t *testing.T) {
	var calls atomic.Int32
	w := New("test", 1, func(_ context.Context, item Item) Result {
		calls.Add(1)
		return Result{Path: item.Path, OK: true}
	})

	w.Pause() // no-op while idle
	if w.State() != StateIdle {
		t.Errorf("Pause before Start moved state to %v", w.State())
	}

	if err := w.Start(context.Background(), makeItems(20)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Pause()
	w.Resume()
	results, _, summary := collect(t, w)

	if len(results) != 20 || summary.Succeeded != 20 {
		t.Errorf("got %d results, summary %+v; want all 20 processed", len(results), summary)
	}
}

func TestEmptyBatchEmitsSummary(t *testing.T) {
	w := New("test", 3, func(_ context.Context, item Item) Result {
		t.Error("process called for empty batch")
		return Result{}
	})

	if err := w.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, _, summary := collect(t, w)

	if len(results) != 0 {
		t.Errorf("item events = %d, want 0", len(results))
	}
	if summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want zero counts", summary)
	}
}

func TestPrefilterServesCachedResults(t *testing.T) {
	var rpcCalls atomic.Int32
	prefilter := func(_ context.Context, items []Item) ([]Item, []Result, error) {
		var remaining []Item
		var cached []Result
		for i, item := range items {
			if i%2 == 0 {
				cached = append(cached, Result{Path: item.Path, OK: true})
			} else {
				remaining = append(remaining, item)
			}
		}
		return remaining, cached, nil
	}

	w := New("test", 2, func(_ context.Context, item Item) Result {
		rpcCalls.Add(1)
		return Result{Path: item.Path, OK: true}
	}, WithPrefilter(prefilter))

	if err := w.Start(context.Background(), makeItems(10)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, _, summary := collect(t, w)

	if rpcCalls.Load() != 5 {
		t.Errorf("process calls = %d, want 5 (cached items bypass the pool)", rpcCalls.Load())
	}
	if len(results) != 10 {
		t.Errorf("item events = %d, want 10", len(results))
	}
	fromCache := 0
	for _, r := range results {
		if r.FromCache {
			fromCache++
		}
	}
	if fromCache != 5 || summary.FromCache != 5 {
		t.Errorf("from-cache results = %d (summary %d), want 5", fromCache, summary.FromCache)
	}
	if summary.Succeeded != 10 {
		t.Errorf("succeeded = %d, want 10", summary.Succeeded)
	}
}

func TestPrefilterSkipCounting(t *testing.T) {
	prefilter := func(_ context.Context, items []Item) ([]Item, []Result, error) {
		// Drop the first 3 items entirely: already indexed.
		return items[3:], nil, nil
	}

	w := New("test", 2, func(_ context.Context, item Item) Result {
		return Result{Path: item.Path, OK: true}
	}, WithPrefilter(prefilter))

	if err := w.Start(context.Background(), makeItems(8)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, progress, summary := collect(t, w)

	if summary.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", summary.Skipped)
	}
	if summary.Succeeded != 5 {
		t.Errorf("succeeded = %d, want 5", summary.Succeeded)
	}
	if len(progress) == 0 {
		t.Fatal("no progress events")
	}
	final := progress[len(progress)-1]
	if final.Completed != 8 || final.Skipped != 3 {
		t.Errorf("final progress = %+v, want completed=8 skipped=3", final)
	}
}

func TestETAClampedAtZeroCompleted(t *testing.T) {
	tr := newTracker(10)
	if eta := tr.eta(); eta != 0 {
		t.Errorf("eta = %v with zero completed, want 0", eta)
	}
}

func TestETAShrinksTowardCompletion(t *testing.T) {
	tr := newTracker(4)
	tr.start = time.Now().Add(-4 * time.Second)
	tr.completed = 2

	eta := tr.eta()
	// 2 items in ~4s leaves ~4s for the remaining 2.
	if eta < 3*time.Second || eta > 5*time.Second {
		t.Errorf("eta = %v, want about 4s", eta)
	}

	tr.completed = 4
	if eta := tr.eta(); eta != 0 {
		t.Errorf("eta = %v at completion, want 0", eta)
	}
}

func TestRunStateString(t *testing.T) {
	states := map[RunState]string{
		StateIdle:     "idle",
		StateRunning:  "running",
		StatePaused:   "paused",
		StateStopping: "stopping",
		StateFinished: "finished",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
