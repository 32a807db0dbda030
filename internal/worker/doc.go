// Package worker implements the cooperative batch orchestrator shared
// by every long-running task (filter, rate, tag, index, search).
//
// A Worker is single-use: it moves from Idle through Running (with
// optional Paused excursions) to Finished, fanning items out to a
// bounded pool of parallel processors. Pause and stop are cooperative
// and coarse-grained: both take effect before the next item is
// dispatched, never mid-item, so responsiveness is bounded by one
// in-flight call. A stop also clears a pause, so a stopped-while-paused
// worker always drains.
//
// Item failures are converted to result values at the processing
// boundary; only an explicit stop ends a batch early, and every run
// terminates with a SummaryEvent.
package worker
