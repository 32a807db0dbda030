package worker

import "time"

// Event is a message sent from a running worker to its observer.
// Events for one worker are emitted by a single goroutine, so they are
// observed in emission order even though item completion order is
// unordered.
type Event interface {
	isEvent()
}

// StatusEvent carries a human-readable status line.
type StatusEvent struct {
	Message string
}

// ItemEvent reports the outcome of a single work item.
type ItemEvent struct {
	Result Result
}

// ProgressEvent reports batch progress after every completed item.
type ProgressEvent struct {
	Completed int
	Total     int
	Skipped   int
	ETA       time.Duration
}

// SummaryEvent is the terminal event of every run, including stopped
// and empty ones.
type SummaryEvent struct {
	Succeeded int
	Failed    int
	Skipped   int
	FromCache int
	Stopped   bool
	Elapsed   time.Duration
}

func (StatusEvent) isEvent()   {}
func (ItemEvent) isEvent()     {}
func (ProgressEvent) isEvent() {}
func (SummaryEvent) isEvent()  {}

// Item is one unit of batch work: a single source path. Task-specific
// parameters travel in the task's process function, not on the item.
type Item struct {
	Path string
}

// Result is the outcome of processing one item. Failures are values,
// not errors: a failed item never aborts its batch.
type Result struct {
	Path      string
	OK        bool
	FromCache bool
	Reason    string
	Data      any
}
