// Package progress tracks how many segments of a run have been translated.
package progress

import "sync/atomic"

// State is a point-in-time view of a run's progress.
type State struct {
	Completed int
	Total     int
}

// Fraction returns Completed/Total, or 1 for an empty run.
func (s State) Fraction() float64 {
	if s.Total <= 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// Sink receives every state change. It is called on the worker goroutine and
// must not block.
type Sink func(State)

// Reporter is written by one worker and may be read from any goroutine.
// Completed never decreases and never exceeds Total.
type Reporter struct {
	total     int
	completed atomic.Int64
	sink      Sink
}

func New(total int, sink Sink) *Reporter {
	if total < 0 {
		total = 0
	}
	return &Reporter{total: total, sink: sink}
}

// Advance adds by to Completed, clamped to Total. Non-positive values are ignored.
func (r *Reporter) Advance(by int) {
	if by <= 0 {
		return
	}
	for {
		cur := r.completed.Load()
		next := cur + int64(by)
		if next > int64(r.total) {
			next = int64(r.total)
		}
		if r.completed.CompareAndSwap(cur, next) {
			break
		}
	}
	if r.sink != nil {
		r.sink(r.Snapshot())
	}
}

func (r *Reporter) Snapshot() State {
	return State{Completed: int(r.completed.Load()), Total: r.total}
}
