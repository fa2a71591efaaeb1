// Package average keeps a time-weighted moving average over a stream of
// latched values.
//
// Adding (0, 1) and then (3, 2) describes the step function
//
//	time  0 1 2 3
//	value 1 1 1 2
//
// so the average over a window of size 2 ending at 3 is 3/2, and over a
// window of size 4 it is 5/4.
package average

import (
	"errors"
	"fmt"

	"github.com/icodeforyou/powerwindow/types/maybe"
)

var (
	ErrInvalidWindowSize      = errors.New("window size must be greater than zero")
	ErrNonIncreasingTimestamp = errors.New("timestamp must be greater than the previous one")
)

const defaultRingCapacity = 16

// Tracker maintains the average of the latched value over the last
// windowSize time units, ending at the most recently added event.
// Each call to Add is amortized O(1).
//
// A Tracker is not safe for concurrent use.
type Tracker struct {
	windowSize uint64
	events     Queue
	// Most recent event evicted from the front of events. Its value is
	// still latched at the left edge of the window and its Time is moved
	// forward to the window start so it is never subtracted twice.
	lastPopped maybe.Maybe[Event]
	// Sum of value * latched units over [window start, newest event].
	sum float64
}

// New returns a tracker backed by a Ring.
func New(windowSize uint64) (*Tracker, error) {
	return NewWithQueue(windowSize, NewRing(defaultRingCapacity))
}

// NewWithQueue returns a tracker that keeps its events in q. The queue
// must be empty and is owned by the tracker afterwards.
func NewWithQueue(windowSize uint64, q Queue) (*Tracker, error) {
	if windowSize == 0 {
		return nil, fmt.Errorf("new tracker: %w", ErrInvalidWindowSize)
	}
	return &Tracker{windowSize: windowSize, events: q}, nil
}

func (t *Tracker) WindowSize() uint64 {
	return t.windowSize
}

// Len is the number of retained events.
func (t *Tracker) Len() int {
	return t.events.Len()
}

// Last returns the newest event, if any.
func (t *Tracker) Last() (Event, bool) {
	if t.events.Len() == 0 {
		return Event{}, false
	}
	return t.events.Back(), true
}

// Add appends an event and returns the current window average.
// timestamp must be strictly greater than the previous timestamp,
// otherwise Add panics with an error wrapping ErrNonIncreasingTimestamp.
func (t *Tracker) Add(timestamp uint64, value float64) float64 {
	avg, err := t.TryAdd(timestamp, value)
	if err != nil {
		panic(err)
	}
	return avg
}

// TryAdd is Add that reports a non-increasing timestamp as an error and
// leaves the tracker untouched.
func (t *Tracker) TryAdd(timestamp uint64, value float64) (float64, error) {
	if t.events.Len() > 0 {
		last := t.events.Back()
		if timestamp <= last.Time {
			return 0, fmt.Errorf("add event at %d after %d: %w", timestamp, last.Time, ErrNonIncreasingTimestamp)
		}
		// The previous value was already counted once, for its own unit.
		t.sum += last.Value * float64(timestamp-last.Time-1)
	}

	t.events.PushBack(Event{Time: timestamp, Value: value})
	t.sum += value

	var windowStart uint64
	if timestamp >= t.windowSize {
		windowStart = timestamp - t.windowSize + 1
	}

	for t.events.Front().Time < windowStart {
		front := t.events.PopFront()
		if lp, ok := t.lastPopped.Get(); ok {
			t.sum -= lp.Value * float64(front.Time-lp.Time)
		}
		t.lastPopped = maybe.Some(front)
	}

	actualStart := t.events.Front().Time
	if lp, ok := t.lastPopped.Get(); ok {
		if lp.Time < windowStart {
			t.sum -= lp.Value * float64(windowStart-lp.Time)
			lp.Time = windowStart
			t.lastPopped = maybe.Some(lp)
		}
		actualStart = min(lp.Time, actualStart)
	}

	// +1 in float space, the span may cover the whole uint64 range
	return t.sum / (float64(timestamp-actualStart) + 1), nil
}

// Reset drops all events. The window size is kept.
func (t *Tracker) Reset() {
	for t.events.Len() > 0 {
		t.events.PopFront()
	}
	t.lastPopped = maybe.None[Event]()
	t.sum = 0
}
