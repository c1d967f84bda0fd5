// Package sim provides the discrete-event substrate of the simulation: a
// virtual clock with an ordered event queue. Every delay in the system (door
// cycles, travel, charging, patience timers) is an event scheduled here, so
// outcomes are reproducible and simulation speed is a single knob.
package sim

import (
	"container/heap"
	"log/slog"
	"time"
)

// Event is a scheduled callback. It stays cancellable until it fires.
type Event struct {
	at    time.Time
	seq   uint64
	fn    func()
	clock *Clock
	index int // position in the heap, -1 once fired or cancelled
}

// Pending reports whether the event is still queued.
func (e *Event) Pending() bool {
	return e != nil && e.index >= 0
}

// Cancel removes the event from the queue. Safe to call twice or after the
// event has fired.
func (e *Event) Cancel() {
	if !e.Pending() {
		return
	}
	heap.Remove(&e.clock.queue, e.index)
	e.index = -1
}

// Reschedule moves a still-pending event to now+d, keeping its callback.
// Used to extend a door hold without rebuilding the cycle.
func (e *Event) Reschedule(d time.Duration) {
	if !e.Pending() {
		return
	}
	if d < 0 {
		d = 0
	}
	e.at = e.clock.now.Add(d)
	e.clock.seq++
	e.seq = e.clock.seq
	heap.Fix(&e.clock.queue, e.index)
}

// Clock is the virtual clock. Events at equal virtual time run in the order
// they were scheduled. All callbacks execute on the goroutine driving the
// clock, which is what lets cars and actors mutate their own state without
// locks.
type Clock struct {
	now     time.Time
	seq     uint64
	queue   eventQueue
	scale   float64
	stopped bool
}

// NewClock creates a clock starting at the given virtual instant. scale > 0
// paces Run against wall time (1 = real time); scale 0 free-runs.
func NewClock(start time.Time, scale float64) *Clock {
	return &Clock{now: start, scale: scale}
}

func (c *Clock) Now() time.Time { return c.now }

// Schedule queues fn to run after virtual delay d. Negative delays clamp to
// zero, keeping FIFO order within the current instant.
func (c *Clock) Schedule(d time.Duration, fn func()) *Event {
	if d < 0 {
		d = 0
	}
	c.seq++
	e := &Event{at: c.now.Add(d), seq: c.seq, fn: fn, clock: c}
	heap.Push(&c.queue, e)
	return e
}

// Step runs the next due event, advancing the clock to its timestamp.
// Returns false when the queue is empty.
func (c *Clock) Step() bool {
	if c.queue.Len() == 0 {
		return false
	}
	e := heap.Pop(&c.queue).(*Event)
	e.index = -1
	if e.at.After(c.now) {
		c.now = e.at
	}
	e.fn()
	return true
}

// Run drains the queue until it is empty or Stop is called. With a positive
// scale each virtual delay is slept off in wall time.
func (c *Clock) Run() {
	c.stopped = false
	for !c.stopped && c.queue.Len() > 0 {
		if c.scale > 0 {
			if wait := c.queue[0].at.Sub(c.now); wait > 0 {
				time.Sleep(time.Duration(float64(wait) / c.scale))
			}
		}
		c.Step()
	}
}

// RunFor drains events up to the virtual horizon d from now and leaves the
// clock at the horizon. Never sleeps; this is the test driver.
func (c *Clock) RunFor(d time.Duration) {
	c.RunUntil(c.now.Add(d))
}

// RunUntil drains events scheduled at or before t.
func (c *Clock) RunUntil(t time.Time) {
	for c.queue.Len() > 0 && !c.queue[0].at.After(t) {
		c.Step()
	}
	if t.After(c.now) {
		c.now = t
	}
}

// Stop halts Run and cancels every outstanding event.
func (c *Clock) Stop() {
	c.stopped = true
	n := c.queue.Len()
	for _, e := range c.queue {
		e.index = -1
	}
	c.queue = c.queue[:0]
	if n > 0 {
		slog.Debug("clock stopped", "cancelledEvents", n)
	}
}

// eventQueue is a min-heap ordered by (time, seq).
type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	e := x.(*Event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
