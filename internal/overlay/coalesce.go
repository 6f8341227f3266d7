package overlay

import (
	"sort"
	"time"
)

// DefaultCoalesceInterval bounds placements to roughly 30 per second.
const DefaultCoalesceInterval = 34 * time.Millisecond

// Scheduler runs fn once after d. The returned cancel func prevents a fire
// that has not started yet; callers must still tolerate a late fire.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Coalescer is a trailing-edge throttle: values pushed within one interval
// collapse to the latest, which is applied exactly once when the interval ends.
// It is not safe for concurrent use; fires must arrive on the owning goroutine.
type Coalescer[T any] struct {
	sched    Scheduler
	interval time.Duration
	apply    func(T)

	pending    T
	hasPending bool
	armed      bool
	cancel     func()
	gen        uint64
	stopped    bool
}

// NewCoalescer creates a coalescer calling apply at most once per interval.
func NewCoalescer[T any](sched Scheduler, interval time.Duration, apply func(T)) *Coalescer[T] {
	if interval <= 0 {
		interval = DefaultCoalesceInterval
	}
	return &Coalescer[T]{sched: sched, interval: interval, apply: apply}
}

// Push replaces the pending value and arms the timer if it is idle.
func (c *Coalescer[T]) Push(v T) {
	if c.stopped {
		return
	}
	c.pending = v
	c.hasPending = true
	if c.armed {
		return
	}
	c.armed = true
	gen := c.gen
	c.cancel = c.sched.AfterFunc(c.interval, func() { c.fire(gen) })
}

func (c *Coalescer[T]) fire(gen uint64) {
	if c.stopped || gen != c.gen {
		return
	}
	c.armed = false
	c.cancel = nil
	c.drain()
}

func (c *Coalescer[T]) drain() {
	if !c.hasPending {
		return
	}
	v := c.pending
	var zero T
	c.pending = zero
	c.hasPending = false
	c.apply(v)
}

// Flush applies the pending value now and disarms the timer.
func (c *Coalescer[T]) Flush() {
	if c.stopped {
		return
	}
	c.disarm()
	c.drain()
}

// Stop discards any pending value. Fires already in flight become no-ops and
// later pushes are ignored.
func (c *Coalescer[T]) Stop() {
	c.stopped = true
	c.disarm()
	var zero T
	c.pending = zero
	c.hasPending = false
}

func (c *Coalescer[T]) disarm() {
	c.gen++
	c.armed = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Pending reports whether a value is waiting for the timer.
func (c *Coalescer[T]) Pending() bool {
	return c.hasPending
}

// ManualScheduler is a Scheduler driven by explicit Advance calls. Timers fire
// synchronously on the goroutine calling Advance, in deadline order.
type ManualScheduler struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.canceled = true }
}

// Advance moves the clock forward by d, firing every timer that comes due.
func (m *ManualScheduler) Advance(d time.Duration) {
	end := m.now + d
	for {
		t := m.next(end)
		if t == nil {
			break
		}
		m.now = t.at
		t.fn()
	}
	m.now = end
}

func (m *ManualScheduler) next(end time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.canceled {
			live = append(live, t)
		}
	}
	m.timers = live
	if len(m.timers) == 0 {
		return nil
	}
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	t := m.timers[0]
	if t.at > end {
		return nil
	}
	m.timers = m.timers[1:]
	return t
}

// Now returns the elapsed manual time.
func (m *ManualScheduler) Now() time.Duration {
	return m.now
}

// Pending returns the number of timers not yet fired or cancelled.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.canceled {
			n++
		}
	}
	return n
}
