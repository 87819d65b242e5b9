// Package debounce delays a value until its input has been quiet for a fixed
// period. Each Push restarts the quiet period; only the last value pushed
// before the period elapses is delivered.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used by the station search.
const DefaultDelay = 200 * time.Millisecond

// State is the debouncer's position in its Idle -> Pending -> Fired cycle.
type State int

const (
	Idle State = iota
	Pending
	Fired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Debouncer delivers the latest pushed value to fire once input goes quiet.
// fire runs on the timer goroutine, never while the debouncer's lock is held.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(T)
	state   State
	timer   *time.Timer
	pending T
	seq     uint64
	stopped bool
}

// New returns an idle debouncer. A non-positive delay falls back to DefaultDelay.
func New[T any](delay time.Duration, fire func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fire: fire}
}

// Push records v and restarts the quiet period.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = v
	d.state = Pending
	d.timer = time.AfterFunc(d.delay, func() { d.elapse(seq) })
}

func (d *Debouncer[T]) elapse(seq uint64) {
	d.mu.Lock()
	// A timer that lost the race with Stop or a newer Push must not fire.
	if d.stopped || seq != d.seq || d.state != Pending {
		d.mu.Unlock()
		return
	}
	d.state = Fired
	v := d.pending
	d.mu.Unlock()

	d.fire(v)
}

// Cancel drops any pending value and returns to Idle. Later pushes still work.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Stop cancels any pending value and ignores every later Push.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	d.stopped = true
}

func (d *Debouncer[T]) reset() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	var zero T
	d.pending = zero
	d.state = Idle
}

func (d *Debouncer[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}
