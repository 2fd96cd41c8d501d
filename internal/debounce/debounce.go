// Package debounce delays a function until its input has been quiet for a
// while. Each new input cancels the pending run and the context of any run
// still in flight.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Func is the debounced work. ctx is cancelled when newer input arrives.
type Func func(ctx context.Context)

// Debouncer schedules at most one pending Func.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	pending Func
	ctx     context.Context
	cancel  context.CancelFunc

	running sync.WaitGroup
}

// New creates a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger replaces whatever is pending with fn, to run after the quiet
// period unless superseded. The run's context derives from ctx.
func (d *Debouncer) Trigger(ctx context.Context, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn, ctx := d.take()
	d.mu.Unlock()

	defer d.running.Done()
	fn(ctx)
}

// take claims the pending run. Caller holds mu.
func (d *Debouncer) take() (Func, context.Context) {
	fn := d.pending
	d.pending = nil
	d.running.Add(1)
	return fn, d.ctx
}

// Flush runs the pending Func now, if any, and waits for every run in
// flight to return.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	var (
		fn  Func
		ctx context.Context
	)
	if d.pending != nil {
		if d.timer != nil {
			d.timer.Stop()
		}
		fn, ctx = d.take()
	}
	d.mu.Unlock()

	if fn != nil {
		func() {
			defer d.running.Done()
			fn(ctx)
		}()
	}
	d.running.Wait()
}

// Stop drops the pending Func and cancels any run in flight.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pending = nil
}
