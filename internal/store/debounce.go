package store

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces writes: only the latest scheduled write runs, once the
// window has passed without a newer one.
type Debouncer struct {
	window time.Duration
	report func(error)

	mu         sync.Mutex
	pending    func(context.Context) error
	timer      *time.Timer
	generation uint64

	// writeMu serializes writes so an older one never lands after a newer one
	writeMu sync.Mutex
}

// NewDebouncer creates a debouncer. report, when set, receives the result of
// every write. A window of zero or less writes immediately.
func NewDebouncer(window time.Duration, report func(error)) *Debouncer {
	return &Debouncer{window: window, report: report}
}

// Schedule replaces any pending write with write and restarts the window
func (d *Debouncer) Schedule(write func(context.Context) error) {
	if d.window <= 0 {
		d.mu.Lock()
		d.pending = write
		d.mu.Unlock()
		_ = d.run(context.Background(), 0)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = write
	d.generation++
	gen := d.generation
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		_ = d.run(context.Background(), gen)
	})
}

// Flush runs the pending write now, if any
func (d *Debouncer) Flush(ctx context.Context) error {
	return d.run(ctx, 0)
}

// Pending reports whether a write is waiting for its window
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// run executes the pending write. A non-zero gen only runs when it still
// matches the latest schedule, so a stale timer does nothing.
func (d *Debouncer) run(ctx context.Context, gen uint64) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.mu.Lock()
	if gen != 0 && gen != d.generation {
		d.mu.Unlock()
		return nil
	}
	write := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if write == nil {
		return nil
	}
	err := write(ctx)
	if d.report != nil {
		d.report(err)
	}
	return err
}
