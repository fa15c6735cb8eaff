// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
)

// DefaultFlushDelay is how long the store must be quiet before a pending
// snapshot is written.
const DefaultFlushDelay = 5 * time.Second

// Debouncer coalesces bursts of MarkDirty calls into a single call of its
// flush function, made once delay has elapsed since the most recent mark.
// At most one timer is pending at any time and flushes never overlap.
type Debouncer struct {
	delay time.Duration
	flush func(context.Context) error

	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
	gen      uint64
	dirty    bool
	closed   bool
	running  chan struct{}

	flushMu sync.Mutex
}

// NewDebouncer returns a Debouncer calling flush delay after the last mark.
// A non-positive delay selects DefaultFlushDelay.
func NewDebouncer(delay time.Duration, flush func(context.Context) error) *Debouncer {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Debouncer{delay: delay, flush: flush}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// MarkDirty pushes the flush deadline out to now+delay, arming the timer if
// nothing is pending. Marks after Shutdown are ignored.
func (d *Debouncer) MarkDirty() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.Debug("cache writer is shut down, ignoring mark")
		return
	}

	d.dirty = true
	d.deadline = time.Now().Add(d.delay)
	if d.timer == nil {
		gen := d.gen
		d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
	}
}

// Pending reports whether state is waiting to be flushed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		// Stopped by FlushNow or Shutdown.
		d.mu.Unlock()
		return
	}
	if wait := time.Until(d.deadline); wait > 0 {
		d.timer.Reset(wait)
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.gen++
	if !d.dirty {
		d.mu.Unlock()
		return
	}
	d.dirty = false
	done := make(chan struct{})
	d.running = done
	d.mu.Unlock()

	if err := d.run(context.Background()); err != nil {
		log.WithError(err).Error("failed to write cache")
	}

	d.mu.Lock()
	if d.running == done {
		d.running = nil
	}
	d.mu.Unlock()
	close(done)
}

// run performs one flush. On failure the state is marked dirty again so the
// next mark or FlushNow retries it.
func (d *Debouncer) run(ctx context.Context) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	if err := d.flush(ctx); err != nil {
		d.mu.Lock()
		d.dirty = true
		d.mu.Unlock()
		return err
	}
	return nil
}

// FlushNow cancels any pending timer and, if there is unflushed state, writes
// it before returning. It also waits for a flush already in progress.
func (d *Debouncer) FlushNow(ctx context.Context) error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.gen++
	}
	dirty := d.dirty
	d.dirty = false
	running := d.running
	d.mu.Unlock()

	var err error
	if dirty {
		err = d.run(ctx)
	}
	if running == nil {
		return err
	}

	select {
	case <-running:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting marks and flushes anything still pending. Once it
// returns no further flushes will happen.
func (d *Debouncer) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	return d.FlushNow(ctx)
}
