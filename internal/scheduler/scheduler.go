// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package scheduler runs a callback repeatedly on a background goroutine.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// RepeatTimer calls a function once per interval. The next firing is armed
// only after the callback returns, so a slow callback lengthens the period
// instead of overlapping itself.
type RepeatTimer struct {
	mu     sync.Mutex
	stop   chan struct{} // closed by Stop; nil when idle
	done   chan struct{} // closed when the current loop exits
	logger *zap.Logger
	name   string
}

// New creates an idle timer. name tags log lines.
func New(name string, logger *zap.Logger) *RepeatTimer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepeatTimer{name: name, logger: logger}
}

// Start begins calling fn every interval. A running loop is stopped and
// replaced; the new loop does not fire until the old one, including any
// callback in progress, has exited. Start may be called from the callback.
func (r *RepeatTimer) Start(interval time.Duration, fn func()) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if fn == nil {
		return fmt.Errorf("scheduler: nil callback")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		close(r.stop)
	}
	prev := r.done
	stop := make(chan struct{})
	done := make(chan struct{})
	r.stop = stop
	r.done = done

	r.logger.Debug("Timer started", zap.String("timer", r.name), zap.Duration("interval", interval))
	go r.loop(interval, fn, prev, stop, done)
	return nil
}

// Stop cancels future firings. An invocation already running finishes; no
// new invocation begins after Stop returns. Stop never blocks, so it may be
// called from inside the callback. Stopping an idle timer is a no-op.
func (r *RepeatTimer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
	r.logger.Debug("Timer stopped", zap.String("timer", r.name))
}

// Running reports whether the timer is started.
func (r *RepeatTimer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

// Wait blocks until the most recent loop has exited, including any
// callback in progress. Calling Wait from the callback deadlocks.
func (r *RepeatTimer) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *RepeatTimer) loop(interval time.Duration, fn func(), prev, stop, done chan struct{}) {
	defer close(done)

	// done closes after prev, so Wait also covers the replaced loop
	if prev != nil {
		<-prev
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		// Stop holds the lock while closing, so checking under the lock
		// means no firing begins once Stop has returned.
		r.mu.Lock()
		select {
		case <-stop:
			r.mu.Unlock()
			return
		default:
		}
		r.mu.Unlock()

		r.invoke(fn)
		timer.Reset(interval)
	}
}

func (r *RepeatTimer) invoke(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Timer callback panicked",
				zap.String("timer", r.name),
				zap.Any("panic", p))
		}
	}()
	fn()
}
