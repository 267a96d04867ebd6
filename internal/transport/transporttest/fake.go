// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transporttest provides an in-memory Port for tests.
package transporttest

import (
	"errors"
	"sync"
	"time"

	"github.com/tetherlab/tether/internal/transport"
)

// ErrClosed is returned by I/O on a closed FakePort.
var ErrClosed = errors.New("fake port closed")

// Responder returns the reply bytes for a written frame, or nil.
type Responder func(frame []byte) []byte

// FakePort records writes and serves reads from a queue. When a Responder
// is set, each write queues the responder's reply.
type FakePort struct {
	mu        sync.Mutex
	rx        []byte
	writes    [][]byte
	timeout   time.Duration
	closed    bool
	closes    int
	opens     []int
	respond   Responder
	overlaps  int
	writeErr  error
	readErr   error
	writeHook func(frame []byte)
}

// NewFakePort creates an open fake port.
func NewFakePort(respond Responder) *FakePort {
	return &FakePort{respond: respond, timeout: 10 * time.Millisecond}
}

// Opener returns an Opener that hands out p, reopening it if it was closed.
func (p *FakePort) Opener() transport.Opener {
	return func(address string, baud int) (transport.Port, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = false
		p.opens = append(p.opens, baud)
		return p, nil
	}
}

// Opens returns the baud rate of each open, in order.
func (p *FakePort) Opens() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.opens...)
}

// Feed queues bytes as if the robot had sent them.
func (p *FakePort) Feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = append(p.rx, b...)
}

// SetWriteError makes subsequent writes fail with err.
func (p *FakePort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// SetReadError makes subsequent reads fail with err.
func (p *FakePort) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// OnWrite registers a hook called outside the port lock after each write.
func (p *FakePort) OnWrite(fn func(frame []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeHook = fn
}

// Writes returns a copy of every write, in order.
func (p *FakePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Overlaps counts writes that arrived while a reply was still unread,
// meaning another caller's traffic interleaved with a request and its reply.
func (p *FakePort) Overlaps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlaps
}

// Closes returns how many times Close was called.
func (p *FakePort) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// Pending returns the number of unread bytes.
func (p *FakePort) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx)
}

func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return 0, err
	}

	frame := append([]byte(nil), b...)
	p.writes = append(p.writes, frame)
	if p.respond != nil {
		if len(p.rx) > 0 {
			p.overlaps++
		}
		p.rx = append(p.rx, p.respond(frame)...)
	}
	hook := p.writeHook
	p.mu.Unlock()

	if hook != nil {
		hook(frame)
	}
	return len(b), nil
}

// Read returns queued bytes, or waits out a short slice of the timeout and
// returns (0, nil) when the queue is empty.
func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	if len(p.rx) > 0 {
		n := copy(b, p.rx)
		p.rx = p.rx[n:]
		p.mu.Unlock()
		return n, nil
	}
	wait := p.timeout
	p.mu.Unlock()

	if wait > time.Millisecond {
		wait = time.Millisecond
	}
	time.Sleep(wait)
	return 0, nil
}

func (p *FakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

func (p *FakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = nil
	return nil
}

func (p *FakePort) Drain() error {
	return nil
}

// Close marks the port closed. Further I/O fails with ErrClosed.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.closes++
	return nil
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
