// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport owns the byte link to the robot. A Transport serializes
// every write and read on one mutex so that a command and its reply are
// never interleaved with another caller's traffic.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tetherlab/tether/pkg/oi"
)

// Defaults
const (
	DefaultTimeout    = time.Second
	DefaultCommandGap = 15 * time.Millisecond
)

// Observer receives link events. Implementations must not block.
type Observer interface {
	Opened(address string)
	Closed(address string)
	BytesWritten(n int)
	BytesRead(n int)
	ReadTimeout()
	Error(op string)
}

// Conn is the view of a transport held by a Do callback. Its methods assume
// the transport lock is already held.
type Conn interface {
	Write(b []byte) error
	Read(n int) ([]byte, error)
	FlushInput() error
}

// Options configure a Transport. Zero values select the defaults.
type Options struct {
	Opener     Opener
	CommandGap time.Duration
	Logger     *zap.Logger
	Observer   Observer
}

// Transport is a mutex-guarded port with per-call timeouts.
//
// The lock is not reentrant. Public methods take it once and call locked
// helpers; multi-step sequences use Do.
type Transport struct {
	mu      sync.Mutex
	port    Port
	address string
	baud    int
	timeout time.Duration
	session string

	opener   Opener
	limiter  *rate.Limiter
	logger   *zap.Logger
	observer Observer
}

// New creates a closed transport.
func New(opts Options) *Transport {
	if opts.Opener == nil {
		opts.Opener = (&Dialer{}).Open
	}
	if opts.CommandGap <= 0 {
		opts.CommandGap = DefaultCommandGap
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Transport{
		opener:   opts.Opener,
		limiter:  rate.NewLimiter(rate.Every(opts.CommandGap), 1),
		logger:   opts.Logger,
		observer: opts.Observer,
		timeout:  DefaultTimeout,
	}
}

// Open opens address at baud, closing any port already open. The timeout
// bounds every subsequent Read.
func (t *Transport) Open(address string, baud int, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()

	if address == "" {
		return &ConnectionError{Address: address, Baud: baud, Err: fmt.Errorf("no address given")}
	}
	if _, ok := oi.BaudCode(baud); !ok {
		return &ConnectionError{Address: address, Baud: baud, Err: fmt.Errorf("unsupported baud rate %d", baud)}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	port, err := t.opener(address, baud)
	if err != nil {
		t.notifyError("open")
		return &ConnectionError{Address: address, Baud: baud, Err: err}
	}

	t.port = port
	t.address = address
	t.baud = baud
	t.timeout = timeout
	t.session = uuid.NewString()

	t.logger.Info("Port opened",
		zap.String("session", t.session),
		zap.String("address", address),
		zap.Int("baud", baud),
		zap.Duration("timeout", timeout))
	if t.observer != nil {
		t.observer.Opened(address)
	}
	return nil
}

// Close closes the port. Closing a closed transport is a no-op; a port
// close failure is logged, not returned.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
}

func (t *Transport) closeLocked() {
	if t.port == nil {
		return
	}
	if err := t.port.Close(); err != nil {
		t.logger.Warn("Port close failed",
			zap.String("session", t.session),
			zap.String("address", t.address),
			zap.Error(err))
	} else {
		t.logger.Info("Port closed", zap.String("session", t.session), zap.String("address", t.address))
	}
	if t.observer != nil {
		t.observer.Closed(t.address)
	}
	t.port = nil
	t.session = ""
}

// IsOpen reports whether a port is open.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Address returns the address of the open port, or "".
func (t *Transport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ""
	}
	return t.address
}

// Baud returns the baud rate of the open port.
func (t *Transport) Baud() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

// Timeout returns the read timeout.
func (t *Transport) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Session returns the id of the current connection, or "".
func (t *Transport) Session() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// Write writes b completely and drains the output.
func (t *Transport) Write(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLocked(b)
}

// Read reads exactly n bytes or until the read timeout. On timeout the
// bytes received so far are returned with ErrReadTimeout.
func (t *Transport) Read(n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked(n)
}

// FlushInput discards unread input.
func (t *Transport) FlushInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

// Exchange writes frame and reads an n-byte reply under one lock hold.
func (t *Transport) Exchange(frame []byte, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeLocked(frame); err != nil {
		return nil, err
	}
	return t.readLocked(n)
}

// Do runs fn with the lock held. fn must use only the Conn it is given.
func (t *Transport) Do(fn func(Conn) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ErrNotConnected
	}
	return fn(lockedConn{t})
}

// lockedConn adapts the locked helpers to Conn.
type lockedConn struct {
	t *Transport
}

func (c lockedConn) Write(b []byte) error       { return c.t.writeLocked(b) }
func (c lockedConn) Read(n int) ([]byte, error) { return c.t.readLocked(n) }
func (c lockedConn) FlushInput() error          { return c.t.flushLocked() }

func (t *Transport) writeLocked(b []byte) error {
	if t.port == nil {
		return ErrNotConnected
	}

	if err := t.limiter.Wait(context.Background()); err != nil {
		return &IOError{Op: "write", Err: err}
	}

	for written := 0; written < len(b); {
		n, err := t.port.Write(b[written:])
		if err != nil {
			t.notifyError("write")
			return &IOError{Op: "write", Err: err}
		}
		if n == 0 {
			t.notifyError("write")
			return &IOError{Op: "write", Err: fmt.Errorf("port accepted 0 of %d bytes", len(b)-written)}
		}
		written += n
	}

	if err := t.port.Drain(); err != nil {
		t.notifyError("drain")
		return &IOError{Op: "drain", Err: err}
	}

	t.logger.Debug("TX", zap.String("session", t.session), zap.Binary("bytes", b))
	if t.observer != nil {
		t.observer.BytesWritten(len(b))
	}
	return nil
}

func (t *Transport) readLocked(n int) ([]byte, error) {
	if t.port == nil {
		return nil, ErrNotConnected
	}

	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(t.timeout)

	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			t.notifyError("read")
			return buf[:got], &IOError{Op: "read", Err: err}
		}
		k, err := t.port.Read(buf[got:])
		if err != nil {
			t.notifyError("read")
			return buf[:got], &IOError{Op: "read", Err: err}
		}
		got += k
	}

	if t.observer != nil && got > 0 {
		t.observer.BytesRead(got)
	}
	if got < n {
		t.logger.Debug("Read timeout",
			zap.String("session", t.session),
			zap.Int("wanted", n),
			zap.Int("got", got))
		if t.observer != nil {
			t.observer.ReadTimeout()
		}
		return buf[:got], ErrReadTimeout
	}

	t.logger.Debug("RX", zap.String("session", t.session), zap.Binary("bytes", buf))
	return buf, nil
}

func (t *Transport) flushLocked() error {
	if t.port == nil {
		return ErrNotConnected
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		t.notifyError("flush")
		return &IOError{Op: "flush", Err: err}
	}
	return nil
}

// ReadChunk reads whatever arrives within wait, up to max bytes. It is used
// by stream readers that do not know frame boundaries in advance.
func (t *Transport) ReadChunk(max int, wait time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, ErrNotConnected
	}
	if err := t.port.SetReadTimeout(wait); err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	buf := make([]byte, max)
	n, err := t.port.Read(buf)
	if err != nil {
		t.notifyError("read")
		return nil, &IOError{Op: "read", Err: err}
	}
	if t.observer != nil && n > 0 {
		t.observer.BytesRead(n)
	}
	return buf[:n], nil
}

func (t *Transport) notifyError(op string) {
	if t.observer != nil {
		t.observer.Error(op)
	}
}

// Compile-time check that serial ports satisfy Port.
var _ Port = (serial.Port)(nil)
