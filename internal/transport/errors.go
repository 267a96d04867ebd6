// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by I/O on a transport with no open port.
var ErrNotConnected = errors.New("transport: not connected")

// ErrReadTimeout is returned when fewer bytes than requested arrived before
// the read timeout. The bytes that did arrive are returned alongside it.
var ErrReadTimeout = errors.New("transport: read timeout")

// ConnectionError reports a failure to open a port.
type ConnectionError struct {
	Address string
	Baud    int
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s @ %d baud: %v", e.Address, e.Baud, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IOError reports a failure of the underlying port during read or write.
type IOError struct {
	Op  string // "write", "read", "drain" or "flush"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
