// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "time"

// Frame is the exact byte sequence written for one command.
type Frame struct {
	opcode    Opcode
	raw       []byte // opcode byte followed by argument bytes
	timestamp time.Time
}

// newFrame builds a frame from an opcode and its encoded argument bytes.
func newFrame(op Opcode, args []byte) Frame {
	raw := make([]byte, 0, 1+len(args))
	raw = append(raw, byte(op))
	raw = append(raw, args...)
	return Frame{opcode: op, raw: raw, timestamp: time.Now()}
}

// Opcode returns the frame's opcode
func (f Frame) Opcode() Opcode {
	return f.opcode
}

// Bytes returns the wire bytes, opcode first
func (f Frame) Bytes() []byte {
	return f.raw
}

// Payload returns the argument bytes without the opcode
func (f Frame) Payload() []byte {
	if len(f.raw) == 0 {
		return nil
	}
	return f.raw[1:]
}

// Len returns the number of wire bytes
func (f Frame) Len() int {
	return len(f.raw)
}

// Timestamp returns when the frame was built
func (f Frame) Timestamp() time.Time {
	return f.timestamp
}

// IsZero reports whether the frame is empty
func (f Frame) IsZero() bool {
	return len(f.raw) == 0
}
