// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"sync"
)

// String returns the mode name
func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	if m == ModeUnknown {
		return "UNKNOWN"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// String returns the charging state name
func (c ChargingState) String() string {
	if c >= 0 && int(c) < len(chargingStateNames) {
		return chargingStateNames[c]
	}
	return "UNKNOWN"
}

// ModeTracker is the host-side OI mode state machine.
//
//	Off -> Passive (START) -> Safe (SAFE) <-> Full (FULL)
//	any -> Off (STOP, POWER, RESET)
//
// Mode changes are applied optimistically after a successful write since
// the robot does not acknowledge them. A read of the OI mode packet is the
// source of truth and is applied with Reconcile. Streaming is tracked as a
// sub-state alongside the mode.
type ModeTracker struct {
	mu        sync.Mutex
	mode      Mode
	streaming bool
}

// NewModeTracker creates a tracker in ModeOff
func NewModeTracker() *ModeTracker {
	return &ModeTracker{mode: ModeOff}
}

// Mode returns the current mode
func (t *ModeTracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Streaming reports whether a sensor stream is active
func (t *ModeTracker) Streaming() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streaming
}

// Check returns *ModeError if op may not be sent in the current state.
// ModeUnknown gates like ModeOff.
func (t *ModeTracker) Check(op Opcode) error {
	info, ok := opcodeTable[op]
	if !ok {
		return &ArgumentRangeError{Opcode: op, Reason: fmt.Sprintf("unknown opcode %d", op)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streaming && (op == OpSensors || op == OpQueryList) {
		return &ModeError{Opcode: op, Current: t.mode, Required: info.MinMode, Streaming: true}
	}

	current := t.mode
	if current == ModeUnknown {
		current = ModeOff
	}
	if current < info.MinMode {
		return &ModeError{Opcode: op, Current: t.mode, Required: info.MinMode}
	}
	return nil
}

// Apply updates the state after f was written successfully.
func (t *ModeTracker) Apply(f Frame) {
	info, ok := opcodeTable[f.Opcode()]
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if info.ChangesMode {
		t.mode = info.Next
	}

	switch f.Opcode() {
	case OpStream:
		t.streaming = true
	case OpPauseResume:
		p := f.Payload()
		t.streaming = len(p) == 1 && p[0] == 1
	case OpStop, OpReset, OpPower:
		t.streaming = false
	}
}

// Reconcile adopts a mode reported by the robot. ModeUnknown is ignored.
func (t *ModeTracker) Reconcile(m Mode) {
	if m < ModeOff || m > ModeFull {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = m
}

// Invalidate marks the mode unknown after a suspected desync such as a
// read timeout.
func (t *ModeTracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = ModeUnknown
}

// Reset returns the tracker to ModeOff with streaming off, as after a new
// connection.
func (t *ModeTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = ModeOff
	t.streaming = false
}

// SetStreaming overrides the streaming sub-state.
func (t *ModeTracker) SetStreaming(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streaming = on
}
