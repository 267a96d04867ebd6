// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "fmt"

// ArgumentRangeError is returned when a command argument is outside the
// range the opcode declares, or the argument count is wrong. Nothing is
// written when this error is returned.
type ArgumentRangeError struct {
	Opcode Opcode
	Arg    string
	Value  int
	Min    int
	Max    int
	Reason string
}

func (e *ArgumentRangeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", FormatOpcode(e.Opcode), e.Reason)
	}
	return fmt.Sprintf("%s: argument %s=%d out of range [%d, %d]", FormatOpcode(e.Opcode), e.Arg, e.Value, e.Min, e.Max)
}

// ModeError is returned when a command is not allowed in the current mode.
type ModeError struct {
	Opcode    Opcode
	Current   Mode
	Required  Mode
	Streaming bool
}

func (e *ModeError) Error() string {
	if e.Streaming {
		return fmt.Sprintf("%s not allowed while streaming", FormatOpcode(e.Opcode))
	}
	return fmt.Sprintf("%s requires %s mode or above (current: %s)", FormatOpcode(e.Opcode), e.Required, e.Current)
}

// IncompleteReplyError is returned when fewer sensor bytes arrived than the
// request needs. No partial snapshot accompanies it.
type IncompleteReplyError struct {
	Want int
	Got  int
	Err  error // underlying cause such as a read timeout, may be nil
}

func (e *IncompleteReplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("incomplete sensor reply: got %d of %d bytes: %v", e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("incomplete sensor reply: got %d of %d bytes", e.Got, e.Want)
}

func (e *IncompleteReplyError) Unwrap() error {
	return e.Err
}

// UnknownEnumValueError is a decode warning for an enumerated packet holding
// a value outside its enumeration. It usually indicates protocol desync.
type UnknownEnumValueError struct {
	Packet PacketID
	Value  int
}

func (e *UnknownEnumValueError) Error() string {
	return fmt.Sprintf("packet %d (%s): unknown value %d", e.Packet, FormatPacketID(e.Packet), e.Value)
}

// UnknownPacketError is returned for sensor packet IDs the decoder has no
// layout for.
type UnknownPacketError struct {
	Packet PacketID
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("unknown sensor packet id %d", e.Packet)
}
