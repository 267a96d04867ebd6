// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"encoding/binary"
	"fmt"
)

// Encode validates args against op's declared layout and returns the frame.
// Every argument is range checked before any byte is produced; an argument
// outside its range is rejected with *ArgumentRangeError, never truncated.
func Encode(op Opcode, args ...int) (Frame, error) {
	info, ok := opcodeTable[op]
	if !ok {
		return Frame{}, &ArgumentRangeError{Opcode: op, Reason: fmt.Sprintf("unknown opcode %d", op)}
	}

	if info.Variable != nil {
		if err := info.Variable(op, args); err != nil {
			return Frame{}, err
		}
		payload := make([]byte, len(args))
		for i, v := range args {
			payload[i] = byte(v)
		}
		return newFrame(op, payload), nil
	}

	if len(args) != len(info.Args) {
		return Frame{}, &ArgumentRangeError{Opcode: op,
			Reason: fmt.Sprintf("expected %d arguments, got %d", len(info.Args), len(args))}
	}

	payload := make([]byte, 0, 2*len(args))
	for i, a := range info.Args {
		if err := checkArg(op, a, args[i]); err != nil {
			return Frame{}, err
		}
		payload = appendArg(payload, a, args[i])
	}

	return newFrame(op, payload), nil
}

// MustEncode is like Encode but panics on error. Intended for constant
// frames built from literals.
func MustEncode(op Opcode, args ...int) Frame {
	f, err := Encode(op, args...)
	if err != nil {
		panic(fmt.Sprintf("oi: encode error: %v", err))
	}
	return f
}

// appendArg writes v in the argument's width, big-endian for two bytes.
func appendArg(buf []byte, a Arg, v int) []byte {
	if a.Width == 2 {
		if a.Signed {
			return binary.BigEndian.AppendUint16(buf, uint16(int16(v)))
		}
		return binary.BigEndian.AppendUint16(buf, uint16(v))
	}
	if a.Signed {
		return append(buf, byte(int8(v)))
	}
	return append(buf, byte(v))
}

// DecodeArgs recovers the argument values from an encoded frame.
func DecodeArgs(f Frame) ([]int, error) {
	info, ok := opcodeTable[f.Opcode()]
	if !ok {
		return nil, fmt.Errorf("unknown opcode %d", f.Opcode())
	}

	payload := f.Payload()
	if info.Variable != nil {
		args := make([]int, len(payload))
		for i, b := range payload {
			args[i] = int(b)
		}
		return args, nil
	}

	args := make([]int, 0, len(info.Args))
	offset := 0
	for _, a := range info.Args {
		if offset+a.Width > len(payload) {
			return nil, fmt.Errorf("%s: payload too short for argument %s", info.Name, a.Name)
		}
		args = append(args, decodeInt(payload[offset:offset+a.Width], a.Signed))
		offset += a.Width
	}
	if offset != len(payload) {
		return nil, fmt.Errorf("%s: %d trailing bytes", info.Name, len(payload)-offset)
	}
	return args, nil
}

// decodeInt interprets 1 or 2 big-endian bytes.
func decodeInt(b []byte, signed bool) int {
	if len(b) == 2 {
		v := binary.BigEndian.Uint16(b)
		if signed {
			return int(int16(v))
		}
		return int(v)
	}
	if signed {
		return int(int8(b[0]))
	}
	return int(b[0])
}
