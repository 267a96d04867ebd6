// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"fmt"
)

// ErrChecksum is wrapped by stream decode errors caused by a bad checksum.
var ErrChecksum = errors.New("checksum mismatch")

// StreamDecoder implements the stream frame decoder state machine.
//
// A stream frame is [19][n][id][data...]...[checksum] where n counts the
// id and data bytes and the 8-bit sum of every byte is zero. The decoder
// skips bytes until a header, and after any error resumes looking for the
// next header.
type StreamDecoder struct {
	state     int
	length    int
	payload   []byte
	rawBuffer []byte // frame bytes since the last header
}

// NewStreamDecoder creates a new stream frame decoder
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{
		state:     stateIdle,
		payload:   make([]byte, 0, MaxStreamPayload),
		rawBuffer: make([]byte, 0, MaxStreamPayload+3),
	}
}

// Reset returns the decoder to idle
func (d *StreamDecoder) Reset() {
	d.state = stateIdle
	d.length = 0
	d.payload = d.payload[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// RawBytes returns the bytes of the frame currently being decoded
func (d *StreamDecoder) RawBytes() []byte {
	return d.rawBuffer
}

// Synced reports whether the decoder is inside a frame
func (d *StreamDecoder) Synced() bool {
	return d.state != stateIdle
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a snapshot when a frame completes, nil while it is incomplete,
// and an error when a frame is rejected.
func (d *StreamDecoder) DecodeByte(b byte) (*Snapshot, error) {
	switch d.state {
	case stateIdle:
		if b != StreamHeader {
			return nil, nil
		}
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLength
		return nil, nil

	case stateLength:
		d.rawBuffer = append(d.rawBuffer, b)
		if b == 0 {
			d.Reset()
			return nil, fmt.Errorf("stream frame with empty payload")
		}
		d.length = int(b)
		d.state = statePayload
		return nil, nil

	case statePayload:
		d.rawBuffer = append(d.rawBuffer, b)
		d.payload = append(d.payload, b)
		if len(d.payload) >= d.length {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		d.rawBuffer = append(d.rawBuffer, b)
		if !VerifyChecksum(d.rawBuffer) {
			err := fmt.Errorf("%w: frame sum 0x%02X", ErrChecksum, sum8(d.rawBuffer))
			d.Reset()
			return nil, err
		}
		snap, err := DecodeStreamPayload(d.payload)
		d.Reset()
		return snap, err

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// Decode feeds data through DecodeByte and collects every completed
// snapshot and every error.
func (d *StreamDecoder) Decode(data []byte) ([]*Snapshot, []error) {
	var snaps []*Snapshot
	var errs []error
	for _, b := range data {
		snap, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if snap != nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps, errs
}

// DecodeStreamPayload decodes the [id][data...] records of a stream frame.
func DecodeStreamPayload(payload []byte) (*Snapshot, error) {
	snap := newSnapshot(8)
	for i := 0; i < len(payload); {
		id := PacketID(payload[i])
		w, ok := packetWidth(id)
		if !ok {
			return nil, &UnknownPacketError{Packet: id}
		}
		i++
		if i+w > len(payload) {
			return nil, &IncompleteReplyError{Want: w, Got: len(payload) - i}
		}
		part, err := DecodeReply([]PacketID{id}, payload[i:i+w])
		if err != nil {
			return nil, err
		}
		for _, m := range part.order {
			snap.add(part.readings[m])
		}
		snap.warnings = append(snap.warnings, part.warnings...)
		i += w
	}
	return snap, nil
}

// EncodeStreamFrame wraps [id][data...] records in a stream frame.
func EncodeStreamFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > MaxStreamPayload {
		return nil, fmt.Errorf("stream payload size %d out of range [1, %d]", len(payload), MaxStreamPayload)
	}
	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, StreamHeader, byte(len(payload)))
	frame = append(frame, payload...)
	return append(frame, Checksum(frame)), nil
}
