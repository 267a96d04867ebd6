// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"time"
)

// Reading is one decoded sensor packet value.
type Reading struct {
	Packet PacketID
	Kind   Kind
	Value  int  // signed or unsigned integer value, raw bits for bitmasks
	Known  bool // false for enumerated values outside the enumeration
}

// Bool returns the value of a boolean packet (any nonzero value is true).
func (r Reading) Bool() bool {
	return r.Value != 0
}

// Bitmask returns the value as named flags.
func (r Reading) Bitmask() Bitmask {
	return Bitmask{Packet: r.Packet, Bits: uint8(r.Value)}
}

// EnumName returns the enumeration name, or "UNKNOWN".
func (r Reading) EnumName() string {
	info, ok := packetTable[r.Packet]
	if !ok || !r.Known || r.Value < 0 || r.Value >= len(info.Enum) {
		return "UNKNOWN"
	}
	return info.Enum[r.Value]
}

// Snapshot maps sensor packet IDs to freshly decoded values. Snapshots are
// never cached; each query produces a new one.
type Snapshot struct {
	order     []PacketID
	readings  map[PacketID]Reading
	warnings  []error
	timestamp time.Time
}

func newSnapshot(capacity int) *Snapshot {
	return &Snapshot{
		order:     make([]PacketID, 0, capacity),
		readings:  make(map[PacketID]Reading, capacity),
		timestamp: time.Now(),
	}
}

func (s *Snapshot) add(r Reading) {
	if _, exists := s.readings[r.Packet]; !exists {
		s.order = append(s.order, r.Packet)
	}
	s.readings[r.Packet] = r
}

// Get returns the reading for id.
func (s *Snapshot) Get(id PacketID) (Reading, bool) {
	r, ok := s.readings[id]
	return r, ok
}

// Int returns the integer value of id, or 0 if absent.
func (s *Snapshot) Int(id PacketID) int {
	return s.readings[id].Value
}

// Bool returns the boolean value of id, or false if absent.
func (s *Snapshot) Bool(id PacketID) bool {
	return s.readings[id].Bool()
}

// Flags returns the bitmask value of id.
func (s *Snapshot) Flags(id PacketID) Bitmask {
	r, ok := s.readings[id]
	if !ok {
		return Bitmask{Packet: id}
	}
	return r.Bitmask()
}

// Mode returns the OI mode packet value, or ModeUnknown if it is absent or
// out of range.
func (s *Snapshot) Mode() Mode {
	r, ok := s.readings[PacketOIMode]
	if !ok || !r.Known {
		return ModeUnknown
	}
	return Mode(r.Value)
}

// ChargingState returns the charging state packet value, or ChargingUnknown.
func (s *Snapshot) ChargingState() ChargingState {
	r, ok := s.readings[PacketChargingState]
	if !ok || !r.Known {
		return ChargingUnknown
	}
	return ChargingState(r.Value)
}

// IDs returns the packet IDs in reply order.
func (s *Snapshot) IDs() []PacketID {
	return s.order
}

// Len returns the number of readings.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Warnings returns non-fatal decode warnings such as *UnknownEnumValueError.
func (s *Snapshot) Warnings() []error {
	return s.warnings
}

// Timestamp returns when the snapshot was decoded.
func (s *Snapshot) Timestamp() time.Time {
	return s.timestamp
}

// DecodeValue decodes a single (non-group) packet. Decoding is total over
// the packet width; the only non-nil error for a correctly sized input is
// *UnknownEnumValueError, which is a warning and comes with a usable
// reading marked Known=false.
func DecodeValue(id PacketID, data []byte) (Reading, error) {
	info, ok := packetTable[id]
	if !ok {
		return Reading{}, &UnknownPacketError{Packet: id}
	}
	if len(data) != info.Width {
		return Reading{}, fmt.Errorf("packet %d (%s): expected %d bytes, got %d", id, info.Name, info.Width, len(data))
	}

	r := Reading{Packet: id, Kind: info.Kind, Known: true}
	switch info.Kind {
	case KindSigned:
		r.Value = decodeInt(data, true)
	case KindEnum:
		r.Value = decodeInt(data, false)
		if r.Value >= len(info.Enum) {
			r.Known = false
			return r, &UnknownEnumValueError{Packet: id, Value: r.Value}
		}
	default:
		r.Value = decodeInt(data, false)
	}
	return r, nil
}

// DecodeReply decodes the reply to a query for ids. Group IDs are expanded.
// A reply shorter than ReplyLength(ids...) fails with *IncompleteReplyError
// and no snapshot.
func DecodeReply(ids []PacketID, data []byte) (*Snapshot, error) {
	want, err := ReplyLength(ids...)
	if err != nil {
		return nil, err
	}
	if len(data) < want {
		return nil, &IncompleteReplyError{Want: want, Got: len(data)}
	}
	if len(data) > want {
		return nil, fmt.Errorf("sensor reply too long: got %d bytes, expected %d", len(data), want)
	}

	snap := newSnapshot(len(ids))
	offset := 0
	for _, id := range ids {
		members, err := Expand(id)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			w := packetTable[m].Width
			r, err := DecodeValue(m, data[offset:offset+w])
			if err != nil {
				snap.warnings = append(snap.warnings, err)
			}
			snap.add(r)
			offset += w
		}
	}
	return snap, nil
}
