// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"strings"
)

// FormatOpcode returns the human-readable name for an opcode
func FormatOpcode(op Opcode) string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN_%d", op)
}

// FormatPacketID returns the human-readable name for a sensor packet
func FormatPacketID(id PacketID) string {
	if info, ok := packetTable[id]; ok {
		return info.Name
	}
	if g, ok := groupTable[id]; ok {
		return g.name
	}
	return fmt.Sprintf("UNKNOWN_%d", id)
}

// FormatFrame formats a command frame into a human-readable line
func FormatFrame(f Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (%d)", timestamp, FormatOpcode(f.Opcode()), f.Opcode())

	if args, err := DecodeArgs(f); err == nil && len(args) > 0 {
		info := opcodeTable[f.Opcode()]
		parts := make([]string, 0, len(args))
		for i, v := range args {
			if i < len(info.Args) {
				parts = append(parts, fmt.Sprintf("%s=%d", info.Args[i].Name, v))
			} else {
				parts = append(parts, fmt.Sprintf("%d", v))
			}
		}
		result += " " + strings.Join(parts, " ")
	}

	return result + fmt.Sprintf(" [% X]\n", f.Bytes())
}

// FormatReading formats one sensor value with its unit where one applies
func FormatReading(r Reading) string {
	switch r.Kind {
	case KindBool:
		return fmt.Sprintf("%t", r.Bool())
	case KindBitmask:
		return r.Bitmask().String()
	case KindEnum:
		if !r.Known {
			return fmt.Sprintf("UNKNOWN (%d)", r.Value)
		}
		return r.EnumName()
	}

	switch r.Packet {
	case PacketDistance, PacketRequestedRadius:
		return fmt.Sprintf("%d mm", r.Value)
	case PacketAngle:
		return fmt.Sprintf("%d°", r.Value)
	case PacketVoltage:
		return fmt.Sprintf("%d mV", r.Value)
	case PacketCurrent, PacketLeftMotorCurrent, PacketRightMotorCurrent,
		PacketMainBrushCurrent, PacketSideBrushCurrent:
		return fmt.Sprintf("%d mA", r.Value)
	case PacketTemperature:
		return fmt.Sprintf("%d°C", r.Value)
	case PacketBatteryCharge, PacketBatteryCapacity:
		return fmt.Sprintf("%d mAh", r.Value)
	case PacketRequestedVelocity, PacketRequestedRightVel, PacketRequestedLeftVel:
		return fmt.Sprintf("%d mm/s", r.Value)
	}
	return fmt.Sprintf("%d", r.Value)
}

// FormatSnapshot formats a sensor snapshot, one packet per line
func FormatSnapshot(s *Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %d packets\n", s.timestamp.Format("15:04:05.000"), s.Len()))
	for _, id := range s.order {
		r := s.readings[id]
		b.WriteString(fmt.Sprintf("  %-30s %s\n", FormatPacketID(id)+":", FormatReading(r)))
	}
	for _, w := range s.warnings {
		b.WriteString(fmt.Sprintf("  WARNING: %v\n", w))
	}
	return b.String()
}

// FormatBattery formats charge and capacity as a percentage summary
func FormatBattery(s *Snapshot) string {
	charge, okCharge := s.Get(PacketBatteryCharge)
	capacity, okCap := s.Get(PacketBatteryCapacity)
	if !okCharge || !okCap || capacity.Value == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.0f%% (%d/%d mAh)",
		float64(charge.Value)*100/float64(capacity.Value), charge.Value, capacity.Value)
}
