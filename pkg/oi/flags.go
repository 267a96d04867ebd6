// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "strings"

// Flag is one named bit of a bitmask sensor packet.
type Flag struct {
	Packet PacketID
	Mask   uint8
	Name   string
}

// Bumps and wheel drops (packet 7)
var (
	BumpRight      = Flag{PacketBumpsWheelDrops, 0x01, "BUMP_RIGHT"}
	BumpLeft       = Flag{PacketBumpsWheelDrops, 0x02, "BUMP_LEFT"}
	WheelDropRight = Flag{PacketBumpsWheelDrops, 0x04, "WHEEL_DROP_RIGHT"}
	WheelDropLeft  = Flag{PacketBumpsWheelDrops, 0x08, "WHEEL_DROP_LEFT"}
)

// Wheel overcurrents (packet 14). Bit 1 is reserved.
var (
	OvercurrentSideBrush  = Flag{PacketOvercurrents, 0x01, "SIDE_BRUSH"}
	OvercurrentMainBrush  = Flag{PacketOvercurrents, 0x04, "MAIN_BRUSH"}
	OvercurrentRightWheel = Flag{PacketOvercurrents, 0x08, "RIGHT_WHEEL"}
	OvercurrentLeftWheel  = Flag{PacketOvercurrents, 0x10, "LEFT_WHEEL"}
)

// Buttons (packet 18)
var (
	ButtonClean    = Flag{PacketButtons, 0x01, "CLEAN"}
	ButtonSpot     = Flag{PacketButtons, 0x02, "SPOT"}
	ButtonDock     = Flag{PacketButtons, 0x04, "DOCK"}
	ButtonMinute   = Flag{PacketButtons, 0x08, "MINUTE"}
	ButtonHour     = Flag{PacketButtons, 0x10, "HOUR"}
	ButtonDay      = Flag{PacketButtons, 0x20, "DAY"}
	ButtonSchedule = Flag{PacketButtons, 0x40, "SCHEDULE"}
	ButtonClock    = Flag{PacketButtons, 0x80, "CLOCK"}
)

// Charging sources (packet 34)
var (
	ChargerInternal = Flag{PacketChargingSources, 0x01, "INTERNAL_CHARGER"}
	ChargerHomeBase = Flag{PacketChargingSources, 0x02, "HOME_BASE"}
)

// Light bumper (packet 45)
var (
	LightBumperLeft        = Flag{PacketLightBumper, 0x01, "LEFT"}
	LightBumperFrontLeft   = Flag{PacketLightBumper, 0x02, "FRONT_LEFT"}
	LightBumperCenterLeft  = Flag{PacketLightBumper, 0x04, "CENTER_LEFT"}
	LightBumperCenterRight = Flag{PacketLightBumper, 0x08, "CENTER_RIGHT"}
	LightBumperFrontRight  = Flag{PacketLightBumper, 0x10, "FRONT_RIGHT"}
	LightBumperRight       = Flag{PacketLightBumper, 0x20, "RIGHT"}
)

// Stasis (packet 58)
var (
	StasisToggling = Flag{PacketStasis, 0x01, "TOGGLING"}
	StasisDisabled = Flag{PacketStasis, 0x02, "DISABLED"}
)

// Bitmask is the decoded value of a bitmask sensor packet.
type Bitmask struct {
	Packet PacketID
	Bits   uint8
}

// Has reports whether f is set. A flag belonging to another packet is
// never set.
func (b Bitmask) Has(f Flag) bool {
	return f.Packet == b.Packet && b.Bits&f.Mask != 0
}

// Flags returns every named flag of the packet with its state.
func (b Bitmask) Flags() map[string]bool {
	info, ok := packetTable[b.Packet]
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(info.Flags))
	for _, f := range info.Flags {
		out[f.Name] = b.Bits&f.Mask != 0
	}
	return out
}

// Set returns the names of the flags that are set, in bit order.
func (b Bitmask) Set() []string {
	info, ok := packetTable[b.Packet]
	if !ok {
		return nil
	}
	var names []string
	for _, f := range info.Flags {
		if b.Bits&f.Mask != 0 {
			names = append(names, f.Name)
		}
	}
	return names
}

// String formats the set flags as "A|B", or "none".
func (b Bitmask) String() string {
	set := b.Set()
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, "|")
}
