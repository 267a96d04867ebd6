// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package oi provides a Go implementation of the robot Open Interface (OI)
// serial protocol.
//
// The OI is a byte-oriented protocol: the host writes a single opcode byte
// optionally followed by argument bytes, and the robot answers sensor queries
// with fixed-width big-endian packets. This package provides command encoding
// with argument validation, sensor packet decoding, stream frame decoding,
// and the host-side mode state machine.
package oi

// Opcode identifies a single OI command.
type Opcode uint8

// Mode changes
const (
	OpStart Opcode = 128
	OpReset Opcode = 7
	OpStop  Opcode = 173
	OpBaud  Opcode = 129
	OpSafe  Opcode = 131
	OpFull  Opcode = 132
)

// Cleaning
const (
	OpClean       Opcode = 135
	OpMax         Opcode = 136
	OpSpot        Opcode = 134
	OpSeekDock    Opcode = 143
	OpPower       Opcode = 133
	OpSchedule    Opcode = 167
	OpSetDayTime  Opcode = 168
	OpButtons     Opcode = 165
	OpPauseResume Opcode = 150
)

// Actuators
const (
	OpDrive          Opcode = 137
	OpDriveDirect    Opcode = 145
	OpDrivePWM       Opcode = 146
	OpMotors         Opcode = 138
	OpMotorsPWM      Opcode = 144
	OpLEDs           Opcode = 139
	OpSchedulingLEDs Opcode = 162
	OpDigitLEDsRaw   Opcode = 163
	OpDigitLEDsASCII Opcode = 164
	OpSong           Opcode = 140
	OpPlay           Opcode = 141
)

// Sensor queries
const (
	OpSensors   Opcode = 142
	OpQueryList Opcode = 149
	OpStream    Opcode = 148
)

// Mode is the robot's OI permission level.
type Mode int

// OI modes as reported by sensor packet 35. ModeUnknown is a host-side
// sentinel used after a suspected desync.
const (
	ModeUnknown Mode = -1
	ModeOff     Mode = 0
	ModePassive Mode = 1
	ModeSafe    Mode = 2
	ModeFull    Mode = 3
)

// ChargingState is the value of sensor packet 21.
type ChargingState int

// Charging state values
const (
	ChargingUnknown        ChargingState = -1
	ChargingNone           ChargingState = 0
	ChargingReconditioning ChargingState = 1
	ChargingFull           ChargingState = 2
	ChargingTrickle        ChargingState = 3
	ChargingWaiting        ChargingState = 4
	ChargingFaultCondition ChargingState = 5
)

// Baud codes accepted by OpBaud, indexed by code.
var BaudRates = [...]int{300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 28800, 38400, 57600, 115200}

// DefaultBaudRate is the rate the robot uses after power-on.
const DefaultBaudRate = 115200

// BaudCode returns the OpBaud code for rate.
func BaudCode(rate int) (int, bool) {
	for code, r := range BaudRates {
		if r == rate {
			return code, true
		}
	}
	return 0, false
}

// Drive velocity and radius limits (mm/s and mm)
const (
	MaxVelocity = 500
	MaxRadius   = 2000
	MaxPWM      = 255
)

// Special drive radius values
const (
	RadiusStraight      = 32767
	RadiusStraightAlt   = -32768
	RadiusTurnClockwise = -1
	RadiusTurnCounter   = 1
)

// Motor bits for OpMotors
const (
	MotorSideBrush          = 0x01
	MotorVacuum             = 0x02
	MotorMainBrush          = 0x04
	MotorSideBrushClockwise = 0x08
	MotorMainBrushOutward   = 0x10
)

// LED bits for OpLEDs
const (
	LEDDebris     = 0x01
	LEDSpot       = 0x02
	LEDDock       = 0x04
	LEDCheckRobot = 0x08
)

// Scheduling LED day bits, also used by OpSchedule
const (
	DaySunday    = 0x01
	DayMonday    = 0x02
	DayTuesday   = 0x04
	DayWednesday = 0x08
	DayThursday  = 0x10
	DayFriday    = 0x20
	DaySaturday  = 0x40
)

// Song limits
const (
	MaxSongNumber = 4
	MaxSongLength = 16
	MinNote       = 31
	MaxNote       = 127
)

// Stream framing
const (
	StreamHeader     = 19
	MaxStreamPayload = 255
)

// Stream decoder states (internal)
const (
	stateIdle = iota
	stateLength
	statePayload
	stateChecksum
)
