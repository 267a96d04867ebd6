// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"fmt"
	"strings"
)

// Arg describes one fixed argument of an opcode.
type Arg struct {
	Name    string
	Width   int // 1 or 2 bytes
	Signed  bool
	Min     int
	Max     int
	Special []int // values accepted outside [Min, Max]
}

// accepts reports whether v is a legal value for the argument.
func (a Arg) accepts(v int) bool {
	if v >= a.Min && v <= a.Max {
		return true
	}
	for _, s := range a.Special {
		if v == s {
			return true
		}
	}
	return false
}

// OpcodeInfo is the static description of an opcode.
type OpcodeInfo struct {
	Name string
	Args []Arg

	// Variable validates opcodes whose argument count depends on the
	// arguments themselves. All variable arguments are single bytes.
	Variable func(op Opcode, args []int) error

	// MinMode is the lowest mode in which the robot accepts the opcode.
	MinMode Mode

	// ChangesMode is set when a successful write moves the robot to Next.
	ChangesMode bool
	Next        Mode
}

func u8(name string, min, max int) Arg {
	return Arg{Name: name, Width: 1, Min: min, Max: max}
}

func s8(name string, min, max int) Arg {
	return Arg{Name: name, Width: 1, Signed: true, Min: min, Max: max}
}

func s16(name string, min, max int) Arg {
	return Arg{Name: name, Width: 2, Signed: true, Min: min, Max: max}
}

func scheduleArgs() []Arg {
	args := []Arg{u8("days", 0, 0x7F)}
	for _, day := range []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"} {
		args = append(args, u8(day+"_hour", 0, 23), u8(day+"_minute", 0, 59))
	}
	return args
}

var opcodeTable = map[Opcode]*OpcodeInfo{
	OpStart: {Name: "START", MinMode: ModeOff, ChangesMode: true, Next: ModePassive},
	OpReset: {Name: "RESET", MinMode: ModeOff, ChangesMode: true, Next: ModeOff},
	OpStop:  {Name: "STOP", MinMode: ModeOff, ChangesMode: true, Next: ModeOff},
	OpBaud:  {Name: "BAUD", Args: []Arg{u8("code", 0, len(BaudRates)-1)}, MinMode: ModePassive},
	OpSafe:  {Name: "SAFE", MinMode: ModePassive, ChangesMode: true, Next: ModeSafe},
	OpFull:  {Name: "FULL", MinMode: ModePassive, ChangesMode: true, Next: ModeFull},

	OpClean:       {Name: "CLEAN", MinMode: ModePassive, ChangesMode: true, Next: ModePassive},
	OpMax:         {Name: "MAX", MinMode: ModePassive, ChangesMode: true, Next: ModePassive},
	OpSpot:        {Name: "SPOT", MinMode: ModePassive, ChangesMode: true, Next: ModePassive},
	OpSeekDock:    {Name: "SEEK_DOCK", MinMode: ModePassive, ChangesMode: true, Next: ModePassive},
	OpPower:       {Name: "POWER", MinMode: ModePassive, ChangesMode: true, Next: ModeOff},
	OpSchedule:    {Name: "SCHEDULE", Args: scheduleArgs(), MinMode: ModePassive},
	OpSetDayTime:  {Name: "SET_DAY_TIME", Args: []Arg{u8("day", 0, 6), u8("hour", 0, 23), u8("minute", 0, 59)}, MinMode: ModePassive},
	OpButtons:     {Name: "BUTTONS", Args: []Arg{u8("buttons", 0, 0xFF)}, MinMode: ModePassive},
	OpPauseResume: {Name: "PAUSE_RESUME_STREAM", Args: []Arg{u8("resume", 0, 1)}, MinMode: ModePassive},

	OpDrive: {Name: "DRIVE", Args: []Arg{
		s16("velocity", -MaxVelocity, MaxVelocity),
		{Name: "radius", Width: 2, Signed: true, Min: -MaxRadius, Max: MaxRadius,
			Special: []int{RadiusStraight, RadiusStraightAlt}},
	}, MinMode: ModeSafe},
	OpDriveDirect: {Name: "DRIVE_DIRECT", Args: []Arg{
		s16("right", -MaxVelocity, MaxVelocity),
		s16("left", -MaxVelocity, MaxVelocity),
	}, MinMode: ModeSafe},
	OpDrivePWM: {Name: "DRIVE_PWM", Args: []Arg{
		s16("right", -MaxPWM, MaxPWM),
		s16("left", -MaxPWM, MaxPWM),
	}, MinMode: ModeSafe},
	OpMotors: {Name: "MOTORS", Args: []Arg{u8("motors", 0, 0x1F)}, MinMode: ModeSafe},
	OpMotorsPWM: {Name: "MOTORS_PWM", Args: []Arg{
		s8("main_brush", -127, 127),
		s8("side_brush", -127, 127),
		u8("vacuum", 0, 127),
	}, MinMode: ModeSafe},
	OpLEDs: {Name: "LEDS", Args: []Arg{
		u8("leds", 0, 0x0F),
		u8("power_color", 0, 255),
		u8("power_intensity", 0, 255),
	}, MinMode: ModeSafe},
	OpSchedulingLEDs: {Name: "SCHEDULING_LEDS", Args: []Arg{u8("weekdays", 0, 0x7F), u8("scheduling", 0, 0x1F)}, MinMode: ModeSafe},
	OpDigitLEDsRaw: {Name: "DIGIT_LEDS_RAW", Args: []Arg{
		u8("digit3", 0, 0x7F), u8("digit2", 0, 0x7F), u8("digit1", 0, 0x7F), u8("digit0", 0, 0x7F),
	}, MinMode: ModeSafe},
	OpDigitLEDsASCII: {Name: "DIGIT_LEDS_ASCII", Args: []Arg{
		u8("digit3", 32, 126), u8("digit2", 32, 126), u8("digit1", 32, 126), u8("digit0", 32, 126),
	}, MinMode: ModeSafe},
	OpSong: {Name: "SONG", Variable: validateSong, MinMode: ModePassive},
	OpPlay: {Name: "PLAY", Args: []Arg{u8("song", 0, MaxSongNumber)}, MinMode: ModeSafe},

	OpSensors:   {Name: "SENSORS", Variable: validateSensorQuery, MinMode: ModePassive},
	OpQueryList: {Name: "QUERY_LIST", Variable: validatePacketList, MinMode: ModePassive},
	OpStream:    {Name: "STREAM", Variable: validatePacketList, MinMode: ModePassive},
}

// LookupOpcode returns the static description of op.
func LookupOpcode(op Opcode) (*OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// OpcodeByName resolves an opcode name such as "DRIVE_DIRECT" or "drive_direct".
func OpcodeByName(name string) (Opcode, bool) {
	name = strings.ReplaceAll(name, "-", "_")
	for op, info := range opcodeTable {
		if strings.EqualFold(info.Name, name) {
			return op, true
		}
	}
	return 0, false
}

// Opcodes returns every known opcode in ascending order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeTable))
	for op := 0; op < 256; op++ {
		if _, ok := opcodeTable[Opcode(op)]; ok {
			ops = append(ops, Opcode(op))
		}
	}
	return ops
}

// validateSong checks [number, length, note, duration, ...].
func validateSong(op Opcode, args []int) error {
	if len(args) < 2 {
		return &ArgumentRangeError{Opcode: op, Reason: "song needs a number and a length"}
	}
	if err := checkArg(op, u8("song", 0, MaxSongNumber), args[0]); err != nil {
		return err
	}
	if err := checkArg(op, u8("length", 1, MaxSongLength), args[1]); err != nil {
		return err
	}
	if len(args) != 2+2*args[1] {
		return &ArgumentRangeError{Opcode: op,
			Reason: fmt.Sprintf("song length %d needs %d note bytes, got %d", args[1], 2*args[1], len(args)-2)}
	}
	for i := 2; i < len(args); i += 2 {
		if err := checkArg(op, u8(fmt.Sprintf("note%d", (i-2)/2), MinNote, MaxNote), args[i]); err != nil {
			return err
		}
		if err := checkArg(op, u8(fmt.Sprintf("duration%d", (i-2)/2), 0, 255), args[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// validateSensorQuery checks a single packet id argument.
func validateSensorQuery(op Opcode, args []int) error {
	if len(args) != 1 {
		return &ArgumentRangeError{Opcode: op, Reason: fmt.Sprintf("expected 1 argument, got %d", len(args))}
	}
	return checkPacketArg(op, args[0])
}

// validatePacketList checks [count, id, id, ...].
func validatePacketList(op Opcode, args []int) error {
	if len(args) < 2 {
		return &ArgumentRangeError{Opcode: op, Reason: "packet list needs a count and at least one id"}
	}
	if err := checkArg(op, u8("count", 1, 255), args[0]); err != nil {
		return err
	}
	if args[0] != len(args)-1 {
		return &ArgumentRangeError{Opcode: op,
			Reason: fmt.Sprintf("count %d does not match %d packet ids", args[0], len(args)-1)}
	}
	for _, id := range args[1:] {
		if err := checkPacketArg(op, id); err != nil {
			return err
		}
	}
	return nil
}

func checkPacketArg(op Opcode, id int) error {
	if err := checkArg(op, u8("packet", 0, 255), id); err != nil {
		return err
	}
	if _, ok := packetWidth(PacketID(id)); !ok {
		return &ArgumentRangeError{Opcode: op, Arg: "packet", Value: id,
			Reason: fmt.Sprintf("unknown sensor packet id %d", id)}
	}
	return nil
}

func checkArg(op Opcode, a Arg, v int) error {
	if a.accepts(v) {
		return nil
	}
	return &ArgumentRangeError{Opcode: op, Arg: a.Name, Value: v, Min: a.Min, Max: a.Max}
}
