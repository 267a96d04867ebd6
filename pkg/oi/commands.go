// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "fmt"

// Command builder functions validate their arguments and return a Frame
// ready to be written. They are thin wrappers around Encode.

// Drive moves with velocity (mm/s, -500..500) along radius (mm,
// -2000..2000). Use RadiusStraight, RadiusTurnClockwise and
// RadiusTurnCounter for the special cases.
func Drive(velocity, radius int) (Frame, error) {
	return Encode(OpDrive, velocity, radius)
}

// DriveDirect sets each wheel's velocity independently (mm/s, -500..500).
func DriveDirect(right, left int) (Frame, error) {
	return Encode(OpDriveDirect, right, left)
}

// DrivePWM sets each wheel's PWM duty (-255..255).
func DrivePWM(right, left int) (Frame, error) {
	return Encode(OpDrivePWM, right, left)
}

// Motors switches the cleaning motors. Bits are the Motor* constants.
func Motors(bits int) (Frame, error) {
	return Encode(OpMotors, bits)
}

// MotorsPWM sets cleaning motor duty: brushes -127..127, vacuum 0..127.
func MotorsPWM(mainBrush, sideBrush, vacuum int) (Frame, error) {
	return Encode(OpMotorsPWM, mainBrush, sideBrush, vacuum)
}

// LEDs sets the LED* bits and the power LED color (0 green .. 255 red)
// and intensity.
func LEDs(bits, powerColor, powerIntensity int) (Frame, error) {
	return Encode(OpLEDs, bits, powerColor, powerIntensity)
}

// SchedulingLEDs sets the weekday (Day* bits) and scheduling LEDs.
func SchedulingLEDs(weekdays, scheduling int) (Frame, error) {
	return Encode(OpSchedulingLEDs, weekdays, scheduling)
}

// DigitLEDsRaw sets the segments of the four digit LEDs, leftmost first.
func DigitLEDsRaw(d3, d2, d1, d0 int) (Frame, error) {
	return Encode(OpDigitLEDsRaw, d3, d2, d1, d0)
}

// DigitLEDsASCII shows up to four printable characters on the digit LEDs.
// Shorter text is padded with spaces.
func DigitLEDsASCII(text string) (Frame, error) {
	if len(text) > 4 {
		return Frame{}, &ArgumentRangeError{Opcode: OpDigitLEDsASCII,
			Reason: fmt.Sprintf("text %q longer than 4 characters", text)}
	}
	digits := [4]int{' ', ' ', ' ', ' '}
	for i := 0; i < len(text); i++ {
		digits[i] = int(text[i])
	}
	return Encode(OpDigitLEDsASCII, digits[0], digits[1], digits[2], digits[3])
}

// Note is one song note: MIDI number (31..127) and duration in 1/64 s.
type Note struct {
	Pitch    int
	Duration int
}

// Song stores up to 16 notes as song number (0..4).
func Song(number int, notes []Note) (Frame, error) {
	args := make([]int, 0, 2+2*len(notes))
	args = append(args, number, len(notes))
	for _, n := range notes {
		args = append(args, n.Pitch, n.Duration)
	}
	return Encode(OpSong, args...)
}

// Play plays a previously stored song.
func Play(number int) (Frame, error) {
	return Encode(OpPlay, number)
}

// Sensors requests a single packet (or packet group).
func Sensors(id PacketID) (Frame, error) {
	return Encode(OpSensors, int(id))
}

// QueryList requests several packets in one reply.
func QueryList(ids ...PacketID) (Frame, error) {
	return Encode(OpQueryList, packetListArgs(ids)...)
}

// Stream starts streaming the given packets every 15 ms.
func Stream(ids ...PacketID) (Frame, error) {
	return Encode(OpStream, packetListArgs(ids)...)
}

// PauseResumeStream pauses (false) or resumes (true) the stream.
func PauseResumeStream(resume bool) (Frame, error) {
	if resume {
		return Encode(OpPauseResume, 1)
	}
	return Encode(OpPauseResume, 0)
}

// Baud changes the robot's baud rate. The rate must be in BaudRates.
func Baud(rate int) (Frame, error) {
	code, ok := BaudCode(rate)
	if !ok {
		return Frame{}, &ArgumentRangeError{Opcode: OpBaud, Arg: "rate", Value: rate,
			Reason: fmt.Sprintf("unsupported baud rate %d", rate)}
	}
	return Encode(OpBaud, code)
}

// SetDayTime sets the robot clock. Day is 0 (Sunday) to 6.
func SetDayTime(day, hour, minute int) (Frame, error) {
	return Encode(OpSetDayTime, day, hour, minute)
}

// ScheduleTime is the cleaning start time for one weekday.
type ScheduleTime struct {
	Hour   int
	Minute int
}

// Schedule sets the cleaning schedule. Days holds Day* bits; times are
// indexed Sunday first and ignored for days that are not set.
func Schedule(days int, times [7]ScheduleTime) (Frame, error) {
	args := make([]int, 0, 15)
	args = append(args, days)
	for _, t := range times {
		args = append(args, t.Hour, t.Minute)
	}
	return Encode(OpSchedule, args...)
}

// Buttons simulates button presses. Bits follow packet 18.
func Buttons(bits int) (Frame, error) {
	return Encode(OpButtons, bits)
}

func packetListArgs(ids []PacketID) []int {
	args := make([]int, 0, 1+len(ids))
	args = append(args, len(ids))
	for _, id := range ids {
		args = append(args, int(id))
	}
	return args
}
