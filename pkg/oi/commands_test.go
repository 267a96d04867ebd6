// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"bytes"
	"errors"
	"testing"
)

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Frame, error)
		want  []byte
	}{
		{"drive", func() (Frame, error) { return Drive(-200, 500) }, []byte{137, 0xFF, 0x38, 0x01, 0xF4}},
		{"drive direct", func() (Frame, error) { return DriveDirect(200, -200) }, []byte{145, 0x00, 0xC8, 0xFF, 0x38}},
		{"drive pwm", func() (Frame, error) { return DrivePWM(-1, 1) }, []byte{146, 0xFF, 0xFF, 0x00, 0x01}},
		{"motors", func() (Frame, error) { return Motors(MotorMainBrush | MotorVacuum) }, []byte{138, 0x06}},
		{"motors pwm", func() (Frame, error) { return MotorsPWM(127, -127, 0) }, []byte{144, 0x7F, 0x81, 0x00}},
		{"leds", func() (Frame, error) { return LEDs(LEDCheckRobot, 0, 128) }, []byte{139, 0x08, 0x00, 0x80}},
		{"scheduling leds", func() (Frame, error) { return SchedulingLEDs(DayMonday|DayFriday, 0) }, []byte{162, 0x22, 0x00}},
		{"digit leds raw", func() (Frame, error) { return DigitLEDsRaw(0x7F, 0, 1, 2) }, []byte{163, 0x7F, 0x00, 0x01, 0x02}},
		{"digit leds ascii", func() (Frame, error) { return DigitLEDsASCII("GO") }, []byte{164, 'G', 'O', ' ', ' '}},
		{"song", func() (Frame, error) { return Song(3, []Note{{64, 16}}) }, []byte{140, 3, 1, 64, 16}},
		{"play", func() (Frame, error) { return Play(3) }, []byte{141, 3}},
		{"sensors", func() (Frame, error) { return Sensors(PacketOIMode) }, []byte{142, 35}},
		{"sensors group", func() (Frame, error) { return Sensors(GroupAll) }, []byte{142, 100}},
		{"query list", func() (Frame, error) { return QueryList(PacketVoltage, PacketCurrent) }, []byte{149, 2, 22, 23}},
		{"stream", func() (Frame, error) { return Stream(PacketBumpsWheelDrops) }, []byte{148, 1, 7}},
		{"pause stream", func() (Frame, error) { return PauseResumeStream(false) }, []byte{150, 0}},
		{"resume stream", func() (Frame, error) { return PauseResumeStream(true) }, []byte{150, 1}},
		{"baud 115200", func() (Frame, error) { return Baud(115200) }, []byte{129, 11}},
		{"baud 19200", func() (Frame, error) { return Baud(19200) }, []byte{129, 7}},
		{"set day time", func() (Frame, error) { return SetDayTime(6, 23, 59) }, []byte{168, 6, 23, 59}},
		{"buttons", func() (Frame, error) { return Buttons(0x01) }, []byte{165, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.build()
			if err != nil {
				t.Fatalf("builder error = %v", err)
			}
			if !bytes.Equal(f.Bytes(), tt.want) {
				t.Errorf("frame = % X, want % X", f.Bytes(), tt.want)
			}
		})
	}
}

func TestSchedule(t *testing.T) {
	var times [7]ScheduleTime
	times[1] = ScheduleTime{Hour: 9, Minute: 30}
	times[5] = ScheduleTime{Hour: 17, Minute: 0}

	f, err := Schedule(DayMonday|DayFriday, times)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	want := []byte{167, 0x22, 0, 0, 9, 30, 0, 0, 0, 0, 0, 0, 17, 0, 0, 0}
	if !bytes.Equal(f.Bytes(), want) {
		t.Errorf("Schedule() = % X, want % X", f.Bytes(), want)
	}

	times[3] = ScheduleTime{Hour: 24}
	if _, err := Schedule(DayWednesday, times); err == nil {
		t.Error("Schedule() accepted hour 24")
	}
}

func TestCommandBuilders_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Frame, error)
	}{
		{"digit text too long", func() (Frame, error) { return DigitLEDsASCII("HELLO") }},
		{"digit non printable", func() (Frame, error) { return DigitLEDsASCII("\x01") }},
		{"song empty", func() (Frame, error) { return Song(0, nil) }},
		{"song too long", func() (Frame, error) { return Song(0, make([]Note, MaxSongLength+1)) }},
		{"song note high", func() (Frame, error) { return Song(0, []Note{{MaxNote + 1, 8}}) }},
		{"baud unsupported", func() (Frame, error) { return Baud(9601) }},
		{"query none", func() (Frame, error) { return QueryList() }},
		{"stream unknown", func() (Frame, error) { return Stream(PacketID(99)) }},
		{"drive direct range", func() (Frame, error) { return DriveDirect(0, 600) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.build()
			var rangeErr *ArgumentRangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("error = %v, want *ArgumentRangeError", err)
			}
			if !f.IsZero() {
				t.Errorf("frame = % X, want empty", f.Bytes())
			}
		})
	}
}

func TestBaudCode(t *testing.T) {
	for code, rate := range BaudRates {
		got, ok := BaudCode(rate)
		if !ok || got != code {
			t.Errorf("BaudCode(%d) = %d, %v, want %d", rate, got, ok, code)
		}
	}
	if _, ok := BaudCode(1234); ok {
		t.Error("BaudCode(1234) succeeded")
	}
}
