// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"testing"
)

func TestModeTracker_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		from  Mode
		frame Frame
		want  Mode
	}{
		{"start from off", ModeOff, MustEncode(OpStart), ModePassive},
		{"safe from passive", ModePassive, MustEncode(OpSafe), ModeSafe},
		{"full from passive", ModePassive, MustEncode(OpFull), ModeFull},
		{"full from safe", ModeSafe, MustEncode(OpFull), ModeFull},
		{"safe from full", ModeFull, MustEncode(OpSafe), ModeSafe},
		{"stop from full", ModeFull, MustEncode(OpStop), ModeOff},
		{"power from safe", ModeSafe, MustEncode(OpPower), ModeOff},
		{"reset from full", ModeFull, MustEncode(OpReset), ModeOff},
		{"clean from full", ModeFull, MustEncode(OpClean), ModePassive},
		{"dock from safe", ModeSafe, MustEncode(OpSeekDock), ModePassive},
		{"drive keeps safe", ModeSafe, MustEncode(OpDriveDirect, 100, 100), ModeSafe},
		{"sensors keep passive", ModePassive, MustEncode(OpSensors, 7), ModePassive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewModeTracker()
			tr.Reconcile(tt.from)
			tr.Apply(tt.frame)
			if got := tr.Mode(); got != tt.want {
				t.Errorf("Mode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModeTracker_Check(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		op      Opcode
		wantErr bool
	}{
		{"start from off", ModeOff, OpStart, false},
		{"reset from off", ModeOff, OpReset, false},
		{"safe from off", ModeOff, OpSafe, true},
		{"drive direct from off", ModeOff, OpDriveDirect, true},
		{"drive direct from passive", ModePassive, OpDriveDirect, true},
		{"drive direct from safe", ModeSafe, OpDriveDirect, false},
		{"drive direct from full", ModeFull, OpDriveDirect, false},
		{"leds from passive", ModePassive, OpLEDs, true},
		{"sensors from passive", ModePassive, OpSensors, false},
		{"sensors from off", ModeOff, OpSensors, true},
		{"song from passive", ModePassive, OpSong, false},
		{"play from passive", ModePassive, OpPlay, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewModeTracker()
			tr.Reconcile(tt.mode)
			err := tr.Check(tt.op)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var modeErr *ModeError
				if !errors.As(err, &modeErr) {
					t.Fatalf("error type = %T, want *ModeError", err)
				}
				if modeErr.Current != tt.mode {
					t.Errorf("Current = %v, want %v", modeErr.Current, tt.mode)
				}
			}
		})
	}
}

func TestModeTracker_Invalidate(t *testing.T) {
	tr := NewModeTracker()
	tr.Reconcile(ModeFull)
	tr.Invalidate()

	if tr.Mode() != ModeUnknown {
		t.Fatalf("Mode() = %v, want UNKNOWN", tr.Mode())
	}
	if err := tr.Check(OpDriveDirect); err == nil {
		t.Error("Check(DRIVE_DIRECT) allowed in unknown mode")
	}
	if err := tr.Check(OpStart); err != nil {
		t.Errorf("Check(START) error = %v", err)
	}

	tr.Reconcile(ModeSafe)
	if tr.Mode() != ModeSafe {
		t.Errorf("Mode() after Reconcile = %v, want SAFE", tr.Mode())
	}
}

func TestModeTracker_ReconcileIgnoresUnknown(t *testing.T) {
	tr := NewModeTracker()
	tr.Reconcile(ModePassive)
	tr.Reconcile(ModeUnknown)
	tr.Reconcile(Mode(9))
	if tr.Mode() != ModePassive {
		t.Errorf("Mode() = %v, want PASSIVE", tr.Mode())
	}
}

func TestModeTracker_Streaming(t *testing.T) {
	tr := NewModeTracker()
	tr.Reconcile(ModePassive)

	stream, _ := Stream(PacketBumpsWheelDrops)
	tr.Apply(stream)
	if !tr.Streaming() {
		t.Fatal("Streaming() = false after STREAM")
	}

	err := tr.Check(OpQueryList)
	var modeErr *ModeError
	if !errors.As(err, &modeErr) || !modeErr.Streaming {
		t.Errorf("Check(QUERY_LIST) while streaming = %v, want streaming ModeError", err)
	}
	if err := tr.Check(OpDrive); err == nil {
		t.Error("Check(DRIVE) allowed in passive mode while streaming")
	}

	pause, _ := PauseResumeStream(false)
	tr.Apply(pause)
	if tr.Streaming() {
		t.Error("Streaming() = true after pause")
	}

	tr.Apply(stream)
	tr.Apply(MustEncode(OpStop))
	if tr.Streaming() || tr.Mode() != ModeOff {
		t.Errorf("after STOP: streaming=%v mode=%v", tr.Streaming(), tr.Mode())
	}
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeOff, "OFF"},
		{ModePassive, "PASSIVE"},
		{ModeSafe, "SAFE"},
		{ModeFull, "FULL"},
		{ModeUnknown, "UNKNOWN"},
		{Mode(12), "Mode(12)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}
