// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"time"

	"go.uber.org/zap"

	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/pkg/oi"
)

// BeepSong is the song slot used by Beep.
const BeepSong = 3

// baudSettle is how long the robot needs after BAUD before it listens at
// the new rate.
const baudSettle = 100 * time.Millisecond

func (r *Robot) send(frame oi.Frame, err error) error {
	if err != nil {
		return err
	}
	return r.sendFrame(frame)
}

// Start enters Passive mode.
func (r *Robot) Start() error { return r.Send(oi.OpStart) }

// Safe enters Safe mode.
func (r *Robot) Safe() error { return r.Send(oi.OpSafe) }

// Full enters Full mode.
func (r *Robot) Full() error { return r.Send(oi.OpFull) }

// Reset reboots the robot. START must be sent again afterwards.
func (r *Robot) Reset() error { return r.Send(oi.OpReset) }

// Stop leaves the Open Interface.
func (r *Robot) Stop() error { return r.Send(oi.OpStop) }

// Power powers the robot down.
func (r *Robot) Power() error { return r.Send(oi.OpPower) }

// Clean starts the default cleaning mission.
func (r *Robot) Clean() error { return r.Send(oi.OpClean) }

// Spot starts spot cleaning.
func (r *Robot) Spot() error { return r.Send(oi.OpSpot) }

// MaxClean starts max cleaning.
func (r *Robot) MaxClean() error { return r.Send(oi.OpMax) }

// SeekDock sends the robot to its dock.
func (r *Robot) SeekDock() error { return r.Send(oi.OpSeekDock) }

// Drive moves at velocity (mm/s) along radius (mm).
func (r *Robot) Drive(velocity, radius int) error {
	return r.send(oi.Drive(velocity, radius))
}

// DriveDirect sets the wheel velocities (mm/s).
func (r *Robot) DriveDirect(right, left int) error {
	return r.send(oi.DriveDirect(right, left))
}

// DrivePWM sets the wheel PWM duty.
func (r *Robot) DrivePWM(right, left int) error {
	return r.send(oi.DrivePWM(right, left))
}

// Halt stops both wheels.
func (r *Robot) Halt() error {
	return r.DriveDirect(0, 0)
}

// Motors switches the cleaning motors.
func (r *Robot) Motors(bits int) error {
	return r.send(oi.Motors(bits))
}

// LEDs sets the LED bits and the power LED.
func (r *Robot) LEDs(bits, powerColor, powerIntensity int) error {
	return r.send(oi.LEDs(bits, powerColor, powerIntensity))
}

// DigitLEDsASCII shows up to four characters on the display.
func (r *Robot) DigitLEDsASCII(text string) error {
	return r.send(oi.DigitLEDsASCII(text))
}

// Song stores notes as song number.
func (r *Robot) Song(number int, notes []oi.Note) error {
	return r.send(oi.Song(number, notes))
}

// Play plays a stored song.
func (r *Robot) Play(number int) error {
	return r.send(oi.Play(number))
}

// Beep stores a single short note and plays it.
func (r *Robot) Beep() error {
	if err := r.Song(BeepSong, []oi.Note{{Pitch: 64, Duration: 16}}); err != nil {
		return err
	}
	return r.Play(BeepSong)
}

// SetDayTime sets the robot clock from t.
func (r *Robot) SetDayTime(t time.Time) error {
	return r.send(oi.SetDayTime(int(t.Weekday()), t.Hour(), t.Minute()))
}

// Schedule sets the cleaning schedule.
func (r *Robot) Schedule(days int, times [7]oi.ScheduleTime) error {
	return r.send(oi.Schedule(days, times))
}

// ChangeBaud tells the robot to switch baud rate and reopens the link at
// the new rate. The tracker keeps its mode across the reopen.
func (r *Robot) ChangeBaud(rate int) error {
	frame, err := oi.Baud(rate)
	if err != nil {
		return err
	}
	if transport.IsWebSocketAddress(r.link.Address()) {
		return &oi.ArgumentRangeError{Opcode: oi.OpBaud, Arg: "rate", Value: rate,
			Reason: "baud rate is fixed by the WebSocket bridge"}
	}
	if err := r.sendFrame(frame); err != nil {
		return err
	}

	time.Sleep(baudSettle)

	address := r.link.Address()
	if err := r.link.Open(address, rate, r.timeout); err != nil {
		r.tracker.Reset()
		return err
	}
	r.logger.Info("Baud rate changed", zap.String("address", address), zap.Int("baud", rate))
	return nil
}
