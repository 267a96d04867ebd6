// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

// Tethered drive steps
const (
	VelocityStep = 200 // mm/s
	RotationStep = 300 // mm/s difference between the wheels
)

// Action is a no-argument operation bound to a key.
type Action func(r *Robot) error

// Binding pairs an action with its help text.
type Binding struct {
	Action Action
	Help   string
}

// KeyBindings maps tethered-drive keys to facade operations. Motion keys
// are handled by Motion; the sensor dump key is handled by the front end
// since it produces output.
var KeyBindings = map[string]Binding{
	"p":     {(*Robot).Start, "Passive"},
	"s":     {(*Robot).Safe, "Safe"},
	"f":     {(*Robot).Full, "Full"},
	"c":     {(*Robot).Clean, "Clean"},
	"d":     {(*Robot).SeekDock, "Dock"},
	"r":     {(*Robot).Reset, "Reset"},
	" ":     {(*Robot).Beep, "Beep"},
	"space": {(*Robot).Beep, "Beep"},
}

// Motion is the current tethered-drive velocity and rotation.
type Motion struct {
	Velocity int
	Rotation int
}

// Press applies an arrow key. It returns false for any other key.
func (m *Motion) Press(key string) bool {
	switch key {
	case "up":
		m.Velocity = VelocityStep
	case "down":
		m.Velocity = -VelocityStep
	case "left":
		m.Rotation = RotationStep
	case "right":
		m.Rotation = -RotationStep
	default:
		return false
	}
	return true
}

// Release zeroes both velocity and rotation.
func (m *Motion) Release() {
	m.Velocity = 0
	m.Rotation = 0
}

// Moving reports whether either component is nonzero.
func (m Motion) Moving() bool {
	return m.Velocity != 0 || m.Rotation != 0
}

// Wheels returns the right and left wheel velocities.
func (m Motion) Wheels() (right, left int) {
	return m.Velocity + m.Rotation/2, m.Velocity - m.Rotation/2
}

// Apply sends the motion as a DRIVE_DIRECT command.
func (m Motion) Apply(r *Robot) error {
	right, left := m.Wheels()
	return r.DriveDirect(right, left)
}
