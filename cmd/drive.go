// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tetherlab/tether/internal/robot"
	"github.com/tetherlab/tether/pkg/oi"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	// Terminals report key repeats, not releases. Motion stops once no
	// arrow key has repeated for this long.
	motionRelease = 400 * time.Millisecond
	motionTick    = 50 * time.Millisecond
)

var driveSync bool

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive the robot from the keyboard",
	Long: `Tethered drive: control the robot with the keyboard.

Keys:
  P      START (Passive)        S      SAFE
  F      FULL                   C      CLEAN
  D      SEEK_DOCK              R      RESET
  Space  beep                   B      dump sensors
  Arrows drive (hold to keep moving)
  Esc/q  stop and quit

Driving needs Safe or Full mode, so press P then S first. The wheels stop
shortly after the arrow keys are released.`,
	RunE: runDrive,
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.Flags().BoolVar(&driveSync, "sync", true, "Read the OI mode from the robot on start")
}

func runDrive(cmd *cobra.Command, args []string) error {
	r, err := OpenRobot()
	if err != nil {
		return err
	}
	defer r.Disconnect()

	m := initialDriveModel(r, connectionInfo())
	if driveSync {
		if mode, err := r.SyncMode(); err != nil {
			m.events.add(fmt.Sprintf("Mode read failed: %v", err), true)
		} else {
			m.events.add(fmt.Sprintf("Robot is in %s mode", mode), false)
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	// Never leave the wheels turning
	if err := r.Halt(); err != nil && !isModeError(err) {
		return err
	}
	return nil
}

func isModeError(err error) bool {
	var modeErr *oi.ModeError
	return errors.As(err, &modeErr)
}

//////////////////////////////////////////////////////////////
// Key help
//////////////////////////////////////////////////////////////

type driveKeyMap struct {
	Modes  key.Binding
	Drive  key.Binding
	Beep   key.Binding
	Sensor key.Binding
	Quit   key.Binding
}

func (k driveKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Drive, k.Modes, k.Beep, k.Sensor, k.Quit}
}

func (k driveKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newDriveKeyMap() driveKeyMap {
	names := make([]string, 0, len(robot.KeyBindings))
	for k, b := range robot.KeyBindings {
		if len(k) == 1 && k != " " {
			names = append(names, strings.ToUpper(k)+" "+b.Help)
		}
	}
	sort.Strings(names)

	return driveKeyMap{
		Modes:  key.NewBinding(key.WithKeys("p", "s", "f", "c", "d", "r"), key.WithHelp(strings.Join(names, " "), "")),
		Drive:  key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "drive")),
		Beep:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "beep")),
		Sensor: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "sensors")),
		Quit:   key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("esc/q", "quit")),
	}
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

// driveModel is the Bubble Tea model for tethered drive
type driveModel struct {
	robot    *robot.Robot
	connInfo string

	motion     robot.Motion
	lastArrow  time.Time
	lastSensor *oi.Snapshot

	keys   driveKeyMap
	help   help.Model
	events eventLog

	width    int
	height   int
	quitting bool
}

// Messages
type motionTickMsg time.Time

type actionDoneMsg struct {
	name string
	err  error
}

type sensorDumpMsg struct {
	snap *oi.Snapshot
	err  error
}

func initialDriveModel(r *robot.Robot, connInfo string) driveModel {
	return driveModel{
		robot:    r,
		connInfo: connInfo,
		keys:     newDriveKeyMap(),
		help:     help.New(),
		events:   newEventLog(50),
		width:    80,
		height:   24,
	}
}

func (m driveModel) Init() tea.Cmd {
	return motionTickCmd()
}

func motionTickCmd() tea.Cmd {
	return tea.Tick(motionTick, func(t time.Time) tea.Msg {
		return motionTickMsg(t)
	})
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case motionTickMsg:
		if m.motion.Moving() && time.Since(m.lastArrow) > motionRelease {
			m.motion.Release()
			return m, tea.Batch(m.applyMotion(), motionTickCmd())
		}
		return m, motionTickCmd()

	case actionDoneMsg:
		if msg.err != nil {
			m.events.add(fmt.Sprintf("%s: %v", msg.name, msg.err), true)
		} else if msg.name != "" {
			m.events.add(fmt.Sprintf("%s (mode %s)", msg.name, m.robot.Mode()), false)
		}

	case sensorDumpMsg:
		if msg.err != nil {
			m.events.add(fmt.Sprintf("Sensor dump: %v", msg.err), true)
		} else {
			m.lastSensor = msg.snap
			for _, v := range oi.ValidateSnapshot(msg.snap) {
				m.events.add(v.Message, true)
			}
		}
	}

	return m, nil
}

func (m driveModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch k {
	case "esc", "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "b":
		r := m.robot
		return m, func() tea.Msg {
			snap, err := r.QuerySensors(oi.GroupAll)
			return sensorDumpMsg{snap: snap, err: err}
		}
	}

	if m.motion.Press(k) {
		m.lastArrow = time.Now()
		return m, m.applyMotion()
	}

	if b, ok := robot.KeyBindings[k]; ok {
		r := m.robot
		return m, func() tea.Msg {
			return actionDoneMsg{name: b.Help, err: b.Action(r)}
		}
	}
	return m, nil
}

// applyMotion sends the current wheel speeds. Only failures are logged so
// key repeats do not flood the event log.
func (m driveModel) applyMotion() tea.Cmd {
	r, motion := m.robot, m.motion
	return func() tea.Msg {
		if err := motion.Apply(r); err != nil {
			return actionDoneMsg{name: "Drive", err: err}
		}
		return actionDoneMsg{}
	}
}

func (m driveModel) View() string {
	if m.quitting {
		return "Stopping...\n"
	}
	st := newStyles()

	var s strings.Builder
	s.WriteString(st.title.Render("TETHER DRIVE"))
	s.WriteString(" ")
	s.WriteString(st.header.Render("| " + m.connInfo))
	s.WriteString("\n\n")

	// Status
	right, left := m.motion.Wheels()
	mode := m.robot.Mode()
	modeStyle := st.value
	if mode != oi.ModeSafe && mode != oi.ModeFull {
		modeStyle = st.warning
	}
	status := fmt.Sprintf("%s %s   %s %s   %s %s",
		st.label.Render("Mode:"), modeStyle.Render(mode.String()),
		st.label.Render("Velocity:"), st.value.Render(fmt.Sprintf("%d mm/s", m.motion.Velocity)),
		st.label.Render("Wheels L/R:"), st.value.Render(fmt.Sprintf("%d / %d mm/s", left, right)),
	)
	s.WriteString(st.box.Render(status))
	s.WriteString("\n\n")

	if m.lastSensor != nil {
		s.WriteString(st.label.Render(fmt.Sprintf("Sensors (%s):", m.lastSensor.Timestamp().Format("15:04:05"))))
		s.WriteString("\n")
		s.WriteString(st.box.Render(renderSensors(st, m.lastSensor)))
		s.WriteString("\n\n")
	}

	s.WriteString(st.label.Render("Events:"))
	s.WriteString("\n")
	s.WriteString(m.events.render(st, 8, m.width))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}
