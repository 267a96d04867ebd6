// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tetherlab/tether/pkg/oi"
)

//////////////////////////////////////////////////////////////
// Shared TUI pieces
//////////////////////////////////////////////////////////////

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// eventLog keeps the most recent entries.
type eventLog struct {
	entries []logEntry
	max     int
}

func newEventLog(max int) eventLog {
	return eventLog{entries: make([]logEntry, 0, max), max: max}
}

func (l *eventLog) add(message string, isError bool) {
	l.entries = append(l.entries, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

func (l eventLog) render(st styles, lines, width int) string {
	var s strings.Builder

	startIdx := len(l.entries) - lines
	if startIdx < 0 {
		startIdx = 0
	}

	if len(l.entries) == 0 {
		s.WriteString(st.header.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(l.entries); i++ {
			entry := l.entries[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				s.WriteString(fmt.Sprintf("%s %s\n", st.header.Render(timestamp), st.err.Render("✗ "+entry.message)))
			} else {
				s.WriteString(fmt.Sprintf("%s %s\n", st.header.Render(timestamp), st.warning.Render("ℹ "+entry.message)))
			}
		}
	}

	if width > 8 {
		return st.box.Width(width - 4).Render(s.String())
	}
	return st.box.Render(s.String())
}

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	err     lipgloss.Style
	warning lipgloss.Style
	box     lipgloss.Style
	key     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Padding(0, 1),
	}
}

// renderSensors lays out the sensors a driver cares about.
func renderSensors(st styles, snap *oi.Snapshot) string {
	var s strings.Builder
	row := func(label string, id oi.PacketID) {
		r, ok := snap.Get(id)
		if !ok {
			return
		}
		s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render(fmt.Sprintf("%-14s", label)), st.value.Render(oi.FormatReading(r))))
	}

	row("Mode:", oi.PacketOIMode)
	row("Bumps:", oi.PacketBumpsWheelDrops)
	row("Light bumper:", oi.PacketLightBumper)
	row("Wall:", oi.PacketWall)
	row("Cliff left:", oi.PacketCliffLeft)
	row("Cliff right:", oi.PacketCliffRight)
	row("Buttons:", oi.PacketButtons)
	row("Charging:", oi.PacketChargingState)
	row("Voltage:", oi.PacketVoltage)
	row("Current:", oi.PacketCurrent)
	row("Temperature:", oi.PacketTemperature)
	if _, ok := snap.Get(oi.PacketBatteryCapacity); ok {
		s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render(fmt.Sprintf("%-14s", "Battery:")), st.value.Render(oi.FormatBattery(snap))))
	}
	row("Velocity:", oi.PacketRequestedVelocity)
	row("Encoder L:", oi.PacketLeftEncoder)
	row("Encoder R:", oi.PacketRightEncoder)
	return strings.TrimRight(s.String(), "\n")
}

//////////////////////////////////////////////////////////////
// Stream TUI
//////////////////////////////////////////////////////////////

// TUI model
type streamModel struct {
	connInfo      string
	ids           []oi.PacketID
	showAll       bool
	stats         *oi.Statistics
	events        eventLog
	synchronized  bool
	preSyncErrors int
	last          *oi.Snapshot
	width         int
	height        int
	quitting      bool
	linkLost      bool
}

// Messages
type streamTickMsg time.Time
type streamDataMsg struct {
	snap             *oi.Snapshot
	decodeErr        error
	validationErrors []oi.ValidationError
}
type linkLostMsg struct {
	err error
}

func initialStreamModel(connInfo string, ids []oi.PacketID, showAll bool) streamModel {
	return streamModel{
		connInfo: connInfo,
		ids:      ids,
		showAll:  showAll,
		stats:    oi.NewStatistics(),
		events:   newEventLog(100),
		width:    80,
		height:   24,
	}
}

func (m streamModel) Init() tea.Cmd {
	return tea.Batch(
		streamTickCmd(),
		tea.EnterAltScreen,
	)
}

func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return streamTickMsg(t)
	})
}

func (m streamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.events.add("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case streamTickMsg:
		m.stats.CalculateRates()
		return m, streamTickCmd()

	case linkLostMsg:
		m.linkLost = true
		m.events.add(fmt.Sprintf("Link lost: %v", msg.err), true)

	case streamDataMsg:
		m.process(msg)
	}

	return m, nil
}

func (m *streamModel) process(msg streamDataMsg) {
	if msg.decodeErr != nil {
		// Garbage before the first good frame is expected
		if !m.synchronized {
			m.preSyncErrors++
			return
		}
		m.stats.Update(nil, msg.decodeErr, nil)
		m.events.add(fmt.Sprintf("FRAME REJECTED: %v", msg.decodeErr), true)
		return
	}

	if !m.synchronized {
		m.synchronized = true
		if m.preSyncErrors > 0 {
			m.events.add(fmt.Sprintf("Synchronized after %d rejected frames", m.preSyncErrors), false)
		} else {
			m.events.add("Synchronized", false)
		}
	}

	m.stats.Update(msg.snap, nil, msg.validationErrors)
	m.last = msg.snap
	for _, v := range msg.validationErrors {
		m.events.add(v.Message, true)
	}
	if m.showAll && len(msg.validationErrors) == 0 {
		m.events.add(fmt.Sprintf("frame with %d packets (valid)", msg.snap.Len()), false)
	}
}

func (m streamModel) View() string {
	if m.quitting {
		return "Stopping stream...\n"
	}
	st := newStyles()

	var s strings.Builder
	s.WriteString(st.title.Render("TETHER - SENSOR STREAM"))
	s.WriteString("\n")
	s.WriteString(st.header.Render(fmt.Sprintf("%s | %d packets | 'r' reset stats, 'q' quit", m.connInfo, len(m.ids))))
	s.WriteString("\n\n")

	switch {
	case m.linkLost:
		s.WriteString(st.err.Render("✗ Link lost"))
	case !m.synchronized:
		s.WriteString(st.warning.Render("⏳ Waiting for the first stream frame..."))
	default:
		s.WriteString(st.value.Render("✓ Synchronized"))
	}
	s.WriteString("\n\n")

	// Statistics
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.TotalFrames)
	}

	var stats strings.Builder
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		st.label.Render("Total:"), st.value.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		st.label.Render("Valid:"), st.value.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		st.label.Render("Errors:"), st.err.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.Errors(), errorPercent)),
	))
	if m.stats.ChecksumErrors > 0 || m.stats.DecodeErrors > 0 {
		stats.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			st.label.Render("Checksum Errors:"), st.err.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			st.label.Render("Decode Errors:"), st.err.Render(fmt.Sprintf("%d", m.stats.DecodeErrors)),
		))
	}
	if m.stats.AnomalousValues > 0 {
		stats.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d)\n",
			st.label.Render("Anomalous:"), st.warning.Render(fmt.Sprintf("%d", m.stats.AnomalousValues)),
			st.header.Render("unknown enum"), m.stats.UnknownEnums,
			st.header.Render("voltage"), m.stats.InvalidVoltage,
			st.header.Render("temp"), m.stats.InvalidTemp,
			st.header.Render("velocity"), m.stats.InvalidVelocity,
		))
	}
	errRate := st.value.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	if m.stats.ErrorRate > 0 {
		errRate = st.err.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		st.label.Render("Frame Rate:"), st.value.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		st.label.Render("Error Rate:"), errRate,
	))
	s.WriteString(st.box.Render(stats.String()))
	s.WriteString("\n\n")

	if m.last != nil {
		s.WriteString(st.label.Render("Latest Frame:"))
		s.WriteString("\n")
		s.WriteString(st.box.Render(renderSensors(st, m.last)))
		s.WriteString("\n\n")
	}

	s.WriteString(st.label.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(m.events.render(st, logHeight, m.width))

	return s.String()
}
