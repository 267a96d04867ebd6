// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetherlab/tether/internal/config"
	"github.com/tetherlab/tether/internal/recorder"
	"github.com/tetherlab/tether/internal/robot"
	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/internal/transport/transporttest"
	"github.com/tetherlab/tether/pkg/oi"
)

func TestParsePacketIDs(t *testing.T) {
	ids, err := parsePacketIDs(nil, oi.GroupAll)
	require.NoError(t, err)
	assert.Equal(t, []oi.PacketID{oi.GroupAll}, ids)

	ids, err = parsePacketIDs([]string{"7", "oi_mode", "group_3", "light-bumper"})
	require.NoError(t, err)
	assert.Equal(t, []oi.PacketID{oi.PacketBumpsWheelDrops, oi.PacketOIMode, oi.GroupPower, oi.PacketLightBumper}, ids)

	for _, bad := range []string{"59", "256", "-1", "nonsense"} {
		_, err := parsePacketIDs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseOpcode(t *testing.T) {
	op, err := parseOpcode("145")
	require.NoError(t, err)
	assert.Equal(t, oi.OpDriveDirect, op)

	op, err = parseOpcode("drive-direct")
	require.NoError(t, err)
	assert.Equal(t, oi.OpDriveDirect, op)

	_, err = parseOpcode("1")
	assert.Error(t, err)
	_, err = parseOpcode("fly")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := parseMode("safe")
	require.NoError(t, err)
	assert.Equal(t, oi.ModeSafe, m)

	_, err = parseMode("turbo")
	assert.Error(t, err)
}

func TestToDumpRecord(t *testing.T) {
	snap, err := oi.DecodeReply([]oi.PacketID{oi.PacketVoltage, oi.PacketOIMode}, []byte{0x3A, 0x98, 0x03})
	require.NoError(t, err)
	rec, err := recorder.NewRecord(snap)
	require.NoError(t, err)
	rec.Session = "abc"

	out := toDumpRecord(rec)
	assert.Equal(t, "abc", out.Session)
	assert.Equal(t, "FULL", out.Mode)
	assert.Equal(t, map[string]int{"VOLTAGE": 15000, "OI_MODE": 3}, out.Packets)
	assert.Empty(t, out.Error)

	out = toDumpRecord(&recorder.Record{Error: "incomplete sensor reply"})
	assert.Equal(t, "incomplete sensor reply", out.Error)
	assert.Nil(t, out.Packets)
}

func newDriveRobot(t *testing.T) (*robot.Robot, *transporttest.FakePort) {
	t.Helper()
	port := transporttest.NewFakePort(nil)
	r := robot.New(robot.Options{
		Transport: transport.Options{Opener: port.Opener(), CommandGap: time.Microsecond},
		Timeout:   20 * time.Millisecond,
	})
	require.NoError(t, r.Connect("fake", 115200))
	t.Cleanup(r.Disconnect)
	return r, port
}

func TestDriveModel_ArrowsAndRelease(t *testing.T) {
	r, port := newDriveRobot(t)
	r.AssumeMode(oi.ModeSafe)

	var model tea.Model = initialDriveModel(r, "fake")
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.NotNil(t, cmd)
	assert.Equal(t, actionDoneMsg{}, cmd())

	dm := model.(driveModel)
	assert.Equal(t, robot.VelocityStep, dm.motion.Velocity)

	// A tick soon after the key keeps the motion
	_, cmd = dm.Update(motionTickMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.Len(t, port.Writes(), 1)

	// A tick after the release delay stops the wheels
	dm.lastArrow = time.Now().Add(-time.Second)
	model, cmd = dm.Update(motionTickMsg(time.Now()))
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.NotEmpty(t, batch)
	assert.Equal(t, actionDoneMsg{}, batch[0]())
	assert.False(t, model.(driveModel).motion.Moving())

	assert.Equal(t, [][]byte{
		{145, 0x00, 0xC8, 0x00, 0xC8},
		{145, 0x00, 0x00, 0x00, 0x00},
	}, port.Writes())
}

func TestDriveModel_ModeErrorIsLogged(t *testing.T) {
	r, port := newDriveRobot(t)

	var model tea.Model = initialDriveModel(r, "fake")
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.NotNil(t, cmd)
	msg := cmd()

	model, _ = model.Update(msg)
	events := model.(driveModel).events.entries
	require.Len(t, events, 1)
	assert.True(t, events[0].isError)
	assert.Empty(t, port.Writes())
}

func TestDriveModel_KeyBinding(t *testing.T) {
	r, port := newDriveRobot(t)

	var model tea.Model = initialDriveModel(r, "fake")
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, actionDoneMsg{name: "Passive"}, msg)
	assert.Equal(t, oi.ModePassive, r.Mode())
	assert.Equal(t, [][]byte{{128}}, port.Writes())

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

// fakeCreate answers sensor queries with zeroed packets and its OI mode.
// It runs inside the fake port's write path.
type fakeCreate struct {
	mode byte
}

func (f *fakeCreate) respond(frame []byte) []byte {
	switch oi.Opcode(frame[0]) {
	case oi.OpStart:
		f.mode = byte(oi.ModePassive)
	case oi.OpSensors:
		return f.reply(oi.PacketID(frame[1]))
	case oi.OpQueryList:
		var out []byte
		for _, b := range frame[2:] {
			out = append(out, f.reply(oi.PacketID(b))...)
		}
		return out
	}
	return nil
}

func (f *fakeCreate) reply(id oi.PacketID) []byte {
	members, _ := oi.Expand(id)
	var out []byte
	for _, m := range members {
		if m == oi.PacketOIMode {
			out = append(out, f.mode)
			continue
		}
		info, _ := oi.LookupPacket(m)
		out = append(out, make([]byte, info.Width)...)
	}
	return out
}

// useFakeCreate points OpenRobot at an in-memory robot.
func useFakeCreate(t *testing.T, sim *fakeCreate) *transporttest.FakePort {
	t.Helper()
	port := transporttest.NewFakePort(sim.respond)

	prevOpen, prevCfg := openPort, cfg
	openPort = func(*transport.Dialer) transport.Opener { return port.Opener() }
	cfg = &config.Config{
		Port:       "/dev/ttyUSB0",
		Baud:       115200,
		Timeout:    30 * time.Millisecond,
		CommandGap: time.Microsecond,
	}
	t.Cleanup(func() { openPort, cfg = prevOpen, prevCfg })
	return port
}

func TestRunSensors_ReadsModeFirst(t *testing.T) {
	port := useFakeCreate(t, &fakeCreate{mode: byte(oi.ModePassive)})

	require.NoError(t, runSensors(sensorsCmd, []string{"group_3", "oi_mode"}))
	assert.Equal(t, [][]byte{
		{142, 35},
		{149, 2, 3, 35},
	}, port.Writes())
}

func TestRunSensors_OffNeedsStart(t *testing.T) {
	port := useFakeCreate(t, &fakeCreate{mode: byte(oi.ModeOff)})

	err := runSensors(sensorsCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
	assert.Equal(t, [][]byte{{142, 35}}, port.Writes())
}

func TestRunSensors_Start(t *testing.T) {
	port := useFakeCreate(t, &fakeCreate{mode: byte(oi.ModeOff)})
	sensorsStart = true
	t.Cleanup(func() { sensorsStart = false })

	require.NoError(t, runSensors(sensorsCmd, nil))
	assert.Equal(t, [][]byte{
		{128},
		{142, 100},
	}, port.Writes())
}

func TestRunRecord_WritesSnapshots(t *testing.T) {
	useFakeCreate(t, &fakeCreate{mode: byte(oi.ModeSafe)})
	out := filepath.Join(t.TempDir(), "sensors.cbor")

	recordOut, recordInterval, recordCount = out, 2*time.Millisecond, 3
	t.Cleanup(func() { recordOut, recordInterval, recordCount = "", time.Second, 0 })

	done := make(chan error, 1)
	go func() { done <- runRecord(recordCmd, []string{"oi_mode", "voltage"}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("record did not stop after --count records")
	}

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	recs, err := recorder.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.Empty(t, rec.Error)
		assert.NotEmpty(t, rec.Session)
		snap, err := rec.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, oi.ModeSafe, snap.Mode())
	}
}
