// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package robot is the driver facade used by the front ends. It combines
// the transport, the command encoder, the sensor decoder and the mode
// tracker, and owns the background polling timer.
//
// Nothing here is retried. Every failure is returned to the caller as a
// distinguishable error: transport.ErrNotConnected, *transport.ConnectionError,
// *transport.IOError, *oi.ArgumentRangeError, *oi.ModeError or
// *oi.IncompleteReplyError.
package robot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tetherlab/tether/internal/scheduler"
	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/pkg/oi"
)

// Options configure a Robot.
type Options struct {
	// Transport options; the logger is shared when Transport.Logger is nil.
	Transport transport.Options

	// Timeout bounds every reply read. Zero selects transport.DefaultTimeout.
	Timeout time.Duration

	Logger *zap.Logger
}

// Robot drives one robot over one transport.
type Robot struct {
	link    *transport.Transport
	tracker *oi.ModeTracker
	poller  *scheduler.RepeatTimer
	timeout time.Duration
	logger  *zap.Logger

	streamMu   sync.Mutex
	streamStop chan struct{}
	streamDone chan struct{}
}

// New creates a disconnected robot.
func New(opts Options) *Robot {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Transport.Logger == nil {
		opts.Transport.Logger = opts.Logger.Named("transport")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = transport.DefaultTimeout
	}
	return &Robot{
		link:    transport.New(opts.Transport),
		tracker: oi.NewModeTracker(),
		poller:  scheduler.New("poll", opts.Logger.Named("poll")),
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Connect opens address at baud. Any previous connection is closed first
// and the mode tracker starts over at Off.
func (r *Robot) Connect(address string, baud int) error {
	r.stopBackground()
	if err := r.link.Open(address, baud, r.timeout); err != nil {
		r.tracker.Reset()
		return err
	}
	r.tracker.Reset()
	r.logger.Info("Connected", zap.String("address", address), zap.Int("baud", baud))
	return nil
}

// Disconnect stops polling and streaming and closes the link. It is safe
// to call when not connected. It waits for an in-flight poll to finish, so
// it must not be called from a polling callback.
func (r *Robot) Disconnect() {
	r.stopBackground()
	r.link.Close()
	r.tracker.Reset()
}

func (r *Robot) stopBackground() {
	r.poller.Stop()
	r.poller.Wait()
	r.stopStreamReader()
}

// Connected reports whether the link is open.
func (r *Robot) Connected() bool {
	return r.link.IsOpen()
}

// Address returns the connected address, or "".
func (r *Robot) Address() string {
	return r.link.Address()
}

// Transport exposes the link, for diagnostics that need raw bytes.
func (r *Robot) Transport() *transport.Transport {
	return r.link
}

// Mode returns the host-side view of the robot's mode.
func (r *Robot) Mode() oi.Mode {
	return r.tracker.Mode()
}

// Streaming reports whether a sensor stream is active.
func (r *Robot) Streaming() bool {
	return r.tracker.Streaming()
}

// AssumeMode seeds the tracker, for callers that know the robot's mode from
// elsewhere.
func (r *Robot) AssumeMode(m oi.Mode) {
	r.tracker.Reconcile(m)
}

// Send validates and writes one command. Arguments are range checked and
// the mode is checked before any byte is written. Sensor query opcodes are
// answered and their reply consumed so the link stays in step.
func (r *Robot) Send(op oi.Opcode, args ...int) error {
	if !r.link.IsOpen() {
		return transport.ErrNotConnected
	}

	frame, err := oi.Encode(op, args...)
	if err != nil {
		return err
	}

	switch op {
	case oi.OpSensors:
		_, err := r.QuerySensors(oi.PacketID(args[0]))
		return err
	case oi.OpQueryList:
		ids := make([]oi.PacketID, 0, len(args)-1)
		for _, a := range args[1:] {
			ids = append(ids, oi.PacketID(a))
		}
		_, err := r.QuerySensors(ids...)
		return err
	}

	return r.sendFrame(frame)
}

// sendFrame checks the mode, writes frame and applies its mode change.
func (r *Robot) sendFrame(frame oi.Frame) error {
	if !r.link.IsOpen() {
		return transport.ErrNotConnected
	}
	// The tracker changes under the transport lock so a poll's reconcile
	// cannot land between this write and its mode change.
	err := r.link.Do(func(c transport.Conn) error {
		if err := r.tracker.Check(frame.Opcode()); err != nil {
			return err
		}
		if err := c.Write(frame.Bytes()); err != nil {
			return err
		}
		r.tracker.Apply(frame)
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Command sent",
		zap.String("opcode", oi.FormatOpcode(frame.Opcode())),
		zap.Binary("frame", frame.Bytes()),
		zap.Stringer("mode", r.tracker.Mode()))
	return nil
}

// QuerySensors requests ids and decodes the reply into a fresh snapshot.
// One id is sent as SENSORS, several as QUERY_LIST. Group ids are expanded.
//
// A reply that includes the OI mode packet reconciles the mode tracker. A
// short reply invalidates the tracker and fails with
// *oi.IncompleteReplyError wrapping transport.ErrReadTimeout.
func (r *Robot) QuerySensors(ids ...oi.PacketID) (*oi.Snapshot, error) {
	if !r.link.IsOpen() {
		return nil, transport.ErrNotConnected
	}
	frame, want, err := queryFrame(ids)
	if err != nil {
		return nil, err
	}
	return r.exchange(frame, ids, want, true)
}

// SyncMode reads the OI mode packet and adopts it. It bypasses the mode
// check, since its purpose is to recover from a tracker that may be wrong.
func (r *Robot) SyncMode() (oi.Mode, error) {
	if !r.link.IsOpen() {
		return oi.ModeUnknown, transport.ErrNotConnected
	}
	if r.tracker.Streaming() {
		return oi.ModeUnknown, &oi.ModeError{Opcode: oi.OpSensors, Current: r.tracker.Mode(), Streaming: true}
	}

	ids := []oi.PacketID{oi.PacketOIMode}
	frame, want, err := queryFrame(ids)
	if err != nil {
		return oi.ModeUnknown, err
	}
	snap, err := r.exchange(frame, ids, want, false)
	if err != nil {
		return oi.ModeUnknown, err
	}
	return snap.Mode(), nil
}

func queryFrame(ids []oi.PacketID) (oi.Frame, int, error) {
	if len(ids) == 0 {
		return oi.Frame{}, 0, &oi.ArgumentRangeError{Opcode: oi.OpQueryList, Reason: "no sensor packets requested"}
	}
	want, err := oi.ReplyLength(ids...)
	if err != nil {
		return oi.Frame{}, 0, &oi.ArgumentRangeError{Opcode: oi.OpQueryList, Reason: err.Error()}
	}

	var frame oi.Frame
	if len(ids) == 1 {
		frame, err = oi.Sensors(ids[0])
	} else {
		frame, err = oi.QueryList(ids...)
	}
	return frame, want, err
}

// exchange flushes stale input, writes frame and reads the reply under one
// transport lock hold, then decodes it. The mode check and any tracker
// update from the reply happen under the same hold.
func (r *Robot) exchange(frame oi.Frame, ids []oi.PacketID, want int, checkMode bool) (*oi.Snapshot, error) {
	var (
		reply []byte
		snap  *oi.Snapshot
	)
	err := r.link.Do(func(c transport.Conn) error {
		if checkMode {
			if err := r.tracker.Check(frame.Opcode()); err != nil {
				return err
			}
		}
		if err := c.FlushInput(); err != nil {
			return err
		}
		if err := c.Write(frame.Bytes()); err != nil {
			return err
		}
		var err error
		reply, err = c.Read(want)
		if errors.Is(err, transport.ErrReadTimeout) {
			r.tracker.Invalidate()
			return err
		}
		if err != nil {
			return err
		}

		snap, err = oi.DecodeReply(ids, reply)
		if err != nil {
			return err
		}
		if m := snap.Mode(); m != oi.ModeUnknown {
			r.tracker.Reconcile(m)
		}
		return nil
	})

	if errors.Is(err, transport.ErrReadTimeout) {
		r.logger.Warn("Sensor reply timed out, mode unknown",
			zap.String("opcode", oi.FormatOpcode(frame.Opcode())),
			zap.Int("wanted", want),
			zap.Int("got", len(reply)))
		return nil, &oi.IncompleteReplyError{Want: want, Got: len(reply), Err: err}
	}
	if err != nil {
		return nil, err
	}

	for _, w := range snap.Warnings() {
		r.logger.Warn("Sensor decode warning", zap.Error(w))
	}
	return snap, nil
}

// StartPolling queries ids every interval on a background goroutine and
// passes each result to onSnapshot. A running poll is replaced. Polls and
// foreground commands share the transport lock, so their frames never
// interleave.
func (r *Robot) StartPolling(interval time.Duration, ids []oi.PacketID, onSnapshot func(*oi.Snapshot, error)) error {
	if !r.link.IsOpen() {
		return transport.ErrNotConnected
	}
	if onSnapshot == nil {
		return fmt.Errorf("polling needs a snapshot callback")
	}
	if _, _, err := queryFrame(ids); err != nil {
		return err
	}

	ids = append([]oi.PacketID(nil), ids...)
	r.logger.Info("Polling started", zap.Duration("interval", interval), zap.Int("packets", len(ids)))
	return r.poller.Start(interval, func() {
		onSnapshot(r.QuerySensors(ids...))
	})
}

// StopPolling stops the background poll. No poll begins after it returns.
// It does not block and may be called from the snapshot callback.
func (r *Robot) StopPolling() {
	r.poller.Stop()
}

// Polling reports whether background polling is active.
func (r *Robot) Polling() bool {
	return r.poller.Running()
}
