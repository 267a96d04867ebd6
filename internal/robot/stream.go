// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package robot

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/pkg/oi"
)

// Stream reader tuning
const (
	streamChunk = 256
	streamWait  = 50 * time.Millisecond
)

// StartStream asks the robot to send ids every 15 ms and decodes the frames
// on a background goroutine. onSnapshot receives each decoded frame, or an
// error for a rejected frame. Sensor queries fail with *oi.ModeError until
// StopStream.
func (r *Robot) StartStream(ids []oi.PacketID, onSnapshot func(*oi.Snapshot, error)) error {
	if !r.link.IsOpen() {
		return transport.ErrNotConnected
	}
	if onSnapshot == nil {
		return fmt.Errorf("streaming needs a snapshot callback")
	}
	if r.poller.Running() {
		return fmt.Errorf("stop polling before starting a stream")
	}

	frame, err := oi.Stream(ids...)
	if err != nil {
		return err
	}

	r.stopStreamReader()
	if err := r.sendFrame(frame); err != nil {
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	r.streamMu.Lock()
	r.streamStop = stop
	r.streamDone = done
	r.streamMu.Unlock()

	r.logger.Info("Stream started", zap.Int("packets", len(ids)))
	go r.readStream(stop, done, onSnapshot)
	return nil
}

func (r *Robot) readStream(stop, done chan struct{}, onSnapshot func(*oi.Snapshot, error)) {
	defer close(done)

	decoder := oi.NewStreamDecoder()
	for {
		select {
		case <-stop:
			return
		default:
		}

		chunk, err := r.link.ReadChunk(streamChunk, streamWait)
		if err != nil {
			onSnapshot(nil, err)
			if errors.Is(err, transport.ErrNotConnected) {
				return
			}
			var ioErr *transport.IOError
			if errors.As(err, &ioErr) {
				return
			}
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		snaps, errs := decoder.Decode(chunk)
		for _, e := range errs {
			r.logger.Debug("Stream frame rejected", zap.Error(e))
			onSnapshot(nil, e)
		}
		for _, s := range snaps {
			if m := s.Mode(); m != oi.ModeUnknown {
				r.tracker.Reconcile(m)
			}
			onSnapshot(s, nil)
		}
	}
}

// stopStreamReader stops the reader goroutine, if any, and waits for it.
func (r *Robot) stopStreamReader() {
	r.streamMu.Lock()
	stop, done := r.streamStop, r.streamDone
	r.streamStop, r.streamDone = nil, nil
	r.streamMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// StopStream pauses the robot's stream, stops the reader and discards
// leftover stream bytes.
func (r *Robot) StopStream() error {
	r.stopStreamReader()

	frame, err := oi.PauseResumeStream(false)
	if err != nil {
		return err
	}
	if err := r.sendFrame(frame); err != nil {
		return err
	}
	r.logger.Info("Stream stopped")
	return r.link.FlushInput()
}
