// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRepeatTimer_Fires(t *testing.T) {
	r := New("test", nil)
	var calls atomic.Int32

	require.NoError(t, r.Start(5*time.Millisecond, func() { calls.Add(1) }))
	assert.True(t, r.Running())

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	r.Stop()
	r.Wait()
	assert.False(t, r.Running())

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "callback fired after Stop and Wait")
}

func TestRepeatTimer_StopImmediatelyAfterStart(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := New("test", nil)
		var calls atomic.Int32

		require.NoError(t, r.Start(time.Millisecond, func() { calls.Add(1) }))
		r.Stop()
		stopped := calls.Load()
		r.Wait()

		assert.LessOrEqual(t, calls.Load()-stopped, int32(1))
		waited := calls.Load()
		time.Sleep(3 * time.Millisecond)
		assert.Equal(t, waited, calls.Load())
	}
}

func TestRepeatTimer_NoOverlap(t *testing.T) {
	r := New("test", nil)
	var active, maxActive, calls atomic.Int32

	require.NoError(t, r.Start(time.Millisecond, func() {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
	}))

	assert.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, time.Millisecond)
	r.Stop()
	r.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestRepeatTimer_Restart(t *testing.T) {
	r := New("test", nil)
	var first, second atomic.Int32

	require.NoError(t, r.Start(2*time.Millisecond, func() { first.Add(1) }))
	assert.Eventually(t, func() bool { return first.Load() >= 1 }, time.Second, time.Millisecond)

	r.Stop()
	r.Wait()
	frozen := first.Load()

	require.NoError(t, r.Start(2*time.Millisecond, func() { second.Add(1) }))
	assert.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, time.Millisecond)
	r.Stop()
	r.Wait()

	assert.Equal(t, frozen, first.Load())
}

func TestRepeatTimer_StartReplacesRunningLoop(t *testing.T) {
	r := New("test", nil)
	var first, second atomic.Int32

	require.NoError(t, r.Start(2*time.Millisecond, func() { first.Add(1) }))
	assert.Eventually(t, func() bool { return first.Load() >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, r.Start(2*time.Millisecond, func() { second.Add(1) }))
	time.Sleep(5 * time.Millisecond)
	frozen := first.Load()

	assert.Eventually(t, func() bool { return second.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, frozen, first.Load())

	r.Stop()
	r.Wait()
}

func TestRepeatTimer_RestartDuringSlowCallback(t *testing.T) {
	r := New("test", nil)
	var active, maxActive, calls atomic.Int32
	entered := make(chan struct{}, 1)

	slow := func() {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		select {
		case entered <- struct{}{}:
		default:
		}
		time.Sleep(50 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
	}

	require.NoError(t, r.Start(time.Millisecond, slow))
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}

	// Restart while the first firing is still sleeping
	r.Stop()
	require.NoError(t, r.Start(time.Millisecond, slow))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, r.Start(time.Millisecond, slow))

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	r.Stop()
	r.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, int32(0), active.Load())
}

func TestRepeatTimer_StartFromCallback(t *testing.T) {
	r := New("test", nil)
	var first, second atomic.Int32

	require.NoError(t, r.Start(time.Millisecond, func() {
		if first.Add(1) == 1 {
			assert.NoError(t, r.Start(time.Millisecond, func() { second.Add(1) }))
		}
	}))

	assert.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, time.Millisecond)
	r.Stop()
	r.Wait()
	assert.Equal(t, int32(1), first.Load())
}

func TestRepeatTimer_StopIsIdempotent(t *testing.T) {
	r := New("test", nil)
	r.Stop()
	r.Wait()

	require.NoError(t, r.Start(time.Millisecond, func() {}))
	r.Stop()
	r.Stop()
	r.Wait()
	assert.False(t, r.Running())
}

func TestRepeatTimer_StopFromCallback(t *testing.T) {
	r := New("test", nil)
	var calls atomic.Int32

	require.NoError(t, r.Start(time.Millisecond, func() {
		calls.Add(1)
		r.Stop()
	}))
	r.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, r.Running())
}

func TestRepeatTimer_PanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := New("panicky", zap.New(core))
	var calls atomic.Int32

	require.NoError(t, r.Start(time.Millisecond, func() {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	}))

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	r.Stop()
	r.Wait()

	require.Equal(t, 1, logs.FilterMessage("Timer callback panicked").Len())
}

func TestRepeatTimer_InvalidArguments(t *testing.T) {
	r := New("test", nil)
	assert.ErrorIs(t, r.Start(0, func() {}), ErrInvalidInterval)
	assert.Error(t, r.Start(time.Second, nil))
	assert.False(t, r.Running())
}
