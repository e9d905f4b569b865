package swd_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swd "github.com/kcuzner/swdadaptor"
	"github.com/kcuzner/swdadaptor/internal/lineio"
)

func runAdaptor(t *testing.T, cfg swd.Config, target *lineio.Target) *swd.Adaptor {
	t.Helper()
	line := lineio.NewLoopback(target)
	cfg.HalfPeriod = time.Microsecond
	a := swd.NewAdaptor(line, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a
}

func waitDone(t *testing.T, a *swd.Adaptor, slot uint8) (swd.StatusCode, uint32) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if rec := a.Results().Slot(slot); rec.Done() {
			status, data, _ := rec.Peek()
			return status, data
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for result")
		case <-time.After(time.Microsecond):
		}
	}
}

// TestAdaptorSingleRead matches spec.md §8 scenario 1.
func TestAdaptorSingleRead(t *testing.T) {
	target := &lineio.Target{Ack: 0b001, ReadData: 0xCAFEF00D}
	a := runAdaptor(t, swd.Config{}, target)

	require.True(t, a.Results().Claim(3))
	require.NoError(t, a.BeginRead(0xA5, 3))
	status, data := waitDone(t, a, 3)
	assert.Equal(t, swd.StatusOK, status)
	assert.Equal(t, uint32(0xCAFEF00D), data)
	assert.EqualValues(t, 0xA5, target.LastRequest)
}

// TestAdaptorWriteWait matches spec.md §8 scenario 2: a WAIT ACK
// completes the transaction without touching DATA.
func TestAdaptorWriteWait(t *testing.T) {
	target := &lineio.Target{Ack: 0b010}
	a := runAdaptor(t, swd.Config{}, target)

	require.True(t, a.Results().Claim(9))
	require.NoError(t, a.BeginWrite(0x81, 0x11223344, 9))
	status, _ := waitDone(t, a, 9)
	assert.Equal(t, swd.StatusBusy, status)
}

// TestAdaptorQueueSaturation matches spec.md §8 scenario 3: submitting
// faster than the bus can drain eventually reports ErrQueueFull.
func TestAdaptorQueueSaturation(t *testing.T) {
	target := &lineio.Target{Ack: 0b001}
	line := lineio.NewLoopback(target)
	// No Run loop: nothing drains the queue, so capacity is exact.
	a := swd.NewAdaptor(line, swd.Config{})

	for i := 0; i < swd.QueueCapacity; i++ {
		require.NoErrorf(t, a.BeginRead(0xA5, uint8(i)), "submission %d", i)
	}
	assert.ErrorIs(t, a.BeginRead(0xA5, 200), swd.ErrQueueFull)
}

// TestAdaptorSlotReuseWithoutDrainStalls matches spec.md §8 scenario 4:
// a result slot that hasn't been collected can't be claimed again.
func TestAdaptorSlotReuseWithoutDrainStalls(t *testing.T) {
	a := swd.NewAdaptor(lineio.NewLoopback(&lineio.Target{Ack: 0b001}), swd.Config{})

	assert.True(t, a.Results().Claim(0))
	require.NoError(t, a.BeginRead(0xA5, 0))
	assert.False(t, a.Results().Claim(0))
}

// TestAdaptorBackToBackOperations follows spec.md §8 scenario 5: several
// submissions queued back to back all complete OK with the target's
// data. It does not observe how many INIT/STOP brackets the bus used.
func TestAdaptorBackToBackOperations(t *testing.T) {
	target := &lineio.Target{Ack: 0b001, ReadData: 0x01020304}
	a := runAdaptor(t, swd.Config{}, target)

	for i := uint8(0); i < 5; i++ {
		require.True(t, a.Results().Claim(i))
		require.NoError(t, a.BeginRead(0xA5, i))
	}
	for i := uint8(0); i < 5; i++ {
		status, data := waitDone(t, a, i)
		assert.Equal(t, swd.StatusOK, status)
		assert.Equal(t, uint32(0x01020304), data)
	}
}

// TestAdaptorGracefulStop matches spec.md §8 scenario 6: once the queue
// drains, the bus returns to IDLE on its own and LineReset becomes
// usable again.
func TestAdaptorGracefulStop(t *testing.T) {
	target := &lineio.Target{Ack: 0b001}
	a := runAdaptor(t, swd.Config{}, target)

	require.True(t, a.Results().Claim(0))
	require.NoError(t, a.BeginRead(0xA5, 0))
	waitDone(t, a, 0)

	require.Eventually(t, func() bool {
		return a.State() == swd.StateIdle
	}, time.Second, time.Microsecond)

	assert.NoError(t, a.LineReset())
}
