package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepTimer_FadesOutEverythingPlaying(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	h.m.SetMixMode(true)
	require.NoError(t, h.m.PlayTrack(ctx, rain("a.mp3"), false))
	require.NoError(t, h.m.PlayTrack(ctx, rain("b.mp3"), false))

	h.m.SetSleepTimer(30 * time.Millisecond)
	_, running := h.m.SleepRemaining()
	assert.True(t, running)

	require.Eventually(t, func() bool { return !h.m.IsAnyPlaying() }, time.Second, 5*time.Millisecond)
	ev, ok := h.events.last(EventSleepTimerExpired)
	require.True(t, ok)
	assert.Equal(t, []TrackRef{rain("a.mp3"), rain("b.mp3")}, ev.(SleepTimerExpired).Stopped)
	assert.InDelta(t, 0, h.el("Rain", "a.mp3").Volume(), 1e-9)
	assert.InDelta(t, 0, h.el("Rain", "b.mp3").Volume(), 1e-9)

	_, running = h.m.SleepRemaining()
	assert.False(t, running)
	assert.Equal(t, 1, h.events.count(EventAllTracksStopped))
}

func TestSleepTimer_CountsDown(t *testing.T) {
	cfg := testConfig()
	cfg.SleepTick = 5 * time.Millisecond
	h := newHarness(t, cfg)

	h.m.SetSleepTimer(time.Hour)
	ev, ok := h.events.last(EventSleepTimerSet)
	require.True(t, ok)
	assert.Equal(t, time.Hour, ev.(SleepTimerSet).Duration)

	require.Eventually(t, func() bool { return h.events.count(EventSleepTimerTick) >= 2 }, time.Second, 5*time.Millisecond)
	tick, _ := h.events.last(EventSleepTimerTick)
	assert.LessOrEqual(t, tick.(SleepTimerTick).Remaining, time.Hour)
	assert.Greater(t, tick.(SleepTimerTick).Remaining, 59*time.Minute)

	remaining, ok := h.m.SleepRemaining()
	require.True(t, ok)
	assert.Greater(t, remaining, 59*time.Minute)
}

func TestSleepTimer_Cancel(t *testing.T) {
	cfg := testConfig()
	cfg.SleepTick = 5 * time.Millisecond
	h := newHarness(t, cfg)
	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))

	h.m.SetSleepTimer(40 * time.Millisecond)
	h.m.CancelSleepTimer()
	h.m.CancelSleepTimer()
	h.m.SetSleepTimer(0)
	assert.Equal(t, 1, h.events.count(EventSleepTimerCancelled))

	ticks := h.events.count(EventSleepTimerTick)
	time.Sleep(80 * time.Millisecond)
	assert.True(t, h.m.IsAnyPlaying())
	assert.Equal(t, 0, h.events.count(EventSleepTimerExpired))
	assert.Equal(t, ticks, h.events.count(EventSleepTimerTick))
}

func TestSleepTimer_NewTimerReplacesOld(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))

	h.m.SetSleepTimer(time.Hour)
	h.m.SetSleepTimer(20 * time.Millisecond)

	require.Eventually(t, func() bool { return !h.m.IsAnyPlaying() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.events.count(EventSleepTimerSet))
	assert.Equal(t, 1, h.events.count(EventSleepTimerExpired))
}

func TestClose_StopsSleepTimer(t *testing.T) {
	h := newHarness(t, testConfig())
	h.m.SetSleepTimer(20 * time.Millisecond)
	require.NoError(t, h.m.Close())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, h.events.count(EventSleepTimerExpired))
	_, running := h.m.SleepRemaining()
	assert.False(t, running)
}
