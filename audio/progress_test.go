package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_TicksWhilePlaying(t *testing.T) {
	h := newHarness(t, testConfig())
	updates := make(chan ProgressUpdate, 64)
	h.m.Bus().Subscribe(EventProgressUpdate, func(ev Event) {
		select {
		case updates <- ev.(ProgressUpdate):
		default:
		}
	})

	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))
	h.el("Rain", "a.mp3").SetCurrentTime(25)

	require.Eventually(t, func() bool {
		select {
		case u := <-updates:
			return u.TrackID == "Rain__a_mp3" && u.Progress == 25 && u.Duration == 100
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestProgress_StopsOnPause(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))
	h.m.PauseTrack("Rain__a_mp3")
	h.events.reset()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, h.events.count(EventProgressUpdate))
}

func TestSeekTo(t *testing.T) {
	h := newHarness(t, testConfig())
	assert.ErrorIs(t, h.m.SeekTo(10), ErrNotReady)

	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))
	h.m.PauseTrack("Rain__a_mp3")

	require.NoError(t, h.m.SeekTo(50))
	assert.Equal(t, 50.0, h.el("Rain", "a.mp3").CurrentTime())
	ev, ok := h.events.last(EventProgressUpdate)
	require.True(t, ok)
	assert.Equal(t, ProgressUpdate{TrackID: "Rain__a_mp3", CurrentTime: 50, Duration: 100, Progress: 50}, ev)

	require.NoError(t, h.m.SeekTo(150))
	assert.Equal(t, 100.0, h.el("Rain", "a.mp3").CurrentTime())
}
