package audio

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyIDs(entries []HistoryEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestHistory_NewestFirstWithoutDuplicates(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	for _, f := range []string{"a.mp3", "b.mp3", "a.mp3"} {
		require.NoError(t, h.m.PlayTrack(ctx, rain(f), false))
	}

	history := h.m.History()
	assert.Equal(t, []string{"Rain__a_mp3", "Rain__b_mp3"}, historyIDs(history))
	assert.Equal(t, "a", history[0].DisplayName)
	assert.Equal(t, "Rain", history[0].Category)
	assert.Equal(t, float64(100), history[0].Duration)
	assert.True(t, history[0].PlayedAt.After(history[1].PlayedAt))
	assert.Equal(t, rain("a.mp3"), history[0].Track())

	ev, ok := h.events.last(EventHistoryChanged)
	require.True(t, ok)
	assert.Equal(t, history, ev.(HistoryChanged).History)

	raw, ok := h.storage.Get("soundHealing_history")
	require.True(t, ok)
	var stored []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "a.mp3", stored[0]["fileName"])
	assert.Contains(t, stored[0], "playedAt")
}

func TestHistory_Capped(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryLimit = 3
	h := newHarness(t, cfg)
	ctx := context.Background()
	for _, f := range []string{"t00.mp3", "t01.mp3", "t02.mp3", "t03.mp3", "t04.mp3"} {
		require.NoError(t, h.m.PlayTrack(ctx, NewTrackRef("Big", f), false))
	}

	assert.Equal(t, []string{"Big__t04_mp3", "Big__t03_mp3", "Big__t02_mp3"}, historyIDs(h.m.History()))
}

func TestHistory_SkipsRejectedPlays(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	require.NoError(t, h.m.PlayTrack(ctx, NewTrackRef("Odd", "noise.xyz"), false))

	h.backend.setPlayErr(errors.New("NotAllowedError"))
	assert.Error(t, h.m.PlayTrack(ctx, rain("a.mp3"), false))

	history := h.m.History()
	assert.Equal(t, []string{"Odd__noise_xyz"}, historyIDs(history))
	assert.Zero(t, history[0].Duration)
}

func TestHistory_RestoredOnInitialize(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.storage.Set("soundHealing_history", `[
		{"category":"Rain","fileName":"b.mp3","displayName":"b","playedAt":"2026-03-01T11:00:00.000Z","duration":42},
		{"id":"Rain__a_mp3","category":"Rain","fileName":"a.mp3","playedAt":"2026-03-01T10:00:00.000Z"},
		{"fileName":"orphan.mp3"}
	]`))

	require.NoError(t, h.m.Initialize())
	history := h.m.History()
	assert.Equal(t, []string{"Rain__b_mp3", "Rain__a_mp3"}, historyIDs(history))
	assert.Equal(t, 42.0, history[0].Duration)
	assert.Equal(t, 1, h.events.count(EventHistoryChanged))

	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))
	assert.Equal(t, []string{"Rain__a_mp3", "Rain__b_mp3"}, historyIDs(h.m.History()))
}

func TestHistory_CorruptIsIgnoredOnInitialize(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.storage.Set("soundHealing_history", "{oops"))

	assert.Error(t, h.m.LoadHistory())
	assert.NoError(t, h.m.Initialize())
	assert.Empty(t, h.m.History())
}

func TestClearHistory(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.m.PlayTrack(context.Background(), rain("a.mp3"), false))

	require.NoError(t, h.m.ClearHistory())
	assert.Empty(t, h.m.History())
	raw, ok := h.storage.Get("soundHealing_history")
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
	ev, ok := h.events.last(EventHistoryChanged)
	require.True(t, ok)
	assert.Empty(t, ev.(HistoryChanged).History)
}
