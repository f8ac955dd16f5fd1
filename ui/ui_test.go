package ui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
)

func TestFormatTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{59.9, "00:59"},
		{61, "01:01"},
		{3599, "59:59"},
		{3600, "60:00"},
		{math.NaN(), "00:00"},
		{math.Inf(1), "00:00"},
		{-3, "00:00"},
	}
	for _, c := range cases {
		if got := FormatTime(c.in); got != c.want {
			t.Errorf("FormatTime(%v): expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestFormatTrackName(t *testing.T) {
	assert.Equal(t, "Gentle Rain", FormatTrackName("Gentle Rain.mp3"))
	assert.Equal(t, "Ocean", FormatTrackName("03.Ocean.WAV"))
	assert.Equal(t, "深度睡眠", FormatTrackName("催眠音乐深度睡眠.flac"))
	assert.Equal(t, "notes.txt", FormatTrackName("notes.txt"))
	assert.Equal(t, "01..mp3", FormatTrackName("01..mp3"), "empty result falls back to the file name")

	long := strings.Repeat("雨", 50) + ".mp3"
	got := FormatTrackName(long)
	assert.Equal(t, 40, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTrackTitle_PrefersTagTitle(t *testing.T) {
	cat := &catalog.Category{Key: "Rain", Titles: map[string]string{"a.mp3": "Morning Drizzle"}}
	assert.Equal(t, "Morning Drizzle", TrackTitle(cat, "a.mp3"))
	assert.Equal(t, "b", TrackTitle(cat, "b.mp3"))
	assert.Equal(t, "c", TrackTitle(nil, "c.mp3"))
}

func TestRepeatHelpers(t *testing.T) {
	assert.Equal(t, audio.RepeatOne, NextRepeatMode(audio.RepeatNone))
	assert.Equal(t, audio.RepeatAll, NextRepeatMode(audio.RepeatOne))
	assert.Equal(t, audio.RepeatNone, NextRepeatMode(audio.RepeatAll))
	assert.Equal(t, "🔂", RepeatIcon(audio.RepeatOne))
	assert.Equal(t, "🔁", RepeatIcon(audio.RepeatAll))
	assert.Equal(t, "57%", PercentLabel(0.567))
}

func TestErrorMessage(t *testing.T) {
	assert.Contains(t, ErrorMessage(fmt.Errorf("play a.mp3: %w", audio.ErrAutoplayBlocked)), "autoplay")
	assert.Equal(t, "Playback failed: boom", ErrorMessage(errors.New("boom")))
	assert.Empty(t, ErrorMessage(nil))
}

func TestPlayerState_FollowsEvents(t *testing.T) {
	var s PlayerState
	a := audio.NewTrackRef("Rain", "01.Soft Rain.mp3")
	b := audio.NewTrackRef("Rain", "b.mp3")

	assert.True(t, s.Apply(audio.LoadingStart{Track: a}))
	assert.True(t, s.Loading)
	s.Apply(audio.LoadingEnd{Track: a})
	assert.False(t, s.Loading)

	s.Apply(audio.TrackPlay{Track: a})
	assert.True(t, s.Playing)
	assert.Equal(t, a.ID, s.CurrentTrackID)
	assert.Equal(t, "Soft Rain", s.Title)

	s.Apply(audio.ProgressUpdate{TrackID: a.ID, CurrentTime: 30, Duration: 120, Progress: 25})
	assert.Equal(t, 25.0, s.Progress)
	assert.False(t, s.Apply(audio.ProgressUpdate{TrackID: b.ID, Progress: 80}), "other tracks are ignored")
	assert.Equal(t, 25.0, s.Progress)

	assert.False(t, s.Apply(audio.TrackPause{Track: b}))
	assert.True(t, s.Playing)
	s.Apply(audio.TrackPause{Track: a})
	assert.False(t, s.Playing)

	s.Apply(audio.TrackPlay{Track: b, Silent: true})
	assert.True(t, s.Silent)
	assert.Equal(t, 0.0, s.Progress, "switching tracks clears progress")

	s.Apply(audio.TrackEnded{Track: b})
	assert.False(t, s.Playing)
	assert.False(t, s.Apply(audio.AllTracksStopped{}))

	s.Apply(audio.RepeatChanged{Mode: audio.RepeatOne})
	s.Apply(audio.ShuffleChanged{Enabled: true})
	s.Apply(audio.GlobalVolumeChange{Volume: 0.3})
	s.Apply(audio.VolumeChange{TrackID: b.ID, Volume: 0.9})
	assert.Equal(t, audio.RepeatOne, s.Repeat)
	assert.True(t, s.Shuffle)
	assert.Equal(t, 0.3, s.GlobalVolume)
	assert.Equal(t, 0.9, s.TrackVolume)

	s.Apply(audio.SettingsLoaded{Settings: audio.Settings{RepeatMode: audio.RepeatAll, GlobalVolume: 0.6}})
	assert.Equal(t, audio.RepeatAll, s.Repeat)
	assert.False(t, s.Shuffle)
	assert.Equal(t, 0.6, s.GlobalVolume)
}

func TestPlayerState_SleepTimer(t *testing.T) {
	var s PlayerState
	assert.False(t, s.Apply(audio.SleepTimerTick{Remaining: time.Minute}), "ticks without a timer are ignored")

	s.Apply(audio.SleepTimerSet{Duration: 30 * time.Minute})
	assert.True(t, s.Sleeping)
	assert.Equal(t, "30:00", SleepLabel(s.SleepLeft, s.Sleeping))

	s.Apply(audio.SleepTimerTick{Remaining: 90*time.Second + 400*time.Millisecond})
	assert.Equal(t, "1:30", SleepLabel(s.SleepLeft, s.Sleeping))
	assert.Equal(t, 60*time.Minute, NextSleepPreset(s.SleepDuration))

	s.Apply(audio.SleepTimerExpired{})
	assert.False(t, s.Sleeping)
	assert.Empty(t, SleepLabel(s.SleepLeft, s.Sleeping))
	assert.Equal(t, 15*time.Minute, NextSleepPreset(s.SleepDuration))
}

func TestNextSleepPreset_SwitchesOffAfterLast(t *testing.T) {
	assert.Equal(t, 30*time.Minute, NextSleepPreset(15*time.Minute))
	assert.Equal(t, time.Duration(0), NextSleepPreset(60*time.Minute))
	assert.Equal(t, 15*time.Minute, NextSleepPreset(5*time.Minute), "custom lengths move to the next preset")
}

func testCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Add(&catalog.Category{Key: "Rain", Name: "Rain", Icon: "🌧", Description: "Soft <rain>", Files: []string{"a.mp3", "b.wma"}})
	c.Add(&catalog.Category{Key: "Fire", Name: "Fire", Files: []string{"camp.ogg"}})
	return c
}

func TestRenderCategories(t *testing.T) {
	views := CategoryViews(testCatalog())
	require.Len(t, views, 2)
	assert.Equal(t, "Rain", views[0].Key)
	assert.Equal(t, 2, views[0].Count)

	html, err := RenderCategories(views)
	require.NoError(t, err)
	assert.Contains(t, html, `data-category="Rain"`)
	assert.Contains(t, html, `2 tracks`)
	assert.Contains(t, html, `Soft &lt;rain&gt;`)
	assert.Less(t, strings.Index(html, "Rain"), strings.Index(html, "Fire"))
}

func TestRenderTrackList(t *testing.T) {
	cat, _ := testCatalog().Get("Rain")
	formats := audio.FormatTable{"mp3": true, "wma": false}
	state := PlayerState{CurrentTrackID: "Rain__a_mp3", Playing: true}

	view := TrackList(cat, formats, func(string) float64 { return 0.5 }, state)
	assert.Equal(t, "Rain (2 tracks)", view.Title)
	require.Len(t, view.Tracks, 2)
	assert.True(t, view.Tracks[0].Playing)
	assert.True(t, view.Tracks[0].Supported)
	assert.False(t, view.Tracks[1].Supported)
	assert.Equal(t, "WMA", view.Tracks[1].Ext)
	assert.Equal(t, "⏸️", view.Tracks[0].Icon())
	assert.Equal(t, "⚠️", view.Tracks[1].Icon())

	html, err := RenderTrackList(view)
	require.NoError(t, err)
	assert.Contains(t, html, `data-track-id="Rain__a_mp3"`)
	assert.Contains(t, html, `track-item playing`)
	assert.Contains(t, html, `track-item unsupported-format`)
	assert.Contains(t, html, `data-file="b.wma" disabled`)
	assert.Contains(t, html, `value="0.5"`)
	assert.Equal(t, 1, strings.Count(html, "format-warning"))
}
