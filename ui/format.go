// Package ui renders the player pages and keeps them in step with the
// playback manager.
package ui

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
)

// Longest track name shown before truncation, in runes.
const maxTrackName = 40

var (
	numberPrefix = regexp.MustCompile(`^\d+\.`)
	stockPrefix  = regexp.MustCompile(`^(催眠音乐|催眠专用|放松轻音乐)`)
)

// FormatTime renders seconds as mm:ss. Unknown durations show 00:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatTrackName turns a file name into a short display name.
func FormatTrackName(file string) string {
	name := catalog.DisplayName(file)
	name = numberPrefix.ReplaceAllString(name, "")
	name = stockPrefix.ReplaceAllString(name, "")
	if r := []rune(name); len(r) > maxTrackName {
		name = string(r[:maxTrackName-3]) + "..."
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return file
	}
	return name
}

// TrackTitle prefers a tag title from the catalog over the file name.
func TrackTitle(cat *catalog.Category, file string) string {
	if cat != nil {
		if title := strings.TrimSpace(cat.Titles[file]); title != "" {
			return title
		}
	}
	return FormatTrackName(file)
}

// SleepPresets are the sleep timer lengths the page cycles through, in
// minutes. Past the last one the timer is switched off.
var SleepPresets = []int{15, 30, 60}

// NextSleepPreset returns the preset after the one running, or 0 to switch
// the timer off.
func NextSleepPreset(running time.Duration) time.Duration {
	for _, m := range SleepPresets {
		if d := time.Duration(m) * time.Minute; d > running {
			return d
		}
	}
	return 0
}

// SleepLabel renders a countdown as m:ss. Nothing is shown when no timer
// runs.
func SleepLabel(left time.Duration, running bool) string {
	if !running {
		return ""
	}
	if left < 0 {
		left = 0
	}
	total := int(left.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// NextRepeatMode cycles none -> one -> all.
func NextRepeatMode(m audio.RepeatMode) audio.RepeatMode {
	return m.Next()
}

// RepeatIcon is the repeat button label for m.
func RepeatIcon(m audio.RepeatMode) string {
	if m == audio.RepeatOne {
		return "🔂"
	}
	return "🔁"
}

// PlayIcon is the play/pause button label.
func PlayIcon(playing bool) string {
	if playing {
		return "⏸️"
	}
	return "▶️"
}

// PercentLabel renders a 0-1 volume as a whole percentage.
func PercentLabel(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// ErrorMessage is the toast text for a failed play request.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if isAutoplayBlocked(err) {
		return "Your browser blocked autoplay. Press play to start listening."
	}
	return "Playback failed: " + err.Error()
}
