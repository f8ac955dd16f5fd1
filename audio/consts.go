package audio

import (
	"errors"
	"math"
)

// RepeatMode controls what happens when a playlist runs off either end.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none" // Stop at the end of the playlist
	RepeatOne  RepeatMode = "one"  // Replay the current track when it ends
	RepeatAll  RepeatMode = "all"  // Wrap around to the other end
)

// ParseRepeatMode converts a persisted string to a RepeatMode.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch RepeatMode(s) {
	case RepeatNone, RepeatOne, RepeatAll:
		return RepeatMode(s), true
	default:
		return RepeatNone, false
	}
}

// Next cycles none -> one -> all -> none.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatNone
	}
}

// State is the lifecycle state of one audio instance.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	StateStopped
	StateSilent // Terminal substitute for unsupported or unloadable files
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateStopped:
		return "stopped"
	case StateSilent:
		return "silent"
	default:
		return "unknown"
	}
}

var (
	ErrNotReady          = errors.New("audio not ready")
	ErrAutoplayBlocked   = errors.New("browser blocked autoplay; playback needs a user gesture")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrEmptyCategory     = errors.New("category has no tracks")
	ErrPoolFull          = errors.New("audio instance pool is full")
	ErrNoCategories      = errors.New("audio catalog not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrBusy              = errors.New("audio manager busy")
)

// FormatMIME lists the MIME types probed for each file extension.
var FormatMIME = map[string][]string{
	"mp3":  {"audio/mpeg"},
	"wma":  {"audio/x-ms-wma", "audio/wma"},
	"wav":  {"audio/wav"},
	"ogg":  {"audio/ogg"},
	"flac": {"audio/flac"},
	"m4a":  {"audio/mp4"},
	"aac":  {"audio/aac"},
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
