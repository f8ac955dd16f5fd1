package ui

import (
	"errors"
	"time"

	"github.com/simukka/sound-healing/audio"
)

// PlayerState mirrors what the manager has announced on its bus. Views
// render from it instead of querying the manager.
type PlayerState struct {
	CurrentTrackID string
	Category       string
	File           string
	Title          string

	Playing bool
	Loading bool
	Silent  bool

	CurrentTime float64
	Duration    float64
	Progress    float64 // Percent

	Shuffle      bool
	Repeat       audio.RepeatMode
	GlobalVolume float64
	TrackVolume  float64

	Sleeping      bool
	SleepDuration time.Duration // As set, for cycling presets
	SleepLeft     time.Duration
}

// Apply folds one event into the state and reports whether anything
// visible changed.
func (s *PlayerState) Apply(ev audio.Event) bool {
	switch e := ev.(type) {
	case audio.TrackPlay:
		if e.Track.ID != s.CurrentTrackID {
			s.CurrentTime, s.Duration, s.Progress = 0, 0, 0
		}
		s.CurrentTrackID = e.Track.ID
		s.Category = e.Track.Category
		s.File = e.Track.File
		s.Title = FormatTrackName(e.Track.File)
		s.Playing = true
		s.Silent = e.Silent
	case audio.TrackPause:
		if e.Track.ID != s.CurrentTrackID {
			return false
		}
		s.Playing = false
	case audio.TrackEnded:
		if e.Track.ID != s.CurrentTrackID {
			return false
		}
		s.Playing = false
	case audio.AllTracksStopped:
		if !s.Playing {
			return false
		}
		s.Playing = false
	case audio.LoadingStart:
		s.Loading = true
	case audio.LoadingEnd:
		s.Loading = false
	case audio.ProgressUpdate:
		if e.TrackID != s.CurrentTrackID {
			return false
		}
		s.CurrentTime, s.Duration, s.Progress = e.CurrentTime, e.Duration, e.Progress
	case audio.ShuffleChanged:
		s.Shuffle = e.Enabled
	case audio.RepeatChanged:
		s.Repeat = e.Mode
	case audio.GlobalVolumeChange:
		s.GlobalVolume = e.Volume
	case audio.VolumeChange:
		if e.TrackID != s.CurrentTrackID {
			return false
		}
		s.TrackVolume = e.Volume
	case audio.SleepTimerSet:
		s.Sleeping = true
		s.SleepDuration, s.SleepLeft = e.Duration, e.Duration
	case audio.SleepTimerTick:
		if !s.Sleeping {
			return false
		}
		s.SleepLeft = e.Remaining
	case audio.SleepTimerExpired, audio.SleepTimerCancelled:
		s.Sleeping = false
		s.SleepDuration, s.SleepLeft = 0, 0
	case audio.SettingsLoaded:
		s.Shuffle = e.Settings.ShuffleMode
		s.Repeat = e.Settings.RepeatMode
		s.GlobalVolume = e.Settings.GlobalVolume
	default:
		return false
	}
	return true
}

func isAutoplayBlocked(err error) bool {
	return errors.Is(err, audio.ErrAutoplayBlocked)
}
