package audio

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PlayPlaylist enters playlist mode over category starting at start.
// An out of range start begins at the first track.
func (m *Manager) PlayPlaylist(ctx context.Context, category string, start int) error {
	m.mu.Lock()
	cat, ok := m.catalog.Get(category)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if len(cat.Files) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEmptyCategory, category)
	}
	m.playlist = newPlaylist(cat.Key, cat.Files, start)
	m.playlistMode = true
	if m.shuffle {
		m.playlist.Shuffle(m.rng)
	}
	ref, _ := m.playlist.CurrentRef()
	m.log.WithFields(logrus.Fields{
		"function": "PlayPlaylist",
		"category": cat.Key,
		"start":    m.playlist.CurrentIndex,
		"tracks":   m.playlist.Len(),
	}).Info("Starting playlist")
	m.unlockAndFlush()

	return m.PlayTrack(ctx, ref, true)
}

// NextTrack advances the playlist. At the last track RepeatAll wraps to
// the first; any other mode leaves playlist mode. Outside playlist mode it
// does nothing.
func (m *Manager) NextTrack(ctx context.Context) error {
	m.mu.Lock()
	if !m.playlistMode || m.playlist == nil {
		m.mu.Unlock()
		return nil
	}
	ref, ok := m.advanceLocked()
	m.unlockAndFlush()
	if !ok {
		return nil
	}
	return m.PlayTrack(ctx, ref, true)
}

// PreviousTrack steps the playlist back. At the first track RepeatAll wraps
// to the last; otherwise the cursor stays put.
func (m *Manager) PreviousTrack(ctx context.Context) error {
	m.mu.Lock()
	if !m.playlistMode || m.playlist == nil {
		m.mu.Unlock()
		return nil
	}
	if !m.playlist.Previous(m.repeat) {
		m.mu.Unlock()
		return nil
	}
	ref, _ := m.playlist.CurrentRef()
	m.mu.Unlock()
	return m.PlayTrack(ctx, ref, true)
}

// HandleTrackEnded runs when an element reaches its end. In playlist mode
// RepeatOne replays the same index and anything else advances.
func (m *Manager) HandleTrackEnded(ctx context.Context, id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	inst.Playing = false
	if !inst.Silent() {
		inst.State = StateEnded
	}
	if m.current == inst {
		m.current = nil
		m.stopProgressLocked()
	}
	m.emitLocked(TrackEnded{Track: inst.Track})

	var (
		next TrackRef
		play bool
	)
	if m.playlistMode && m.playlist != nil {
		if cur, ok := m.playlist.CurrentRef(); ok && cur.ID == id {
			if m.repeat == RepeatOne {
				next, play = cur, true
			} else {
				next, play = m.advanceLocked()
			}
		}
	}
	m.unlockAndFlush()

	var err error
	if play {
		err = m.PlayTrack(ctx, next, true)
	}

	m.mu.Lock()
	m.checkAllStoppedLocked()
	m.unlockAndFlush()
	return err
}

// advanceLocked moves the cursor forward, leaving playlist mode at the end.
func (m *Manager) advanceLocked() (TrackRef, bool) {
	if m.playlist.Next(m.repeat) {
		return m.playlist.CurrentRef()
	}
	m.playlistMode = false
	m.log.WithFields(logrus.Fields{
		"function": "NextTrack",
		"category": m.playlist.Category,
	}).Info("Playlist finished")
	return TrackRef{}, false
}

// ExitPlaylist leaves playlist mode without touching playback.
func (m *Manager) ExitPlaylist() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlistMode = false
	m.playlist = nil
}

// PlaylistMode reports whether playback auto-advances through a playlist.
func (m *Manager) PlaylistMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playlistMode
}

// Playlist returns a copy of the active playlist.
func (m *Manager) Playlist() (Playlist, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playlist == nil {
		return Playlist{}, false
	}
	return *m.playlist.clone(), true
}

// SetShuffle toggles shuffle. Enabling reshuffles the active playlist with
// the current track first; disabling restores catalog order.
func (m *Manager) SetShuffle(enabled bool) {
	m.mu.Lock()
	defer m.unlockAndFlush()
	m.setShuffleLocked(enabled)
}

func (m *Manager) setShuffleLocked(enabled bool) {
	m.shuffle = enabled
	if m.playlist != nil {
		if enabled {
			m.playlist.Shuffle(m.rng)
		} else {
			m.playlist.Restore()
		}
	}
	m.emitLocked(ShuffleChanged{Enabled: enabled})
}

// Shuffle reports whether shuffle is on.
func (m *Manager) Shuffle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shuffle
}

// SetRepeatMode changes the repeat mode.
func (m *Manager) SetRepeatMode(mode RepeatMode) error {
	if _, ok := ParseRepeatMode(string(mode)); !ok {
		return fmt.Errorf("invalid repeat mode %q", mode)
	}
	m.mu.Lock()
	defer m.unlockAndFlush()
	m.repeat = mode
	m.emitLocked(RepeatChanged{Mode: mode})
	return nil
}

// RepeatMode returns the repeat mode.
func (m *Manager) RepeatMode() RepeatMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeat
}
