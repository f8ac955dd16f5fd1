package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/catalog"
)

// HistoryEntry is one played track. The JSON layout matches what the page
// has always kept in local storage.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	FileName    string    `json:"fileName"`
	DisplayName string    `json:"displayName"`
	PlayedAt    time.Time `json:"playedAt"`
	Duration    float64   `json:"duration"` // Seconds, 0 when unknown
}

// Track returns the reference to play the entry again.
func (e HistoryEntry) Track() TrackRef {
	return NewTrackRef(e.Category, e.FileName)
}

// History returns the played tracks, newest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryEntry(nil), m.history...)
}

// ClearHistory forgets every played track.
func (m *Manager) ClearHistory() error {
	m.mu.Lock()
	defer m.unlockAndFlush()
	m.history = nil
	m.emitLocked(HistoryChanged{})
	return m.storeHistoryLocked()
}

// recordPlayLocked moves inst to the front of the history, dropping an
// older entry for the same track and the oldest beyond HistoryLimit.
func (m *Manager) recordPlayLocked(inst *Instance) {
	entry := HistoryEntry{
		ID:          inst.Track.ID,
		Category:    inst.Track.Category,
		FileName:    inst.Track.File,
		DisplayName: catalog.DisplayName(inst.Track.File),
		PlayedAt:    m.now(),
	}
	if el, ok := inst.Element(); ok {
		if d := el.Duration(); d > 0 && !math.IsInf(d, 0) {
			entry.Duration = d
		}
	}

	history := make([]HistoryEntry, 0, len(m.history)+1)
	history = append(history, entry)
	for _, e := range m.history {
		if e.ID != entry.ID {
			history = append(history, e)
		}
	}
	if len(history) > m.cfg.HistoryLimit {
		history = history[:m.cfg.HistoryLimit]
	}
	m.history = history
	m.emitLocked(HistoryChanged{History: append([]HistoryEntry(nil), history...)})

	if err := m.storeHistoryLocked(); err != nil {
		m.log.WithFields(logrus.Fields{
			"function": "recordPlay",
			"error":    err.Error(),
		}).Warn("Failed to save play history")
	}
}

func (m *Manager) storeHistoryLocked() error {
	history := m.history
	if history == nil {
		history = []HistoryEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := m.storage.Set(m.cfg.HistoryKey, string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// LoadHistory restores the play history from storage. A missing history is
// not an error; entries beyond HistoryLimit are dropped.
func (m *Manager) LoadHistory() error {
	m.mu.Lock()
	key := m.cfg.HistoryKey
	m.mu.Unlock()

	raw, ok := m.storage.Get(key)
	if !ok || raw == "" {
		return nil
	}
	var history []HistoryEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}

	m.mu.Lock()
	defer m.unlockAndFlush()
	kept := history[:0]
	for _, e := range history {
		if e.Category == "" || e.FileName == "" {
			continue
		}
		if e.ID == "" {
			e.ID = catalog.TrackID(e.Category, e.FileName)
		}
		kept = append(kept, e)
	}
	if len(kept) > m.cfg.HistoryLimit {
		kept = kept[:m.cfg.HistoryLimit]
	}
	m.history = kept
	m.emitLocked(HistoryChanged{History: append([]HistoryEntry(nil), kept...)})
	return nil
}
