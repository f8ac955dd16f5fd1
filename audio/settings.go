package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Settings is the persisted user state stored under Config.SettingsKey.
type Settings struct {
	GlobalVolume float64            `json:"globalVolume"`
	TrackVolumes map[string]float64 `json:"trackVolumes"`
	RepeatMode   RepeatMode         `json:"repeatMode"`
	ShuffleMode  bool               `json:"shuffleMode"`
	Timestamp    int64              `json:"timestamp"` // Unix milliseconds
}

// storedSettings tells absent fields apart from zero values.
type storedSettings struct {
	GlobalVolume *float64           `json:"globalVolume"`
	TrackVolumes map[string]float64 `json:"trackVolumes"`
	RepeatMode   string             `json:"repeatMode"`
	ShuffleMode  *bool              `json:"shuffleMode"`
	Timestamp    int64              `json:"timestamp"`
}

// Snapshot returns the current settings without writing them.
func (m *Manager) Snapshot() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingsLocked()
}

func (m *Manager) settingsLocked() Settings {
	vols := make(map[string]float64, len(m.trackVolumes)+len(m.instances))
	for id, v := range m.trackVolumes {
		vols[id] = v
	}
	for id, inst := range m.instances {
		vols[id] = inst.Volume
	}
	return Settings{
		GlobalVolume: m.globalVolume,
		TrackVolumes: vols,
		RepeatMode:   m.repeat,
		ShuffleMode:  m.shuffle,
		Timestamp:    m.now().UnixNano() / int64(time.Millisecond),
	}
}

// SaveSettings writes the current settings to storage.
func (m *Manager) SaveSettings() error {
	m.mu.Lock()
	s := m.settingsLocked()
	key := m.cfg.SettingsKey
	m.mu.Unlock()
	return m.writeSettings(key, s)
}

// TrySaveSettings is SaveSettings for callers that must not wait, such as a
// page unload handler. It returns ErrBusy when another goroutine holds the
// manager.
func (m *Manager) TrySaveSettings() error {
	if !m.mu.TryLock() {
		return ErrBusy
	}
	s := m.settingsLocked()
	key := m.cfg.SettingsKey
	m.mu.Unlock()
	return m.writeSettings(key, s)
}

func (m *Manager) writeSettings(key string, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := m.storage.Set(key, string(data)); err != nil {
		m.log.WithFields(logrus.Fields{
			"function": "SaveSettings",
			"key":      key,
			"error":    err.Error(),
		}).Warn("Failed to save settings")
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadSettings restores settings from storage. Missing settings are not an
// error. Per-track volumes apply to live instances now and to the rest when
// they are created.
func (m *Manager) LoadSettings() error {
	m.mu.Lock()
	key := m.cfg.SettingsKey
	m.mu.Unlock()

	raw, ok := m.storage.Get(key)
	if !ok || raw == "" {
		return nil
	}
	var stored storedSettings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}

	m.mu.Lock()
	defer m.unlockAndFlush()
	if stored.GlobalVolume != nil {
		m.setGlobalLocked(*stored.GlobalVolume)
	}
	if mode, ok := ParseRepeatMode(stored.RepeatMode); ok {
		m.repeat = mode
		m.emitLocked(RepeatChanged{Mode: mode})
	}
	if stored.ShuffleMode != nil {
		m.setShuffleLocked(*stored.ShuffleMode)
	}
	for id, v := range stored.TrackVolumes {
		v = clamp01(v)
		m.trackVolumes[id] = v
		if inst, ok := m.instances[id]; ok {
			inst.Volume = v
			m.applyVolumeLocked(inst)
		}
	}

	s := m.settingsLocked()
	s.Timestamp = stored.Timestamp
	m.emitLocked(SettingsLoaded{Settings: s})
	m.log.WithFields(logrus.Fields{
		"function":      "LoadSettings",
		"global_volume": m.globalVolume,
		"repeat":        m.repeat,
		"shuffle":       m.shuffle,
	}).Debug("Settings restored")
	return nil
}

// Start runs the periodic settings save and idle sweep until ctx ends.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	saveEvery, sweepEvery := m.cfg.SaveInterval, m.cfg.SweepInterval
	m.mu.Unlock()

	go func() {
		save := time.NewTicker(saveEvery)
		sweep := time.NewTicker(sweepEvery)
		defer save.Stop()
		defer sweep.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-save.C:
				_ = m.SaveSettings()
			case now := <-sweep.C:
				m.Sweep(now)
			}
		}
	}()
}

// Sweep releases instances that are idle, not current and unused for
// Config.IdleTTL. It returns how many were released.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	released := 0
	for id, inst := range m.instances {
		if inst.Playing || m.isCurrentLocked(id) {
			continue
		}
		if now.Sub(inst.LastUsed) < m.cfg.IdleTTL {
			continue
		}
		m.removeLocked(inst)
		released++
	}
	if released > 0 {
		m.log.WithFields(logrus.Fields{
			"function": "Sweep",
			"released": released,
			"pool":     len(m.instances),
		}).Debug("Released idle audio instances")
	}
	return released
}

// Close saves settings and releases every element. The manager may be
// initialized again afterwards.
func (m *Manager) Close() error {
	err := m.SaveSettings()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopProgressLocked()
	m.stopSleepLocked()
	for id := range m.fades {
		m.cancelFadeLocked(id)
	}
	for _, inst := range m.instances {
		inst.release()
	}
	m.instances = make(map[string]*Instance)
	m.loading = make(map[string]bool)
	m.current = nil
	m.currentTrack = nil
	m.playlist = nil
	m.playlistMode = false
	m.initialized = false
	m.pending = nil

	m.log.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Audio manager closed")
	return err
}
