package audio

import (
	"time"

	"github.com/sirupsen/logrus"
)

// fade is one running volume ramp. Closing stop cancels it. level is the
// fraction of the effective volume currently applied, so the ramp follows
// volume changes made while it runs.
type fade struct {
	stop  chan struct{}
	level float64
}

// SetTrackVolume sets the per-track volume of id. The value is remembered
// even when no instance exists yet.
func (m *Manager) SetTrackVolume(id string, v float64) {
	v = clamp01(v)
	m.mu.Lock()
	defer m.unlockAndFlush()
	m.trackVolumes[id] = v
	if inst, ok := m.instances[id]; ok {
		m.cancelFadeLocked(id)
		inst.Volume = v
		m.applyVolumeLocked(inst)
	}
	m.emitLocked(VolumeChange{TrackID: id, Volume: v})
}

// SetGlobalVolume sets the multiplier applied to every track.
func (m *Manager) SetGlobalVolume(v float64) {
	m.mu.Lock()
	defer m.unlockAndFlush()
	m.setGlobalLocked(v)
}

func (m *Manager) setGlobalLocked(v float64) {
	m.globalVolume = clamp01(v)
	for _, inst := range m.instances {
		m.applyVolumeLocked(inst)
	}
	m.emitLocked(GlobalVolumeChange{Volume: m.globalVolume})
}

// GlobalVolume returns the global multiplier.
func (m *Manager) GlobalVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalVolume
}

// TrackVolume returns the per-track volume of id.
func (m *Manager) TrackVolume(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackVolumeLocked(id)
}

// EffectiveVolume returns track volume times global volume for id.
func (m *Manager) EffectiveVolume(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clamp01(m.trackVolumeLocked(id) * m.globalVolume)
}

func (m *Manager) trackVolumeLocked(id string) float64 {
	if inst, ok := m.instances[id]; ok {
		return inst.Volume
	}
	if v, ok := m.trackVolumes[id]; ok {
		return v
	}
	return m.cfg.TrackVolume
}

func (m *Manager) effectiveLocked(inst *Instance) float64 {
	return clamp01(inst.Volume * m.globalVolume)
}

func (m *Manager) applyVolumeLocked(inst *Instance) {
	el, ok := inst.Element()
	if !ok {
		return
	}
	v := m.effectiveLocked(inst)
	if f, ok := m.fades[inst.Track.ID]; ok {
		v *= f.level
	}
	el.SetVolume(clamp01(v))
}

// FadeIn ramps id from silence up to its effective volume over d.
// A zero d uses Config.FadeDuration.
func (m *Manager) FadeIn(id string, d time.Duration) {
	m.mu.Lock()
	defer m.unlockAndFlush()
	inst, ok := m.instances[id]
	if !ok {
		return
	}
	el, ok := inst.Element()
	if !ok {
		return
	}
	el.SetVolume(0)
	m.startFadeLocked(inst, 0, 1, d, false)
}

// FadeOut ramps id down to silence over d and then pauses it.
func (m *Manager) FadeOut(id string, d time.Duration) {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	el, ok := inst.Element()
	if !ok {
		m.mu.Unlock()
		m.PauseTrack(id)
		return
	}
	defer m.unlockAndFlush()
	from := 0.0
	if eff := m.effectiveLocked(inst); eff > 0 {
		from = clamp01(el.Volume() / eff)
	}
	m.startFadeLocked(inst, from, 0, d, true)
}

// Fading reports whether a fade is running on id.
func (m *Manager) Fading(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fades[id]
	return ok
}

func (m *Manager) startFadeLocked(inst *Instance, from, to float64, d time.Duration, pauseAtEnd bool) {
	id := inst.Track.ID
	m.cancelFadeLocked(id)
	if d <= 0 {
		d = m.cfg.FadeDuration
	}
	f := &fade{stop: make(chan struct{}), level: from}
	m.fades[id] = f
	go m.runFade(inst, f, from, to, d, m.cfg.FadeSteps, pauseAtEnd)
}

func (m *Manager) cancelFadeLocked(id string) {
	if f, ok := m.fades[id]; ok {
		close(f.stop)
		delete(m.fades, id)
	}
}

// runFade steps f.level from from to to. Every step rescales the element
// against the effective volume of that moment.
func (m *Manager) runFade(inst *Instance, f *fade, from, to float64, d time.Duration, steps int, pauseAtEnd bool) {
	id := inst.Track.ID
	interval := d / time.Duration(steps)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for step := 1; step <= steps; step++ {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.fades[id] != f {
			m.mu.Unlock()
			return
		}
		f.level = clamp01(from + (to-from)*float64(step)/float64(steps))
		m.applyVolumeLocked(inst)
		if step == steps {
			delete(m.fades, id)
		}
		m.mu.Unlock()
	}

	m.log.WithFields(logrus.Fields{
		"function": "runFade",
		"track":    id,
		"to":       to,
	}).Debug("Fade finished")
	if pauseAtEnd {
		m.PauseTrack(id)
	}
}
