package audio

import "time"

// SeekTo moves the current track to percent (0-100) of its duration and
// publishes an immediate progress update.
func (m *Manager) SeekTo(percent float64) error {
	m.mu.Lock()
	defer m.unlockAndFlush()
	if m.currentTrack == nil {
		return ErrNotReady
	}
	inst, ok := m.instances[m.currentTrack.ID]
	if !ok {
		return ErrNotReady
	}
	el, ok := inst.Element()
	if !ok {
		return nil
	}
	duration := el.Duration()
	if !(duration > 0) {
		return ErrNotReady
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	t := percent / 100 * duration
	el.SetCurrentTime(t)
	m.emitLocked(ProgressUpdate{
		TrackID:     inst.Track.ID,
		CurrentTime: t,
		Duration:    duration,
		Progress:    percent,
	})
	return nil
}

func (m *Manager) startProgressLocked() {
	m.stopProgressLocked()
	stop := make(chan struct{})
	m.progressStop = stop
	go m.runProgress(stop, m.cfg.ProgressInterval)
}

func (m *Manager) stopProgressLocked() {
	if m.progressStop != nil {
		close(m.progressStop)
		m.progressStop = nil
	}
}

func (m *Manager) runProgress(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.progressStop != stop {
			m.mu.Unlock()
			return
		}
		if ev, ok := m.progressLocked(); ok {
			m.emitLocked(ev)
		}
		m.unlockAndFlush()
	}
}

func (m *Manager) progressLocked() (ProgressUpdate, bool) {
	if m.current == nil {
		return ProgressUpdate{}, false
	}
	el, ok := m.current.Element()
	if !ok || el.Paused() {
		return ProgressUpdate{}, false
	}
	duration := el.Duration()
	if !(duration > 0) {
		return ProgressUpdate{}, false
	}
	t := el.CurrentTime()
	return ProgressUpdate{
		TrackID:     m.current.Track.ID,
		CurrentTime: t,
		Duration:    duration,
		Progress:    t / duration * 100,
	}, true
}
