package audio

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// sleepTimer stops playback at deadline. Closing stop cancels it.
type sleepTimer struct {
	deadline time.Time
	stop     chan struct{}
}

func (t *sleepTimer) remaining(now time.Time) time.Duration {
	if r := t.deadline.Sub(now); r > 0 {
		return r
	}
	return 0
}

// SetSleepTimer fades out every playing track once d has passed. A new
// timer replaces the running one and d <= 0 cancels it. SleepTimerTick is
// published every Config.SleepTick until then.
func (m *Manager) SetSleepTimer(d time.Duration) {
	if d <= 0 {
		m.CancelSleepTimer()
		return
	}

	m.mu.Lock()
	defer m.unlockAndFlush()
	m.stopSleepLocked()
	t := &sleepTimer{deadline: m.now().Add(d), stop: make(chan struct{})}
	m.sleep = t
	m.emitLocked(SleepTimerSet{Duration: d, Deadline: t.deadline})
	go m.runSleep(t, d, m.cfg.SleepTick)

	m.log.WithFields(logrus.Fields{
		"function": "SetSleepTimer",
		"duration": d.String(),
	}).Info("Sleep timer set")
}

// CancelSleepTimer stops a running sleep timer. Playback is left alone.
func (m *Manager) CancelSleepTimer() {
	m.mu.Lock()
	defer m.unlockAndFlush()
	if m.sleep == nil {
		return
	}
	m.stopSleepLocked()
	m.emitLocked(SleepTimerCancelled{})
}

// SleepRemaining reports the time left on the sleep timer, if one runs.
func (m *Manager) SleepRemaining() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sleep == nil {
		return 0, false
	}
	return m.sleep.remaining(m.now()), true
}

func (m *Manager) stopSleepLocked() {
	if m.sleep != nil {
		close(m.sleep.stop)
		m.sleep = nil
	}
}

func (m *Manager) runSleep(t *sleepTimer, d, tick time.Duration) {
	expire := time.NewTimer(d)
	defer expire.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.sleep != t {
				m.mu.Unlock()
				return
			}
			m.emitLocked(SleepTimerTick{Remaining: t.remaining(m.now())})
			m.unlockAndFlush()
		case <-expire.C:
			m.expireSleep(t)
			return
		}
	}
}

func (m *Manager) expireSleep(t *sleepTimer) {
	m.mu.Lock()
	if m.sleep != t {
		m.mu.Unlock()
		return
	}
	m.sleep = nil
	var stopped []TrackRef
	for _, inst := range m.instances {
		if inst.Playing {
			stopped = append(stopped, inst.Track)
		}
	}
	sort.Slice(stopped, func(i, j int) bool { return stopped[i].ID < stopped[j].ID })
	fade := m.cfg.FadeDuration
	m.emitLocked(SleepTimerExpired{Stopped: stopped})
	m.unlockAndFlush()

	for _, ref := range stopped {
		m.FadeOut(ref.ID, fade)
	}
	m.log.WithFields(logrus.Fields{
		"function": "expireSleep",
		"stopped":  len(stopped),
	}).Info("Sleep timer expired")
}
