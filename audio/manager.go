package audio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/catalog"
	"github.com/simukka/sound-healing/common"
)

// Manager owns the audio instance pool and the playback state of the page:
// current track, playlist cursor, shuffle and repeat modes, volumes.
// All methods are safe for concurrent use. Events are published after the
// internal lock is released, so handlers may call back into the Manager.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	backend Backend
	storage Storage
	catalog *catalog.Catalog
	bus     *Bus
	log     logrus.FieldLogger
	rng     *common.SeededRNG
	now     func() time.Time

	formats   FormatTable
	instances map[string]*Instance
	loading   map[string]bool

	globalVolume float64
	trackVolumes map[string]float64 // Remembered per-track volumes, applied on creation
	repeat       RepeatMode
	shuffle      bool
	mix          bool // Mix mode: playing a track leaves others running

	playlist     *Playlist
	playlistMode bool

	current      *Instance // Drives progress updates; cleared on pause
	currentTrack *TrackRef // Last played track; kept across pause for resume
	initialized  bool

	history []HistoryEntry // Newest first
	sleep   *sleepTimer

	progressStop chan struct{}
	fades        map[string]*fade
	pending      []Event
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithRNG sets the generator used for shuffle orders.
func WithRNG(rng *common.SeededRNG) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithLogger sets the logger. The standard logrus logger is used otherwise.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides time.Now for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a manager for the given catalog. Formats are probed once
// against the backend here.
func New(backend Backend, storage Storage, cat *catalog.Catalog, opts ...Option) *Manager {
	m := &Manager{
		cfg:          DefaultConfig,
		backend:      backend,
		storage:      storage,
		catalog:      cat,
		bus:          NewBus(),
		log:          logrus.StandardLogger(),
		now:          time.Now,
		instances:    make(map[string]*Instance),
		loading:      make(map[string]bool),
		trackVolumes: make(map[string]float64),
		fades:        make(map[string]*fade),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.catalog == nil {
		m.catalog = catalog.New()
	}
	if m.storage == nil {
		m.storage = NewMemoryStorage()
	}
	if m.rng == nil {
		m.rng = common.NewSessionRNG()
	}
	m.cfg = m.cfg.Merge(m.catalog.Player).sanitized()
	m.globalVolume = m.cfg.GlobalVolume
	m.repeat = m.cfg.RepeatMode
	m.formats = DetectFormats(backend)

	if !m.formats.Supports("wma") {
		m.log.WithFields(logrus.Fields{
			"function": "New",
		}).Warn("Browser cannot play WMA files; they will be silent")
	}
	m.log.WithFields(logrus.Fields{
		"function":      "New",
		"categories":    m.catalog.Len(),
		"max_instances": m.cfg.MaxInstances,
		"formats":       m.formats.Supported(),
	}).Debug("Audio manager created")
	return m
}

// Bus returns the event bus.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Formats returns the detected format table.
func (m *Manager) Formats() FormatTable {
	return m.formats
}

// Initialize checks the catalog, restores persisted settings and announces
// readiness. Calling it again is a no-op.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	if m.catalog.Len() == 0 {
		m.mu.Unlock()
		m.log.WithFields(logrus.Fields{
			"function": "Initialize",
		}).Error("No audio categories configured")
		return ErrNoCategories
	}
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	if err := m.LoadSettings(); err != nil {
		m.log.WithFields(logrus.Fields{
			"function": "Initialize",
			"error":    err.Error(),
		}).Warn("Ignoring unreadable settings")
	}
	if err := m.LoadHistory(); err != nil {
		m.log.WithFields(logrus.Fields{
			"function": "Initialize",
			"error":    err.Error(),
		}).Warn("Ignoring unreadable play history")
	}

	m.log.WithFields(logrus.Fields{
		"function":   "Initialize",
		"categories": m.catalog.Len(),
	}).Info("Audio manager initialized")
	m.bus.Publish(Initialized{Formats: m.formats})
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Categories returns the catalog in use.
func (m *Manager) Categories() *catalog.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog
}

// SetCatalog swaps in a reloaded catalog. Existing instances keep playing;
// a playlist whose category disappeared leaves playlist mode.
func (m *Manager) SetCatalog(cat *catalog.Catalog) {
	if cat == nil {
		return
	}
	m.mu.Lock()
	defer m.unlockAndFlush()
	m.catalog = cat
	if m.playlist != nil {
		if _, ok := cat.Get(m.playlist.Category); !ok {
			m.playlist = nil
			m.playlistMode = false
		}
	}
	m.log.WithFields(logrus.Fields{
		"function":   "SetCatalog",
		"categories": cat.Len(),
	}).Info("Audio catalog replaced")
}

// SetMixMode toggles mix mode. While on, starting a track does not pause
// the others.
func (m *Manager) SetMixMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mix = on
}

// MixMode reports whether mix mode is on.
func (m *Manager) MixMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mix
}

// CreateInstance makes sure an instance exists for ref. Unsupported formats
// and load failures yield a silent instance rather than an error.
func (m *Manager) CreateInstance(ctx context.Context, ref TrackRef) (InstanceInfo, error) {
	inst, err := m.ensureInstance(ctx, ref.withID())
	if err != nil {
		return InstanceInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return inst.info(m.globalVolume), nil
}

func (m *Manager) ensureInstance(ctx context.Context, ref TrackRef) (*Instance, error) {
	m.mu.Lock()
	if inst, ok := m.instances[ref.ID]; ok {
		inst.LastUsed = m.now()
		m.unlockAndFlush()
		return inst, nil
	}
	if m.loading[ref.ID] {
		m.unlockAndFlush()
		return nil, fmt.Errorf("%s: %w", ref.File, ErrNotReady)
	}

	ext := catalog.Extension(ref.File)
	if !m.formats.Supports(ext) {
		defer m.unlockAndFlush()
		m.log.WithFields(logrus.Fields{
			"function":  "CreateInstance",
			"track":     ref.ID,
			"extension": ext,
		}).Warn("Unsupported audio format, using silent instance")
		inst := newSilentInstance(ref, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext), m.trackVolumeLocked(ref.ID), m.now())
		if err := m.insertLocked(inst); err != nil {
			return nil, err
		}
		return inst, nil
	}

	m.loading[ref.ID] = true
	src := m.catalog.AudioURL(ref.Category, ref.File)
	timeout := m.cfg.LoadTimeout
	m.emitLocked(LoadingStart{Track: ref})
	m.unlockAndFlush()

	el := m.backend.NewElement()
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	loadErr := el.Load(loadCtx, src)
	cancel()

	m.mu.Lock()
	defer m.unlockAndFlush()
	delete(m.loading, ref.ID)

	if loadErr != nil && ctx.Err() != nil {
		el.Release()
		m.emitLocked(LoadingEnd{Track: ref, Silent: true})
		return nil, ctx.Err()
	}

	var inst *Instance
	if loadErr != nil {
		el.Release()
		if errors.Is(loadErr, context.DeadlineExceeded) {
			loadErr = fmt.Errorf("load timed out after %s: %w", timeout, loadErr)
		}
		m.log.WithFields(logrus.Fields{
			"function": "CreateInstance",
			"track":    ref.ID,
			"src":      src,
			"error":    loadErr.Error(),
		}).Warn("Audio failed to load, using silent instance")
		inst = newSilentInstance(ref, loadErr, m.trackVolumeLocked(ref.ID), m.now())
	} else {
		inst = newPlayableInstance(ref, el, m.trackVolumeLocked(ref.ID), m.now())
		el.SetVolume(m.effectiveLocked(inst))
		id := ref.ID
		el.OnEnded(func() {
			if err := m.HandleTrackEnded(context.Background(), id); err != nil {
				m.log.WithFields(logrus.Fields{
					"function": "HandleTrackEnded",
					"track":    id,
					"error":    err.Error(),
				}).Warn("Auto-advance failed")
			}
		})
	}
	m.emitLocked(LoadingEnd{Track: ref, Silent: inst.Silent()})

	if err := m.insertLocked(inst); err != nil {
		inst.release()
		return nil, err
	}
	m.log.WithFields(logrus.Fields{
		"function": "CreateInstance",
		"track":    ref.ID,
		"silent":   inst.Silent(),
		"pool":     len(m.instances),
	}).Debug("Audio instance created")
	return inst, nil
}

// PlayTrack starts ref, creating its instance on demand. Outside mix mode
// every other playing instance is paused first. The position restarts from
// zero when resetTime is set or a different track was current.
func (m *Manager) PlayTrack(ctx context.Context, ref TrackRef, resetTime bool) error {
	ref = ref.withID()
	inst, err := m.ensureInstance(ctx, ref)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.instances[ref.ID] != inst || m.loading[ref.ID] {
		m.unlockAndFlush()
		return fmt.Errorf("%s: %w", ref.File, ErrNotReady)
	}
	if !m.mix {
		for id, other := range m.instances {
			if id != ref.ID && other.Playing {
				m.pauseLocked(other)
			}
		}
	}
	m.cancelFadeLocked(ref.ID)
	inst.LastUsed = m.now()

	if inst.Silent() {
		defer m.unlockAndFlush()
		inst.Playing = true
		m.setCurrentLocked(inst)
		m.emitLocked(TrackPlay{Track: inst.Track, Silent: true})
		m.recordPlayLocked(inst)
		m.log.WithFields(logrus.Fields{
			"function": "PlayTrack",
			"track":    ref.ID,
		}).Info("Playing silent instance")
		return nil
	}

	el, _ := inst.Element()
	if resetTime || m.currentTrack == nil || m.currentTrack.ID != ref.ID {
		el.SetCurrentTime(0)
	}
	el.SetVolume(m.effectiveLocked(inst))
	m.unlockAndFlush()

	if err := el.Play(ctx); err != nil {
		m.log.WithFields(logrus.Fields{
			"function": "PlayTrack",
			"track":    ref.ID,
			"error":    err.Error(),
		}).Warn("Playback rejected")
		return fmt.Errorf("play %s: %w", ref.File, err)
	}

	m.mu.Lock()
	defer m.unlockAndFlush()
	if m.instances[ref.ID] != inst {
		el.Pause()
		return fmt.Errorf("%s: %w", ref.File, ErrNotReady)
	}
	// Another PlayTrack may have started while Play ran unlocked.
	if !m.mix {
		for id, other := range m.instances {
			if id != ref.ID && other.Playing {
				m.cancelFadeLocked(id)
				m.pauseLocked(other)
			}
		}
	}
	inst.Playing = true
	inst.State = StatePlaying
	m.setCurrentLocked(inst)
	m.emitLocked(TrackPlay{Track: inst.Track})
	m.recordPlayLocked(inst)
	m.log.WithFields(logrus.Fields{
		"function": "PlayTrack",
		"track":    ref.ID,
	}).Debug("Track playing")
	return nil
}

// PauseTrack pauses id. Pausing an unknown or idle track is a no-op.
func (m *Manager) PauseTrack(id string) {
	m.mu.Lock()
	defer m.unlockAndFlush()
	inst, ok := m.instances[id]
	if !ok {
		return
	}
	m.cancelFadeLocked(id)
	m.pauseLocked(inst)
	m.checkAllStoppedLocked()
}

// ToggleTrack pauses ref when it is playing and plays it otherwise,
// resuming from the paused position when it is the current track.
func (m *Manager) ToggleTrack(ctx context.Context, ref TrackRef) error {
	ref = ref.withID()
	m.mu.Lock()
	inst, ok := m.instances[ref.ID]
	playing := ok && inst.Playing
	m.mu.Unlock()

	if playing {
		m.PauseTrack(ref.ID)
		return nil
	}
	return m.PlayTrack(ctx, ref, false)
}

// ResumeCurrent plays the current track from where it was paused.
func (m *Manager) ResumeCurrent(ctx context.Context) error {
	m.mu.Lock()
	cur := m.currentTrack
	m.mu.Unlock()
	if cur == nil {
		return ErrNotReady
	}
	return m.PlayTrack(ctx, *cur, false)
}

// PauseAll pauses every playing instance.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	defer m.unlockAndFlush()
	for id, inst := range m.instances {
		if inst.Playing {
			m.cancelFadeLocked(id)
			m.pauseLocked(inst)
		}
	}
	m.checkAllStoppedLocked()
}

// PlayingTracks lists the playing tracks ordered by id.
func (m *Manager) PlayingTracks() []TrackRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []TrackRef
	for _, inst := range m.instances {
		if inst.Playing {
			refs = append(refs, inst.Track)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// IsAnyPlaying reports whether any instance is playing.
func (m *Manager) IsAnyPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anyPlayingLocked()
}

// CurrentTrack returns the most recently played track.
func (m *Manager) CurrentTrack() (TrackRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentTrack == nil {
		return TrackRef{}, false
	}
	return *m.currentTrack, true
}

// Instance returns a snapshot of the instance for id.
func (m *Manager) Instance(id string) (InstanceInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return InstanceInfo{}, false
	}
	return inst.info(m.globalVolume), true
}

// Instances returns snapshots of the whole pool ordered by id.
func (m *Manager) Instances() []InstanceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]InstanceInfo, 0, len(m.instances))
	for _, inst := range m.instances {
		infos = append(infos, inst.info(m.globalVolume))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Track.ID < infos[j].Track.ID })
	return infos
}

// PoolSize returns the number of live instances.
func (m *Manager) PoolSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

func (m *Manager) emitLocked(ev Event) {
	m.pending = append(m.pending, ev)
}

// unlockAndFlush releases the lock and then publishes queued events.
func (m *Manager) unlockAndFlush() {
	events := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, ev := range events {
		m.bus.Publish(ev)
	}
}

func (m *Manager) pauseLocked(inst *Instance) {
	if el, ok := inst.Element(); ok {
		el.Pause()
		if inst.State == StatePlaying {
			inst.State = StatePaused
		}
	}
	inst.Playing = false
	if m.current == inst {
		m.current = nil
		m.stopProgressLocked()
	}
	m.emitLocked(TrackPause{Track: inst.Track})
}

func (m *Manager) setCurrentLocked(inst *Instance) {
	ref := inst.Track
	m.currentTrack = &ref
	m.current = inst
	if inst.Silent() {
		m.stopProgressLocked()
		return
	}
	m.startProgressLocked()
}

func (m *Manager) anyPlayingLocked() bool {
	for _, inst := range m.instances {
		if inst.Playing {
			return true
		}
	}
	return false
}

func (m *Manager) checkAllStoppedLocked() {
	if !m.anyPlayingLocked() {
		m.emitLocked(AllTracksStopped{})
	}
}

func (m *Manager) isCurrentLocked(id string) bool {
	return m.currentTrack != nil && m.currentTrack.ID == id
}

// insertLocked adds inst, evicting one idle instance when the pool is full.
func (m *Manager) insertLocked(inst *Instance) error {
	if len(m.instances) >= m.cfg.MaxInstances && !m.evictLocked() {
		m.log.WithFields(logrus.Fields{
			"function": "insertLocked",
			"track":    inst.Track.ID,
			"pool":     len(m.instances),
		}).Warn("No evictable audio instance")
		return ErrPoolFull
	}
	m.instances[inst.Track.ID] = inst
	return nil
}

// evictLocked releases the least recently used instance that is neither
// playing nor current.
func (m *Manager) evictLocked() bool {
	var victim *Instance
	for id, inst := range m.instances {
		if inst.Playing || m.isCurrentLocked(id) {
			continue
		}
		if victim == nil || inst.LastUsed.Before(victim.LastUsed) {
			victim = inst
		}
	}
	if victim == nil {
		return false
	}
	m.removeLocked(victim)
	m.log.WithFields(logrus.Fields{
		"function": "evictLocked",
		"track":    victim.Track.ID,
	}).Debug("Evicted idle audio instance")
	return true
}

func (m *Manager) removeLocked(inst *Instance) {
	m.cancelFadeLocked(inst.Track.ID)
	if m.current == inst {
		m.current = nil
		m.stopProgressLocked()
	}
	inst.release()
	delete(m.instances, inst.Track.ID)
}
