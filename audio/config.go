package audio

import (
	"time"

	"github.com/simukka/sound-healing/catalog"
)

// Config holds the tunables of the playback manager.
type Config struct {
	// Instance pool
	MaxInstances int           // Upper bound on live audio instances
	IdleTTL      time.Duration // Idle instances older than this are swept

	// Loading
	LoadTimeout time.Duration // Wait for can-play before degrading to silent

	// Volume
	GlobalVolume float64 // Initial global volume (0.0 - 1.0)
	TrackVolume  float64 // Initial per-track volume (0.0 - 1.0)

	// Fades
	FadeSteps    int           // Discrete volume steps per fade
	FadeDuration time.Duration // Used when a fade is requested with no duration

	// Timers
	ProgressInterval time.Duration // Progress polling period while playing
	SaveInterval     time.Duration // Periodic settings persistence
	SweepInterval    time.Duration // Periodic idle-instance sweep
	SleepTick        time.Duration // Countdown period of the sleep timer

	// Playback
	RepeatMode RepeatMode // Initial repeat mode

	// Persistence
	SettingsKey  string // Storage key for user settings
	HistoryKey   string // Storage key for the play history
	HistoryLimit int    // Entries kept in the play history
}

// DefaultConfig mirrors the values the page has always shipped with.
var DefaultConfig = Config{
	MaxInstances: 10,
	IdleTTL:      5 * time.Minute,

	LoadTimeout: 15 * time.Second,

	GlobalVolume: 0.5,
	TrackVolume:  0.5,

	FadeSteps:    50,
	FadeDuration: time.Second,

	ProgressInterval: time.Second,
	SaveInterval:     5 * time.Minute,
	SweepInterval:    30 * time.Second,
	SleepTick:        time.Second,

	RepeatMode: RepeatAll,

	SettingsKey:  "soundHealingSettings",
	HistoryKey:   "soundHealing_history",
	HistoryLimit: 50,
}

// Merge applies catalog-supplied overrides on top of c.
func (c Config) Merge(opts catalog.PlayerOptions) Config {
	if opts.MaxInstances > 0 {
		c.MaxInstances = opts.MaxInstances
	}
	if opts.LoadTimeoutMs > 0 {
		c.LoadTimeout = time.Duration(opts.LoadTimeoutMs) * time.Millisecond
	}
	if opts.ProgressIntervalMs > 0 {
		c.ProgressInterval = time.Duration(opts.ProgressIntervalMs) * time.Millisecond
	}
	if opts.FadeSteps > 0 {
		c.FadeSteps = opts.FadeSteps
	}
	if opts.GlobalVolume != nil {
		c.GlobalVolume = clamp01(*opts.GlobalVolume)
	}
	if mode, ok := ParseRepeatMode(opts.RepeatMode); ok {
		c.RepeatMode = mode
	}
	return c
}

// sanitized fills invalid fields with defaults.
func (c Config) sanitized() Config {
	if c.MaxInstances < 1 {
		c.MaxInstances = DefaultConfig.MaxInstances
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultConfig.LoadTimeout
	}
	if c.FadeSteps < 1 {
		c.FadeSteps = DefaultConfig.FadeSteps
	}
	if c.FadeDuration <= 0 {
		c.FadeDuration = DefaultConfig.FadeDuration
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultConfig.ProgressInterval
	}
	if c.SaveInterval <= 0 {
		c.SaveInterval = DefaultConfig.SaveInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultConfig.SweepInterval
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultConfig.IdleTTL
	}
	if c.RepeatMode == "" {
		c.RepeatMode = DefaultConfig.RepeatMode
	}
	if c.SleepTick <= 0 {
		c.SleepTick = DefaultConfig.SleepTick
	}
	if c.SettingsKey == "" {
		c.SettingsKey = DefaultConfig.SettingsKey
	}
	if c.HistoryKey == "" {
		c.HistoryKey = DefaultConfig.HistoryKey
	}
	if c.HistoryLimit < 1 {
		c.HistoryLimit = DefaultConfig.HistoryLimit
	}
	c.GlobalVolume = clamp01(c.GlobalVolume)
	c.TrackVolume = clamp01(c.TrackVolume)
	return c
}
