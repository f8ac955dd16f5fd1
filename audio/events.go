package audio

import (
	"sync"
	"time"
)

// EventKind names a manager event.
type EventKind int

const (
	EventInitialized EventKind = iota
	EventSettingsLoaded
	EventLoadingStart
	EventLoadingEnd
	EventTrackPlay
	EventTrackPause
	EventTrackEnded
	EventAllTracksStopped
	EventProgressUpdate
	EventVolumeChange
	EventGlobalVolumeChange
	EventShuffleChanged
	EventRepeatChanged
	EventHistoryChanged
	EventSleepTimerSet
	EventSleepTimerTick
	EventSleepTimerExpired
	EventSleepTimerCancelled
)

var eventNames = [...]string{
	EventInitialized:         "initialized",
	EventSettingsLoaded:      "settingsLoaded",
	EventLoadingStart:        "loadingStart",
	EventLoadingEnd:          "loadingEnd",
	EventTrackPlay:           "trackPlay",
	EventTrackPause:          "trackPause",
	EventTrackEnded:          "trackEnded",
	EventAllTracksStopped:    "allTracksStopped",
	EventProgressUpdate:      "progressUpdate",
	EventVolumeChange:        "volumeChange",
	EventGlobalVolumeChange:  "globalVolumeChange",
	EventShuffleChanged:      "shuffleChanged",
	EventRepeatChanged:       "repeatChanged",
	EventHistoryChanged:      "historyChanged",
	EventSleepTimerSet:       "sleepTimerSet",
	EventSleepTimerTick:      "sleepTimerTick",
	EventSleepTimerExpired:   "sleepTimerExpired",
	EventSleepTimerCancelled: "sleepTimerCancelled",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is a typed payload published on the Bus.
type Event interface {
	Kind() EventKind
}

type Initialized struct {
	Formats FormatTable
}

type SettingsLoaded struct {
	Settings Settings
}

type LoadingStart struct {
	Track TrackRef
}

type LoadingEnd struct {
	Track  TrackRef
	Silent bool
}

type TrackPlay struct {
	Track  TrackRef
	Silent bool
}

type TrackPause struct {
	Track TrackRef
}

type TrackEnded struct {
	Track TrackRef
}

type AllTracksStopped struct{}

type ProgressUpdate struct {
	TrackID     string
	CurrentTime float64
	Duration    float64
	Progress    float64 // Percent, 0-100
}

type VolumeChange struct {
	TrackID string
	Volume  float64 // Per-track volume before the global multiplier
}

type GlobalVolumeChange struct {
	Volume float64
}

type ShuffleChanged struct {
	Enabled bool
}

type RepeatChanged struct {
	Mode RepeatMode
}

type HistoryChanged struct {
	History []HistoryEntry // Newest first
}

type SleepTimerSet struct {
	Duration time.Duration
	Deadline time.Time
}

type SleepTimerTick struct {
	Remaining time.Duration
}

type SleepTimerExpired struct {
	Stopped []TrackRef // Tracks faded out when the timer fired
}

type SleepTimerCancelled struct{}

func (Initialized) Kind() EventKind         { return EventInitialized }
func (SettingsLoaded) Kind() EventKind      { return EventSettingsLoaded }
func (LoadingStart) Kind() EventKind        { return EventLoadingStart }
func (LoadingEnd) Kind() EventKind          { return EventLoadingEnd }
func (TrackPlay) Kind() EventKind           { return EventTrackPlay }
func (TrackPause) Kind() EventKind          { return EventTrackPause }
func (TrackEnded) Kind() EventKind          { return EventTrackEnded }
func (AllTracksStopped) Kind() EventKind    { return EventAllTracksStopped }
func (ProgressUpdate) Kind() EventKind      { return EventProgressUpdate }
func (VolumeChange) Kind() EventKind        { return EventVolumeChange }
func (GlobalVolumeChange) Kind() EventKind  { return EventGlobalVolumeChange }
func (ShuffleChanged) Kind() EventKind      { return EventShuffleChanged }
func (RepeatChanged) Kind() EventKind       { return EventRepeatChanged }
func (HistoryChanged) Kind() EventKind      { return EventHistoryChanged }
func (SleepTimerSet) Kind() EventKind       { return EventSleepTimerSet }
func (SleepTimerTick) Kind() EventKind      { return EventSleepTimerTick }
func (SleepTimerExpired) Kind() EventKind   { return EventSleepTimerExpired }
func (SleepTimerCancelled) Kind() EventKind { return EventSleepTimerCancelled }

type subscriber struct {
	id   int
	kind EventKind
	all  bool
	fn   func(Event)
}

// Bus is an in-process publish/subscribe channel. Handlers run
// synchronously on the publishing goroutine in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for one event kind and returns a function that
// removes it.
func (b *Bus) Subscribe(kind EventKind, fn func(Event)) func() {
	return b.add(subscriber{kind: kind, fn: fn})
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn func(Event)) func() {
	return b.add(subscriber{all: true, fn: fn})
}

func (b *Bus) add(s subscriber) func() {
	b.mu.Lock()
	b.nextID++
	s.id = b.nextID
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s.id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every matching subscriber.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	kind := ev.Kind()
	for _, s := range subs {
		if s.all || s.kind == kind {
			s.fn(ev)
		}
	}
}
