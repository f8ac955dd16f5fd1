package audio

import (
	"time"

	"github.com/simukka/sound-healing/catalog"
)

// TrackRef identifies one playable file.
type TrackRef struct {
	ID       string `json:"trackId"`
	Category string `json:"categoryName"`
	File     string `json:"fileName"`
}

// NewTrackRef builds a reference with its derived id.
func NewTrackRef(category, file string) TrackRef {
	return TrackRef{ID: catalog.TrackID(category, file), Category: category, File: file}
}

// withID fills in a missing id.
func (r TrackRef) withID() TrackRef {
	if r.ID == "" {
		r.ID = catalog.TrackID(r.Category, r.File)
	}
	return r
}

// Playability says whether an instance drives a real element.
// It is either Playable or Unsupported.
type Playability interface {
	playability()
}

// Playable wraps a loaded element.
type Playable struct {
	Element Element
}

// Unsupported marks a silent stand-in and carries why real playback was
// impossible.
type Unsupported struct {
	Reason error
}

func (Playable) playability()    {}
func (Unsupported) playability() {}

// Instance is a track bound to its element plus playback bookkeeping.
// Instances are owned by the Manager.
type Instance struct {
	Track       TrackRef
	Volume      float64
	Playing     bool
	State       State
	Playability Playability
	LastUsed    time.Time
}

func newPlayableInstance(ref TrackRef, el Element, volume float64, now time.Time) *Instance {
	return &Instance{
		Track:       ref,
		Volume:      volume,
		State:       StateReady,
		Playability: Playable{Element: el},
		LastUsed:    now,
	}
}

func newSilentInstance(ref TrackRef, reason error, volume float64, now time.Time) *Instance {
	return &Instance{
		Track:       ref,
		Volume:      volume,
		State:       StateSilent,
		Playability: Unsupported{Reason: reason},
		LastUsed:    now,
	}
}

// Element returns the backing element when the instance is playable.
func (i *Instance) Element() (Element, bool) {
	if p, ok := i.Playability.(Playable); ok && p.Element != nil {
		return p.Element, true
	}
	return nil, false
}

// Silent reports whether the instance only simulates playback.
func (i *Instance) Silent() bool {
	_, ok := i.Playability.(Unsupported)
	return ok
}

func (i *Instance) release() {
	if el, ok := i.Element(); ok {
		el.Release()
	}
	i.Playing = false
	i.State = StateStopped
}

// InstanceInfo is a read-only snapshot of an instance.
type InstanceInfo struct {
	Track           TrackRef
	Volume          float64
	EffectiveVolume float64
	Playing         bool
	Ready           bool
	Silent          bool
	State           State
	Reason          error
	LastUsed        time.Time
}

func (i *Instance) info(global float64) InstanceInfo {
	info := InstanceInfo{
		Track:           i.Track,
		Volume:          i.Volume,
		EffectiveVolume: clamp01(i.Volume * global),
		Playing:         i.Playing,
		Ready:           !i.Silent(),
		Silent:          i.Silent(),
		State:           i.State,
		LastUsed:        i.LastUsed,
	}
	if u, ok := i.Playability.(Unsupported); ok {
		info.Reason = u.Reason
	}
	return info
}
