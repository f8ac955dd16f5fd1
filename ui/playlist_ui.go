//go:build js
// +build js

package ui

import (
	"context"
	"strconv"
	"time"

	"github.com/gopherjs/gopherjs/js"
	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
	"github.com/simukka/sound-healing/dom"
)

// PlaylistUI drives the category and playlist page.
type PlaylistUI struct {
	mgr   *audio.Manager
	log   logrus.FieldLogger
	state PlayerState

	// Open category, empty while the category grid is shown.
	category string
	mix      bool

	categoriesContainer  *js.Object
	playlistSection      *js.Object
	backToCategories     *js.Object
	playlistTitle        *js.Object
	trackList            *js.Object
	currentTrackName     *js.Object
	playPauseBtn         *js.Object
	prevBtn              *js.Object
	nextBtn              *js.Object
	shuffleBtn           *js.Object
	repeatBtn            *js.Object
	currentTrackVolume   *js.Object
	currentVolumeDisplay *js.Object
	progressBar          *js.Object
	progressFill         *js.Object
	currentTime          *js.Object
	totalTime            *js.Object
	mixBtn               *js.Object
	sleepTimerBtn        *js.Object
	sleepTimerDisplay    *js.Object

	unsubscribe func()
}

// NewPlaylistUI binds the page to mgr and renders the category grid.
// Elements missing from the page are skipped.
func NewPlaylistUI(mgr *audio.Manager, log logrus.FieldLogger) *PlaylistUI {
	u := &PlaylistUI{
		mgr: mgr,
		log: log.WithField("view", "playlist"),
		state: PlayerState{
			Shuffle:      mgr.Shuffle(),
			Repeat:       mgr.RepeatMode(),
			GlobalVolume: mgr.GlobalVolume(),
		},
		categoriesContainer:  dom.ByID("categoriesContainer"),
		playlistSection:      dom.ByID("playlistSection"),
		backToCategories:     dom.ByID("backToCategories"),
		playlistTitle:        dom.ByID("playlistTitle"),
		trackList:            dom.ByID("trackList"),
		currentTrackName:     dom.ByID("currentTrackName"),
		playPauseBtn:         dom.ByID("playPauseBtn"),
		prevBtn:              dom.ByID("prevBtn"),
		nextBtn:              dom.ByID("nextBtn"),
		shuffleBtn:           dom.ByID("shuffleBtn"),
		repeatBtn:            dom.ByID("repeatBtn"),
		currentTrackVolume:   dom.ByID("currentTrackVolume"),
		currentVolumeDisplay: dom.ByID("currentVolumeDisplay"),
		progressBar:          dom.ByID("progressBar"),
		progressFill:         dom.ByID("progressFill"),
		currentTime:          dom.ByID("currentTime"),
		totalTime:            dom.ByID("totalTime"),
		mixBtn:               dom.ByID("mixBtn"),
		sleepTimerBtn:        dom.ByID("sleepTimerBtn"),
		sleepTimerDisplay:    dom.ByID("sleepTimerDisplay"),
	}
	u.bindEvents()
	u.unsubscribe = mgr.Bus().SubscribeAll(u.onEvent)
	u.renderCategories()
	u.renderModes()
	u.mix = mgr.MixMode()
	toggleClass(u.mixBtn, "active", u.mix)
	return u
}

func (u *PlaylistUI) bindEvents() {
	on(u.categoriesContainer, "click", func(ev *js.Object) {
		if btn := closest(ev, ".play-category-btn"); btn != nil {
			ev.Call("stopPropagation")
			u.run("play category", func(ctx context.Context) error {
				return u.mgr.PlayPlaylist(ctx, data(btn, "category"), 0)
			})
			return
		}
		if card := closest(ev, ".category-card"); card != nil {
			u.ShowPlaylist(data(card, "category"))
		}
	})
	on(u.backToCategories, "click", func(*js.Object) {
		u.ShowCategories()
	})

	on(u.trackList, "click", func(ev *js.Object) {
		btn := closest(ev, ".track-play-btn")
		if btn == nil {
			return
		}
		category, file := data(btn, "category"), data(btn, "file")
		if ext := catalog.Extension(file); !u.mgr.Formats().Supports(ext) {
			showError("This browser cannot play " + ext + " files: " + file)
			return
		}
		u.playTrack(category, file)
	})
	on(u.trackList, "input", func(ev *js.Object) {
		slider := closest(ev, ".track-volume-slider")
		if slider == nil {
			return
		}
		id := data(slider, "trackId")
		v := slider.Get("value").Float()
		go u.mgr.SetTrackVolume(id, v)
	})

	on(u.playPauseBtn, "click", func(*js.Object) {
		u.run("toggle", func(ctx context.Context) error {
			if u.state.Playing {
				u.mgr.PauseTrack(u.state.CurrentTrackID)
				return nil
			}
			return u.mgr.ResumeCurrent(ctx)
		})
	})
	on(u.prevBtn, "click", func(*js.Object) {
		u.run("previous", u.mgr.PreviousTrack)
	})
	on(u.nextBtn, "click", func(*js.Object) {
		u.run("next", u.mgr.NextTrack)
	})
	on(u.shuffleBtn, "click", func(*js.Object) {
		enabled := !u.state.Shuffle
		go u.mgr.SetShuffle(enabled)
	})
	on(u.repeatBtn, "click", func(*js.Object) {
		next := NextRepeatMode(u.state.Repeat)
		go func() {
			if err := u.mgr.SetRepeatMode(next); err != nil {
				u.log.WithError(err).Warn("Failed to change repeat mode")
			}
		}()
	})

	on(u.mixBtn, "click", func(*js.Object) {
		u.mix = !u.mix
		toggleClass(u.mixBtn, "active", u.mix)
		go u.mgr.SetMixMode(u.mix)
	})
	on(u.sleepTimerBtn, "click", func(*js.Object) {
		var running time.Duration
		if u.state.Sleeping {
			running = u.state.SleepDuration
		}
		go u.mgr.SetSleepTimer(NextSleepPreset(running))
	})

	on(u.currentTrackVolume, "input", func(ev *js.Object) {
		v := ev.Get("target").Get("value").Float()
		setText(u.currentVolumeDisplay, PercentLabel(v))
		if id := u.state.CurrentTrackID; id != "" {
			go u.mgr.SetTrackVolume(id, v)
		}
	})

	seek := func(ev *js.Object) {
		pos := ev.Get("target").Get("value").Float()
		go func() {
			if err := u.mgr.SeekTo(pos); err != nil {
				u.log.WithError(err).Debug("Seek ignored")
			}
		}()
	}
	on(u.progressBar, "input", seek)
	on(u.progressBar, "change", seek)
}

// run performs a manager call off the browser callback and reports failures.
func (u *PlaylistUI) run(action string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			u.log.WithFields(logrus.Fields{
				"function": action,
				"error":    err.Error(),
			}).Warn("Playback request failed")
			showError(ErrorMessage(err))
		}
	}()
}

// playTrack queues the whole category when its playlist is open so that
// playback continues with the next track.
func (u *PlaylistUI) playTrack(category, file string) {
	u.run("play track", func(ctx context.Context) error {
		if category == u.category {
			if cat, ok := u.mgr.Categories().Get(category); ok {
				if i := cat.IndexOf(file); i >= 0 {
					return u.mgr.PlayPlaylist(ctx, category, i)
				}
			}
		}
		return u.mgr.PlayTrack(ctx, audio.NewTrackRef(category, file), false)
	})
}

// ShowPlaylist opens the track list of a category.
func (u *PlaylistUI) ShowPlaylist(key string) {
	cat, ok := u.mgr.Categories().Get(key)
	if !ok {
		return
	}
	u.category = key
	setDisplay(js.Global.Get("document").Call("querySelector", ".categories-section"), "none")
	setDisplay(u.playlistSection, "block")
	u.renderTrackList(cat)
}

// ShowCategories returns to the category grid.
func (u *PlaylistUI) ShowCategories() {
	u.category = ""
	setDisplay(js.Global.Get("document").Call("querySelector", ".categories-section"), "block")
	setDisplay(u.playlistSection, "none")
}

// Refresh re-renders after the catalog changed.
func (u *PlaylistUI) Refresh() {
	u.renderCategories()
	if u.category == "" {
		return
	}
	cat, ok := u.mgr.Categories().Get(u.category)
	if !ok {
		u.ShowCategories()
		return
	}
	u.renderTrackList(cat)
}

// Close detaches the view from the manager.
func (u *PlaylistUI) Close() {
	if u.unsubscribe != nil {
		u.unsubscribe()
	}
}

func (u *PlaylistUI) renderCategories() {
	if u.categoriesContainer == nil {
		return
	}
	html, err := RenderCategories(CategoryViews(u.mgr.Categories()))
	if err != nil {
		u.log.WithError(err).Error("Failed to render categories")
		return
	}
	setHTML(u.categoriesContainer, html)
}

func (u *PlaylistUI) renderTrackList(cat *catalog.Category) {
	view := TrackList(cat, u.mgr.Formats(), u.mgr.TrackVolume, u.state)
	setText(u.playlistTitle, view.Title)
	if u.trackList == nil {
		return
	}
	html, err := RenderTrackList(view)
	if err != nil {
		u.log.WithError(err).Error("Failed to render track list")
		return
	}
	setHTML(u.trackList, html)
}

func (u *PlaylistUI) onEvent(ev audio.Event) {
	if !u.state.Apply(ev) {
		return
	}
	switch e := ev.(type) {
	case audio.TrackPlay:
		if cat, ok := u.mgr.Categories().Get(e.Track.Category); ok {
			setText(u.currentTrackName, TrackTitle(cat, e.Track.File))
		} else {
			setText(u.currentTrackName, u.state.Title)
		}
		v := u.mgr.TrackVolume(e.Track.ID)
		if u.currentTrackVolume != nil {
			u.currentTrackVolume.Set("value", v)
		}
		setText(u.currentVolumeDisplay, PercentLabel(v))
		u.renderPlayState()
		u.renderProgress()
	case audio.TrackPause, audio.TrackEnded, audio.AllTracksStopped:
		u.renderPlayState()
	case audio.ProgressUpdate:
		u.renderProgress()
	case audio.ShuffleChanged, audio.RepeatChanged, audio.SettingsLoaded:
		u.renderModes()
	case audio.SleepTimerSet, audio.SleepTimerTick, audio.SleepTimerExpired, audio.SleepTimerCancelled:
		u.renderSleep()
	}
}

func (u *PlaylistUI) renderSleep() {
	label := SleepLabel(u.state.SleepLeft, u.state.Sleeping)
	setText(u.sleepTimerDisplay, label)
	toggleClass(u.sleepTimerBtn, "active", u.state.Sleeping)
	if u.sleepTimerBtn != nil {
		u.sleepTimerBtn.Set("title", "Sleep timer "+label)
	}
}

func (u *PlaylistUI) renderPlayState() {
	setText(u.playPauseBtn, PlayIcon(u.state.Playing))
	if u.trackList == nil {
		return
	}
	items := u.trackList.Call("querySelectorAll", ".track-item")
	for i := 0; i < items.Length(); i++ {
		item := items.Index(i)
		playing := u.state.Playing && data(item, "trackId") == u.state.CurrentTrackID
		toggleClass(item, "playing", playing)
		if icon := item.Call("querySelector", ".track-play-btn:not([disabled]) .play-icon"); dom.Present(icon) {
			setText(icon, PlayIcon(playing))
		}
	}
}

func (u *PlaylistUI) renderProgress() {
	if u.progressBar != nil {
		u.progressBar.Set("value", u.state.Progress)
	}
	if u.progressFill != nil {
		u.progressFill.Get("style").Set("width", strconv.FormatFloat(u.state.Progress, 'f', 2, 64)+"%")
	}
	setText(u.currentTime, FormatTime(u.state.CurrentTime))
	setText(u.totalTime, FormatTime(u.state.Duration))
}

func (u *PlaylistUI) renderModes() {
	toggleClass(u.shuffleBtn, "active", u.state.Shuffle)
	if u.repeatBtn == nil {
		return
	}
	for _, m := range []audio.RepeatMode{audio.RepeatNone, audio.RepeatOne, audio.RepeatAll} {
		toggleClass(u.repeatBtn, "repeat-"+string(m), m == u.state.Repeat)
	}
	setText(u.repeatBtn, RepeatIcon(u.state.Repeat))
}
