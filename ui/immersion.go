//go:build js
// +build js

package ui

import (
	"context"

	"github.com/gopherjs/gopherjs/js"
	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
	"github.com/simukka/sound-healing/dom"
)

const (
	pauseSVG = `<svg width="24" height="24" viewBox="0 0 24 24" fill="currentColor"><path d="M6 19h4V5H6v14zm8-14v14h4V5h-4z"/></svg>`
	playSVG  = `<svg width="24" height="24" viewBox="0 0 24 24" fill="currentColor"><path d="M8 5v14l11-7z"/></svg>`
)

// ImmersionApp drives the card grid page with its floating player.
type ImmersionApp struct {
	mgr   *audio.Manager
	log   logrus.FieldLogger
	state PlayerState

	grid           *js.Object
	player         *js.Object
	playerTitle    *js.Object
	playerSubtitle *js.Object
	playPauseBtn   *js.Object

	unsubscribe func()
}

// NewImmersionApp binds the sound-grid page to mgr.
func NewImmersionApp(mgr *audio.Manager, log logrus.FieldLogger) *ImmersionApp {
	a := &ImmersionApp{
		mgr:            mgr,
		log:            log.WithField("view", "immersion"),
		grid:           dom.ByID("sound-grid"),
		player:         dom.ByID("audioPlayer"),
		playerTitle:    dom.ByID("playerTitle"),
		playerSubtitle: dom.ByID("playerSubtitle"),
		playPauseBtn:   dom.ByID("playPauseBtn"),
	}
	on(a.playPauseBtn, "click", func(*js.Object) {
		go a.togglePlayPause()
	})
	on(a.grid, "click", func(ev *js.Object) {
		card := closest(ev, ".glass-card")
		if card == nil {
			return
		}
		file, name, category := data(card, "trackId"), data(card, "name"), data(card, "category")
		if file == "" || name == "" || category == "" {
			return
		}
		go a.playCard(category, file, name)
	})
	a.unsubscribe = mgr.Bus().SubscribeAll(a.onEvent)
	return a
}

// playCard starts the card's track, or pauses it when it is already playing.
func (a *ImmersionApp) playCard(category, file, name string) {
	ref := audio.NewTrackRef(category, file)
	if a.state.Playing && a.state.CurrentTrackID == ref.ID {
		a.mgr.PauseTrack(ref.ID)
		return
	}
	a.showPlayer(name, category)
	if err := a.mgr.PlayTrack(context.Background(), ref, false); err != nil {
		a.log.WithFields(logrus.Fields{
			"function": "playCard",
			"track":    ref.ID,
			"error":    err.Error(),
		}).Warn("Failed to play track")
		a.setPlayButton(false)
		showError(ErrorMessage(err))
	}
}

func (a *ImmersionApp) togglePlayPause() {
	if a.state.CurrentTrackID == "" {
		return
	}
	if a.state.Playing {
		a.mgr.PauseTrack(a.state.CurrentTrackID)
		return
	}
	if err := a.mgr.ResumeCurrent(context.Background()); err != nil {
		a.log.WithError(err).Warn("Failed to resume")
		showError(ErrorMessage(err))
	}
}

// HandleDeepLink plays the track named by the ?category=&track= query, if any.
func (a *ImmersionApp) HandleDeepLink() {
	category, file := dom.QueryParam("category"), dom.QueryParam("track")
	if category == "" || file == "" {
		return
	}
	cat, ok := a.mgr.Categories().Get(category)
	if !ok || cat.IndexOf(file) < 0 {
		a.log.WithFields(logrus.Fields{
			"category": category,
			"track":    file,
		}).Warn("Deep link names an unknown track")
		return
	}
	go a.playCard(category, file, TrackTitle(cat, file))
}

// Close detaches the view from the manager.
func (a *ImmersionApp) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *ImmersionApp) onEvent(ev audio.Event) {
	switch ev.(type) {
	case audio.LoadingStart:
		setCursor("wait")
	case audio.LoadingEnd:
		setCursor("default")
	}
	if !a.state.Apply(ev) {
		return
	}
	switch e := ev.(type) {
	case audio.TrackPlay:
		a.setPlayButton(true)
		a.highlight(e.Track.ID)
	case audio.TrackPause, audio.TrackEnded, audio.AllTracksStopped:
		a.setPlayButton(false)
		a.highlight("")
	}
}

func (a *ImmersionApp) showPlayer(title, subtitle string) {
	setText(a.playerTitle, title)
	setText(a.playerSubtitle, subtitle)
	a.setPlayButton(true)
	toggleClass(a.player, "hidden", false)
	toggleClass(a.player, "visible", true)
}

func (a *ImmersionApp) setPlayButton(playing bool) {
	if playing {
		setHTML(a.playPauseBtn, pauseSVG)
	} else {
		setHTML(a.playPauseBtn, playSVG)
	}
}

// highlight marks the card whose track id is active. An empty id clears all.
func (a *ImmersionApp) highlight(active string) {
	cards := js.Global.Get("document").Call("querySelectorAll", ".glass-card")
	for i := 0; i < cards.Length(); i++ {
		card := cards.Index(i)
		match := active != "" && catalog.TrackID(data(card, "category"), data(card, "trackId")) == active
		toggleClass(card, "active", match)
		if match {
			card.Get("style").Set("borderColor", "var(--primary-color)")
		} else {
			card.Get("style").Set("borderColor", "rgba(255, 255, 255, 0.1)")
		}
	}
}
