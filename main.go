//go:build js
// +build js

package main

import (
	"context"
	"time"

	"github.com/gopherjs/gopherjs/js"
	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
	"github.com/simukka/sound-healing/common"
	"github.com/simukka/sound-healing/dom"
	"github.com/simukka/sound-healing/ui"
)

const catalogTimeout = 10 * time.Second

// view is what both page layouts offer to main.
type view interface {
	Refresh()
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	log := logrus.WithField("app", "sound-healing")

	cat, fromServer := loadCatalog(log)
	if cat == nil {
		return
	}

	mgr := audio.New(dom.NewBackend(), dom.NewLocalStorage(), cat,
		audio.WithRNG(common.NewSessionRNG()),
		audio.WithLogger(log),
	)
	if err := mgr.Initialize(); err != nil {
		log.WithError(err).Error("Audio manager failed to initialize")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	var feed *dom.CatalogFeed
	dom.OnReady(func() {
		var v view
		if dom.ByID("sound-grid") != nil {
			app := ui.NewImmersionApp(mgr, log)
			app.HandleDeepLink()
			v = immersionView{app}
		} else {
			v = ui.NewPlaylistUI(mgr, log)
		}
		if fromServer {
			feed = dom.WatchCatalog(dom.FeedURL("/ws/catalog"), func(c *catalog.Catalog) {
				mgr.SetCatalog(c)
				v.Refresh()
			})
		}
	})

	dom.OnUnload(func() {
		cancel()
		if feed != nil {
			feed.Close()
		}
		// The periodic and visibility saves cover a busy manager.
		if err := mgr.TrySaveSettings(); err != nil {
			log.WithError(err).Warn("Failed to save settings on unload")
		}
	})
	dom.OnVisibilityHidden(func() {
		if err := mgr.SaveSettings(); err != nil {
			log.WithError(err).Warn("Failed to save settings")
		}
		mgr.Sweep(time.Now())
	})

	// Expose the player to page scripts
	js.Global.Set("SoundHealing", map[string]interface{}{
		"play": func(category, file string) {
			go func() {
				if err := mgr.PlayTrack(context.Background(), audio.NewTrackRef(category, file), false); err != nil {
					log.WithError(err).Warn("play failed")
				}
			}()
		},
		"playPlaylist": func(category string, start int) {
			go func() {
				if err := mgr.PlayPlaylist(context.Background(), category, start); err != nil {
					log.WithError(err).Warn("playPlaylist failed")
				}
			}()
		},
		"toggle": func(category, file string) {
			go func() {
				if err := mgr.ToggleTrack(context.Background(), audio.NewTrackRef(category, file)); err != nil {
					log.WithError(err).Warn("toggle failed")
				}
			}()
		},
		"pause": func(trackID string) {
			go mgr.PauseTrack(trackID)
		},
		"pauseAll": func() {
			go mgr.PauseAll()
		},
		"next": func() {
			go mgr.NextTrack(context.Background())
		},
		"previous": func() {
			go mgr.PreviousTrack(context.Background())
		},
		"setVolume": func(trackID string, v float64) {
			go mgr.SetTrackVolume(trackID, v)
		},
		"setGlobalVolume": func(v float64) {
			go mgr.SetGlobalVolume(v)
		},
		"fadeIn": func(trackID string, ms int) {
			go mgr.FadeIn(trackID, time.Duration(ms)*time.Millisecond)
		},
		"fadeOut": func(trackID string, ms int) {
			go mgr.FadeOut(trackID, time.Duration(ms)*time.Millisecond)
		},
		"setMixMode": func(on bool) {
			go mgr.SetMixMode(on)
		},
		"mixMode": func() bool {
			return mgr.MixMode()
		},
		"exitPlaylist": func() {
			go mgr.ExitPlaylist()
		},
		"setSleepTimer": func(minutes float64) {
			go mgr.SetSleepTimer(time.Duration(minutes * float64(time.Minute)))
		},
		"cancelSleepTimer": func() {
			go mgr.CancelSleepTimer()
		},
		"history": func() []map[string]interface{} {
			return historyJS(mgr.History())
		},
		"clearHistory": func() {
			go mgr.ClearHistory()
		},
		"isPlaying": func() bool {
			return mgr.IsAnyPlaying()
		},
		"supportedFormats": func() []string {
			return mgr.Formats().Supported()
		},
	})

	select {}
}

// loadCatalog prefers the page's AUDIO_CONFIG global and falls back to the
// dev server. The flag reports whether the catalog came from the server.
func loadCatalog(log logrus.FieldLogger) (*catalog.Catalog, bool) {
	cat, err := dom.CatalogFromGlobal(dom.ConfigGlobal)
	if err == nil {
		return cat, false
	}
	log.WithError(err).Debug("No page catalog, asking the server")

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()
	cat, err = dom.FetchCatalog(ctx, "/api/catalog")
	if err != nil {
		log.WithError(err).Error("No audio catalog available")
		return nil, false
	}
	return cat, true
}

// historyJS converts entries to plain objects in the stored layout.
func historyJS(entries []audio.HistoryEntry) []map[string]interface{} {
	out := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		out[i] = map[string]interface{}{
			"id":          e.ID,
			"category":    e.Category,
			"fileName":    e.FileName,
			"displayName": e.DisplayName,
			"playedAt":    e.PlayedAt.Format(time.RFC3339),
			"duration":    e.Duration,
		}
	}
	return out
}

type immersionView struct {
	*ui.ImmersionApp
}

// The card grid is static markup.
func (immersionView) Refresh() {}
