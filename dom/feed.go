//go:build js
// +build js

package dom

import (
	"strings"
	"time"

	"github.com/gopherjs/gopherjs/js"
	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/catalog"
)

// Reconnect backoff bounds for the catalog feed.
const (
	feedRetryMin = time.Second
	feedRetryMax = 30 * time.Second
)

// CatalogFeed keeps a WebSocket open to the server and applies every
// catalog it pushes.
type CatalogFeed struct {
	url      string
	apply    func(*catalog.Catalog)
	ws       *js.Object
	clientID string
	retry    time.Duration
	closed   bool
}

// FeedURL turns a path such as "/ws/catalog" into a ws(s) URL for the
// current origin.
func FeedURL(path string) string {
	loc := js.Global.Get("location")
	scheme := "ws://"
	if loc.Get("protocol").String() == "https:" {
		scheme = "wss://"
	}
	return scheme + loc.Get("host").String() + "/" + strings.TrimPrefix(path, "/")
}

// WatchCatalog connects to url and calls apply on a new goroutine for each
// catalog received.
func WatchCatalog(url string, apply func(*catalog.Catalog)) *CatalogFeed {
	f := &CatalogFeed{url: url, apply: apply, retry: feedRetryMin}
	f.connect()
	return f
}

func (f *CatalogFeed) connect() {
	if f.closed {
		return
	}
	ws := js.Global.Get("WebSocket").New(f.url)
	f.ws = ws

	ws.Set("onopen", func() {
		f.retry = feedRetryMin
		logrus.WithFields(logrus.Fields{
			"function": "WatchCatalog",
			"url":      f.url,
		}).Debug("Catalog feed connected")
	})
	ws.Set("onmessage", func(event *js.Object) {
		f.handleMessage(event.Get("data").String())
	})
	ws.Set("onclose", func() {
		if f.closed {
			return
		}
		delay := f.retry
		f.retry *= 2
		if f.retry > feedRetryMax {
			f.retry = feedRetryMax
		}
		logrus.WithFields(logrus.Fields{
			"function": "WatchCatalog",
			"retry_in": delay.String(),
		}).Info("Catalog feed closed, reconnecting")
		js.Global.Call("setTimeout", f.connect, delay.Milliseconds())
	})
}

func (f *CatalogFeed) handleMessage(data string) {
	msg, err := catalog.DecodeMessage([]byte(data))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleMessage",
			"error":    err.Error(),
		}).Warn("Dropping malformed feed message")
		return
	}

	switch msg.Type {
	case catalog.MsgHello:
		f.clientID = msg.Client
		logrus.WithFields(logrus.Fields{
			"function": "handleMessage",
			"client":   f.clientID,
		}).Debug("Catalog feed registered")
	case catalog.MsgCatalog:
		logrus.WithFields(logrus.Fields{
			"function":   "handleMessage",
			"client":     f.clientID,
			"categories": msg.Catalog.Len(),
		}).Info("Catalog update received")
		go f.apply(msg.Catalog)
	}
}

// Close stops the feed and disables reconnects.
func (f *CatalogFeed) Close() {
	f.closed = true
	if Present(f.ws) {
		f.ws.Call("close")
	}
}
