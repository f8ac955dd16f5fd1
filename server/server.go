//go:build !js
// +build !js

package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/simukka/sound-healing/catalog"
)

//go:embed index.html
var indexHTML []byte

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server hosts the player page, its assets and the live catalog.
type Server struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog

	hub      *Hub
	index    []byte
	static   string
	audioDir string
	log      logrus.FieldLogger
}

// NewServer creates a server for cat. static is the asset directory and
// audioDir, when set, is served under the default audio root.
func NewServer(cat *catalog.Catalog, static, audioDir string, log logrus.FieldLogger) *Server {
	return &Server{
		catalog:  cat,
		hub:      NewHub(log.WithField("component", "hub"), 30*time.Second),
		index:    minifyIndex(indexHTML, log),
		static:   static,
		audioDir: audioDir,
		log:      log,
	}
}

// minifyIndex shrinks the embedded page once at startup. On failure the
// original page is served.
func minifyIndex(page []byte, log logrus.FieldLogger) []byte {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)

	out, err := m.Bytes("text/html", page)
	if err != nil {
		log.WithError(err).Warn("Failed to minify index page, serving original")
		return page
	}
	return out
}

// Catalog returns the catalog currently served.
func (s *Server) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// SetCatalog replaces the served catalog and pushes it to every client.
func (s *Server) SetCatalog(cat *catalog.Catalog) error {
	msg, err := catalog.EncodeMessage(catalog.Message{Type: catalog.MsgCatalog, Catalog: cat})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.catalog = cat
	s.mu.Unlock()

	s.hub.Broadcast(msg)
	s.log.WithFields(logrus.Fields{
		"categories": cat.Len(),
		"clients":    s.hub.Len(),
	}).Info("Catalog updated")
	return nil
}

// Watch rebuilds the catalog on every change reported by w until ctx ends.
func (s *Server) Watch(ctx context.Context, w *Watcher, rebuild func(ctx context.Context) (*catalog.Catalog, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-w.Changes:
			if !ok {
				return
			}
			cat, err := rebuild(ctx)
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"path":  path,
					"error": err.Error(),
				}).Warn("Catalog rebuild failed, keeping the previous one")
				continue
			}
			if err := s.SetCatalog(cat); err != nil {
				s.log.WithError(err).Error("Failed to publish catalog")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.hub.Close()
}

// Routes returns the server's handler.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.static))))
	if s.audioDir != "" {
		mux.Handle(catalog.DefaultAudioRoot, http.StripPrefix(catalog.DefaultAudioRoot, http.FileServer(http.Dir(s.audioDir))))
	}
	mux.HandleFunc("/api/catalog", s.handleCatalog)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/ws/catalog", s.handleFeed)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.index)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := json.Marshal(s.Catalog())
	if err != nil {
		s.log.WithError(err).Error("Failed to encode catalog")
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "healthy",
		"categories": s.Catalog().Len(),
		"clients":    s.hub.Len(),
	})
}

// handleFeed upgrades to a WebSocket, greets the client with its id and the
// current catalog, then streams every later catalog.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := s.hub.Register()
	hello, _ := catalog.EncodeMessage(catalog.Message{Type: catalog.MsgHello, Client: c.ID})
	s.hub.Send(c.ID, hello)
	if msg, err := catalog.EncodeMessage(catalog.Message{Type: catalog.MsgCatalog, Catalog: s.Catalog()}); err == nil {
		s.hub.Send(c.ID, msg)
	}
	s.hub.serve(conn, c)
}
