//go:build !js
// +build !js

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/catalog"
)

// Quiet period before a burst of file changes triggers a rebuild.
const watchQuiet = 300 * time.Millisecond

// source describes where the catalog comes from.
type source struct {
	catalogFile string
	audioDir    string
}

// load builds the catalog from the YAML file, or by scanning the audio tree
// when no file is configured. A source with no categories is an error.
func (src source) load(ctx context.Context) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	switch {
	case src.catalogFile != "":
		cat, err = catalog.LoadFile(src.catalogFile)
	case src.audioDir != "":
		cat, err = catalog.Scan(ctx, src.audioDir)
	default:
		return nil, errors.New("either -catalog or -audio is required")
	}
	if err != nil {
		return nil, err
	}
	if cat.Len() == 0 {
		return nil, catalog.ErrEmpty
	}
	return cat, nil
}

// watch starts a watcher on whatever the catalog is built from.
func (src source) watch() (*Watcher, error) {
	if src.catalogFile != "" {
		return NewWatcher(catalogFileMatcher(src.catalogFile), watchQuiet, filepath.Dir(src.catalogFile))
	}
	dirs, err := audioDirs(src.audioDir)
	if err != nil {
		return nil, err
	}
	return NewWatcher(audioTreeMatcher, watchQuiet, dirs...)
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	staticDir := flag.String("static", ".", "Directory served under /assets/")
	catalogFile := flag.String("catalog", "", "YAML catalog file")
	audioDir := flag.String("audio", "", "Audio tree to scan and serve under /assets/audio/")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dump := flag.Bool("dump-catalog", false, "Print the catalog as YAML and exit")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("app", "sound-healing-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source{catalogFile: *catalogFile, audioDir: *audioDir}
	cat, err := src.load(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}
	if *dump {
		if err := catalog.WriteYAML(os.Stdout, cat); err != nil {
			log.WithError(err).Fatal("Failed to write catalog")
		}
		return
	}

	srv := NewServer(cat, *staticDir, *audioDir, log)
	defer srv.Close()

	if w, err := src.watch(); err != nil {
		log.WithError(err).Warn("Catalog watching disabled")
	} else {
		defer w.Close()
		go srv.Watch(ctx, w, src.load)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr":       *addr,
		"static":     *staticDir,
		"categories": cat.Len(),
	}).Info("Sound healing server starting")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server failed")
	}
}
