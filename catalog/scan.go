//go:build !js
// +build !js

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bogem/id3v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrentTagReads bounds how many files Scan opens at once.
var MaxConcurrentTagReads = 8

// Scan builds a catalog from an audio tree laid out as
// <dir>/<category>/<file>. Sub-directories become categories, audio files
// (by extension) become tracks, and MP3 titles are read from ID3 tags.
func Scan(ctx context.Context, dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	c := New()
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files, err := audioFiles(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		c.Add(&Category{
			Key:    titleCase(entry.Name()),
			Name:   titleCase(entry.Name()),
			Folder: entry.Name(),
			Files:  files,
		})
	}

	if err := readTitles(ctx, dir, c); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Scan",
		"dir":        dir,
		"categories": c.Len(),
	}).Info("Audio tree scanned")

	return c, nil
}

// audioFiles lists the audio files directly inside dir, sorted by name.
func audioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if knownExtension.MatchString(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// readTitles fills Category.Titles from ID3 tags. Unreadable tags are
// skipped; only context cancellation fails the scan.
func readTitles(ctx context.Context, dir string, c *Catalog) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentTagReads)

	var mu sync.Mutex
	c.Each(func(cat *Category) {
		for _, file := range cat.Files {
			if Extension(file) != "mp3" {
				continue
			}
			cat, file := cat, file
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				title := readTitle(filepath.Join(dir, cat.Folder, file))
				if title == "" {
					return nil
				}
				mu.Lock()
				if cat.Titles == nil {
					cat.Titles = make(map[string]string)
				}
				cat.Titles[file] = title
				mu.Unlock()
				return nil
			})
		}
	})
	return g.Wait()
}

func readTitle(path string) string {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Title"}})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "readTitle",
			"path":     path,
			"error":    err.Error(),
		}).Debug("No readable ID3 tag")
		return ""
	}
	defer tag.Close()
	return strings.TrimSpace(tag.Title())
}
