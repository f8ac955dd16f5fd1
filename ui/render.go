package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/simukka/sound-healing/audio"
	"github.com/simukka/sound-healing/catalog"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.gohtml"))

// CategoryView is one card of the category grid.
type CategoryView struct {
	Key         string
	Name        string
	Icon        string
	Description string
	Count       int
}

// TrackView is one row of a track list.
type TrackView struct {
	Number    int
	ID        string
	File      string
	Title     string
	Ext       string
	Supported bool
	Playing   bool
	Volume    float64
}

// Icon is the label of the row's play button.
func (t TrackView) Icon() string {
	if !t.Supported {
		return "⚠️"
	}
	return PlayIcon(t.Playing)
}

// TrackListView is the open playlist of one category.
type TrackListView struct {
	Category string
	Title    string
	Tracks   []TrackView
}

// CategoryViews lists the catalog's categories in order.
func CategoryViews(c *catalog.Catalog) []CategoryView {
	var views []CategoryView
	c.Each(func(cat *catalog.Category) {
		views = append(views, CategoryView{
			Key:         cat.Key,
			Name:        cat.Name,
			Icon:        cat.Icon,
			Description: cat.Description,
			Count:       len(cat.Files),
		})
	})
	return views
}

// TrackList builds the view of cat. volumeOf supplies per-track volumes.
func TrackList(cat *catalog.Category, formats audio.FormatTable, volumeOf func(id string) float64, state PlayerState) TrackListView {
	view := TrackListView{
		Category: cat.Key,
		Title:    fmt.Sprintf("%s (%d tracks)", cat.Name, len(cat.Files)),
	}
	for i, file := range cat.Files {
		id := catalog.TrackID(cat.Key, file)
		ext := catalog.Extension(file)
		view.Tracks = append(view.Tracks, TrackView{
			Number:    i + 1,
			ID:        id,
			File:      file,
			Title:     TrackTitle(cat, file),
			Ext:       strings.ToUpper(ext),
			Supported: formats.Supports(ext),
			Playing:   state.Playing && state.CurrentTrackID == id,
			Volume:    volumeOf(id),
		})
	}
	return view
}

// RenderCategories renders the category grid.
func RenderCategories(views []CategoryView) (string, error) {
	return render("categories.gohtml", views)
}

// RenderTrackList renders the rows of a playlist.
func RenderTrackList(view TrackListView) (string, error) {
	return render("tracklist.gohtml", view)
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
