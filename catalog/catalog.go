// Package catalog describes the categorized audio library played by the
// page: which categories exist, which files belong to each one and where
// those files are served from.
//
// A catalog is authored as YAML for the server and handed to the browser as
// JSON (the AUDIO_CONFIG object), so both encodings are supported. Category
// order is preserved in both.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DefaultAudioRoot is the local path audio files are served under when the
// catalog has no base URL.
const DefaultAudioRoot = "/assets/audio/"

// ErrEmpty is returned when a catalog source yields no categories.
var ErrEmpty = errors.New("catalog has no categories")

// Category is one group of tracks, e.g. "Rain".
type Category struct {
	Key         string   `yaml:"key" json:"-"`
	Name        string   `yaml:"name" json:"name"`
	Icon        string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Folder      string   `yaml:"folder,omitempty" json:"folder,omitempty"`
	Files       []string `yaml:"files" json:"files"`

	// Titles maps file name to a display title, filled by Scan from tags.
	Titles map[string]string `yaml:"titles,omitempty" json:"titles,omitempty"`
}

// PlayerOptions carries optional overrides for the playback manager. Zero
// values mean "use the default".
type PlayerOptions struct {
	MaxInstances       int      `yaml:"maxInstances,omitempty" json:"maxInstances,omitempty"`
	LoadTimeoutMs      int      `yaml:"loadTimeoutMs,omitempty" json:"loadTimeoutMs,omitempty"`
	ProgressIntervalMs int      `yaml:"progressIntervalMs,omitempty" json:"progressIntervalMs,omitempty"`
	FadeSteps          int      `yaml:"fadeSteps,omitempty" json:"fadeSteps,omitempty"`
	GlobalVolume       *float64 `yaml:"globalVolume,omitempty" json:"globalVolume,omitempty"`
	RepeatMode         string   `yaml:"repeatMode,omitempty" json:"repeatMode,omitempty"`
}

// Catalog is the full category table.
type Catalog struct {
	BaseURL    string
	Player     PlayerOptions
	Categories map[string]*Category
	Order      []string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Categories: make(map[string]*Category)}
}

// Add appends a category, replacing any category with the same key in place.
func (c *Catalog) Add(cat *Category) {
	if cat == nil || cat.Key == "" {
		return
	}
	if _, exists := c.Categories[cat.Key]; !exists {
		c.Order = append(c.Order, cat.Key)
	}
	c.Categories[cat.Key] = cat
}

// Get returns the category with the given key.
func (c *Catalog) Get(key string) (*Category, bool) {
	if c == nil {
		return nil, false
	}
	cat, ok := c.Categories[key]
	return cat, ok
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Order)
}

// Each calls fn for every category in catalog order.
func (c *Catalog) Each(fn func(cat *Category)) {
	if c == nil {
		return
	}
	for _, key := range c.Order {
		if cat, ok := c.Categories[key]; ok {
			fn(cat)
		}
	}
}

// FolderName returns the directory a category's files live in.
func (cat *Category) FolderName() string {
	if cat.Folder != "" {
		return cat.Folder
	}
	return strings.Join(strings.Fields(strings.ToLower(cat.Key)), "-")
}

// IndexOf returns the position of file within the category, or -1.
func (cat *Category) IndexOf(file string) int {
	for i, f := range cat.Files {
		if f == file {
			return i
		}
	}
	return -1
}

// AudioURL builds the URL a track is fetched from. Absolute http(s) file
// names are returned untouched.
func (c *Catalog) AudioURL(categoryKey, file string) string {
	if strings.HasPrefix(file, "http://") || strings.HasPrefix(file, "https://") {
		return file
	}

	folder := categoryKey
	if cat, ok := c.Get(categoryKey); ok {
		folder = cat.FolderName()
	}

	if c != nil && c.BaseURL != "" {
		base := c.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base + folder + "/" + url.PathEscape(file)
	}
	return DefaultAudioRoot + folder + "/" + file
}

// --- Track identity ---

var unsafeTrackChars = regexp.MustCompile(`[^a-zA-Z0-9\x{4e00}-\x{9fa5}_-]`)

// TrackID derives the stable identity of a track. The same category and
// file always give the same id; characters outside the safe set become '_'.
func TrackID(categoryKey, file string) string {
	return unsafeTrackChars.ReplaceAllString(categoryKey+"__"+file, "_")
}

var knownExtension = regexp.MustCompile(`(?i)\.(mp3|wav|ogg|m4a|wma|flac|aac)$`)

// DisplayName strips a known audio extension from a file name.
func DisplayName(file string) string {
	return knownExtension.ReplaceAllString(file, "")
}

// Extension returns the lower-cased extension of file without the dot.
func Extension(file string) string {
	ext := path.Ext(file)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// --- YAML ---

type yamlCatalog struct {
	BaseURL    string        `yaml:"baseUrl,omitempty"`
	Player     PlayerOptions `yaml:"player,omitempty"`
	Categories []*Category   `yaml:"categories"`
}

// Load parses a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw yamlCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := New()
	c.BaseURL = raw.BaseURL
	c.Player = raw.Player
	for i, cat := range raw.Categories {
		if cat == nil {
			continue
		}
		if strings.TrimSpace(cat.Key) == "" {
			return nil, fmt.Errorf("parse catalog: category %d has no key", i)
		}
		if cat.Name == "" {
			cat.Name = cat.Key
		}
		c.Add(cat)
	}
	return c, nil
}

// LoadFile parses the YAML catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// WriteYAML encodes c in the layout Load reads.
func WriteYAML(w io.Writer, c *Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

// MarshalYAML writes the catalog in the authoring layout.
func (c *Catalog) MarshalYAML() (interface{}, error) {
	raw := yamlCatalog{BaseURL: c.BaseURL, Player: c.Player}
	c.Each(func(cat *Category) {
		raw.Categories = append(raw.Categories, cat)
	})
	return raw, nil
}

// --- JSON (AUDIO_CONFIG shape) ---

// MarshalJSON encodes categories as an object keyed by category key, in
// catalog order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"baseUrl":`)
	b, err := json.Marshal(c.BaseURL)
	if err != nil {
		return nil, err
	}
	buf.Write(b)

	buf.WriteString(`,"player":`)
	b, err = json.Marshal(c.Player)
	if err != nil {
		return nil, err
	}
	buf.Write(b)

	buf.WriteString(`,"categories":{`)
	first := true
	var encErr error
	c.Each(func(cat *Category) {
		if encErr != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(cat.Key)
		if err != nil {
			encErr = err
			return
		}
		val, err := json.Marshal(cat)
		if err != nil {
			encErr = err
			return
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	})
	if encErr != nil {
		return nil, encErr
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the AUDIO_CONFIG shape, keeping the order in which
// categories appear.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var raw struct {
		BaseURL    string          `json:"baseUrl"`
		Player     PlayerOptions   `json:"player"`
		Categories json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = *New()
	c.BaseURL = raw.BaseURL
	c.Player = raw.Player
	if len(raw.Categories) == 0 || string(raw.Categories) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Categories))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("catalog: categories must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var cat Category
		if err := dec.Decode(&cat); err != nil {
			return fmt.Errorf("catalog: category %q: %w", key, err)
		}
		cat.Key = key
		if cat.Name == "" {
			cat.Name = key
		}
		c.Add(&cat)
	}
	return nil
}

// ParseJSON decodes an AUDIO_CONFIG document.
func ParseJSON(data []byte) (*Catalog, error) {
	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}
	return c, nil
}

// titleCase upper-cases the first letter of every word in a folder name.
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
