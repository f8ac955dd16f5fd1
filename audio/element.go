package audio

import (
	"context"
	"sort"
	"sync"
)

// Element is one native audio element. Implementations wrap the page's
// HTMLAudioElement; tests use an in-memory fake.
type Element interface {
	// Load points the element at src and blocks until it can play through,
	// fails to load, or ctx ends.
	Load(ctx context.Context, src string) error
	// Play starts playback. Autoplay-policy rejections return
	// ErrAutoplayBlocked.
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	Volume() float64
	SetVolume(v float64)
	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	// OnEnded registers the callback run when playback reaches the end.
	OnEnded(fn func())
	// Release pauses the element and detaches its source.
	Release()
}

// Backend creates elements and answers format-support probes.
type Backend interface {
	NewElement() Element
	CanPlayType(mime string) bool
}

// Storage is a string key/value store such as localStorage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// FormatTable records which file extensions the backend can decode.
type FormatTable map[string]bool

// DetectFormats probes every known extension once.
func DetectFormats(b Backend) FormatTable {
	table := make(FormatTable, len(FormatMIME))
	for ext, mimes := range FormatMIME {
		for _, mime := range mimes {
			if b.CanPlayType(mime) {
				table[ext] = true
				break
			}
		}
		if !table[ext] {
			table[ext] = false
		}
	}
	return table
}

// Supports reports whether ext (lower case, no dot) is playable.
func (t FormatTable) Supports(ext string) bool {
	return t[ext]
}

// Supported lists the playable extensions in sorted order.
func (t FormatTable) Supported() []string {
	var exts []string
	for ext, ok := range t {
		if ok {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// MemoryStorage is a Storage kept in process memory.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
