package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simukka/sound-healing/catalog"
	"github.com/simukka/sound-healing/common"
)

// fakeBackend plays nothing; it records what the manager asks of it.
type fakeBackend struct {
	mu        sync.Mutex
	supported map[string]bool          // MIME types CanPlayType accepts
	loadErr   map[string]error         // src -> error returned by Load
	hang      map[string]bool          // src whose Load never completes
	playGate  map[string]*playGate     // src whose Play waits for the gate to open
	playErr   error
	duration  float64
	elements  []*fakeElement
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		supported: map[string]bool{
			"audio/mpeg": true,
			"audio/wav":  true,
			"audio/ogg":  true,
			"audio/mp4":  true,
			"audio/aac":  true,
			"audio/flac": true,
		},
		loadErr:  make(map[string]error),
		hang:     make(map[string]bool),
		playGate: make(map[string]*playGate),
		duration: 100,
	}
}

func (b *fakeBackend) NewElement() Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	el := &fakeElement{backend: b, volume: 1, paused: true}
	b.elements = append(b.elements, el)
	return el
}

func (b *fakeBackend) CanPlayType(mime string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supported[mime]
}

func (b *fakeBackend) setPlayErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playErr = err
}

type playGate struct {
	once    sync.Once
	entered chan struct{}
	open    chan struct{}
}

// holdPlay makes Play on src block until release is called. entered closes
// once Play is waiting.
func (b *fakeBackend) holdPlay(src string) (entered <-chan struct{}, release func()) {
	gate := &playGate{entered: make(chan struct{}), open: make(chan struct{})}
	b.mu.Lock()
	b.playGate[src] = gate
	b.mu.Unlock()
	return gate.entered, func() { close(gate.open) }
}

// element returns the most recent element loaded from src.
func (b *fakeBackend) element(src string) *fakeElement {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.elements) - 1; i >= 0; i-- {
		if b.elements[i].Src() == src {
			return b.elements[i]
		}
	}
	return nil
}

type fakeElement struct {
	backend *fakeBackend

	mu          sync.Mutex
	src         string
	volume      float64
	currentTime float64
	duration    float64
	paused      bool
	released    bool
	plays       int
	ended       func()
}

func (e *fakeElement) Load(ctx context.Context, src string) error {
	e.mu.Lock()
	e.src = src
	e.mu.Unlock()

	e.backend.mu.Lock()
	hang := e.backend.hang[src]
	err := e.backend.loadErr[src]
	duration := e.backend.duration
	e.backend.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.duration = duration
	e.mu.Unlock()
	return nil
}

func (e *fakeElement) Play(ctx context.Context) error {
	src := e.Src()
	e.backend.mu.Lock()
	err := e.backend.playErr
	gate := e.backend.playGate[src]
	e.backend.mu.Unlock()
	if gate != nil {
		gate.once.Do(func() { close(gate.entered) })
		select {
		case <-gate.open:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.plays++
	return nil
}

func (e *fakeElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

func (e *fakeElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *fakeElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *fakeElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
}

func (e *fakeElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime
}

func (e *fakeElement) SetCurrentTime(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTime = t
}

func (e *fakeElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *fakeElement) OnEnded(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended = fn
}

func (e *fakeElement) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.released = true
	e.src = ""
}

func (e *fakeElement) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *fakeElement) Plays() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plays
}

func (e *fakeElement) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

// End simulates the element reaching its end.
func (e *fakeElement) End() {
	e.mu.Lock()
	e.paused = true
	fn := e.ended
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fakeClock advances a millisecond on every read so LastUsed is ordered.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recorder collects every published event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(m *Manager) *recorder {
	r := &recorder{}
	m.Bus().SubscribeAll(func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	return r
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind() == kind {
			return r.events[i], true
		}
	}
	return nil, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func testCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Add(&catalog.Category{Key: "Rain", Name: "Rain", Files: []string{"a.mp3", "b.mp3", "c.mp3"}})
	c.Add(&catalog.Category{Key: "Odd", Name: "Odd", Files: []string{"noise.xyz", "old.wma"}})
	big := make([]string, 12)
	for i := range big {
		big[i] = fmt.Sprintf("t%02d.mp3", i)
	}
	c.Add(&catalog.Category{Key: "Big", Name: "Big", Files: big})
	return c
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type harness struct {
	m       *Manager
	backend *fakeBackend
	storage *MemoryStorage
	clock   *fakeClock
	events  *recorder
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		storage: NewMemoryStorage(),
		clock:   newFakeClock(),
	}
	h.m = New(h.backend, h.storage, testCatalog(),
		WithConfig(cfg),
		WithRNG(common.NewSeededRNG(12345)),
		WithLogger(quietLogger()),
		WithClock(h.clock.Now),
	)
	h.events = record(h.m)
	t.Cleanup(func() { _ = h.m.Close() })
	return h
}

func rain(file string) TrackRef {
	return NewTrackRef("Rain", file)
}

func (h *harness) el(category, file string) *fakeElement {
	return h.backend.element(h.m.Categories().AudioURL(category, file))
}

func (h *harness) playingCount() int {
	return len(h.m.PlayingTracks())
}
