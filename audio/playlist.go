package audio

import "github.com/simukka/sound-healing/common"

// Playlist is an ordered cursor over one category's files.
type Playlist struct {
	Category     string
	Original     []string // Catalog order
	Tracks       []string // Play order, shuffled or original
	ShuffleOrder []int    // Tracks[i] == Original[ShuffleOrder[i]] while shuffled
	CurrentIndex int
}

func newPlaylist(category string, files []string, start int) *Playlist {
	if start < 0 || start >= len(files) {
		start = 0
	}
	return &Playlist{
		Category:     category,
		Original:     append([]string(nil), files...),
		Tracks:       append([]string(nil), files...),
		CurrentIndex: start,
	}
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

// Current returns the file at the cursor.
func (p *Playlist) Current() (string, bool) {
	if p == nil || p.CurrentIndex < 0 || p.CurrentIndex >= len(p.Tracks) {
		return "", false
	}
	return p.Tracks[p.CurrentIndex], true
}

// CurrentRef returns the track reference at the cursor.
func (p *Playlist) CurrentRef() (TrackRef, bool) {
	file, ok := p.Current()
	if !ok {
		return TrackRef{}, false
	}
	return NewTrackRef(p.Category, file), true
}

// Next advances the cursor. It returns false when the end is reached and
// the playlist should stop; only RepeatAll wraps.
func (p *Playlist) Next(repeat RepeatMode) bool {
	if len(p.Tracks) == 0 {
		return false
	}
	if p.CurrentIndex+1 < len(p.Tracks) {
		p.CurrentIndex++
		return true
	}
	if repeat == RepeatAll {
		p.CurrentIndex = 0
		return true
	}
	return false
}

// Previous moves the cursor back. At the first track RepeatAll wraps to
// the last; otherwise the cursor stays and false is returned.
func (p *Playlist) Previous(repeat RepeatMode) bool {
	if len(p.Tracks) == 0 {
		return false
	}
	if p.CurrentIndex > 0 {
		p.CurrentIndex--
		return true
	}
	if repeat == RepeatAll {
		p.CurrentIndex = len(p.Tracks) - 1
		return true
	}
	return false
}

// Shuffle reorders the tracks randomly, keeping the current track first.
func (p *Playlist) Shuffle(rng *common.SeededRNG) {
	n := len(p.Original)
	if n == 0 {
		return
	}
	cur := p.originalIndex()
	order := rng.Perm(n)
	for i, idx := range order {
		if idx == cur {
			order[0], order[i] = order[i], order[0]
			break
		}
	}
	p.ShuffleOrder = order
	p.Tracks = make([]string, n)
	for i, idx := range order {
		p.Tracks[i] = p.Original[idx]
	}
	p.CurrentIndex = 0
}

// Restore returns to catalog order, keeping the cursor on the same track.
func (p *Playlist) Restore() {
	cur := p.originalIndex()
	p.Tracks = append([]string(nil), p.Original...)
	p.ShuffleOrder = nil
	if cur >= 0 && cur < len(p.Tracks) {
		p.CurrentIndex = cur
	} else {
		p.CurrentIndex = 0
	}
}

// Shuffled reports whether a shuffle order is active.
func (p *Playlist) Shuffled() bool {
	return p.ShuffleOrder != nil
}

// originalIndex maps the cursor back into catalog order.
func (p *Playlist) originalIndex() int {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.Tracks) {
		return 0
	}
	if p.ShuffleOrder != nil && p.CurrentIndex < len(p.ShuffleOrder) {
		return p.ShuffleOrder[p.CurrentIndex]
	}
	return p.CurrentIndex
}

func (p *Playlist) clone() *Playlist {
	if p == nil {
		return nil
	}
	c := *p
	c.Original = append([]string(nil), p.Original...)
	c.Tracks = append([]string(nil), p.Tracks...)
	if p.ShuffleOrder != nil {
		c.ShuffleOrder = append([]int(nil), p.ShuffleOrder...)
	}
	return &c
}
