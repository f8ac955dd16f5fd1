package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simukka/sound-healing/common"
)

func TestPlaylist_NextAndPrevious(t *testing.T) {
	p := newPlaylist("Rain", []string{"a.mp3", "b.mp3", "c.mp3"}, 0)

	assert.True(t, p.Next(RepeatNone))
	assert.True(t, p.Next(RepeatNone))
	assert.Equal(t, 2, p.CurrentIndex)
	assert.False(t, p.Next(RepeatNone))
	assert.False(t, p.Next(RepeatOne))
	assert.Equal(t, 2, p.CurrentIndex)
	assert.True(t, p.Next(RepeatAll))
	assert.Equal(t, 0, p.CurrentIndex)

	assert.False(t, p.Previous(RepeatNone))
	assert.Equal(t, 0, p.CurrentIndex)
	assert.True(t, p.Previous(RepeatAll))
	assert.Equal(t, 2, p.CurrentIndex)

	ref, ok := p.CurrentRef()
	assert.True(t, ok)
	assert.Equal(t, "Rain__c_mp3", ref.ID)
}

func TestPlaylist_Empty(t *testing.T) {
	p := newPlaylist("Empty", nil, 3)
	assert.False(t, p.Next(RepeatAll))
	assert.False(t, p.Previous(RepeatAll))
	_, ok := p.Current()
	assert.False(t, ok)
	p.Shuffle(common.NewSeededRNG(1))
	assert.Empty(t, p.Tracks)
}

func TestPlaylist_ShuffleDeterministic(t *testing.T) {
	files := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	a := newPlaylist("X", files, 4)
	b := newPlaylist("X", files, 4)
	a.Shuffle(common.NewSeededRNG(77))
	b.Shuffle(common.NewSeededRNG(77))

	assert.Equal(t, a.Tracks, b.Tracks)
	assert.Equal(t, "5", a.Tracks[0])
	assert.True(t, a.Shuffled())
	assert.Equal(t, files, a.Original, "shuffle leaves the original order intact")

	a.CurrentIndex = 3
	want := a.Tracks[3]
	a.Restore()
	assert.False(t, a.Shuffled())
	assert.Equal(t, files, a.Tracks)
	assert.Equal(t, want, a.Tracks[a.CurrentIndex])
}

func TestPlaylist_CloneIsIndependent(t *testing.T) {
	p := newPlaylist("Rain", []string{"a.mp3", "b.mp3"}, 1)
	c := p.clone()
	c.Tracks[0] = "z.mp3"
	c.CurrentIndex = 0
	assert.Equal(t, "a.mp3", p.Tracks[0])
	assert.Equal(t, 1, p.CurrentIndex)
}
