package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeValid(t *testing.T) {
	assert.True(t, Range{Start: 1, End: 1}.Valid())
	assert.True(t, Range{Start: 3, End: 10}.Valid())
	assert.False(t, Range{}.Valid())
	assert.False(t, Range{Start: 0, End: 5}.Valid())
	assert.False(t, Range{Start: 5, End: 4}.Valid())
}

func TestRangeFrames(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Range{Start: 3, End: 5}.Frames())
	assert.Equal(t, []int{7}, Range{Start: 7, End: 7}.Frames())
	assert.Nil(t, Range{Start: 9, End: 2}.Frames())
}

func TestBuildTrack(t *testing.T) {
	ranges := []Range{
		{Start: 1, End: 5},
		{Start: 20, End: 22},
		{Start: 30, End: 31},
	}

	assert.Equal(t, []int{20, 21, 22, 30, 31}, buildTrack(ranges, []int{1, 2}))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, buildTrack(ranges, []int{0}))

	// Unknown ids contribute nothing; the rest of the track survives.
	assert.Equal(t, []int{20, 21, 22}, buildTrack(ranges, []int{1, 99}))
	assert.Equal(t, []int{30, 31}, buildTrack(ranges, []int{-1, 2}))
	assert.Nil(t, buildTrack(ranges, []int{7}))
}

func TestExtendTrack(t *testing.T) {
	idle := Range{Start: 1, End: 5}

	track := []int{20, 21, 22}
	track = extendTrack(track, idle, 8)
	assert.Equal(t, []int{20, 21, 22, 1, 2, 3, 4, 5}, track)

	// Whole cycles only: asking for one more frame appends five.
	track = extendTrack(track, idle, 9)
	assert.Equal(t, []int{20, 21, 22, 1, 2, 3, 4, 5, 1, 2, 3, 4, 5}, track)

	// Already long enough: untouched.
	assert.Equal(t, []int{20, 21, 22}, extendTrack([]int{20, 21, 22}, idle, 2))

	// Unusable idle range: nothing to cycle, track passes through.
	assert.Equal(t, []int{20}, extendTrack([]int{20}, Range{}, 10))
}

func TestFrameIndexAt(t *testing.T) {
	action := []int{20, 21, 22}
	silence := []int{1, 2, 3, 4, 5}

	assert.Equal(t, 21, frameIndexAt(1, action, silence))
	assert.Equal(t, 22, frameIndexAt(2, action, silence))

	// Past the action track the idle loop takes over, modulo its length.
	assert.Equal(t, 4, frameIndexAt(3, action, silence))
	assert.Equal(t, 3, frameIndexAt(7, action, silence))

	assert.Equal(t, 1, frameIndexAt(0, nil, silence))
	assert.Equal(t, 2, frameIndexAt(6, nil, silence))
	assert.Equal(t, 0, frameIndexAt(4, nil, nil))
}
