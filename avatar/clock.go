package avatar

import "time"

// frameClock derives the current animation frame from wall-clock time.
// It never blocks and never rewinds; wrapping past the end of the active
// track re-anchors the baseline so the apparent rate stays constant.
type frameClock struct {
	interval time.Duration
	start    time.Time
	anchored bool
	frame    int
}

func newFrameClock(fps int) *frameClock {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &frameClock{interval: time.Second / time.Duration(fps)}
}

// Advance computes the frame for the given timestamp. The first call after
// a Reset anchors the baseline and keeps the current frame. trackLen is
// the length of the active track; zero disables wrapping (the caller skips
// drawing but the clock keeps ticking).
func (c *frameClock) Advance(ts time.Time, trackLen int) int {
	if !c.anchored {
		c.start = ts
		c.anchored = true
		return c.frame
	}

	expected := int(ts.Sub(c.start) / c.interval)
	if expected < c.frame {
		// Monotonic: a stale timestamp never rewinds the animation.
		return c.frame
	}
	c.frame = expected

	if trackLen > 0 && c.frame >= trackLen {
		c.frame %= trackLen
		c.start = ts.Add(-time.Duration(c.frame) * c.interval)
	}
	return c.frame
}

// Reset zeroes the frame counter and drops the baseline so the next
// Advance re-anchors elapsed-time math. Used when switching tracks.
func (c *frameClock) Reset() {
	c.frame = 0
	c.anchored = false
}

// Frame returns the last computed frame without advancing.
func (c *frameClock) Frame() int {
	return c.frame
}
