package avatar

import "log/slog"

// Range is an inclusive span of pre-rendered frame indices for one
// animation phase. Frame indices are 1-based; a zero start or end marks
// the range as unusable.
type Range struct {
	Start int
	End   int
}

// Valid reports whether the range identifies at least one frame.
func (r Range) Valid() bool {
	return r.Start >= 1 && r.End >= r.Start
}

// Frames expands the range to its full inclusive span, in order.
func (r Range) Frames() []int {
	if !r.Valid() {
		slog.Warn("avatar: skipping invalid frame range", "start", r.Start, "end", r.End)
		return nil
	}
	frames := make([]int, 0, r.End-r.Start+1)
	for i := r.Start; i <= r.End; i++ {
		frames = append(frames, i)
	}
	return frames
}

// buildTrack concatenates the spans identified by ids, in the order given.
// An id not present in the range table contributes no frames: it is logged
// and skipped rather than failing the whole track.
func buildTrack(ranges []Range, ids []int) []int {
	var track []int
	for _, id := range ids {
		if id < 0 || id >= len(ranges) {
			slog.Warn("avatar: unknown range id, skipping", "range_id", id, "table_size", len(ranges))
			continue
		}
		track = append(track, ranges[id].Frames()...)
	}
	return track
}

// extendTrack appends whole cycles of the idle range until the track
// covers at least blocks motion units. This guards against audio that
// runs longer than the originally requested ranges.
func extendTrack(track []int, idle Range, blocks int) []int {
	cycle := idle.Frames()
	if len(cycle) == 0 {
		return track
	}
	for len(track) < blocks {
		track = append(track, cycle...)
	}
	return track
}

// frameIndexAt maps the clock's tick counter to the frame image index to
// render: the action track while it covers the counter, the idle loop
// otherwise. Returns 0 when no frame is available.
func frameIndexAt(current int, action, silence []int) int {
	if len(action) > 0 && current < len(action) {
		return action[current]
	}
	if len(silence) == 0 {
		return 0
	}
	return silence[current%len(silence)]
}
