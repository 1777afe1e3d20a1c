package domain

import (
	"sort"
	"time"
)

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds the window [start, start+d).
func NewWindow(start time.Time, d time.Duration) TimeWindow {
	return TimeWindow{Start: start, End: start.Add(d)}
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// IsEmpty reports whether the window contains no instant.
func (w TimeWindow) IsEmpty() bool {
	return !w.Start.Before(w.End)
}

// Overlaps reports whether a and b share at least one instant.
// Windows that only touch (a.End == b.Start) do not overlap.
func Overlaps(a, b TimeWindow) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// MergeWindows returns the union of ws as a sorted list of disjoint windows.
// Touching windows are coalesced.
func MergeWindows(ws []TimeWindow) []TimeWindow {
	in := make([]TimeWindow, 0, len(ws))
	for _, w := range ws {
		if !w.IsEmpty() {
			in = append(in, w)
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := []TimeWindow{in[0]}
	for _, w := range in[1:] {
		last := &out[len(out)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		out = append(out, w)
	}
	return out
}

// SubtractWindows returns the parts of base not covered by any window in cut.
func SubtractWindows(base, cut []TimeWindow) []TimeWindow {
	remaining := MergeWindows(base)
	for _, c := range MergeWindows(cut) {
		var next []TimeWindow
		for _, r := range remaining {
			if !Overlaps(r, c) {
				next = append(next, r)
				continue
			}
			if r.Start.Before(c.Start) {
				next = append(next, TimeWindow{Start: r.Start, End: c.Start})
			}
			if c.End.Before(r.End) {
				next = append(next, TimeWindow{Start: c.End, End: r.End})
			}
		}
		remaining = next
	}
	return remaining
}

// Split partitions w into consecutive chunks of length step. The final chunk
// is clamped to w.End when the window is not a multiple of step.
func Split(w TimeWindow, step time.Duration) []TimeWindow {
	if step <= 0 || w.IsEmpty() {
		return nil
	}
	var out []TimeWindow
	for s := w.Start; s.Before(w.End); s = s.Add(step) {
		e := s.Add(step)
		if e.After(w.End) {
			e = w.End
		}
		out = append(out, TimeWindow{Start: s, End: e})
	}
	return out
}

// LocalWindow is a window cut on wall-clock boundaries, with the clock
// readings it was cut at.
type LocalWindow struct {
	TimeWindow
	StartClock string
	EndClock   string
}

// SplitLocal partitions w into chunks whose boundaries sit every step of wall
// clock time in loc. A chunk inside a skipped hour covers no instant and is
// dropped; a chunk across a repeated hour is longer than step.
func SplitLocal(w TimeWindow, step time.Duration, loc *time.Location) []LocalWindow {
	wall := TimeWindow{Start: wallClock(w.Start.In(loc)), End: wallClock(w.End.In(loc))}
	var out []LocalWindow
	for _, c := range Split(wall, step) {
		chunk := TimeWindow{Start: WallTime(c.Start, loc), End: WallTime(c.End, loc)}
		if chunk.IsEmpty() {
			continue
		}
		out = append(out, LocalWindow{
			TimeWindow: chunk,
			StartClock: c.Start.Format(ClockLayout),
			EndClock:   c.End.Format(ClockLayout),
		})
	}
	return out
}

// WallTime returns the instant at which clocks in loc read the wall-clock
// fields of wall. A reading skipped by a forward transition resolves to the
// transition itself. A repeated reading resolves to its first occurrence.
func WallTime(wall time.Time, loc *time.Location) time.Time {
	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)
	want := wallClock(wall)
	switch got := wallClock(t.In(loc)); {
	case got.Before(want):
		_, end := t.ZoneBounds()
		return end
	case got.After(want):
		start, _ := t.ZoneBounds()
		return start
	}
	return t
}

// wallClock carries t's clock reading as the same reading in UTC.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
