package show

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyTimeline is returned when a timeline has no cues.
	ErrEmptyTimeline = errors.New("show: timeline has no cues")
	// ErrUnordered is returned when cue positions are not strictly ascending or the first
	// cue does not start at 00:00.
	ErrUnordered = errors.New("show: cue positions must start at 00:00 and strictly ascend")
	// ErrSlideOutOfRange is returned when a cue references a slide that is not loaded.
	ErrSlideOutOfRange = errors.New("show: cue references a slide that is not loaded")
	// ErrBadTransition is returned for a transition that cannot produce a progress value.
	ErrBadTransition = errors.New("show: invalid transition parameters")
)

// Cue is an immutable timeline entry: when playback reaches Position, Scene becomes active
// and blends in with Transition.
type Cue struct {
	Position   Position
	Scene      Scene
	Transition Transition
}

func (c Cue) String() string {
	return fmt.Sprintf("%s %s/%s", c.Position, c.Scene, c.Transition)
}

// Timeline is the validated, immutable cue table.
type Timeline struct {
	cues []Cue
}

// NewTimeline validates cues against the loaded slide count and freezes them.
//
// Parameters:
//   - cues: cue entries in ascending position order, the first at 00:00
//   - slideCount: number of loaded slides; every slide index a cue samples must be below it
//
// Returns:
//   - *Timeline: the frozen timeline
//   - error: ErrEmptyTimeline, ErrUnordered, ErrSlideOutOfRange or ErrBadTransition
func NewTimeline(cues []Cue, slideCount int) (*Timeline, error) {
	if len(cues) == 0 {
		return nil, ErrEmptyTimeline
	}
	if cues[0].Position != (Position{}) {
		return nil, fmt.Errorf("%w: first cue at %s", ErrUnordered, cues[0].Position)
	}
	for i, c := range cues {
		if c.Scene == nil || c.Transition == nil {
			return nil, fmt.Errorf("show: cue %d has no scene or transition", i)
		}
		if i > 0 && !cues[i-1].Position.Less(c.Position) {
			return nil, fmt.Errorf("%w: cue %d at %s after %s", ErrUnordered, i, c.Position, cues[i-1].Position)
		}
		for _, idx := range SlideIndices(c.Scene) {
			if idx < 0 || idx >= slideCount {
				return nil, fmt.Errorf("%w: cue %d (%s) needs slide %d, have %d", ErrSlideOutOfRange, i, c.Scene, idx, slideCount)
			}
		}
		if f, ok := c.Transition.(Fade); ok && !(f.Duration > 0) {
			return nil, fmt.Errorf("%w: cue %d fade duration %g", ErrBadTransition, i, f.Duration)
		}
	}

	frozen := make([]Cue, len(cues))
	copy(frozen, cues)
	return &Timeline{cues: frozen}, nil
}

// Len returns the number of cues.
func (t *Timeline) Len() int {
	return len(t.cues)
}

// Cue returns the cue at index i.
func (t *Timeline) Cue(i int) Cue {
	return t.cues[i]
}

// Cues returns a copy of the cue table.
func (t *Timeline) Cues() []Cue {
	out := make([]Cue, len(t.cues))
	copy(out, t.cues)
	return out
}

// NextPosition returns the position of the cue after index i, or Never past the last cue.
func (t *Timeline) NextPosition(i int) Position {
	if i+1 < len(t.cues) {
		return t.cues[i+1].Position
	}
	return Never
}

// IndexAt returns the index of the greatest cue whose position is at or before pos.
// The first cue sits at 00:00 so every non-negative position has one.
func (t *Timeline) IndexAt(pos Position) int {
	i := sort.Search(len(t.cues), func(i int) bool {
		return pos.Less(t.cues[i].Position)
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// MaxSlide returns the highest slide index any cue samples, or -1 if none does.
func (t *Timeline) MaxSlide() int {
	highest := -1
	for _, c := range t.cues {
		for _, idx := range SlideIndices(c.Scene) {
			if idx > highest {
				highest = idx
			}
		}
	}
	return highest
}
