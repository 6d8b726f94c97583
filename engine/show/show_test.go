package show

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func testTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl, err := NewTimeline([]Cue{
		{Position{0, 0}, Black{}, None{}},
		{Position{0, 16}, Slide{Index: 0}, Fade{Duration: 2}},
		{Position{1, 0}, Slide{Index: 1}, SlideTransition{}},
		{Position{1, 8}, CDs{Stage: 1}, Blink{}},
		{Position{3, 0}, Smoke{Stage: 1}, None{}},
	}, 2)
	require.NoError(t, err)
	return tl
}

func TestNewTimelineValidation(t *testing.T) {
	tests := []struct {
		name string
		cues []Cue
		err  error
	}{
		{"empty", nil, ErrEmptyTimeline},
		{"not at origin", []Cue{{Position{0, 4}, Black{}, None{}}}, ErrUnordered},
		{"duplicate position", []Cue{
			{Position{0, 0}, Black{}, None{}},
			{Position{0, 0}, Black{}, None{}},
		}, ErrUnordered},
		{"descending", []Cue{
			{Position{0, 0}, Black{}, None{}},
			{Position{2, 0}, Black{}, None{}},
			{Position{1, 63}, Black{}, None{}},
		}, ErrUnordered},
		{"slide overrun", []Cue{
			{Position{0, 0}, Slide{Index: 3}, None{}},
		}, ErrSlideOutOfRange},
		{"cd stage overrun", []Cue{
			{Position{0, 0}, CDs{Stage: 3}, None{}},
		}, ErrSlideOutOfRange},
		{"zero fade", []Cue{
			{Position{0, 0}, Black{}, Fade{}},
		}, ErrBadTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeline(tt.cues, 3)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDefaultCuesValidate(t *testing.T) {
	tl, err := NewTimeline(DefaultCues(), MinSlides)
	require.NoError(t, err)
	assert.Less(t, tl.MaxSlide(), MinSlides)

	_, err = NewTimeline(DefaultCues(), MinSlides-1)
	assert.ErrorIs(t, err, ErrSlideOutOfRange)
}

func TestTimelineIndexAt(t *testing.T) {
	tl := testTimeline(t)
	assert.Equal(t, 0, tl.IndexAt(Position{0, 15}))
	assert.Equal(t, 1, tl.IndexAt(Position{0, 16}))
	assert.Equal(t, 2, tl.IndexAt(Position{1, 7}))
	assert.Equal(t, 4, tl.IndexAt(Position{40, 0}))
	assert.Equal(t, Never, tl.NextPosition(tl.Len()-1))
}

func TestUpdateMonotonicAdvance(t *testing.T) {
	tl := testTimeline(t)
	s := NewShow(tl, WithStartTime(t0))

	prev := 0
	sec := 0.0
	for p := 0; p < 5; p++ {
		for r := 0; r < 64; r += 3 {
			sec += 0.05
			s.Update(at(sec), Position{p, r}, true)
			st := s.State()
			assert.GreaterOrEqual(t, st.CurrentCue, prev)
			assert.Equal(t, tl.IndexAt(Position{p, r}), st.CurrentCue)
			assert.Equal(t, tl.Cue(st.CurrentCue).Scene, st.ActiveScene)
			assert.Equal(t, tl.Cue(st.CurrentCue).Transition, st.ActiveTransition)
			assert.Equal(t, tl.NextPosition(st.CurrentCue), st.NextCuePosition)
			prev = st.CurrentCue
		}
	}
	assert.Equal(t, Never, s.State().NextCuePosition)
}

func TestUpdateSkipsSeveralCues(t *testing.T) {
	tl := testTimeline(t)
	var crossed []Cue
	s := NewShow(tl, WithStartTime(t0), WithAdvanceHook(func(from, to Cue) {
		crossed = append(crossed, to)
	}))

	ev := s.Update(at(1), Position{2, 0}, true)
	assert.Equal(t, 3, ev.Advanced)
	assert.Len(t, crossed, 3)
	assert.Equal(t, CDs{Stage: 1}, s.Scene())
	assert.Equal(t, at(1), s.State().TransitionedAt)
	assert.Equal(t, Position{3, 0}, s.State().NextCuePosition)
}

func TestUpdateUnknownPosition(t *testing.T) {
	s := NewShow(testTimeline(t), WithStartTime(t0))
	ev := s.Update(at(5), Position{9, 0}, false)
	assert.Zero(t, ev.Advanced)
	assert.False(t, ev.Beat)
	assert.Equal(t, 0, s.State().CurrentCue)
}

func TestUpdateNeverAdvancesPastEnd(t *testing.T) {
	tl, err := NewTimeline([]Cue{{Position{0, 0}, Black{}, None{}}}, 0)
	require.NoError(t, err)
	s := NewShow(tl, WithStartTime(t0))
	ev := s.Update(at(1), Position{999, 63}, true)
	assert.Zero(t, ev.Advanced)
	assert.Equal(t, Never, s.State().NextCuePosition)
}

func TestBeatEdges(t *testing.T) {
	s := NewShow(testTimeline(t), WithStartTime(t0), WithBeatRule(func(int) int { return 4 }))

	rows := []int{0, 0, 0, 4, 4, 8, 8, 8, 12}
	beats := 0
	for i, r := range rows {
		if s.Update(at(float64(i)*0.01), Position{0, r}, true).Beat {
			beats++
		}
	}
	assert.Equal(t, 4, beats)
}

func TestDefaultBeatRule(t *testing.T) {
	assert.Equal(t, 8, DefaultBeatRule(0))
	assert.Equal(t, 8, DefaultBeatRule(7))
	assert.Equal(t, 4, DefaultBeatRule(8))
}

func TestSinceBeatAndPattern(t *testing.T) {
	s := NewShow(testTimeline(t), WithStartTime(t0), WithPatternPulseLimit(1))

	s.Update(at(1), Position{0, 0}, true)
	assert.InDelta(t, 0.5, s.SinceBeat(at(1.5)), 1e-9)

	ev := s.Update(at(2), Position{1, 1}, true)
	assert.True(t, ev.PatternChanged)
	assert.InDelta(t, 0.25, s.SincePattern(at(2.25)), 1e-9)

	ev = s.Update(at(3), Position{2, 1}, true)
	assert.False(t, ev.PatternChanged)
	assert.InDelta(t, 1.0, s.SincePattern(at(3)), 1e-9)
}

func TestProgressUsesTransitionedAt(t *testing.T) {
	s := NewShow(testTimeline(t), WithStartTime(t0))
	s.Update(at(10), Position{0, 16}, true)
	assert.InDelta(t, 0.5, s.Progress(at(11)), 1e-9)
	assert.Zero(t, s.Progress(at(9)))
}

func TestTransitionCodes(t *testing.T) {
	assert.Equal(t, int32(0), None{}.Code())
	assert.Equal(t, int32(1), Fade{Duration: 1}.Code())
	assert.Equal(t, int32(2), SlideTransition{}.Code())
	assert.Equal(t, int32(3), Blink{}.Code())
	assert.Equal(t, int32(3), Blink2{}.Code())
}

func TestBlinkProgress(t *testing.T) {
	b := Blink{}
	assert.InDelta(t, 0.0, b.Progress(0), 1e-9)
	assert.InDelta(t, 0.263, b.Progress(2.5), 1e-9)

	// Both segments meet at 0.2e = 9/9.474.
	cross := 9 / 9.474 / 0.2
	lo := b.Progress(cross - 1e-6)
	hi := b.Progress(cross + 1e-6)
	assert.InDelta(t, lo, hi, 1e-4)
	assert.Greater(t, b.Progress(cross+1), 0.526*0.2*(cross+1))

	assert.InDelta(t, 3.0, Blink2{}.Progress(1.5), 1e-9)
	assert.InDelta(t, 0.25, Fade{Duration: 4}.Progress(1), 1e-9)
}

func TestSlideIndices(t *testing.T) {
	assert.Equal(t, []int{0, 0}, SlideIndices(Slide{Index: 0}))
	assert.Equal(t, []int{4, 3}, SlideIndices(CDs{Stage: 4}))
	assert.Nil(t, SlideIndices(Smoke{Stage: 1}))
	assert.Panics(t, func() { SlideIndices(nil) })
}

func TestPositionOrdering(t *testing.T) {
	assert.True(t, Position{1, 63}.Less(Position{2, 0}))
	assert.True(t, Position{2, 4}.AtOrAfter(Position{2, 4}))
	assert.False(t, Position{2, 3}.AtOrAfter(Position{2, 4}))
	assert.True(t, Position{1000, 0}.Less(Never))
	assert.Equal(t, "03:07", Position{3, 7}.String())
	assert.Equal(t, "never", Never.String())
}
