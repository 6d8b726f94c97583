package show

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// noRow marks that no playback row has been observed yet, so the first row seen (row 0
// included) counts as a change.
const noRow = -1

// BeatRule returns the beat granularity in rows for a pattern.
type BeatRule func(pattern int) int

// DefaultBeatRule beats every 8 rows in the intro patterns and every 4 rows afterwards.
func DefaultBeatRule(pattern int) int {
	if pattern < 8 {
		return 8
	}
	return 4
}

// ShowState is the mutable show state, owned by the frame driver and updated once per frame.
// ActiveScene and ActiveTransition always equal the scene and transition of cue CurrentCue;
// NextCuePosition always equals the position of cue CurrentCue+1 or Never.
type ShowState struct {
	CurrentCue       int
	NextCuePosition  Position
	ActiveScene      Scene
	ActiveTransition Transition
	TransitionedAt   time.Time
	LastBeatAt       time.Time
	LastRowSeen      int
	LastPattern      int
	PatternAt        time.Time
}

// FrameEvents reports what one Update call changed.
type FrameEvents struct {
	// Advanced is the number of cues crossed this update.
	Advanced int
	// Beat is true when a beat edge fired.
	Beat bool
	// PatternChanged is true when the pattern pulse was reset.
	PatternChanged bool
}

// showImpl is the implementation of the Show interface.
type showImpl struct {
	mu *sync.Mutex

	timeline *Timeline
	state    ShowState

	startTime         time.Time
	beatRule          BeatRule
	patternPulseLimit int
	onAdvance         []func(from, to Cue)
}

// Show is the cue timeline state machine. It advances through the timeline as the playback
// position moves forward and exposes transition progress and rhythmic timers.
type Show interface {
	// Update feeds one playback sample into the state machine. When ok is false the position
	// is treated as unknown: no cue advances and no beat fires.
	//
	// Parameters:
	//   - now: the frame timestamp
	//   - pos: the playback position polled for this frame
	//   - ok: whether pos is valid
	//
	// Returns:
	//   - FrameEvents: the cue advances, beat and pattern edges produced by this sample
	Update(now time.Time, pos Position, ok bool) FrameEvents

	// State returns a copy of the current state.
	State() ShowState

	// Scene returns the active scene.
	Scene() Scene

	// Transition returns the active transition.
	Transition() Transition

	// Elapsed returns seconds since the active cue became active.
	Elapsed(now time.Time) float64

	// Progress returns the active transition's progress value at now.
	Progress(now time.Time) float64

	// SinceBeat returns seconds since the last beat edge.
	SinceBeat(now time.Time) float64

	// SincePattern returns seconds since the last pattern pulse.
	SincePattern(now time.Time) float64

	// SinceStart returns seconds since the show started.
	SinceStart(now time.Time) float64

	// Timeline returns the cue table driving this show.
	Timeline() *Timeline
}

var _ Show = &showImpl{}

// NewShow creates a Show positioned on the first cue of timeline.
//
// Parameters:
//   - timeline: the validated cue table
//   - options: builder options
//
// Returns:
//   - Show: the state machine, at cue 0
func NewShow(timeline *Timeline, options ...ShowBuilderOption) Show {
	s := &showImpl{
		mu:                &sync.Mutex{},
		timeline:          timeline,
		startTime:         time.Now(),
		beatRule:          DefaultBeatRule,
		patternPulseLimit: 9,
	}
	for _, opt := range options {
		opt(s)
	}

	first := timeline.Cue(0)
	s.state = ShowState{
		CurrentCue:       0,
		NextCuePosition:  timeline.NextPosition(0),
		ActiveScene:      first.Scene,
		ActiveTransition: first.Transition,
		TransitionedAt:   s.startTime,
		LastBeatAt:       s.startTime,
		LastRowSeen:      noRow,
		LastPattern:      0,
		PatternAt:        s.startTime,
	}
	return s
}

func (s *showImpl) Update(now time.Time, pos Position, ok bool) FrameEvents {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ev FrameEvents
	if !ok {
		return ev
	}

	for s.state.NextCuePosition != Never && pos.AtOrAfter(s.state.NextCuePosition) {
		from := s.timeline.Cue(s.state.CurrentCue)
		s.state.CurrentCue++
		to := s.timeline.Cue(s.state.CurrentCue)

		for _, hook := range s.onAdvance {
			hook(from, to)
		}
		s.state.TransitionedAt = now
		s.state.ActiveScene = to.Scene
		s.state.ActiveTransition = to.Transition
		s.state.NextCuePosition = s.timeline.NextPosition(s.state.CurrentCue)
		ev.Advanced++

		log.Info().
			Int("cue", s.state.CurrentCue).
			Str("at", pos.String()).
			Str("scene", to.Scene.String()).
			Str("transition", to.Transition.String()).
			Msg("cue advanced")
	}

	granularity := s.beatRule(pos.Pattern)
	if granularity > 0 && pos.Row%granularity == 0 && pos.Row != s.state.LastRowSeen {
		s.state.LastBeatAt = now
		ev.Beat = true
		log.Trace().Str("at", pos.String()).Msg("beat")
	}
	s.state.LastRowSeen = pos.Row

	if pos.Pattern != s.state.LastPattern && pos.Pattern <= s.patternPulseLimit {
		s.state.PatternAt = now
		ev.PatternChanged = true
	}
	s.state.LastPattern = pos.Pattern

	return ev
}

func (s *showImpl) State() ShowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *showImpl) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveScene
}

func (s *showImpl) Transition() Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveTransition
}

func (s *showImpl) Elapsed(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seconds(now, s.state.TransitionedAt)
}

func (s *showImpl) Progress(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveTransition.Progress(seconds(now, s.state.TransitionedAt))
}

func (s *showImpl) SinceBeat(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seconds(now, s.state.LastBeatAt)
}

func (s *showImpl) SincePattern(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seconds(now, s.state.PatternAt)
}

func (s *showImpl) SinceStart(now time.Time) float64 {
	return seconds(now, s.startTime)
}

func (s *showImpl) Timeline() *Timeline {
	return s.timeline
}

// seconds returns now-since in seconds, floored at zero so a clock that steps backwards
// never yields negative progress.
func seconds(now, since time.Time) float64 {
	d := now.Sub(since).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
