package show

import "time"

// ShowBuilderOption is a functional option applied to a Show during construction via NewShow.
type ShowBuilderOption func(*showImpl)

// WithStartTime sets the show start, which also seeds the transition, beat and pattern timers.
//
// Parameters:
//   - t: the start timestamp
//
// Returns:
//   - ShowBuilderOption: a function that applies the start time option to a show
func WithStartTime(t time.Time) ShowBuilderOption {
	return func(s *showImpl) {
		s.startTime = t
	}
}

// WithAdvanceHook registers a callback run on every cue advance, before the new scene
// becomes active. The frame driver uses it to snapshot the outgoing frame.
//
// Parameters:
//   - hook: called with the outgoing and incoming cues
//
// Returns:
//   - ShowBuilderOption: a function that applies the hook option to a show
func WithAdvanceHook(hook func(from, to Cue)) ShowBuilderOption {
	return func(s *showImpl) {
		s.onAdvance = append(s.onAdvance, hook)
	}
}

// WithBeatRule overrides the per-pattern beat granularity.
//
// Parameters:
//   - rule: maps a pattern to a row granularity; non-positive disables beats for that pattern
//
// Returns:
//   - ShowBuilderOption: a function that applies the beat rule option to a show
func WithBeatRule(rule BeatRule) ShowBuilderOption {
	return func(s *showImpl) {
		s.beatRule = rule
	}
}

// WithPatternPulseLimit sets the highest pattern that still resets the pattern pulse timer.
//
// Parameters:
//   - limit: the last pattern index that pulses
//
// Returns:
//   - ShowBuilderOption: a function that applies the limit option to a show
func WithPatternPulseLimit(limit int) ShowBuilderOption {
	return func(s *showImpl) {
		s.patternPulseLimit = limit
	}
}
