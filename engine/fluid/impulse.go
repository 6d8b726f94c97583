package fluid

import (
	"math"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
)

// PhraseRows is the length of a rhythmic phrase in tracker rows.
const PhraseRows = 16

// ImpulseGate decides when the extra impulse steps run. They fire in the Smoke scene from stage 1
// on, during the first two rows of a phrase, at most once per phrase.
type ImpulseGate struct {
	fired  bool
	phrase show.Position
}

// Extras returns the number of extra steps to run this frame.
//
// Parameters:
//   - scene: the active scene
//   - pos: the playback position
//   - ok: whether pos is valid
//
// Returns:
//   - int: ExtraSteps when the gate opens this frame, 0 otherwise
func (g *ImpulseGate) Extras(scene show.Scene, pos show.Position, ok bool) int {
	smoke, isSmoke := scene.(show.Smoke)
	if !ok || !isSmoke || smoke.Stage < 1 {
		return 0
	}
	if pos.Row%PhraseRows >= 2 {
		return 0
	}
	phrase := show.Position{Pattern: pos.Pattern, Row: pos.Row - pos.Row%PhraseRows}
	if g.fired && g.phrase == phrase {
		return 0
	}
	g.fired = true
	g.phrase = phrase
	return ExtraSteps
}

// Reset forgets the last fired phrase.
func (g *ImpulseGate) Reset() {
	g.fired = false
}

// Modulation returns the impulse strength for the time since the last beat. It decays linearly
// from 1 to 0 over a quarter second.
func Modulation(sinceBeat float64) float32 {
	return float32(math.Max(0, 1-sinceBeat*4))
}
