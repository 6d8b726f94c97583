package show

import (
	"fmt"
	"math"
)

// Position is a tracker timebase coordinate. Rows index within a pattern; patterns are the
// song order positions.
type Position struct {
	Pattern int
	Row     int
}

// Never is the sentinel position past every reachable playback position. It is the
// next-cue position once the last cue is active.
var Never = Position{Pattern: math.MaxInt, Row: math.MaxInt}

// Less reports whether p comes strictly before q.
func (p Position) Less(q Position) bool {
	return p.Pattern < q.Pattern || (p.Pattern == q.Pattern && p.Row < q.Row)
}

// AtOrAfter reports whether p has reached q: p.Pattern > q.Pattern, or the same pattern
// with p.Row >= q.Row.
func (p Position) AtOrAfter(q Position) bool {
	return !p.Less(q)
}

func (p Position) String() string {
	if p == Never {
		return "never"
	}
	return fmt.Sprintf("%02d:%02d", p.Pattern, p.Row)
}
