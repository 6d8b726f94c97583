package playback

import (
	"time"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
)

// TrackerClock maps elapsed playback time to tracker positions using XM timing: one row lasts
// Speed ticks and one tick lasts 2.5/BPM seconds.
type TrackerClock struct {
	BPM            float64
	Speed          int
	RowsPerPattern int
}

// DefaultTrackerClock is 125 BPM, speed 6 and 64 rows per pattern, which gives 120 ms rows.
var DefaultTrackerClock = TrackerClock{BPM: 125, Speed: 6, RowsPerPattern: 64}

// RowSeconds returns the duration of one row in seconds.
func (c TrackerClock) RowSeconds() float64 {
	return float64(c.Speed) * 2.5 / c.BPM
}

// RowDuration returns the duration of one row.
func (c TrackerClock) RowDuration() time.Duration {
	return time.Duration(c.RowSeconds() * float64(time.Second))
}

// Rows returns the number of whole rows played after elapsed seconds.
func (c TrackerClock) Rows(elapsed float64) int64 {
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / c.RowSeconds())
}

// PositionOf converts an absolute row count into a pattern and row.
//
// Parameters:
//   - rows: the number of rows since the start of the song
//
// Returns:
//   - show.Position: the tracker position
func (c TrackerClock) PositionOf(rows int64) show.Position {
	if rows < 0 {
		rows = 0
	}
	rpp := int64(c.RowsPerPattern)
	return show.Position{Pattern: int(rows / rpp), Row: int(rows % rpp)}
}

// PositionAt returns the tracker position after elapsed seconds of playback.
func (c TrackerClock) PositionAt(elapsed float64) show.Position {
	return c.PositionOf(c.Rows(elapsed))
}

// Valid reports whether the clock can produce positions.
func (c TrackerClock) Valid() bool {
	return c.BPM > 0 && c.Speed > 0 && c.RowsPerPattern > 0
}
