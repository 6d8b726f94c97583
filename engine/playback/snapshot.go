// Package playback provides the sources that report the current tracker position of the
// soundtrack. Every source publishes into a Snapshot so the frame driver can poll the
// position without blocking the audio or MIDI thread.
package playback

import (
	"context"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
)

const (
	validBit   = uint64(1) << 63
	rowBits    = 32
	rowMask    = uint64(1)<<rowBits - 1
	patternMax = int(validBit>>rowBits - 1)
)

// Source reports the playback position of the soundtrack.
type Source interface {
	// Position returns the latest published position. ok is false until the source has
	// observed a position.
	//
	// Returns:
	//   - show.Position: the current pattern and row
	//   - bool: whether the position is valid
	Position() (show.Position, bool)

	// Start begins playback or listening. The source stops when ctx is cancelled.
	//
	// Parameters:
	//   - ctx: the lifetime of the source
	//
	// Returns:
	//   - error: an error if the device could not be opened
	Start(ctx context.Context) error

	// Close stops the source and releases its device.
	Close() error
}

// Pausable is implemented by sources whose timebase can be paused from the keyboard.
type Pausable interface {
	// TogglePause flips the paused state and returns the new state.
	TogglePause() bool
}

// Snapshot is a lock-free holder for a position. The pattern and row are packed into one
// word together with a validity bit so readers never see a torn position.
type Snapshot struct {
	word atomic.Uint64
}

// Store publishes pos. Negative components are clamped to zero.
func (s *Snapshot) Store(pos show.Position) {
	s.word.Store(pack(pos))
}

// Load returns the last stored position, or false if nothing was stored since the last
// Invalidate.
func (s *Snapshot) Load() (show.Position, bool) {
	return unpack(s.word.Load())
}

// Invalidate clears the stored position.
func (s *Snapshot) Invalidate() {
	s.word.Store(0)
}

func pack(pos show.Position) uint64 {
	p, r := max(pos.Pattern, 0), max(pos.Row, 0)
	p = min(p, patternMax)
	r = min(r, int(rowMask))
	return validBit | uint64(p)<<rowBits | uint64(r)
}

func unpack(w uint64) (show.Position, bool) {
	if w&validBit == 0 {
		return show.Position{}, false
	}
	w &^= validBit
	return show.Position{Pattern: int(w >> rowBits), Row: int(w & rowMask)}, true
}
