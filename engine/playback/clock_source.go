package playback

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/rs/zerolog/log"
)

// clockSourceImpl is the implementation of the ClockSource interface.
type clockSourceImpl struct {
	mu *sync.Mutex

	clock TrackerClock
	now   func() time.Time

	started bool
	paused  bool
	startAt time.Time
	pauseAt time.Time
	offset  time.Duration
}

// ClockSource derives the playback position from the wall clock. It drives the show when no
// audio device or sequencer is available.
type ClockSource interface {
	Source
	Pausable

	// Paused reports whether the clock is paused.
	Paused() bool

	// Elapsed returns the playback time excluding paused intervals.
	Elapsed() time.Duration
}

var _ ClockSource = &clockSourceImpl{}

// NewClockSource creates a wall-clock source.
//
// Parameters:
//   - clock: the tracker timing to map time to positions
//   - options: functional options to configure the source
//
// Returns:
//   - ClockSource: the newly created source
func NewClockSource(clock TrackerClock, options ...ClockSourceBuilderOption) ClockSource {
	c := &clockSourceImpl{
		mu:    &sync.Mutex{},
		clock: clock,
		now:   time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *clockSourceImpl) Position() (show.Position, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return show.Position{}, false
	}
	return c.clock.PositionAt(c.elapsed().Seconds()), true
}

func (c *clockSourceImpl) Start(ctx context.Context) error {
	c.mu.Lock()
	c.started = true
	c.paused = false
	c.startAt = c.now()
	c.offset = 0
	c.mu.Unlock()

	log.Info().Str("source", "clock").Float64("bpm", c.clock.BPM).Int("speed", c.clock.Speed).Msg("playback started")
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	return nil
}

func (c *clockSourceImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	log.Info().Str("source", "clock").Msg("playback stopped")
	return nil
}

func (c *clockSourceImpl) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.paused {
		c.offset += now.Sub(c.pauseAt)
	} else {
		c.pauseAt = now
	}
	c.paused = !c.paused
	log.Info().Bool("paused", c.paused).Msg("playback clock toggled")
	return c.paused
}

func (c *clockSourceImpl) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *clockSourceImpl) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed()
}

// elapsed returns the unpaused time since start. Caller must hold the mutex.
func (c *clockSourceImpl) elapsed() time.Duration {
	if !c.started {
		return 0
	}
	end := c.now()
	if c.paused {
		end = c.pauseAt
	}
	return end.Sub(c.startAt) - c.offset
}
