package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/playback"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/window"
	"github.com/Carmen-Shannon/oxy-demo/internal/config"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window the engine presents to and takes input from.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer every GPU resource is created on.
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithConfig sets the configuration for the grid, solver, playback timing and slides.
//
// Parameters:
//   - c: a validated configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(c *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if c != nil {
			e.config = c
		}
	}
}

// WithPlayback sets the source the show follows. Defaults to a wall-clock source.
func WithPlayback(source playback.Source) EngineBuilderOption {
	return func(e *engine) {
		e.source = source
	}
}

// WithSlides sets preloaded slides, bypassing the slides section of the configuration.
func WithSlides(slides []common.TextureStagingData) EngineBuilderOption {
	return func(e *engine) {
		e.slides = slides
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithClock replaces the wall clock used for frame timestamps.
func WithClock(now func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}
