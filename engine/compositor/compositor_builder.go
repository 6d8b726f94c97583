package compositor

import (
	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/camera"
)

// CompositorBuilderOption is a functional option for configuring a Compositor.
// Use the With* functions to create options that are applied directly to the compositor instance.
type CompositorBuilderOption func(*compositor)

// WithSize sets the offscreen target size. Zero dimensions are ignored.
//
// Parameters:
//   - width, height: the target size in pixels
//
// Returns:
//   - CompositorBuilderOption: a function that sets the target size
func WithSize(width, height uint32) CompositorBuilderOption {
	return func(c *compositor) {
		if width > 0 && height > 0 {
			c.width = width
			c.height = height
		}
	}
}

// WithCamera sets the camera for the CD pass. Its bind group provider receives the camera uniform
// at binding 0 and the foreground params at binding 1.
func WithCamera(cam camera.Camera) CompositorBuilderOption {
	return func(c *compositor) {
		c.camera = cam
	}
}

// WithSampler overrides the sampler used for every sampled target and slide.
func WithSampler(sampler common.SamplerStagingData) CompositorBuilderOption {
	return func(c *compositor) {
		c.sampler = sampler
	}
}
