package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithVSync selects PresentModeVSync when on and PresentModeUncapped otherwise.
func WithVSync(on bool) RendererBuilderOption {
	return func(r *renderer) {
		mode := PresentModeUncapped
		if on {
			mode = PresentModeVSync
		}
		r.pendingPresentMode = &mode
	}
}

// WithSoftwareAdapter requests the CPU fallback adapter (lavapipe, SwiftShader) instead of a
// hardware GPU. The smoke solver then runs at a fraction of the frame rate, which is useful for
// comparing it against the CPU reference solver.
//
// Parameters:
//   - software: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option
func WithSoftwareAdapter(software bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = software
	}
}
