package window

// WindowBuilderOption is a functional option for configuring a window before it opens.
type WindowBuilderOption func(w *glfwWindow)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *glfwWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size in screen coordinates. Non-positive dimensions are
// ignored.
//
// Parameters:
//   - width, height: the requested size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *glfwWindow) {
		if width > 0 && height > 0 {
			w.width, w.height = width, height
		}
	}
}

// WithFullscreen opens the window fullscreen on the primary monitor at its current video mode.
func WithFullscreen(fullscreen bool) WindowBuilderOption {
	return func(w *glfwWindow) {
		w.fullscreen = fullscreen
	}
}
