// Package window opens the presentation window and forwards keyboard and resize events to the
// frame driver.
package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rs/zerolog/log"
)

// Window provides platform windowing and input event handling.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press and repeat events. Escape is handled
	// by the window itself and never reaches the callback.
	//
	// Parameters:
	//   - callback: function receiving the key code (see common.Key*)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns the surface descriptor the renderer creates its surface from.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until Escape is pressed, the window is closed or RequestClose is
	// called.
	IsRunning() bool

	// RequestClose asks the message loop to stop. Safe to call from any goroutine.
	RequestClose()

	// Close destroys the window and terminates GLFW.
	//
	// Returns:
	//   - error: error if the window was never opened
	Close() error

	// ProcessMessages runs the message loop on the calling (main) thread until the window stops
	// running, calling the update callback after each poll.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// glfwWindow is the GLFW implementation of Window. The GLFW handle is only touched on the
// thread that opened it.
type glfwWindow struct {
	title      string
	width      int
	height     int
	fullscreen bool

	handle *glfw.Window

	// closeRequested is set from other goroutines and polled by the message loop.
	closeRequested atomic.Bool

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

var _ Window = &glfwWindow{}

// NewWindow opens a window without an OpenGL context; the renderer draws through WebGPU.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: if GLFW or the window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &glfwWindow{
		title:  "oxy demo",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *glfwWindow) open() error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("window: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	var monitor *glfw.Monitor
	width, height := w.width, w.height
	if w.fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		if mode := monitor.GetVideoMode(); mode != nil {
			width, height = mode.Width, mode.Height
		}
	}

	handle, err := glfw.CreateWindow(width, height, w.title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("window: create %dx%d: %w", width, height, err)
	}
	w.handle = handle

	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch classifyKey(key, action) {
		case keyQuit:
			w.RequestClose()
		case keyForward:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		}
	})

	// framebuffer size, not window size: the two differ on high-DPI displays
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	w.width, w.height = handle.GetFramebufferSize()

	log.Info().Str("title", w.title).Int("width", w.width).Int("height", w.height).Bool("fullscreen", w.fullscreen).Msg("window open")
	return nil
}

type keyDisposition int

const (
	keyIgnore keyDisposition = iota
	keyForward
	keyQuit
)

// classifyKey decides what a key event does: Escape press quits, other presses and repeats are
// forwarded, releases are dropped.
func classifyKey(key glfw.Key, action glfw.Action) keyDisposition {
	switch {
	case action == glfw.Release:
		return keyIgnore
	case key == glfw.KeyEscape:
		if action == glfw.Press {
			return keyQuit
		}
		return keyIgnore
	default:
		return keyForward
	}
}

func (w *glfwWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *glfwWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *glfwWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.handle == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.handle)
}

func (w *glfwWindow) IsRunning() bool {
	return w.handle != nil && !w.closeRequested.Load() && !w.handle.ShouldClose()
}

func (w *glfwWindow) RequestClose() {
	w.closeRequested.Store(true)
}

func (w *glfwWindow) Close() error {
	if w.handle == nil {
		return fmt.Errorf("window: not open")
	}
	w.handle.Destroy()
	w.handle = nil
	glfw.Terminate()
	return nil
}

func (w *glfwWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			return
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *glfwWindow) Width() int {
	return w.width
}

func (w *glfwWindow) Height() int {
	return w.height
}
