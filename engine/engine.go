package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/assets"
	"github.com/Carmen-Shannon/oxy-demo/engine/compositor"
	"github.com/Carmen-Shannon/oxy-demo/engine/fluid"
	"github.com/Carmen-Shannon/oxy-demo/engine/playback"
	"github.com/Carmen-Shannon/oxy-demo/engine/profiler"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/Carmen-Shannon/oxy-demo/engine/window"
	"github.com/Carmen-Shannon/oxy-demo/internal/config"
	"github.com/rs/zerolog/log"
)

// engine implements the Engine interface.
// Coordinates the render goroutine and the window message loop.
type engine struct {
	mu *sync.Mutex
	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	// resizeChannel carries grid resize requests to the top of the next frame
	resizeChannel chan fluid.Grid
	requestedGrid fluid.Grid

	window   window.Window
	renderer renderer.Renderer
	config   *config.Config
	source   playback.Source
	slides   []common.TextureStagingData
	now      func() time.Time

	compositor compositor.Compositor
	simulation fluid.Simulation
	state      *frameState

	// reference is the CPU solver stepped alongside the GPU in reference mode
	reference     fluid.Solver
	referenceBusy atomic.Bool

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	cancel           context.CancelFunc
}

// Engine drives the demo: it polls playback, advances the show, steps the smoke simulation and
// renders through the compositor, one frame at a time on a dedicated goroutine.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Compositor returns the render pass orchestrator.
	Compositor() compositor.Compositor

	// Simulation returns the GPU smoke simulation.
	Simulation() fluid.Simulation

	// RequestGridResize queues a smoke grid resize. It is applied at the top of the next frame;
	// a newer request replaces a pending one.
	//
	// Parameters:
	//   - grid: the new grid
	RequestGridResize(grid fluid.Grid)

	// Run starts playback and the render goroutine, then pumps window messages on the calling
	// thread until the window closes or Quit is called.
	//
	// Returns:
	//   - error: an error if the playback source could not start
	Run() error

	// Quit signals the render goroutine to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates the engine and every GPU resource it needs: slides, compositor, smoke
// simulation and, in reference mode, the CPU solver.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if slides, the timeline or a GPU resource could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:            &sync.Mutex{},
		quitChannel:   make(chan struct{}),
		resizeChannel: make(chan fluid.Grid, 1),
		config:        config.Default(),
		now:           time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.renderer == nil {
		return nil, fmt.Errorf("engine: a renderer is required")
	}
	e.profiler = profiler.NewProfiler()
	if e.source == nil {
		e.source = playback.NewClockSource(trackerClock(e.config))
	}

	if e.slides == nil {
		slides, err := loadSlides(e.config.Slides)
		if err != nil {
			return nil, err
		}
		e.slides = slides
	}
	timeline, err := show.NewTimeline(show.DefaultCues(), len(e.slides))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	comp, err := compositor.NewCompositor(e.renderer, e.slides)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.compositor = comp

	grid := fluid.Grid{X: e.config.Grid.X, Y: e.config.Grid.Y, Z: e.config.Grid.Z}
	sim, err := fluid.NewSimulation(e.renderer, fluid.WithGrid(grid), fluid.WithRenderLayout(comp.SmokeRenderLayout()))
	if err != nil {
		comp.Release()
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.simulation = sim
	e.requestedGrid = grid
	if e.config.Solver.Reference {
		e.reference = newReferenceSolver(grid, e.config.Solver)
	}

	if e.window != nil {
		comp.Camera().SetSize(e.window.Width(), e.window.Height())
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
			e.compositor.Camera().SetSize(width, height)
		})
		e.window.SetKeyDownCallback(e.handleKey)
	}

	e.state = newFrameState(timeline, e.source, comp.Camera(), e.now())
	log.Info().
		Int("slides", len(e.slides)).
		Int("cues", timeline.Len()).
		Str("grid", grid.String()).
		Bool("reference", e.reference != nil).
		Msg("engine ready")
	return e, nil
}

func trackerClock(c *config.Config) playback.TrackerClock {
	return playback.TrackerClock{
		BPM:            c.Playback.BPM,
		Speed:          c.Playback.Speed,
		RowsPerPattern: c.Playback.RowsPerPattern,
	}
}

// loadSlides reads the slide directory, or generates slides when none is configured.
func loadSlides(c config.Slides) ([]common.TextureStagingData, error) {
	count := max(c.CountMin, show.MinSlides)
	if c.Dir == "" {
		return assets.GenerateSlides(count), nil
	}
	slides, err := assets.LoadSlides(c.Dir, count)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return slides, nil
}

func newReferenceSolver(grid fluid.Grid, c config.Solver) fluid.Solver {
	opts := []fluid.SolverBuilderOption{
		fluid.WithScale(c.Scale),
		fluid.WithIterations(c.Iterations),
		fluid.WithDiffusion(c.Diffusion),
		fluid.WithViscosity(c.Viscosity),
	}
	if c.Workers > 0 {
		opts = append(opts, fluid.WithWorkers(c.Workers))
	}
	return fluid.NewSolver(grid, opts...)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Compositor() compositor.Compositor {
	return e.compositor
}

func (e *engine) Simulation() fluid.Simulation {
	return e.simulation
}

func (e *engine) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	if err := e.source.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("engine: playback: %w", err)
	}

	e.wg.Add(1)
	go e.handleRender()

	if e.window != nil {
		go func() {
			<-e.quitChannel
			e.window.RequestClose()
		}()
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}

	e.wg.Wait()
	cancel()
	e.source.Close()
	e.simulation.Release()
	e.compositor.Release()
	e.mu.Lock()
	if e.reference != nil {
		e.reference.Release()
	}
	e.mu.Unlock()
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) RequestGridResize(grid fluid.Grid) {
	e.mu.Lock()
	e.requestedGrid = grid
	e.mu.Unlock()

	// Non-blocking send - if a request is pending, replace it
	select {
	case e.resizeChannel <- grid:
	default:
		select {
		case <-e.resizeChannel:
		default:
		}
		e.resizeChannel <- grid
	}
}

// handleKey runs on the window thread.
func (e *engine) handleKey(code uint32) {
	switch actionForKey(code) {
	case actionGrowGrid, actionShrinkGrid:
		steps := 1
		if actionForKey(code) == actionShrinkGrid {
			steps = -1
		}
		e.mu.Lock()
		grid := steppedGrid(e.requestedGrid, steps)
		e.mu.Unlock()
		e.RequestGridResize(grid)
	case actionTogglePause:
		if p, ok := e.source.(playback.Pausable); ok {
			p.TogglePause()
		}
	case actionReferenceStats:
		e.logReferenceStats()
	}
}

// handleRender runs the (optionally frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("render goroutine recovered from panic")
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := e.now()
		if err := e.renderFrame(start); err != nil {
			log.Error().Err(err).Msg("frame failed")
		}

		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - e.now().Sub(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame applies a pending grid resize, advances the frame state and renders.
func (e *engine) renderFrame(now time.Time) error {
	if err := e.applyPendingResize(); err != nil {
		return err
	}

	u := e.state.next(now)
	frame := u.Frame
	if u.Smoke() {
		frame.Smoke = e.simulation.RenderBindGroup()
		frame.Compute = func() error {
			return e.simulation.Dispatch(float32(u.DT), float32(u.T), u.Modulation, u.Extras)
		}
		e.stepReference(u.DT)
	}
	return e.compositor.Render(frame)
}

// applyPendingResize rebuilds the simulation for a queued grid before any command is recorded.
func (e *engine) applyPendingResize() error {
	var grid fluid.Grid
	select {
	case grid = <-e.resizeChannel:
	default:
		return nil
	}

	from := e.simulation.Grid()
	rebuilt, err := e.simulation.Resize(grid)
	if err != nil {
		return fmt.Errorf("engine: grid resize: %w", err)
	}
	e.mu.Lock()
	if !rebuilt {
		e.requestedGrid = from
		e.mu.Unlock()
		return nil
	}
	old := e.reference
	if old != nil {
		e.reference = newReferenceSolver(grid, e.config.Solver)
	}
	e.mu.Unlock()

	// blocks until an in-flight reference step on the old solver returns
	if old != nil {
		old.Release()
	}
	return nil
}

// stepReference advances the CPU solver on its own goroutine. Frames that arrive while a step
// is still running are dropped.
func (e *engine) stepReference(dt float64) {
	e.mu.Lock()
	s := e.reference
	e.mu.Unlock()
	if s == nil || !e.referenceBusy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer e.referenceBusy.Store(false)
		s.InjectBottomCenter(dt)
		s.Step(dt)
	}()
}

func (e *engine) logReferenceStats() {
	e.mu.Lock()
	s := e.reference
	e.mu.Unlock()
	if s == nil {
		log.Info().Msg("reference solver disabled")
		return
	}
	st := s.Stats()
	log.Info().
		Str("grid", s.Grid().String()).
		Float64("total_density", st.TotalDensity).
		Float64("max_density", st.MaxDensity).
		Float64("max_speed", st.MaxSpeed).
		Msg("reference field")
}
