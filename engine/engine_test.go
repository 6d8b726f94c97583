package engine

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/camera"
	"github.com/Carmen-Shannon/oxy-demo/engine/compositor"
	"github.com/Carmen-Shannon/oxy-demo/engine/fluid"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/Carmen-Shannon/oxy-demo/internal/config"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompositor struct {
	camera camera.Camera
	frames []compositor.Frame
	events *[]string
	err    error
}

func (c *fakeCompositor) Render(frame compositor.Frame) error {
	*c.events = append(*c.events, "render")
	if frame.Compute != nil {
		if err := frame.Compute(); err != nil {
			return err
		}
	}
	c.frames = append(c.frames, frame)
	return c.err
}
func (c *fakeCompositor) Camera() camera.Camera { return c.camera }
func (c *fakeCompositor) SmokeRenderLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{}
}
func (c *fakeCompositor) Target(compositor.Target) renderer.RenderTarget { return nil }
func (c *fakeCompositor) SlideCount() int                                { return show.MinSlides }
func (c *fakeCompositor) Frames() uint64                                 { return uint64(len(c.frames)) }
func (c *fakeCompositor) Release()                                       {}

type dispatch struct {
	dt, t, modulation float32
	extras            int
}

type fakeSimulation struct {
	grid       fluid.Grid
	generation int
	group      bind_group_provider.BindGroupProvider
	dispatches []dispatch
	events     *[]string
}

func (s *fakeSimulation) Dispatch(dt, t, modulation float32, extras int) error {
	*s.events = append(*s.events, "dispatch")
	s.dispatches = append(s.dispatches, dispatch{dt, t, modulation, extras})
	return nil
}
func (s *fakeSimulation) Resize(grid fluid.Grid) (bool, error) {
	if !grid.Valid() || grid == s.grid {
		return false, nil
	}
	*s.events = append(*s.events, "resize "+grid.String())
	s.grid = grid
	s.generation++
	return true, nil
}
func (s *fakeSimulation) Grid() fluid.Grid                                      { return s.grid }
func (s *fakeSimulation) Generation() int                                       { return s.generation }
func (s *fakeSimulation) Current() fluid.Buffer                                 { return fluid.BufferA }
func (s *fakeSimulation) RenderBindGroup() bind_group_provider.BindGroupProvider { return s.group }
func (s *fakeSimulation) Pipeline() pipeline.Pipeline                           { return nil }
func (s *fakeSimulation) Resources() []fluid.Resource                           { return nil }
func (s *fakeSimulation) Release()                                              {}

type releaseCounter struct {
	fluid.Solver
	released int
}

func (s *releaseCounter) Release() { s.released++ }

func newTestEngine(t *testing.T, src *fixedSource, start time.Time) (*engine, *fakeCompositor, *fakeSimulation, *[]string) {
	t.Helper()
	events := &[]string{}
	cam := camera.NewCamera()
	comp := &fakeCompositor{camera: cam, events: events}
	sim := &fakeSimulation{
		grid:   fluid.Grid{X: 16, Y: 16, Z: 16},
		group:  bind_group_provider.NewBindGroupProvider("Smoke Render"),
		events: events,
	}
	e := &engine{
		mu:            &sync.Mutex{},
		quitChannel:   make(chan struct{}),
		resizeChannel: make(chan fluid.Grid, 1),
		requestedGrid: sim.grid,
		config:        config.Default(),
		source:        src,
		compositor:    comp,
		simulation:    sim,
		now:           time.Now,
		state:         newTestState(t, src, start),
	}
	return e, comp, sim, events
}

func TestRenderFrameSlideScene(t *testing.T) {
	start := time.Unix(1000, 0)
	src := &fixedSource{}
	e, comp, sim, _ := newTestEngine(t, src, start)

	src.at(1, 0)
	require.NoError(t, e.renderFrame(start.Add(time.Second)))
	require.Len(t, comp.frames, 1)
	f := comp.frames[0]
	assert.Equal(t, show.Slide{Index: 1}, f.Scene)
	assert.True(t, f.Snapshot)
	assert.Nil(t, f.Compute, "no compute outside the smoke scene")
	assert.Nil(t, f.Smoke)
	assert.Empty(t, sim.dispatches)
}

func TestRenderFrameSmokeDispatchesInsideRender(t *testing.T) {
	start := time.Unix(1000, 0)
	src := &fixedSource{}
	e, comp, sim, events := newTestEngine(t, src, start)

	src.at(11, 4)
	require.NoError(t, e.renderFrame(start.Add(time.Second)))
	require.Len(t, comp.frames, 1)
	assert.Same(t, sim.group, comp.frames[0].Smoke)
	require.Len(t, sim.dispatches, 1)
	assert.Equal(t, []string{"render", "dispatch"}, *events, "the dispatch is recorded inside the frame")
	assert.InDelta(t, 1, sim.dispatches[0].dt, 1e-6)
	assert.Zero(t, sim.dispatches[0].extras, "row 4 is outside the impulse window")
}

func TestGridResizeAppliedAtTopOfFrame(t *testing.T) {
	start := time.Unix(1000, 0)
	src := &fixedSource{}
	e, _, sim, events := newTestEngine(t, src, start)
	src.at(10, 3)

	e.RequestGridResize(fluid.Grid{X: 20, Y: 20, Z: 20})
	e.RequestGridResize(fluid.Grid{X: 32, Y: 32, Z: 32})
	assert.Equal(t, fluid.Grid{X: 16, Y: 16, Z: 16}, sim.grid, "nothing changes before the next frame")

	require.NoError(t, e.renderFrame(start.Add(time.Second)))
	assert.Equal(t, []string{"resize 32x32x32", "render", "dispatch"}, *events, "the newest request wins")
	assert.Equal(t, 1, sim.generation)

	*events = nil
	e.RequestGridResize(fluid.Grid{X: 0, Y: 32, Z: 32})
	require.NoError(t, e.renderFrame(start.Add(2*time.Second)))
	assert.Equal(t, []string{"render", "dispatch"}, *events, "invalid grids are ignored")
	assert.Equal(t, fluid.Grid{X: 32, Y: 32, Z: 32}, e.requestedGrid, "the request falls back to the live grid")
}

func TestHandleKey(t *testing.T) {
	start := time.Unix(1000, 0)
	src := &fixedSource{}
	e, _, _, _ := newTestEngine(t, src, start)

	e.handleKey(common.KeyEqual)
	e.handleKey(common.KeyKPAdd)
	grid := <-e.resizeChannel
	assert.Equal(t, fluid.Grid{X: 36, Y: 36, Z: 36}, grid, "repeated presses accumulate")

	e.handleKey(common.KeyMinus)
	assert.Equal(t, fluid.Grid{X: 26, Y: 26, Z: 26}, <-e.resizeChannel)

	e.handleKey(common.KeySpace)
	assert.True(t, src.paused)

	e.handleKey(common.KeyR)
	e.handleKey(common.KeyEsc)
	assert.Empty(t, e.resizeChannel)
}

func TestRenderFrameError(t *testing.T) {
	start := time.Unix(1000, 0)
	e, comp, _, _ := newTestEngine(t, &fixedSource{}, start)
	comp.err = errors.New("lost device")
	assert.EqualError(t, e.renderFrame(start.Add(time.Second)), "lost device")
}

func TestActionForKey(t *testing.T) {
	tests := []struct {
		key  uint32
		want keyAction
	}{
		{common.KeyEqual, actionGrowGrid},
		{common.KeyKPAdd, actionGrowGrid},
		{common.KeyMinus, actionShrinkGrid},
		{common.KeyKPSubtract, actionShrinkGrid},
		{common.KeySpace, actionTogglePause},
		{common.KeyR, actionReferenceStats},
		{common.KeyEsc, actionNone},
		{'A', actionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, actionForKey(tt.key), "key %d", tt.key)
	}
	assert.Equal(t, fluid.Grid{X: 90, Y: 90, Z: 90}, steppedGrid(fluid.DefaultGrid, -1))
}

func TestReferenceSolverSteps(t *testing.T) {
	start := time.Unix(1000, 0)
	src := &fixedSource{}
	e, _, _, _ := newTestEngine(t, src, start)
	e.reference = newReferenceSolver(fluid.Grid{X: 8, Y: 8, Z: 8}, config.Solver{Iterations: 2, Scale: 1, Workers: 1})

	e.stepReference(0.1)
	require.Eventually(t, func() bool { return !e.referenceBusy.Load() }, time.Second, time.Millisecond)
	assert.Greater(t, e.reference.Stats().TotalDensity, 0.0)
}

func TestGridResizeReplacesReferenceSolver(t *testing.T) {
	start := time.Unix(1000, 0)
	e, _, _, _ := newTestEngine(t, &fixedSource{}, start)
	e.config.Solver.Workers = 1
	old := &releaseCounter{}
	e.reference = old

	var out bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&out).Level(zerolog.DebugLevel)
	defer func() { log.Logger = saved }()

	e.RequestGridResize(fluid.Grid{X: 16, Y: 16, Z: 16})
	require.NoError(t, e.renderFrame(start.Add(time.Second)))
	assert.Same(t, old, e.reference, "an ignored resize keeps the solver")
	assert.Zero(t, old.released)

	e.RequestGridResize(fluid.Grid{X: 12, Y: 12, Z: 12})
	require.NoError(t, e.renderFrame(start.Add(2*time.Second)))
	assert.Equal(t, 1, old.released, "the replaced solver stops its workers")
	require.NotNil(t, e.reference)
	assert.Equal(t, fluid.Grid{X: 12, Y: 12, Z: 12}, e.reference.Grid())
	e.reference.Release()
	assert.NotContains(t, out.String(), "grid resize", "the simulation reports its own resizes")
}

func TestBuilderOptionsAndSlideLoading(t *testing.T) {
	preloaded := []common.TextureStagingData{{Label: "s0"}}
	e := &engine{}
	for _, option := range []EngineBuilderOption{
		WithSlides(preloaded),
		WithProfiling(true),
		WithRenderFrameLimit(60),
		WithConfig(nil),
	} {
		option(e)
	}
	assert.Equal(t, preloaded, e.slides)
	assert.True(t, e.profilingEnabled)
	assert.Greater(t, e.renderFrameLimit, time.Duration(0))
	assert.Nil(t, e.config, "a nil config is ignored")

	slides, err := loadSlides(config.Slides{CountMin: 2})
	require.NoError(t, err)
	assert.Len(t, slides, show.MinSlides, "generated slides never drop below the show's minimum")

	_, err = loadSlides(config.Slides{Dir: t.TempDir(), CountMin: 1})
	assert.Error(t, err, "an empty directory has too few slides")
}
