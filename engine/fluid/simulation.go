package fluid

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog/log"
)

//go:embed assets/smoke_compute.wgsl
var smokeComputeSource string

// ComputePipelineKey is the default key of the smoke compute pipeline.
const ComputePipelineKey = "smoke_compute"

// volume bindings on the provider that owns the simulation textures
const (
	volumeFieldA = iota
	volumeFieldB
	volumePressureA
	volumePressureB
	volumePacked
)

// texture group bindings, see assets/smoke_compute.wgsl
const (
	bindingFieldIn = iota
	bindingPressureIn
	bindingFieldOut
	bindingPressureOut
	bindingPacked
)

// ComputeBackend is the part of the renderer the simulation drives.
type ComputeBackend interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InitVolume(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.VolumeStagingData) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	BeginComputePass() error
	Dispatch(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	EndComputePass()
}

// Resource records the grid a GPU resource was created for.
type Resource struct {
	Name       string
	Grid       Grid
	Generation int
}

// simulation is the implementation of the Simulation interface.
type simulation struct {
	mu      *sync.Mutex
	backend ComputeBackend

	grid        Grid
	generation  int
	current     Buffer
	pipelineKey string

	shader       shader.Shader
	pipeline     pipeline.Pipeline
	renderLayout *wgpu.BindGroupLayoutDescriptor

	volumes bind_group_provider.BindGroupProvider
	groups  [2]bind_group_provider.BindGroupProvider
	render  bind_group_provider.BindGroupProvider
	params  [ParamSlots]bind_group_provider.BindGroupProvider

	resources []Resource
}

// Simulation runs the stable-fluids smoke on the GPU. It owns the ping-pong velocity/density and
// pressure volumes, the packed volume the smoke renderer samples, the two texture bind groups and
// one parameter uniform per step slot.
type Simulation interface {
	// Dispatch records one frame of simulation into the current frame's command encoder. All
	// parameter slots used this frame are written in one batch before the first dispatch.
	//
	// Parameters:
	//   - dt: the frame delta time in seconds
	//   - t: seconds since start
	//   - modulation: impulse strength for the extra steps
	//   - extras: the number of leading extra steps (0 or ExtraSteps)
	//
	// Returns:
	//   - error: an error if the compute pass could not be recorded
	Dispatch(dt, t, modulation float32, extras int) error

	// Resize recreates every volume and every bind group that references them for a new grid.
	// A non-positive or unchanged grid is a no-op.
	//
	// Parameters:
	//   - grid: the new resolution
	//
	// Returns:
	//   - bool: true if the simulation was rebuilt
	//   - error: an error if a resource could not be created
	Resize(grid Grid) (bool, error)

	// Grid returns the current resolution.
	Grid() Grid

	// Generation returns how many times the volumes were built.
	Generation() int

	// Current returns the buffer holding the latest field.
	Current() Buffer

	// RenderBindGroup returns the group that exposes the packed volume to the smoke renderer, or
	// nil if no render layout was configured.
	RenderBindGroup() bind_group_provider.BindGroupProvider

	// Pipeline returns the compute pipeline.
	Pipeline() pipeline.Pipeline

	// Resources lists the volume-dependent resources and the grid they were built for.
	Resources() []Resource

	// Release frees every GPU resource owned by the simulation.
	Release()
}

var _ Simulation = &simulation{}

// NewSimulation compiles the compute shader, registers its pipeline with the backend and builds
// the parameter slots and the volumes for the configured grid.
//
// Parameters:
//   - backend: the renderer the simulation records into
//   - options: builder options
//
// Returns:
//   - Simulation: the ready simulation
//   - error: an error if the pipeline or a resource could not be created
func NewSimulation(backend ComputeBackend, options ...SimulationBuilderOption) (Simulation, error) {
	s := &simulation{
		mu:          &sync.Mutex{},
		backend:     backend,
		grid:        DefaultGrid,
		pipelineKey: ComputePipelineKey,
	}
	for _, opt := range options {
		opt(s)
	}
	if !s.grid.Valid() {
		return nil, fmt.Errorf("fluid: invalid grid %s", s.grid)
	}

	s.shader = shader.NewShader(s.pipelineKey, shader.ShaderTypeCompute, smokeComputeSource,
		shader.WithIncludes(map[string]string{"ComputeParams": GPUComputeParamsSource}))
	s.pipeline = pipeline.NewPipeline(s.pipelineKey, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s.shader))
	if err := backend.RegisterPipelines(s.pipeline); err != nil {
		return nil, fmt.Errorf("fluid: %w", err)
	}

	paramsLayout := s.shader.BindGroupLayoutDescriptor(1)
	for i := range s.params {
		s.params[i] = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Smoke Params %d", i))
		if err := backend.InitBindGroup(s.params[i], paramsLayout, nil, nil); err != nil {
			s.Release()
			return nil, fmt.Errorf("fluid: params slot %d: %w", i, err)
		}
	}

	if err := s.build(); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *simulation) Grid() Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

func (s *simulation) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *simulation) Current() Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *simulation) RenderBindGroup() bind_group_provider.BindGroupProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render
}

func (s *simulation) Pipeline() pipeline.Pipeline {
	return s.pipeline
}

func (s *simulation) Resources() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Resource, len(s.resources))
	copy(out, s.resources)
	return out
}

func (s *simulation) Dispatch(dt, t, modulation float32, extras int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := PlanSteps(RegularSteps, extras)

	writes := make([]bind_group_provider.BufferWrite, 0, len(steps))
	for _, step := range steps {
		params := GPUComputeParams{
			Step:       int32(step.Slot),
			DeltaTime:  dt,
			Time:       t,
			Modulation: modulation,
		}
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: s.params[step.Slot],
			Binding:  0,
			Data:     params.Marshal(),
		})
	}
	s.backend.WriteBuffers(writes)

	wg := s.shader.WorkgroupSize()
	if wg == [3]uint32{} {
		wg = WorkGroupSize
	}
	count := WorkGroupCount(s.grid.Extent(), wg)

	if err := s.backend.BeginComputePass(); err != nil {
		return fmt.Errorf("fluid: begin compute pass: %w", err)
	}
	defer s.backend.EndComputePass()

	offset := int(s.current)
	for i, step := range steps {
		group := s.groups[(offset+step.Group)%2]
		if err := s.backend.Dispatch(s.pipelineKey, []bind_group_provider.BindGroupProvider{group, s.params[step.Slot]}, count); err != nil {
			return fmt.Errorf("fluid: dispatch %d (slot %d): %w", i, step.Slot, err)
		}
	}
	s.current = Parity(offset + len(steps))
	return nil
}

func (s *simulation) Resize(grid Grid) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !grid.Valid() || grid == s.grid {
		log.Debug().Str("grid", grid.String()).Str("current", s.grid.String()).Msg("grid resize ignored")
		return false, nil
	}

	from := s.grid
	s.releaseVolumes()
	s.grid = grid
	if err := s.build(); err != nil {
		return false, err
	}
	log.Info().Str("from", from.String()).Str("to", grid.String()).Int("generation", s.generation).Msg("grid resized")
	return true, nil
}

func (s *simulation) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseVolumes()
	for i, p := range s.params {
		if p != nil {
			p.Release()
			s.params[i] = nil
		}
	}
}

// build creates the volumes, both texture groups and the render group for s.grid.
func (s *simulation) build() error {
	s.generation++
	s.current = BufferA
	s.resources = s.resources[:0]
	size := s.grid.Extent()

	s.volumes = bind_group_provider.NewBindGroupProvider("Smoke Volumes")
	volumes := []struct {
		binding int
		name    string
		format  wgpu.TextureFormat
	}{
		{volumeFieldA, "Smoke Field A", wgpu.TextureFormatRGBA32Float},
		{volumeFieldB, "Smoke Field B", wgpu.TextureFormatRGBA32Float},
		{volumePressureA, "Smoke Pressure A", wgpu.TextureFormatR32Float},
		{volumePressureB, "Smoke Pressure B", wgpu.TextureFormatR32Float},
		{volumePacked, "Smoke Packed", wgpu.TextureFormatRGBA32Uint},
	}
	for _, v := range volumes {
		err := s.backend.InitVolume(s.volumes, v.binding, common.VolumeStagingData{
			Label:   v.name,
			Size:    size,
			Format:  v.format,
			Storage: true,
		})
		if err != nil {
			return fmt.Errorf("fluid: %s: %w", v.name, err)
		}
		s.record(v.name)
	}

	// group 0 reads A and writes B, group 1 the reverse
	layout := s.shader.BindGroupLayoutDescriptor(0)
	wiring := [2][4]int{
		{volumeFieldA, volumePressureA, volumeFieldB, volumePressureB},
		{volumeFieldB, volumePressureB, volumeFieldA, volumePressureA},
	}
	for g, w := range wiring {
		name := fmt.Sprintf("Smoke Textures %d", g)
		p := bind_group_provider.NewBindGroupProvider(name)
		p.ShareTextureView(bindingFieldIn, s.volumes.TextureView(w[0]))
		p.ShareTextureView(bindingPressureIn, s.volumes.TextureView(w[1]))
		p.ShareTextureView(bindingFieldOut, s.volumes.TextureView(w[2]))
		p.ShareTextureView(bindingPressureOut, s.volumes.TextureView(w[3]))
		p.ShareTextureView(bindingPacked, s.volumes.TextureView(volumePacked))
		s.groups[g] = p
		if err := s.backend.InitBindGroup(p, layout, nil, nil); err != nil {
			return fmt.Errorf("fluid: %s: %w", name, err)
		}
		s.record(name)
	}

	if s.renderLayout != nil {
		p := bind_group_provider.NewBindGroupProvider("Smoke Render")
		p.ShareTextureView(0, s.volumes.TextureView(volumePacked))
		s.render = p
		if err := s.backend.InitBindGroup(p, *s.renderLayout, nil, nil); err != nil {
			return fmt.Errorf("fluid: smoke render group: %w", err)
		}
		s.record("Smoke Render")
	}
	return nil
}

func (s *simulation) record(name string) {
	s.resources = append(s.resources, Resource{Name: name, Grid: s.grid, Generation: s.generation})
}

// releaseVolumes frees the groups before the volumes they reference.
func (s *simulation) releaseVolumes() {
	if s.render != nil {
		s.render.Release()
		s.render = nil
	}
	for i, g := range s.groups {
		if g != nil {
			g.Release()
			s.groups[i] = nil
		}
	}
	if s.volumes != nil {
		s.volumes.Release()
		s.volumes = nil
	}
}
