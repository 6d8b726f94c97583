package compositor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/assets"
	"github.com/Carmen-Shannon/oxy-demo/engine/camera"
	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/Carmen-Shannon/oxy-demo/engine/uniforms"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog/log"
)

// Offscreen target size. Slides are scaled to the same size.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// RenderBackend is the part of the renderer the compositor records into.
type RenderBackend interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	CreateRenderTarget(label string, width, height uint32, depth bool) (renderer.RenderTarget, error)
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	BeginFrame() error
	BeginRenderPass(target renderer.RenderTarget, clear bool) error
	Draw(cmd renderer.DrawCommand) error
	EndRenderPass()
	CopyTexture(src, dst renderer.RenderTarget) error
	EndFrame()
	Present()
}

// Frame is everything the compositor needs to draw one frame.
type Frame struct {
	Scene show.Scene
	// Snapshot copies pass1 into previous before anything is drawn. Set on the frame a cue fires.
	Snapshot bool

	Final      uniforms.ShaderParams
	Background uniforms.ShaderParams
	Foreground uniforms.ShaderParams
	Lasers     uniforms.LaserUniform

	// CDs replaces the CD instance buffer when it holds model.CDCount instances.
	CDs []model.Instance
	// Smoke is the simulation's render group, required while a Smoke scene is drawn.
	Smoke bind_group_provider.BindGroupProvider
	// Compute runs inside the frame before any render pass, e.g. the smoke dispatches.
	Compute func() error
}

// ErrMissingSmoke is returned when a Smoke scene is drawn without a smoke render group.
var ErrMissingSmoke = errors.New("compositor: smoke scene without a smoke render group")

// compositor is the implementation of the Compositor interface.
type compositor struct {
	mu      *sync.Mutex
	backend RenderBackend

	width, height uint32
	sampler       common.SamplerStagingData

	pipelines map[string]pipeline.Pipeline
	targets   map[Target]renderer.RenderTarget
	textures  map[Target]bind_group_provider.BindGroupProvider
	slides    []bind_group_provider.BindGroupProvider

	quad       bind_group_provider.BindGroupProvider
	base       model.InstanceSet
	cds        model.InstanceSet
	camera     camera.Camera
	final      bind_group_provider.BindGroupProvider
	background bind_group_provider.BindGroupProvider
	lasers     bind_group_provider.BindGroupProvider

	frames uint64
}

// Compositor owns the offscreen targets, slide textures, instance buffers and uniform groups,
// and records the passes from Plan every frame.
type Compositor interface {
	// Render records and presents one frame:
	//
	//	BeginFrame
	//	  Compute
	//	  uniform and instance writes
	//	  [CopyTexture pass1 -> previous]
	//	  Plan(frame.Scene) passes
	//	EndFrame
	//	Present
	//
	// Parameters:
	//   - frame: the per-frame data
	//
	// Returns:
	//   - error: the first failure; the frame is still ended and presented
	Render(frame Frame) error

	// Camera returns the camera whose uniform feeds the CD pass.
	Camera() camera.Camera

	// SmokeRenderLayout returns the layout the smoke render group must be created with.
	SmokeRenderLayout() wgpu.BindGroupLayoutDescriptor

	// Target returns an offscreen target, or nil for TargetSurface.
	Target(t Target) renderer.RenderTarget

	// SlideCount returns the number of slide texture groups.
	SlideCount() int

	// Frames returns the number of frames rendered.
	Frames() uint64

	// Release frees every GPU resource the compositor created.
	Release()
}

var _ Compositor = &compositor{}

// NewCompositor registers the compositor pipelines and creates its targets and bind groups.
//
// Parameters:
//   - backend: the renderer to record into
//   - slides: the slide images, one texture group each
//   - options: builder options
//
// Returns:
//   - Compositor: the compositor
//   - error: an error if a pipeline or GPU resource cannot be created
func NewCompositor(backend RenderBackend, slides []common.TextureStagingData, options ...CompositorBuilderOption) (Compositor, error) {
	c := &compositor{
		mu:        &sync.Mutex{},
		backend:   backend,
		width:     DefaultWidth,
		height:    DefaultHeight,
		pipelines: make(map[string]pipeline.Pipeline),
		targets:   make(map[Target]renderer.RenderTarget),
		textures:  make(map[Target]bind_group_provider.BindGroupProvider),
		sampler: common.SamplerStagingData{
			AddressModeU: wgpu.AddressModeClampToEdge,
			AddressModeV: wgpu.AddressModeClampToEdge,
			AddressModeW: wgpu.AddressModeClampToEdge,
			MagFilter:    wgpu.FilterModeLinear,
			MinFilter:    wgpu.FilterModeLinear,
		},
	}
	for _, option := range options {
		option(c)
	}
	if c.camera == nil {
		c.camera = camera.NewCamera(camera.WithBindGroupProvider(bind_group_provider.NewBindGroupProvider("Object Uniforms")))
	}

	if err := c.build(slides); err != nil {
		c.Release()
		return nil, err
	}
	log.Info().Int("slides", len(c.slides)).Uint32("width", c.width).Uint32("height", c.height).Msg("compositor ready")
	return c, nil
}

func (c *compositor) build(slides []common.TextureStagingData) error {
	all := make([]pipeline.Pipeline, 0, len(Specs()))
	for _, spec := range Specs() {
		p := NewPipeline(spec)
		c.pipelines[spec.Key] = p
		all = append(all, p)
	}
	if err := c.backend.RegisterPipelines(all...); err != nil {
		return fmt.Errorf("compositor: %w", err)
	}

	for _, t := range []Target{TargetPass1, TargetPrevious, TargetWindow} {
		rt, err := c.backend.CreateRenderTarget(t.String(), c.width, c.height, t == TargetWindow)
		if err != nil {
			return fmt.Errorf("compositor: target %s: %w", t, err)
		}
		c.targets[t] = rt
	}

	c.quad = bind_group_provider.NewBindGroupProvider("Fullscreen Quad")
	err := c.backend.InitMeshBuffers(c.quad,
		model.MarshalVertices(assets.QuadVertices()),
		assets.MarshalIndices(assets.QuadIndices()),
		assets.QuadIndexCount)
	if err != nil {
		return fmt.Errorf("compositor: quad: %w", err)
	}

	c.base = model.NewInstanceSet("Base Instances", model.BaseInstances())
	cds := make([]model.Instance, model.CDCount)
	copy(cds, model.NewCDField().Instances())
	c.cds = model.NewInstanceSet("CD Instances", cds)
	for _, set := range []model.InstanceSet{c.base, c.cds} {
		if err := c.backend.InitMeshBuffers(set.Provider(), set.Raw(), nil, 0); err != nil {
			return fmt.Errorf("compositor: %s: %w", set.Label(), err)
		}
	}

	textureLayout := c.pipelines[PipelineFinal].BindGroupLayoutDescriptor(0)
	for i, slide := range slides {
		p := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Slide %d", i))
		c.slides = append(c.slides, p)
		if err := c.backend.InitTextureView(p, 0, slide); err != nil {
			return fmt.Errorf("compositor: slide %d: %w", i, err)
		}
		if err := c.initTextureGroup(p, textureLayout); err != nil {
			return fmt.Errorf("compositor: slide %d: %w", i, err)
		}
	}
	for t, rt := range c.targets {
		p := bind_group_provider.NewBindGroupProvider(t.String() + " Texture")
		p.ShareTextureView(0, rt.View())
		c.textures[t] = p
		if err := c.initTextureGroup(p, textureLayout); err != nil {
			return fmt.Errorf("compositor: %s texture: %w", t, err)
		}
	}

	uniformGroups := []struct {
		provider *bind_group_provider.BindGroupProvider
		label    string
		pipeline string
		group    int
	}{
		{&c.final, "Final Params", PipelineFinal, 1},
		{&c.background, "Background Params", PipelineBackground, 0},
		{&c.lasers, "Laser Uniform", PipelineLaser, 0},
	}
	for _, u := range uniformGroups {
		*u.provider = bind_group_provider.NewBindGroupProvider(u.label)
		if err := c.backend.InitBindGroup(*u.provider, c.pipelines[u.pipeline].BindGroupLayoutDescriptor(u.group), nil, nil); err != nil {
			return fmt.Errorf("compositor: %s: %w", u.label, err)
		}
	}
	if err := c.backend.InitBindGroup(c.camera.BindGroupProvider(), c.pipelines[PipelineCD].BindGroupLayoutDescriptor(0), nil, nil); err != nil {
		return fmt.Errorf("compositor: object uniforms: %w", err)
	}
	return nil
}

func (c *compositor) initTextureGroup(p bind_group_provider.BindGroupProvider, layout wgpu.BindGroupLayoutDescriptor) error {
	if err := c.backend.InitSampler(p, 1, c.sampler); err != nil {
		return err
	}
	return c.backend.InitBindGroup(p, layout, nil, nil)
}

func (c *compositor) Camera() camera.Camera {
	return c.camera
}

func (c *compositor) SmokeRenderLayout() wgpu.BindGroupLayoutDescriptor {
	return c.pipelines[PipelineSmoke].BindGroupLayoutDescriptor(0)
}

func (c *compositor) Target(t Target) renderer.RenderTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targets[t]
}

func (c *compositor) SlideCount() int {
	return len(c.slides)
}

func (c *compositor) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *compositor) Render(frame Frame) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.BeginFrame(); err != nil {
		return fmt.Errorf("compositor: begin frame: %w", err)
	}
	defer func() {
		c.backend.EndFrame()
		c.backend.Present()
		if err == nil {
			c.frames++
		}
	}()

	if frame.Compute != nil {
		if err := frame.Compute(); err != nil {
			return fmt.Errorf("compositor: compute: %w", err)
		}
	}

	c.backend.WriteBuffers(c.writes(frame))

	if frame.Snapshot {
		if err := c.backend.CopyTexture(c.targets[TargetPass1], c.targets[TargetPrevious]); err != nil {
			return fmt.Errorf("compositor: snapshot: %w", err)
		}
	}

	for _, pass := range Plan(frame.Scene) {
		if err := c.record(pass, frame); err != nil {
			return err
		}
	}
	return nil
}

// writes collects the uniform and instance uploads of a frame.
func (c *compositor) writes(frame Frame) []bind_group_provider.BufferWrite {
	writes := []bind_group_provider.BufferWrite{
		{Provider: c.final, Binding: 0, Data: frame.Final.Marshal()},
		{Provider: c.background, Binding: 0, Data: frame.Background.Marshal()},
		{Provider: c.lasers, Binding: 0, Data: frame.Lasers.Marshal()},
		c.camera.Write(),
		{Provider: c.camera.BindGroupProvider(), Binding: 1, Data: frame.Foreground.Marshal()},
	}
	if len(frame.CDs) == c.cds.Len() {
		c.cds.SetAll(frame.CDs)
	}
	for _, set := range []model.InstanceSet{c.base, c.cds} {
		if w, ok := set.Write(); ok {
			writes = append(writes, w)
		}
	}
	return writes
}

func (c *compositor) record(pass Pass, frame Frame) error {
	var target renderer.RenderTarget
	if pass.Target != TargetSurface {
		target = c.targets[pass.Target]
	}
	if err := c.backend.BeginRenderPass(target, pass.Clear); err != nil {
		return fmt.Errorf("compositor: %s pass: %w", pass.Label, err)
	}
	defer c.backend.EndRenderPass()

	for i, d := range pass.Draws {
		groups := make([]bind_group_provider.BindGroupProvider, len(d.Groups))
		for g, src := range d.Groups {
			p, err := c.resolve(src, frame)
			if err != nil {
				return fmt.Errorf("compositor: %s draw %d group %d: %w", pass.Label, i, g, err)
			}
			groups[g] = p
		}
		cmd := renderer.DrawCommand{
			PipelineKey:   d.Pipeline,
			Mesh:          c.quad,
			Instances:     c.instances(d.Instances),
			IndexStart:    d.IndexStart,
			IndexCount:    d.IndexCount,
			FirstInstance: d.FirstInstance,
			InstanceCount: d.InstanceCount,
			BindGroups:    groups,
		}
		if err := c.backend.Draw(cmd); err != nil {
			return fmt.Errorf("compositor: %s draw %d: %w", pass.Label, i, err)
		}
	}
	return nil
}

func (c *compositor) instances(kind Instances) bind_group_provider.BindGroupProvider {
	switch kind {
	case InstancesNone:
		return nil
	case InstancesBase:
		return c.base.Provider()
	case InstancesCDs:
		return c.cds.Provider()
	default:
		panic(fmt.Sprintf("compositor: unknown instances %d", kind))
	}
}

func (c *compositor) resolve(src Source, frame Frame) (bind_group_provider.BindGroupProvider, error) {
	switch src.Kind {
	case SourceSlide:
		if src.Slide < 0 || src.Slide >= len(c.slides) {
			return nil, fmt.Errorf("slide %d of %d", src.Slide, len(c.slides))
		}
		return c.slides[src.Slide], nil
	case SourcePass1:
		return c.textures[TargetPass1], nil
	case SourcePrevious:
		return c.textures[TargetPrevious], nil
	case SourceWindow:
		return c.textures[TargetWindow], nil
	case SourceFinalParams:
		return c.final, nil
	case SourceBackgroundParams:
		return c.background, nil
	case SourceObject:
		return c.camera.BindGroupProvider(), nil
	case SourceLasers:
		return c.lasers, nil
	case SourceSmoke:
		if frame.Smoke == nil {
			return nil, ErrMissingSmoke
		}
		return frame.Smoke, nil
	default:
		panic(fmt.Sprintf("compositor: unknown source %d", src.Kind))
	}
}

func (c *compositor) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	release := func(p bind_group_provider.BindGroupProvider) {
		if p != nil {
			p.Release()
		}
	}
	for _, p := range c.textures {
		release(p)
	}
	for _, p := range c.slides {
		release(p)
	}
	release(c.final)
	release(c.background)
	release(c.lasers)
	release(c.quad)
	if c.camera != nil {
		release(c.camera.BindGroupProvider())
	}
	for _, set := range []model.InstanceSet{c.base, c.cds} {
		if set != nil {
			release(set.Provider())
		}
	}
	for _, rt := range c.targets {
		rt.Release()
	}
	c.textures = map[Target]bind_group_provider.BindGroupProvider{}
	c.targets = map[Target]renderer.RenderTarget{}
	c.slides = nil
}
