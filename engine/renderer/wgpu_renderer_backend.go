package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog/log"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Frame state. One encoder records the compute pass and every render pass of a frame, so
	// compute writes are ordered before the render passes that sample them.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	computePass  *wgpu.ComputePassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the shader modules, pipeline layout and render pipeline for p.
	// The color target uses p.ColorFormat() or the surface format; a depth-stencil state is
	// attached only when p.HasDepth().
	//
	// Parameters:
	//   - p: the pipeline object containing the shaders and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, pipeline layout and compute pipeline for p.
	//
	// Parameters:
	//   - p: the pipeline object containing the compute shader
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// CreateRenderTarget allocates an offscreen color texture in TargetFormat, optionally with a
	// depth attachment. The texture can be drawn into, sampled and used as a copy source or
	// destination.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - depth: whether to create a depth attachment
	//
	// Returns:
	//   - RenderTarget: the created target
	//   - error: an error if texture creation fails
	CreateRenderTarget(label string, width, height uint32, depth bool) (RenderTarget, error)

	// InitMeshBuffers creates vertex and index buffers and stores them on the provider. Either
	// slice may be empty; instance providers pass only vertex data.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex (or instance) data bytes
	//   - indexData: the raw uint32 index data bytes
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if the buffers could not be created, otherwise nil
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates missing buffers and (re)creates the bind group of a provider from a
	// layout descriptor. Texture, storage texture and sampler bindings must already hold views or
	// samplers on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the layout entries and storage for the bind group
	//   - descriptor: the BindGroupLayoutDescriptor describing the layout of the bind group
	//   - bufferUsageOverrides: extra buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: buffer sizes used instead of MinBindingSize keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized, otherwise nil
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads an sRGB 2D texture and stores the texture and view on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index of the texture
	//   - stagingData: the pixel data and dimensions
	//
	// Returns:
	//   - error: an error if the texture view could not be created, otherwise nil
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitVolume allocates an empty 3D texture and stores the texture and view on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider that owns the volume
	//   - bindingKey: the key the volume is stored under
	//   - stagingData: the size, format and storage flag of the volume
	//
	// Returns:
	//   - error: an error if the volume could not be created, otherwise nil
	InitVolume(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.VolumeStagingData) error

	// InitSampler creates a sampler and stores it on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index of the sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if the sampler could not be created, otherwise nil
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue. Writes whose target buffer
	// does not exist are skipped.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and creates the frame command encoder.
	//
	// Returns:
	//   - error: an error if the swapchain texture or the encoder could not be acquired
	BeginFrame() error

	// BeginComputePass opens the compute pass of the current frame.
	//
	// Returns:
	//   - error: an error if no frame is active or a pass is already open
	BeginComputePass() error

	// Dispatch encodes one dispatch in the open compute pass. Bind groups are set at group index
	// = slice position.
	//
	// Parameters:
	//   - p: the compute Pipeline
	//   - bindGroups: the bind group providers
	//   - workGroupCount: the number of workgroups in x, y and z
	//
	// Returns:
	//   - error: an error if no compute pass is open
	Dispatch(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputePass closes the open compute pass.
	EndComputePass()

	// BeginRenderPass opens a render pass drawing into target, or into the surface when target is
	// nil. The surface has no depth attachment.
	//
	// Parameters:
	//   - target: the render target, or nil for the swapchain texture
	//   - clear: whether to clear color (to ClearBlack) and depth; false loads the existing contents
	//
	// Returns:
	//   - error: an error if no frame is active or a pass is already open
	BeginRenderPass(target RenderTarget, clear bool) error

	// Draw encodes one draw command in the open render pass.
	//
	// Parameters:
	//   - p: the render Pipeline
	//   - cmd: the draw command
	//
	// Returns:
	//   - error: an error if no render pass is open or the command is incomplete
	Draw(p pipeline.Pipeline, cmd DrawCommand) error

	// EndRenderPass closes the open render pass.
	EndRenderPass()

	// CopyTexture copies the full color texture of src into dst. Both targets must share size and
	// format. Must be called outside of any pass.
	//
	// Parameters:
	//   - src: the source target
	//   - dst: the destination target
	//
	// Returns:
	//   - error: an error if a pass is open or the sizes differ
	CopyTexture(src, dst RenderTarget) error

	// EndFrame finishes the frame encoder and submits the command buffer. Does not present.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	var err error
	w.adapter, err = w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}

	// rgba32float volumes are read with textureLoad only, so the default limits are enough.
	limits := wgpu.DefaultLimits()

	w.device, err = w.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.queue = w.device.GetQueue()

	log.Debug().Bool("fallback", forceFallbackAdapter).Msg("gpu device ready")
	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.surfaceWidth = uint32(width)
	b.surfaceHeight = uint32(height)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       b.surfaceWidth,
		Height:      b.surfaceHeight,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// pipelineLayout creates one bind group layout per group index up to the highest group used
// and the pipeline layout over them. Unused lower groups get an empty layout.
func (b *wgpuRendererBackendImpl) pipelineLayout(key string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	groups := 0
	for g := range descriptors {
		groups = max(groups, g+1)
	}
	layouts := make([]*wgpu.BindGroupLayout, groups)
	for g := range layouts {
		desc := descriptors[g]
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("%s: bind group layout %d: %w", key, g, err)
		}
		layouts[g] = layout
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            key,
		BindGroupLayouts: layouts,
	})
}

// compile creates the shader module of one stage.
func (b *wgpuRendererBackendImpl) compile(key string, s shader.Shader) (*wgpu.ShaderModule, error) {
	if s == nil {
		return nil, fmt.Errorf("%s: missing shader stage", key)
	}
	module, err := b.device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, fmt.Errorf("%s: %s module: %w", key, s.Key(), err)
	}
	return module, nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	key := p.PipelineKey()
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.compile(key, vertexShader)
	if err != nil {
		return err
	}
	fs, err := b.compile(key, fragmentShader)
	if err != nil {
		return err
	}
	pipelineLayout, err := b.pipelineLayout(key, p.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}

	colorFormat := p.ColorFormat()
	if colorFormat == wgpu.TextureFormatUndefined {
		colorFormat = *b.surfaceFormat
	}
	colorTarget := wgpu.ColorTargetState{
		Format:    colorFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
		Blend:     p.BlendState(),
	}

	var depthStencil *wgpu.DepthStencilState
	if p.HasDepth() {
		depthStencil = &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{colorTarget},
		},
		Primitive: p.PrimitiveState(),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	key := p.PipelineKey()
	computeShader := p.Shader(shader.ShaderTypeCompute)

	module, err := b.compile(key, computeShader)
	if err != nil {
		return err
	}
	layout, err := b.pipelineLayout(key, p.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  key + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(label string, width, height uint32, depth bool) (RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &renderTarget{label: label, width: width, height: height}
	size := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	var err error
	t.texture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " Color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        TargetFormat,
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render target %s: %w", label, err)
	}
	t.view, err = t.texture.CreateView(nil)
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("render target %s view: %w", label, err)
	}

	if depth {
		t.depthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         label + " Depth",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        DepthFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			t.Release()
			return nil, fmt.Errorf("render target %s depth: %w", label, err)
		}
		t.depthView, err = t.depthTexture.CreateView(nil)
		if err != nil {
			t.Release()
			return nil, fmt.Errorf("render target %s depth view: %w", label, err)
		}
	}
	return t, nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Vertex Buffer",
			Size:  uint64(len(vertexData)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, vertexData)
		provider.SetVertexBuffer(buf)
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Index Buffer",
			Size:  uint64(len(indexData)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		provider.SetIndexBuffer(buf)
	}

	provider.SetIndexCount(indexCount)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		var err error
		bindGroupEntries[i], err = b.bindGroupEntry(provider, entry, bufferUsageOverrides[int(entry.Binding)], bufferSizeOverrides)
		if err != nil {
			return err
		}
	}

	// a rebuilt group replaces the old one; its views may have been recreated
	provider.ReleaseBindGroup()
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

// bindGroupEntry resolves one layout entry to the provider's view, sampler or buffer. Buffers
// are created on first use with the usage their binding type needs plus extraUsage.
func (b *wgpuRendererBackendImpl) bindGroupEntry(provider bind_group_provider.BindGroupProvider, entry wgpu.BindGroupLayoutEntry, extraUsage wgpu.BufferUsage, sizes map[int]uint64) (wgpu.BindGroupEntry, error) {
	binding := int(entry.Binding)
	out := wgpu.BindGroupEntry{Binding: entry.Binding}

	switch {
	case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined,
		entry.StorageTexture.Format != wgpu.TextureFormatUndefined:
		out.TextureView = provider.TextureView(binding)
		if out.TextureView == nil {
			return out, fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
		}
		return out, nil
	case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		out.Sampler = provider.Sampler(binding)
		if out.Sampler == nil {
			return out, fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
		}
		return out, nil
	}

	buf := provider.Buffer(binding)
	if buf == nil {
		usage := extraUsage | wgpu.BufferUsageCopyDst
		if entry.Buffer.Type == wgpu.BufferBindingTypeUniform {
			usage |= wgpu.BufferUsageUniform
		} else {
			usage |= wgpu.BufferUsageStorage
		}
		size, ok := sizes[binding]
		if !ok {
			size = entry.Buffer.MinBindingSize
		}
		var err error
		buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			return out, err
		}
		provider.SetBuffer(binding, buf)
	}
	out.Buffer = buf
	out.Size = wgpu.WholeSize
	return out, nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	label := labelOr(stagingData.Label, provider.Label())
	stagingData.Label = label
	if err := stagingData.Check(); err != nil {
		return err
	}
	size := wgpu.Extent3D{
		Width:              stagingData.Width,
		Height:             stagingData.Height,
		DepthOrArrayLayers: 1,
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTexture(bindingKey, tex)
	provider.SetTextureView(bindingKey, view)

	return nil
}

func (b *wgpuRendererBackendImpl) InitVolume(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.VolumeStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, d := range stagingData.Size {
		if d == 0 {
			return fmt.Errorf("%s: volume size %v has a zero axis", stagingData.Label, stagingData.Size)
		}
	}

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if stagingData.Storage {
		usage |= wgpu.TextureUsageStorageBinding
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: labelOr(stagingData.Label, provider.Label()) + " Volume",
		Usage: usage,
		Size: wgpu.Extent3D{
			Width:              stagingData.Size[0],
			Height:             stagingData.Size[1],
			DepthOrArrayLayers: stagingData.Size[2],
		},
		Dimension:     wgpu.TextureDimension3D,
		Format:        stagingData.Format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTexture(bindingKey, tex)
	provider.SetTextureView(bindingKey, view)
	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(samplerStagingData.Descriptor(provider.Label()))
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, samp)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Target()
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A surface texture still held from the previous frame would make the acquire below fail
	// with "Surface image is already acquired".
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) BeginComputePass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.New("compute pass outside of a frame")
	}
	if b.computePass != nil || b.framePass != nil {
		return errors.New("compute pass while another pass is open")
	}
	b.computePass = b.frameEncoder.BeginComputePass(nil)
	return nil
}

func (b *wgpuRendererBackendImpl) Dispatch(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computePass == nil {
		return errors.New("dispatch without an open compute pass")
	}

	b.computePass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	for i, bg := range bindGroups {
		if bg == nil {
			continue
		}
		b.computePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	b.computePass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputePass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computePass == nil {
		return
	}
	b.computePass.End()
	b.computePass = nil
}

func (b *wgpuRendererBackendImpl) BeginRenderPass(target RenderTarget, clear bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.New("render pass outside of a frame")
	}
	if b.computePass != nil || b.framePass != nil {
		return errors.New("render pass while another pass is open")
	}

	loadOp := wgpu.LoadOpLoad
	if clear {
		loadOp = wgpu.LoadOpClear
	}

	colorView := b.frameView
	var depthView *wgpu.TextureView
	if target != nil {
		colorView = target.View()
		depthView = target.DepthView()
	}

	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       colorView,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: ClearBlack,
			},
		},
	}
	if depthView != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}
	b.framePass = b.frameEncoder.BeginRenderPass(desc)
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(p pipeline.Pipeline, cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw without an open render pass")
	}
	if cmd.Mesh == nil || cmd.Mesh.VertexBuffer() == nil || cmd.Mesh.IndexBuffer() == nil {
		return fmt.Errorf("%s: draw without mesh buffers", cmd.PipelineKey)
	}

	b.framePass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	for i, bg := range cmd.BindGroups {
		if bg == nil {
			continue
		}
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}

	b.framePass.SetVertexBuffer(0, cmd.Mesh.VertexBuffer(), 0, wgpu.WholeSize)
	if cmd.Instances != nil {
		b.framePass.SetVertexBuffer(1, cmd.Instances.VertexBuffer(), 0, wgpu.WholeSize)
	}
	b.framePass.SetIndexBuffer(cmd.Mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)

	indexCount := cmd.IndexCount
	if indexCount == 0 {
		indexCount = uint32(cmd.Mesh.IndexCount())
	}
	b.framePass.DrawIndexed(indexCount, cmd.InstanceCount, cmd.IndexStart, 0, cmd.FirstInstance)
	return nil
}

func (b *wgpuRendererBackendImpl) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) CopyTexture(src, dst RenderTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.New("texture copy outside of a frame")
	}
	if b.framePass != nil || b.computePass != nil {
		return errors.New("texture copy while a pass is open")
	}
	if src.Width() != dst.Width() || src.Height() != dst.Height() {
		return fmt.Errorf("texture copy %s -> %s: size mismatch", src.Label(), dst.Label())
	}

	b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: src.Texture(), Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: dst.Texture(), Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: src.Width(), Height: src.Height(), DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}
	if b.framePass != nil {
		b.framePass.End()
		b.framePass = nil
	}
	if b.computePass != nil {
		b.computePass.End()
		b.computePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		log.Error().Err(err).Msg("frame encoder finish failed")
		return
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

// labelOr returns label, or fallback when label is empty.
func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
