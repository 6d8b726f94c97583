package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	// GPU objects below are created by the Renderer and released by Release.
	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView
	textures     map[int]*wgpu.Texture
	samplers     map[int]*wgpu.Sampler

	// sharedViews marks views owned by another provider or a render target. Ping-pong volume
	// groups bind the same views in swapped slots.
	sharedViews map[int]bool

	// mesh providers
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

// BindGroupProvider holds the GPU resources behind one bind group or one mesh. Components
// (camera, uniforms, smoke volumes, slides) own a provider and the Renderer fills it.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider with a debug label
//  2. Textures, volumes and samplers are attached with InitTextureView, InitVolume, InitSampler
//     or ShareTextureView
//  3. Renderer.InitBindGroup(provider, descriptor) creates buffers and the bind group
//  4. Renderer.WriteBuffers updates uniform and instance data each frame
//  5. Draw and dispatch calls read BindGroup()
type BindGroupProvider interface {
	// Release releases every GPU object the provider owns. Shared views are forgotten but left
	// alive. Calling it twice is safe.
	Release()

	// ReleaseBindGroup releases only the bind group, keeping the layout and all resources so the
	// group can be rebuilt with InitBindGroup after shared views change.
	ReleaseBindGroup()

	// Label returns the debug label the Renderer prefixes to every GPU object it creates here.
	Label() string

	// BindGroup returns the bind group, or nil before InitBindGroup.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created from, or nil.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding, or nil.
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns every buffer keyed by binding.
	Buffers() map[int]*wgpu.Buffer

	// TextureView returns the view at a binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// TextureViews returns every view keyed by binding, owned and shared.
	TextureViews() map[int]*wgpu.TextureView

	// Texture returns the texture owned at a binding, or nil.
	Texture(binding int) *wgpu.Texture

	// Sampler returns the sampler at a binding, or nil.
	Sampler(binding int) *wgpu.Sampler

	// VertexBuffer returns the vertex (or per-instance) buffer, or nil.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the index buffer, or nil.
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices drawn from IndexBuffer.
	IndexCount() int

	// SetBindGroup stores the bind group created by Renderer.InitBindGroup.
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the layout created by Renderer.InitBindGroup.
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores an owned buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores an owned texture view at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// ShareTextureView stores a texture view owned elsewhere. Release leaves it alive.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the borrowed texture view
	ShareTextureView(binding int, tv *wgpu.TextureView)

	// SetTexture stores an owned texture at a binding.
	SetTexture(binding int, tex *wgpu.Texture)

	// SetSampler stores an owned sampler at a binding.
	SetSampler(binding int, s *wgpu.Sampler)

	// SetVertexBuffer stores the vertex buffer.
	SetVertexBuffer(buf *wgpu.Buffer)

	// SetIndexBuffer stores the index buffer.
	SetIndexBuffer(buf *wgpu.Buffer)

	// SetIndexCount sets the number of indices for indexed draws.
	SetIndexCount(count int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label prefixed to every GPU object the Renderer creates for this provider
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		textures:     make(map[int]*wgpu.Texture),
		samplers:     make(map[int]*wgpu.Sampler),
		sharedViews:  make(map[int]bool),
	}
}

func (p *bindGroupProvider) Label() string                          { return p.label }
func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup             { return p.bindGroup }
func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout { return p.bindGroupLayout }
func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer        { return p.buffers[binding] }
func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer          { return p.buffers }
func (p *bindGroupProvider) Texture(binding int) *wgpu.Texture      { return p.textures[binding] }
func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler      { return p.samplers[binding] }
func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer             { return p.vertexBuffer }
func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer              { return p.indexBuffer }
func (p *bindGroupProvider) IndexCount() int                        { return p.indexCount }

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) TextureViews() map[int]*wgpu.TextureView {
	return p.textureViews
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup)              { p.bindGroup = bg }
func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) { p.bindGroupLayout = bgl }
func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer)      { p.buffers[binding] = buf }
func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture)    { p.textures[binding] = tex }
func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler)      { p.samplers[binding] = s }
func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer)             { p.vertexBuffer = buf }
func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer)              { p.indexBuffer = buf }
func (p *bindGroupProvider) SetIndexCount(count int)                      { p.indexCount = count }

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
	delete(p.sharedViews, binding)
}

func (p *bindGroupProvider) ShareTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
	p.sharedViews[binding] = true
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	// the bind group references the views, so it goes first
	p.ReleaseBindGroup()

	releaseSlots(p.textureViews, func(binding int) bool { return !p.sharedViews[binding] })
	clear(p.sharedViews)
	releaseSlots(p.textures, nil)
	releaseSlots(p.samplers, nil)
	releaseSlots(p.buffers, nil)

	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for _, buf := range []**wgpu.Buffer{&p.vertexBuffer, &p.indexBuffer} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
}

type releasable interface {
	comparable
	Release()
}

// releaseSlots releases every non-nil value whose binding passes owned (all when owned is nil)
// and empties the map.
func releaseSlots[T releasable](slots map[int]T, owned func(binding int) bool) {
	var none T
	for binding, v := range slots {
		if v != none && (owned == nil || owned(binding)) {
			v.Release()
		}
	}
	clear(slots)
}
