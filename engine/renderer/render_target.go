package renderer

import "github.com/cogentcore/webgpu/wgpu"

// TargetFormat is the color format of every offscreen render target. Pipelines drawing into a
// target must be built with pipeline.WithColorFormat(TargetFormat).
const TargetFormat = wgpu.TextureFormatRGBA8Unorm

// DepthFormat is the depth attachment format of targets created with depth.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// renderTarget is the implementation of the RenderTarget interface.
type renderTarget struct {
	label         string
	width, height uint32
	texture       *wgpu.Texture
	view          *wgpu.TextureView
	depthTexture  *wgpu.Texture
	depthView     *wgpu.TextureView
}

// RenderTarget is an offscreen 2D color texture a render pass can draw into and later passes can
// sample. A target may carry a depth attachment.
type RenderTarget interface {
	// Label returns the debug label of the target.
	Label() string

	// Texture returns the color texture.
	Texture() *wgpu.Texture

	// View returns the color texture view, used both as attachment and as sampled binding.
	View() *wgpu.TextureView

	// DepthView returns the depth attachment view, or nil if the target has no depth.
	DepthView() *wgpu.TextureView

	// Width returns the target width in pixels.
	Width() uint32

	// Height returns the target height in pixels.
	Height() uint32

	// Release releases the textures and views of the target.
	Release()
}

var _ RenderTarget = &renderTarget{}

func (t *renderTarget) Label() string {
	return t.label
}

func (t *renderTarget) Texture() *wgpu.Texture {
	return t.texture
}

func (t *renderTarget) View() *wgpu.TextureView {
	return t.view
}

func (t *renderTarget) DepthView() *wgpu.TextureView {
	return t.depthView
}

func (t *renderTarget) Width() uint32 {
	return t.width
}

func (t *renderTarget) Height() uint32 {
	return t.height
}

func (t *renderTarget) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
	if t.depthView != nil {
		t.depthView.Release()
		t.depthView = nil
	}
	if t.depthTexture != nil {
		t.depthTexture.Release()
		t.depthTexture = nil
	}
}
