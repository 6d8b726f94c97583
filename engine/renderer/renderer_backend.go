package renderer

import (
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ClearBlack is the clear color used by passes that clear their target.
var ClearBlack = wgpu.Color{R: 0, G: 0, B: 0, A: 1}

// DrawCommand describes one indexed, instanced draw inside a render pass.
type DrawCommand struct {
	// PipelineKey names a registered render pipeline.
	PipelineKey string
	// Mesh holds the vertex buffer (slot 0) and index buffer.
	Mesh bind_group_provider.BindGroupProvider
	// Instances holds the per-instance vertex buffer bound at slot 1. Nil for pipelines without
	// an InstanceInput.
	Instances bind_group_provider.BindGroupProvider
	// IndexStart and IndexCount select the index range. A zero IndexCount draws the whole mesh.
	IndexStart, IndexCount uint32
	// FirstInstance and InstanceCount select the instance range.
	FirstInstance, InstanceCount uint32
	// BindGroups are set at group index = slice position. Nil entries are skipped.
	BindGroups []bind_group_provider.BindGroupProvider
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
