package pipeline

import (
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithShaders sets the vertex and fragment stages of a render pipeline.
//
// Parameters:
//   - vertex: the vertex stage
//   - fragment: the fragment stage
//
// Returns:
//   - PipelineBuilderOption: a function that sets both stages
func WithShaders(vertex, fragment shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = vertex
		p.fragmentShader = fragment
	}
}

// WithComputeShader sets the stage of a compute pipeline.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithColorFormat sets the color target format. Pipelines drawing into offscreen targets use the
// target format; the zero value selects the surface format.
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithDepth enables a less-than depth test with depth writes. The pipeline must then draw into a
// target with a depth attachment.
func WithDepth(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depth = enabled
	}
}

// WithBlend selects how fragments combine with the target.
//
// Parameters:
//   - blend: the blend mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend mode
func WithBlend(blend Blend) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blend = blend
	}
}
