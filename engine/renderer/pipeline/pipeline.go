package pipeline

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// Blend is the color blend a render pipeline applies.
type Blend int

const (
	// BlendNone overwrites the target.
	BlendNone Blend = iota
	// BlendAlpha is source-over with premultiplied destination alpha.
	BlendAlpha
	// BlendAdditive adds source to destination, used for glowing beams.
	BlendAdditive
)

var blendStates = map[Blend]*wgpu.BlendState{
	BlendAlpha: {
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
	},
	BlendAdditive: {
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
	},
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	// render state; compute pipelines ignore it
	colorFormat wgpu.TextureFormat
	depth       bool
	blend       Blend
}

// Pipeline is a render pipeline (vertex + fragment) or a compute pipeline together with the
// fixed-function state the backend needs to create it. Every render pipeline draws triangle
// lists without culling; fullscreen quads and CDs are both seen from either side.
type Pipeline interface {
	// Type returns whether this is a render or compute pipeline.
	Type() PipelineType

	// PipelineKey returns the unique key the renderer caches the pipeline under.
	PipelineKey() string

	// Shader retrieves the stage of the given type, or nil.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the stage or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the GPU object, *wgpu.RenderPipeline or *wgpu.ComputePipeline, after
	// registration.
	Pipeline() any

	// ColorFormat returns the color target format, or wgpu.TextureFormatUndefined when the
	// pipeline draws to the surface.
	ColorFormat() wgpu.TextureFormat

	// HasDepth reports whether the pipeline tests and writes depth and therefore must draw into
	// a target with a depth attachment.
	HasDepth() bool

	// Blend returns the blend mode.
	Blend() Blend

	// BlendState returns the GPU blend state for the blend mode, nil for BlendNone.
	BlendState() *wgpu.BlendState

	// PrimitiveState returns the rasterizer state shared by every render pipeline.
	PrimitiveState() wgpu.PrimitiveState

	// BindGroupLayoutDescriptors returns the layout descriptors the pipeline layout is built from.
	// Render pipelines merge the vertex and fragment shader descriptors; compute pipelines return
	// the compute shader's.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptor returns the descriptor for one group. Bind groups shared across
	// pipelines must be created from it so their layouts match the pipeline layout.
	//
	// Parameters:
	//   - group: the group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// SetRenderPipeline stores the created render pipeline.
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an unregistered pipeline. Render pipelines default to the surface format,
// no depth and no blending.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: render or compute
//   - opts: builder options
//
// Returns:
//   - Pipeline: the pipeline
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) HasDepth() bool {
	return p.depth
}

func (p *pipeline) Blend() Blend {
	return p.blend
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return blendStates[p.blend]
}

func (p *pipeline) PrimitiveState() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	var stages []shader.Shader
	switch p.pipelineType {
	case PipelineTypeCompute:
		stages = []shader.Shader{p.computeShader}
	case PipelineTypeRender:
		stages = []shader.Shader{p.vertexShader, p.fragmentShader}
	}

	var merged map[int]wgpu.BindGroupLayoutDescriptor
	for _, s := range stages {
		if s != nil {
			merged = MergeBindGroupLayouts(merged, s.BindGroupLayoutDescriptors())
		}
	}
	return merged
}

func (p *pipeline) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return p.BindGroupLayoutDescriptors()[group]
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

// MergeBindGroupLayouts unions two sets of layout descriptors. Entries with the same group and
// binding have their visibilities ORed; every group's entries come back sorted by binding.
//
// Parameters:
//   - a, b: descriptors keyed by group index, either may be nil
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors
func MergeBindGroupLayouts(a, b map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	entries := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	labels := make(map[int]string)
	for _, set := range []map[int]wgpu.BindGroupLayoutDescriptor{a, b} {
		for group, desc := range set {
			if entries[group] == nil {
				entries[group] = make(map[uint32]wgpu.BindGroupLayoutEntry)
				labels[group] = desc.Label
			}
			for _, e := range desc.Entries {
				if existing, ok := entries[group][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					e = existing
				}
				entries[group][e.Binding] = e
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, byBinding := range entries {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		merged[group] = wgpu.BindGroupLayoutDescriptor{Label: labels[group], Entries: list}
	}
	return merged
}
