package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader is compiled for.
type ShaderType int

const (
	// ShaderTypeCompute is a @compute stage.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is a @vertex stage.
	ShaderTypeVertex

	// ShaderTypeFragment is a @fragment stage.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface. Everything is derived once from the
// expanded source in NewShader.
type shader struct {
	key        string
	shaderType ShaderType
	includes   map[string]string

	source     string
	wgsl       *wgslModule
	entryPoint string
	module     *wgpu.ShaderModuleDescriptor

	bindGroups    map[int]wgpu.BindGroupLayoutDescriptor
	vertexLayouts []wgpu.VertexBufferLayout
	workgroupSize [3]uint32
}

// Shader is one stage of a WGSL program with the layout metadata the renderer needs to build
// pipelines and bind groups without hand-written descriptors.
type Shader interface {
	// Key returns the shader's unique label.
	Key() string

	// ShaderType returns the stage this shader was parsed for.
	ShaderType() ShaderType

	// Source returns the WGSL source after include expansion.
	Source() string

	// EntryPoint returns the name of the stage's entry function (e.g. "vs_main").
	EntryPoint() string

	// Module returns the shader module descriptor passed to the device.
	Module() *wgpu.ShaderModuleDescriptor

	// BindGroupLayoutDescriptor returns the layout for one @group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every group's layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// VertexLayouts returns the vertex buffer layouts in slot order: per-vertex inputs first,
	// InstanceInput last. Empty for non-vertex stages.
	VertexLayouts() []wgpu.VertexBufferLayout

	// WorkgroupSize returns @workgroup_size with omitted dimensions set to 1. Zero for
	// non-compute stages.
	WorkgroupSize() [3]uint32

	// StructSize returns the WGSL byte size of a struct declared in the shader.
	//
	// Parameters:
	//   - name: the struct name
	//
	// Returns:
	//   - uint64: the struct size including trailing padding
	//   - bool: false if the struct is unknown or has an unresolvable field
	StructSize(name string) (uint64, bool)
}

var _ Shader = &shader{}

// NewShader expands include lines in source and parses it for shaderType. A source that cannot
// be expanded or has no entry point for shaderType panics: shader text is compiled-in and a
// failure is a programming error.
//
// Parameters:
//   - key: a unique label, also used for the GPU module
//   - shaderType: the stage to parse for
//   - source: the WGSL source
//   - options: builder options
//
// Returns:
//   - Shader: the parsed shader
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s has no source", key))
	}
	s := &shader{key: key, shaderType: shaderType}
	for _, opt := range options {
		opt(s)
	}

	expanded, err := NewPreProcessor(s.includes).Process(source)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to expand %s: %v", key, err))
	}
	s.source = expanded
	s.wgsl = scanModule(expanded)
	s.entryPoint = s.wgsl.entryPoint(shaderType)
	if s.entryPoint == "" {
		panic(fmt.Sprintf("shader: %s has no entry point for shader type %d", key, shaderType))
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: expanded},
	}

	// Vertex and fragment stages share one visibility so a bind group created from either
	// stage's layout is compatible with every render pipeline.
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	switch shaderType {
	case ShaderTypeVertex:
		s.vertexLayouts = s.wgsl.vertexLayouts()
	case ShaderTypeCompute:
		s.workgroupSize = s.wgsl.workgroupSize()
		visibility = wgpu.ShaderStageCompute
	}
	s.bindGroups = s.wgsl.bindGroups(visibility)
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroups
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workgroupSize
}

func (s *shader) StructSize(name string) (uint64, bool) {
	return s.wgsl.structSize(name)
}
