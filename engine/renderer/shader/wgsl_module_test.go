package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadSource = `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) uv: vec2<f32>,
}

struct InstanceInput {
    @location(5) model_0: vec4<f32>,
    @location(6) model_1: vec4<f32>,
    @location(7) model_2: vec4<f32>,
    @location(8) model_3: vec4<f32>,
    @location(9) tex_offset: vec2<f32>,
    @location(10) dot: f32,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

//@oxy:include Params

@group(0) @binding(0) var t_diffuse: texture_2d<f32>;
@group(0) @binding(1) var s_diffuse: sampler;
@group(1) @binding(0) var<uniform> params: Params;

@vertex
fn vs_main(v: VertexInput, i: InstanceInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4<f32>(v.position, 1.0);
    out.uv = v.uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(t_diffuse, s_diffuse, in.uv);
}
`

const paramsSource = `struct Params {
    shader_function: i32,
    t: f32,
    x: f32,
    transition: f32,
}`

const volumeSource = `
struct ComputeParams {
    step: i32,
    delta_time: f32,
    time: f32,
    modulation: f32,
}

@group(0) @binding(0) var field_in: texture_3d<f32>;
@group(0) @binding(2) var field_out: texture_storage_3d<rgba32float, write>;
@group(0) @binding(4) var packed: texture_storage_3d<rgba32uint, write>;
@group(1) @binding(0) var<uniform> params: ComputeParams;

@compute @workgroup_size(8, 8, 4)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

func includes() map[string]string {
	return map[string]string{"Params": paramsSource}
}

func TestVertexLayoutsInstanceLast(t *testing.T) {
	s := NewShader("quad", ShaderTypeVertex, quadSource, WithIncludes(includes()))

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 2)

	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	assert.Equal(t, uint64(20), layouts[0].ArrayStride)
	assert.Len(t, layouts[0].Attributes, 2)

	assert.Equal(t, wgpu.VertexStepModeInstance, layouts[1].StepMode)
	assert.Equal(t, uint64(76), layouts[1].ArrayStride)
	assert.Equal(t, uint32(5), layouts[1].Attributes[0].ShaderLocation)
	assert.Equal(t, uint64(72), layouts[1].Attributes[5].Offset)
}

func TestRenderVisibilityCoversBothStages(t *testing.T) {
	vs := NewShader("quad", ShaderTypeVertex, quadSource, WithIncludes(includes()))
	fs := NewShader("quad", ShaderTypeFragment, quadSource, WithIncludes(includes()))

	assert.Equal(t, vs.BindGroupLayoutDescriptors(), fs.BindGroupLayoutDescriptors())

	g0 := vs.BindGroupLayoutDescriptor(0)
	require.Len(t, g0.Entries, 2)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, g0.Entries[0].Visibility)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, g0.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, g0.Entries[1].Sampler.Type)

	g1 := vs.BindGroupLayoutDescriptor(1)
	require.Len(t, g1.Entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, g1.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(16), g1.Entries[0].Buffer.MinBindingSize)

	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "fs_main", fs.EntryPoint())
}

func TestComputeLayouts(t *testing.T) {
	s := NewShader("volume", ShaderTypeCompute, volumeSource)

	assert.Equal(t, [3]uint32{8, 8, 4}, s.WorkgroupSize())
	assert.Equal(t, "cs_main", s.EntryPoint())

	g0 := s.BindGroupLayoutDescriptor(0)
	require.Len(t, g0.Entries, 3)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, g0.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension3D, g0.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureFormatRGBA32Float, g0.Entries[1].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, g0.Entries[1].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureFormatRGBA32Uint, g0.Entries[2].StorageTexture.Format)
	assert.Equal(t, wgpu.ShaderStageCompute, g0.Entries[0].Visibility)

	size, ok := s.StructSize("ComputeParams")
	require.True(t, ok)
	assert.Equal(t, uint64(16), size)
}

func TestStructLayoutPadding(t *testing.T) {
	m := scanModule(`struct Lasers { beams: array<Beam, 4>, }
struct Beam { transform: mat4x4<f32>, color: vec4f, }
struct Odd { a: f32, b: vec3<f32>, }
struct Tail { n: u32, items: array<vec2u>, }
struct Broken { x: Missing, }`)

	for name, want := range map[string]uint64{"Beam": 80, "Lasers": 320, "Odd": 32, "Tail": 16} {
		got, ok := m.structSize(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := m.structSize("Broken")
	assert.False(t, ok)
}

func TestPreProcessor(t *testing.T) {
	pp := NewPreProcessor(includes())

	out, err := pp.Process("//@oxy:include Params\n  //@oxy:include Params\nfn f() {}")
	require.NoError(t, err)
	assert.Contains(t, out, "shader_function: i32")
	assert.Equal(t, []string{"Params"}, pp.Included())

	_, err = pp.Process("//@oxy:include Missing")
	assert.ErrorContains(t, err, "unknown include")

	_, err = pp.Process("//@oxy:include")
	assert.ErrorContains(t, err, "exactly one name")
}

func TestNewShaderPanicsWithoutEntryPoint(t *testing.T) {
	assert.Panics(t, func() {
		NewShader("broken", ShaderTypeCompute, quadSource, WithIncludes(includes()))
	})
	assert.Panics(t, func() {
		NewShader("empty", ShaderTypeVertex, "")
	})
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // tail\ne"
	assert.Equal(t, "a  d \ne", uncomment(src))
	assert.Equal(t, "x ", uncomment("x // trailing"))
}

func TestVertexFormat(t *testing.T) {
	tests := []struct {
		name   string
		format wgpu.VertexFormat
		size   uint64
		ok     bool
	}{
		{"f32", wgpu.VertexFormatFloat32, 4, true},
		{"vec2<f32>", wgpu.VertexFormatFloat32x2, 8, true},
		{"vec3f", wgpu.VertexFormatFloat32x3, 12, true},
		{"vec4<u32>", wgpu.VertexFormatUint32x4, 16, true},
		{"vec2i", wgpu.VertexFormatSint32x2, 8, true},
		{"bool", wgpu.VertexFormatUndefined, 0, false},
		{"mat4x4<f32>", wgpu.VertexFormatUndefined, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, size, ok := vertexFormat(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.size, size)
		})
	}
}
