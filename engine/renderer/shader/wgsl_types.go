package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the byte size and alignment of a WGSL type in host-shareable memory.
type typeLayout struct {
	size  uint64
	align uint64
}

// stride is the array element stride of the type.
func (l typeLayout) stride() uint64 {
	return alignUp(l.size, l.align)
}

// alignUp rounds n up to a multiple of a. a must be zero or a power of two.
func alignUp(n, a uint64) uint64 {
	if a == 0 {
		return n
	}
	return (n + a - 1) &^ (a - 1)
}

// scalarKind is the component type of a WGSL scalar, vector or matrix.
type scalarKind int

const (
	scalarNone scalarKind = iota
	scalarFloat
	scalarSint
	scalarUint
	scalarBool
)

var scalarNames = map[string]scalarKind{
	"f32":  scalarFloat,
	"i32":  scalarSint,
	"u32":  scalarUint,
	"bool": scalarBool,
}

var scalarSuffixes = map[byte]scalarKind{
	'f': scalarFloat,
	'i': scalarSint,
	'u': scalarUint,
}

// numericType is a decoded scalar, vector (cols == 1) or matrix type.
type numericType struct {
	kind scalarKind
	rows int
	cols int
}

// parseNumeric decodes f32, vec3<f32>, vec3f, mat4x4<f32> and mat4x4f. Anything else reports
// false.
func parseNumeric(name string) (numericType, bool) {
	if k, ok := scalarNames[name]; ok {
		return numericType{kind: k, rows: 1, cols: 1}, true
	}

	base, param := splitTypeParams(name)
	var kind scalarKind
	if param != "" {
		kind = scalarNames[param]
	} else if n := len(base); n > 0 {
		kind = scalarSuffixes[base[n-1]]
		base = base[:n-1]
	}
	if kind == scalarNone {
		return numericType{}, false
	}

	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		n := int(base[3] - '0')
		if n < 2 || n > 4 {
			return numericType{}, false
		}
		return numericType{kind: kind, rows: n, cols: 1}, true
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		c, r := int(base[3]-'0'), int(base[5]-'0')
		if c < 2 || c > 4 || r < 2 || r > 4 || kind != scalarFloat {
			return numericType{}, false
		}
		return numericType{kind: kind, rows: r, cols: c}, true
	}
	return numericType{}, false
}

// layout applies the WGSL alignment rules: vec2 aligns to 8, vec3 and vec4 to 16, and a
// matrix is an array of column vectors.
func (n numericType) layout() typeLayout {
	column := typeLayout{size: uint64(n.rows) * 4, align: 4}
	switch n.rows {
	case 2:
		column.align = 8
	case 3, 4:
		column.align = 16
	}
	if n.cols == 1 {
		return column
	}
	return typeLayout{size: uint64(n.cols) * column.stride(), align: column.align}
}

var vertexFormats = map[scalarKind][5]wgpu.VertexFormat{
	scalarFloat: {1: wgpu.VertexFormatFloat32, 2: wgpu.VertexFormatFloat32x2, 3: wgpu.VertexFormatFloat32x3, 4: wgpu.VertexFormatFloat32x4},
	scalarSint:  {1: wgpu.VertexFormatSint32, 2: wgpu.VertexFormatSint32x2, 3: wgpu.VertexFormatSint32x3, 4: wgpu.VertexFormatSint32x4},
	scalarUint:  {1: wgpu.VertexFormatUint32, 2: wgpu.VertexFormatUint32x2, 3: wgpu.VertexFormatUint32x3, 4: wgpu.VertexFormatUint32x4},
}

// vertexFormat maps a vertex attribute type to its format and tightly packed size.
func vertexFormat(name string) (wgpu.VertexFormat, uint64, bool) {
	n, ok := parseNumeric(name)
	if !ok || n.cols != 1 {
		return wgpu.VertexFormatUndefined, 0, false
	}
	formats, ok := vertexFormats[n.kind]
	if !ok {
		return wgpu.VertexFormatUndefined, 0, false
	}
	return formats[n.rows], uint64(n.rows) * 4, true
}

// arrayType splits array<T, N> into its element type and count. Runtime-sized arrays report
// count 0 and sized false.
func arrayType(name string) (elem string, count uint64, sized, ok bool) {
	base, param := splitTypeParams(name)
	if base != "array" || param == "" {
		return "", 0, false, false
	}
	elem, n, found := strings.Cut(param, ",")
	elem = strings.TrimSpace(elem)
	if !found {
		return elem, 0, false, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
	if err != nil {
		return "", 0, false, false
	}
	return elem, count, true, true
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types without
// parameters return an empty param.
func splitTypeParams(name string) (base, param string) {
	before, after, ok := strings.Cut(name, "<")
	if !ok {
		return name, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

var textureDimensions = map[string]wgpu.TextureViewDimension{
	"1d":       wgpu.TextureViewDimension1D,
	"2d":       wgpu.TextureViewDimension2D,
	"2d_array": wgpu.TextureViewDimension2DArray,
	"3d":       wgpu.TextureViewDimension3D,
}

var sampleTypes = map[scalarKind]wgpu.TextureSampleType{
	scalarFloat: wgpu.TextureSampleTypeFloat,
	scalarSint:  wgpu.TextureSampleTypeSint,
	scalarUint:  wgpu.TextureSampleTypeUint,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// texelFormats lists the storage texel formats the compositor and the smoke solver write.
var texelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32float":    wgpu.TextureFormatR32Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
}

// bindingEntry builds the layout entry for one resource declaration. addressSpace is the
// var<...> qualifier and is empty for textures and samplers.
func bindingEntry(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.HasSuffix(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		return entry
	case addressSpace != "":
		return entry
	}

	if typeName == "sampler" {
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		return entry
	}

	base, param := splitTypeParams(typeName)
	if dim, ok := strings.CutPrefix(base, "texture_storage_"); ok {
		entry.StorageTexture.ViewDimension = textureDimensions[dim]
		format, access, _ := strings.Cut(param, ",")
		entry.StorageTexture.Format = texelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = storageAccess[strings.TrimSpace(access)]
		return entry
	}
	if dim, ok := strings.CutPrefix(base, "texture_"); ok {
		entry.Texture.ViewDimension = textureDimensions[dim]
		entry.Texture.SampleType = sampleTypes[scalarNames[param]]
		// 32-bit float volumes are not filterable; compute stages read them with textureLoad.
		if visibility == wgpu.ShaderStageCompute && entry.Texture.SampleType == wgpu.TextureSampleTypeFloat {
			entry.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		}
	}
	return entry
}
