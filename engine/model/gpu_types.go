package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for quad meshes.
// Matches GPUVertex layout exactly (20 bytes, tightly packed vertex attributes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is a single mesh vertex.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 20 bytes.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	TexCoord [2]float32 // offset 12: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.TexCoord[1]))
	return buf
}

// GPUInstanceSource is the canonical WGSL definition of the InstanceInput struct.
// Matches GPUInstance layout exactly (76 bytes, tightly packed instance attributes).
//
//go:embed assets/instance.wgsl
var GPUInstanceSource string

// GPUInstance is the raw per-instance record bound at vertex buffer slot 1.
// Matches the WGSL InstanceInput struct layout exactly (see GPUInstanceSource).
// Size: 76 bytes.
type GPUInstance struct {
	Model     [16]float32 // offset  0: column-major model matrix (64 bytes)
	TexOffset [2]float32  // offset 64: texture coordinate offset (8 bytes)
	Facing    float32     // offset 72: dot of +Z with the rotated +Z axis (4 bytes)
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 76-byte buffer ready for GPU upload.
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, 76)
	g.marshalTo(buf)
	return buf
}

func (g *GPUInstance) marshalTo(buf []byte) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(g.TexOffset[0]))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(g.TexOffset[1]))
	binary.LittleEndian.PutUint32(buf[72:76], math.Float32bits(g.Facing))
}

// MarshalVertices packs vertices back to back.
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, 0, len(vertices)*20)
	for i := range vertices {
		buf = append(buf, vertices[i].Marshal()...)
	}
	return buf
}
