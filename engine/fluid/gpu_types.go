package fluid

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUComputeParamsSource is the canonical WGSL definition of the ComputeParams struct.
// Matches GPUComputeParams layout exactly (16 bytes).
//
//go:embed assets/compute_params.wgsl
var GPUComputeParamsSource string

// GPUComputeParams is the per-slot uniform read by the smoke compute shader.
// Size: 16 bytes.
type GPUComputeParams struct {
	Step       int32   // offset  0: slot index, selects the shader stage
	DeltaTime  float32 // offset  4: frame delta time in seconds
	Time       float32 // offset  8: seconds since start
	Modulation float32 // offset 12: impulse strength in [0, 1]
}

// Size returns the size of the GPUComputeParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUComputeParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUComputeParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUComputeParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(g.Step))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.DeltaTime))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Time))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Modulation))
	return buf
}
