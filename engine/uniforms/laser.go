package uniforms

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULaserUniformSource is the canonical WGSL definition of the LaserBeam and LaserUniform structs.
// Matches LaserUniform layout exactly (320 bytes).
//
//go:embed assets/laser_uniform.wgsl
var GPULaserUniformSource string

// laserPalette is indexed by stage; later stages wrap around.
var laserPalette = [...]mgl32.Vec3{
	{1.0, 0.15, 0.1},
	{0.2, 1.0, 0.3},
	{0.3, 0.5, 1.0},
	{1.0, 0.9, 0.3},
}

// LaserBeam is one beam of the laser uniform: a clip-space transform and an RGBA color.
// Size: 80 bytes.
type LaserBeam struct {
	Transform [16]float32 // offset 0: view_proj * model (mat4x4<f32>)
	Color     [4]float32  // offset 64: rgb plus intensity in alpha (vec4<f32>)
}

// LaserUniform packs a full volley for the laser pipeline. Matches the WGSL LaserUniform struct
// (see GPULaserUniformSource).
// Size: 320 bytes.
type LaserUniform struct {
	Beams [model.LaserCount]LaserBeam // offset 0: array<LaserBeam, 4>
}

// NewLaserUniform combines the camera matrix with a volley from model.LaserVolley. Beams beyond
// model.LaserCount are ignored and missing beams stay zero, which the shader discards.
//
// Parameters:
//   - viewProj: the camera view-projection matrix (column-major)
//   - beams: the beam instances
//
// Returns:
//   - LaserUniform: the packed uniform
func NewLaserUniform(viewProj [16]float32, beams []model.Instance) LaserUniform {
	var u LaserUniform
	vp := mgl32.Mat4(viewProj)
	for i, b := range beams {
		if i >= len(u.Beams) {
			break
		}
		stage := int(b.TexOffset.Y())
		if stage < 0 {
			stage = 0
		}
		rgb := laserPalette[stage%len(laserPalette)]
		u.Beams[i] = LaserBeam{
			Transform: [16]float32(vp.Mul4(b.Matrix())),
			Color:     [4]float32{rgb.X(), rgb.Y(), rgb.Z(), b.TexOffset.X()},
		}
	}
	return u
}

// Size returns the size of the LaserUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (320)
func (u *LaserUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the LaserUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u *LaserUniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, b := range u.Beams {
		for _, v := range b.Transform {
			put(v)
		}
		for _, v := range b.Color {
			put(v)
		}
	}
	return buf
}
