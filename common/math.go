package common

import (
	"math"
	"unsafe"
)

// OpenGLToWGPU remaps OpenGL clip space (z in [-1, 1]) to WebGPU clip space (z in [0, 1]).
// Column-major, applied as OpenGLToWGPU * proj * view.
var OpenGLToWGPU = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input and must not outlive it.
//
// Parameters:
//   - data: source slice of any fixed-size element type
//
// Returns:
//   - []byte: byte view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// Mul4 multiplies two column-major 4x4 matrices: out = a * b.
// out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			buf[col*4+row] = sum
		}
	}
	copy(out, buf[:])
}

// PerspectiveGL builds an OpenGL-convention perspective projection (clip z in [-1, 1]).
// Combine with OpenGLToWGPU before uploading.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func PerspectiveGL(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	for i := range out[:16] {
		out[i] = 0
	}
	out[0] = f / aspect
	out[5] = f
	out[10] = (far + near) / (near - far)
	out[11] = -1
	out[14] = (2 * far * near) / (near - far)
}

// LookAt creates a right-handed view matrix that transforms world coordinates to view space.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation
func LookAt(out []float32, eye, center, up [3]float32) {
	f := normalize3([3]float32{center[0] - eye[0], center[1] - eye[1], center[2] - eye[2]})
	s := normalize3(cross3(f, up))
	u := cross3(s, f)

	out[0], out[4], out[8], out[12] = s[0], s[1], s[2], -dot3(s, eye)
	out[1], out[5], out[9], out[13] = u[0], u[1], u[2], -dot3(u, eye)
	out[2], out[6], out[10], out[14] = -f[0], -f[1], -f[2], dot3(f, eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

// CeilDiv returns the smallest integer q with q*d >= n. d must be non-zero.
func CeilDiv(n, d uint32) uint32 {
	return (n + d - 1) / d
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize3(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(dot3(v, v))))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
