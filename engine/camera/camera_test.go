package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project maps a world point to normalized device coordinates.
func project(vp [16]float32, p mgl32.Vec3) mgl32.Vec3 {
	clip := mgl32.Mat4(vp).Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

func TestViewProjectionDepthRange(t *testing.T) {
	c := NewCamera()
	vp := c.ViewProjectionMatrix()

	near := project(vp, mgl32.Vec3{0, 0, 10 - 0.1})
	far := project(vp, mgl32.Vec3{0, 0, 10 - 100})
	target := project(vp, mgl32.Vec3{})

	assert.InDelta(t, 0, near.Z(), 1e-4)
	assert.InDelta(t, 1, far.Z(), 1e-4)
	assert.InDelta(t, 0, target.X(), 1e-6)
	assert.InDelta(t, 0, target.Y(), 1e-6)
	assert.Greater(t, target.Z(), float32(0))
	assert.Less(t, target.Z(), float32(1))
}

func TestSetSizeUpdatesAspect(t *testing.T) {
	c := NewCamera()
	before := c.ViewProjectionMatrix()

	c.SetSize(800, 0)
	assert.Equal(t, before, c.ViewProjectionMatrix(), "zero height is ignored")

	c.SetSize(1000, 500)
	assert.Equal(t, float32(2), c.Aspect())
	assert.NotEqual(t, before, c.ViewProjectionMatrix())

	// a point on the right edge of a 2:1 view
	p := project(c.ViewProjectionMatrix(), mgl32.Vec3{1, 0, 0})
	assert.Greater(t, p.X(), float32(0))
}

func TestCameraOptions(t *testing.T) {
	c := NewCamera(WithEye(mgl32.Vec3{0, 5, 5}), WithTarget(mgl32.Vec3{0, 0, 0}), WithAspect(-1), WithClip(1, 10))
	assert.Equal(t, mgl32.Vec3{0, 5, 5}, c.Eye())
	assert.InDelta(t, 16.0/9.0, c.Aspect(), 1e-6)
	assert.Equal(t, float32(1), c.Near())
	assert.Equal(t, float32(10), c.Far())

	c.SetEye(mgl32.Vec3{0, 0, 20})
	assert.InDelta(t, 0, project(c.ViewProjectionMatrix(), mgl32.Vec3{}).Y(), 1e-6)
}

func TestCameraUniform(t *testing.T) {
	c := NewCamera()
	u := c.Uniform()
	assert.Equal(t, 64, u.Size())
	assert.Equal(t, c.ViewProjectionMatrix(), u.ViewProj)

	w := c.Write()
	assert.Equal(t, 0, w.Binding)
	assert.Len(t, w.Data, 64)
	assert.Same(t, c.BindGroupProvider(), w.Provider)

	s := shader.NewShader("camera_probe", shader.ShaderTypeVertex, GPUCameraUniformSource+`
@group(0) @binding(0) var<uniform> camera: CameraUniform;
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return camera.view_proj * vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`)
	size, ok := s.StructSize("CameraUniform")
	require.True(t, ok)
	assert.Equal(t, uint64(u.Size()), size)
}
