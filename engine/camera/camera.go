package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Camera is a fixed look-at perspective camera. Matrices are recomputed whenever a parameter
// changes and the uniform carries OpenGLToWGPU * projection * view.
type Camera interface {
	// Eye returns the camera position.
	Eye() mgl32.Vec3

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current OpenGL-convention projection matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns OpenGLToWGPU * projection * view (column-major).
	//
	// Returns:
	//   - [16]float32: the combined matrix
	ViewProjectionMatrix() [16]float32

	// Uniform returns the GPU record for the current matrices.
	Uniform() GPUCameraUniform

	// Write returns the buffer write that uploads the uniform to binding 0 of the camera's
	// provider.
	Write() bind_group_provider.BufferWrite

	// BindGroupProvider returns the camera's bind group provider for GPU resources.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetEye moves the camera.
	//
	// Parameters:
	//   - eye: the new position
	SetEye(eye mgl32.Vec3)

	// SetTarget changes the look-at point.
	//
	// Parameters:
	//   - target: the new target
	SetTarget(target mgl32.Vec3)

	// SetAspect sets the aspect ratio and recomputes matrices. Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetSize sets the aspect ratio from a surface size. A zero dimension is ignored.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	SetSize(width, height int)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at (0,0,10) looking at the origin with +Y up, a 45 degree vertical
// field of view, aspect 16:9 and clip planes 0.1 and 100.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                &sync.Mutex{},
		eye:               mgl32.Vec3{0, 0, 10},
		up:                mgl32.Vec3{0, 1, 0},
		fov:               45.0 * (math.Pi / 180.0),
		aspect:            16.0 / 9.0,
		near:              0.1,
		far:               100.0,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider("Camera"),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{ViewProj: c.viewProjectionMatrix}
}

func (c *cameraImpl) Write() bind_group_provider.BufferWrite {
	u := c.Uniform()
	return bind_group_provider.BufferWrite{
		Provider: c.bindGroupProvider,
		Binding:  0,
		Data:     u.Marshal(),
	}
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return c.bindGroupProvider
}

func (c *cameraImpl) SetEye(eye mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = eye
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.SetAspect(float32(width) / float32(height))
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.eye, c.target, c.up)
	common.PerspectiveGL(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)

	var vp [16]float32
	common.Mul4(vp[:], c.projectionMatrix[:], c.viewMatrix[:])
	common.Mul4(c.viewProjectionMatrix[:], common.OpenGLToWGPU[:], vp[:])
}
