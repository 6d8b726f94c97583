package model

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// CDCount is the number of CDs in the field. The last one is the hero CD pinned in front of
	// the camera.
	CDCount = 100
	// CDSeed seeds the field layout and respawn positions.
	CDSeed = 0x4375746552616363
)

var (
	xAxis = mgl32.Vec3{1, 0, 0}
	yAxis = mgl32.Vec3{0, 1, 0}
	zAxis = mgl32.Vec3{0, 0, 1}
)

// CDField is a cloud of spinning CDs flying towards the camera.
type CDField struct {
	rng       *rand.Rand
	instances []Instance
}

// NewCDField lays out the field from CDSeed.
func NewCDField() *CDField {
	return NewCDFieldWithSeed(CDSeed)
}

// NewCDFieldWithSeed lays out the field from seed. CDs start in x [-30,30), y [-16,16) and
// z [-25,0), rotated 3 degrees per index about z.
func NewCDFieldWithSeed(seed int64) *CDField {
	f := &CDField{
		rng:       rand.New(rand.NewSource(seed)),
		instances: make([]Instance, CDCount),
	}
	for i := range f.instances {
		f.instances[i] = Instance{
			Position: mgl32.Vec3{
				f.uniform(-30, 30),
				f.uniform(-16, 16),
				f.uniform(-25, 0),
			},
			Rotation: mgl32.QuatRotate(mgl32.DegToRad(float32(i)*3), zAxis),
			Scale:    mgl32.Vec3{1, 1, 1},
		}
	}
	return f
}

func (f *CDField) uniform(lo, hi float32) float32 {
	return lo + (hi-lo)*f.rng.Float32()
}

// Update advances the field. Every CD but the hero moves 10 units per second towards the camera
// and respawns in z [-40,-20) once it reaches z = 0. The hero sits at (0,0,7.5) and wobbles.
//
// Parameters:
//   - dt: the frame delta time in seconds
//   - t: seconds since start
func (f *CDField) Update(dt, t float64) {
	tf := float32(t)
	last := len(f.instances) - 1
	for i := 0; i < last; i++ {
		cd := &f.instances[i]
		cd.Position[2] += float32(10 * dt)
		if cd.Position.Z() >= 0 {
			cd.Position[2] = f.uniform(-40, -20)
		}
		cd.Rotation = mgl32.QuatRotate(float32(i)+tf, xAxis).Mul(mgl32.QuatRotate(float32(i)-tf, yAxis))
	}

	hero := &f.instances[last]
	hero.Position = mgl32.Vec3{0, 0, 7.5}
	hero.Rotation = mgl32.QuatRotate(float32(math.Cos(t)), xAxis).Mul(mgl32.QuatRotate(float32(math.Sin(t)), yAxis))
}

// Instances returns the field's instances. The slice is owned by the field.
func (f *CDField) Instances() []Instance {
	return f.instances
}
