package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LaserCount is the number of beams in a volley.
const LaserCount = 4

// LaserVolley returns the beams of the StarWars scene. Beams lie flat in the xz plane and race
// from the camera into the starfield in staggered pairs. TexOffset carries the beam intensity in
// x, which peaks on the beat, and the stage in y.
//
// Parameters:
//   - t: seconds since start
//   - sinceBeat: seconds since the last beat
//   - stage: the StarWars stage
//
// Returns:
//   - []Instance: LaserCount beams
func LaserVolley(t, sinceBeat float64, stage int) []Instance {
	speed := 0.5 + 0.25*float64(stage)
	intensity := float32(math.Max(0.2, 1-sinceBeat*2))
	flat := mgl32.QuatRotate(-math.Pi/2, xAxis)

	beams := make([]Instance, LaserCount)
	for i := range beams {
		phase := t*speed + float64(i)*0.25
		phase -= math.Floor(phase)

		side := float32(1)
		if i%2 == 0 {
			side = -1
		}
		row := float32(i / 2)
		beams[i] = Instance{
			Position: mgl32.Vec3{
				side * (3 + 2*row),
				-2 + 1.5*row,
				float32(-5 - phase*60),
			},
			Rotation:  flat,
			Scale:     mgl32.Vec3{0.1, 1, 3},
			TexOffset: mgl32.Vec2{intensity, float32(stage)},
		}
	}
	return beams
}
