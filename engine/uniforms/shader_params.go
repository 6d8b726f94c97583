// Package uniforms holds the per-frame parameter records shared by the fragment shaders:
// the background, foreground and final ShaderParams and the laser beam uniform.
package uniforms

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
)

// GPUShaderParamsSource is the canonical WGSL definition of the ShaderParams struct.
// Matches ShaderParams layout exactly (16 bytes).
//
//go:embed assets/shader_params.wgsl
var GPUShaderParamsSource string

// Background shader functions selected through ShaderParams.Function.
const (
	BgNone      int32 = 0
	BgStarfield int32 = 1
	BgOcean     int32 = 2
	BgSmoke     int32 = 3
)

// ShaderParams is the GPU-aligned parameter block read by the background, foreground and final
// fragment shaders. Matches the WGSL ShaderParams struct (see GPUShaderParamsSource).
// Size: 16 bytes.
type ShaderParams struct {
	Function   int32   // offset 0: shader_function (i32)
	T          float32 // offset 4: t (f32)
	X          float32 // offset 8: x (f32)
	Transition float32 // offset 12: transition (f32)
}

// Size returns the size of the ShaderParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (p *ShaderParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the ShaderParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (p *ShaderParams) Marshal() []byte {
	buf := make([]byte, p.Size())
	binary.LittleEndian.PutUint32(buf[0:], uint32(p.Function))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.T))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.X))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(p.Transition))
	return buf
}

// FinalParams builds the parameters for the final compositing pass.
//
// Parameters:
//   - tr: the active transition; its code selects the blend function
//   - progress: the transition progress from Transition.Progress
//   - t: seconds since the show started
//   - sinceBeat: seconds since the last beat
//
// Returns:
//   - ShaderParams: the final pass parameters
func FinalParams(tr show.Transition, progress, t, sinceBeat float64) ShaderParams {
	return ShaderParams{
		Function:   tr.Code(),
		T:          float32(t),
		X:          float32(sinceBeat),
		Transition: float32(progress),
	}
}

// BackgroundFunction maps a scene to its procedural background.
func BackgroundFunction(s show.Scene) int32 {
	switch s.(type) {
	case show.Slide, show.Black, show.CDs:
		return BgNone
	case show.StarWars:
		return BgStarfield
	case show.Ocean:
		return BgOcean
	case show.Smoke:
		return BgSmoke
	default:
		panic(fmt.Sprintf("uniforms: unhandled scene %T", s))
	}
}

// SceneStage returns the stage carried by a scene, or 0 for scenes without one.
func SceneStage(s show.Scene) int {
	switch v := s.(type) {
	case show.Slide, show.Black:
		return 0
	case show.CDs:
		return v.Stage
	case show.StarWars:
		return v.Stage
	case show.Ocean:
		return v.Stage
	case show.Smoke:
		return v.Stage
	default:
		panic(fmt.Sprintf("uniforms: unhandled scene %T", s))
	}
}

// BackgroundParams builds the parameters for the scene background. X carries the scene stage and
// Transition the time since the last beat.
//
// Parameters:
//   - s: the active scene
//   - t: seconds since the show started
//   - sinceBeat: seconds since the last beat
//
// Returns:
//   - ShaderParams: the background parameters
func BackgroundParams(s show.Scene, t, sinceBeat float64) ShaderParams {
	return ShaderParams{
		Function:   BackgroundFunction(s),
		T:          float32(t),
		X:          float32(SceneStage(s)),
		Transition: float32(sinceBeat),
	}
}

// PatternPulse is the foreground flash that decays after each pattern change.
func PatternPulse(patternTime float64) float32 {
	return float32(-0.1 + 1.0/(patternTime*4.0+0.2))
}

// ForegroundParams builds the foreground parameters with the pattern pulse in X.
//
// Parameters:
//   - t: seconds since the show started
//   - patternTime: seconds since the pattern last changed
//
// Returns:
//   - ShaderParams: the foreground parameters
func ForegroundParams(t, patternTime float64) ShaderParams {
	return ShaderParams{
		T: float32(t),
		X: PatternPulse(patternTime),
	}
}
