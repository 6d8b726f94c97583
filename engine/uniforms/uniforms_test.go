package uniforms

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeEntry = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

func wgslSize(t *testing.T, source, name string) uint64 {
	t.Helper()
	s := shader.NewShader(name+"_probe", shader.ShaderTypeFragment, source+probeEntry)
	size, ok := s.StructSize(name)
	require.True(t, ok, "struct %s", name)
	return size
}

func TestShaderParamsLayout(t *testing.T) {
	p := ShaderParams{Function: -2, T: 1.5, X: 0.25, Transition: 3}
	require.Equal(t, 16, p.Size())
	assert.Equal(t, uint64(p.Size()), wgslSize(t, GPUShaderParamsSource, "ShaderParams"))

	buf := p.Marshal()
	require.Len(t, buf, 16)
	assert.Equal(t, int32(-2), int32(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])))
}

func TestFinalParams(t *testing.T) {
	tests := []struct {
		name string
		tr   show.Transition
		code int32
	}{
		{"none", show.None{}, 0},
		{"fade", show.Fade{Duration: 1}, 1},
		{"slide", show.SlideTransition{}, 2},
		{"blink", show.Blink{}, 3},
		{"blink2", show.Blink2{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FinalParams(tt.tr, 0.5, 12, 0.1)
			assert.Equal(t, tt.code, p.Function)
			assert.Equal(t, float32(0.5), p.Transition)
			assert.Equal(t, float32(12), p.T)
			assert.InDelta(t, 0.1, p.X, 1e-7)
		})
	}
}

func TestBackgroundParams(t *testing.T) {
	tests := []struct {
		scene show.Scene
		fn    int32
		stage float32
	}{
		{show.Slide{Index: 3}, BgNone, 0},
		{show.Black{}, BgNone, 0},
		{show.CDs{Stage: 2}, BgNone, 2},
		{show.StarWars{Stage: 1}, BgStarfield, 1},
		{show.Ocean{Stage: 4}, BgOcean, 4},
		{show.Smoke{Stage: 2}, BgSmoke, 2},
	}
	for _, tt := range tests {
		t.Run(tt.scene.String(), func(t *testing.T) {
			p := BackgroundParams(tt.scene, 7, 0.3)
			assert.Equal(t, tt.fn, p.Function)
			assert.Equal(t, tt.stage, p.X)
			assert.Equal(t, float32(7), p.T)
			assert.InDelta(t, 0.3, p.Transition, 1e-7)
		})
	}
	assert.Panics(t, func() { BackgroundFunction(nil) })
}

func TestForegroundPulse(t *testing.T) {
	p := ForegroundParams(2, 0)
	assert.Equal(t, float32(2), p.T)
	assert.InDelta(t, 4.9, p.X, 1e-5, "pulse peaks on the pattern change")
	assert.Less(t, PatternPulse(1), PatternPulse(0.5))
	assert.Less(t, PatternPulse(10), float32(0), "the pulse settles just below zero")
}

func TestLaserUniform(t *testing.T) {
	var u LaserUniform
	require.Equal(t, 320, u.Size())
	assert.Equal(t, uint64(u.Size()), wgslSize(t, GPULaserUniformSource, "LaserUniform"))

	beams := model.LaserVolley(0.5, 0, 1)
	u = NewLaserUniform([16]float32(mgl32.Ident4()), beams)
	for i, b := range u.Beams {
		assert.Equal(t, [16]float32(beams[i].Matrix()), b.Transform, "beam %d", i)
		assert.Equal(t, float32(1), b.Color[3], "beam %d alpha carries intensity", i)
		assert.Equal(t, laserPalette[1].X(), b.Color[0])
	}

	buf := u.Marshal()
	require.Len(t, buf, 320)
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, u.Beams[1].Transform[14], f(80+56))
	assert.Equal(t, u.Beams[3].Color[3], f(3*80+76))

	short := NewLaserUniform([16]float32(mgl32.Ident4()), beams[:1])
	assert.Equal(t, LaserBeam{}, short.Beams[1], "missing beams stay zero")
}
