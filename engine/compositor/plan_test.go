package compositor

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allScenes = []show.Scene{
	show.Slide{Index: 0},
	show.Slide{Index: 4},
	show.Black{},
	show.CDs{Stage: 1},
	show.CDs{Stage: 0},
	show.StarWars{Stage: 1},
	show.Ocean{Stage: 0},
	show.Smoke{Stage: 2},
}

func specsByKey() map[string]PipelineSpec {
	out := map[string]PipelineSpec{}
	for _, s := range Specs() {
		out[s.Key] = s
	}
	return out
}

func TestPlanUsesRegisteredPipelines(t *testing.T) {
	specs := specsByKey()
	for _, scene := range allScenes {
		t.Run(scene.String(), func(t *testing.T) {
			passes := Plan(scene)
			require.NotEmpty(t, passes)

			last := passes[len(passes)-1]
			assert.Equal(t, TargetSurface, last.Target, "final pass draws to the surface")
			require.Len(t, last.Draws, 1)
			assert.Equal(t, PipelineFinal, last.Draws[0].Pipeline)

			for _, pass := range passes {
				assert.NotEqual(t, TargetPrevious, pass.Target, "previous is only written by the snapshot copy")
				assert.Equal(t, pass.Target == TargetWindow, pass.Depth, "%s depth flag", pass.Label)
				for _, d := range pass.Draws {
					spec, ok := specs[d.Pipeline]
					require.True(t, ok, "pipeline %s", d.Pipeline)
					assert.Equal(t, spec.Target, pass.Target, "%s draws into its pipeline's target", d.Pipeline)
					assert.Equal(t, spec.Depth, pass.Depth, "%s depth", d.Pipeline)
					assert.Equal(t, spec.Instanced, d.Instances != InstancesNone, "%s instancing", d.Pipeline)
					assert.Equal(t, uint32(quadIndices), d.IndexCount)
					assert.NotZero(t, d.InstanceCount)
				}
			}
		})
	}
}

func TestPlanSlide(t *testing.T) {
	passes := Plan(show.Slide{Index: 0})
	require.Len(t, passes, 2)
	final := passes[1].Draws[0]
	assert.Equal(t, []Source{SlideSource(0), {Kind: SourceFinalParams}, SlideSource(0)}, final.Groups,
		"the first slide blends over itself")

	passes = Plan(show.Slide{Index: 3})
	assert.Equal(t, SlideSource(2), passes[1].Draws[0].Groups[2])
	assert.Equal(t, SlideSource(3), passes[0].Draws[0].Groups[0])
}

func TestPlanCDs(t *testing.T) {
	passes := Plan(show.CDs{Stage: 2})
	require.Len(t, passes, 3)

	cds := passes[0]
	assert.Equal(t, TargetWindow, cds.Target)
	require.Len(t, cds.Draws, 1)
	assert.Equal(t, InstancesCDs, cds.Draws[0].Instances)
	assert.Equal(t, uint32(model.CDCount), cds.Draws[0].InstanceCount)

	window := passes[1]
	require.Len(t, window.Draws, 2)
	assert.Equal(t, uint32(model.InstanceFullscreen), window.Draws[0].FirstInstance)
	assert.Equal(t, SlideSource(2), window.Draws[0].Groups[0])
	assert.Equal(t, SlideSource(1), window.Draws[0].Groups[2])
	assert.Equal(t, uint32(model.InstanceLeft), window.Draws[1].FirstInstance)
	assert.Equal(t, Source{Kind: SourceWindow}, window.Draws[1].Groups[0])

	assert.Equal(t, Source{Kind: SourcePass1}, passes[2].Draws[0].Groups[0])
	assert.Equal(t, Source{Kind: SourcePrevious}, passes[2].Draws[0].Groups[2])
}

func TestPlanProceduralScenes(t *testing.T) {
	black := Plan(show.Black{})
	require.Len(t, black, 2)
	assert.True(t, black[0].Clear)
	assert.Empty(t, black[0].Draws)

	star := Plan(show.StarWars{Stage: 0})
	require.Len(t, star[0].Draws, 2)
	assert.Equal(t, PipelineBackground, star[0].Draws[0].Pipeline)
	assert.Equal(t, PipelineLaser, star[0].Draws[1].Pipeline)
	assert.Equal(t, uint32(model.LaserCount), star[0].Draws[1].InstanceCount)

	smoke := Plan(show.Smoke{Stage: 1})
	require.Len(t, smoke[0].Draws, 1)
	assert.Equal(t, []Source{{Kind: SourceSmoke}, {Kind: SourceBackgroundParams}}, smoke[0].Draws[0].Groups)

	assert.Panics(t, func() { Plan(nil) })
}

func TestSpecsBuildPipelines(t *testing.T) {
	for _, spec := range Specs() {
		t.Run(spec.Key, func(t *testing.T) {
			p := NewPipeline(spec)
			assert.Equal(t, spec.Key, p.PipelineKey())
			assert.Equal(t, spec.Depth, p.HasDepth())
			assert.Equal(t, spec.Blend, p.Blend())
			assert.Equal(t, spec.Blend != BlendNone, p.BlendState() != nil)
			assert.NotEmpty(t, p.BindGroupLayoutDescriptors())
		})
	}

	final := NewPipeline(specsByKey()[PipelineFinal])
	simple := NewPipeline(specsByKey()[PipelineSimple])
	assert.Equal(t, final.BindGroupLayoutDescriptor(0), simple.BindGroupLayoutDescriptor(0),
		"texture groups are shared between final and simple")
	assert.Equal(t, final.BindGroupLayoutDescriptor(0), final.BindGroupLayoutDescriptor(2))
}
