package renderer

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTargetReleaseIsIdempotent(t *testing.T) {
	rt := &renderTarget{label: "pass1", width: 1920, height: 1080}
	assert.NotPanics(t, rt.Release)
	assert.NotPanics(t, rt.Release)
	assert.Nil(t, rt.DepthView())
	assert.Equal(t, uint32(1920), rt.Width())
	assert.Equal(t, "pass1", rt.Label())
}

func TestPassOrderingWithoutFrame(t *testing.T) {
	b := &wgpuRendererBackendImpl{mu: &sync.Mutex{}}

	assert.ErrorContains(t, b.BeginComputePass(), "outside of a frame")
	assert.ErrorContains(t, b.BeginRenderPass(nil, true), "outside of a frame")
	assert.ErrorContains(t, b.Dispatch(nil, nil, [3]uint32{1, 1, 1}), "without an open compute pass")
	assert.ErrorContains(t, b.Draw(nil, DrawCommand{PipelineKey: "final"}), "without an open render pass")

	a := &renderTarget{label: "pass1", width: 4, height: 4}
	assert.ErrorContains(t, b.CopyTexture(a, a), "outside of a frame")

	assert.NotPanics(t, b.EndComputePass)
	assert.NotPanics(t, b.EndRenderPass)
	assert.NotPanics(t, b.EndFrame)
	assert.NotPanics(t, b.Present)
}

func TestRegisterPipelineRequiresStages(t *testing.T) {
	b := &wgpuRendererBackendImpl{mu: &sync.Mutex{}}

	err := b.RegisterRenderPipeline(pipeline.NewPipeline("final", pipeline.PipelineTypeRender))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final: missing shader stage")

	err = b.RegisterComputePipeline(pipeline.NewPipeline("smoke", pipeline.PipelineTypeCompute))
	assert.ErrorContains(t, err, "smoke: missing shader stage")
}

func TestLabelOr(t *testing.T) {
	assert.Equal(t, "slide 1", labelOr("slide 1", "Slides"))
	assert.Equal(t, "Slides", labelOr("", "Slides"))
}
