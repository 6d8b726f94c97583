package compositor

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-demo/engine/camera"
	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-demo/engine/uniforms"
)

// Pipeline keys.
const (
	PipelineFinal      = "final"
	PipelineSimple     = "simple"
	PipelineCD         = "cdrender"
	PipelineBackground = "background"
	PipelineLaser      = "laser"
	PipelineSmoke      = "smokerender"
)

var (
	//go:embed assets/quad_vertex.wgsl
	quadVertexSource string
	//go:embed assets/final.wgsl
	finalSource string
	//go:embed assets/simple.wgsl
	simpleSource string
	//go:embed assets/cdrender.wgsl
	cdSource string
	//go:embed assets/background.wgsl
	backgroundSource string
	//go:embed assets/laser.wgsl
	laserSource string
	//go:embed assets/smokerender.wgsl
	smokeSource string
)

// Blend modes used by the pipeline table.
const (
	BlendNone     = pipeline.BlendNone
	BlendAlpha    = pipeline.BlendAlpha
	BlendAdditive = pipeline.BlendAdditive
)

// PipelineSpec describes one render pipeline of the compositor.
type PipelineSpec struct {
	Key    string
	Source string
	// Target is the kind of attachment the pipeline draws into; it fixes the color format.
	Target Target
	Depth  bool
	Blend  pipeline.Blend
	// Instanced pipelines read InstanceInput from vertex slot 1.
	Instanced bool
}

// Specs returns the pipeline table.
func Specs() []PipelineSpec {
	return []PipelineSpec{
		{Key: PipelineFinal, Source: finalSource, Target: TargetSurface, Instanced: true},
		{Key: PipelineSimple, Source: simpleSource, Target: TargetPass1, Instanced: true},
		{Key: PipelineCD, Source: cdSource, Target: TargetWindow, Depth: true, Instanced: true},
		{Key: PipelineBackground, Source: backgroundSource, Target: TargetPass1},
		{Key: PipelineLaser, Source: laserSource, Target: TargetPass1, Blend: BlendAdditive},
		{Key: PipelineSmoke, Source: smokeSource, Target: TargetPass1, Blend: BlendAlpha},
	}
}

// ShaderIncludes maps the include names used by the compositor shaders to their WGSL.
func ShaderIncludes() map[string]string {
	return map[string]string{
		"VertexInput":   model.GPUVertexSource,
		"InstanceInput": model.GPUInstanceSource,
		"ShaderParams":  uniforms.GPUShaderParamsSource,
		"CameraUniform": camera.GPUCameraUniformSource,
		"LaserUniform":  uniforms.GPULaserUniformSource,
		"QuadVertex":    quadVertexSource,
	}
}

// NewPipeline builds the pipeline a spec describes. Both stages are parsed from the same source
// so every binding is visible to vertex and fragment.
//
// Parameters:
//   - spec: the pipeline description
//
// Returns:
//   - pipeline.Pipeline: the unregistered pipeline
func NewPipeline(spec PipelineSpec) pipeline.Pipeline {
	includes := shader.WithIncludes(ShaderIncludes())
	vs := shader.NewShader(spec.Key+"_vs", shader.ShaderTypeVertex, spec.Source, includes)
	fs := shader.NewShader(spec.Key+"_fs", shader.ShaderTypeFragment, spec.Source, includes)

	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithShaders(vs, fs),
		pipeline.WithDepth(spec.Depth),
		pipeline.WithBlend(spec.Blend),
	}
	if spec.Target != TargetSurface {
		opts = append(opts, pipeline.WithColorFormat(renderer.TargetFormat))
	}
	return pipeline.NewPipeline(spec.Key, pipeline.PipelineTypeRender, opts...)
}
