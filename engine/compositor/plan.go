// Package compositor turns the active scene into render passes and records them on the renderer.
// Plan is pure and decides what is drawn; the Compositor owns the GPU resources the plan names and
// executes it once per frame.
package compositor

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
)

// Target is a color attachment a pass draws into.
type Target int

const (
	// TargetSurface is the swapchain image.
	TargetSurface Target = iota
	// TargetPass1 is the offscreen scene image the final pass composites.
	TargetPass1
	// TargetPrevious holds pass1 as it was when the last cue fired.
	TargetPrevious
	// TargetWindow is the offscreen 3D view shown in a window quad. It carries depth.
	TargetWindow
)

func (t Target) String() string {
	switch t {
	case TargetSurface:
		return "surface"
	case TargetPass1:
		return "pass1"
	case TargetPrevious:
		return "previous"
	case TargetWindow:
		return "window"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// SourceKind identifies a bind group the compositor owns.
type SourceKind int

const (
	// SourceSlide is the texture group of slide Source.Slide.
	SourceSlide SourceKind = iota
	// SourcePass1 samples the pass1 target.
	SourcePass1
	// SourcePrevious samples the previous target.
	SourcePrevious
	// SourceWindow samples the window target.
	SourceWindow
	// SourceFinalParams is the final ShaderParams uniform.
	SourceFinalParams
	// SourceBackgroundParams is the background ShaderParams uniform.
	SourceBackgroundParams
	// SourceObject holds the camera uniform and the foreground ShaderParams.
	SourceObject
	// SourceLasers is the laser beam uniform.
	SourceLasers
	// SourceSmoke is the packed smoke volume, supplied per frame by the simulation.
	SourceSmoke
)

// Source names the bind group set at one group index of a draw.
type Source struct {
	Kind  SourceKind
	Slide int
}

// SlideSource returns the texture group of slide n.
func SlideSource(n int) Source {
	return Source{Kind: SourceSlide, Slide: n}
}

func (s Source) String() string {
	switch s.Kind {
	case SourceSlide:
		return fmt.Sprintf("slide(%d)", s.Slide)
	case SourcePass1:
		return "pass1"
	case SourcePrevious:
		return "previous"
	case SourceWindow:
		return "window"
	case SourceFinalParams:
		return "final params"
	case SourceBackgroundParams:
		return "background params"
	case SourceObject:
		return "object"
	case SourceLasers:
		return "lasers"
	case SourceSmoke:
		return "smoke"
	default:
		return fmt.Sprintf("Source(%d)", int(s.Kind))
	}
}

// Instances names the per-instance vertex buffer of a draw.
type Instances int

const (
	// InstancesNone draws without an instance buffer; the shader indexes by instance_index.
	InstancesNone Instances = iota
	// InstancesBase is the fullscreen quad and the two window quads.
	InstancesBase
	// InstancesCDs is the CD field.
	InstancesCDs
)

// DrawOp is one indexed draw of the fullscreen quad mesh.
type DrawOp struct {
	Pipeline                     string
	Groups                       []Source
	Instances                    Instances
	IndexStart, IndexCount       uint32
	FirstInstance, InstanceCount uint32
}

// Pass is one render pass. Depth is set only for targets that carry a depth attachment.
type Pass struct {
	Label  string
	Target Target
	Clear  bool
	Depth  bool
	Draws  []DrawOp
}

const quadIndices = 6

func quad(pipeline string, instances Instances, first, count uint32, groups ...Source) DrawOp {
	return DrawOp{
		Pipeline:      pipeline,
		Groups:        groups,
		Instances:     instances,
		IndexCount:    quadIndices,
		FirstInstance: first,
		InstanceCount: count,
	}
}

// finalPass composites current over previous on the surface.
func finalPass(current, previous Source) Pass {
	return Pass{
		Label:  "Final",
		Target: TargetSurface,
		Clear:  true,
		Draws: []DrawOp{
			quad(PipelineFinal, InstancesBase, model.InstanceFullscreen, 1,
				current, Source{Kind: SourceFinalParams}, previous),
		},
	}
}

// Plan returns the passes that draw scene s, in order. The last pass is always the final
// composite onto the surface.
//
// Parameters:
//   - s: the active scene
//
// Returns:
//   - []Pass: the passes to record
func Plan(s show.Scene) []Pass {
	pass1 := Source{Kind: SourcePass1}
	previous := Source{Kind: SourcePrevious}
	final := Source{Kind: SourceFinalParams}
	background := Source{Kind: SourceBackgroundParams}

	switch v := s.(type) {
	case show.Slide:
		slide, under := SlideSource(v.Index), SlideSource(show.PreviousSlide(v.Index))
		return []Pass{
			{
				Label:  "Slide",
				Target: TargetPass1,
				Clear:  true,
				Draws: []DrawOp{
					quad(PipelineSimple, InstancesBase, model.InstanceFullscreen, 1, slide, final, under),
				},
			},
			finalPass(slide, under),
		}
	case show.Black:
		return []Pass{
			{Label: "Black", Target: TargetPass1, Clear: true},
			finalPass(pass1, previous),
		}
	case show.CDs:
		slide, under := SlideSource(v.Stage), SlideSource(show.PreviousSlide(v.Stage))
		window := Source{Kind: SourceWindow}
		return []Pass{
			{
				Label:  "CDs",
				Target: TargetWindow,
				Clear:  true,
				Depth:  true,
				Draws: []DrawOp{
					quad(PipelineCD, InstancesCDs, 0, model.CDCount, Source{Kind: SourceObject}),
				},
			},
			{
				Label:  "CD Window",
				Target: TargetPass1,
				Clear:  true,
				Draws: []DrawOp{
					quad(PipelineSimple, InstancesBase, model.InstanceFullscreen, 1, slide, final, under),
					quad(PipelineSimple, InstancesBase, model.InstanceLeft, 1, window, final, window),
				},
			},
			finalPass(pass1, previous),
		}
	case show.StarWars:
		return []Pass{
			{
				Label:  "StarWars",
				Target: TargetPass1,
				Clear:  true,
				Draws: []DrawOp{
					quad(PipelineBackground, InstancesNone, 0, 1, background),
					quad(PipelineLaser, InstancesNone, 0, model.LaserCount, Source{Kind: SourceLasers}),
				},
			},
			finalPass(pass1, previous),
		}
	case show.Ocean:
		return []Pass{
			{
				Label:  "Ocean",
				Target: TargetPass1,
				Clear:  true,
				Draws: []DrawOp{
					quad(PipelineBackground, InstancesNone, 0, 1, background),
				},
			},
			finalPass(pass1, previous),
		}
	case show.Smoke:
		return []Pass{
			{
				Label:  "Smoke",
				Target: TargetPass1,
				Clear:  true,
				Draws: []DrawOp{
					quad(PipelineSmoke, InstancesNone, 0, 1, Source{Kind: SourceSmoke}, background),
				},
			},
			finalPass(pass1, previous),
		}
	default:
		panic(fmt.Sprintf("compositor: unhandled scene %T", s))
	}
}
