package show

import "fmt"

// Scene is the closed set of visual scenes a cue can select. Every switch over a Scene
// must list all variants and panic in its default branch.
type Scene interface {
	fmt.Stringer
	isScene()
}

// Slide shows the loaded slide at Index, cross-blended with the slide before it.
type Slide struct{ Index int }

// Black clears the composited frame.
type Black struct{}

// CDs flies a field of spinning discs over slide Stage.
type CDs struct{ Stage int }

// StarWars draws a starfield with laser volleys.
type StarWars struct{ Stage int }

// Ocean draws the procedural ocean shading.
type Ocean struct{ Stage int }

// Smoke ray-marches the GPU fluid volume.
type Smoke struct{ Stage int }

func (Slide) isScene()    {}
func (Black) isScene()    {}
func (CDs) isScene()      {}
func (StarWars) isScene() {}
func (Ocean) isScene()    {}
func (Smoke) isScene()    {}

func (s Slide) String() string    { return fmt.Sprintf("Slide(%d)", s.Index) }
func (Black) String() string      { return "Black" }
func (s CDs) String() string      { return fmt.Sprintf("CDs(%d)", s.Stage) }
func (s StarWars) String() string { return fmt.Sprintf("StarWars(%d)", s.Stage) }
func (s Ocean) String() string    { return fmt.Sprintf("Ocean(%d)", s.Stage) }
func (s Smoke) String() string    { return fmt.Sprintf("Smoke(%d)", s.Stage) }

// SlideIndices returns the slide indices a scene samples. Slide and CDs read slide n and
// the slide before it (clamped at 0); other scenes read none.
//
// Parameters:
//   - s: the scene to inspect
//
// Returns:
//   - []int: the slide indices referenced by the scene
func SlideIndices(s Scene) []int {
	switch v := s.(type) {
	case Slide:
		return []int{v.Index, PreviousSlide(v.Index)}
	case CDs:
		return []int{v.Stage, PreviousSlide(v.Stage)}
	case Black, StarWars, Ocean, Smoke:
		return nil
	default:
		panic(fmt.Sprintf("show: unhandled scene %T", s))
	}
}

// PreviousSlide returns the slide index blended under slide n.
func PreviousSlide(n int) int {
	if n > 0 {
		return n - 1
	}
	return n
}
