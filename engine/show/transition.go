package show

import (
	"fmt"
	"math"
)

// Transition is the closed set of blends from the previous composited frame into a new
// scene. Code selects the branch of the final composite shader; Progress maps seconds
// since the cue into the value that branch consumes. Progress is not clamped.
type Transition interface {
	fmt.Stringer
	Code() int32
	Progress(elapsed float64) float64
	isTransition()
}

// None cuts straight to the new scene.
type None struct{}

// Fade cross-fades over Duration seconds.
type Fade struct{ Duration float64 }

// SlideTransition pushes the new frame in from the side.
type SlideTransition struct{}

// Blink flashes slowly, then fast.
type Blink struct{}

// Blink2 is Blink driven at twice the rate with a linear ramp.
type Blink2 struct{}

func (None) isTransition()            {}
func (Fade) isTransition()            {}
func (SlideTransition) isTransition() {}
func (Blink) isTransition()           {}
func (Blink2) isTransition()          {}

func (None) Code() int32            { return 0 }
func (Fade) Code() int32            { return 1 }
func (SlideTransition) Code() int32 { return 2 }
func (Blink) Code() int32           { return 3 }
func (Blink2) Code() int32          { return 3 }

func (None) Progress(elapsed float64) float64 { return elapsed }

func (f Fade) Progress(elapsed float64) float64 { return elapsed / f.Duration }

func (SlideTransition) Progress(elapsed float64) float64 { return elapsed }

// Progress is a two-segment ramp: 0.526 of the scaled time until the steep segment
// 10*(0.2e) - 9 overtakes it.
func (Blink) Progress(elapsed float64) float64 {
	e := 0.2 * elapsed
	return math.Max(0.526*e, 10*e-9)
}

func (Blink2) Progress(elapsed float64) float64 { return 2 * elapsed }

func (None) String() string            { return "None" }
func (f Fade) String() string          { return fmt.Sprintf("Fade(%gs)", f.Duration) }
func (SlideTransition) String() string { return "Slide" }
func (Blink) String() string           { return "Blink" }
func (Blink2) String() string          { return "Blink2" }
