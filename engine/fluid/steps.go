package fluid

const (
	// RegularSteps is the number of dispatches every simulated frame issues: one advection step,
	// four pressure relaxation steps and one gradient subtraction step.
	RegularSteps = 6
	// ExtraSteps is the number of optional impulse dispatches that lead a frame.
	ExtraSteps = 2
	// ParamSlots is the number of parameter uniforms the simulation owns. Each slot's step field
	// equals its index.
	ParamSlots = RegularSteps + ExtraSteps
)

// Buffer names one side of the ping-pong texture pair.
type Buffer int

const (
	// BufferA holds the field after an even number of steps.
	BufferA Buffer = iota
	// BufferB holds the field after an odd number of steps.
	BufferB
)

func (b Buffer) String() string {
	if b == BufferB {
		return "B"
	}
	return "A"
}

// Parity returns the buffer holding the current field after n steps.
func Parity(n int) Buffer {
	return Buffer(n % 2)
}

// Step is one compute dispatch.
type Step struct {
	// Slot is the parameter uniform used by the dispatch.
	Slot int
	// Group is the texture bind group: 0 reads A and writes B, 1 reads B and writes A.
	Group int
}

// PlanSteps returns the ordered dispatch list for a frame. Extra steps come first and use the
// slots after the regular ones. Each step alternates the texture bind group by position.
//
// Parameters:
//   - regular: the number of regular steps, clamped to [0, RegularSteps]
//   - extras: the number of extra steps, clamped to [0, ExtraSteps]
//
// Returns:
//   - []Step: the dispatches in submission order
func PlanSteps(regular, extras int) []Step {
	regular = min(max(regular, 0), RegularSteps)
	extras = min(max(extras, 0), ExtraSteps)

	steps := make([]Step, 0, regular+extras)
	for i := 0; i < extras; i++ {
		steps = append(steps, Step{Slot: RegularSteps + i})
	}
	for i := 0; i < regular; i++ {
		steps = append(steps, Step{Slot: i})
	}
	for i := range steps {
		steps[i].Group = i % 2
	}
	return steps
}
