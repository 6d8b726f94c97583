package fluid

// SolverBuilderOption is a functional option for configuring a Solver.
type SolverBuilderOption func(*solver)

// WithScale sets the cell size used by diffusion, projection and advection. Non-positive values
// are ignored.
//
// Parameters:
//   - scale: the cell size
//
// Returns:
//   - SolverBuilderOption: a function that applies the scale to a solver
func WithScale(scale float64) SolverBuilderOption {
	return func(s *solver) {
		if scale > 0 {
			s.scale = scale
		}
	}
}

// WithIterations sets the number of Jacobi iterations per relaxation.
//
// Parameters:
//   - n: iterations, at least 1
//
// Returns:
//   - SolverBuilderOption: a function that applies the iteration count to a solver
func WithIterations(n int) SolverBuilderOption {
	return func(s *solver) {
		s.iterations = max(n, 1)
	}
}

// WithDiffusion sets the density diffusion coefficient. Zero skips density diffusion.
func WithDiffusion(d float64) SolverBuilderOption {
	return func(s *solver) {
		s.diffusion = max(d, 0)
	}
}

// WithViscosity sets the velocity diffusion coefficient. Zero skips velocity diffusion.
func WithViscosity(v float64) SolverBuilderOption {
	return func(s *solver) {
		s.viscosity = max(v, 0)
	}
}

// WithWorkers sets how many z-slabs a sweep is split into. 1 runs sweeps inline.
func WithWorkers(n int) SolverBuilderOption {
	return func(s *solver) {
		s.workers = max(n, 1)
	}
}
