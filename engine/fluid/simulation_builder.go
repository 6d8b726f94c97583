package fluid

import "github.com/cogentcore/webgpu/wgpu"

// SimulationBuilderOption is a functional option for configuring a Simulation.
type SimulationBuilderOption func(*simulation)

// WithGrid sets the initial resolution. Defaults to DefaultGrid.
//
// Parameters:
//   - grid: the simulation resolution
//
// Returns:
//   - SimulationBuilderOption: a function that applies the grid to a simulation
func WithGrid(grid Grid) SimulationBuilderOption {
	return func(s *simulation) {
		s.grid = grid
	}
}

// WithRenderLayout sets the layout of the group that exposes the packed volume to the smoke
// renderer at binding 0. Without it no render group is built.
//
// Parameters:
//   - descriptor: the smoke renderer's bind group layout for the volume
//
// Returns:
//   - SimulationBuilderOption: a function that applies the layout to a simulation
func WithRenderLayout(descriptor wgpu.BindGroupLayoutDescriptor) SimulationBuilderOption {
	return func(s *simulation) {
		s.renderLayout = &descriptor
	}
}

// WithPipelineKey overrides the compute pipeline key.
func WithPipelineKey(key string) SimulationBuilderOption {
	return func(s *simulation) {
		if key != "" {
			s.pipelineKey = key
		}
	}
}
