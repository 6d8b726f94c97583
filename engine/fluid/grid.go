// Package fluid holds the stable-fluids smoke simulation: a CPU reference solver over a dense 3D
// grid and the GPU orchestration that runs the same method as a sequence of compute dispatches
// over ping-pong volume textures.
package fluid

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-demo/common"
)

// WorkGroupSize is the @workgroup_size of the smoke compute shader.
var WorkGroupSize = [3]uint32{8, 8, 4}

// DefaultGrid is the simulation resolution used when none is configured.
var DefaultGrid = Grid{X: 100, Y: 100, Z: 100}

// Grid is the cell resolution of a simulation volume.
type Grid struct {
	X, Y, Z int
}

// Valid reports whether every axis is positive.
func (g Grid) Valid() bool {
	return g.X > 0 && g.Y > 0 && g.Z > 0
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int {
	return g.X * g.Y * g.Z
}

// Index returns the linear index of cell (x, y, z), x fastest.
func (g Grid) Index(x, y, z int) int {
	return z*g.X*g.Y + y*g.X + x
}

// In reports whether (x, y, z) lies inside the grid.
func (g Grid) In(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.X && y < g.Y && z < g.Z
}

// Extent returns the grid as a texture size.
func (g Grid) Extent() [3]uint32 {
	return [3]uint32{uint32(g.X), uint32(g.Y), uint32(g.Z)}
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%d", g.X, g.Y, g.Z)
}

// WorkGroupCount returns the number of workgroups covering grid with workgroups of size wg,
// rounding up on every axis.
//
// Parameters:
//   - grid: the grid size in cells
//   - wg: the workgroup size
//
// Returns:
//   - [3]uint32: the dispatch size
func WorkGroupCount(grid [3]uint32, wg [3]uint32) [3]uint32 {
	return [3]uint32{
		common.CeilDiv(grid[0], wg[0]),
		common.CeilDiv(grid[1], wg[1]),
		common.CeilDiv(grid[2], wg[2]),
	}
}
