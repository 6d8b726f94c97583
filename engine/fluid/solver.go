package fluid

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl64"
)

// solver is the implementation of the Solver interface.
type solver struct {
	mu   *sync.Mutex
	grid Grid

	scale      float64
	iterations int
	diffusion  float64
	viscosity  float64

	density   []float64
	density2  []float64
	velocity  []mgl64.Vec3
	velocity2 []mgl64.Vec3
	// divergence and pressure scratch for project
	div []float64
	p   []float64

	workers  int
	pool     worker.DynamicWorkerPool
	released bool
}

var (
	poolOnce  sync.Once
	sweepPool worker.DynamicWorkerPool
	taskIDs   atomic.Int64
)

// sharedPool returns the pool every solver sweeps on. Its workers live for the whole process, so
// creating and discarding solvers never starts goroutines.
func sharedPool() worker.DynamicWorkerPool {
	poolOnce.Do(func() {
		sweepPool = worker.NewDynamicWorkerPool(max(runtime.NumCPU(), 1), 256, 1*time.Second)
	})
	return sweepPool
}

// Stats summarizes the solver fields.
type Stats struct {
	TotalDensity float64
	MaxDensity   float64
	MaxSpeed     float64
}

// Solver is the CPU reference implementation of the stable-fluids method: Jacobi diffusion,
// pressure projection and semi-Lagrangian advection over a dense 3D grid with zero outside the
// grid. It runs the same order of operations as the GPU simulation and serves tests and the
// reference debug mode.
type Solver interface {
	// Grid returns the solver resolution.
	Grid() Grid

	// AddSource adds density to a cell and sets its velocity. Cells outside the grid are ignored.
	//
	// Parameters:
	//   - x, y, z: the cell
	//   - density: density added to the cell
	//   - velocity: the new cell velocity
	AddSource(x, y, z int, density float64, velocity mgl64.Vec3)

	// InjectBottomCenter adds dt density at the bottom center cell and points its velocity up.
	//
	// Parameters:
	//   - dt: the frame delta time in seconds
	InjectBottomCenter(dt float64)

	// Step advances the simulation by dt: diffuse velocity, project, advect velocity, project,
	// diffuse density, advect density by the fresh velocity.
	//
	// Parameters:
	//   - dt: the step delta time in seconds
	Step(dt float64)

	// Density returns the density field, indexed by Grid.Index. The slice is owned by the solver.
	Density() []float64

	// Velocity returns the velocity field, indexed by Grid.Index. The slice is owned by the solver.
	Velocity() []mgl64.Vec3

	// Stats returns the total and peak density and the peak speed.
	Stats() Stats

	// Release drops the fields. Later calls to AddSource, Step and Stats are no-ops and the
	// field accessors return nil. Release blocks until a running Step returns.
	Release()
}

var _ Solver = &solver{}

// NewSolver creates a CPU solver for grid. It panics on an invalid grid.
//
// Parameters:
//   - grid: the simulation resolution
//   - options: builder options
//
// Returns:
//   - Solver: the solver with zeroed fields
func NewSolver(grid Grid, options ...SolverBuilderOption) Solver {
	if !grid.Valid() {
		panic("fluid: NewSolver requires a positive grid, got " + grid.String())
	}
	n := grid.Cells()
	s := &solver{
		mu:         &sync.Mutex{},
		grid:       grid,
		scale:      1,
		iterations: 4,
		workers:    max(runtime.NumCPU()-1, 1),
		density:    make([]float64, n),
		density2:   make([]float64, n),
		velocity:   make([]mgl64.Vec3, n),
		velocity2:  make([]mgl64.Vec3, n),
		div:        make([]float64, n),
		p:          make([]float64, n),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.workers > 1 {
		s.pool = sharedPool()
	}
	return s
}

func (s *solver) Grid() Grid {
	return s.grid
}

func (s *solver) Density() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.density
}

func (s *solver) Velocity() []mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.velocity
}

func (s *solver) AddSource(x, y, z int, density float64, velocity mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || !s.grid.In(x, y, z) {
		return
	}
	i := s.grid.Index(x, y, z)
	s.density[i] += density
	s.velocity[i] = velocity
}

func (s *solver) InjectBottomCenter(dt float64) {
	s.AddSource(s.grid.X/2, s.grid.Y/2, 0, dt, mgl64.Vec3{0.1, 0, 1})
}

func (s *solver) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}

	h2 := s.scale * s.scale
	a := dt * s.viscosity / h2
	s.diffuse3(s.velocity, s.velocity2, a)
	s.project(s.velocity2)
	s.advect3(s.velocity2, s.velocity, dt)
	s.project(s.velocity)

	a = dt * s.diffusion / h2
	s.diffuse(s.density, s.density2, a)
	s.advect(s.density2, s.density, s.velocity, dt)
}

func (s *solver) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.density, s.density2 = nil, nil
	s.velocity, s.velocity2 = nil, nil
	s.div, s.p = nil, nil
}

func (s *solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for i, d := range s.density {
		st.TotalDensity += d
		st.MaxDensity = math.Max(st.MaxDensity, d)
		st.MaxSpeed = math.Max(st.MaxSpeed, s.velocity[i].Len())
	}
	return st
}

// sweep runs fn over z-slabs of the grid on the worker pool and waits for all of them. fn must
// only write cells inside its slab.
func (s *solver) sweep(fn func(z0, z1 int)) {
	slabs := min(s.workers, s.grid.Z)
	if slabs <= 1 || s.pool == nil {
		fn(0, s.grid.Z)
		return
	}
	per := (s.grid.Z + slabs - 1) / slabs

	var wg sync.WaitGroup
	for z0 := 0; z0 < s.grid.Z; z0 += per {
		z1 := min(z0+per, s.grid.Z)
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: int(taskIDs.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				fn(z0, z1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// at returns f at (x, y, z), zero outside the grid.
func (s *solver) at(f []float64, x, y, z int) float64 {
	if !s.grid.In(x, y, z) {
		return 0
	}
	return f[s.grid.Index(x, y, z)]
}

func (s *solver) at3(f []mgl64.Vec3, x, y, z int) mgl64.Vec3 {
	if !s.grid.In(x, y, z) {
		return mgl64.Vec3{}
	}
	return f[s.grid.Index(x, y, z)]
}

func (s *solver) neighbors(f []float64, x, y, z int) float64 {
	return s.at(f, x+1, y, z) + s.at(f, x-1, y, z) +
		s.at(f, x, y+1, z) + s.at(f, x, y-1, z) +
		s.at(f, x, y, z+1) + s.at(f, x, y, z-1)
}

func (s *solver) neighbors3(f []mgl64.Vec3, x, y, z int) mgl64.Vec3 {
	return s.at3(f, x+1, y, z).Add(s.at3(f, x-1, y, z)).
		Add(s.at3(f, x, y+1, z)).Add(s.at3(f, x, y-1, z)).
		Add(s.at3(f, x, y, z+1)).Add(s.at3(f, x, y, z-1))
}

// relax runs Jacobi sweeps of x = (b + a*sum(neighbors(b))) / c. Every sweep reads only b, so
// b and x must not alias.
func (s *solver) relax(b, x []float64, a, c float64) {
	for range s.iterations {
		s.sweep(func(z0, z1 int) {
			for z := z0; z < z1; z++ {
				for y := 0; y < s.grid.Y; y++ {
					for xx := 0; xx < s.grid.X; xx++ {
						i := s.grid.Index(xx, y, z)
						x[i] = (b[i] + a*s.neighbors(b, xx, y, z)) / c
					}
				}
			}
		})
	}
}

// diffuse writes the diffusion of src into dst. With a zero coefficient dst is a copy of src.
func (s *solver) diffuse(src, dst []float64, a float64) {
	if a == 0 {
		copy(dst, src)
		return
	}
	s.relax(src, dst, a, 1+6*a)
}

func (s *solver) diffuse3(src, dst []mgl64.Vec3, a float64) {
	if a == 0 {
		copy(dst, src)
		return
	}
	c := 1 + 6*a
	for range s.iterations {
		s.sweep(func(z0, z1 int) {
			for z := z0; z < z1; z++ {
				for y := 0; y < s.grid.Y; y++ {
					for x := 0; x < s.grid.X; x++ {
						i := s.grid.Index(x, y, z)
						dst[i] = src[i].Add(s.neighbors3(src, x, y, z).Mul(a)).Mul(1 / c)
					}
				}
			}
		})
	}
}

// project removes the divergent part of v in place.
func (s *solver) project(v []mgl64.Vec3) {
	s.sweep(func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			for y := 0; y < s.grid.Y; y++ {
				for x := 0; x < s.grid.X; x++ {
					i := s.grid.Index(x, y, z)
					s.div[i] = -0.5 * (s.at3(v, x+1, y, z).X() - s.at3(v, x-1, y, z).X() +
						s.at3(v, x, y+1, z).Y() - s.at3(v, x, y-1, z).Y() +
						s.at3(v, x, y, z+1).Z() - s.at3(v, x, y, z-1).Z()) * s.scale
					s.p[i] = 0
				}
			}
		}
	})

	s.relax(s.div, s.p, 1, 6)

	s.sweep(func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			for y := 0; y < s.grid.Y; y++ {
				for x := 0; x < s.grid.X; x++ {
					i := s.grid.Index(x, y, z)
					grad := mgl64.Vec3{
						s.at(s.p, x+1, y, z) - s.at(s.p, x-1, y, z),
						s.at(s.p, x, y+1, z) - s.at(s.p, x, y-1, z),
						s.at(s.p, x, y, z+1) - s.at(s.p, x, y, z-1),
					}
					v[i] = v[i].Sub(grad.Mul(0.5 / s.scale))
				}
			}
		}
	})
}

// backtrace returns the clamped source position of cell (x, y, z) moved against vel.
func (s *solver) backtrace(x, y, z int, vel mgl64.Vec3, dt0 float64) (float64, float64, float64) {
	bx := clamp(float64(x)-dt0*vel.X(), 0.5, float64(s.grid.X)+0.5)
	by := clamp(float64(y)-dt0*vel.Y(), 0.5, float64(s.grid.Y)+0.5)
	bz := clamp(float64(z)-dt0*vel.Z(), 0.5, float64(s.grid.Z)+0.5)
	return bx, by, bz
}

// trilinear samples f at a fractional position, reading zero outside the grid.
func (s *solver) trilinear(f []float64, x, y, z float64) float64 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	fx, fy, fz := x-x0, y-y0, z-z0
	ix, iy, iz := int(x0), int(y0), int(z0)

	c00 := (1-fz)*s.at(f, ix, iy, iz) + fz*s.at(f, ix, iy, iz+1)
	c01 := (1-fz)*s.at(f, ix, iy+1, iz) + fz*s.at(f, ix, iy+1, iz+1)
	c10 := (1-fz)*s.at(f, ix+1, iy, iz) + fz*s.at(f, ix+1, iy, iz+1)
	c11 := (1-fz)*s.at(f, ix+1, iy+1, iz) + fz*s.at(f, ix+1, iy+1, iz+1)
	return (1-fx)*((1-fy)*c00+fy*c01) + fx*((1-fy)*c10+fy*c11)
}

func (s *solver) trilinear3(f []mgl64.Vec3, x, y, z float64) mgl64.Vec3 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	fx, fy, fz := x-x0, y-y0, z-z0
	ix, iy, iz := int(x0), int(y0), int(z0)

	lerp := func(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
		return a.Mul(1 - t).Add(b.Mul(t))
	}
	c00 := lerp(s.at3(f, ix, iy, iz), s.at3(f, ix, iy, iz+1), fz)
	c01 := lerp(s.at3(f, ix, iy+1, iz), s.at3(f, ix, iy+1, iz+1), fz)
	c10 := lerp(s.at3(f, ix+1, iy, iz), s.at3(f, ix+1, iy, iz+1), fz)
	c11 := lerp(s.at3(f, ix+1, iy+1, iz), s.at3(f, ix+1, iy+1, iz+1), fz)
	return lerp(lerp(c00, c01, fy), lerp(c10, c11, fy), fx)
}

// advect moves src along vel into dst.
func (s *solver) advect(src, dst []float64, vel []mgl64.Vec3, dt float64) {
	dt0 := dt / s.scale
	s.sweep(func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			for y := 0; y < s.grid.Y; y++ {
				for x := 0; x < s.grid.X; x++ {
					i := s.grid.Index(x, y, z)
					bx, by, bz := s.backtrace(x, y, z, vel[i], dt0)
					dst[i] = s.trilinear(src, bx, by, bz)
				}
			}
		}
	})
}

// advect3 moves the velocity field src along itself into dst.
func (s *solver) advect3(src, dst []mgl64.Vec3, dt float64) {
	dt0 := dt / s.scale
	s.sweep(func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			for y := 0; y < s.grid.Y; y++ {
				for x := 0; x < s.grid.X; x++ {
					i := s.grid.Index(x, y, z)
					bx, by, bz := s.backtrace(x, y, z, src[i], dt0)
					dst[i] = s.trilinear3(src, bx, by, bz)
				}
			}
		}
	})
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
