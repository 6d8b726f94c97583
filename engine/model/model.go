// Package model holds the per-object transform records drawn as instanced quads and the sets that
// upload their raw form to the GPU.
package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// Instance is the logical transform of one drawn quad.
type Instance struct {
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
	Scale     mgl32.Vec3
	TexOffset mgl32.Vec2
}

// NewInstance returns an unrotated instance at position with the given scale.
func NewInstance(position, scale mgl32.Vec3) Instance {
	return Instance{
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    scale,
	}
}

// Matrix returns translation * scale * rotation.
func (i Instance) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(i.Position.X(), i.Position.Y(), i.Position.Z()).
		Mul4(mgl32.Scale3D(i.Scale.X(), i.Scale.Y(), i.Scale.Z())).
		Mul4(i.Rotation.Mat4())
}

// ToRaw computes the GPU record of the instance.
//
// Returns:
//   - GPUInstance: the model matrix, texture offset and facing value
func (i Instance) ToRaw() GPUInstance {
	z := mgl32.Vec3{0, 0, 1}
	return GPUInstance{
		Model:     [16]float32(i.Matrix()),
		TexOffset: [2]float32(i.TexOffset),
		Facing:    z.Dot(i.Rotation.Rotate(z)),
	}
}

// MarshalInstances packs the raw form of every instance back to back.
func MarshalInstances(instances []Instance) []byte {
	buf := make([]byte, len(instances)*76)
	for i, inst := range instances {
		raw := inst.ToRaw()
		raw.marshalTo(buf[i*76:])
	}
	return buf
}

// Indices into BaseInstances.
const (
	InstanceFullscreen = iota
	InstanceLeft
	InstanceRight
)

// BaseInstances returns the compositing quads: a fullscreen quad and two windows at the left and
// right of the screen.
func BaseInstances() []Instance {
	return []Instance{
		NewInstance(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}),
		NewInstance(mgl32.Vec3{-0.37, 0, 0}, mgl32.Vec3{0.55, 0.55, 1}),
		NewInstance(mgl32.Vec3{0.37, 0, 0}, mgl32.Vec3{0.55, 0.55, 1}),
	}
}

// instanceSet is the implementation of the InstanceSet interface.
type instanceSet struct {
	mu        *sync.Mutex
	label     string
	instances []Instance
	dirty     bool
	provider  bind_group_provider.BindGroupProvider
}

// InstanceSet owns a fixed number of instances and the provider whose vertex buffer holds their
// raw form. Changed instances are re-marshalled on the next Write.
type InstanceSet interface {
	// Label returns the set's debug label.
	Label() string

	// Len returns the number of instances.
	Len() int

	// Instances returns a copy of the instances.
	Instances() []Instance

	// Set replaces instance i and marks the set for upload.
	//
	// Parameters:
	//   - i: the instance index, must be in [0, Len())
	//   - inst: the new transform
	Set(i int, inst Instance)

	// SetAll replaces every instance. The length must match Len.
	//
	// Parameters:
	//   - instances: the new transforms
	SetAll(instances []Instance)

	// Raw returns the packed raw form of every instance.
	Raw() []byte

	// Write returns the buffer write for pending changes and clears them.
	//
	// Returns:
	//   - bind_group_provider.BufferWrite: the write into the provider's vertex buffer
	//   - bool: false if nothing changed since the last Write
	Write() (bind_group_provider.BufferWrite, bool)

	// Provider returns the provider whose vertex buffer holds the instances.
	Provider() bind_group_provider.BindGroupProvider
}

var _ InstanceSet = &instanceSet{}

// NewInstanceSet creates a set over a copy of instances. The set starts clean: its initial data is
// uploaded when the provider's vertex buffer is created from Raw.
//
// Parameters:
//   - label: debug label for the set and its provider
//   - instances: the initial transforms
//   - options: builder options
//
// Returns:
//   - InstanceSet: the set
func NewInstanceSet(label string, instances []Instance, options ...InstanceSetBuilderOption) InstanceSet {
	s := &instanceSet{
		mu:        &sync.Mutex{},
		label:     label,
		instances: append([]Instance(nil), instances...),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.provider == nil {
		s.provider = bind_group_provider.NewBindGroupProvider(label)
	}
	return s
}

func (s *instanceSet) Label() string {
	return s.label
}

func (s *instanceSet) Len() int {
	return len(s.instances)
}

func (s *instanceSet) Instances() []Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Instance(nil), s.instances...)
}

func (s *instanceSet) Set(i int, inst Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.instances) {
		panic("model: instance index out of range in " + s.label)
	}
	s.instances[i] = inst
	s.dirty = true
}

func (s *instanceSet) SetAll(instances []Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(instances) != len(s.instances) {
		panic("model: SetAll length mismatch in " + s.label)
	}
	copy(s.instances, instances)
	s.dirty = true
}

func (s *instanceSet) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MarshalInstances(s.instances)
}

func (s *instanceSet) Write() (bind_group_provider.BufferWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return bind_group_provider.BufferWrite{}, false
	}
	s.dirty = false
	return bind_group_provider.BufferWrite{
		Provider: s.provider,
		Binding:  bind_group_provider.VertexBinding,
		Data:     MarshalInstances(s.instances),
	}, true
}

func (s *instanceSet) Provider() bind_group_provider.BindGroupProvider {
	return s.provider
}
