package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// VertexBinding is the pseudo binding index that routes a BufferWrite to the provider's vertex
// buffer. Instance providers use it to refresh their per-instance data every frame.
const VertexBinding = -1

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Target returns the buffer the write lands in, or nil if the provider has no such buffer yet.
func (w BufferWrite) Target() *wgpu.Buffer {
	if w.Binding == VertexBinding {
		return w.Provider.VertexBuffer()
	}
	return w.Provider.Buffer(w.Binding)
}
