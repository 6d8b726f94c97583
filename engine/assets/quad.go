package assets

import (
	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/model"
)

// QuadIndexCount is the number of indices in the fullscreen quad.
const QuadIndexCount = 6

// QuadVertices returns the fullscreen quad in normalized device coordinates. UVs put (0,0) in
// the top-left corner to match texture space.
func QuadVertices() []model.GPUVertex {
	return []model.GPUVertex{
		{Position: [3]float32{-1, -1, 0}, TexCoord: [2]float32{0, 1}},
		{Position: [3]float32{1, -1, 0}, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{-1, 1, 0}, TexCoord: [2]float32{0, 0}},
		{Position: [3]float32{1, 1, 0}, TexCoord: [2]float32{1, 0}},
	}
}

// QuadIndices returns the two counter-clockwise triangles of the fullscreen quad.
func QuadIndices() []uint32 {
	return []uint32{0, 1, 2, 1, 3, 2}
}

// MarshalIndices copies uint32 indices into a byte slice for an index buffer.
func MarshalIndices(indices []uint32) []byte {
	return append([]byte(nil), common.SliceToBytes(indices)...)
}
