// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"encoding/binary"
	"math"
)

// QuadVertices is the cell quad as two triangles of x,y pairs. It is drawn
// once per cell instance; the 0.8 extent leaves a gap between cells.
var QuadVertices = [12]float32{
	-0.8, -0.8, // triangle 1
	0.8, -0.8,
	0.8, 0.8,

	-0.8, -0.8, // triangle 2
	-0.8, 0.8,
	0.8, 0.8,
}

// Quad layout constants.
const (
	// QuadVertexCount is the number of vertices drawn per instance.
	QuadVertexCount = len(QuadVertices) / 2

	// QuadVertexStride is the byte stride of one vec2<f32> position.
	QuadVertexStride = 8

	// QuadInset is the fraction of a cell left empty on each side.
	QuadInset = (1 - 0.8) / 2
)

// QuadBytes returns QuadVertices as little-endian f32 values.
func QuadBytes() []byte {
	out := make([]byte, len(QuadVertices)*4)
	for i, v := range QuadVertices {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// UniformSize is the byte size of the grid uniform.
const UniformSize = 8

// Uniform is the grid descriptor read by both programs. It is written once
// at startup and never re-uploaded.
type Uniform struct {
	Width  float32
	Height float32
}

// UniformFor returns the uniform for a w x h grid.
func UniformFor(w, h int) Uniform {
	return Uniform{Width: float32(w), Height: float32(h)}
}

// Bytes encodes the uniform as vec2<f32>.
func (u Uniform) Bytes() []byte {
	out := make([]byte, UniformSize)
	binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(u.Width))
	binary.LittleEndian.PutUint32(out[4:8], math.Float32bits(u.Height))
	return out
}
