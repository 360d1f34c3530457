// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
)

// CellSize is the byte width of one cell in a state buffer. Cells are
// stored as u32 so the storage array has no alignment surprises in WGSL.
const CellSize = 4

// Cell states as stored in the state buffers.
const (
	Dead  uint32 = 0
	Alive uint32 = 1
)

// StateBufferSize returns the exact byte size of one state buffer for a
// w x h grid.
func StateBufferSize(w, h int) uint64 {
	return uint64(w) * uint64(h) * CellSize //nolint:gosec // dimensions validated positive
}

// Grid is a host-side W x H cell array in row-major order. Cell (x, y)
// lives at index y*Width + x.
type Grid struct {
	Width  int
	Height int
	Cells  []uint32
}

// NewGrid returns an all-dead grid. Non-positive dimensions are rejected
// with an InitializationError.
func NewGrid(w, h int) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, NewInitializationError("grid", fmt.Errorf("dimensions must be positive, got %dx%d", w, h))
	}
	return &Grid{Width: w, Height: h, Cells: make([]uint32, w*h)}, nil
}

// NewRandomGrid returns a grid where every cell is alive with probability p.
func NewRandomGrid(w, h int, p float64, rng *rand.Rand) (*Grid, error) {
	g, err := NewGrid(w, h)
	if err != nil {
		return nil, err
	}
	if p < 0 || p > 1 {
		return nil, NewInitializationError("grid", fmt.Errorf("live probability must be in [0,1], got %v", p))
	}
	for i := range g.Cells {
		if rng.Float64() < p {
			g.Cells[i] = Alive
		}
	}
	return g, nil
}

// Index returns the linear index of (x, y).
func (g *Grid) Index(x, y int) int { return y*g.Width + x }

// Alive reports whether (x, y) is alive. Coordinates outside the grid are
// dead.
func (g *Grid) Alive(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	return g.Cells[g.Index(x, y)] != Dead
}

// Set marks (x, y) alive or dead. Coordinates wrap around both axes.
func (g *Grid) Set(x, y int, alive bool) {
	x = wrap(x, g.Width)
	y = wrap(y, g.Height)
	v := Dead
	if alive {
		v = Alive
	}
	g.Cells[g.Index(x, y)] = v
}

// Population returns the number of live cells.
func (g *Grid) Population() int {
	n := 0
	for _, c := range g.Cells {
		if c != Dead {
			n++
		}
	}
	return n
}

// LiveCells returns the coordinates of all live cells in index order.
func (g *Grid) LiveCells() [][2]int {
	var out [][2]int
	for i, c := range g.Cells {
		if c != Dead {
			out = append(out, [2]int{i % g.Width, i / g.Width})
		}
	}
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{Width: g.Width, Height: g.Height, Cells: make([]uint32, len(g.Cells))}
	copy(c.Cells, g.Cells)
	return c
}

// Equal reports whether both grids have the same size and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}

// Bytes encodes the cells as little-endian u32 values, the layout of a
// state buffer.
func (g *Grid) Bytes() []byte {
	out := make([]byte, len(g.Cells)*CellSize)
	for i, c := range g.Cells {
		binary.LittleEndian.PutUint32(out[i*CellSize:], c)
	}
	return out
}

// SetBytes decodes a state buffer image into the grid.
func (g *Grid) SetBytes(data []byte) error {
	if len(data) != len(g.Cells)*CellSize {
		return fmt.Errorf("life: state size %d does not match %dx%d grid", len(data), g.Width, g.Height)
	}
	for i := range g.Cells {
		g.Cells[i] = binary.LittleEndian.Uint32(data[i*CellSize:])
	}
	return nil
}

// String renders the grid with '#' for live and '.' for dead cells, top
// row first.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow((g.Width + 1) * g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.Alive(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
