// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

// Next applies the B3/S23 rule: a live cell with two or three live
// neighbours survives, a dead cell with exactly three is born, every other
// cell is dead in the next generation.
func Next(alive bool, neighbors int) bool {
	if alive {
		return neighbors == 2 || neighbors == 3
	}
	return neighbors == 3
}

// Neighbors counts the live cells of the Moore neighbourhood of (x, y) in a
// w x h row-major cell array.
func Neighbors(cells []uint32, w, h, x, y int, b Boundary) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if b == Toroidal {
				// Adding the extent before the modulo mirrors the shader's
				// unsigned arithmetic, which cannot go below zero.
				nx = (nx + w) % w
				ny = (ny + h) % h
			} else if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if cells[ny*w+nx] != Dead {
				n++
			}
		}
	}
	return n
}

// evolveCell computes one invocation of the simulation kernel. It is the
// host mirror of computeMain in the simulation shader: invocations outside
// the grid return without touching dst.
func evolveCell(dst, src []uint32, w, h, x, y int, b Boundary) bool {
	if x >= w || y >= h {
		return false
	}
	i := y*w + x
	if Next(src[i] != Dead, Neighbors(src, w, h, x, y, b)) {
		dst[i] = Alive
	} else {
		dst[i] = Dead
	}
	return true
}

// Step writes the generation following src into dst. Both grids must have
// the same dimensions and must not alias.
func Step(dst, src *Grid, b Boundary) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			evolveCell(dst.Cells, src.Cells, src.Width, src.Height, x, y, b)
		}
	}
}
