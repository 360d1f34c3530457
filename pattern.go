// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

// Pattern is a set of live cell offsets relative to a placement origin.
type Pattern struct {
	Name  string
	Cells [][2]int
}

// Well-known patterns.
var (
	// Glider moves one cell right and one cell down (+x, +y) every four
	// generations.
	//
	//	.#.
	//	..#
	//	###
	Glider = Pattern{Name: "glider", Cells: [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}}

	// Block is a 2x2 still life.
	Block = Pattern{Name: "block", Cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}}

	// Blinker is a period-2 oscillator, horizontal in its first phase.
	Blinker = Pattern{Name: "blinker", Cells: [][2]int{{0, 0}, {1, 0}, {2, 0}}}
)

// Patterns lists the built-in patterns by name.
var Patterns = map[string]Pattern{
	Glider.Name:  Glider,
	Block.Name:   Block,
	Blinker.Name: Blinker,
}

// Place sets the pattern's cells alive with their origin at (x, y).
// Coordinates wrap around the grid.
func (g *Grid) Place(p Pattern, x, y int) {
	for _, c := range p.Cells {
		g.Set(x+c[0], y+c[1], true)
	}
}

// Translate returns the pattern shifted by (dx, dy).
func (p Pattern) Translate(dx, dy int) Pattern {
	out := Pattern{Name: p.Name, Cells: make([][2]int, len(p.Cells))}
	for i, c := range p.Cells {
		out.Cells[i] = [2]int{c[0] + dx, c[1] + dy}
	}
	return out
}
