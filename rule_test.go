// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"testing"
)

func gridFrom(t *testing.T, w, h int, cells ...[2]int) *Grid {
	t.Helper()
	g, err := NewGrid(w, h)
	if err != nil {
		t.Fatalf("NewGrid(%d, %d): %v", w, h, err)
	}
	for _, c := range cells {
		g.Set(c[0], c[1], true)
	}
	return g
}

func stepN(g *Grid, n int, b Boundary) *Grid {
	cur := g.Clone()
	next := g.Clone()
	for i := 0; i < n; i++ {
		Step(next, cur, b)
		cur, next = next, cur
	}
	return cur
}

func TestNext(t *testing.T) {
	tests := []struct {
		alive     bool
		neighbors int
		want      bool
	}{
		{true, 0, false},
		{true, 1, false},
		{true, 2, true},
		{true, 3, true},
		{true, 4, false},
		{true, 8, false},
		{false, 2, false},
		{false, 3, true},
		{false, 4, false},
		{false, 0, false},
	}
	for _, tt := range tests {
		if got := Next(tt.alive, tt.neighbors); got != tt.want {
			t.Errorf("Next(%v, %d) = %v, want %v", tt.alive, tt.neighbors, got, tt.want)
		}
	}
}

// On a 3x3 torus every cell's Moore neighbourhood is exactly the other
// eight cells, so the neighbour count is the population minus the cell.
func TestRuleOnThreeByThreeTorus(t *testing.T) {
	t.Run("lonely cell dies", func(t *testing.T) {
		g := gridFrom(t, 3, 3, [2]int{1, 1})
		if n := Neighbors(g.Cells, 3, 3, 1, 1, Toroidal); n != 0 {
			t.Fatalf("neighbors = %d, want 0", n)
		}
		next := stepN(g, 1, Toroidal)
		if next.Alive(1, 1) {
			t.Error("isolated cell survived")
		}
		if next.Population() != 0 {
			t.Errorf("population = %d, want 0\n%s", next.Population(), next)
		}
	})

	t.Run("two neighbours survive", func(t *testing.T) {
		g := gridFrom(t, 3, 3, [2]int{0, 0}, [2]int{1, 1}, [2]int{2, 2})
		if n := Neighbors(g.Cells, 3, 3, 1, 1, Toroidal); n != 2 {
			t.Fatalf("neighbors = %d, want 2", n)
		}
		if next := stepN(g, 1, Toroidal); !next.Alive(1, 1) {
			t.Errorf("cell with two neighbours died\n%s", next)
		}
	})

	t.Run("three neighbours give birth", func(t *testing.T) {
		g := gridFrom(t, 3, 3, [2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0})
		if n := Neighbors(g.Cells, 3, 3, 1, 2, Toroidal); n != 3 {
			t.Fatalf("neighbors = %d, want 3", n)
		}
		if next := stepN(g, 1, Toroidal); !next.Alive(1, 2) {
			t.Errorf("dead cell with three neighbours was not born\n%s", next)
		}
	})

	t.Run("overpopulation kills", func(t *testing.T) {
		g := gridFrom(t, 3, 3, [2]int{1, 1}, [2]int{0, 0}, [2]int{2, 0}, [2]int{0, 2}, [2]int{2, 2})
		if n := Neighbors(g.Cells, 3, 3, 1, 1, Toroidal); n != 4 {
			t.Fatalf("neighbors = %d, want 4", n)
		}
		next := stepN(g, 1, Toroidal)
		if next.Alive(1, 1) {
			t.Errorf("overcrowded cell survived\n%s", next)
		}
		if next.Population() != 0 {
			t.Errorf("population = %d, want 0\n%s", next.Population(), next)
		}
	})
}

func TestGliderTranslatesEveryFourSteps(t *testing.T) {
	const size = 8
	g := gridFrom(t, size, size)
	g.Place(Glider, 1, 1)

	got := stepN(g, 4, Toroidal)

	want := gridFrom(t, size, size)
	want.Place(Glider.Translate(1, 1), 1, 1)
	if !got.Equal(want) {
		t.Fatalf("glider after 4 steps:\n%s\nwant:\n%s", got, want)
	}
	if got.Population() != len(Glider.Cells) {
		t.Errorf("population = %d, want %d", got.Population(), len(Glider.Cells))
	}
}

func TestGliderWrapsAroundTorus(t *testing.T) {
	const size = 8
	g := gridFrom(t, size, size)
	g.Place(Glider, 5, 6)

	// size translations of (1,1) bring the glider back to its origin.
	got := stepN(g, 4*size, Toroidal)
	if !got.Equal(g) {
		t.Fatalf("glider after %d steps:\n%s\nwant:\n%s", 4*size, got, g)
	}
}

func TestBlockIsStillLife(t *testing.T) {
	for _, size := range []int{4, 6, 9} {
		g := gridFrom(t, size, size)
		g.Place(Block, 1, 1)
		for n := 1; n <= 10; n++ {
			got := stepN(g, n, Toroidal)
			if !got.Equal(g) {
				t.Fatalf("%dx%d block changed after %d steps:\n%s", size, size, n, got)
			}
		}
	}
}

func TestBlinkerOscillates(t *testing.T) {
	g := gridFrom(t, 5, 5)
	g.Place(Blinker, 1, 2)

	one := stepN(g, 1, Toroidal)
	want := gridFrom(t, 5, 5, [2]int{2, 1}, [2]int{2, 2}, [2]int{2, 3})
	if !one.Equal(want) {
		t.Fatalf("blinker phase 1:\n%s\nwant:\n%s", one, want)
	}
	if two := stepN(g, 2, Toroidal); !two.Equal(g) {
		t.Fatalf("blinker phase 2:\n%s\nwant:\n%s", two, g)
	}
}

func TestBoundaryPolicies(t *testing.T) {
	// A blinker lying on the top edge: with wrapping the cell above the
	// centre is the bottom row; without it that birth is lost.
	g := gridFrom(t, 5, 5)
	g.Place(Blinker, 0, 0)

	toroidal := stepN(g, 1, Toroidal)
	if !toroidal.Alive(1, 4) || toroidal.Population() != 3 {
		t.Errorf("toroidal step:\n%s", toroidal)
	}

	bounded := stepN(g, 1, Bounded)
	want := gridFrom(t, 5, 5, [2]int{1, 0}, [2]int{1, 1})
	if !bounded.Equal(want) {
		t.Errorf("bounded step:\n%s\nwant:\n%s", bounded, want)
	}
	if gone := stepN(g, 2, Bounded); gone.Population() != 0 {
		t.Errorf("bounded step 2 population = %d, want 0", gone.Population())
	}
}

func TestNeighborsCornerWrap(t *testing.T) {
	g := gridFrom(t, 4, 4, [2]int{3, 3}, [2]int{3, 0}, [2]int{0, 3})
	if n := Neighbors(g.Cells, 4, 4, 0, 0, Toroidal); n != 3 {
		t.Errorf("toroidal corner neighbors = %d, want 3", n)
	}
	if n := Neighbors(g.Cells, 4, 4, 0, 0, Bounded); n != 0 {
		t.Errorf("bounded corner neighbors = %d, want 0", n)
	}
}
