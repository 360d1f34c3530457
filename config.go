// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultGridSize        = 64
	DefaultTickInterval    = 400 * time.Millisecond
	DefaultWorkgroupSize   = 8
	DefaultLiveProbability = 0.2
	DefaultSubmitTimeout   = 5 * time.Second
)

// Boundary selects how neighbours outside the grid are counted.
type Boundary int

const (
	// Toroidal wraps coordinates around both axes. This is the default.
	Toroidal Boundary = iota

	// Bounded treats every cell outside the grid as dead.
	Bounded
)

// String returns the configuration name of the boundary policy.
func (b Boundary) String() string {
	switch b {
	case Toroidal:
		return "toroidal"
	case Bounded:
		return "bounded"
	default:
		return fmt.Sprintf("Boundary(%d)", int(b))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts "toroidal"
// (or "wrap") and "bounded" (or "clamp"), case-insensitively.
func (b *Boundary) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "toroidal", "wrap":
		*b = Toroidal
	case "bounded", "clamp":
		*b = Bounded
	default:
		return fmt.Errorf("life: unknown boundary %q", text)
	}
	return nil
}

// Config is the immutable configuration of one simulation.
//
// The zero value is not valid; start from DefaultConfig and adjust with
// the With methods.
type Config struct {
	// GridSize is the side length of a square grid. Ignored for an axis
	// when GridWidth or GridHeight is set.
	GridSize int

	// GridWidth and GridHeight override GridSize per axis when non-zero.
	GridWidth  int
	GridHeight int

	// TickInterval is the period of the driver's timer.
	TickInterval time.Duration

	// WorkgroupSize is the compute workgroup extent along X and Y.
	WorkgroupSize int

	// LiveProbability is the chance of each cell starting alive.
	LiveProbability float64

	// Seed seeds the initial randomization. Zero picks a time-based seed.
	Seed uint64

	// Boundary is the neighbour policy at the grid edges.
	Boundary Boundary

	// SubmitTimeout bounds the wait for one submission to complete.
	SubmitTimeout time.Duration

	// sized marks GridWidth and GridHeight as set by WithSize, so zero
	// values there are taken literally instead of falling back.
	sized bool
}

// DefaultConfig returns the configuration of the reference demo: a 64x64
// toroidal grid, 400ms ticks, 8x8 workgroups, 20% initial population.
func DefaultConfig() Config {
	return Config{
		GridSize:        DefaultGridSize,
		TickInterval:    DefaultTickInterval,
		WorkgroupSize:   DefaultWorkgroupSize,
		LiveProbability: DefaultLiveProbability,
		Boundary:        Toroidal,
		SubmitTimeout:   DefaultSubmitTimeout,
	}
}

// WithGridSize returns a copy with a square grid of side n.
func (c Config) WithGridSize(n int) Config {
	c.GridSize = n
	c.GridWidth, c.GridHeight = 0, 0
	c.sized = false
	return c
}

// WithSize returns a copy with a w x h grid. Both values are used as
// given; a non-positive one fails Validate.
func (c Config) WithSize(w, h int) Config {
	c.GridWidth, c.GridHeight = w, h
	c.sized = true
	return c
}

// WithTickInterval returns a copy with the given timer period.
func (c Config) WithTickInterval(d time.Duration) Config {
	c.TickInterval = d
	return c
}

// WithWorkgroupSize returns a copy with the given workgroup extent.
func (c Config) WithWorkgroupSize(n int) Config {
	c.WorkgroupSize = n
	return c
}

// WithLiveProbability returns a copy with the given initial population
// probability.
func (c Config) WithLiveProbability(p float64) Config {
	c.LiveProbability = p
	return c
}

// WithSeed returns a copy with a fixed randomization seed.
func (c Config) WithSeed(seed uint64) Config {
	c.Seed = seed
	return c
}

// WithBoundary returns a copy with the given boundary policy.
func (c Config) WithBoundary(b Boundary) Config {
	c.Boundary = b
	return c
}

// WithSubmitTimeout returns a copy with the given submission timeout.
func (c Config) WithSubmitTimeout(d time.Duration) Config {
	c.SubmitTimeout = d
	return c
}

// Width returns the effective grid width.
func (c Config) Width() int {
	if c.sized || c.GridWidth != 0 {
		return c.GridWidth
	}
	return c.GridSize
}

// Height returns the effective grid height.
func (c Config) Height() int {
	if c.sized || c.GridHeight != 0 {
		return c.GridHeight
	}
	return c.GridSize
}

// Rand returns a generator for the initial randomization, seeded from
// Seed or from the clock when Seed is zero.
func (c Config) Rand() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // clock value used as a seed only
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Validate reports every invalid field as a single InitializationError.
func (c Config) Validate() error {
	var errs []error
	if c.Width() <= 0 || c.Height() <= 0 {
		errs = append(errs, fmt.Errorf("grid dimensions must be positive, got %dx%d", c.Width(), c.Height()))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %v", c.TickInterval))
	}
	if c.WorkgroupSize <= 0 {
		errs = append(errs, fmt.Errorf("workgroup size must be positive, got %d", c.WorkgroupSize))
	}
	if c.LiveProbability < 0 || c.LiveProbability > 1 {
		errs = append(errs, fmt.Errorf("live probability must be in [0,1], got %v", c.LiveProbability))
	}
	if c.Boundary != Toroidal && c.Boundary != Bounded {
		errs = append(errs, fmt.Errorf("unknown boundary %v", c.Boundary))
	}
	if c.SubmitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("submit timeout must be positive, got %v", c.SubmitTimeout))
	}
	if len(errs) == 0 {
		return nil
	}
	return NewInitializationError("config", errors.Join(errs...))
}
