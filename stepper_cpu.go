// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"fmt"
)

// Sentinel fills the guard words past the end of each CPU state buffer.
// An invocation that escaped its bounds check would overwrite it.
const Sentinel uint32 = 0xDEADBEEF

// Buffer slots of the CPU stepper's binding table.
const (
	slotUniform = -1
	slotA       = 0
	slotB       = 1
)

type cpuPhase int

const (
	cpuIdle cpuPhase = iota
	cpuDispatched
	cpuRendered
)

// DispatchStats describes the most recent compute dispatch.
type DispatchStats struct {
	Groups      DispatchSize
	Invocations int
	// Active counts invocations that passed the bounds check and wrote a
	// cell.
	Active int
}

// CPUStepper is the host reference implementation of Stepper. It keeps two
// state buffers and a binding table like the GPU engine and executes the
// simulation kernel invocation by invocation over the same dispatch grid,
// so the ping-pong protocol and edge coverage can be verified without a
// device.
type CPUStepper struct {
	width    int
	height   int
	extent   int
	boundary Boundary
	groups   DispatchSize

	// buffers hold width*height cells followed by guard words.
	buffers [2][]uint32
	pair    BindingPair[int]

	phase       cpuPhase
	submissions uint64
	stats       DispatchStats
	lastWrite   int
	lastRender  int
	frame       *Grid
}

// NewCPUStepper validates cfg and uploads seed into buffer A. Buffer B
// starts zeroed. seed must match cfg's dimensions.
func NewCPUStepper(cfg Config, seed *Grid) (*CPUStepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, h := cfg.Width(), cfg.Height()
	if seed == nil || seed.Width != w || seed.Height != h {
		return nil, NewInitializationError("cpu stepper", fmt.Errorf("seed does not match %dx%d grid", w, h))
	}

	groups := DispatchFor(w, h, cfg.WorkgroupSize)
	guard := groups.Overshoot(w, h, cfg.WorkgroupSize)
	if guard < 1 {
		guard = 1
	}

	s := &CPUStepper{
		width:      w,
		height:     h,
		extent:     cfg.WorkgroupSize,
		boundary:   cfg.Boundary,
		groups:     groups,
		pair:       NewBindingPair(slotUniform, slotA, slotB),
		lastWrite:  -1,
		lastRender: -1,
	}
	for i := range s.buffers {
		buf := make([]uint32, w*h+guard)
		for j := w * h; j < len(buf); j++ {
			buf[j] = Sentinel
		}
		s.buffers[i] = buf
	}
	copy(s.buffers[slotA], seed.Cells)
	s.frame = seed.Clone()
	return s, nil
}

// Bindings returns the stepper's binding table of buffer slots.
func (s *CPUStepper) Bindings() BindingPair[int] { return s.pair }

// Dispatch runs the simulation kernel over the whole dispatch grid,
// reading and writing the buffers named by config.
func (s *CPUStepper) Dispatch(config int) error {
	if s.phase != cpuIdle {
		return fmt.Errorf("dispatch in phase %d: %w", s.phase, ErrOutOfOrder)
	}
	cfg := s.pair[config]
	src, dst := s.buffers[cfg.Read], s.buffers[cfg.Write]

	stats := DispatchStats{Groups: s.groups, Invocations: s.groups.Invocations(s.extent)}
	for gy := 0; gy < int(s.groups.Y); gy++ {
		for gx := 0; gx < int(s.groups.X); gx++ {
			for ly := 0; ly < s.extent; ly++ {
				for lx := 0; lx < s.extent; lx++ {
					x, y := gx*s.extent+lx, gy*s.extent+ly
					if evolveCell(dst, src, s.width, s.height, x, y, s.boundary) {
						stats.Active++
					}
				}
			}
		}
	}

	s.stats = stats
	s.lastWrite = cfg.Write
	s.phase = cpuDispatched
	return nil
}

// Render captures the buffer read by config as the current frame.
func (s *CPUStepper) Render(config int) error {
	if s.phase != cpuDispatched {
		return fmt.Errorf("render in phase %d: %w", s.phase, ErrOutOfOrder)
	}
	cfg := s.pair[config]
	copy(s.frame.Cells, s.buffers[cfg.Read][:s.width*s.height])
	s.lastRender = cfg.Read
	s.phase = cpuRendered
	return nil
}

// Submit completes the tick.
func (s *CPUStepper) Submit() error {
	if s.phase != cpuRendered {
		return fmt.Errorf("submit in phase %d: %w", s.phase, ErrOutOfOrder)
	}
	s.submissions++
	s.phase = cpuIdle
	return nil
}

// Abort discards a partially recorded tick. Work already executed by
// Dispatch is not rolled back, matching a GPU that has consumed the pass.
func (s *CPUStepper) Abort() {
	s.phase = cpuIdle
}

// Frame returns the grid captured by the most recent render pass, or the
// seed before the first tick. The returned grid is owned by the stepper.
func (s *CPUStepper) Frame() *Grid { return s.frame }

// Submissions returns the number of completed ticks.
func (s *CPUStepper) Submissions() uint64 { return s.submissions }

// LastDispatch returns statistics of the most recent dispatch.
func (s *CPUStepper) LastDispatch() DispatchStats { return s.stats }

// LastWrite returns the slot written by the most recent dispatch, or -1.
func (s *CPUStepper) LastWrite() int { return s.lastWrite }

// LastRenderRead returns the slot read by the most recent render, or -1.
func (s *CPUStepper) LastRenderRead() int { return s.lastRender }

// GuardIntact reports whether every guard word past the end of both
// buffers still holds Sentinel.
func (s *CPUStepper) GuardIntact() bool {
	n := s.width * s.height
	for _, buf := range s.buffers {
		for _, v := range buf[n:] {
			if v != Sentinel {
				return false
			}
		}
	}
	return true
}
