// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import "fmt"

// Bind group labels, matching the GPU debug labels of the two groups.
const (
	BindGroupLabelA = "Cell renderer bind group A"
	BindGroupLabelB = "Cell renderer bind group B"
)

// BindGroupConfig is one immutable binding of the uniform and the two
// state buffers. B is the buffer handle type: hal.Buffer on the GPU, a
// slot index on the CPU.
type BindGroupConfig[B comparable] struct {
	Label   string
	Uniform B
	Read    B
	Write   B
}

// BindingPair is the fixed two-entry binding table. Entry 0 reads A and
// writes B, entry 1 reads B and writes A. It is built once and indexed by
// step parity.
type BindingPair[B comparable] [2]BindGroupConfig[B]

// NewBindingPair builds the table for the given uniform and state buffers.
func NewBindingPair[B comparable](uniform, a, b B) BindingPair[B] {
	return BindingPair[B]{
		{Label: BindGroupLabelA, Uniform: uniform, Read: a, Write: b},
		{Label: BindGroupLabelB, Uniform: uniform, Read: b, Write: a},
	}
}

// Index returns the table index selected by step.
func Index(step uint64) int { return int(step % 2) }

// At returns the configuration selected by step.
func (p BindingPair[B]) At(step uint64) BindGroupConfig[B] {
	return p[Index(step)]
}

// Validate checks the ping-pong invariants: each entry reads what the
// other writes, no entry reads and writes the same buffer, and both share
// one uniform.
func (p BindingPair[B]) Validate() error {
	for i := range p {
		o := p[1-i]
		if p[i].Read != o.Write {
			return fmt.Errorf("life: bind group %d reads a buffer bind group %d does not write", i, 1-i)
		}
		if p[i].Read == p[i].Write {
			return fmt.Errorf("life: bind group %d reads and writes the same buffer", i)
		}
		if p[i].Uniform != o.Uniform {
			return fmt.Errorf("life: bind groups disagree on the uniform buffer")
		}
	}
	return nil
}
