// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

// WorkgroupCount returns the number of workgroups of the given extent
// needed to cover n invocations: ceil(n / extent).
func WorkgroupCount(n, extent int) int {
	return (n + extent - 1) / extent
}

// DispatchSize is a compute dispatch grid in workgroups.
type DispatchSize struct {
	X, Y, Z uint32
}

// DispatchFor returns the dispatch grid covering a w x h cell grid with
// extent x extent workgroups. Partial groups at the right and bottom edges
// are included; their excess invocations must be no-ops.
func DispatchFor(w, h, extent int) DispatchSize {
	return DispatchSize{
		X: uint32(WorkgroupCount(w, extent)), //nolint:gosec // validated positive
		Y: uint32(WorkgroupCount(h, extent)), //nolint:gosec // validated positive
		Z: 1,
	}
}

// Invocations returns the total number of shader invocations the dispatch
// launches for the given workgroup extent.
func (d DispatchSize) Invocations(extent int) int {
	return int(d.X) * int(d.Y) * int(d.Z) * extent * extent
}

// Overshoot returns how many invocations of the dispatch fall outside a
// w x h grid.
func (d DispatchSize) Overshoot(w, h, extent int) int {
	return d.Invocations(extent) - w*h
}
