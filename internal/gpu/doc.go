//go:build !nogpu

// Package gpu implements the life engine on wgpu/hal.
//
// The engine owns two cell state storage buffers, a grid uniform, a quad
// vertex buffer, a compute pipeline and a render pipeline sharing one
// explicit bind group layout, and two bind groups that swap the roles of
// the state buffers:
//
//	binding 0: grid uniform (vertex, fragment, compute)
//	binding 1: state read   (vertex, compute)
//	binding 2: state write  (compute)
//
// Each tick records a compute pass with bind group step%2 and a render pass
// with bind group (step+1)%2 into one command encoder and submits it once.
// The simulation program is generated from a template so the workgroup
// extent and edge policy match the configuration.
package gpu
