// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package life runs Conway's Game of Life with the cell state kept on the
// GPU.
//
// The root package holds everything that does not need a device: the grid
// model, the Life transition rule, the double-buffer binding table, the
// dispatch geometry, the tick driver and a CPU reference stepper that
// follows exactly the same ping-pong protocol as the GPU engine. The GPU
// engine itself lives in github.com/gogpu/life/gpu.
//
// # Tick protocol
//
// Two state buffers A and B exist for the lifetime of a simulation. Two
// binding configurations are built once:
//
//	config[0] = (uniform, read A, write B)
//	config[1] = (uniform, read B, write A)
//
// Each tick the [Driver] dispatches the compute program with
// config[step%2], increments step, and renders with config[step%2], so the
// render pass always reads the buffer the compute pass has just written.
// Both passes are submitted as one unit of work.
//
// # Usage
//
//	cfg := life.DefaultConfig().WithGridSize(128)
//	seed, _ := life.NewRandomGrid(cfg.Width(), cfg.Height(), cfg.LiveProbability, cfg.Rand())
//	stepper, _ := life.NewCPUStepper(cfg, seed)
//	driver, _ := life.NewDriver(stepper, cfg)
//	_ = driver.Run(ctx)
//
// # Logging
//
// The package is silent by default. Call [SetLogger] to route lifecycle
// and per-tick diagnostics to a [log/slog] logger.
package life
