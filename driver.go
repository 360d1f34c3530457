// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Stepper records and submits the two passes of a tick. The GPU engine and
// CPUStepper implement it.
//
// Within one tick the driver calls Dispatch, Render and Submit exactly once
// and in that order. config is the index into the stepper's BindingPair.
type Stepper interface {
	// Dispatch records one compute pass reading config's Read buffer and
	// writing its Write buffer.
	Dispatch(config int) error

	// Render records one render pass reading config's Read buffer.
	Render(config int) error

	// Submit submits the recorded passes as a single unit of work.
	Submit() error
}

// Aborter is implemented by steppers that must discard a partially
// recorded tick after a failure.
type Aborter interface {
	Abort()
}

// Drainer is implemented by steppers that can wait for outstanding work
// before shutdown.
type Drainer interface {
	Drain(timeout time.Duration) error
}

// DriverState is the phase of the tick state machine.
type DriverState int32

const (
	// StateIdle means no tick is in flight.
	StateIdle DriverState = iota

	// StateDispatching means the compute pass is being recorded.
	StateDispatching

	// StateRendering means the render pass is being recorded or the tick
	// is being submitted.
	StateRendering
)

// String returns the string representation of DriverState.
func (s DriverState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDispatching:
		return "Dispatching"
	case StateRendering:
		return "Rendering"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMetrics attaches Prometheus instruments to the driver.
func WithMetrics(m *Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// WithSkipFailedFrames makes Run log and skip ticks that fail with
// ErrDispatch instead of returning. The step counter is not advanced for a
// skipped tick, so the ping-pong roles stay consistent with the buffers.
func WithSkipFailedFrames() DriverOption {
	return func(d *Driver) { d.skipFailed = true }
}

// WithTickHook registers fn to run after every successful tick with the
// new step value. An error from fn stops Run.
func WithTickHook(fn func(step uint64) error) DriverOption {
	return func(d *Driver) { d.hook = fn }
}

// WithDrainTimeout bounds the wait for outstanding work when Run returns.
// The default is the configuration's SubmitTimeout.
func WithDrainTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) { d.drainTimeout = timeout }
}

// Driver advances a simulation at a fixed interval. It owns the step
// counter; the stepper never sees it, only the binding index derived from
// it.
//
// A Driver is not reentrant: Tick fails with ErrReentrantTick while another
// tick is in flight, and Run fails with ErrDriverRunning while a loop is
// active.
type Driver struct {
	stepper      Stepper
	interval     time.Duration
	drainTimeout time.Duration
	metrics      *Metrics
	skipFailed   bool
	hook         func(step uint64) error

	step    atomic.Uint64
	state   atomic.Int32
	running atomic.Bool
}

// NewDriver returns a driver for s using cfg's tick interval and submit
// timeout. The step counter starts at zero.
func NewDriver(s Stepper, cfg Config, opts ...DriverOption) (*Driver, error) {
	if s == nil {
		return nil, NewInitializationError("driver", ErrNilStepper)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		stepper:      s,
		interval:     cfg.TickInterval,
		drainTimeout: cfg.SubmitTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Step returns the number of completed ticks.
func (d *Driver) Step() uint64 { return d.step.Load() }

// State returns the current phase of the tick state machine.
func (d *Driver) State() DriverState { return DriverState(d.state.Load()) }

// Tick runs one simulation step:
//
//  1. dispatch compute with config[step%2]
//  2. increment step
//  3. render with config[step%2], the buffer just written
//  4. submit both passes together
//
// The incremented step is committed only after a successful submit.
func (d *Driver) Tick() error {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateDispatching)) {
		return ErrReentrantTick
	}
	defer d.state.Store(int32(StateIdle))

	start := time.Now()
	step := d.step.Load()

	compute := Index(step)
	if err := d.stepper.Dispatch(compute); err != nil {
		return d.fail("compute", step, err)
	}

	next := step + 1
	render := Index(next)
	d.state.Store(int32(StateRendering))
	if err := d.stepper.Render(render); err != nil {
		return d.fail("render", step, err)
	}
	if err := d.stepper.Submit(); err != nil {
		return d.fail("submit", step, err)
	}

	d.step.Store(next)
	elapsed := time.Since(start)
	d.metrics.observeTick(next, elapsed)
	Logger().Debug("life: tick",
		"step", next, "compute", compute, "render", render, "elapsed", elapsed)
	return nil
}

func (d *Driver) fail(phase string, step uint64, err error) error {
	if a, ok := d.stepper.(Aborter); ok {
		a.Abort()
	}
	d.metrics.observeFailure(phase)
	return &DispatchError{Phase: phase, Step: step, Err: err}
}

// Run ticks every interval until ctx is cancelled. Cancellation is checked
// between ticks; a tick in progress always completes. Before returning,
// outstanding work is drained when the stepper implements Drainer.
//
// Run returns nil on cancellation and the first tick or hook error
// otherwise, unless WithSkipFailedFrames is set, in which case dispatch
// errors are logged and the loop continues.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrDriverRunning
	}
	defer d.running.Store(false)
	defer d.drain()

	log := Logger()
	log.Info("life: driver started", "interval", d.interval, "step", d.Step())

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("life: driver stopped", "step", d.Step())
			return nil
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			log.Info("life: driver stopped", "step", d.Step())
			return nil
		}

		if err := d.Tick(); err != nil {
			if d.skipFailed && errors.Is(err, ErrDispatch) {
				log.Warn("life: skipping failed frame", "step", d.Step(), "err", err)
				continue
			}
			return err
		}
		if d.hook != nil {
			if err := d.hook(d.Step()); err != nil {
				return fmt.Errorf("life: tick hook at step %d: %w", d.Step(), err)
			}
		}
	}
}

func (d *Driver) drain() {
	dr, ok := d.stepper.(Drainer)
	if !ok {
		return
	}
	if err := dr.Drain(d.drainTimeout); err != nil {
		Logger().Warn("life: drain failed", "err", err)
	}
}
