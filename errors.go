// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this module that stems from
// one of these failure classes matches the sentinel with errors.Is.
var (
	// ErrInitialization covers invalid configuration, a missing GPU adapter
	// and a rejected surface. Fatal; reported before any tick runs.
	ErrInitialization = errors.New("life: initialization failed")

	// ErrResourceCreation covers buffer, shader, layout and pipeline
	// allocation failures. Fatal; reported before any tick runs.
	ErrResourceCreation = errors.New("life: resource creation failed")

	// ErrDispatch covers failures while recording or submitting a tick.
	ErrDispatch = errors.New("life: dispatch failed")
)

// Driver protocol errors.
var (
	// ErrReentrantTick is returned when Tick is called while another tick
	// is still in flight.
	ErrReentrantTick = errors.New("life: tick already in progress")

	// ErrDriverRunning is returned when Run is called on a driver whose
	// loop is already active.
	ErrDriverRunning = errors.New("life: driver already running")

	// ErrNilStepper is returned by NewDriver when no stepper is supplied.
	ErrNilStepper = errors.New("life: stepper is nil")

	// ErrOutOfOrder is returned by a stepper when the passes of a tick are
	// recorded in the wrong order (render before compute, submit before
	// render).
	ErrOutOfOrder = errors.New("life: tick phases out of order")
)

// InitializationError reports a fatal startup failure.
type InitializationError struct {
	Op  string
	Err error
}

// NewInitializationError wraps err as an InitializationError for op.
func NewInitializationError(op string, err error) error {
	return &InitializationError{Op: op, Err: err}
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("life: init %s: %v", e.Op, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInitialization.
func (e *InitializationError) Is(target error) bool { return target == ErrInitialization }

// ResourceCreationError reports a failed GPU object allocation.
type ResourceCreationError struct {
	// Resource is the debug label of the object that failed.
	Resource string
	Err      error
}

// NewResourceCreationError wraps err as a ResourceCreationError for resource.
func NewResourceCreationError(resource string, err error) error {
	return &ResourceCreationError{Resource: resource, Err: err}
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("life: create %s: %v", e.Resource, e.Err)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrResourceCreation.
func (e *ResourceCreationError) Is(target error) bool { return target == ErrResourceCreation }

// DispatchError reports a failure during one tick.
type DispatchError struct {
	// Phase is "compute", "render" or "submit".
	Phase string
	// Step is the step counter value when the tick started.
	Step uint64
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("life: tick %d %s: %v", e.Step, e.Phase, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDispatch.
func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }
