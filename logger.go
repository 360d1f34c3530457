// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with a running driver.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for life and its sub-packages.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Records emitted:
//   - Debug "life: tick" from Driver.Tick with step, compute and render
//     bind group indices and elapsed time; "gpu: compute recorded" from
//     the engine with the bind group label and workgroup grid.
//   - Info "gpu: device opened" / "gpu: using shared device" on device
//     acquisition, "gpu: engine ready" with grid size, workgroups and
//     boundary, and "life: driver started" / "life: driver stopped".
//   - Warn "life: skipping failed frame" under WithSkipFailedFrames and
//     "life: drain failed" when Run cannot drain its stepper.
//
// Example:
//
//	life.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages call this to share the
// same configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
