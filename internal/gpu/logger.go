//go:build !nogpu

package gpu

import (
	"log/slog"

	"github.com/gogpu/life"
)

// slogger returns the logger configured with life.SetLogger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return life.Logger() }
