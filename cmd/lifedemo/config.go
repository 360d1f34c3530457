package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/gogpu/life"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the TOML layout of a configuration file. Durations are
// strings in time.ParseDuration syntax; omitted keys keep their defaults.
type fileConfig struct {
	GridSize        int            `toml:"grid_size"`
	GridWidth       int            `toml:"grid_width"`
	GridHeight      int            `toml:"grid_height"`
	TickInterval    string         `toml:"tick_interval"`
	WorkgroupSize   int            `toml:"workgroup_size"`
	LiveProbability *float64       `toml:"live_probability"`
	Seed            uint64         `toml:"seed"`
	Boundary        *life.Boundary `toml:"boundary"`
	SubmitTimeout   string         `toml:"submit_timeout"`
	Pattern         string         `toml:"pattern"`
}

// loadConfig reads path and applies it over base. It returns the merged
// configuration and the pattern name, if any.
func loadConfig(path string, base life.Config) (life.Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, "", err
	}
	return parseConfig(data, base)
}

func parseConfig(data []byte, base life.Config) (life.Config, string, error) {
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return base, "", fmt.Errorf("parse config: %w", err)
	}

	cfg := base
	if fc.GridSize != 0 {
		cfg = cfg.WithGridSize(fc.GridSize)
	}
	if fc.GridWidth != 0 || fc.GridHeight != 0 {
		w, h := fc.GridWidth, fc.GridHeight
		if w == 0 {
			w = cfg.Width()
		}
		if h == 0 {
			h = cfg.Height()
		}
		cfg = cfg.WithSize(w, h)
	}
	if fc.TickInterval != "" {
		d, err := time.ParseDuration(fc.TickInterval)
		if err != nil {
			return base, "", fmt.Errorf("tick_interval: %w", err)
		}
		cfg = cfg.WithTickInterval(d)
	}
	if fc.WorkgroupSize != 0 {
		cfg = cfg.WithWorkgroupSize(fc.WorkgroupSize)
	}
	if fc.LiveProbability != nil {
		cfg = cfg.WithLiveProbability(*fc.LiveProbability)
	}
	if fc.Seed != 0 {
		cfg = cfg.WithSeed(fc.Seed)
	}
	if fc.Boundary != nil {
		cfg = cfg.WithBoundary(*fc.Boundary)
	}
	if fc.SubmitTimeout != "" {
		d, err := time.ParseDuration(fc.SubmitTimeout)
		if err != nil {
			return base, "", fmt.Errorf("submit_timeout: %w", err)
		}
		cfg = cfg.WithSubmitTimeout(d)
	}
	return cfg, fc.Pattern, nil
}
