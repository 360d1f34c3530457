//go:build !nogpu

package main

import (
	"image"

	"github.com/gogpu/life"
	"github.com/gogpu/life/gpu"
)

func newGPUBackend(opts options, cfg life.Config, seed *life.Grid, driverOpts []life.DriverOption) (*backend, error) {
	dev, err := gpu.OpenDevice()
	if err != nil {
		return nil, err
	}
	target, err := gpu.NewOffscreenTarget(dev, cfg.Width()*opts.cellPixels, cfg.Height()*opts.cellPixels)
	if err != nil {
		dev.Close()
		return nil, err
	}
	sim, err := gpu.NewSimulation(dev, target, cfg,
		gpu.WithSeed(seed),
		gpu.WithEngineOptions(gpu.Options{ValidateShaders: true}),
		gpu.WithDriverOptions(driverOpts...))
	if err != nil {
		target.Destroy()
		dev.Close()
		return nil, err
	}
	return &backend{
		name:     "gpu (" + dev.Name + ")",
		driver:   sim.Driver(),
		snapshot: func() (image.Image, error) { return target.Snapshot(cfg.SubmitTimeout) },
		state:    sim.State,
		close: func() {
			sim.Close()
			target.Destroy()
			dev.Close()
		},
	}, nil
}
