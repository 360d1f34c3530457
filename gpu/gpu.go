//go:build !nogpu

// Package gpu runs a life simulation on a GPU through wgpu/hal.
//
// A Simulation owns the engine that holds both state buffers, both bind
// groups and both pipelines, and the life.Driver that ticks it:
//
//	dev, err := gpu.OpenDevice()
//	if err != nil { ... }
//	defer dev.Close()
//	target, err := gpu.NewOffscreenTarget(dev, 512, 512)
//	sim, err := gpu.NewSimulation(dev, target, life.DefaultConfig())
//	defer sim.Close()
//	err = sim.Driver().Run(ctx)
//
// Hosts that already own a device, such as a gogpu window, pass it through
// DeviceFromProvider instead of opening a new one.
package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/life"
	gpuimpl "github.com/gogpu/life/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Device is an open logical device and queue.
type Device = gpuimpl.Device

// FrameTarget supplies the color attachment of each render pass.
type FrameTarget = gpuimpl.FrameTarget

// OffscreenTarget renders into a texture that can be read back.
type OffscreenTarget = gpuimpl.OffscreenTarget

// Options configures the engine.
type Options = gpuimpl.Options

// OpenDevice opens the preferred Vulkan adapter.
func OpenDevice() (*Device, error) {
	return gpuimpl.OpenDevice(gputypes.BackendVulkan)
}

// DeviceFromProvider wraps a device shared by a host application.
func DeviceFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	return gpuimpl.DeviceFromProvider(provider)
}

// NewOffscreenTarget allocates a width x height render texture on dev.
func NewOffscreenTarget(dev *Device, width, height int) (*OffscreenTarget, error) {
	return gpuimpl.NewOffscreenTarget(dev.Device, dev.Queue, width, height)
}

// Simulation is a GPU engine paired with its driver.
type Simulation struct {
	engine *gpuimpl.Engine
	driver *life.Driver
}

// SimulationOption configures NewSimulation.
type SimulationOption func(*simulationConfig)

type simulationConfig struct {
	seed       *life.Grid
	opts       Options
	driverOpts []life.DriverOption
}

// WithSeed uploads g instead of a random grid.
func WithSeed(g *life.Grid) SimulationOption {
	return func(c *simulationConfig) { c.seed = g }
}

// WithEngineOptions sets the engine options.
func WithEngineOptions(o Options) SimulationOption {
	return func(c *simulationConfig) { c.opts = o }
}

// WithDriverOptions forwards options to life.NewDriver.
func WithDriverOptions(opts ...life.DriverOption) SimulationOption {
	return func(c *simulationConfig) { c.driverOpts = append(c.driverOpts, opts...) }
}

// NewSimulation seeds a grid from cfg (unless WithSeed is given), builds the
// engine on dev rendering into target, and wraps it in a driver.
func NewSimulation(dev *Device, target FrameTarget, cfg life.Config, opts ...SimulationOption) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, life.NewInitializationError("simulation", fmt.Errorf("device is nil"))
	}
	var sc simulationConfig
	for _, opt := range opts {
		opt(&sc)
	}
	seed := sc.seed
	if seed == nil {
		var err error
		seed, err = life.NewRandomGrid(cfg.Width(), cfg.Height(), cfg.LiveProbability, cfg.Rand())
		if err != nil {
			return nil, err
		}
	}

	engine, err := gpuimpl.NewEngine(dev.Device, dev.Queue, cfg, seed, target, sc.opts)
	if err != nil {
		return nil, err
	}
	driver, err := life.NewDriver(engine, cfg, sc.driverOpts...)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return &Simulation{engine: engine, driver: driver}, nil
}

// Driver returns the simulation's driver.
func (s *Simulation) Driver() *life.Driver { return s.driver }

// Tick advances the simulation by one step.
func (s *Simulation) Tick() error { return s.driver.Tick() }

// State reads back the grid the current step renders.
func (s *Simulation) State() (*life.Grid, error) {
	return s.engine.ReadState(s.driver.Step())
}

// Bindings returns the engine's binding table.
func (s *Simulation) Bindings() life.BindingPair[hal.Buffer] { return s.engine.Bindings() }

// Close releases the engine's GPU objects.
func (s *Simulation) Close() { s.engine.Close() }
