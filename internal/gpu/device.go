//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/life"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// ErrNoAdapter is returned when the backend exposes no adapters.
var ErrNoAdapter = errors.New("gpu: no GPU adapters found")

// Device is an open logical device and its queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue
	// Name is the adapter name, empty for shared devices.
	Name string
	// Format is the preferred render target format. It is the surface
	// format for shared devices and BGRA8 otherwise.
	Format gputypes.TextureFormat

	instance hal.Instance
	external bool
}

// OpenDevice creates an instance of backend and opens the first discrete
// or integrated adapter, falling back to the first adapter listed.
func OpenDevice(backend gputypes.Backend) (*Device, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, life.NewInitializationError("open device", fmt.Errorf("%v backend not available", backend))
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, life.NewInitializationError("create instance", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, life.NewInitializationError("enumerate adapters", ErrNoAdapter)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, life.NewInitializationError("open adapter", err)
	}
	slogger().Info("gpu: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)
	return &Device{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Name:     selected.Info.Name,
		Format:   gputypes.TextureFormatBGRA8Unorm,
		instance: instance,
	}, nil
}

// DeviceFromProvider wraps a device shared by a host application. The
// provider must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. Close does not destroy a shared device.
func DeviceFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, life.NewInitializationError("device provider", errors.New("provider is nil"))
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, life.NewInitializationError("device provider", errors.New("provider does not expose HAL types"))
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, life.NewInitializationError("device provider", errors.New("HalDevice is not hal.Device"))
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, life.NewInitializationError("device provider", errors.New("HalQueue is not hal.Queue"))
	}
	format := provider.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	slogger().Info("gpu: using shared device", "format", format)
	return &Device{Device: device, Queue: queue, Format: format, external: true}, nil
}

// Close destroys the device and instance unless they are shared.
func (d *Device) Close() {
	if d.external {
		d.Device, d.Queue = nil, nil
		return
	}
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.Queue = nil
}
