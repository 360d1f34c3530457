//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// recordingDevice records buffer descriptors and wraps command encoders so
// the passes of a tick can be inspected.
type recordingDevice struct {
	hal.Device
	buffers   map[string]hal.BufferDescriptor
	failOn    string
	failBegin bool
	encoders  int
	log       *passLog
}

type passLog struct {
	discards      int
	computeGroups []hal.BindGroup
	renderGroups  []hal.BindGroup
	dispatches    [][3]uint32
	draws         [][2]uint32
}

func newRecordingDevice(d hal.Device) *recordingDevice {
	return &recordingDevice{Device: d, buffers: map[string]hal.BufferDescriptor{}, log: &passLog{}}
}

func (d *recordingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if desc.Label == d.failOn {
		return nil, errors.New("out of memory")
	}
	d.buffers[desc.Label] = *desc
	return d.Device.CreateBuffer(desc)
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.encoders++
	return &recordingEncoder{CommandEncoder: enc, log: d.log, failBegin: d.failBegin}, nil
}

type recordingEncoder struct {
	hal.CommandEncoder
	log       *passLog
	failBegin bool
}

func (e *recordingEncoder) BeginEncoding(label string) error {
	if e.failBegin {
		return errors.New("device lost")
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *recordingEncoder) DiscardEncoding() {
	e.log.discards++
	e.CommandEncoder.DiscardEncoding()
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return &recordingComputePass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), log: e.log}
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	return &recordingRenderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), log: e.log}
}

type recordingComputePass struct {
	hal.ComputePassEncoder
	log *passLog
}

func (p *recordingComputePass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.log.computeGroups = append(p.log.computeGroups, group)
	p.ComputePassEncoder.SetBindGroup(index, group, offsets)
}

func (p *recordingComputePass) Dispatch(x, y, z uint32) {
	p.log.dispatches = append(p.log.dispatches, [3]uint32{x, y, z})
	p.ComputePassEncoder.Dispatch(x, y, z)
}

type recordingRenderPass struct {
	hal.RenderPassEncoder
	log *passLog
}

func (p *recordingRenderPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.log.renderGroups = append(p.log.renderGroups, group)
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *recordingRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.log.draws = append(p.log.draws, [2]uint32{vertexCount, instanceCount})
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// countingQueue counts submissions and the command buffers in each.
type countingQueue struct {
	hal.Queue
	submits []int
}

func (q *countingQueue) Submit(cmds []hal.CommandBuffer, fence hal.Fence, value uint64) error {
	q.submits = append(q.submits, len(cmds))
	return q.Queue.Submit(cmds, fence, value)
}

func seedGrid(t *testing.T, cfg life.Config) *life.Grid {
	t.Helper()
	g, err := life.NewGrid(cfg.Width(), cfg.Height())
	if err != nil {
		t.Fatal(err)
	}
	g.Place(life.Glider, 1, 1)
	return g
}

func newTestEngine(t *testing.T, device hal.Device, queue hal.Queue, cfg life.Config) (*Engine, *OffscreenTarget) {
	t.Helper()
	target, err := NewOffscreenTarget(device, queue, 64, 64)
	if err != nil {
		t.Fatalf("NewOffscreenTarget: %v", err)
	}
	t.Cleanup(target.Destroy)
	e, err := NewEngine(device, queue, cfg, seedGrid(t, cfg), target, Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, target
}

func TestNewEngineBuffers(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	rd := newRecordingDevice(device)

	cfg := life.DefaultConfig().WithSize(64, 48)
	newTestEngine(t, rd, queue, cfg)

	for _, label := range []string{labelStateA, labelStateB} {
		desc, ok := rd.buffers[label]
		if !ok {
			t.Fatalf("buffer %q not created", label)
		}
		if desc.Size != 64*48*4 {
			t.Errorf("%s size = %d, want %d", label, desc.Size, 64*48*4)
		}
		want := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
		if desc.Usage&want != want {
			t.Errorf("%s usage = %v, want storage|copy_dst|copy_src", label, desc.Usage)
		}
	}
	if desc := rd.buffers[labelUniform]; desc.Size != life.UniformSize || desc.Usage&gputypes.BufferUsageUniform == 0 {
		t.Errorf("uniform buffer = %+v", desc)
	}
	if desc := rd.buffers[labelVertices]; desc.Size != 48 || desc.Usage&gputypes.BufferUsageVertex == 0 {
		t.Errorf("vertex buffer = %+v", desc)
	}
}

func TestEngineBindingsPingPong(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	e, _ := newTestEngine(t, device, queue, life.DefaultConfig())
	b := e.Bindings()
	bufs := e.StateBuffers()
	if b[0].Read != bufs[0] || b[0].Write != bufs[1] {
		t.Error("bind group A should read A and write B")
	}
	if b[1].Read != bufs[1] || b[1].Write != bufs[0] {
		t.Error("bind group B should read B and write A")
	}
	if b[0].Label != life.BindGroupLabelA || b[1].Label != life.BindGroupLabelB {
		t.Errorf("labels = %q, %q", b[0].Label, b[1].Label)
	}
}

func TestEngineTickProtocol(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	rd := newRecordingDevice(device)
	cq := &countingQueue{Queue: queue}

	cfg := life.DefaultConfig().WithGridSize(65)
	e, _ := newTestEngine(t, rd, cq, cfg)
	d, err := life.NewDriver(e, cfg)
	if err != nil {
		t.Fatal(err)
	}

	const ticks = 4
	for i := 0; i < ticks; i++ {
		if err := d.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	log := rd.log
	if len(log.computeGroups) != ticks || len(log.renderGroups) != ticks {
		t.Fatalf("passes: %d compute, %d render; want %d each", len(log.computeGroups), len(log.renderGroups), ticks)
	}
	for n := 0; n < ticks; n++ {
		if log.computeGroups[n] != e.bindGroups[n%2] {
			t.Errorf("tick %d compute used the wrong bind group", n)
		}
		if log.renderGroups[n] != e.bindGroups[(n+1)%2] {
			t.Errorf("tick %d render used the wrong bind group", n)
		}
		if n+1 < ticks && log.renderGroups[n] != log.computeGroups[n+1] {
			t.Errorf("tick %d rendered a buffer the next compute does not read", n)
		}
		if log.dispatches[n] != [3]uint32{9, 9, 1} {
			t.Errorf("tick %d dispatch = %v, want [9 9 1]", n, log.dispatches[n])
		}
		if log.draws[n] != [2]uint32{6, 65 * 65} {
			t.Errorf("tick %d draw = %v, want [6 %d]", n, log.draws[n], 65*65)
		}
	}

	// Exactly one submission of one command buffer per tick.
	tickSubmits := cq.submits
	if len(tickSubmits) != ticks {
		t.Fatalf("submissions = %v, want %d", tickSubmits, ticks)
	}
	for _, n := range tickSubmits {
		if n != 1 {
			t.Errorf("submission carried %d command buffers, want 1", n)
		}
	}
	if e.Submissions() != ticks || d.Step() != ticks {
		t.Errorf("Submissions() = %d, Step() = %d; want %d", e.Submissions(), d.Step(), ticks)
	}
}

func TestEngineAbortDiscardsEncoder(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	rd := newRecordingDevice(device)

	e, _ := newTestEngine(t, rd, queue, life.DefaultConfig())
	if err := e.Dispatch(0); err != nil {
		t.Fatal(err)
	}
	if err := e.Dispatch(0); !errors.Is(err, ErrEncoderOpen) {
		t.Errorf("second Dispatch = %v, want ErrEncoderOpen", err)
	}
	e.Abort()
	if e.encoder != nil || e.phase != phaseIdle {
		t.Error("Abort left a recording open")
	}
	if rd.log.discards != 1 {
		t.Errorf("discards = %d, want 1", rd.log.discards)
	}
	if err := e.Submit(); !errors.Is(err, ErrNoEncoder) {
		t.Errorf("Submit after Abort = %v, want ErrNoEncoder", err)
	}
	if err := e.Render(1); !errors.Is(err, ErrNoEncoder) {
		t.Errorf("Render without Dispatch = %v, want ErrNoEncoder", err)
	}
}

func TestEngineBeginEncodingFailure(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	rd := newRecordingDevice(device)

	e, _ := newTestEngine(t, rd, queue, life.DefaultConfig())
	rd.failBegin = true
	if err := e.Dispatch(0); err == nil || !strings.Contains(err.Error(), "begin encoding") {
		t.Fatalf("Dispatch = %v, want begin encoding error", err)
	}
	if rd.log.discards != 1 {
		t.Errorf("discards after failed Dispatch = %d, want 1", rd.log.discards)
	}
	if e.encoder != nil || e.phase != phaseIdle {
		t.Error("failed Dispatch left a recording open")
	}
	if _, err := e.ReadState(0); err == nil {
		t.Fatal("ReadState with failing encoder = nil error")
	}
	if rd.log.discards != 2 {
		t.Errorf("discards after failed ReadState = %d, want 2", rd.log.discards)
	}

	rd.failBegin = false
	if err := e.Dispatch(0); err != nil {
		t.Fatalf("Dispatch after recovery: %v", err)
	}
	if len(rd.log.dispatches) != 1 {
		t.Errorf("dispatches = %d, want 1", len(rd.log.dispatches))
	}
}

func TestEngineLogsReady(t *testing.T) {
	orig := life.Logger()
	t.Cleanup(func() { life.SetLogger(orig) })
	var buf bytes.Buffer
	life.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	e, _ := newTestEngine(t, device, queue, life.DefaultConfig().WithSize(65, 65))
	if err := e.Dispatch(0); err != nil {
		t.Fatal(err)
	}
	e.Abort()

	out := buf.String()
	for _, want := range []string{
		"level=INFO", "gpu: engine ready", "grid=65x65", "workgroups=9x9", "boundary=toroidal",
		"level=DEBUG", "gpu: compute recorded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestEngineReadState(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := life.DefaultConfig().WithSize(16, 8)
	e, _ := newTestEngine(t, device, queue, cfg)
	g, err := e.ReadState(0)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if g.Width != 16 || g.Height != 8 {
		t.Errorf("grid = %dx%d, want 16x8", g.Width, g.Height)
	}
}

func TestNewEngineResourceFailure(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	for _, label := range []string{labelVertices, labelUniform, labelStateA, labelStateB} {
		t.Run(label, func(t *testing.T) {
			rd := newRecordingDevice(device)
			rd.failOn = label
			cfg := life.DefaultConfig()
			target, err := NewOffscreenTarget(device, queue, 32, 32)
			if err != nil {
				t.Fatal(err)
			}
			defer target.Destroy()

			_, err = NewEngine(rd, queue, cfg, seedGrid(t, cfg), target, Options{})
			if !errors.Is(err, life.ErrResourceCreation) {
				t.Fatalf("NewEngine = %v, want ErrResourceCreation", err)
			}
			var rce *life.ResourceCreationError
			if !errors.As(err, &rce) || rce.Resource != label {
				t.Errorf("error = %v, want resource %q", err, label)
			}
		})
	}
}

func TestNewEngineInvalidConfig(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	target, err := NewOffscreenTarget(device, queue, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()

	seed, _ := life.NewGrid(4, 4)
	if _, err := NewEngine(device, queue, life.DefaultConfig().WithGridSize(0), seed, target, Options{}); !errors.Is(err, life.ErrInitialization) {
		t.Errorf("zero grid: %v, want ErrInitialization", err)
	}
	if _, err := NewEngine(device, queue, life.DefaultConfig(), seed, target, Options{}); !errors.Is(err, life.ErrInitialization) {
		t.Errorf("mismatched seed: %v, want ErrInitialization", err)
	}
	if _, err := NewEngine(device, queue, life.DefaultConfig().WithGridSize(4), seed, nil, Options{}); !errors.Is(err, life.ErrInitialization) {
		t.Errorf("nil target: %v, want ErrInitialization", err)
	}
}

func TestEngineClosed(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	e, _ := newTestEngine(t, device, queue, life.DefaultConfig())
	e.Close()
	e.Close()
	if err := e.Dispatch(0); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Dispatch after Close = %v", err)
	}
	if _, err := e.ReadState(0); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("ReadState after Close = %v", err)
	}
}

func TestOffscreenSnapshot(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	target, err := NewOffscreenTarget(device, queue, 70, 30)
	if err != nil {
		t.Fatal(err)
	}
	defer target.Destroy()

	img, err := target.Snapshot(life.DefaultSubmitTimeout)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 70 || b.Dy() != 30 {
		t.Errorf("bounds = %v, want 70x30", b)
	}
	if w, h := target.Size(); w != 70 || h != 30 {
		t.Errorf("Size() = %dx%d", w, h)
	}
	if target.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v", target.Format())
	}
}

func TestConvertBGRAToRGBA(t *testing.T) {
	src := []byte{0x10, 0x20, 0x30, 0xFF, 0x01, 0x02, 0x03, 0x04}
	dst := make([]byte, 8)
	convertBGRAToRGBA(src, dst)
	want := []byte{0x30, 0x20, 0x10, 0xFF, 0x03, 0x02, 0x01, 0x04}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %x, want %x", dst, want)
		}
	}
}
