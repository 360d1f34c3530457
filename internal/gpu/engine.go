//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life"
	"github.com/gogpu/wgpu/hal"
)

// Labels of the engine's GPU objects.
const (
	labelVertices    = "Cell vertices"
	labelUniform     = "Grid Uniforms"
	labelStateA      = "Cell State A"
	labelStateB      = "Cell State B"
	labelBindLayout  = "Cell Bind Group Layout"
	labelPipeLayout  = "Cell Pipeline Layout"
	labelSimShader   = "Game of Life simulation shader"
	labelCellShader  = "Cell shader"
	labelSimPipeline = "Simulation pipeline"
	labelCellPipe    = "Cell pipeline"
)

// Errors reported by the engine's tick protocol.
var (
	ErrEngineClosed = errors.New("gpu: engine closed")
	ErrNoEncoder    = errors.New("gpu: no tick is being recorded")
	ErrEncoderOpen  = errors.New("gpu: a tick is already being recorded")
)

// DefaultClearColor is the background of every frame.
var DefaultClearColor = gputypes.Color{R: 0, G: 0, B: 0.4, A: 1}

// Options configures an Engine.
type Options struct {
	// ClearColor is the render pass clear color. The zero value selects
	// DefaultClearColor.
	ClearColor gputypes.Color

	// ValidateShaders compiles both programs with naga before creating
	// shader modules, so template or syntax errors surface as
	// ResourceCreationError with a compiler message.
	ValidateShaders bool
}

type recordPhase int

const (
	phaseIdle recordPhase = iota
	phaseComputed
	phaseRendered
)

// Engine owns every GPU object of one simulation and implements
// life.Stepper. All objects are created once by NewEngine and never
// recreated; a tick only selects between the two prebuilt bind groups.
//
// Engine is not safe for concurrent use. The life.Driver serializes ticks.
type Engine struct {
	device hal.Device
	queue  hal.Queue
	target FrameTarget

	width, height int
	boundary      life.Boundary
	groups        life.DispatchSize
	timeout       time.Duration
	clear         gputypes.Color

	vertexBuf  hal.Buffer
	uniformBuf hal.Buffer
	stateBufs  [2]hal.Buffer
	bindings   life.BindingPair[hal.Buffer]

	bindLayout      hal.BindGroupLayout
	pipeLayout      hal.PipelineLayout
	simShader       hal.ShaderModule
	cellShader      hal.ShaderModule
	computePipeline hal.ComputePipeline
	renderPipeline  hal.RenderPipeline
	bindGroups      [2]hal.BindGroup

	encoder hal.CommandEncoder
	phase   recordPhase
	ticks   uint64
	closed  bool
}

var (
	_ life.Stepper = (*Engine)(nil)
	_ life.Aborter = (*Engine)(nil)
	_ life.Drainer = (*Engine)(nil)
)

// NewEngine validates cfg, allocates the buffers, uploads the seed into
// state buffer A and builds both pipelines and both bind groups. seed must
// match cfg's grid; buffer B starts zeroed.
//
// Any failure releases what was already created and returns an
// InitializationError or ResourceCreationError.
func NewEngine(device hal.Device, queue hal.Queue, cfg life.Config, seed *life.Grid, target FrameTarget, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if device == nil || queue == nil {
		return nil, life.NewInitializationError("engine", errors.New("device and queue are required"))
	}
	if target == nil {
		return nil, life.NewInitializationError("engine", errors.New("frame target is required"))
	}
	w, h := cfg.Width(), cfg.Height()
	if seed == nil || seed.Width != w || seed.Height != h {
		return nil, life.NewInitializationError("engine", fmt.Errorf("seed does not match %dx%d grid", w, h))
	}

	e := &Engine{
		device:   device,
		queue:    queue,
		target:   target,
		width:    w,
		height:   h,
		boundary: cfg.Boundary,
		groups:   life.DispatchFor(w, h, cfg.WorkgroupSize),
		timeout:  cfg.SubmitTimeout,
		clear:    opts.ClearColor,
	}
	if e.clear == (gputypes.Color{}) {
		e.clear = DefaultClearColor
	}

	if err := e.createBuffers(seed); err != nil {
		e.destroy()
		return nil, err
	}
	if err := e.createPipelines(cfg, target.Format(), opts.ValidateShaders); err != nil {
		e.destroy()
		return nil, err
	}
	if err := e.createBindGroups(); err != nil {
		e.destroy()
		return nil, err
	}

	slogger().Info("gpu: engine ready",
		"grid", fmt.Sprintf("%dx%d", w, h),
		"workgroups", fmt.Sprintf("%dx%d", e.groups.X, e.groups.Y),
		"boundary", cfg.Boundary)
	return e, nil
}

func (e *Engine) createBuffer(label string, size uint64, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, life.NewResourceCreationError(label, err)
	}
	if data != nil {
		e.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (e *Engine) createBuffers(seed *life.Grid) error {
	var err error
	quad := life.QuadBytes()
	e.vertexBuf, err = e.createBuffer(labelVertices, uint64(len(quad)),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst, quad)
	if err != nil {
		return err
	}

	e.uniformBuf, err = e.createBuffer(labelUniform, life.UniformSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, life.UniformFor(e.width, e.height).Bytes())
	if err != nil {
		return err
	}

	size := life.StateBufferSize(e.width, e.height)
	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	e.stateBufs[0], err = e.createBuffer(labelStateA, size, usage, seed.Bytes())
	if err != nil {
		return err
	}
	e.stateBufs[1], err = e.createBuffer(labelStateB, size, usage, nil)
	if err != nil {
		return err
	}

	e.bindings = life.NewBindingPair(e.uniformBuf, e.stateBufs[0], e.stateBufs[1])
	return nil
}

func (e *Engine) createPipelines(cfg life.Config, format gputypes.TextureFormat, validate bool) error {
	simSource, err := SimulationShader(cfg.WorkgroupSize, cfg.Boundary)
	if err != nil {
		return life.NewResourceCreationError(labelSimShader, err)
	}
	if validate {
		if err := ValidateShader("simulation", simSource); err != nil {
			return life.NewResourceCreationError(labelSimShader, err)
		}
		if err := ValidateShader("cell", cellShaderSource); err != nil {
			return life.NewResourceCreationError(labelCellShader, err)
		}
	}

	e.simShader, err = e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  labelSimShader,
		Source: hal.ShaderSource{WGSL: simSource},
	})
	if err != nil {
		return life.NewResourceCreationError(labelSimShader, err)
	}
	e.cellShader, err = e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  labelCellShader,
		Source: hal.ShaderSource{WGSL: cellShaderSource},
	})
	if err != nil {
		return life.NewResourceCreationError(labelCellShader, err)
	}

	e.bindLayout, err = e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: labelBindLayout,
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return life.NewResourceCreationError(labelBindLayout, err)
	}

	e.pipeLayout, err = e.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            labelPipeLayout,
		BindGroupLayouts: []hal.BindGroupLayout{e.bindLayout},
	})
	if err != nil {
		return life.NewResourceCreationError(labelPipeLayout, err)
	}

	e.computePipeline, err = e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  labelSimPipeline,
		Layout: e.pipeLayout,
		Compute: hal.ComputeState{
			Module:     e.simShader,
			EntryPoint: computeEntryPoint,
		},
	})
	if err != nil {
		return life.NewResourceCreationError(labelSimPipeline, err)
	}

	e.renderPipeline, err = e.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  labelCellPipe,
		Layout: e.pipeLayout,
		Vertex: hal.VertexState{
			Module:     e.cellShader,
			EntryPoint: vertexEntryPoint,
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: life.QuadVertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				},
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     e.cellShader,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return life.NewResourceCreationError(labelCellPipe, err)
	}
	return nil
}

func (e *Engine) createBindGroups() error {
	stateSize := life.StateBufferSize(e.width, e.height)
	for i, cfg := range e.bindings {
		bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  cfg.Label,
			Layout: e.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: cfg.Uniform.NativeHandle(), Offset: 0, Size: life.UniformSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: cfg.Read.NativeHandle(), Offset: 0, Size: stateSize}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: cfg.Write.NativeHandle(), Offset: 0, Size: stateSize}},
			},
		})
		if err != nil {
			return life.NewResourceCreationError(cfg.Label, err)
		}
		e.bindGroups[i] = bg
	}
	return nil
}

// Bindings returns the engine's binding table.
func (e *Engine) Bindings() life.BindingPair[hal.Buffer] { return e.bindings }

// StateBuffers returns buffers A and B.
func (e *Engine) StateBuffers() [2]hal.Buffer { return e.stateBufs }

// Groups returns the dispatch grid of every compute pass.
func (e *Engine) Groups() life.DispatchSize { return e.groups }

// Submissions returns the number of ticks submitted.
func (e *Engine) Submissions() uint64 { return e.ticks }

// Dispatch opens the tick's command encoder and records the compute pass
// with bind group config.
func (e *Engine) Dispatch(config int) error {
	if e.closed {
		return ErrEngineClosed
	}
	if e.encoder != nil {
		return ErrEncoderOpen
	}
	if config < 0 || config > 1 {
		return fmt.Errorf("gpu: bind group index %d out of range", config)
	}

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "Life tick"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("life_tick"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}
	e.encoder = encoder

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "Simulation pass"})
	pass.SetPipeline(e.computePipeline)
	pass.SetBindGroup(0, e.bindGroups[config], nil)
	pass.Dispatch(e.groups.X, e.groups.Y, e.groups.Z)
	pass.End()

	e.phase = phaseComputed
	slogger().Debug("gpu: compute recorded", "bind_group", e.bindings[config].Label, "groups", e.groups)
	return nil
}

// Render records the render pass with bind group config into the open
// encoder: one instanced quad per cell, cleared to the background first.
func (e *Engine) Render(config int) error {
	if e.closed {
		return ErrEngineClosed
	}
	if e.encoder == nil || e.phase != phaseComputed {
		return ErrNoEncoder
	}
	if config < 0 || config > 1 {
		return fmt.Errorf("gpu: bind group index %d out of range", config)
	}
	view, err := e.target.AcquireFrameTarget()
	if err != nil {
		return fmt.Errorf("acquire frame target: %w", err)
	}

	rp := e.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "Cell render pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: e.clear,
		}},
	})
	rp.SetPipeline(e.renderPipeline)
	rp.SetBindGroup(0, e.bindGroups[config], nil)
	rp.SetVertexBuffer(0, e.vertexBuf, 0)
	rp.Draw(uint32(life.QuadVertexCount), uint32(e.width*e.height), 0, 0) //nolint:gosec // grid validated positive
	rp.End()

	e.phase = phaseRendered
	return nil
}

// Submit finishes the encoder, submits the tick as one command buffer and
// waits for it to complete within the configured submit timeout.
func (e *Engine) Submit() error {
	if e.closed {
		return ErrEngineClosed
	}
	if e.encoder == nil || e.phase != phaseRendered {
		return ErrNoEncoder
	}
	encoder := e.encoder
	e.encoder = nil
	e.phase = phaseIdle

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	if err := submitAndWait(e.device, e.queue, cmd, e.timeout); err != nil {
		return err
	}
	e.ticks++
	return nil
}

// Abort discards a partially recorded tick.
func (e *Engine) Abort() {
	if e.encoder != nil {
		e.encoder.DiscardEncoding()
		e.encoder = nil
	}
	e.phase = phaseIdle
}

// Drain discards any unsubmitted recording. Submit already waits for each
// tick, so no GPU work is outstanding afterwards.
func (e *Engine) Drain(time.Duration) error {
	e.Abort()
	return nil
}

// ReadState copies the state buffer that the given step renders from into
// a staging buffer and returns it as a grid. It must not be called while a
// tick is being recorded.
func (e *Engine) ReadState(step uint64) (*life.Grid, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.encoder != nil {
		return nil, ErrEncoderOpen
	}
	src := e.bindings.At(step).Read
	size := life.StateBufferSize(e.width, e.height)

	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Cell state staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, life.NewResourceCreationError("cell state staging", err)
	}
	defer e.device.DestroyBuffer(staging)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "Cell state readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("state_readback"); err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(src, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	if err := submitAndWait(e.device, e.queue, cmd, e.timeout); err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if err := e.queue.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	g, err := life.NewGrid(e.width, e.height)
	if err != nil {
		return nil, err
	}
	if err := g.SetBytes(data); err != nil {
		return nil, err
	}
	return g, nil
}

// Close discards any open recording and destroys every GPU object the
// engine created. The device, queue and target are not touched.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.Abort()
	e.destroy()
	e.closed = true
}

func (e *Engine) destroy() {
	d := e.device
	for i, bg := range e.bindGroups {
		if bg != nil {
			d.DestroyBindGroup(bg)
			e.bindGroups[i] = nil
		}
	}
	if e.renderPipeline != nil {
		d.DestroyRenderPipeline(e.renderPipeline)
		e.renderPipeline = nil
	}
	if e.computePipeline != nil {
		d.DestroyComputePipeline(e.computePipeline)
		e.computePipeline = nil
	}
	if e.pipeLayout != nil {
		d.DestroyPipelineLayout(e.pipeLayout)
		e.pipeLayout = nil
	}
	if e.bindLayout != nil {
		d.DestroyBindGroupLayout(e.bindLayout)
		e.bindLayout = nil
	}
	if e.cellShader != nil {
		d.DestroyShaderModule(e.cellShader)
		e.cellShader = nil
	}
	if e.simShader != nil {
		d.DestroyShaderModule(e.simShader)
		e.simShader = nil
	}
	for i, buf := range e.stateBufs {
		if buf != nil {
			d.DestroyBuffer(buf)
			e.stateBufs[i] = nil
		}
	}
	if e.uniformBuf != nil {
		d.DestroyBuffer(e.uniformBuf)
		e.uniformBuf = nil
	}
	if e.vertexBuf != nil {
		d.DestroyBuffer(e.vertexBuf)
		e.vertexBuf = nil
	}
}
