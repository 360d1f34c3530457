//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

// FrameTarget supplies the color attachment of each render pass.
type FrameTarget interface {
	// AcquireFrameTarget returns the view to render the current frame into.
	AcquireFrameTarget() (hal.TextureView, error)
	// Format returns the texture format of the views it hands out.
	Format() gputypes.TextureFormat
}

// OffscreenTarget is a FrameTarget backed by a single BGRA8 texture that
// can be read back into an image.
type OffscreenTarget struct {
	device hal.Device
	queue  hal.Queue
	width  uint32
	height uint32

	tex  hal.Texture
	view hal.TextureView
}

var _ FrameTarget = (*OffscreenTarget)(nil)

// NewOffscreenTarget allocates a width x height render texture.
func NewOffscreenTarget(device hal.Device, queue hal.Queue, width, height int) (*OffscreenTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, life.NewInitializationError("offscreen target", fmt.Errorf("size must be positive, got %dx%d", width, height))
	}
	t := &OffscreenTarget{
		device: device,
		queue:  queue,
		width:  uint32(width),  //nolint:gosec // validated positive
		height: uint32(height), //nolint:gosec // validated positive
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "Offscreen frame",
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, life.NewResourceCreationError("offscreen texture", err)
	}
	t.tex = tex
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "Offscreen frame view"})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, life.NewResourceCreationError("offscreen texture view", err)
	}
	t.view = view
	return t, nil
}

// AcquireFrameTarget returns the texture's view.
func (t *OffscreenTarget) AcquireFrameTarget() (hal.TextureView, error) {
	if t.view == nil {
		return nil, fmt.Errorf("gpu: offscreen target destroyed")
	}
	return t.view, nil
}

// Format returns BGRA8Unorm.
func (t *OffscreenTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// Size returns the target dimensions in pixels.
func (t *OffscreenTarget) Size() (int, int) { return int(t.width), int(t.height) }

// Snapshot copies the texture into a staging buffer, waits for the copy
// and returns the pixels as RGBA. It must not be called while a tick is
// being recorded on the same queue.
func (t *OffscreenTarget) Snapshot(timeout time.Duration) (*image.RGBA, error) {
	if t.tex == nil {
		return nil, fmt.Errorf("gpu: offscreen target destroyed")
	}
	w, h := t.width, t.height
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "Offscreen staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, life.NewResourceCreationError("offscreen staging buffer", err)
	}
	defer t.device.DestroyBuffer(staging)

	encoder, err := t.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "Offscreen readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("offscreen_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	if err := submitAndWait(t.device, t.queue, cmd, timeout); err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := t.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := 0; row < int(h); row++ {
		src := readback[row*int(alignedBytesPerRow) : row*int(alignedBytesPerRow)+int(bytesPerRow)]
		convertBGRAToRGBA(src, img.Pix[row*img.Stride:row*img.Stride+int(bytesPerRow)])
	}
	return img, nil
}

// Destroy releases the texture. The target cannot be used afterwards.
func (t *OffscreenTarget) Destroy() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// convertBGRAToRGBA swizzles one row of BGRA pixels into dst.
func convertBGRAToRGBA(src, dst []byte) {
	for i := 0; i+3 < len(src) && i+3 < len(dst); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}

// submitAndWait submits cmd with a fresh fence and blocks until it
// signals or timeout elapses. The command buffer is freed either way.
func submitAndWait(device hal.Device, queue hal.Queue, cmd hal.CommandBuffer, timeout time.Duration) error {
	defer device.FreeCommandBuffer(cmd)

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := device.Wait(fence, 1, timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wait for GPU: timed out after %v", timeout)
	}
	return nil
}
