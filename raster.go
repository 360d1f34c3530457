// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package life

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
)

// Background is the clear colour of every frame.
var Background = gg.RGB(0, 0, 0.4)

// CellColor returns the fill colour of a live cell at (x, y): red grows
// with x, green with y and blue falls with x, the same ramp the fragment
// program produces.
func CellColor(g *Grid, x, y int) gg.RGBA {
	cx := float64(x) / float64(g.Width)
	cy := float64(y) / float64(g.Height)
	return gg.RGB(cx, cy, 1-cx)
}

// Rasterize draws g into a width x height image the way the graphics
// program does: one inset quad per live cell, dead cells collapsed, row 0
// at the bottom as in normalized device coordinates.
func Rasterize(g *Grid, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("life: raster size must be positive, got %dx%d", width, height)
	}
	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(Background)

	cw := float64(width) / float64(g.Width)
	ch := float64(height) / float64(g.Height)
	for _, c := range g.LiveCells() {
		x, y := c[0], c[1]
		px := float64(x)*cw + cw*QuadInset
		py := float64(g.Height-1-y)*ch + ch*QuadInset
		col := CellColor(g, x, y)
		dc.SetRGB(col.R, col.G, col.B)
		dc.DrawRectangle(px, py, cw*(1-2*QuadInset), ch*(1-2*QuadInset))
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("life: fill cell (%d,%d): %w", x, y, err)
		}
	}
	return dc.Image(), nil
}

// Upscale enlarges img by an integer factor with nearest-neighbour
// sampling so cell edges stay sharp.
func Upscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	if factor < 1 {
		factor = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
