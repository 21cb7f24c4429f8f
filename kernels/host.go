// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernels

import (
	"math"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/compute"
)

func init() {
	compute.RegisterHostKernel(Crop, cropHost)
	compute.RegisterHostKernel(Grayscale, grayscaleHost)
	compute.RegisterHostKernel(Halftone, halftoneHost)
}

// Luma returns round(0.299 R + 0.587 G + 0.114 B) computed in float32,
// matching the device kernels.
func Luma(p gpuimage.Pixel) uint8 {
	v := float32(0.299)*float32(p.R) + float32(0.587)*float32(p.G) + float32(0.114)*float32(p.B)
	return uint8(min(math.Floor(float64(v+0.5)), 255))
}

// Threshold returns the 2x2 dither threshold for pixel (x, y).
func Threshold(x, y uint32) float32 {
	switch (y%2)*2 + x%2 {
	case 0:
		return 0.25
	case 1:
		return 0.75
	case 2:
		return 0.5
	}
	return 1.0
}

// HalftoneValue returns the dithered value, 0 or 255, for a luminance at (x, y).
func HalftoneValue(luma uint8, x, y uint32) uint8 {
	if float32(luma)/255 > Threshold(x, y) {
		return 255
	}
	return 0
}

func cropHost(x, y uint32, args *compute.HostArgs) {
	inWidth := args.Uint(CropInWidth)
	outWidth := args.Uint(CropOutWidth)
	if x >= outWidth || y >= args.Uint(CropOutHeight) {
		return
	}
	src := (y+args.Uint(CropOriginY))*inWidth + x + args.Uint(CropOriginX)
	args.Buffer(CropOutput)[y*outWidth+x] = args.Buffer(CropInput)[src]
}

func grayscaleHost(x, y uint32, args *compute.HostArgs) {
	width := args.Uint(ImageWidth)
	if x >= width || y >= args.Uint(ImageHeight) {
		return
	}
	i := y*width + x
	p := gpuimage.UnpackPixel(args.Buffer(ImageInput)[i])
	v := Luma(p)
	args.Buffer(ImageOutput)[i] = gpuimage.Pixel{R: v, G: v, B: v, A: p.A}.Pack()
}

func halftoneHost(x, y uint32, args *compute.HostArgs) {
	width := args.Uint(ImageWidth)
	if x >= width || y >= args.Uint(ImageHeight) {
		return
	}
	i := y*width + x
	p := gpuimage.UnpackPixel(args.Buffer(ImageInput)[i])
	v := HalftoneValue(Luma(p), x, y)
	args.Buffer(ImageOutput)[i] = gpuimage.Pixel{R: v, G: v, B: v, A: p.A}.Pack()
}
