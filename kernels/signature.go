// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernels

import "github.com/gogpu/gpuimage/compute"

// Argument slots of the crop kernel.
const (
	CropInput = iota
	CropOutput
	CropInWidth
	CropOutWidth
	CropOutHeight
	CropOriginX
	CropOriginY
)

// Argument slots of the grayscale and halftone kernels.
const (
	ImageInput = iota
	ImageOutput
	ImageWidth
	ImageHeight
)

// Signature returns the argument kinds of a kernel, in slot order.
// It returns nil for an unknown identifier.
func Signature(name string) []compute.ArgKind {
	switch name {
	case Crop:
		return []compute.ArgKind{
			compute.ArgInput, compute.ArgOutput,
			compute.ArgUint, compute.ArgUint, compute.ArgUint, compute.ArgUint, compute.ArgUint,
		}
	case Grayscale, Halftone:
		return []compute.ArgKind{compute.ArgInput, compute.ArgOutput, compute.ArgUint, compute.ArgUint}
	}
	return nil
}
