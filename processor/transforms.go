package processor

import (
	"fmt"
	"image"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/compute"
	"github.com/gogpu/gpuimage/kernels"
)

// Crop copies an out-sized window, whose top-left corner is origin, out of
// the input image.
type Crop struct {
	*dispatcher
}

var _ Processor = (*Crop)(nil)

// NewCrop compiles the crop kernel on ctx.
func NewCrop(ctx *compute.Context, opts ...Option) (*Crop, error) {
	d, err := newDispatcher(ctx, kernels.Crop, opts)
	if err != nil {
		return nil, err
	}
	return &Crop{d}, nil
}

// Process returns the window of input at origin. The window must lie
// entirely inside in.
func (c *Crop) Process(input gpuimage.Image, in, out gpuimage.Size, origin image.Point) (gpuimage.Image, error) {
	if err := checkInput(input, in, out); err != nil {
		return nil, err
	}
	if origin.X < 0 || origin.Y < 0 ||
		origin.X+out.Width > in.Width || origin.Y+out.Height > in.Height {
		return nil, fmt.Errorf("%w: %v window at %v exceeds %v", ErrDimensionMismatch, out, origin, in)
	}
	//nolint:gosec // all values validated non-negative above
	return c.run(input, in, out,
		uint32(in.Width), uint32(out.Width), uint32(out.Height),
		uint32(origin.X), uint32(origin.Y))
}

// Grayscale replaces every pixel with its luminance. Alpha is kept.
type Grayscale struct {
	*dispatcher
}

var _ Processor = (*Grayscale)(nil)

// NewGrayscale compiles the grayscale kernel on ctx.
func NewGrayscale(ctx *compute.Context, opts ...Option) (*Grayscale, error) {
	d, err := newDispatcher(ctx, kernels.Grayscale, opts)
	if err != nil {
		return nil, err
	}
	return &Grayscale{d}, nil
}

// Process converts input to gray. out must equal in; origin is ignored.
func (g *Grayscale) Process(input gpuimage.Image, in, out gpuimage.Size, _ image.Point) (gpuimage.Image, error) {
	if err := checkSameSize(input, in, out); err != nil {
		return nil, err
	}
	return g.run(input, in, out, uint32(in.Width), uint32(in.Height)) //nolint:gosec // validated positive
}

// Halftone applies a 2x2 ordered dither, producing black or white pixels.
// Alpha is kept.
type Halftone struct {
	*dispatcher
}

var _ Processor = (*Halftone)(nil)

// NewHalftone compiles the halftone kernel on ctx.
func NewHalftone(ctx *compute.Context, opts ...Option) (*Halftone, error) {
	d, err := newDispatcher(ctx, kernels.Halftone, opts)
	if err != nil {
		return nil, err
	}
	return &Halftone{d}, nil
}

// Process dithers input. out must equal in; origin is ignored.
func (h *Halftone) Process(input gpuimage.Image, in, out gpuimage.Size, _ image.Point) (gpuimage.Image, error) {
	if err := checkSameSize(input, in, out); err != nil {
		return nil, err
	}
	return h.run(input, in, out, uint32(in.Width), uint32(in.Height)) //nolint:gosec // validated positive
}

func checkSameSize(input gpuimage.Image, in, out gpuimage.Size) error {
	if err := checkInput(input, in, out); err != nil {
		return err
	}
	if out != in {
		return fmt.Errorf("%w: out %v differs from in %v", ErrDimensionMismatch, out, in)
	}
	return nil
}
