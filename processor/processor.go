// Package processor runs the image transforms on a compute device.
//
// Every transform implements [Processor]. A processor compiles its kernel
// once at construction and replays it for each call to Process:
//
//  1. validate the input slice and dimensions (nothing is allocated yet)
//  2. stage a read-only input buffer and a write-only output buffer
//  3. bind input, output and the transform's scalars in kernel order
//  4. dispatch exactly out.Width x out.Height work-items
//  5. drain the queue and read the output back into a new slice
//
// Device buffers live for one call and are released on every path.
package processor

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/compute"
	"github.com/gogpu/gpuimage/kernels"
)

// Validation errors. Both are reported before any device allocation.
var (
	// ErrInvalidInputSize is returned when the input slice holds fewer than
	// in.Width*in.Height pixels.
	ErrInvalidInputSize = errors.New("processor: input smaller than its declared size")

	// ErrDimensionMismatch is returned when the sizes or crop origin violate
	// the transform's constraint.
	ErrDimensionMismatch = errors.New("processor: dimension mismatch")
)

// Processor is one image transform bound to a compute context.
type Processor interface {
	// Name returns the kernel identifier of the transform.
	Name() string

	// Process transforms input, an in-sized image, into a new out-sized
	// image. origin is the top-left corner of the crop window and is
	// ignored by transforms that do not crop.
	Process(input gpuimage.Image, in, out gpuimage.Size, origin image.Point) (gpuimage.Image, error)

	// Release frees the compiled kernel. The context stays open.
	Release()
}

// Kind identifies a transform.
type Kind string

// Supported kinds.
const (
	KindCrop      Kind = kernels.Crop
	KindGrayscale Kind = kernels.Grayscale
	KindHalftone  Kind = kernels.Halftone
)

// Kinds lists the supported kinds in pipeline order.
func Kinds() []Kind {
	return []Kind{KindCrop, KindGrayscale, KindHalftone}
}

// New builds the processor of the given kind.
func New(ctx *compute.Context, kind Kind, opts ...Option) (Processor, error) {
	switch kind {
	case KindCrop:
		return NewCrop(ctx, opts...)
	case KindGrayscale:
		return NewGrayscale(ctx, opts...)
	case KindHalftone:
		return NewHalftone(ctx, opts...)
	}
	return nil, fmt.Errorf("processor: unknown kind %q", kind)
}

// Option configures processor construction.
type Option func(*options)

type options struct {
	store kernels.Store
}

// WithSourceStore loads kernel sources from s instead of the compiled-in
// sources.
func WithSourceStore(s kernels.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// checkInput verifies that input covers in and that both sizes are
// non-empty.
func checkInput(input gpuimage.Image, in, out gpuimage.Size) error {
	if !in.Empty() && len(input) < in.Area() {
		return fmt.Errorf("%w: have %d pixels, need %d for %v", ErrInvalidInputSize, len(input), in.Area(), in)
	}
	if in.Empty() || out.Empty() {
		return fmt.Errorf("%w: empty size (in %v, out %v)", ErrDimensionMismatch, in, out)
	}
	return nil
}
