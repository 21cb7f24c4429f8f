// Package pipeline chains the crop, grayscale and halftone processors.
//
// A Driver owns one processor per stage, all built on the same compute
// context. Run feeds each stage's full output into the next stage and stops
// at the first failure.
package pipeline

import (
	"fmt"
	"image"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/compute"
	"github.com/gogpu/gpuimage/processor"
)

// Stage names, in execution order.
const (
	StageCrop      = "crop"
	StageGrayscale = "grayscale"
	StageHalftone  = "halftone"
)

// StageHook observes the output of a stage. A non-nil error aborts the run.
type StageHook func(stage string, img gpuimage.Image, size gpuimage.Size) error

// Result holds the output of every stage. All three images share Size.
type Result struct {
	Size     gpuimage.Size
	Cropped  gpuimage.Image
	Gray     gpuimage.Image
	Halftone gpuimage.Image
}

// StageError reports the stage at which a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Option configures a Driver.
type Option func(*options)

type options struct {
	hook     StageHook
	procOpts []processor.Option
}

// WithStageHook installs a hook called after each stage completes.
func WithStageHook(h StageHook) Option {
	return func(o *options) {
		o.hook = h
	}
}

// WithProcessorOptions passes opts to every processor the driver builds.
func WithProcessorOptions(opts ...processor.Option) Option {
	return func(o *options) {
		o.procOpts = append(o.procOpts, opts...)
	}
}

// Driver runs crop, grayscale and halftone in sequence.
type Driver struct {
	crop      processor.Processor
	grayscale processor.Processor
	halftone  processor.Processor
	hook      StageHook
}

// New builds the three processors on ctx. If any build fails, the ones
// already built are released.
func New(ctx *compute.Context, opts ...Option) (*Driver, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	built := make([]processor.Processor, 0, 3)
	for _, kind := range processor.Kinds() {
		p, err := processor.New(ctx, kind, o.procOpts...)
		if err != nil {
			for _, b := range built {
				b.Release()
			}
			return nil, &StageError{Stage: string(kind), Err: err}
		}
		built = append(built, p)
	}

	gpuimage.Logger().Debug("pipeline: ready", "stages", len(built))
	return &Driver{
		crop:      built[0],
		grayscale: built[1],
		halftone:  built[2],
		hook:      o.hook,
	}, nil
}

// Run crops region out of input, converts the crop to gray and dithers
// the result. size describes input; region must lie inside it.
func (d *Driver) Run(input gpuimage.Image, size gpuimage.Size, region image.Rectangle) (*Result, error) {
	out := gpuimage.Sz(region.Dx(), region.Dy())
	res := &Result{Size: out}

	var err error
	res.Cropped, err = d.stage(StageCrop, func() (gpuimage.Image, error) {
		return d.crop.Process(input, size, out, region.Min)
	}, out)
	if err != nil {
		return nil, err
	}

	res.Gray, err = d.stage(StageGrayscale, func() (gpuimage.Image, error) {
		return d.grayscale.Process(res.Cropped, out, out, image.Point{})
	}, out)
	if err != nil {
		return nil, err
	}

	res.Halftone, err = d.stage(StageHalftone, func() (gpuimage.Image, error) {
		return d.halftone.Process(res.Gray, out, out, image.Point{})
	}, out)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Driver) stage(name string, run func() (gpuimage.Image, error), size gpuimage.Size) (gpuimage.Image, error) {
	img, err := run()
	if err != nil {
		return nil, &StageError{Stage: name, Err: err}
	}
	gpuimage.Logger().Debug("pipeline: stage done", "stage", name, "size", size)
	if d.hook != nil {
		if err := d.hook(name, img, size); err != nil {
			return nil, &StageError{Stage: name, Err: err}
		}
	}
	return img, nil
}

// Close releases the processors. The compute context stays open.
// Close is idempotent.
func (d *Driver) Close() {
	for _, p := range []processor.Processor{d.crop, d.grayscale, d.halftone} {
		if p != nil {
			p.Release()
		}
	}
}
