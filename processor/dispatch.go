package processor

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/compute"
	"github.com/gogpu/gpuimage/kernels"
)

// dispatcher owns one compiled kernel and runs the stage, bind, dispatch,
// drain and read back sequence shared by every transform. mu is held for
// the whole sequence since the kernel's argument slots are shared.
type dispatcher struct {
	mu     sync.Mutex
	ctx    *compute.Context
	name   string
	kernel *compute.Kernel
}

func newDispatcher(ctx *compute.Context, name string, opts []Option) (*dispatcher, error) {
	o := options{store: kernels.Embedded()}
	for _, opt := range opts {
		opt(&o)
	}

	src, err := o.store.LoadSource(name)
	if err != nil {
		return nil, fmt.Errorf("processor: load %s: %w", name, err)
	}
	k, err := compute.BuildKernel(ctx, name, src, name, kernels.Signature(name)...)
	if err != nil {
		return nil, fmt.Errorf("processor: build %s: %w", name, err)
	}
	return &dispatcher{ctx: ctx, name: name, kernel: k}, nil
}

func (d *dispatcher) Name() string { return d.name }

// Release frees the kernel. Release is idempotent.
func (d *dispatcher) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kernel != nil {
		d.kernel.Release()
		d.kernel = nil
	}
}

// run executes the kernel over out with the given scalar arguments. The
// caller has validated input, in and out.
func (d *dispatcher) run(input gpuimage.Image, in, out gpuimage.Size, scalars ...uint32) (gpuimage.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kernel == nil {
		return nil, fmt.Errorf("processor: %s: %w", d.name, compute.ErrClosed)
	}
	dev, q := d.ctx.Device(), d.ctx.Queue()

	inBuf, err := dev.CreateBuffer(d.name+"_input", uint64(in.Area())*gpuimage.BytesPerPixel, compute.ReadOnly) //nolint:gosec // area is positive
	if err != nil {
		return nil, fmt.Errorf("processor: %s: stage input: %w", d.name, err)
	}
	defer inBuf.Release()

	outBuf, err := dev.CreateBuffer(d.name+"_output", uint64(out.Area())*gpuimage.BytesPerPixel, compute.WriteOnly) //nolint:gosec // area is positive
	if err != nil {
		return nil, fmt.Errorf("processor: %s: stage output: %w", d.name, err)
	}
	defer outBuf.Release()

	if err := q.WriteBuffer(inBuf, gpuimage.PackPixels(input, in.Area())); err != nil {
		return nil, fmt.Errorf("processor: %s: upload: %w", d.name, err)
	}

	args := make([]any, 0, 2+len(scalars))
	args = append(args, inBuf, outBuf)
	for _, s := range scalars {
		args = append(args, s)
	}
	if err := d.kernel.SetArgs(args...); err != nil {
		return nil, fmt.Errorf("processor: %s: bind: %w", d.name, err)
	}

	w, h := uint32(out.Width), uint32(out.Height) //nolint:gosec // validated positive
	if err := q.Enqueue(d.kernel, w, h); err != nil {
		return nil, fmt.Errorf("processor: %s: %w", d.name, err)
	}
	if err := q.Finish(); err != nil {
		return nil, fmt.Errorf("processor: %s: %w", d.name, err)
	}

	packed := make([]byte, out.Area()*gpuimage.BytesPerPixel)
	if err := q.ReadBuffer(outBuf, packed); err != nil {
		return nil, fmt.Errorf("processor: %s: %w", d.name, err)
	}

	gpuimage.Logger().Debug("processor: dispatched", "kernel", d.name, "in", in, "out", out)
	return gpuimage.UnpackPixels(packed, out.Area()), nil
}
