package pipeline

import (
	"errors"
	"image"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/compute"
	"github.com/gogpu/gpuimage/kernels"
	"github.com/gogpu/gpuimage/processor"
)

func newDriver(t *testing.T, opts ...Option) (*Driver, *compute.Context) {
	t.Helper()
	ctx, err := compute.New(compute.WithBackend(compute.BackendHost))
	if err != nil {
		t.Fatalf("compute.New(host) failed: %v", err)
	}
	t.Cleanup(ctx.Close)
	d, err := New(ctx, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(d.Close)
	return d, ctx
}

func solid(size gpuimage.Size, p gpuimage.Pixel) gpuimage.Image {
	img := gpuimage.NewImage(size)
	for i := range img {
		img[i] = p
	}
	return img
}

func TestRunRed(t *testing.T) {
	d, ctx := newDriver(t)

	size := gpuimage.Sz(8, 8)
	red := gpuimage.Pixel{R: 255, A: 255}
	res, err := d.Run(solid(size, red), size, image.Rect(2, 2, 6, 6))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Size != gpuimage.Sz(4, 4) {
		t.Fatalf("Size = %v, want 4x4", res.Size)
	}

	gray := gpuimage.Pixel{R: 76, G: 76, B: 76, A: 255}
	for i := range res.Cropped {
		if res.Cropped[i] != red {
			t.Errorf("Cropped[%d] = %v, want %v", i, res.Cropped[i], red)
		}
		if res.Gray[i] != gray {
			t.Errorf("Gray[%d] = %v, want %v", i, res.Gray[i], gray)
		}
	}

	// 76/255 only clears the 0.25 threshold at even x, even y.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := gpuimage.Pixel{A: 255}
			if x%2 == 0 && y%2 == 0 {
				want = gpuimage.Pixel{R: 255, G: 255, B: 255, A: 255}
			}
			if got := res.Halftone.At(4, x, y); got != want {
				t.Errorf("Halftone(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}

	if s := ctx.Stats(); s.ActiveBuffers != 0 {
		t.Errorf("Stats() = %v, want no live buffers", s)
	}
}

func TestRunStageOrder(t *testing.T) {
	var stages []string
	hook := func(stage string, img gpuimage.Image, size gpuimage.Size) error {
		if len(img) != size.Area() {
			t.Errorf("%s: len(img) = %d, want %d", stage, len(img), size.Area())
		}
		stages = append(stages, stage)
		return nil
	}
	d, _ := newDriver(t, WithStageHook(hook))

	size := gpuimage.Sz(5, 5)
	if _, err := d.Run(solid(size, gpuimage.Pixel{A: 255}), size, image.Rect(0, 0, 5, 5)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{StageCrop, StageGrayscale, StageHalftone}
	if !slices.Equal(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestRunCropFailureStopsPipeline(t *testing.T) {
	var stages []string
	d, ctx := newDriver(t, WithStageHook(func(stage string, _ gpuimage.Image, _ gpuimage.Size) error {
		stages = append(stages, stage)
		return nil
	}))

	size := gpuimage.Sz(4, 4)
	tests := []struct {
		name   string
		input  gpuimage.Image
		region image.Rectangle
		want   error
	}{
		{"region outside input", solid(size, gpuimage.Pixel{}), image.Rect(2, 2, 6, 6), processor.ErrDimensionMismatch},
		{"empty region", solid(size, gpuimage.Pixel{}), image.Rect(1, 1, 1, 1), processor.ErrDimensionMismatch},
		{"short input", gpuimage.NewImage(gpuimage.Sz(4, 2)), image.Rect(0, 0, 2, 2), processor.ErrInvalidInputSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Run(tt.input, size, tt.region)
			if res != nil {
				t.Errorf("Run() result = %v, want nil", res)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Run() = %v, want %v", err, tt.want)
			}
			var se *StageError
			if !errors.As(err, &se) || se.Stage != StageCrop {
				t.Errorf("Run() = %v, want StageError at %q", err, StageCrop)
			}
		})
	}
	if len(stages) != 0 {
		t.Errorf("hook saw stages %v, want none", stages)
	}
	if s := ctx.Stats(); s.Allocations != 0 {
		t.Errorf("Stats() = %v, want no device allocations", s)
	}
}

func TestRunHookAbort(t *testing.T) {
	errStop := errors.New("stop")
	var stages []string
	d, _ := newDriver(t, WithStageHook(func(stage string, _ gpuimage.Image, _ gpuimage.Size) error {
		stages = append(stages, stage)
		if stage == StageGrayscale {
			return errStop
		}
		return nil
	}))

	size := gpuimage.Sz(4, 4)
	_, err := d.Run(solid(size, gpuimage.Pixel{A: 255}), size, image.Rect(0, 0, 4, 4))
	if !errors.Is(err, errStop) {
		t.Fatalf("Run() = %v, want errStop", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageGrayscale {
		t.Errorf("Run() = %v, want StageError at %q", err, StageGrayscale)
	}
	if want := []string{StageCrop, StageGrayscale}; !slices.Equal(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestNewFailureNamesStage(t *testing.T) {
	ctx, err := compute.New(compute.WithBackend(compute.BackendHost))
	if err != nil {
		t.Fatalf("compute.New(host) failed: %v", err)
	}
	defer ctx.Close()

	src, err := kernels.Embedded().LoadSource(kernels.Crop)
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	store := kernels.FS(fstest.MapFS{
		kernels.Crop + ".wgsl": {Data: []byte(src)},
	})

	d, err := New(ctx, WithProcessorOptions(processor.WithSourceStore(store)))
	if d != nil {
		t.Errorf("New() driver = %v, want nil", d)
	}
	if !errors.Is(err, kernels.ErrSourceNotFound) {
		t.Fatalf("New() = %v, want ErrSourceNotFound", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageGrayscale {
		t.Errorf("New() = %v, want StageError at %q", err, StageGrayscale)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	d, _ := newDriver(t)
	d.Close()
	d.Close()

	size := gpuimage.Sz(2, 2)
	_, err := d.Run(solid(size, gpuimage.Pixel{}), size, image.Rect(0, 0, 2, 2))
	if !errors.Is(err, compute.ErrClosed) {
		t.Errorf("Run() after Close = %v, want ErrClosed", err)
	}
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: StageHalftone, Err: errors.New("boom")}
	if got, want := err.Error(), "pipeline: halftone: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
