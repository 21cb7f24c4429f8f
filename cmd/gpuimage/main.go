// Command gpuimage crops an image, converts the crop to gray and halftones
// it, writing each stage to the output directory.
//
// Usage:
//
//	gpuimage [flags] <input> [output-dir]
package main

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/gogpu/gpuimage"
	"github.com/gogpu/gpuimage/codec"
	"github.com/gogpu/gpuimage/compute"
	"github.com/gogpu/gpuimage/kernels"
	"github.com/gogpu/gpuimage/pipeline"
	"github.com/gogpu/gpuimage/processor"
)

const defaultOutputDir = "resources"

var defaultCrop = []int{232, 316, 170, 170}

// outputNames maps a pipeline stage to the base name of its output file.
var outputNames = map[string]string{
	pipeline.StageCrop:      "cropped",
	pipeline.StageGrayscale: "grayed",
	pipeline.StageHalftone:  "halftoned",
}

type config struct {
	input     string
	outputDir string
	region    image.Rectangle
	backend   compute.Backend
	kernelDir string
	format    codec.Format
	verbose   bool
}

func main() {
	os.Exit(exitCode(run(os.Args[1:], os.Stderr), os.Stderr))
}

// exitCode reports err on stderr and maps it to the process exit status.
// A help request is not a failure.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return 0
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func run(args []string, stderr io.Writer) error {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	if cfg.verbose {
		gpuimage.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer gpuimage.SetLogger(nil)
	}

	input, size, err := codec.Decode(cfg.input)
	if err != nil {
		return err
	}

	ctx, err := compute.New(compute.WithBackend(cfg.backend))
	if err != nil {
		return err
	}
	defer ctx.Close()
	gpuimage.Logger().Info("gpuimage: device", "name", ctx.Info().Name, "backend", ctx.Info().Backend)

	opts := []pipeline.Option{pipeline.WithStageHook(writeStage(cfg))}
	if cfg.kernelDir != "" {
		opts = append(opts, pipeline.WithProcessorOptions(processor.WithSourceStore(kernels.Dir(cfg.kernelDir))))
	}
	drv, err := pipeline.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer drv.Close()

	_, err = drv.Run(input, size, cfg.region)
	return err
}

// writeStage returns a hook that saves every stage output as it completes.
func writeStage(cfg config) pipeline.StageHook {
	return func(stage string, img gpuimage.Image, size gpuimage.Size) error {
		path := filepath.Join(cfg.outputDir, outputNames[stage]+codec.Extension(cfg.format))
		if err := codec.Encode(path, img, size); err != nil {
			return err
		}
		gpuimage.Logger().Info("gpuimage: wrote", "stage", stage, "path", path, "size", size)
		return nil
	}
}

func parseArgs(args []string, stderr io.Writer) (config, error) {
	fs := pflag.NewFlagSet("gpuimage", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: gpuimage [flags] <input> [output-dir]\n")
		fs.PrintDefaults()
	}

	crop := fs.IntSlice("crop", defaultCrop, "crop window as x,y,width,height")
	backend := fs.String("backend", compute.BackendAuto.String(), "compute backend: auto, vulkan, host or noop")
	kernelDir := fs.String("kernels", "", "directory with <name>.wgsl kernel sources (default: built-in)")
	format := fs.String("format", "png", "output format: png, jpg, gif, bmp or tiff")
	verbose := fs.BoolP("verbose", "v", false, "log progress to stderr")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	var cfg config
	switch fs.NArg() {
	case 1:
		cfg.outputDir = defaultOutputDir
	case 2:
		cfg.outputDir = fs.Arg(1)
	default:
		fs.Usage()
		return config{}, fmt.Errorf("expected <input> [output-dir], got %d arguments", fs.NArg())
	}
	cfg.input = fs.Arg(0)

	var err error
	if cfg.region, err = cropRegion(*crop); err != nil {
		return config{}, err
	}
	if cfg.backend, err = compute.ParseBackend(*backend); err != nil {
		return config{}, err
	}
	if cfg.format, err = codec.ParseFormat(*format); err != nil {
		return config{}, err
	}
	cfg.kernelDir = *kernelDir
	cfg.verbose = *verbose
	return cfg, nil
}

// cropRegion converts x,y,width,height into a rectangle.
func cropRegion(v []int) (image.Rectangle, error) {
	if len(v) != 4 {
		return image.Rectangle{}, fmt.Errorf("--crop wants x,y,width,height, got %d values", len(v))
	}
	x, y, w, h := v[0], v[1], v[2], v[3]
	if x < 0 || y < 0 || w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("--crop %d,%d,%d,%d: origin must be non-negative and size positive", x, y, w, h)
	}
	return image.Rect(x, y, x+w, y+h), nil
}
