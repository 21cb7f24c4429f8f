// Package gpuimage runs per-pixel image transforms on a parallel compute
// device.
//
// # Overview
//
// The module is organized around a small compute-dispatch core:
//   - compute: device context, buffers, kernel programs and the in-order queue
//   - kernels: WGSL kernel sources and their host reference implementations
//   - processor: Crop, Grayscale and Halftone behind one Processor contract
//   - pipeline: the crop, grayscale, halftone driver
//   - codec: image file decoding and encoding
//
// This package holds the shared data model: [Pixel], [Image] and [Size],
// plus the 32-bit little-endian packing used on the device.
//
// # Quick Start
//
//	ctx, err := compute.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	drv, err := pipeline.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	img, size, _ := codec.Decode("input.png")
//	res, err := drv.Run(img, size, image.Rect(232, 316, 402, 486))
//
// # Logging
//
// Nothing is logged by default. See [SetLogger].
package gpuimage
