// Package codec reads and writes image files as gpuimage pixel slices.
//
// Decoding accepts PNG, JPEG, GIF, BMP, TIFF and WebP. Encoding picks the
// format from the file extension and supports every format except WebP.
// Pixels are 8-bit, non-premultiplied R, G, B, A.
package codec

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP for DecodeConfig
	_ "golang.org/x/image/tiff" // register TIFF for DecodeConfig
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/gpuimage"
)

var (
	// ErrDecode is returned when a file cannot be read or decoded.
	ErrDecode = errors.New("codec: decode failed")

	// ErrEncode is returned when an image cannot be encoded or written.
	ErrEncode = errors.New("codec: encode failed")
)

// Format is an encodable image format.
type Format = imaging.Format

// Encodable formats.
const (
	PNG  = imaging.PNG
	JPEG = imaging.JPEG
	GIF  = imaging.GIF
	BMP  = imaging.BMP
	TIFF = imaging.TIFF
)

// ParseFormat resolves a format name or extension such as "png" or ".jpg".
func ParseFormat(name string) (Format, error) {
	ext := strings.ToLower(name)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return f, fmt.Errorf("%w: unsupported format %q", ErrEncode, name)
	}
	return f, nil
}

// Extension returns the canonical file extension for f, including the dot.
func Extension(f Format) string {
	switch f {
	case JPEG:
		return ".jpg"
	case TIFF:
		return ".tif"
	}
	return "." + strings.ToLower(f.String())
}

// Decode reads the image at path.
func Decode(path string) (gpuimage.Image, gpuimage.Size, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, gpuimage.Size{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	pix, size := gpuimage.FromNRGBA(imaging.Clone(img))
	gpuimage.Logger().Debug("codec: decoded", "path", path, "size", size)
	return pix, size, nil
}

// DecodeFrom decodes an image from r.
func DecodeFrom(r io.Reader) (gpuimage.Image, gpuimage.Size, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, gpuimage.Size{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	pix, size := gpuimage.FromNRGBA(imaging.Clone(img))
	return pix, size, nil
}

// ProbeSize returns the dimensions of the image at path without decoding
// its pixels.
func ProbeSize(path string) (gpuimage.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return gpuimage.Size{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return gpuimage.Size{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return gpuimage.Sz(cfg.Width, cfg.Height), nil
}

// Encode writes img to path in the format implied by its extension.
func Encode(path string, img gpuimage.Image, size gpuimage.Size) error {
	if err := check(img, size); err != nil {
		return err
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := imaging.Save(gpuimage.ToNRGBA(img, size), path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, path, err)
	}
	gpuimage.Logger().Debug("codec: encoded", "path", path, "size", size)
	return nil
}

// EncodeTo writes img to w in format f.
func EncodeTo(w io.Writer, f Format, img gpuimage.Image, size gpuimage.Size) error {
	if err := check(img, size); err != nil {
		return err
	}
	if err := imaging.Encode(w, gpuimage.ToNRGBA(img, size), f); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}

func check(img gpuimage.Image, size gpuimage.Size) error {
	if size.Empty() {
		return fmt.Errorf("%w: empty size %v", ErrEncode, size)
	}
	if len(img) < size.Area() {
		return fmt.Errorf("%w: have %d pixels, need %d for %v", ErrEncode, len(img), size.Area(), size)
	}
	return nil
}
