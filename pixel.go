package gpuimage

import (
	"encoding/binary"
	"fmt"
	"image"
)

// BytesPerPixel is the size of one packed pixel on the device.
const BytesPerPixel = 4

// Pixel is an 8-bit non-premultiplied RGBA sample.
type Pixel struct {
	R, G, B, A uint8
}

// Pack returns the device representation R | G<<8 | B<<16 | A<<24.
func (p Pixel) Pack() uint32 {
	return uint32(p.R) | uint32(p.G)<<8 | uint32(p.B)<<16 | uint32(p.A)<<24
}

// UnpackPixel is the inverse of [Pixel.Pack].
func UnpackPixel(v uint32) Pixel {
	return Pixel{
		R: uint8(v),       //nolint:gosec // masked by truncation
		G: uint8(v >> 8),  //nolint:gosec // masked by truncation
		B: uint8(v >> 16), //nolint:gosec // masked by truncation
		A: uint8(v >> 24),
	}
}

// Image is a row-major pixel buffer with its origin at the top-left corner.
// An Image carries no dimensions; they travel alongside it as a [Size].
type Image []Pixel

// NewImage allocates a zeroed image of the given size.
func NewImage(size Size) Image {
	return make(Image, size.Area())
}

// At returns the pixel at (x, y) for an image of the given width.
func (img Image) At(width, x, y int) Pixel {
	return img[y*width+x]
}

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Sz is shorthand for Size{w, h}.
func Sz(w, h int) Size { return Size{Width: w, Height: h} }

// Area returns Width*Height.
func (s Size) Area() int { return s.Width * s.Height }

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// PackPixels serializes the first n pixels into little-endian 32-bit words.
func PackPixels(img Image, n int) []byte {
	out := make([]byte, n*BytesPerPixel)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(out[i*BytesPerPixel:], img[i].Pack())
	}
	return out
}

// UnpackPixels decodes packed words into a newly allocated image of n pixels.
func UnpackPixels(packed []byte, n int) Image {
	out := make(Image, n)
	for i := 0; i < n; i++ {
		out[i] = UnpackPixel(binary.LittleEndian.Uint32(packed[i*BytesPerPixel:]))
	}
	return out
}

// FromNRGBA copies an NRGBA image into a pixel buffer.
func FromNRGBA(src *image.NRGBA) (Image, Size) {
	b := src.Bounds()
	size := Sz(b.Dx(), b.Dy())
	out := NewImage(size)
	for y := 0; y < size.Height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+size.Width*4]
		for x := 0; x < size.Width; x++ {
			i := x * 4
			out[y*size.Width+x] = Pixel{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}
		}
	}
	return out, size
}

// ToNRGBA copies the first size.Area() pixels into a new NRGBA image.
func ToNRGBA(img Image, size Size) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			p := img[y*size.Width+x]
			i := y*dst.Stride + x*4
			dst.Pix[i+0] = p.R
			dst.Pix[i+1] = p.G
			dst.Pix[i+2] = p.B
			dst.Pix[i+3] = p.A
		}
	}
	return dst
}
