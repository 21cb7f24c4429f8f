package gpuimage

import (
	"image"
	"image/color"
	"testing"
)

func TestPixelPack(t *testing.T) {
	tests := []struct {
		name string
		p    Pixel
		want uint32
	}{
		{"zero", Pixel{}, 0},
		{"red", Pixel{R: 255}, 0x000000FF},
		{"green", Pixel{G: 255}, 0x0000FF00},
		{"blue", Pixel{B: 255}, 0x00FF0000},
		{"alpha", Pixel{A: 255}, 0xFF000000},
		{"mixed", Pixel{R: 1, G: 2, B: 3, A: 4}, 0x04030201},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Pack(); got != tt.want {
				t.Errorf("Pack() = %#08x, want %#08x", got, tt.want)
			}
			if got := UnpackPixel(tt.want); got != tt.p {
				t.Errorf("UnpackPixel(%#08x) = %v, want %v", tt.want, got, tt.p)
			}
		})
	}
}

func TestPackPixelsLayout(t *testing.T) {
	img := Image{{R: 1, G: 2, B: 3, A: 4}, {R: 5, G: 6, B: 7, A: 8}}
	got := PackPixels(img, len(img))
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}

	back := UnpackPixels(got, len(img))
	for i := range img {
		if back[i] != img[i] {
			t.Errorf("pixel %d = %v, want %v", i, back[i], img[i])
		}
	}
}

func TestPackPixelsPrefix(t *testing.T) {
	img := Image{{R: 9}, {R: 8}, {R: 7}}
	got := PackPixels(img, 2)
	if len(got) != 2*BytesPerPixel {
		t.Errorf("len = %d, want %d", len(got), 2*BytesPerPixel)
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		s     Size
		area  int
		empty bool
	}{
		{Sz(4, 4), 16, false},
		{Sz(1, 1), 1, false},
		{Sz(0, 5), 0, true},
		{Sz(5, 0), 0, true},
		{Sz(-1, 3), -3, true},
	}
	for _, tt := range tests {
		if got := tt.s.Area(); got != tt.area {
			t.Errorf("%v.Area() = %d, want %d", tt.s, got, tt.area)
		}
		if got := tt.s.Empty(); got != tt.empty {
			t.Errorf("%v.Empty() = %v, want %v", tt.s, got, tt.empty)
		}
	}
	if got := Sz(170, 170).String(); got != "170x170" {
		t.Errorf("String() = %q, want %q", got, "170x170")
	}
}

func TestNRGBARoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	img, size := FromNRGBA(src)
	if size != Sz(3, 2) {
		t.Fatalf("size = %v, want 3x2", size)
	}
	if got := img.At(3, 2, 1); got != (Pixel{R: 10, G: 20, B: 30, A: 40}) {
		t.Errorf("At(2,1) = %v", got)
	}

	dst := ToNRGBA(img, size)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if dst.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				t.Errorf("(%d,%d) = %v, want %v", x, y, dst.NRGBAAt(x, y), src.NRGBAAt(x, y))
			}
		}
	}
}

func TestFromNRGBASubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{G: 200, A: 255})
	sub := src.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)

	img, size := FromNRGBA(sub)
	if size != Sz(2, 2) {
		t.Fatalf("size = %v, want 2x2", size)
	}
	if got := img.At(2, 1, 1); got.G != 200 {
		t.Errorf("At(1,1).G = %d, want 200", got.G)
	}
}
