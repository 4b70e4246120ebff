package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &buf
}

func TestIsImage(t *testing.T) {
	cases := map[string]bool{
		"photo.jpg":      true,
		"PHOTO.JPEG":     true,
		"icon.png":       true,
		"anim.gif":       true,
		"pic.webp":       true,
		"notes.txt":      false,
		"archive.tar.gz": false,
		"noext":          false,
	}
	for name, want := range cases {
		if got := IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestGenerateFitsWithinBounds(t *testing.T) {
	out, err := Generate(encodePNG(t, 400, 100))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 50 {
		t.Fatalf("thumbnail is %dx%d, want 200x50", b.Dx(), b.Dy())
	}
}

func TestGenerateDoesNotEnlarge(t *testing.T) {
	out, err := Generate(encodePNG(t, 40, 30))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Fatalf("thumbnail is %dx%d, want 40x30", cfg.Width, cfg.Height)
	}
}

func TestGenerateRejectsGarbage(t *testing.T) {
	_, err := Generate(strings.NewReader("definitely not an image"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}
