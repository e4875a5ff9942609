package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDownscaleShrinksLargeImage(t *testing.T) {
	data := encodePNG(t, 1280, 960)
	out, err := Downscale(data, Options{MaxWidth: 640, MaxHeight: 480, JPEGQuality: 75})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Fatalf("expected 640x480, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestDownscalePreservesAspectRatio(t *testing.T) {
	data := encodePNG(t, 1000, 200)
	out, err := Downscale(data, Options{MaxWidth: 640, MaxHeight: 480, JPEGQuality: 75})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 128 {
		t.Fatalf("expected 640x128, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestDownscaleKeepsSmallImage(t *testing.T) {
	data := encodePNG(t, 320, 240)
	out, err := Downscale(data, Options{MaxWidth: 640, MaxHeight: 480, JPEGQuality: 75})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Fatalf("expected 320x240, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	if _, err := Downscale([]byte("not an image"), Options{MaxWidth: 640, MaxHeight: 480, JPEGQuality: 75}); err == nil {
		t.Fatal("expected decode error")
	}
}
