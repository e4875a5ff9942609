package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the formats clients are likely to upload.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Options bounds the downscaled image handed to the vision and narration
// models. Smaller uploads cut model latency without hurting scene coverage.
type Options struct {
	MaxWidth    int
	MaxHeight   int
	JPEGQuality int
}

// Downscale decodes data, shrinks it to fit within the configured bounds
// while preserving aspect ratio, and re-encodes it as JPEG. Images already
// inside the bounds are only re-encoded.
func Downscale(data []byte, opts Options) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has empty bounds %v", bounds)
	}

	dstW, dstH := fit(w, h, opts.MaxWidth, opts.MaxHeight)
	out := src
	if dstW != w || dstH != h {
		scaled := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, bounds, draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fit returns the largest dimensions within maxW x maxH that keep the
// source aspect ratio, never upscaling.
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	rw := float64(maxW) / float64(w)
	rh := float64(maxH) / float64(h)
	r := rw
	if rh < rw {
		r = rh
	}
	dstW := int(float64(w) * r)
	dstH := int(float64(h) * r)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	return dstW, dstH
}
