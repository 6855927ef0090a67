package vision

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalizeFace_Size(t *testing.T) {
	frame := solidImage(640, 480, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	sample, err := NormalizeFace(frame, image.Rect(100, 100, 180, 180), 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sample.Bounds().Dx() != 200 || sample.Bounds().Dy() != 200 {
		t.Errorf("expected 200x200 sample, got %v", sample.Bounds())
	}
	if got := sample.GrayAt(100, 100).Y; got < 195 || got > 205 {
		t.Errorf("expected gray value near 200, got %d", got)
	}
}

func TestNormalizeFace_ClipsToFrame(t *testing.T) {
	frame := solidImage(100, 100, color.White)

	sample, err := NormalizeFace(frame, image.Rect(80, 80, 150, 150), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.Bounds().Dx() != 50 {
		t.Errorf("expected 50px sample, got %d", sample.Bounds().Dx())
	}
}

func TestNormalizeFace_OutsideFrame(t *testing.T) {
	frame := solidImage(100, 100, color.White)

	_, err := NormalizeFace(frame, image.Rect(200, 200, 250, 250), 50)
	if !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("expected ErrEmptyRegion, got %v", err)
	}
}

func TestCrop(t *testing.T) {
	frame := solidImage(100, 100, color.White)
	frame.Set(20, 30, color.Black)

	crop, err := Crop(frame, image.Rect(20, 30, 40, 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crop.Bounds() != image.Rect(0, 0, 20, 30) {
		t.Errorf("unexpected crop bounds %v", crop.Bounds())
	}
	r, g, b, _ := crop.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("expected black origin pixel, got %d %d %d", r, g, b)
	}
}

func TestDecodeFrame_PNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(8, 6, color.White)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := DecodeFrame(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecodeFrame_Garbage(t *testing.T) {
	if _, err := DecodeFrame([]byte("not an image")); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestToGray_PassThrough(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	if ToGray(g) != g {
		t.Error("expected gray image to be returned unchanged")
	}
}
