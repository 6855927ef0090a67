// Package vision provides the image plumbing shared by capture and recognition:
// frame decoding, face crops normalized to training samples, and frame annotation.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/face-attendance/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ErrEmptyRegion is returned when a face region does not overlap the frame.
var ErrEmptyRegion = errors.New("face region outside of frame")

// DecodeFrame decodes a JPEG, PNG or BMP frame.
func DecodeFrame(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG encodes an image as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ToGray converts an image to 8-bit grayscale. Gray images are returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// Crop returns a copy of the part of img inside rect, clipped to the image bounds.
func Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRegion
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// NormalizeFace crops rect out of the frame, converts it to grayscale and scales it
// to a size x size training sample.
func NormalizeFace(img image.Image, rect image.Rectangle, size int) (*image.Gray, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRegion
	}
	gray := ToGray(img)
	sample := image.NewGray(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(sample, sample.Bounds(), gray, r, draw.Src, nil)
	return sample, nil
}
