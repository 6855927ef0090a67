// Package samples implements the versioned on-disk format of enrollment sample sets.
//
// Layout (all integers big endian):
//
//	magic   [4]byte  "FASS"
//	version uint16
//	body    zstd frame containing:
//	          width  uint16
//	          height uint16
//	          count  uint32
//	          label  uint16 length + UTF-8 bytes
//	          pixels count * width * height bytes, row major
package samples

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CurrentVersion is the format version written by Encode.
const CurrentVersion = 1

var magic = [4]byte{'F', 'A', 'S', 'S'}

var (
	ErrBadMagic           = errors.New("not a sample set")
	ErrUnsupportedVersion = errors.New("unsupported sample set version")
	ErrCorrupt            = errors.New("corrupt sample set")
	ErrSampleSize         = errors.New("sample dimensions differ from set dimensions")
)

// Set is the ordered collection of face samples captured for one identity.
type Set struct {
	Label   string
	Width   int
	Height  int
	Samples []*image.Gray
}

// NewSet builds a set from samples that all share the dimensions of the first one.
func NewSet(label string, samples []*image.Gray) (*Set, error) {
	set := &Set{Label: label, Samples: samples}
	if len(samples) > 0 {
		set.Width = samples[0].Bounds().Dx()
		set.Height = samples[0].Bounds().Dy()
	}
	for _, s := range samples {
		if s.Bounds().Dx() != set.Width || s.Bounds().Dy() != set.Height {
			return nil, ErrSampleSize
		}
	}
	return set, nil
}

// Len returns the number of samples.
func (s *Set) Len() int {
	return len(s.Samples)
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil)
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	if codecErr != nil {
		return fmt.Errorf("initializing zstd: %w", codecErr)
	}
	return nil
}

// Encode serializes a set.
func Encode(set *Set) ([]byte, error) {
	if err := initCodec(); err != nil {
		return nil, err
	}
	if len(set.Label) > 0xFFFF || set.Width > 0xFFFF || set.Height > 0xFFFF {
		return nil, fmt.Errorf("%w: label or dimensions too large", ErrCorrupt)
	}
	if len(set.Samples) > 0 && (set.Width == 0 || set.Height == 0) {
		return nil, fmt.Errorf("%w: samples have no pixels", ErrCorrupt)
	}

	var body bytes.Buffer
	hdr := []any{uint16(set.Width), uint16(set.Height), uint32(len(set.Samples)), uint16(len(set.Label))}
	for _, v := range hdr {
		if err := binary.Write(&body, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	body.WriteString(set.Label)

	for _, sample := range set.Samples {
		b := sample.Bounds()
		if b.Dx() != set.Width || b.Dy() != set.Height {
			return nil, ErrSampleSize
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := sample.PixOffset(b.Min.X, y)
			body.Write(sample.Pix[off : off+set.Width])
		}
	}

	out := make([]byte, 0, 6+body.Len()/4)
	out = append(out, magic[:]...)
	out = binary.BigEndian.AppendUint16(out, CurrentVersion)
	return encoder.EncodeAll(body.Bytes(), out), nil
}

// Decode parses a set written by Encode.
func Decode(data []byte) (*Set, error) {
	if err := initCodec(); err != nil {
		return nil, err
	}
	if len(data) < 6 || !bytes.Equal(data[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := binary.BigEndian.Uint16(data[4:6]); v != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	raw, err := decoder.DecodeAll(data[6:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	r := bytes.NewReader(raw)

	var width, height, labelLen uint16
	var count uint32
	for _, v := range []any{&width, &height, &count, &labelLen} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
		}
	}

	label := make([]byte, labelLen)
	if _, err := io.ReadFull(r, label); err != nil {
		return nil, fmt.Errorf("%w: label: %v", ErrCorrupt, err)
	}

	if count > 0 && (width == 0 || height == 0) {
		return nil, fmt.Errorf("%w: %d samples of %dx%d", ErrCorrupt, count, width, height)
	}

	size := int(width) * int(height)
	if r.Len() != int(count)*size {
		return nil, fmt.Errorf("%w: expected %d pixel bytes, have %d", ErrCorrupt, int(count)*size, r.Len())
	}

	set := &Set{
		Label:   string(label),
		Width:   int(width),
		Height:  int(height),
		Samples: make([]*image.Gray, count),
	}
	for i := range set.Samples {
		img := image.NewGray(image.Rect(0, 0, set.Width, set.Height))
		if _, err := io.ReadFull(r, img.Pix); err != nil {
			return nil, fmt.Errorf("%w: sample %d: %v", ErrCorrupt, i, err)
		}
		set.Samples[i] = img
	}
	return set, nil
}
