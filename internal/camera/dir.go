package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

var frameExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// DirSource replays the images of a directory in name order.
type DirSource struct {
	files []string
	next  int
}

// OpenDir lists the image files of dir.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(frameExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return &DirSource{files: files}, nil
}

// Len returns the number of frames.
func (d *DirSource) Len() int {
	return len(d.files)
}

// Next decodes the next file. Unreadable files are errors.
func (d *DirSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.next >= len(d.files) {
		return nil, io.EOF
	}
	path := d.files[d.next]
	d.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	img, err := vision.DecodeFrame(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Close is a no-op.
func (d *DirSource) Close() error {
	return nil
}
