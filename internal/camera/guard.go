// Package camera provides frame sources: an MJPEG network camera, a directory
// of images, and a guard that gives one stream at a time exclusive ownership
// of the physical camera.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// ErrBusy means another stream currently owns the camera.
var ErrBusy = errors.New("camera is in use by another stream")

// ErrNotConfigured means no camera URL was configured.
var ErrNotConfigured = errors.New("no camera configured")

// Opener opens a new frame source.
type Opener func(ctx context.Context) (attendance.FrameSource, error)

// Guard hands the camera to at most one stream. The owner releases it by
// closing the returned source.
type Guard struct {
	open Opener

	mu    sync.Mutex
	owner string
}

// NewGuard creates a guard around open. A nil open means no camera.
func NewGuard(open Opener) *Guard {
	return &Guard{open: open}
}

// Available reports whether a camera is configured.
func (g *Guard) Available() bool {
	return g != nil && g.open != nil
}

// Owner returns the name of the current owner or "".
func (g *Guard) Owner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// Acquire opens the camera for owner. Both failure modes wrap
// attendance.ErrResourceUnavailable.
func (g *Guard) Acquire(ctx context.Context, owner string) (attendance.FrameSource, error) {
	if !g.Available() {
		return nil, fmt.Errorf("%w: %w", attendance.ErrResourceUnavailable, ErrNotConfigured)
	}

	g.mu.Lock()
	if g.owner != "" {
		current := g.owner
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: %w (%s)", attendance.ErrResourceUnavailable, ErrBusy, current)
	}
	g.owner = owner
	g.mu.Unlock()

	src, err := g.open(ctx)
	if err != nil {
		g.release()
		return nil, fmt.Errorf("%w: %w", attendance.ErrResourceUnavailable, err)
	}
	return &guardedSource{src: src, release: g.release}, nil
}

func (g *Guard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.owner = ""
}

type guardedSource struct {
	src     attendance.FrameSource
	release func()
	once    sync.Once
}

func (s *guardedSource) Next(ctx context.Context) (image.Image, error) {
	return s.src.Next(ctx)
}

func (s *guardedSource) Close() error {
	err := s.src.Close()
	s.once.Do(s.release)
	return err
}
