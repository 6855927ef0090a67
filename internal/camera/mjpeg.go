package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// MJPEGBoundary is the multipart boundary of the feeds we serve.
const MJPEGBoundary = "frame"

// MJPEGSource reads frames from a multipart/x-mixed-replace HTTP stream.
type MJPEGSource struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

// OpenMJPEG connects to an MJPEG stream. The request is bound to ctx, so
// cancelling ctx ends the stream.
func OpenMJPEG(ctx context.Context, client *http.Client, url string) (*MJPEGSource, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not connect to camera: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	boundary, err := streamBoundary(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &MJPEGSource{body: resp.Body, reader: multipart.NewReader(resp.Body, boundary)}, nil
}

func streamBoundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("invalid stream content type %q: %w", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("not a multipart stream: %s", mediaType)
	}
	// Some cameras include the leading dashes in the parameter.
	boundary := strings.TrimPrefix(params["boundary"], "--")
	if boundary == "" {
		return "", errors.New("stream has no multipart boundary")
	}
	return boundary, nil
}

// Next returns the next frame. The end of the stream is io.EOF.
func (s *MJPEGSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part, err := s.reader.NextPart()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return vision.DecodeFrame(data)
}

// Close closes the stream.
func (s *MJPEGSource) Close() error {
	return s.body.Close()
}

// MJPEGWriter serves frames as a multipart/x-mixed-replace stream.
type MJPEGWriter struct {
	w  http.ResponseWriter
	mw *multipart.Writer
}

// NewMJPEGWriter writes the stream headers to w.
func NewMJPEGWriter(w http.ResponseWriter) (*MJPEGWriter, error) {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(MJPEGBoundary); err != nil {
		return nil, err
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+MJPEGBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &MJPEGWriter{w: w, mw: mw}, nil
}

// WriteFrame encodes img as JPEG and flushes it to the client.
func (m *MJPEGWriter) WriteFrame(img image.Image) error {
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(data)))
	part, err := m.mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if f, ok := m.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Close writes the closing boundary.
func (m *MJPEGWriter) Close() error {
	return m.mw.Close()
}

// HTTPOpener returns an Opener for the MJPEG stream at url, or nil when url
// is empty.
func HTTPOpener(url string) Opener {
	if url == "" {
		return nil
	}
	return func(ctx context.Context) (attendance.FrameSource, error) {
		src, err := OpenMJPEG(ctx, nil, url)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
