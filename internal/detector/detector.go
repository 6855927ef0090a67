// Package detector finds faces in frames using the face embedding server.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

const (
	defaultURL     = "http://localhost:8000"
	defaultTimeout = 30 * time.Second
	faceEndpoint   = "/embed/face"
)

// Client detects faces by posting frames to the embedding server. Only the
// bounding boxes of the response are used.
type Client struct {
	baseURL     string
	minScore    float64
	minFaceSize int
	client      *http.Client
}

// NewClient creates a detector client
func NewClient(cfg config.DetectorConfig) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		minScore:    cfg.MinScore,
		minFaceSize: cfg.MinFaceSize,
		client:      &http.Client{Timeout: defaultTimeout},
	}
}

// Detection is a single face found by the server
type Detection struct {
	FaceIndex int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the response of the face endpoint
type faceResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// Detect returns the face regions of frame in frame coordinates. Detections
// below the minimum score or size are dropped.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]image.Rectangle, error) {
	data, err := vision.EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	resp, err := c.detectJPEG(ctx, data)
	if err != nil {
		return nil, err
	}

	bounds := frame.Bounds()
	regions := make([]image.Rectangle, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		r, ok := c.region(face, bounds)
		if ok {
			regions = append(regions, r)
		}
	}
	return regions, nil
}

// region converts a detection to a rectangle inside bounds. The server sees
// the encoded frame, whose origin is always (0, 0).
func (c *Client) region(face Detection, bounds image.Rectangle) (image.Rectangle, bool) {
	if len(face.BBox) != 4 || face.DetScore < c.minScore {
		return image.Rectangle{}, false
	}
	r := image.Rect(
		int(math.Floor(face.BBox[0])), int(math.Floor(face.BBox[1])),
		int(math.Ceil(face.BBox[2])), int(math.Ceil(face.BBox[3])),
	).Add(bounds.Min).Intersect(bounds)

	if r.Empty() || r.Dx() < c.minFaceSize || r.Dy() < c.minFaceSize {
		return image.Rectangle{}, false
	}
	return r, true
}

func (c *Client) detectJPEG(ctx context.Context, data []byte) (*faceResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+faceEndpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}
