package lbph

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// Graph parameters for histogram search. Candidates returned by the graph are
// re-scored exactly before the best one is picked.
const (
	graphM          = 16
	graphEfSearch   = 100
	searchCandidate = 8
)

var ErrEmptyTrainingSet = errors.New("no samples to train on")

// Model is a trained LBPH classifier. It is immutable after construction and
// safe for concurrent Predict calls.
type Model struct {
	params     Params
	labels     []int
	histograms [][]float32
	graph      *hnsw.Graph[int]
}

// Trainer fits LBPH models with fixed parameters.
type Trainer struct {
	Params Params
}

// NewTrainer returns a trainer for the given parameters.
func NewTrainer(p Params) *Trainer {
	return &Trainer{Params: p}
}

// Fit computes one histogram per sample and indexes them.
func (t *Trainer) Fit(ctx context.Context, faces []*image.Gray, labels []int) (attendance.FaceClassifier, error) {
	if err := t.Params.validate(); err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(faces) != len(labels) {
		return nil, fmt.Errorf("got %d samples but %d labels", len(faces), len(labels))
	}

	histograms := make([][]float32, len(faces))
	for i, face := range faces {
		if i%32 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		histograms[i] = Histogram(face, t.Params)
	}

	return newModel(t.Params, histograms, append([]int(nil), labels...)), nil
}

func newModel(p Params, histograms [][]float32, labels []int) *Model {
	g := hnsw.NewGraph[int]()
	g.M = graphM
	g.Ml = 1.0 / float64(graphM)
	g.EfSearch = graphEfSearch
	g.Distance = chiSquare32

	for i, h := range histograms {
		g.Add(hnsw.MakeNode(i, h))
	}

	return &Model{params: p, labels: labels, histograms: histograms, graph: g}
}

// Predict returns the label of the closest training sample and its chi-square
// distance. An empty model returns label -1 and +Inf.
func (m *Model) Predict(face *image.Gray) (int, float64) {
	if m == nil || len(m.histograms) == 0 {
		return -1, math.Inf(1)
	}
	query := Histogram(face, m.params)

	k := min(searchCandidate, len(m.histograms))
	best, bestScore := -1, math.Inf(1)
	for _, n := range m.graph.Search(query, k) {
		if d := ChiSquare(query, m.histograms[n.Key]); d < bestScore {
			best, bestScore = n.Key, d
		}
	}
	if best < 0 {
		return -1, math.Inf(1)
	}
	return m.labels[best], bestScore
}

// Params returns the parameters the model was trained with.
func (m *Model) Params() Params {
	return m.params
}

// Len returns the number of indexed samples.
func (m *Model) Len() int {
	return len(m.histograms)
}
