package lbph

import (
	"context"
	"image"
	"math"
	"math/rand"
	"testing"
)

type pattern func(x, y int) uint8

var (
	horizontal pattern = func(_, y int) uint8 {
		if (y/3)%2 == 0 {
			return 40
		}
		return 200
	}
	vertical pattern = func(x, _ int) uint8 {
		if (x/3)%2 == 0 {
			return 40
		}
		return 200
	}
	checker pattern = func(x, y int) uint8 {
		if (x/4+y/4)%2 == 0 {
			return 40
		}
		return 200
	}
)

func render(p pattern, size int, rng *rand.Rand) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := int(p(x, y))
			if rng != nil {
				v += rng.Intn(21) - 10
			}
			img.Pix[img.PixOffset(x, y)] = uint8(max(0, min(255, v)))
		}
	}
	return img
}

func trainingSet(t *testing.T, perPattern int) ([]*image.Gray, []int) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	var faces []*image.Gray
	var labels []int
	for label, p := range []pattern{horizontal, vertical, checker} {
		for i := 0; i < perPattern; i++ {
			faces = append(faces, render(p, 48, rng))
			labels = append(labels, label)
		}
	}
	return faces, labels
}

func TestHistogram_CellsNormalized(t *testing.T) {
	p := DefaultParams()
	hist := Histogram(render(checker, 48, rand.New(rand.NewSource(1))), p)

	if len(hist) != p.Dims() {
		t.Fatalf("expected %d bins, got %d", p.Dims(), len(hist))
	}
	bins := p.bins()
	for c := 0; c < p.GridX*p.GridY; c++ {
		var sum float64
		for _, v := range hist[c*bins : (c+1)*bins] {
			sum += float64(v)
		}
		if math.Abs(sum-1) > 1e-4 {
			t.Fatalf("cell %d sums to %f", c, sum)
		}
	}
}

func TestHistogram_UniformImage(t *testing.T) {
	p := DefaultParams()
	img := image.NewGray(image.Rect(0, 0, 34, 34))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	hist := Histogram(img, p)
	// Every neighbour equals the centre, so every pixel has all bits set.
	for c := 0; c < p.GridX*p.GridY; c++ {
		if got := hist[c*p.bins()+p.bins()-1]; math.Abs(float64(got)-1) > 1e-6 {
			t.Fatalf("cell %d: expected all mass in the last bin, got %f", c, got)
		}
	}
}

func TestHistogram_TooSmall(t *testing.T) {
	hist := Histogram(image.NewGray(image.Rect(0, 0, 2, 2)), DefaultParams())
	for _, v := range hist {
		if v != 0 {
			t.Fatal("expected an empty histogram for an image smaller than the operator")
		}
	}
}

func TestChiSquare(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0.5, 0.5}, []float32{0.5, 0.5}, 0},
		{"disjoint", []float32{1, 0}, []float32{0, 1}, 4},
		{"both empty", []float32{0, 0}, []float32{0, 0}, 0},
		{"partial", []float32{0.75, 0.25}, []float32{0.25, 0.75}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChiSquare(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ChiSquare() = %f, want %f", got, tt.want)
			}
			if got := ChiSquare(tt.b, tt.a); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ChiSquare() is not symmetric: %f", got)
			}
		})
	}
}

func TestPredict_NearestPattern(t *testing.T) {
	faces, labels := trainingSet(t, 5)
	classifier, err := NewTrainer(DefaultParams()).Fit(context.Background(), faces, labels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	rng := rand.New(rand.NewSource(99))
	for want, p := range []pattern{horizontal, vertical, checker} {
		label, score := classifier.Predict(render(p, 48, rng))
		if label != want {
			t.Errorf("pattern %d classified as %d (score %f)", want, label, score)
		}
	}
}

func TestPredict_TrainingSampleScoresZero(t *testing.T) {
	faces, labels := trainingSet(t, 3)
	classifier, err := NewTrainer(DefaultParams()).Fit(context.Background(), faces, labels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	label, score := classifier.Predict(faces[4])
	if label != labels[4] {
		t.Errorf("expected label %d, got %d", labels[4], label)
	}
	if score != 0 {
		t.Errorf("expected score 0 for a training sample, got %f", score)
	}
}

func TestPredict_EmptyModel(t *testing.T) {
	var m *Model
	label, score := m.Predict(render(checker, 48, nil))
	if label != -1 || !math.IsInf(score, 1) {
		t.Errorf("expected (-1, +Inf), got (%d, %f)", label, score)
	}
}

func TestFit_Errors(t *testing.T) {
	face := render(checker, 48, nil)
	tests := []struct {
		name   string
		params Params
		faces  []*image.Gray
		labels []int
	}{
		{"no samples", DefaultParams(), nil, nil},
		{"label mismatch", DefaultParams(), []*image.Gray{face}, []int{0, 1}},
		{"invalid params", Params{Radius: 0, Neighbors: 8, GridX: 8, GridY: 8}, []*image.Gray{face}, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTrainer(tt.params).Fit(context.Background(), tt.faces, tt.labels); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFit_Cancelled(t *testing.T) {
	faces, labels := trainingSet(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewTrainer(DefaultParams()).Fit(ctx, faces, labels); err == nil {
		t.Error("expected a cancellation error")
	}
}
