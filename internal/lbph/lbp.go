// Package lbph implements a local binary pattern histogram face classifier.
//
// Each sample is reduced to a spatial histogram of circular LBP codes. Prediction
// returns the label of the nearest training histogram under the chi-square
// distance, so lower scores mean closer matches.
package lbph

import (
	"errors"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Params configures the LBP operator and the spatial grid.
type Params struct {
	Radius    int
	Neighbors int
	GridX     int
	GridY     int
}

// DefaultParams mirrors the classic LBPH configuration.
func DefaultParams() Params {
	return Params{Radius: 1, Neighbors: 8, GridX: 8, GridY: 8}
}

var ErrInvalidParams = errors.New("invalid LBPH parameters")

func (p Params) validate() error {
	if p.Radius < 1 || p.Neighbors < 1 || p.Neighbors > 16 || p.GridX < 1 || p.GridY < 1 {
		return ErrInvalidParams
	}
	return nil
}

// bins is the number of distinct codes per cell.
func (p Params) bins() int {
	return 1 << p.Neighbors
}

// Dims is the length of a spatial histogram.
func (p Params) Dims() int {
	return p.GridX * p.GridY * p.bins()
}

// codes computes the circular LBP image. The result is (w-2r)x(h-2r);
// neighbours off the sampling grid are bilinearly interpolated.
func codes(img *image.Gray, p Params) (out []int, w, h int) {
	b := img.Bounds()
	r := p.Radius
	w, h = b.Dx()-2*r, b.Dy()-2*r
	if w <= 0 || h <= 0 {
		return nil, 0, 0
	}
	out = make([]int, w*h)

	at := func(x, y int) float64 {
		return float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	for n := 0; n < p.Neighbors; n++ {
		angle := 2 * math.Pi * float64(n) / float64(p.Neighbors)
		sx := float64(r) * math.Cos(angle)
		sy := -float64(r) * math.Sin(angle)

		fx, fy := int(math.Floor(sx)), int(math.Floor(sy))
		cx, cy := int(math.Ceil(sx)), int(math.Ceil(sy))
		tx, ty := sx-float64(fx), sy-float64(fy)

		w1 := (1 - tx) * (1 - ty)
		w2 := tx * (1 - ty)
		w3 := (1 - tx) * ty
		w4 := tx * ty

		bit := 1 << n
		for y := r; y < r+h; y++ {
			for x := r; x < r+w; x++ {
				v := w1*at(x+fx, y+fy) + w2*at(x+cx, y+fy) + w3*at(x+fx, y+cy) + w4*at(x+cx, y+cy)
				// epsilon keeps interpolation noise from flipping equal neighbours
				if v-at(x, y) >= -1e-9 {
					out[(y-r)*w+(x-r)] |= bit
				}
			}
		}
	}
	return out, w, h
}

// Histogram returns the normalized spatial LBP histogram of img. Every cell
// histogram sums to one.
func Histogram(img *image.Gray, p Params) []float32 {
	lbp, w, h := codes(img, p)
	bins := p.bins()
	hist := make([]float32, p.Dims())
	if lbp == nil {
		return hist
	}

	cellW, cellH := w/p.GridX, h/p.GridY
	if cellW == 0 || cellH == 0 {
		return hist
	}

	cell := make([]float64, bins)
	for gy := 0; gy < p.GridY; gy++ {
		for gx := 0; gx < p.GridX; gx++ {
			for i := range cell {
				cell[i] = 0
			}
			for y := gy * cellH; y < (gy+1)*cellH; y++ {
				row := lbp[y*w : (y+1)*w]
				for x := gx * cellW; x < (gx+1)*cellW; x++ {
					cell[row[x]]++
				}
			}
			floats.Scale(1/floats.Sum(cell), cell)

			off := (gy*p.GridX + gx) * bins
			for i, v := range cell {
				hist[off+i] = float32(v)
			}
		}
	}
	return hist
}

// ChiSquare is the symmetric chi-square distance sum(2(a-b)^2/(a+b)).
func ChiSquare(a, b []float32) float64 {
	var d float64
	for i := range a {
		s := float64(a[i]) + float64(b[i])
		if s <= 0 {
			continue
		}
		diff := float64(a[i]) - float64(b[i])
		d += 2 * diff * diff / s
	}
	return d
}

func chiSquare32(a, b []float32) float32 {
	return float32(ChiSquare(a, b))
}
