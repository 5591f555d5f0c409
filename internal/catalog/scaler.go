package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// ErrNotFitted is returned when transforming with empty scaler params.
var ErrNotFitted = errors.New("catalog: scaler not fitted")

// zeroVarianceTolerance is the relative standard deviation under which a
// dimension is treated as constant. Summation error on a constant column
// leaves a residue around 1e-17, which must not become a divisor.
const zeroVarianceTolerance = 1e-12

// ScalerParams holds the per-dimension standardization parameters. It is
// read-only after Fit.
type ScalerParams struct {
	Mean  domain.Vector
	Scale domain.Vector
}

// Dims returns the number of fitted dimensions.
func (p ScalerParams) Dims() int { return len(p.Mean) }

// Fit computes the mean and population standard deviation of every dimension.
// A dimension with zero deviation gets scale 1.
func Fit(vectors []domain.Vector) (ScalerParams, error) {
	if len(vectors) == 0 {
		return ScalerParams{}, errors.New("catalog: cannot fit scaler on empty input")
	}
	dims := len(vectors[0])
	if dims == 0 {
		return ScalerParams{}, errors.New("catalog: cannot fit scaler on zero-dimension vectors")
	}

	mean := make(domain.Vector, dims)
	for i, v := range vectors {
		if len(v) != dims {
			return ScalerParams{}, fmt.Errorf("catalog: vector %d has %d dims, want %d", i, len(v), dims)
		}
		for d, x := range v {
			mean[d] += x
		}
	}
	n := float64(len(vectors))
	for d := range mean {
		mean[d] /= n
	}

	scale := make(domain.Vector, dims)
	for _, v := range vectors {
		for d, x := range v {
			diff := x - mean[d]
			scale[d] += diff * diff
		}
	}
	for d := range scale {
		std := math.Sqrt(scale[d] / n)
		if std <= zeroVarianceTolerance*math.Max(1, math.Abs(mean[d])) {
			std = 1
		}
		scale[d] = std
	}

	return ScalerParams{Mean: mean, Scale: scale}, nil
}

// Transform standardizes v with p: (x - mean) / scale, element-wise.
func Transform(v domain.Vector, p ScalerParams) (domain.Vector, error) {
	return p.Transform(v)
}

// Transform standardizes v.
func (p ScalerParams) Transform(v domain.Vector) (domain.Vector, error) {
	if p.Dims() == 0 {
		return nil, ErrNotFitted
	}
	if len(v) != p.Dims() {
		return nil, fmt.Errorf("catalog: vector has %d dims, scaler fitted on %d", len(v), p.Dims())
	}
	out := make(domain.Vector, len(v))
	for d, x := range v {
		out[d] = (x - p.Mean[d]) / p.Scale[d]
	}
	return out, nil
}
