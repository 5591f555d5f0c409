package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

func TestFit(t *testing.T) {
	vectors := []domain.Vector{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
	}

	params, err := Fit(vectors)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2, 20, 5}, []float64(params.Mean), 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), params.Scale[0], 1e-12)
	assert.InDelta(t, math.Sqrt(200.0/3.0), params.Scale[1], 1e-12)
	assert.Equal(t, 1.0, params.Scale[2], "constant dimension must scale by 1")
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vectors []domain.Vector
	}{
		{name: "empty", vectors: nil},
		{name: "zero dims", vectors: []domain.Vector{{}}},
		{name: "ragged", vectors: []domain.Vector{{1, 2}, {1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.vectors)
			assert.Error(t, err)
		})
	}
}

func TestTransform_MeanMapsToZero(t *testing.T) {
	vectors := []domain.Vector{
		{0.1, 120, 0.3},
		{0.4, 95, 0.3},
		{0.9, 140, 0.3},
		{0.2, 101, 0.3},
	}
	params, err := Fit(vectors)
	require.NoError(t, err)

	got, err := Transform(params.Mean, params)
	require.NoError(t, err)
	for d, x := range got {
		assert.InDelta(t, 0, x, 1e-9, "dimension %d", d)
	}
}

func TestTransform_ConstantDimension(t *testing.T) {
	params, err := Fit([]domain.Vector{{0.1, 1}, {0.1, 3}, {0.1, 5}})
	require.NoError(t, err)
	require.Equal(t, 1.0, params.Scale[0])

	got, err := params.Transform(domain.Vector{0.6, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got[0], 1e-12, "raw minus constant mean")
	assert.InDelta(t, 0, got[1], 1e-12)
}

func TestTransform_Errors(t *testing.T) {
	_, err := ScalerParams{}.Transform(domain.Vector{1})
	assert.ErrorIs(t, err, ErrNotFitted)

	params, err := Fit([]domain.Vector{{1, 2}, {3, 4}})
	require.NoError(t, err)
	_, err = params.Transform(domain.Vector{1})
	assert.Error(t, err)
}
