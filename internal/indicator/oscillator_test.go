package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"only gains", []float64{1, 2, 3, 4, 5}, 100},
		{"flat", []float64{5, 5, 5, 5, 5}, 50},
		{"only losses", []float64{5, 4, 3, 2, 1}, 0},
		// avg gain 1, avg loss 1 over the seed window
		{"balanced", []float64{10, 11, 10, 11, 10}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RSI(tt.prices, 4)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRSI_WilderSmoothing(t *testing.T) {
	// seed: gain 2/2 = 1, loss 0; next step -1: gain 0.5, loss 0.5
	got, ok := RSI([]float64{10, 11, 12, 11}, 2)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestRSI_NotEnoughData(t *testing.T) {
	_, ok := RSI([]float64{1, 2, 3}, 14)
	assert.False(t, ok)
}

func TestROC(t *testing.T) {
	got, ok := ROC([]float64{100, 105, 110, 120}, 3)
	assert.True(t, ok)
	assert.InDelta(t, 20.0, got, 1e-9)

	_, ok = ROC([]float64{100, 110}, 3)
	assert.False(t, ok)

	_, ok = ROC([]float64{0, 1, 2}, 2)
	assert.False(t, ok, "zero base price")
}
