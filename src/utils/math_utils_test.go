package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name   string
		priceA float64
		qtyA   int
		priceB float64
		qtyB   int
		want   float64
	}{
		{"ten at two plus five at five", 2, 10, 5, 5, 3},
		{"equal weights", 4, 1, 6, 1, 5},
		{"negative quantities weigh by magnitude", 3, -2, 6, -1, 4},
		{"zero existing quantity takes new price", 9, 0, 5, 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverage(decimal.NewFromFloat(tt.priceA), tt.qtyA, decimal.NewFromFloat(tt.priceB), tt.qtyB)
			assert.True(t, got.Equal(decimal.NewFromFloat(tt.want)), "got %s want %v", got, tt.want)
		})
	}
}

func TestWeightedAverageZeroTotalWeight(t *testing.T) {
	got := WeightedAverage(decimal.NewFromInt(9), 0, decimal.NewFromInt(7), 0)
	assert.True(t, got.Equal(decimal.NewFromInt(7)))
}
