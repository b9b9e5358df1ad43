package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExp = time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC)

func optionLeg(strike float64, legType LegType, qty int) PositionLeg {
	return PositionLeg{
		Symbol:     "TSLA",
		Expiration: testExp,
		Strike:     decimal.NewFromFloat(strike),
		LegType:    legType,
		Quantity:   qty,
	}
}

func TestCanonicalKeyIsPermutationInvariant(t *testing.T) {
	legs := []PositionLeg{
		optionLeg(200, LegPut, 1),
		optionLeg(250, LegPut, -1),
		optionLeg(400, LegCall, -1),
		optionLeg(450, LegCall, 1),
	}

	want := CanonicalKeyForLegs(legs)
	require.NotEmpty(t, want)

	permuted := []PositionLeg{legs[2], legs[0], legs[3], legs[1]}
	assert.Equal(t, want, CanonicalKeyForLegs(permuted))
}

func TestCanonicalKeyShapes(t *testing.T) {
	tests := []struct {
		name string
		legs []PositionLeg
		want string
	}{
		{
			name: "cash",
			legs: []PositionLeg{{Symbol: CashKey, LegType: LegCash}},
			want: "CASH",
		},
		{
			name: "stock",
			legs: []PositionLeg{{Symbol: "TSLA", LegType: LegStock, Quantity: 100}},
			want: "TSLA|STOCK",
		},
		{
			name: "call vertical",
			legs: []PositionLeg{optionLeg(350, LegCall, 2), optionLeg(440, LegCall, -2)},
			want: "TSLA|2025-09-19|350.00/440.00|CALL",
		},
		{
			name: "iron condor",
			legs: []PositionLeg{
				optionLeg(200, LegPut, 1), optionLeg(250, LegPut, -1),
				optionLeg(400, LegCall, -1), optionLeg(450, LegCall, 1),
			},
			want: "TSLA|2025-09-19|200.00/250.00/400.00/450.00|IC",
		},
		{
			name: "long straddle",
			legs: []PositionLeg{optionLeg(100, LegCall, 1), optionLeg(100, LegPut, 1)},
			want: "TSLA|2025-09-19|100.00/100.00|LSTD",
		},
		{
			name: "short strangle",
			legs: []PositionLeg{optionLeg(110, LegCall, -1), optionLeg(90, LegPut, -1)},
			want: "TSLA|2025-09-19|90.00/110.00|SSTG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalKeyForLegs(tt.legs))
		})
	}
}

func TestOrderAndLegKeysAgree(t *testing.T) {
	order := SpreadOrder{
		Kind:        KindVertical,
		Ticker:      "TSLA",
		Expiration:  testExp,
		OptionType:  Call,
		LowerStrike: decimal.NewFromInt(350),
		UpperStrike: decimal.NewFromInt(440),
		Quantity:    2,
	}
	legs := []PositionLeg{optionLeg(350, LegCall, 2), optionLeg(440, LegCall, -2)}
	assert.Equal(t, CanonicalKeyForLegs(legs), CanonicalKeyForOrder(&order))
}

func TestStrikeFormattingStabilizesKeys(t *testing.T) {
	// A strike parsed from "350" and one computed as 350.0 must produce the
	// same key text.
	fromText, err := decimal.NewFromString("350")
	require.NoError(t, err)
	fromFloat := decimal.NewFromFloat(350.0)
	assert.Equal(t, FormatStrike(fromText), FormatStrike(fromFloat))
	assert.Equal(t, "350.00", FormatStrike(fromText))
}

func TestLegKeyRoundTrip(t *testing.T) {
	key := NewLegKey("TSLA", testExp, decimal.NewFromFloat(350.5), Call)
	assert.Equal(t, "TSLA|2025-09-19|350.50|CALL", key.String())

	parsed, err := key.ExpirationDate()
	require.NoError(t, err)
	assert.Equal(t, testExp, parsed)
}
