package utils

import "github.com/shopspring/decimal"

// MinInt returns the smaller of two integers.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// AbsInt returns the absolute value of an integer.
func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// WeightedAverage combines two prices using the absolute quantities as
// weights. With a zero total weight the second price wins, so a merge of two
// quantity-less entries degrades to "latest price".
func WeightedAverage(priceA decimal.Decimal, qtyA int, priceB decimal.Decimal, qtyB int) decimal.Decimal {
	wa := decimal.NewFromInt(int64(AbsInt(qtyA)))
	wb := decimal.NewFromInt(int64(AbsInt(qtyB)))
	total := wa.Add(wb)
	if total.IsZero() {
		return priceB
	}
	return priceA.Mul(wa).Add(priceB.Mul(wb)).Div(total)
}
