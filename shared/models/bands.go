package models

import "github.com/shopspring/decimal"

// PriceBand is one histogram bucket. Max is inclusive; an unbounded band has Max < 0.
type PriceBand struct {
	Label string
	Max   int64
}

// Unbounded reports whether the band has no upper limit.
func (b PriceBand) Unbounded() bool {
	return b.Max < 0
}

// PriceBands are the ten fixed bar-chart buckets, in display order.
// A non-negative price belongs to the first band whose Max is >= the price,
// so the bands cover [0, +inf) without gaps or overlaps.
var PriceBands = []PriceBand{
	{Label: "0-100", Max: 100},
	{Label: "101-200", Max: 200},
	{Label: "201-300", Max: 300},
	{Label: "301-400", Max: 400},
	{Label: "401-500", Max: 500},
	{Label: "501-600", Max: 600},
	{Label: "601-700", Max: 700},
	{Label: "701-800", Max: 800},
	{Label: "801-900", Max: 900},
	{Label: "901-above", Max: -1},
}

// BandIndex returns the index into bands for price, or -1 if the price is negative
// or falls past a bounded final band.
func BandIndex(bands []PriceBand, price decimal.Decimal) int {
	if price.IsNegative() {
		return -1
	}
	for i, b := range bands {
		if b.Unbounded() || price.LessThanOrEqual(decimal.NewFromInt(b.Max)) {
			return i
		}
	}
	return -1
}
