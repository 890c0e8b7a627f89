// Package economy provides the purchase-cost and output-scaling laws for buildings.
// All functions are pure.
package economy

import "math"

// CostGrowth is the per-unit price growth of every building.
const CostGrowth = 1.15

// NextCost returns the price of the unit after newCount units are owned:
// floor(baseCost × 1.15^newCount).
func NextCost(baseCost float64, newCount int) float64 {
	return math.Floor(baseCost * math.Pow(CostGrowth, float64(newCount)))
}

// Rates returns the effective production and pollution coefficients for count
// owned units. Scaling is linear; upgrades change the base, not the law.
func Rates(baseProduction, basePollution float64, count int) (production, pollution float64) {
	n := float64(count)
	return baseProduction * n, basePollution * n
}

// Discount rescales a price by factor. Used for one-shot global cost reductions.
func Discount(price, factor float64) float64 {
	return price * factor
}
