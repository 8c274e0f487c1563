// Package fare computes distance-tiered trip prices.
package fare

import (
	"errors"
	"math"
)

// Schedule is the tiered per-kilometer rate table. The base price covers
// everything up to Threshold1; each later band applies its marginal rate
// cumulatively.
type Schedule struct {
	BasePrice  float64
	Threshold1 float64 // km covered by the base price
	Threshold2 float64
	Threshold3 float64
	Rate2      float64 // per-km rate between Threshold1 and Threshold2
	Rate3      float64 // per-km rate between Threshold2 and Threshold3
	Rate4      float64 // per-km rate beyond Threshold3
}

// DefaultSchedule returns the operator's current rate table (MXN).
func DefaultSchedule() Schedule {
	return Schedule{
		BasePrice:  50,
		Threshold1: 5,
		Threshold2: 10,
		Threshold3: 15,
		Rate2:      10,
		Rate3:      9,
		Rate4:      8,
	}
}

// Validate checks that thresholds ascend and rates are non-negative.
func (s Schedule) Validate() error {
	if s.BasePrice < 0 || s.Rate2 < 0 || s.Rate3 < 0 || s.Rate4 < 0 {
		return errors.New("fare: negative price or rate")
	}
	if !(s.Threshold1 > 0 && s.Threshold2 > s.Threshold1 && s.Threshold3 > s.Threshold2) {
		return errors.New("fare: thresholds must ascend")
	}
	return nil
}

// Amount maps a trip distance to a whole-currency fare. Total over
// distanceKm >= 0; negative or NaN input fails closed to the base price.
// The result is floored at the base price and rounded to the nearest unit.
func (s Schedule) Amount(distanceKm float64) int {
	base := int(math.Round(s.BasePrice))
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		return base
	}

	price := s.BasePrice
	if distanceKm > s.Threshold1 {
		price += (math.Min(distanceKm, s.Threshold2) - s.Threshold1) * s.Rate2
	}
	if distanceKm > s.Threshold2 {
		price += (math.Min(distanceKm, s.Threshold3) - s.Threshold2) * s.Rate3
	}
	if distanceKm > s.Threshold3 {
		price += (distanceKm - s.Threshold3) * s.Rate4
	}

	amount := int(math.Round(price))
	if amount < base {
		return base
	}
	return amount
}
