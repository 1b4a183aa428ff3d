package domain

import "math"

const (
	baseEarnRate      = 0.04
	bulkEarnRate      = 0.09
	bulkMealThreshold = 10
	subscriptionBonus = 0.03
)

type EarnInput struct {
	Subtotal        float64
	CreditsRedeemed float64
	MealCount       int
	IsSubscription  bool
	Multiplier      float64
}

type EarnResult struct {
	Credits  float64 `json:"credits"`
	Rate     float64 `json:"rate"`
	Earnable float64 `json:"earnable"`
}

// CalculateEarn derives the credit grant for a completed order. Orders of ten
// meals or more earn at the bulk rate, subscriptions add a flat bonus, and the
// personalization multiplier scales the combined rate. A zero multiplier means
// the user has no personalization record yet and falls back to 1.
func CalculateEarn(in EarnInput) EarnResult {
	rate := baseEarnRate
	if in.MealCount >= bulkMealThreshold {
		rate = bulkEarnRate
	}
	if in.IsSubscription {
		rate += subscriptionBonus
	}
	multiplier := in.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}
	effectiveRate := rate * multiplier

	earnable := in.Subtotal - in.CreditsRedeemed
	if earnable < 0 {
		earnable = 0
	}
	return EarnResult{
		Credits:  RoundCurrency(earnable * effectiveRate),
		Rate:     effectiveRate,
		Earnable: RoundCurrency(earnable),
	}
}

// RoundCurrency rounds half-up to two decimal places.
func RoundCurrency(value float64) float64 {
	return math.Round(value*100) / 100
}
