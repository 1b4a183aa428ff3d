package domain

import "math"

// EngagementStats is the rolling four-week read model consumed by the weekly
// analysis. WeeksActive, OrderFreq and ReviewFreq are normalized to [0,1];
// StreakWeeks counts consecutive qualifying weeks.
type EngagementStats struct {
	WeeksActive float64
	OrderFreq   float64
	ReviewFreq  float64
	StreakWeeks int
}

// EngagementScore blends recent activity, order frequency and review
// frequency into a 0-100 score.
func EngagementScore(weeksActive, orderFreq, reviewFreq float64) int {
	raw := 40*weeksActive + 40*orderFreq + 20*reviewFreq
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}
	return int(math.Round(raw))
}

// ComputeMultiplier maps an engagement score and streak onto the loyalty
// multiplier. Exactly one branch fires; there is no interpolation.
func ComputeMultiplier(score, streak int) float64 {
	if score > 85 && streak >= 4 {
		return 1.05
	}
	if score < 50 {
		return 0.97
	}
	return 1.0
}
