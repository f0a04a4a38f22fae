package analyzer

import (
	"math"
)

// ConfidenceInput carries the behavioral counts for one candidate pattern.
// The recent counts cover the trailing seven-day sub-window.
type ConfidenceInput struct {
	ActionCount       int
	TotalEvents       int
	RecentActionCount int
	RecentTotalEvents int
}

// ComputeConfidence turns raw counts into a 0-100 score. The sample-size
// multiplier rewards larger samples but is capped at +10% so it can never
// push a weak signal past 100 on its own. The recency factor penalizes
// patterns whose recent behavior has drifted from the historical rate,
// floored at 0.85 so one divergent week cannot zero out a pattern.
func ComputeConfidence(in ConfidenceInput) int {
	if in.TotalEvents == 0 {
		return 0
	}

	baseRate := float64(in.ActionCount) / float64(in.TotalEvents) * 100

	logFactor := 0.0
	if in.TotalEvents >= 10 {
		logFactor = math.Log10(float64(in.TotalEvents) / 10)
	}
	sampleMultiplier := math.Min(1.0+logFactor*0.05, 1.1)

	recencyFactor := 1.0
	if in.RecentTotalEvents >= 3 {
		recentRate := float64(in.RecentActionCount) / float64(in.RecentTotalEvents)
		overallRate := float64(in.ActionCount) / float64(in.TotalEvents)
		divergence := math.Abs(overallRate - recentRate)
		recencyFactor = math.Max(0.85, 1.0-divergence*0.5)
	}

	return int(math.Min(100, math.Round(baseRate*sampleMultiplier*recencyFactor)))
}
