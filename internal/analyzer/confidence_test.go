package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeConfidenceNoEvents(t *testing.T) {
	assert.Equal(t, 0, ComputeConfidence(ConfidenceInput{}))
}

func TestComputeConfidenceBaseRate(t *testing.T) {
	// Below 10 total events neither the sample multiplier nor the recency
	// factor engages, so the score is the raw rate.
	score := ComputeConfidence(ConfidenceInput{
		ActionCount: 4,
		TotalEvents: 8,
	})
	assert.Equal(t, 50, score)
}

func TestComputeConfidenceSampleMultiplierCap(t *testing.T) {
	// 900/1000: base 90, log10(100)=2 would give +10% exactly at the cap.
	// 90 * 1.1 = 99.
	score := ComputeConfidence(ConfidenceInput{
		ActionCount: 900,
		TotalEvents: 1000,
	})
	assert.Equal(t, 99, score)

	// A perfect rate at huge volume caps at 100, never above.
	score = ComputeConfidence(ConfidenceInput{
		ActionCount: 100000,
		TotalEvents: 100000,
	})
	assert.Equal(t, 100, score)
}

func TestComputeConfidenceRecencyNotEngagedUnderThreeRecent(t *testing.T) {
	// Two recent events is below the recency sample minimum, so a divergent
	// recent rate changes nothing.
	score := ComputeConfidence(ConfidenceInput{
		ActionCount:       50,
		TotalEvents:       100,
		RecentActionCount: 0,
		RecentTotalEvents: 2,
	})
	// base 50, multiplier 1.05 (log10(10)=1), no recency: round(52.5) = 53
	assert.Equal(t, 53, score)
}

func TestComputeConfidenceRecencyPenalty(t *testing.T) {
	steady := ComputeConfidence(ConfidenceInput{
		ActionCount:       50,
		TotalEvents:       100,
		RecentActionCount: 5,
		RecentTotalEvents: 10,
	})
	drifted := ComputeConfidence(ConfidenceInput{
		ActionCount:       50,
		TotalEvents:       100,
		RecentActionCount: 0,
		RecentTotalEvents: 10,
	})
	assert.Greater(t, steady, drifted)

	// The penalty floors at 0.85 of the pre-recency score.
	floor := ComputeConfidence(ConfidenceInput{
		ActionCount:       100,
		TotalEvents:       100,
		RecentActionCount: 0,
		RecentTotalEvents: 10,
	})
	// base 100 * 1.05 * 0.85 = 89.25 -> 89
	assert.Equal(t, 89, floor)
}

func TestComputeConfidenceMonotonicInActionCount(t *testing.T) {
	// At a fixed sample size, more occurrences of the action never lower
	// the score.
	prev := 0
	for actionCount := 0; actionCount <= 100; actionCount++ {
		score := ComputeConfidence(ConfidenceInput{
			ActionCount: actionCount,
			TotalEvents: 100,
		})
		assert.GreaterOrEqual(t, score, prev, "actionCount=%d", actionCount)
		prev = score
	}

	// Same property with the recency factor engaged: recent behavior
	// tracking the overall rate keeps the divergence at zero.
	prev = 0
	for actionCount := 0; actionCount <= 100; actionCount += 10 {
		score := ComputeConfidence(ConfidenceInput{
			ActionCount:       actionCount,
			TotalEvents:       100,
			RecentActionCount: actionCount / 10,
			RecentTotalEvents: 10,
		})
		assert.GreaterOrEqual(t, score, prev, "actionCount=%d", actionCount)
		prev = score
	}
}

func TestComputeConfidenceMoreDataBeatsLess(t *testing.T) {
	small := ComputeConfidence(ConfidenceInput{ActionCount: 9, TotalEvents: 10})
	large := ComputeConfidence(ConfidenceInput{ActionCount: 90, TotalEvents: 100})
	assert.Greater(t, large, small)
}
