// services/scoring.go
package services

import "math"

const (
	// Reward floor: a completion is never worth less than 10% of base points.
	MinScoreMultiplier = 0.1
	MaxScoreMultiplier = 1.0

	// Flat doubling applied after the time-decay multiplier when the
	// completion sets a new mission record.
	NewRecordBonusFactor = 2
)

// ScoreMultiplier returns the time-decay fraction applied to base points.
// With no recorded best time, or while beating it, the player earns the full
// reward. Past the record the reward decays hyperbolically with elapsed time,
// floored at MinScoreMultiplier.
func ScoreMultiplier(elapsedMs int64, bestTimeMs *int64) float64 {
	if bestTimeMs == nil || elapsedMs < *bestTimeMs {
		return MaxScoreMultiplier
	}
	if elapsedMs <= 0 {
		return MaxScoreMultiplier
	}
	ratio := float64(*bestTimeMs) / float64(elapsedMs)
	if ratio < MinScoreMultiplier {
		return MinScoreMultiplier
	}
	if ratio > MaxScoreMultiplier {
		return MaxScoreMultiplier
	}
	return ratio
}

// Score is the live scoring function: floor(basePoints * multiplier).
// Total — never errors, never negative.
func Score(elapsedMs int64, bestTimeMs *int64, basePoints int64) int64 {
	if basePoints <= 0 {
		return 0
	}
	return int64(math.Floor(float64(basePoints) * ScoreMultiplier(elapsedMs, bestTimeMs)))
}
