package services

import (
	"fmt"
	"math"

	"grant-review-api/models"
)

// weightSumTolerance bounds how far criteria weights may drift from 1.0 before
// the aggregator reports the deviation.
const weightSumTolerance = 0.001

// ScoreAggregate combines review scores for a proposal. The reviewer-entered
// overall score stays authoritative; the weighted score is informational.
type ScoreAggregate struct {
	AverageOverallScore *float64 `json:"average_overall_score,omitempty"`
	WeightedScore       *float64 `json:"weighted_score,omitempty"`
	CompletedReviews    int      `json:"completed_reviews"`
	Warnings            []string `json:"warnings,omitempty"`
}

// WeightedCriteriaScore computes a single review's weighted score on a 0-10
// scale: sum(score/maxScore * weight) * 10, normalized by the actual weight
// sum. Weights not summing to 1.0 never fail; the deviation is reported as a
// warning.
func WeightedCriteriaScore(scores []models.ReviewScore, criteria []models.ReviewCriteria) (float64, []string) {
	var warnings []string

	byID := make(map[int]models.ReviewCriteria, len(criteria))
	var weightSum float64
	for _, c := range criteria {
		byID[c.CriteriaID] = c
		weightSum += c.Weight
	}

	if weightSum <= 0 {
		return 0, []string{"criteria weights sum to zero; weighted score unavailable"}
	}
	if math.Abs(weightSum-1.0) > weightSumTolerance {
		warnings = append(warnings,
			fmt.Sprintf("criteria weights sum to %.3f instead of 1.0; normalizing", weightSum))
	}

	var weighted float64
	for _, s := range scores {
		c, ok := byID[s.CriteriaID]
		if !ok {
			warnings = append(warnings,
				fmt.Sprintf("score for unknown criteria %d ignored", s.CriteriaID))
			continue
		}
		if c.MaxScore <= 0 {
			warnings = append(warnings,
				fmt.Sprintf("criteria %d has no positive max score; ignored", c.CriteriaID))
			continue
		}
		weighted += s.Score / c.MaxScore * c.Weight
	}

	return weighted / weightSum * 10, warnings
}

// AggregateScores computes the proposal-level assessment over completed
// reviews only. Incomplete or draft reviews never contribute.
func AggregateScores(reviews []models.Review, criteria []models.ReviewCriteria) ScoreAggregate {
	aggregate := ScoreAggregate{}

	var overallSum float64
	var overallCount int
	var weightedSum float64
	var weightedCount int
	seenWarnings := make(map[string]struct{})

	for _, review := range reviews {
		if !review.IsComplete {
			continue
		}
		aggregate.CompletedReviews++

		if review.OverallScore != nil {
			overallSum += *review.OverallScore
			overallCount++
		}

		if len(review.Scores) > 0 {
			weighted, warnings := WeightedCriteriaScore(review.Scores, criteria)
			weightedSum += weighted
			weightedCount++
			for _, w := range warnings {
				if _, ok := seenWarnings[w]; ok {
					continue
				}
				seenWarnings[w] = struct{}{}
				aggregate.Warnings = append(aggregate.Warnings, w)
			}
		}
	}

	if overallCount > 0 {
		avg := overallSum / float64(overallCount)
		aggregate.AverageOverallScore = &avg
	}
	if weightedCount > 0 {
		avg := weightedSum / float64(weightedCount)
		aggregate.WeightedScore = &avg
	}
	return aggregate
}
