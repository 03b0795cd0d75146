package services

import (
	"testing"

	"grant-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedCriteriaScore(t *testing.T) {
	criteria := []models.ReviewCriteria{
		{CriteriaID: 1, Weight: 0.5, MaxScore: 10},
		{CriteriaID: 2, Weight: 0.3, MaxScore: 5},
		{CriteriaID: 3, Weight: 0.2, MaxScore: 10},
	}
	scores := []models.ReviewScore{
		{CriteriaID: 1, Score: 8},
		{CriteriaID: 2, Score: 4},
		{CriteriaID: 3, Score: 10},
	}

	// 0.8*0.5 + 0.8*0.3 + 1.0*0.2 = 0.84 on a unit scale.
	got, warnings := WeightedCriteriaScore(scores, criteria)
	assert.InDelta(t, 8.4, got, 1e-9)
	assert.Empty(t, warnings)
}

func TestWeightedCriteriaScoreNormalizesWeights(t *testing.T) {
	criteria := []models.ReviewCriteria{
		{CriteriaID: 1, Weight: 0.6, MaxScore: 10},
		{CriteriaID: 2, Weight: 0.6, MaxScore: 10},
	}
	scores := []models.ReviewScore{
		{CriteriaID: 1, Score: 10},
		{CriteriaID: 2, Score: 5},
	}

	got, warnings := WeightedCriteriaScore(scores, criteria)
	assert.InDelta(t, 7.5, got, 1e-9, "weights 1.2 normalize to the same result as 0.5/0.5")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "normalizing")
}

func TestWeightedCriteriaScoreDegenerateInputs(t *testing.T) {
	_, warnings := WeightedCriteriaScore(nil, nil)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "sum to zero")

	criteria := []models.ReviewCriteria{{CriteriaID: 1, Weight: 1.0, MaxScore: 10}}
	scores := []models.ReviewScore{
		{CriteriaID: 1, Score: 5},
		{CriteriaID: 99, Score: 5},
	}
	got, warnings := WeightedCriteriaScore(scores, criteria)
	assert.InDelta(t, 5.0, got, 1e-9)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unknown criteria 99")
}

func TestAggregateScoresCompletedOnly(t *testing.T) {
	criteria := []models.ReviewCriteria{{CriteriaID: 1, Weight: 1.0, MaxScore: 10}}
	reviews := []models.Review{
		{
			IsComplete:   true,
			OverallScore: fptr(8),
			Scores:       []models.ReviewScore{{CriteriaID: 1, Score: 8}},
		},
		{
			IsComplete:   true,
			OverallScore: fptr(6),
			Scores:       []models.ReviewScore{{CriteriaID: 1, Score: 6}},
		},
		{
			// Draft review never contributes.
			IsComplete:   false,
			OverallScore: fptr(1),
			Scores:       []models.ReviewScore{{CriteriaID: 1, Score: 1}},
		},
	}

	aggregate := AggregateScores(reviews, criteria)
	assert.Equal(t, 2, aggregate.CompletedReviews)
	require.NotNil(t, aggregate.AverageOverallScore)
	assert.InDelta(t, 7.0, *aggregate.AverageOverallScore, 1e-9)
	require.NotNil(t, aggregate.WeightedScore)
	assert.InDelta(t, 7.0, *aggregate.WeightedScore, 1e-9)
}

func TestAggregateScoresEmpty(t *testing.T) {
	aggregate := AggregateScores(nil, nil)
	assert.Zero(t, aggregate.CompletedReviews)
	assert.Nil(t, aggregate.AverageOverallScore)
	assert.Nil(t, aggregate.WeightedScore)
}

func TestAggregateScoresDeduplicatesWarnings(t *testing.T) {
	criteria := []models.ReviewCriteria{
		{CriteriaID: 1, Weight: 0.6, MaxScore: 10},
		{CriteriaID: 2, Weight: 0.6, MaxScore: 10},
	}
	reviews := []models.Review{
		{IsComplete: true, Scores: []models.ReviewScore{{CriteriaID: 1, Score: 5}}},
		{IsComplete: true, Scores: []models.ReviewScore{{CriteriaID: 2, Score: 5}}},
	}

	aggregate := AggregateScores(reviews, criteria)
	assert.Len(t, aggregate.Warnings, 1, "identical normalization warnings collapse")
}
