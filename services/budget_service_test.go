package services

import (
	"testing"
	"time"

	"grant-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func TestResolveBudgetCeiling(t *testing.T) {
	assert.Equal(t, 500_000.0, ResolveBudgetCeiling(
		&models.Proposal{TotalBudget: fptr(500_000)},
		&models.CallForProposal{TotalBudget: fptr(2_000_000)},
	), "proposal ceiling wins")

	assert.Equal(t, 2_000_000.0, ResolveBudgetCeiling(
		&models.Proposal{},
		&models.CallForProposal{TotalBudget: fptr(2_000_000)},
	), "call ceiling is the fallback")

	assert.Equal(t, DefaultBudgetCeiling, ResolveBudgetCeiling(&models.Proposal{}, &models.CallForProposal{}))
	assert.Equal(t, DefaultBudgetCeiling, ResolveBudgetCeiling(nil, nil))
}

func TestValidateBudgetCeiling(t *testing.T) {
	items := []models.BudgetItem{
		{Category: models.BudgetCategoryPersonnel, Amount: 800_000},
		{Category: models.BudgetCategoryEquipment, Amount: 300_000},
		{Category: models.BudgetCategoryTravel, Amount: 115_000},
	}

	// 1,215,000 against a 1,200,000 ceiling overshoots by exactly 15,000.
	result := ValidateBudget(items, 1_200_000, nil)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1_215_000.0, result.TotalRequested)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "budget exceeds limit by 15000.00", result.Errors[0])
	assert.Empty(t, result.Warnings)
}

func TestValidateBudgetWarningBand(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		ceiling  float64
		valid    bool
		warnings int
	}{
		{"well under ceiling", 500_000, 1_000_000, true, 0},
		{"just inside warning band", 960_000, 1_000_000, true, 1},
		{"exactly at warning threshold", 950_000, 1_000_000, true, 0},
		{"exactly at ceiling is clean", 1_000_000, 1_000_000, true, 0},
		{"over ceiling errors without warning", 1_000_001, 1_000_000, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []models.BudgetItem{{Category: models.BudgetCategoryOther, Amount: tt.total}}
			result := ValidateBudget(items, tt.ceiling, nil)
			assert.Equal(t, tt.valid, result.IsValid)
			assert.Len(t, result.Warnings, tt.warnings)
		})
	}
}

func TestValidateBudgetCategoryCapsAreAdvisory(t *testing.T) {
	items := []models.BudgetItem{
		{Category: models.BudgetCategoryEquipment, Amount: 400_000},
		{Category: models.BudgetCategoryPersonnel, Amount: 100_000},
	}
	caps := []models.CategoryCap{
		{Category: models.BudgetCategoryEquipment, MaxPercentage: 30},
		{Category: models.BudgetCategoryPersonnel, MaxPercentage: 50},
	}

	result := ValidateBudget(items, 1_000_000, caps)
	assert.True(t, result.IsValid, "cap overruns never block")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], models.BudgetCategoryEquipment)
}

func TestValidateBudgetIgnoresDeletedItems(t *testing.T) {
	deleted := time.Now()
	items := []models.BudgetItem{
		{Category: models.BudgetCategoryPersonnel, Amount: 900_000},
		{Category: models.BudgetCategoryEquipment, Amount: 900_000, DeletedAt: &deleted},
	}

	result := ValidateBudget(items, 1_000_000, nil)
	assert.True(t, result.IsValid)
	assert.Equal(t, 900_000.0, result.TotalRequested)
}

func TestValidateBudgetEmpty(t *testing.T) {
	result := ValidateBudget(nil, 1_000_000, nil)
	assert.True(t, result.IsValid)
	assert.Zero(t, result.TotalRequested)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}
