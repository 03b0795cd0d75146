package services

import (
	"fmt"

	"grant-review-api/models"
)

// DefaultBudgetCeiling applies when neither the proposal nor its call carries
// an explicit budget ceiling.
const DefaultBudgetCeiling = 1_000_000.0

// warningThresholdRatio marks budgets within 5% of the ceiling.
const warningThresholdRatio = 0.95

// BudgetValidationResult is the outcome of a budget health check. Errors block
// submission; warnings are advisory and submission with warnings is a
// call-level policy decision, not an engine rule.
type BudgetValidationResult struct {
	IsValid        bool     `json:"is_valid"`
	TotalRequested float64  `json:"total_requested"`
	Ceiling        float64  `json:"ceiling"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
}

// ResolveBudgetCeiling resolves the ceiling a proposal is validated against:
// the proposal's own budget, falling back to the call's total budget, falling
// back to the system default.
func ResolveBudgetCeiling(proposal *models.Proposal, call *models.CallForProposal) float64 {
	if proposal != nil && proposal.TotalBudget != nil && *proposal.TotalBudget > 0 {
		return *proposal.TotalBudget
	}
	if call != nil && call.TotalBudget != nil && *call.TotalBudget > 0 {
		return *call.TotalBudget
	}
	return DefaultBudgetCeiling
}

// ValidateBudget checks a proposal's line items against the resolved ceiling
// and any program-configured per-category caps. It is pure and never blocks a
// draft save; only submission requires a valid result.
func ValidateBudget(items []models.BudgetItem, ceiling float64, caps []models.CategoryCap) BudgetValidationResult {
	result := BudgetValidationResult{
		Ceiling:  ceiling,
		Errors:   []string{},
		Warnings: []string{},
	}

	var total float64
	subtotals := make(map[string]float64)
	for _, item := range items {
		if item.DeletedAt != nil {
			continue
		}
		total += item.Amount
		subtotals[item.Category] += item.Amount
	}
	result.TotalRequested = total

	if total > ceiling {
		result.Errors = append(result.Errors,
			fmt.Sprintf("budget exceeds limit by %.2f", total-ceiling))
	} else if total > warningThresholdRatio*ceiling && total < ceiling {
		// Exactly at the ceiling is a clean boundary, not a warning.
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("requested budget %.2f is within 5%% of the ceiling %.2f", total, ceiling))
	}

	// Category caps are advisory: exceeding one warns, never errors.
	for _, cap := range caps {
		if cap.MaxPercentage <= 0 {
			continue
		}
		subtotal, ok := subtotals[cap.Category]
		if !ok {
			continue
		}
		limit := cap.MaxPercentage / 100 * ceiling
		if subtotal > limit {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("category %s subtotal %.2f exceeds advisory cap of %.1f%% (%.2f)",
					cap.Category, subtotal, cap.MaxPercentage, limit))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
