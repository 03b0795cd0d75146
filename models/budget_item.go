package models

import "time"

// Budget categories (budget_items.category column).
const (
	BudgetCategoryPersonnel     = "personnel"
	BudgetCategoryEquipment     = "equipment"
	BudgetCategorySupplies      = "supplies"
	BudgetCategoryTravel        = "travel"
	BudgetCategorySubcontracts  = "subcontracts"
	BudgetCategoryIndirectCosts = "indirect_costs"
	BudgetCategoryOther         = "other"
)

// ValidBudgetCategories returns the closed set of budget categories.
func ValidBudgetCategories() []string {
	return []string{
		BudgetCategoryPersonnel,
		BudgetCategoryEquipment,
		BudgetCategorySupplies,
		BudgetCategoryTravel,
		BudgetCategorySubcontracts,
		BudgetCategoryIndirectCosts,
		BudgetCategoryOther,
	}
}

// IsBudgetCategoryValid checks if the given category is in the closed set.
func IsBudgetCategoryValid(category string) bool {
	for _, valid := range ValidBudgetCategories() {
		if category == valid {
			return true
		}
	}
	return false
}

// BudgetItem represents the budget_items table. Year is 1-based against the
// proposal's duration_years.
type BudgetItem struct {
	BudgetItemID int        `gorm:"primaryKey;column:budget_item_id" json:"budget_item_id"`
	ProposalID   int        `gorm:"column:proposal_id" json:"proposal_id"`
	Category     string     `gorm:"column:category" json:"category"`
	Year         int        `gorm:"column:year" json:"year"`
	Description  *string    `gorm:"column:description" json:"description,omitempty"`
	Amount       float64    `gorm:"column:amount" json:"amount"`
	Currency     string     `gorm:"column:currency" json:"currency"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// TableName overrides the table name
func (BudgetItem) TableName() string {
	return "budget_items"
}
