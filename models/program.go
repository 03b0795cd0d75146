package models

import "time"

// FundingProgram represents the funding_programs table. A program belongs to an
// agency and owns the financial constraints every call under it inherits.
type FundingProgram struct {
	ProgramID        int        `gorm:"primaryKey;column:program_id" json:"program_id"`
	AgencyID         int        `gorm:"column:agency_id" json:"agency_id"`
	ProgramName      string     `gorm:"column:program_name" json:"program_name"`
	Description      *string    `gorm:"column:description" json:"description,omitempty"`
	MinAmount        *float64   `gorm:"column:min_amount" json:"min_amount,omitempty"`
	MaxAmount        *float64   `gorm:"column:max_amount" json:"max_amount,omitempty"`
	MaxDurationYears *int       `gorm:"column:max_duration_years" json:"max_duration_years,omitempty"`
	Currency         string     `gorm:"column:currency" json:"currency"`
	ProgramOfficerID int        `gorm:"column:program_officer_id" json:"program_officer_id"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt        *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Agency         *Agency          `gorm:"foreignKey:AgencyID" json:"agency,omitempty"`
	ProgramOfficer *User            `gorm:"foreignKey:ProgramOfficerID" json:"program_officer,omitempty"`
	Criteria       []ReviewCriteria `gorm:"foreignKey:ProgramID" json:"criteria,omitempty"`
	CategoryCaps   []CategoryCap    `gorm:"foreignKey:ProgramID" json:"category_caps,omitempty"`
}

type Agency struct {
	AgencyID   int        `gorm:"primaryKey;column:agency_id" json:"agency_id"`
	AgencyName string     `gorm:"column:agency_name" json:"agency_name"`
	Country    *string    `gorm:"column:country" json:"country,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt  *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// ReviewCriteria represents the review_criteria table. Weights across a program
// are expected to sum to 1.0 but the database does not enforce it; the scoring
// aggregator normalizes by the actual sum.
type ReviewCriteria struct {
	CriteriaID   int        `gorm:"primaryKey;column:criteria_id" json:"criteria_id"`
	ProgramID    int        `gorm:"column:program_id" json:"program_id"`
	CriteriaName string     `gorm:"column:criteria_name" json:"criteria_name"`
	Description  *string    `gorm:"column:description" json:"description,omitempty"`
	Weight       float64    `gorm:"column:weight" json:"weight"`
	MaxScore     float64    `gorm:"column:max_score" json:"max_score"`
	DisplayOrder int        `gorm:"column:display_order" json:"display_order"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// CategoryCap represents the program_category_caps table. Caps are advisory:
// exceeding one yields a budget warning, never an error.
type CategoryCap struct {
	CapID         int       `gorm:"primaryKey;column:cap_id" json:"cap_id"`
	ProgramID     int       `gorm:"column:program_id" json:"program_id"`
	Category      string    `gorm:"column:category" json:"category"`
	MaxPercentage float64   `gorm:"column:max_percentage" json:"max_percentage"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides
func (FundingProgram) TableName() string {
	return "funding_programs"
}

func (Agency) TableName() string {
	return "agencies"
}

func (ReviewCriteria) TableName() string {
	return "review_criteria"
}

func (CategoryCap) TableName() string {
	return "program_category_caps"
}
