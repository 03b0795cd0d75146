package models

import "time"

// Call status values (calls.status column).
const (
	CallStatusDraft     = "draft"
	CallStatusUpcoming  = "upcoming"
	CallStatusOpen      = "open"
	CallStatusClosed    = "closed"
	CallStatusArchived  = "archived"
	CallStatusCancelled = "cancelled"
)

// Review visibility policies (calls.review_visibility column). Ordered from most
// restrictive to fully public; see VisibilityRank.
const (
	ReviewVisibilityPrivate          = "private"
	ReviewVisibilityPrivateToAuthors = "private_to_authors"
	ReviewVisibilityBlind            = "blind"
	ReviewVisibilityOpenPreReview    = "open_pre_review"
	ReviewVisibilityOpenPostReview   = "open_post_review"
	ReviewVisibilityFullyPublic      = "fully_public"
)

var reviewVisibilityRank = map[string]int{
	ReviewVisibilityPrivate:          0,
	ReviewVisibilityPrivateToAuthors: 1,
	ReviewVisibilityBlind:            2,
	ReviewVisibilityOpenPreReview:    3,
	ReviewVisibilityOpenPostReview:   4,
	ReviewVisibilityFullyPublic:      5,
}

// VisibilityRank returns the ordering position of a review visibility policy so
// "open_pre_review or later" style comparisons stay in one place. Unknown
// values rank as most restrictive.
func VisibilityRank(visibility string) int {
	if rank, ok := reviewVisibilityRank[visibility]; ok {
		return rank
	}
	return 0
}

// ValidCallStatuses returns the closed set of call status values.
func ValidCallStatuses() []string {
	return []string{
		CallStatusDraft,
		CallStatusUpcoming,
		CallStatusOpen,
		CallStatusClosed,
		CallStatusArchived,
		CallStatusCancelled,
	}
}

// CallForProposal represents the calls table. Derived deadline predicates are
// never stored here; they are recomputed from the date columns on every read.
type CallForProposal struct {
	CallID             int        `gorm:"primaryKey;column:call_id" json:"call_id"`
	ProgramID          int        `gorm:"column:program_id" json:"program_id"`
	CallNumber         string     `gorm:"column:call_number" json:"call_number"`
	Title              string     `gorm:"column:title" json:"title"`
	Description        *string    `gorm:"column:description" json:"description,omitempty"`
	Status             string     `gorm:"column:status" json:"status"`
	ReviewVisibility   string     `gorm:"column:review_visibility" json:"review_visibility"`
	OpenDate           *time.Time `gorm:"column:open_date" json:"open_date,omitempty"`
	CloseDate          *time.Time `gorm:"column:close_date" json:"close_date,omitempty"`
	IntentDeadline     *time.Time `gorm:"column:intent_deadline" json:"intent_deadline,omitempty"`
	FullProposalDeadline *time.Time `gorm:"column:full_proposal_deadline" json:"full_proposal_deadline,omitempty"`
	ReviewDeadline     *time.Time `gorm:"column:review_deadline" json:"review_deadline,omitempty"`
	AllowResubmissions bool       `gorm:"column:allow_resubmissions" json:"allow_resubmissions"`
	IsPublic           bool       `gorm:"column:is_public" json:"is_public"`
	ResultsPublic      bool       `gorm:"column:results_public" json:"results_public"`
	TotalBudget        *float64   `gorm:"column:total_budget" json:"total_budget,omitempty"`
	Currency           string     `gorm:"column:currency" json:"currency"`
	CreatedBy          int        `gorm:"column:created_by" json:"created_by"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt          *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Program           *FundingProgram    `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
	RequiredDocuments []RequiredDocument `gorm:"foreignKey:CallID" json:"required_documents,omitempty"`
}

// RequiredDocument represents the call_required_documents table. The engine
// checks only that required documents are attached; content is out of scope.
type RequiredDocument struct {
	RequiredDocumentID int        `gorm:"primaryKey;column:required_document_id" json:"required_document_id"`
	CallID             int        `gorm:"column:call_id" json:"call_id"`
	DocumentName       string     `gorm:"column:document_name" json:"document_name"`
	Code               string     `gorm:"column:code" json:"code"`
	IsRequired         bool       `gorm:"column:is_required" json:"is_required"`
	DisplayOrder       int        `gorm:"column:display_order" json:"display_order"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt          *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// TableName overrides
func (CallForProposal) TableName() string {
	return "calls"
}

func (RequiredDocument) TableName() string {
	return "call_required_documents"
}
