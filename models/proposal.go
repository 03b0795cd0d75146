package models

import "time"

// Proposal status values (proposals.status column).
const (
	ProposalStatusDraft       = "draft"
	ProposalStatusSubmitted   = "submitted"
	ProposalStatusUnderReview = "under_review"
	ProposalStatusAccepted    = "accepted"
	ProposalStatusRejected    = "rejected"
	ProposalStatusWithdrawn   = "withdrawn"
)

// ValidProposalStatuses returns the closed set of proposal status values.
func ValidProposalStatuses() []string {
	return []string{
		ProposalStatusDraft,
		ProposalStatusSubmitted,
		ProposalStatusUnderReview,
		ProposalStatusAccepted,
		ProposalStatusRejected,
		ProposalStatusWithdrawn,
	}
}

// Proposal represents the proposals table. Version counts resubmissions of the
// same work (rejected proposals are never mutated back to draft; a new row is
// created instead). RowVersion is the optimistic lock column checked by every
// state-mutating update.
type Proposal struct {
	ProposalID             int        `gorm:"primaryKey;column:proposal_id" json:"proposal_id"`
	ProposalNumber         string     `gorm:"column:proposal_number" json:"proposal_number"`
	CallID                 int        `gorm:"column:call_id" json:"call_id"`
	InstitutionID          int        `gorm:"column:institution_id" json:"institution_id"`
	PrincipalInvestigatorID int       `gorm:"column:principal_investigator_id" json:"principal_investigator_id"`
	Title                  string     `gorm:"column:title" json:"title"`
	Abstract               *string    `gorm:"column:abstract" json:"abstract,omitempty"`
	Status                 string     `gorm:"column:status" json:"status"`
	TotalBudget            *float64   `gorm:"column:total_budget" json:"total_budget,omitempty"`
	Currency               string     `gorm:"column:currency" json:"currency"`
	DurationYears          int        `gorm:"column:duration_years" json:"duration_years"`
	Version                int        `gorm:"column:version" json:"version"`
	PreviousProposalID     *int       `gorm:"column:previous_proposal_id" json:"previous_proposal_id,omitempty"`
	SubmittedAt            *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	RowVersion             int        `gorm:"column:row_version" json:"row_version"`
	CreatedAt              time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt              *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Call                  *CallForProposal       `gorm:"foreignKey:CallID" json:"call,omitempty"`
	Institution           *Institution           `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	PrincipalInvestigator *User                  `gorm:"foreignKey:PrincipalInvestigatorID" json:"principal_investigator,omitempty"`
	Collaborators         []ProposalCollaborator `gorm:"foreignKey:ProposalID" json:"collaborators,omitempty"`
	BudgetItems           []BudgetItem           `gorm:"foreignKey:ProposalID" json:"budget_items,omitempty"`
	Documents             []ProposalDocument     `gorm:"foreignKey:ProposalID" json:"documents,omitempty"`
}

// ProposalCollaborator represents the proposal_collaborators table. A row
// without accepted_at is a pending invitation and grants no access.
type ProposalCollaborator struct {
	CollaboratorID int        `gorm:"primaryKey;column:collaborator_id" json:"collaborator_id"`
	ProposalID     int        `gorm:"column:proposal_id" json:"proposal_id"`
	UserID         int        `gorm:"column:user_id" json:"user_id"`
	Role           string     `gorm:"column:role" json:"role"`
	CanEdit        bool       `gorm:"column:can_edit" json:"can_edit"`
	CanView        bool       `gorm:"column:can_view" json:"can_view"`
	InvitedAt      time.Time  `gorm:"column:invited_at" json:"invited_at"`
	AcceptedAt     *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsActive reports whether the collaborator has accepted the invitation.
func (c *ProposalCollaborator) IsActive() bool {
	return c.AcceptedAt != nil
}

// ProposalDocument represents the proposal_documents table, linking an uploaded
// file to the call requirement it satisfies.
type ProposalDocument struct {
	ProposalDocumentID int        `gorm:"primaryKey;column:proposal_document_id" json:"proposal_document_id"`
	ProposalID         int        `gorm:"column:proposal_id" json:"proposal_id"`
	RequiredDocumentID *int       `gorm:"column:required_document_id" json:"required_document_id,omitempty"`
	OriginalName       string     `gorm:"column:original_name" json:"original_name"`
	StoredPath         string     `gorm:"column:stored_path" json:"stored_path"`
	MimeType           string     `gorm:"column:mime_type" json:"mime_type"`
	UploadedBy         int        `gorm:"column:uploaded_by" json:"uploaded_by"`
	UploadedAt         time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
	DeletedAt          *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// TableName overrides
func (Proposal) TableName() string {
	return "proposals"
}

func (ProposalCollaborator) TableName() string {
	return "proposal_collaborators"
}

func (ProposalDocument) TableName() string {
	return "proposal_documents"
}
