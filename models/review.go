package models

import "time"

// Assignment status values (review_assignments.status column).
const (
	AssignmentStatusPending    = "pending"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
	AssignmentStatusCancelled  = "cancelled"
)

// Recommendation values (reviews.recommendation column).
const (
	RecommendationStrongAccept        = "strong_accept"
	RecommendationAccept              = "accept"
	RecommendationAcceptWithRevisions = "accept_with_revisions"
	RecommendationMinorRevision       = "minor_revision"
	RecommendationMajorRevision       = "major_revision"
	RecommendationReject              = "reject"
)

// ValidRecommendations returns the closed set of recommendation values.
func ValidRecommendations() []string {
	return []string{
		RecommendationStrongAccept,
		RecommendationAccept,
		RecommendationAcceptWithRevisions,
		RecommendationMinorRevision,
		RecommendationMajorRevision,
		RecommendationReject,
	}
}

// IsRecommendationValid checks if the given recommendation is in the closed set.
func IsRecommendationValid(recommendation string) bool {
	for _, valid := range ValidRecommendations() {
		if recommendation == valid {
			return true
		}
	}
	return false
}

// ReviewAssignment represents the review_assignments table: the administrative
// pairing of a reviewer to a proposal, distinct from the review content itself.
// A reviewer holds at most one non-cancelled assignment per proposal (unique
// index on proposal_id + reviewer_id). RowVersion is the optimistic lock
// column.
type ReviewAssignment struct {
	AssignmentID int        `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	ProposalID   int        `gorm:"column:proposal_id;uniqueIndex:uniq_proposal_reviewer" json:"proposal_id"`
	ReviewerID   int        `gorm:"column:reviewer_id;uniqueIndex:uniq_proposal_reviewer" json:"reviewer_id"`
	Status       string     `gorm:"column:status" json:"status"`
	AssignedBy   int        `gorm:"column:assigned_by" json:"assigned_by"`
	AssignedAt   time.Time  `gorm:"column:assigned_at" json:"assigned_at"`
	DueDate      *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	AcceptedAt   *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	RowVersion   int        `gorm:"column:row_version" json:"row_version"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Proposal *Proposal `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	Reviewer *User     `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Review   *Review   `gorm:"foreignKey:AssignmentID" json:"review,omitempty"`
}

// Review represents the reviews table, one-to-one with a review assignment.
// comments_to_committee is confidential and must never reach authors or the
// public; the visibility gate strips it.
type Review struct {
	ReviewID            int        `gorm:"primaryKey;column:review_id" json:"review_id"`
	AssignmentID        int        `gorm:"column:assignment_id;unique" json:"assignment_id"`
	OverallScore        *float64   `gorm:"column:overall_score" json:"overall_score,omitempty"`
	Summary             string     `gorm:"column:summary" json:"summary"`
	Strengths           string     `gorm:"column:strengths" json:"strengths"`
	Weaknesses          string     `gorm:"column:weaknesses" json:"weaknesses"`
	CommentsToAuthors   *string    `gorm:"column:comments_to_authors" json:"comments_to_authors,omitempty"`
	CommentsToCommittee *string    `gorm:"column:comments_to_committee" json:"comments_to_committee,omitempty"`
	Recommendation      *string    `gorm:"column:recommendation" json:"recommendation,omitempty"`
	IsComplete          bool       `gorm:"column:is_complete" json:"is_complete"`
	SubmittedAt         *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updated_at"`

	// Relations
	Scores []ReviewScore `gorm:"foreignKey:ReviewID" json:"scores,omitempty"`
}

// ReviewScore represents the review_scores table, one row per criteria.
type ReviewScore struct {
	ScoreID    int     `gorm:"primaryKey;column:score_id" json:"score_id"`
	ReviewID   int     `gorm:"column:review_id" json:"review_id"`
	CriteriaID int     `gorm:"column:criteria_id" json:"criteria_id"`
	Score      float64 `gorm:"column:score" json:"score"`
	Comments   *string `gorm:"column:comments" json:"comments,omitempty"`

	// Relations
	Criteria *ReviewCriteria `gorm:"foreignKey:CriteriaID" json:"criteria,omitempty"`
}

// TableName overrides
func (ReviewAssignment) TableName() string {
	return "review_assignments"
}

func (Review) TableName() string {
	return "reviews"
}

func (ReviewScore) TableName() string {
	return "review_scores"
}
