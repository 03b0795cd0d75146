package services

import (
	"time"

	"grant-review-api/models"
)

// ScoreView is the disclosed projection of a per-criteria score.
type ScoreView struct {
	CriteriaID int     `json:"criteria_id"`
	Score      float64 `json:"score"`
	Comments   *string `json:"comments,omitempty"`
}

// ReviewView is the disclosed projection of a review. Which fields are set
// depends entirely on the caller's relationship to the proposal and the
// call's review visibility policy.
type ReviewView struct {
	AssignmentID        int         `json:"assignment_id"`
	ReviewerID          *int        `json:"reviewer_id,omitempty"`
	Status              string      `json:"status"`
	OverallScore        *float64    `json:"overall_score,omitempty"`
	Summary             *string     `json:"summary,omitempty"`
	Strengths           *string     `json:"strengths,omitempty"`
	Weaknesses          *string     `json:"weaknesses,omitempty"`
	CommentsToAuthors   *string     `json:"comments_to_authors,omitempty"`
	CommentsToCommittee *string     `json:"comments_to_committee,omitempty"`
	Recommendation      *string     `json:"recommendation,omitempty"`
	Scores              []ScoreView `json:"scores,omitempty"`
	SubmittedAt         *time.Time  `json:"submitted_at,omitempty"`
}

// ProposalView is the disclosed projection of a proposal together with the
// deadline state it was computed under. It is rebuilt on every read; caching a
// view would freeze time-dependent predicates.
type ProposalView struct {
	ProposalID              int                 `json:"proposal_id"`
	ProposalNumber          string              `json:"proposal_number,omitempty"`
	CallID                  int                 `json:"call_id"`
	Title                   string              `json:"title"`
	Abstract                *string             `json:"abstract,omitempty"`
	Status                  string              `json:"status"`
	PrincipalInvestigatorID *int                `json:"principal_investigator_id,omitempty"`
	InstitutionID           *int                `json:"institution_id,omitempty"`
	TotalBudget             *float64            `json:"total_budget,omitempty"`
	Currency                string              `json:"currency,omitempty"`
	DurationYears           int                 `json:"duration_years,omitempty"`
	Version                 int                 `json:"version,omitempty"`
	SubmittedAt             *time.Time          `json:"submitted_at,omitempty"`
	BudgetItems             []models.BudgetItem `json:"budget_items,omitempty"`
	DeadlineState           CallDeadlineState   `json:"deadline_state"`
	AllReviewsComplete      *bool               `json:"all_reviews_complete,omitempty"`
	Reviews                 []ReviewView        `json:"reviews,omitempty"`
}

// ComputeVisibleView filters a proposal and its reviews down to what the
// caller may see at this instant. It is pure: same snapshot and now, same
// view. A record-level denial comes back as a NotFound engine error so the
// transport cannot leak existence.
func ComputeVisibleView(caller Caller, proposal *models.Proposal, call *models.CallForProposal, assignments []models.ReviewAssignment, now time.Time) (*ProposalView, error) {
	state := DeriveCallDeadlineState(call, now)

	switch {
	case caller.IsAdmin() || caller.IsStaff():
		return staffView(proposal, call, assignments, state), nil
	case CanViewProposal(caller, proposal):
		return ownerView(proposal, call, assignments, state), nil
	case reviewerAssignment(caller, assignments) != nil:
		return reviewerView(caller, proposal, call, assignments, state), nil
	default:
		return publicView(proposal, call, assignments, state)
	}
}

func reviewerAssignment(caller Caller, assignments []models.ReviewAssignment) *models.ReviewAssignment {
	for i := range assignments {
		a := &assignments[i]
		if a.ReviewerID == caller.UserID && a.DeletedAt == nil &&
			a.Status != models.AssignmentStatusCancelled {
			return a
		}
	}
	return nil
}

func fullProposalView(proposal *models.Proposal, state CallDeadlineState) *ProposalView {
	piID := proposal.PrincipalInvestigatorID
	instID := proposal.InstitutionID
	return &ProposalView{
		ProposalID:              proposal.ProposalID,
		ProposalNumber:          proposal.ProposalNumber,
		CallID:                  proposal.CallID,
		Title:                   proposal.Title,
		Abstract:                proposal.Abstract,
		Status:                  proposal.Status,
		PrincipalInvestigatorID: &piID,
		InstitutionID:           &instID,
		TotalBudget:             proposal.TotalBudget,
		Currency:                proposal.Currency,
		DurationYears:           proposal.DurationYears,
		Version:                 proposal.Version,
		SubmittedAt:             proposal.SubmittedAt,
		BudgetItems:             proposal.BudgetItems,
		DeadlineState:           state,
	}
}

func staffView(proposal *models.Proposal, call *models.CallForProposal, assignments []models.ReviewAssignment, state CallDeadlineState) *ProposalView {
	view := fullProposalView(proposal, state)
	complete := AllReviewsComplete(assignments)
	view.AllReviewsComplete = &complete
	for i := range assignments {
		a := &assignments[i]
		if a.DeletedAt != nil {
			continue
		}
		view.Reviews = append(view.Reviews, fullReviewView(a, true))
	}
	return view
}

func ownerView(proposal *models.Proposal, call *models.CallForProposal, assignments []models.ReviewAssignment, state CallDeadlineState) *ProposalView {
	view := fullProposalView(proposal, state)
	if call.ReviewVisibility == models.ReviewVisibilityPrivate {
		return view
	}
	// Authors see reviewer identity only under open policies; blind and below
	// keep reviewers anonymous.
	showReviewer := models.VisibilityRank(call.ReviewVisibility) >= models.VisibilityRank(models.ReviewVisibilityOpenPreReview)
	for i := range assignments {
		a := &assignments[i]
		if a.DeletedAt != nil || a.Status != models.AssignmentStatusCompleted || a.Review == nil {
			continue
		}
		rv := ReviewView{
			AssignmentID:      a.AssignmentID,
			Status:            a.Status,
			OverallScore:      a.Review.OverallScore,
			CommentsToAuthors: a.Review.CommentsToAuthors,
			Recommendation:    a.Review.Recommendation,
			Scores:            scoreViews(a.Review.Scores),
			SubmittedAt:       a.Review.SubmittedAt,
		}
		if showReviewer {
			reviewerID := a.ReviewerID
			rv.ReviewerID = &reviewerID
		}
		view.Reviews = append(view.Reviews, rv)
	}
	return view
}

func reviewerView(caller Caller, proposal *models.Proposal, call *models.CallForProposal, assignments []models.ReviewAssignment, state CallDeadlineState) *ProposalView {
	view := fullProposalView(proposal, state)
	peersVisible := models.VisibilityRank(call.ReviewVisibility) >= models.VisibilityRank(models.ReviewVisibilityOpenPreReview)
	for i := range assignments {
		a := &assignments[i]
		if a.DeletedAt != nil {
			continue
		}
		if a.ReviewerID == caller.UserID {
			view.Reviews = append(view.Reviews, fullReviewView(a, true))
			continue
		}
		if peersVisible && a.Status == models.AssignmentStatusCompleted {
			view.Reviews = append(view.Reviews, fullReviewView(a, true))
		}
	}
	return view
}

func publicView(proposal *models.Proposal, call *models.CallForProposal, assignments []models.ReviewAssignment, state CallDeadlineState) (*ProposalView, error) {
	decided := proposal.Status == models.ProposalStatusAccepted ||
		proposal.Status == models.ProposalStatusRejected

	if state.ResultsPublic && decided {
		view := fullProposalView(proposal, state)
		for i := range assignments {
			a := &assignments[i]
			if a.DeletedAt != nil || a.Status != models.AssignmentStatusCompleted || a.Review == nil {
				continue
			}
			// Confidential committee comments and reviewer identity are never
			// published.
			rv := fullReviewView(a, false)
			rv.ReviewerID = nil
			view.Reviews = append(view.Reviews, rv)
		}
		return view, nil
	}

	inFlight := proposal.Status == models.ProposalStatusSubmitted ||
		proposal.Status == models.ProposalStatusUnderReview
	if call.IsPublic && inFlight && !state.SubmissionDeadlineOver {
		// Existence only: the public learns a proposal is under review, nothing
		// more.
		return &ProposalView{
			ProposalID:    proposal.ProposalID,
			CallID:        proposal.CallID,
			Title:         proposal.Title,
			Status:        proposal.Status,
			DeadlineState: state,
		}, nil
	}

	return nil, newEngineError(ErrKindNotFound, MsgProposalNotFound)
}

func fullReviewView(a *models.ReviewAssignment, includeConfidential bool) ReviewView {
	reviewerID := a.ReviewerID
	rv := ReviewView{
		AssignmentID: a.AssignmentID,
		ReviewerID:   &reviewerID,
		Status:       a.Status,
	}
	if a.Review == nil {
		return rv
	}
	rv.OverallScore = a.Review.OverallScore
	summary := a.Review.Summary
	strengths := a.Review.Strengths
	weaknesses := a.Review.Weaknesses
	rv.Summary = &summary
	rv.Strengths = &strengths
	rv.Weaknesses = &weaknesses
	rv.CommentsToAuthors = a.Review.CommentsToAuthors
	rv.Recommendation = a.Review.Recommendation
	rv.Scores = scoreViews(a.Review.Scores)
	rv.SubmittedAt = a.Review.SubmittedAt
	if includeConfidential {
		rv.CommentsToCommittee = a.Review.CommentsToCommittee
	}
	return rv
}

func scoreViews(scores []models.ReviewScore) []ScoreView {
	if len(scores) == 0 {
		return nil
	}
	views := make([]ScoreView, 0, len(scores))
	for _, s := range scores {
		views = append(views, ScoreView{
			CriteriaID: s.CriteriaID,
			Score:      s.Score,
			Comments:   s.Comments,
		})
	}
	return views
}
