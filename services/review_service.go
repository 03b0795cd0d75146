package services

import (
	"strings"
	"time"

	"grant-review-api/models"
)

// Overall score bounds for a submitted review.
const (
	MinOverallScore = 1.0
	MaxOverallScore = 10.0
)

var assignmentTransitions = map[string][]string{
	models.AssignmentStatusPending:    {models.AssignmentStatusInProgress, models.AssignmentStatusCancelled},
	models.AssignmentStatusInProgress: {models.AssignmentStatusCompleted, models.AssignmentStatusCancelled},
	models.AssignmentStatusCompleted:  {},
	models.AssignmentStatusCancelled:  {},
}

// CanTransitionAssignment reports whether the assignment status change is
// structurally legal.
func CanTransitionAssignment(current, target string) bool {
	for _, allowed := range assignmentTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanEditReview reports whether the review content may still change: only by
// the assigned reviewer, only while the assignment is not completed, and only
// at or before the call's review deadline.
func CanEditReview(assignment *models.ReviewAssignment, call *models.CallForProposal, caller Caller, now time.Time) error {
	if assignment.Status == models.AssignmentStatusCompleted {
		return newEngineError(ErrKindReviewLocked, MsgReviewLocked)
	}
	if caller.UserID != assignment.ReviewerID {
		return newEngineError(ErrKindUnauthorized, "only the assigned reviewer may edit this review")
	}
	if call != nil && call.ReviewDeadline != nil && now.After(*call.ReviewDeadline) {
		return newEngineError(ErrKindDeadlineExceeded, MsgReviewDeadlinePassed)
	}
	return nil
}

// TransitionReviewAssignment evaluates the guards for an assignment status
// change and returns updated copies of the assignment and, on completion, the
// review. Inputs are never mutated.
func TransitionReviewAssignment(assignment *models.ReviewAssignment, review *models.Review, call *models.CallForProposal, target string, caller Caller, now time.Time) (*models.ReviewAssignment, *models.Review, error) {
	if assignment.Status == models.AssignmentStatusCompleted {
		return nil, nil, newEngineError(ErrKindReviewLocked, MsgReviewLocked)
	}
	if !CanTransitionAssignment(assignment.Status, target) {
		return nil, nil, newEngineError(ErrKindInvalidTransition,
			"assignment cannot move from %s to %s", assignment.Status, target)
	}

	updated := *assignment
	updated.UpdatedAt = now

	switch target {
	case models.AssignmentStatusInProgress:
		if caller.UserID != assignment.ReviewerID {
			return nil, nil, newEngineError(ErrKindUnauthorized,
				"only the assigned reviewer may accept this assignment")
		}
		acceptedAt := now
		updated.AcceptedAt = &acceptedAt
		updated.Status = target
		return &updated, review, nil

	case models.AssignmentStatusCompleted:
		if caller.UserID != assignment.ReviewerID {
			return nil, nil, newEngineError(ErrKindUnauthorized,
				"only the assigned reviewer may submit this review")
		}
		if err := validateReviewForCompletion(review); err != nil {
			return nil, nil, err
		}
		// The admin override for late completion is not exposed to reviewers.
		if assignment.DueDate != nil && now.After(*assignment.DueDate) && !caller.IsAdmin() {
			return nil, nil, newEngineError(ErrKindDeadlineExceeded, MsgReviewDueDatePassed)
		}
		if call != nil && call.ReviewDeadline != nil && now.After(*call.ReviewDeadline) && !caller.IsAdmin() {
			return nil, nil, newEngineError(ErrKindDeadlineExceeded, MsgReviewDeadlinePassed)
		}

		updated.Status = target
		completedReview := *review
		completedReview.IsComplete = true
		submittedAt := now
		completedReview.SubmittedAt = &submittedAt
		completedReview.UpdatedAt = now
		return &updated, &completedReview, nil

	case models.AssignmentStatusCancelled:
		if !caller.HasAnyRole(RoleAreaChair, RoleProgramOfficer) {
			return nil, nil, newEngineError(ErrKindUnauthorized,
				"only area chairs or program officers may cancel an assignment")
		}
		updated.Status = target
		return &updated, review, nil
	}

	return nil, nil, newEngineError(ErrKindInvalidTransition,
		"unknown assignment status %s", target)
}

func validateReviewForCompletion(review *models.Review) error {
	if review == nil {
		return newEngineError(ErrKindValidationFailed, "review content is required before completion")
	}
	var missing []string
	if strings.TrimSpace(review.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(review.Strengths) == "" {
		missing = append(missing, "strengths")
	}
	if strings.TrimSpace(review.Weaknesses) == "" {
		missing = append(missing, "weaknesses")
	}
	if review.Recommendation == nil || strings.TrimSpace(*review.Recommendation) == "" {
		missing = append(missing, "recommendation")
	}
	if len(missing) > 0 {
		return newEngineError(ErrKindValidationFailed,
			"review is missing required fields: %s", strings.Join(missing, ", "))
	}
	if review.Recommendation != nil && !models.IsRecommendationValid(*review.Recommendation) {
		return newEngineError(ErrKindValidationFailed,
			"invalid recommendation %q", *review.Recommendation)
	}
	if review.OverallScore == nil {
		return newEngineError(ErrKindValidationFailed, "overall score is required")
	}
	if *review.OverallScore < MinOverallScore || *review.OverallScore > MaxOverallScore {
		return newEngineError(ErrKindValidationFailed,
			"overall score must be between %.0f and %.0f", MinOverallScore, MaxOverallScore)
	}
	return nil
}

// AllReviewsComplete reports whether every non-cancelled assignment for a
// proposal is completed. A proposal with no live assignments is not considered
// complete. This is a precondition surfaced to decision makers, not an
// automatic trigger.
func AllReviewsComplete(assignments []models.ReviewAssignment) bool {
	live := 0
	for _, a := range assignments {
		if a.Status == models.AssignmentStatusCancelled || a.DeletedAt != nil {
			continue
		}
		live++
		if a.Status != models.AssignmentStatusCompleted {
			return false
		}
	}
	return live > 0
}

// ShouldStartReview reports whether accepting this assignment should move the
// proposal into the review phase. The proposal transition happens in the same
// transaction as the assignment update.
func ShouldStartReview(proposal *models.Proposal, target string) bool {
	return proposal != nil &&
		proposal.Status == models.ProposalStatusSubmitted &&
		target == models.AssignmentStatusInProgress
}

// HasOpenAssignment reports whether the reviewer already holds a non-cancelled
// assignment for the proposal. Duplicate assignments are rejected at creation.
func HasOpenAssignment(assignments []models.ReviewAssignment, reviewerID int) bool {
	for _, a := range assignments {
		if a.ReviewerID != reviewerID || a.DeletedAt != nil {
			continue
		}
		if a.Status != models.AssignmentStatusCancelled {
			return true
		}
	}
	return false
}
