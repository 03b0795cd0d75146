package services

import (
	"time"

	"grant-review-api/models"
)

// CallDeadlineState holds the derived, purely time-based predicates for a call.
// It is recomputed from the caller-supplied now on every read and never
// persisted; call status does not influence it.
type CallDeadlineState struct {
	SubmissionDeadlineOver bool `json:"submission_deadline_over"`
	ReviewDeadlineOver     bool `json:"review_deadline_over"`
	ResultsPublic          bool `json:"results_public"`
}

// DeriveCallDeadlineState computes the deadline predicates for a call at the
// given instant. Unset deadlines never count as over. ResultsPublic mirrors
// the administrative flag; publishing results is a deliberate action, not a
// consequence of the review deadline passing.
func DeriveCallDeadlineState(call *models.CallForProposal, now time.Time) CallDeadlineState {
	state := CallDeadlineState{
		ResultsPublic: call.ResultsPublic,
	}
	if call.FullProposalDeadline != nil && now.After(*call.FullProposalDeadline) {
		state.SubmissionDeadlineOver = true
	}
	if call.ReviewDeadline != nil && now.After(*call.ReviewDeadline) {
		state.ReviewDeadlineOver = true
	}
	return state
}

// ValidateCallDates checks the internal ordering of a call's configured dates.
// Violations are write-time input errors, never read-time failures.
func ValidateCallDates(call *models.CallForProposal) error {
	if call.OpenDate != nil && call.CloseDate != nil && call.CloseDate.Before(*call.OpenDate) {
		return newEngineError(ErrKindInvalidDateOrder, "close date must not be before open date")
	}
	if call.IntentDeadline != nil && call.FullProposalDeadline != nil && call.FullProposalDeadline.Before(*call.IntentDeadline) {
		return newEngineError(ErrKindInvalidDateOrder, "full proposal deadline must not be before intent deadline")
	}
	if call.FullProposalDeadline != nil && call.ReviewDeadline != nil && call.ReviewDeadline.Before(*call.FullProposalDeadline) {
		return newEngineError(ErrKindInvalidDateOrder, "review deadline must not be before full proposal deadline")
	}
	if call.OpenDate != nil && call.FullProposalDeadline != nil && call.FullProposalDeadline.Before(*call.OpenDate) {
		return newEngineError(ErrKindInvalidDateOrder, "full proposal deadline must not be before open date")
	}
	return nil
}

var callTransitions = map[string][]string{
	models.CallStatusDraft:    {models.CallStatusUpcoming, models.CallStatusOpen, models.CallStatusCancelled},
	models.CallStatusUpcoming: {models.CallStatusOpen, models.CallStatusCancelled},
	models.CallStatusOpen:     {models.CallStatusClosed, models.CallStatusCancelled},
	models.CallStatusClosed:   {models.CallStatusArchived, models.CallStatusCancelled},
	models.CallStatusArchived: {},
	models.CallStatusCancelled: {},
}

// CanTransitionCall reports whether the call status change is legal.
func CanTransitionCall(current, target string) bool {
	for _, allowed := range callTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionCall applies an administrative status change to a call. Only
// program officers and admins may transition calls; the change never affects
// the derived deadline predicates.
func TransitionCall(call *models.CallForProposal, target string, caller Caller, now time.Time) (*models.CallForProposal, error) {
	if !caller.HasAnyRole(RoleProgramOfficer) {
		return nil, newEngineError(ErrKindUnauthorized, "only program officers may change call status")
	}
	if !CanTransitionCall(call.Status, target) {
		return nil, newEngineError(ErrKindInvalidTransition, "call cannot move from %s to %s", call.Status, target)
	}
	updated := *call
	updated.Status = target
	updated.UpdatedAt = now
	return &updated, nil
}
