package services

import (
	"strings"
	"time"

	"grant-review-api/models"
)

// ProposalTransitionRequest carries everything a proposal status change needs
// beyond the entities themselves. Budget and MissingDocuments are supplied by
// the caller from a snapshot read immediately before commit.
type ProposalTransitionRequest struct {
	Target string
	Caller Caller
	Now    time.Time

	// Force lets an admin push a submission through after the deadline.
	Force bool
	// AllowWarnings is the call-level policy permitting submission while
	// budget warnings are present. Errors always block.
	AllowWarnings bool

	Budget           *BudgetValidationResult
	MissingDocuments []string
}

var proposalTransitions = map[string][]string{
	models.ProposalStatusDraft:       {models.ProposalStatusSubmitted, models.ProposalStatusWithdrawn},
	models.ProposalStatusSubmitted:   {models.ProposalStatusUnderReview, models.ProposalStatusWithdrawn},
	models.ProposalStatusUnderReview: {models.ProposalStatusAccepted, models.ProposalStatusRejected, models.ProposalStatusWithdrawn},
	models.ProposalStatusAccepted:    {},
	models.ProposalStatusRejected:    {},
	models.ProposalStatusWithdrawn:   {},
}

// CanTransitionProposal reports whether the status change is structurally
// legal, before any guard evaluation.
func CanTransitionProposal(current, target string) bool {
	for _, allowed := range proposalTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanEditProposal reports whether the caller may modify proposal content: the
// principal investigator, an accepted collaborator with edit rights, or an
// admin.
func CanEditProposal(caller Caller, proposal *models.Proposal) bool {
	if caller.IsAdmin() {
		return true
	}
	if caller.UserID == proposal.PrincipalInvestigatorID {
		return true
	}
	for _, collab := range proposal.Collaborators {
		if collab.UserID == caller.UserID && collab.CanEdit && collab.IsActive() {
			return true
		}
	}
	return false
}

// CanViewProposal reports whether the caller has an ownership relationship to
// the proposal: PI or an accepted collaborator with view rights.
func CanViewProposal(caller Caller, proposal *models.Proposal) bool {
	if caller.UserID == proposal.PrincipalInvestigatorID {
		return true
	}
	for _, collab := range proposal.Collaborators {
		if collab.UserID == caller.UserID && collab.CanView && collab.IsActive() {
			return true
		}
	}
	return false
}

// TransitionProposal evaluates the guards for a proposal status change against
// a consistent snapshot and returns the updated copy, never mutating its
// input. Guard failures come back as typed EngineErrors with stable messages.
func TransitionProposal(proposal *models.Proposal, call *models.CallForProposal, req ProposalTransitionRequest) (*models.Proposal, error) {
	if !CanTransitionProposal(proposal.Status, req.Target) {
		return nil, newEngineError(ErrKindInvalidTransition,
			"proposal cannot move from %s to %s", proposal.Status, req.Target)
	}

	switch req.Target {
	case models.ProposalStatusSubmitted:
		if err := guardSubmission(proposal, call, req); err != nil {
			return nil, err
		}
	case models.ProposalStatusUnderReview:
		if !req.Caller.HasAnyRole(RoleProgramOfficer) {
			return nil, newEngineError(ErrKindUnauthorized,
				"only program officers may start the review phase")
		}
	case models.ProposalStatusAccepted, models.ProposalStatusRejected:
		// Decisions are independent of the review deadline; they may be
		// recorded early or late.
		if !req.Caller.HasAnyRole(RoleProgramOfficer) {
			return nil, newEngineError(ErrKindUnauthorized,
				"only program officers may record a decision")
		}
	case models.ProposalStatusWithdrawn:
		if req.Caller.UserID != proposal.PrincipalInvestigatorID && !req.Caller.IsAdmin() {
			return nil, newEngineError(ErrKindUnauthorized,
				"only the principal investigator may withdraw a proposal")
		}
	}

	updated := *proposal
	updated.Status = req.Target
	updated.UpdatedAt = req.Now
	if req.Target == models.ProposalStatusSubmitted {
		submittedAt := req.Now
		updated.SubmittedAt = &submittedAt
	}
	return &updated, nil
}

func guardSubmission(proposal *models.Proposal, call *models.CallForProposal, req ProposalTransitionRequest) error {
	if !CanEditProposal(req.Caller, proposal) {
		return newEngineError(ErrKindUnauthorized,
			"only the principal investigator or an accepted collaborator with edit rights may submit")
	}

	state := DeriveCallDeadlineState(call, req.Now)
	if state.SubmissionDeadlineOver && !(req.Force && req.Caller.IsAdmin()) {
		return newEngineError(ErrKindDeadlineExceeded, MsgSubmissionDeadlinePassed)
	}

	if len(req.MissingDocuments) > 0 {
		return newEngineError(ErrKindValidationFailed,
			"required documents missing: %s", strings.Join(req.MissingDocuments, ", "))
	}

	if req.Budget != nil {
		if !req.Budget.IsValid {
			return newEngineError(ErrKindValidationFailed, "%s", req.Budget.Errors[0])
		}
		if len(req.Budget.Warnings) > 0 && !req.AllowWarnings {
			return newEngineError(ErrKindValidationFailed,
				"budget warnings must be resolved before submission: %s", req.Budget.Warnings[0])
		}
	}
	return nil
}

// NewProposalVersion creates the draft successor of a rejected proposal. The
// rejected record is never mutated back to draft; resubmission is append-only.
func NewProposalVersion(previous *models.Proposal, call *models.CallForProposal, caller Caller, now time.Time) (*models.Proposal, error) {
	if previous.Status != models.ProposalStatusRejected {
		return nil, newEngineError(ErrKindInvalidTransition,
			"only rejected proposals can be resubmitted")
	}
	if !call.AllowResubmissions {
		return nil, newEngineError(ErrKindValidationFailed,
			"call does not allow resubmissions")
	}
	if caller.UserID != previous.PrincipalInvestigatorID && !caller.IsAdmin() {
		return nil, newEngineError(ErrKindUnauthorized,
			"only the principal investigator may resubmit a proposal")
	}

	previousID := previous.ProposalID
	next := models.Proposal{
		CallID:                  previous.CallID,
		InstitutionID:           previous.InstitutionID,
		PrincipalInvestigatorID: previous.PrincipalInvestigatorID,
		Title:                   previous.Title,
		Abstract:                previous.Abstract,
		Status:                  models.ProposalStatusDraft,
		TotalBudget:             previous.TotalBudget,
		Currency:                previous.Currency,
		DurationYears:           previous.DurationYears,
		Version:                 previous.Version + 1,
		PreviousProposalID:      &previousID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	return &next, nil
}

// MissingRequiredDocuments returns the names of required call documents with
// no attachment on the proposal. Presence only; content is an external
// concern.
func MissingRequiredDocuments(proposal *models.Proposal, call *models.CallForProposal) []string {
	attached := make(map[int]bool)
	for _, doc := range proposal.Documents {
		if doc.DeletedAt != nil || doc.RequiredDocumentID == nil {
			continue
		}
		attached[*doc.RequiredDocumentID] = true
	}

	var missing []string
	for _, required := range call.RequiredDocuments {
		if !required.IsRequired || required.DeletedAt != nil {
			continue
		}
		if !attached[required.RequiredDocumentID] {
			missing = append(missing, required.DocumentName)
		}
	}
	return missing
}
