package services

import (
	"testing"
	"time"

	"grant-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	piCaller      = Caller{UserID: 10, Roles: []string{RolePrincipalInvestigator}}
	officerCaller = Caller{UserID: 20, Roles: []string{RoleProgramOfficer}}
	adminCaller   = Caller{UserID: 30, Roles: []string{RoleAdmin}}
)

func openCall(now time.Time) *models.CallForProposal {
	return &models.CallForProposal{
		CallID:               1,
		Status:               models.CallStatusOpen,
		FullProposalDeadline: tptr(now.AddDate(0, 0, 7)),
		ReviewDeadline:       tptr(now.AddDate(0, 1, 0)),
	}
}

func draftProposal() *models.Proposal {
	return &models.Proposal{
		ProposalID:              5,
		CallID:                  1,
		PrincipalInvestigatorID: piCaller.UserID,
		Status:                  models.ProposalStatusDraft,
		Version:                 1,
	}
}

func TestCanTransitionProposal(t *testing.T) {
	tests := []struct {
		current string
		target  string
		want    bool
	}{
		{models.ProposalStatusDraft, models.ProposalStatusSubmitted, true},
		{models.ProposalStatusDraft, models.ProposalStatusWithdrawn, true},
		{models.ProposalStatusDraft, models.ProposalStatusAccepted, false},
		{models.ProposalStatusSubmitted, models.ProposalStatusUnderReview, true},
		{models.ProposalStatusSubmitted, models.ProposalStatusWithdrawn, true},
		{models.ProposalStatusUnderReview, models.ProposalStatusAccepted, true},
		{models.ProposalStatusUnderReview, models.ProposalStatusRejected, true},
		{models.ProposalStatusUnderReview, models.ProposalStatusWithdrawn, true},
		{models.ProposalStatusAccepted, models.ProposalStatusWithdrawn, false},
		{models.ProposalStatusRejected, models.ProposalStatusDraft, false},
		{models.ProposalStatusWithdrawn, models.ProposalStatusSubmitted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionProposal(tt.current, tt.target),
			"%s -> %s", tt.current, tt.target)
	}
}

func TestTransitionProposalSubmit(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	budget := ValidateBudget([]models.BudgetItem{
		{Category: models.BudgetCategoryPersonnel, Amount: 100_000},
	}, 1_000_000, nil)

	proposal := draftProposal()
	updated, err := TransitionProposal(proposal, openCall(now), ProposalTransitionRequest{
		Target: models.ProposalStatusSubmitted,
		Caller: piCaller,
		Now:    now,
		Budget: &budget,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusSubmitted, updated.Status)
	require.NotNil(t, updated.SubmittedAt)
	assert.True(t, updated.SubmittedAt.Equal(now))
	assert.Equal(t, models.ProposalStatusDraft, proposal.Status, "input must not be mutated")
	assert.Nil(t, proposal.SubmittedAt)
}

func TestTransitionProposalSubmitAfterDeadline(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	call := openCall(now)
	call.FullProposalDeadline = tptr(now.AddDate(0, 0, -1))

	_, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
		Target: models.ProposalStatusSubmitted,
		Caller: piCaller,
		Now:    now,
	})
	require.Error(t, err)
	assert.Equal(t, ErrKindDeadlineExceeded, KindOf(err))
	assert.Equal(t, MsgSubmissionDeadlinePassed, err.Error())

	// The force flag only works for admins.
	_, err = TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
		Target: models.ProposalStatusSubmitted,
		Caller: piCaller,
		Now:    now,
		Force:  true,
	})
	assert.Equal(t, ErrKindDeadlineExceeded, KindOf(err))

	updated, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
		Target: models.ProposalStatusSubmitted,
		Caller: adminCaller,
		Now:    now,
		Force:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusSubmitted, updated.Status)
}

func TestTransitionProposalSubmitGuards(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	call := openCall(now)

	t.Run("unrelated caller", func(t *testing.T) {
		stranger := Caller{UserID: 99, Roles: []string{RolePrincipalInvestigator}}
		_, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
			Target: models.ProposalStatusSubmitted,
			Caller: stranger,
			Now:    now,
		})
		assert.Equal(t, ErrKindUnauthorized, KindOf(err))
	})

	t.Run("missing documents", func(t *testing.T) {
		_, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
			Target:           models.ProposalStatusSubmitted,
			Caller:           piCaller,
			Now:              now,
			MissingDocuments: []string{"Project description"},
		})
		require.Error(t, err)
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))
		assert.Contains(t, err.Error(), "Project description")
	})

	t.Run("budget errors always block", func(t *testing.T) {
		budget := ValidateBudget([]models.BudgetItem{
			{Category: models.BudgetCategoryPersonnel, Amount: 1_215_000},
		}, 1_200_000, nil)
		_, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
			Target:        models.ProposalStatusSubmitted,
			Caller:        piCaller,
			Now:           now,
			Budget:        &budget,
			AllowWarnings: true,
		})
		require.Error(t, err)
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))
		assert.Contains(t, err.Error(), "budget exceeds limit by 15000.00")
	})

	t.Run("warnings block unless the call allows them", func(t *testing.T) {
		budget := ValidateBudget([]models.BudgetItem{
			{Category: models.BudgetCategoryPersonnel, Amount: 980_000},
		}, 1_000_000, nil)
		require.True(t, budget.IsValid)
		require.NotEmpty(t, budget.Warnings)

		_, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
			Target: models.ProposalStatusSubmitted,
			Caller: piCaller,
			Now:    now,
			Budget: &budget,
		})
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))

		updated, err := TransitionProposal(draftProposal(), call, ProposalTransitionRequest{
			Target:        models.ProposalStatusSubmitted,
			Caller:        piCaller,
			Now:           now,
			Budget:        &budget,
			AllowWarnings: true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStatusSubmitted, updated.Status)
	})
}

func TestTransitionProposalCollaboratorSubmit(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	accepted := now.AddDate(0, 0, -3)

	proposal := draftProposal()
	proposal.Collaborators = []models.ProposalCollaborator{
		{UserID: 40, CanEdit: true, AcceptedAt: &accepted},
		{UserID: 41, CanEdit: true}, // pending invitation
	}

	collaborator := Caller{UserID: 40, Roles: []string{RolePrincipalInvestigator}}
	_, err := TransitionProposal(proposal, openCall(now), ProposalTransitionRequest{
		Target: models.ProposalStatusSubmitted,
		Caller: collaborator,
		Now:    now,
	})
	assert.NoError(t, err)

	pending := Caller{UserID: 41, Roles: []string{RolePrincipalInvestigator}}
	_, err = TransitionProposal(proposal, openCall(now), ProposalTransitionRequest{
		Target: models.ProposalStatusSubmitted,
		Caller: pending,
		Now:    now,
	})
	assert.Equal(t, ErrKindUnauthorized, KindOf(err), "pending invitations grant nothing")
}

func TestTransitionProposalWithdraw(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	call := openCall(now)

	for _, status := range []string{
		models.ProposalStatusDraft,
		models.ProposalStatusSubmitted,
		models.ProposalStatusUnderReview,
	} {
		proposal := draftProposal()
		proposal.Status = status
		updated, err := TransitionProposal(proposal, call, ProposalTransitionRequest{
			Target: models.ProposalStatusWithdrawn,
			Caller: piCaller,
			Now:    now,
		})
		require.NoError(t, err, "withdraw from %s", status)
		assert.Equal(t, models.ProposalStatusWithdrawn, updated.Status)
	}

	proposal := draftProposal()
	proposal.Status = models.ProposalStatusSubmitted
	_, err := TransitionProposal(proposal, call, ProposalTransitionRequest{
		Target: models.ProposalStatusWithdrawn,
		Caller: officerCaller,
		Now:    now,
	})
	assert.Equal(t, ErrKindUnauthorized, KindOf(err), "officers cannot withdraw on behalf of the PI")
}

func TestTransitionProposalDecision(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	call := openCall(now)
	call.ReviewDeadline = tptr(now.AddDate(0, 0, -1))

	proposal := draftProposal()
	proposal.Status = models.ProposalStatusUnderReview

	// Decisions are deliberate and independent of the review deadline.
	updated, err := TransitionProposal(proposal, call, ProposalTransitionRequest{
		Target: models.ProposalStatusAccepted,
		Caller: officerCaller,
		Now:    now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, updated.Status)

	_, err = TransitionProposal(proposal, call, ProposalTransitionRequest{
		Target: models.ProposalStatusRejected,
		Caller: piCaller,
		Now:    now,
	})
	assert.Equal(t, ErrKindUnauthorized, KindOf(err))
}

func TestNewProposalVersion(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rejected := draftProposal()
	rejected.Status = models.ProposalStatusRejected
	rejected.Version = 2

	call := openCall(now)
	call.AllowResubmissions = true

	next, err := NewProposalVersion(rejected, call, piCaller, now)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusDraft, next.Status)
	assert.Equal(t, 3, next.Version)
	require.NotNil(t, next.PreviousProposalID)
	assert.Equal(t, rejected.ProposalID, *next.PreviousProposalID)
	assert.Equal(t, models.ProposalStatusRejected, rejected.Status, "rejected record stays untouched")

	t.Run("resubmissions disabled", func(t *testing.T) {
		closed := openCall(now)
		_, err := NewProposalVersion(rejected, closed, piCaller, now)
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))
	})

	t.Run("only rejected proposals", func(t *testing.T) {
		withdrawn := draftProposal()
		withdrawn.Status = models.ProposalStatusWithdrawn
		_, err := NewProposalVersion(withdrawn, call, piCaller, now)
		assert.Equal(t, ErrKindInvalidTransition, KindOf(err))
	})

	t.Run("only the PI", func(t *testing.T) {
		_, err := NewProposalVersion(rejected, call, officerCaller, now)
		assert.Equal(t, ErrKindUnauthorized, KindOf(err))
	})
}

func TestMissingRequiredDocuments(t *testing.T) {
	reqID1, reqID2 := 1, 2
	call := &models.CallForProposal{
		RequiredDocuments: []models.RequiredDocument{
			{RequiredDocumentID: reqID1, DocumentName: "Project description", IsRequired: true},
			{RequiredDocumentID: reqID2, DocumentName: "CV", IsRequired: true},
			{RequiredDocumentID: 3, DocumentName: "Letters of support", IsRequired: false},
		},
	}
	proposal := &models.Proposal{
		Documents: []models.ProposalDocument{
			{RequiredDocumentID: &reqID1},
		},
	}

	missing := MissingRequiredDocuments(proposal, call)
	assert.Equal(t, []string{"CV"}, missing)

	proposal.Documents = append(proposal.Documents, models.ProposalDocument{RequiredDocumentID: &reqID2})
	assert.Empty(t, MissingRequiredDocuments(proposal, call))
}
