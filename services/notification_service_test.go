package services

import (
	"errors"
	"regexp"
	"testing"

	"grant-review-api/models"
)

func TestNotifyProposalSubmittedStoresNotification(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `notifications`"),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewNotificationService(gormDB)
	proposal := &models.Proposal{
		ProposalID:              5,
		ProposalNumber:          "PROP-2026-AB12CD34",
		Title:                   "Resilient sensor networks",
		PrincipalInvestigatorID: 10,
	}

	// No email address means no outbound mail; only the in-app row is written.
	service.NotifyProposalSubmitted(proposal, nil)

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestNotificationStoreFailureDoesNotPropagate(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `notifications`"),
			err:     errors.New("insert failed"),
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewNotificationService(gormDB)
	assignment := &models.ReviewAssignment{AssignmentID: 1, ProposalID: 5, ReviewerID: 50}
	proposal := &models.Proposal{ProposalID: 5, Title: "Resilient sensor networks"}

	// Delivery is fire-and-forget: a failed insert is logged, never returned.
	service.NotifyReviewAssigned(assignment, nil, proposal)

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}
