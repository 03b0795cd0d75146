package services

import (
	"testing"
	"time"

	"grant-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sptr(s string) *string { return &s }

func completeReview() *models.Review {
	return &models.Review{
		ReviewID:       1,
		AssignmentID:   1,
		OverallScore:   fptr(7.5),
		Summary:        "Solid proposal with a clear plan.",
		Strengths:      "Strong team.",
		Weaknesses:     "Ambitious timeline.",
		Recommendation: sptr(models.RecommendationAccept),
	}
}

func pendingAssignment(reviewerID int) *models.ReviewAssignment {
	return &models.ReviewAssignment{
		AssignmentID: 1,
		ProposalID:   5,
		ReviewerID:   reviewerID,
		Status:       models.AssignmentStatusPending,
	}
}

func TestTransitionReviewAssignmentAccept(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}
	assignment := pendingAssignment(reviewer.UserID)

	updated, _, err := TransitionReviewAssignment(assignment, nil, nil,
		models.AssignmentStatusInProgress, reviewer, now)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusInProgress, updated.Status)
	require.NotNil(t, updated.AcceptedAt)
	assert.True(t, updated.AcceptedAt.Equal(now))
	assert.Equal(t, models.AssignmentStatusPending, assignment.Status, "input must not be mutated")

	other := Caller{UserID: 51, Roles: []string{RoleReviewer}}
	_, _, err = TransitionReviewAssignment(assignment, nil, nil,
		models.AssignmentStatusInProgress, other, now)
	assert.Equal(t, ErrKindUnauthorized, KindOf(err))
}

func TestTransitionReviewAssignmentComplete(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}
	call := &models.CallForProposal{ReviewDeadline: tptr(now.AddDate(0, 0, 7))}

	assignment := pendingAssignment(reviewer.UserID)
	assignment.Status = models.AssignmentStatusInProgress

	updatedAssignment, updatedReview, err := TransitionReviewAssignment(
		assignment, completeReview(), call, models.AssignmentStatusCompleted, reviewer, now)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCompleted, updatedAssignment.Status)
	assert.True(t, updatedReview.IsComplete)
	require.NotNil(t, updatedReview.SubmittedAt)
	assert.True(t, updatedReview.SubmittedAt.Equal(now))
}

func TestTransitionReviewAssignmentCompleteValidation(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}

	inProgress := func() *models.ReviewAssignment {
		a := pendingAssignment(reviewer.UserID)
		a.Status = models.AssignmentStatusInProgress
		return a
	}

	t.Run("missing fields are listed", func(t *testing.T) {
		review := completeReview()
		review.Summary = "  "
		review.Recommendation = nil
		_, _, err := TransitionReviewAssignment(inProgress(), review, nil,
			models.AssignmentStatusCompleted, reviewer, now)
		require.Error(t, err)
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))
		assert.Contains(t, err.Error(), "summary")
		assert.Contains(t, err.Error(), "recommendation")
	})

	t.Run("nil review", func(t *testing.T) {
		_, _, err := TransitionReviewAssignment(inProgress(), nil, nil,
			models.AssignmentStatusCompleted, reviewer, now)
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))
	})

	t.Run("invalid recommendation", func(t *testing.T) {
		review := completeReview()
		review.Recommendation = sptr("maybe")
		_, _, err := TransitionReviewAssignment(inProgress(), review, nil,
			models.AssignmentStatusCompleted, reviewer, now)
		assert.Equal(t, ErrKindValidationFailed, KindOf(err))
	})

	t.Run("score out of bounds", func(t *testing.T) {
		for _, score := range []float64{0.5, 10.5} {
			review := completeReview()
			review.OverallScore = fptr(score)
			_, _, err := TransitionReviewAssignment(inProgress(), review, nil,
				models.AssignmentStatusCompleted, reviewer, now)
			assert.Equal(t, ErrKindValidationFailed, KindOf(err), "score %v", score)
		}
	})

	t.Run("boundary scores pass", func(t *testing.T) {
		for _, score := range []float64{MinOverallScore, MaxOverallScore} {
			review := completeReview()
			review.OverallScore = fptr(score)
			_, _, err := TransitionReviewAssignment(inProgress(), review, nil,
				models.AssignmentStatusCompleted, reviewer, now)
			assert.NoError(t, err, "score %v", score)
		}
	})
}

func TestTransitionReviewAssignmentCompleteDeadlines(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}
	admin := Caller{UserID: 50, Roles: []string{RoleAdmin}}

	assignment := pendingAssignment(reviewer.UserID)
	assignment.Status = models.AssignmentStatusInProgress
	assignment.DueDate = tptr(now.AddDate(0, 0, -1))

	_, _, err := TransitionReviewAssignment(assignment, completeReview(), nil,
		models.AssignmentStatusCompleted, reviewer, now)
	require.Error(t, err)
	assert.Equal(t, ErrKindDeadlineExceeded, KindOf(err))
	assert.Equal(t, MsgReviewDueDatePassed, err.Error())

	// An admin who is also the assigned reviewer may complete late.
	_, _, err = TransitionReviewAssignment(assignment, completeReview(), nil,
		models.AssignmentStatusCompleted, admin, now)
	assert.NoError(t, err)

	assignment.DueDate = nil
	call := &models.CallForProposal{ReviewDeadline: tptr(now.Add(-time.Hour))}
	_, _, err = TransitionReviewAssignment(assignment, completeReview(), call,
		models.AssignmentStatusCompleted, reviewer, now)
	require.Error(t, err)
	assert.Equal(t, MsgReviewDeadlinePassed, err.Error())
}

func TestTransitionReviewAssignmentCancel(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	chair := Caller{UserID: 60, Roles: []string{RoleAreaChair}}
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}

	assignment := pendingAssignment(reviewer.UserID)
	updated, _, err := TransitionReviewAssignment(assignment, nil, nil,
		models.AssignmentStatusCancelled, chair, now)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, updated.Status)

	_, _, err = TransitionReviewAssignment(assignment, nil, nil,
		models.AssignmentStatusCancelled, reviewer, now)
	assert.Equal(t, ErrKindUnauthorized, KindOf(err))
}

func TestCompletedAssignmentIsLocked(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}

	assignment := pendingAssignment(reviewer.UserID)
	assignment.Status = models.AssignmentStatusCompleted

	_, _, err := TransitionReviewAssignment(assignment, completeReview(), nil,
		models.AssignmentStatusCancelled, reviewer, now)
	require.Error(t, err)
	assert.Equal(t, ErrKindReviewLocked, KindOf(err))

	err = CanEditReview(assignment, nil, reviewer, now)
	assert.Equal(t, ErrKindReviewLocked, KindOf(err))
}

func TestCanEditReview(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reviewer := Caller{UserID: 50, Roles: []string{RoleReviewer}}

	assignment := pendingAssignment(reviewer.UserID)
	assignment.Status = models.AssignmentStatusInProgress

	assert.NoError(t, CanEditReview(assignment, nil, reviewer, now))

	other := Caller{UserID: 51, Roles: []string{RoleReviewer}}
	assert.Equal(t, ErrKindUnauthorized, KindOf(CanEditReview(assignment, nil, other, now)))

	call := &models.CallForProposal{ReviewDeadline: tptr(now.Add(-time.Minute))}
	err := CanEditReview(assignment, call, reviewer, now)
	require.Error(t, err)
	assert.Equal(t, ErrKindDeadlineExceeded, KindOf(err))
}

func TestAllReviewsComplete(t *testing.T) {
	deleted := time.Now()

	tests := []struct {
		name        string
		assignments []models.ReviewAssignment
		want        bool
	}{
		{"no assignments", nil, false},
		{
			"only cancelled assignments",
			[]models.ReviewAssignment{{Status: models.AssignmentStatusCancelled}},
			false,
		},
		{
			"one pending",
			[]models.ReviewAssignment{
				{Status: models.AssignmentStatusCompleted},
				{Status: models.AssignmentStatusPending},
			},
			false,
		},
		{
			"cancelled and deleted are ignored",
			[]models.ReviewAssignment{
				{Status: models.AssignmentStatusCompleted},
				{Status: models.AssignmentStatusCancelled},
				{Status: models.AssignmentStatusPending, DeletedAt: &deleted},
			},
			true,
		},
		{
			"all completed",
			[]models.ReviewAssignment{
				{Status: models.AssignmentStatusCompleted},
				{Status: models.AssignmentStatusCompleted},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllReviewsComplete(tt.assignments))
		})
	}
}

func TestShouldStartReview(t *testing.T) {
	submitted := &models.Proposal{Status: models.ProposalStatusSubmitted}
	underReview := &models.Proposal{Status: models.ProposalStatusUnderReview}

	assert.True(t, ShouldStartReview(submitted, models.AssignmentStatusInProgress))
	assert.False(t, ShouldStartReview(underReview, models.AssignmentStatusInProgress))
	assert.False(t, ShouldStartReview(submitted, models.AssignmentStatusCancelled))
	assert.False(t, ShouldStartReview(nil, models.AssignmentStatusInProgress))
}

func TestHasOpenAssignment(t *testing.T) {
	deleted := time.Now()
	assignments := []models.ReviewAssignment{
		{ReviewerID: 50, Status: models.AssignmentStatusCancelled},
		{ReviewerID: 51, Status: models.AssignmentStatusPending, DeletedAt: &deleted},
		{ReviewerID: 52, Status: models.AssignmentStatusInProgress},
	}

	assert.False(t, HasOpenAssignment(assignments, 50), "cancelled does not count")
	assert.False(t, HasOpenAssignment(assignments, 51), "deleted does not count")
	assert.True(t, HasOpenAssignment(assignments, 52))
	assert.False(t, HasOpenAssignment(assignments, 99))
}
