package services

import (
	"testing"
	"time"

	"grant-review-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tptr(t time.Time) *time.Time { return &t }

func TestDeriveCallDeadlineState(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		call models.CallForProposal
		want CallDeadlineState
	}{
		{
			name: "unset deadlines are never over",
			call: models.CallForProposal{},
			want: CallDeadlineState{},
		},
		{
			name: "deadline yesterday is over",
			call: models.CallForProposal{
				FullProposalDeadline: tptr(now.AddDate(0, 0, -1)),
			},
			want: CallDeadlineState{SubmissionDeadlineOver: true},
		},
		{
			name: "deadline tomorrow is not over",
			call: models.CallForProposal{
				FullProposalDeadline: tptr(now.AddDate(0, 0, 1)),
				ReviewDeadline:       tptr(now.AddDate(0, 0, 14)),
			},
			want: CallDeadlineState{},
		},
		{
			name: "review deadline passed",
			call: models.CallForProposal{
				FullProposalDeadline: tptr(now.AddDate(0, -1, 0)),
				ReviewDeadline:       tptr(now.Add(-time.Hour)),
			},
			want: CallDeadlineState{SubmissionDeadlineOver: true, ReviewDeadlineOver: true},
		},
		{
			name: "results flag mirrors the call, not the review deadline",
			call: models.CallForProposal{
				ReviewDeadline: tptr(now.Add(-time.Hour)),
				ResultsPublic:  false,
			},
			want: CallDeadlineState{ReviewDeadlineOver: true},
		},
		{
			name: "results published early",
			call: models.CallForProposal{
				ReviewDeadline: tptr(now.AddDate(0, 1, 0)),
				ResultsPublic:  true,
			},
			want: CallDeadlineState{ResultsPublic: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCallDeadlineState(&tt.call, now))
		})
	}
}

func TestDeriveCallDeadlineStateIgnoresCallStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	call := models.CallForProposal{
		Status:               models.CallStatusOpen,
		FullProposalDeadline: tptr(now.AddDate(0, 0, -1)),
	}

	// An administratively open call with a past deadline still reads as over.
	state := DeriveCallDeadlineState(&call, now)
	assert.True(t, state.SubmissionDeadlineOver)
}

func TestValidateCallDates(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		call    models.CallForProposal
		wantErr bool
	}{
		{
			name: "ordered dates pass",
			call: models.CallForProposal{
				OpenDate:             tptr(base),
				CloseDate:            tptr(base.AddDate(0, 3, 0)),
				IntentDeadline:       tptr(base.AddDate(0, 1, 0)),
				FullProposalDeadline: tptr(base.AddDate(0, 2, 0)),
				ReviewDeadline:       tptr(base.AddDate(0, 4, 0)),
			},
		},
		{
			name: "nil dates skip their checks",
			call: models.CallForProposal{OpenDate: tptr(base)},
		},
		{
			name: "close before open",
			call: models.CallForProposal{
				OpenDate:  tptr(base),
				CloseDate: tptr(base.AddDate(0, 0, -1)),
			},
			wantErr: true,
		},
		{
			name: "full proposal deadline before intent deadline",
			call: models.CallForProposal{
				IntentDeadline:       tptr(base.AddDate(0, 2, 0)),
				FullProposalDeadline: tptr(base.AddDate(0, 1, 0)),
			},
			wantErr: true,
		},
		{
			name: "review deadline before full proposal deadline",
			call: models.CallForProposal{
				FullProposalDeadline: tptr(base.AddDate(0, 2, 0)),
				ReviewDeadline:       tptr(base.AddDate(0, 1, 0)),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCallDates(&tt.call)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrKindInvalidDateOrder, KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransitionCall(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	officer := Caller{UserID: 7, Roles: []string{RoleProgramOfficer}}
	pi := Caller{UserID: 3, Roles: []string{RolePrincipalInvestigator}}

	call := models.CallForProposal{CallID: 1, Status: models.CallStatusOpen}

	updated, err := TransitionCall(&call, models.CallStatusClosed, officer, now)
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusClosed, updated.Status)
	assert.Equal(t, models.CallStatusOpen, call.Status, "input must not be mutated")

	_, err = TransitionCall(&call, models.CallStatusClosed, pi, now)
	assert.Equal(t, ErrKindUnauthorized, KindOf(err))

	_, err = TransitionCall(&call, models.CallStatusArchived, officer, now)
	assert.Equal(t, ErrKindInvalidTransition, KindOf(err))

	archived := models.CallForProposal{Status: models.CallStatusArchived}
	_, err = TransitionCall(&archived, models.CallStatusCancelled, officer, now)
	assert.Equal(t, ErrKindInvalidTransition, KindOf(err), "archived is terminal")
}
