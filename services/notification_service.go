package services

import (
	"fmt"
	"log"
	"time"

	"grant-review-api/config"
	"grant-review-api/models"

	"gorm.io/gorm"
)

// NotificationService persists in-app notifications and sends the matching
// email. Delivery is fire-and-forget: failures are logged, never propagated
// into the transition that triggered them.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// DefaultNotificationService returns a service bound to the global connection.
func DefaultNotificationService() *NotificationService {
	return &NotificationService{db: config.DB}
}

type notificationInput struct {
	userID     int
	email      string
	title      string
	message    string
	notifType  string
	proposalID int
}

func (s *NotificationService) deliver(in notificationInput) {
	notification := models.Notification{
		UserID:   uint(in.userID),
		Title:    in.title,
		Message:  in.message,
		Type:     in.notifType,
		CreateAt: time.Now(),
	}
	if in.proposalID > 0 {
		proposalID := uint(in.proposalID)
		notification.RelatedProposalID = &proposalID
	}
	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("Warning: failed to store notification for user %d: %v", in.userID, err)
	}

	if in.email == "" {
		return
	}
	go func() {
		body := fmt.Sprintf("<p>%s</p>", in.message)
		if err := config.SendMail([]string{in.email}, in.title, body); err != nil {
			log.Printf("Warning: failed to send notification email to %s: %v", in.email, err)
		}
	}()
}

// NotifyProposalSubmitted informs the principal investigator that the
// submission went through.
func (s *NotificationService) NotifyProposalSubmitted(proposal *models.Proposal, pi *models.User) {
	email := ""
	if pi != nil {
		email = pi.Email
	}
	s.deliver(notificationInput{
		userID:     proposal.PrincipalInvestigatorID,
		email:      email,
		title:      "Proposal submitted",
		message:    fmt.Sprintf("Proposal %s (%s) has been submitted.", proposal.ProposalNumber, proposal.Title),
		notifType:  "success",
		proposalID: proposal.ProposalID,
	})
}

// NotifyProposalStatusChanged informs the principal investigator of a status
// change.
func (s *NotificationService) NotifyProposalStatusChanged(proposal *models.Proposal, pi *models.User, oldStatus string) {
	email := ""
	if pi != nil {
		email = pi.Email
	}
	s.deliver(notificationInput{
		userID:     proposal.PrincipalInvestigatorID,
		email:      email,
		title:      "Proposal status changed",
		message:    fmt.Sprintf("Proposal %s moved from %s to %s.", proposal.ProposalNumber, oldStatus, proposal.Status),
		notifType:  "info",
		proposalID: proposal.ProposalID,
	})
}

// NotifyReviewAssigned informs a reviewer of a new assignment.
func (s *NotificationService) NotifyReviewAssigned(assignment *models.ReviewAssignment, reviewer *models.User, proposal *models.Proposal) {
	email := ""
	if reviewer != nil {
		email = reviewer.Email
	}
	message := fmt.Sprintf("You have been assigned to review proposal %s.", proposal.Title)
	if assignment.DueDate != nil {
		message = fmt.Sprintf("%s The review is due by %s.", message, assignment.DueDate.Format("2006-01-02"))
	}
	s.deliver(notificationInput{
		userID:     assignment.ReviewerID,
		email:      email,
		title:      "Review assigned",
		message:    message,
		notifType:  "info",
		proposalID: assignment.ProposalID,
	})
}

// NotifyReviewSubmitted informs the assigning officer that a review came in.
func (s *NotificationService) NotifyReviewSubmitted(assignment *models.ReviewAssignment, officer *models.User, proposal *models.Proposal) {
	email := ""
	if officer != nil {
		email = officer.Email
	}
	s.deliver(notificationInput{
		userID:     assignment.AssignedBy,
		email:      email,
		title:      "Review submitted",
		message:    fmt.Sprintf("A review for proposal %s has been submitted.", proposal.Title),
		notifType:  "info",
		proposalID: assignment.ProposalID,
	})
}
