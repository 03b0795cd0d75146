package controllers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"grant-review-api/models"
	"grant-review-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// generateCallNumber builds a unique human-readable call reference.
func generateCallNumber() string {
	return fmt.Sprintf("CALL-%d-%s", time.Now().Year(), strings.ToUpper(uuid.NewString()[:8]))
}

// generateProposalNumber builds a unique human-readable proposal reference.
func generateProposalNumber() string {
	return fmt.Sprintf("PROP-%d-%s", time.Now().Year(), strings.ToUpper(uuid.NewString()[:8]))
}

const requestNowKey = "requestNow"

// requestNow returns the wall-clock instant for this request, captured once at
// the transport boundary so every guard in the request sees the same now.
func requestNow(c *gin.Context) time.Time {
	if v, ok := c.Get(requestNowKey); ok {
		if now, ok := v.(time.Time); ok {
			return now
		}
	}
	now := time.Now()
	c.Set(requestNowKey, now)
	return now
}

// respondEngineError maps a typed engine error to its HTTP status and surfaces
// the stable message verbatim.
func respondEngineError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	body := gin.H{"success": false, "error": err.Error()}
	if kind := services.KindOf(err); kind != 0 {
		body["kind"] = kind.String()
	}
	c.JSON(status, body)
}

func ptr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// writeAuditLog records a state-mutating action inside the caller's
// transaction.
func writeAuditLog(tx *gorm.DB, c *gin.Context, userID int, action, entityType string, entityID int, entityNumber string, newValues map[string]interface{}, description string) error {
	serialized, _ := json.Marshal(newValues)
	id := entityID
	audit := models.AuditLog{
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    &id,
		NewValues:   ptr(string(serialized)),
		Description: ptr(description),
		IPAddress:   c.ClientIP(),
		CreatedAt:   time.Now(),
	}
	if entityNumber != "" {
		audit.EntityNumber = &entityNumber
	}
	userAgent := c.GetHeader("User-Agent")
	if strings.TrimSpace(userAgent) != "" {
		ua := userAgent
		audit.UserAgent = &ua
	}
	return tx.Create(&audit).Error
}

// loadProposalSnapshot reads a proposal together with the entities its guards
// need, as one consistent snapshot.
func loadProposalSnapshot(db *gorm.DB, proposalID int) (*models.Proposal, *models.CallForProposal, []models.ReviewAssignment, error) {
	var proposal models.Proposal
	if err := db.Preload("Collaborators").
		Preload("BudgetItems", "deleted_at IS NULL").
		Preload("Documents", "deleted_at IS NULL").
		Where("proposal_id = ? AND deleted_at IS NULL", proposalID).
		First(&proposal).Error; err != nil {
		return nil, nil, nil, err
	}

	var call models.CallForProposal
	if err := db.Preload("RequiredDocuments", "deleted_at IS NULL").
		Where("call_id = ? AND deleted_at IS NULL", proposal.CallID).
		First(&call).Error; err != nil {
		return nil, nil, nil, err
	}

	var assignments []models.ReviewAssignment
	if err := db.Preload("Review").Preload("Review.Scores").
		Where("proposal_id = ? AND deleted_at IS NULL", proposalID).
		Find(&assignments).Error; err != nil {
		return nil, nil, nil, err
	}

	return &proposal, &call, assignments, nil
}

// recordStatusHistory appends a proposal status change to the audit trail.
func recordStatusHistory(tx *gorm.DB, proposalID int, oldStatus, newStatus string, changedBy int, reason, notes string) error {
	history := models.ProposalStatusHistory{
		ProposalID: proposalID,
		NewStatus:  newStatus,
		ChangedBy:  changedBy,
		CreatedAt:  time.Now(),
	}
	if oldStatus != "" {
		history.OldStatus = &oldStatus
	}
	if reason != "" {
		history.Reason = &reason
	}
	if notes != "" {
		history.Notes = &notes
	}
	return tx.Create(&history).Error
}
