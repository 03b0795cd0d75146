package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"grant-review-api/config"
	"grant-review-api/middleware"
	"grant-review-api/models"
	"grant-review-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CallRequest struct {
	ProgramID            int        `json:"program_id" binding:"required"`
	Title                string     `json:"title" binding:"required"`
	Description          *string    `json:"description"`
	ReviewVisibility     string     `json:"review_visibility"`
	OpenDate             *time.Time `json:"open_date"`
	CloseDate            *time.Time `json:"close_date"`
	IntentDeadline       *time.Time `json:"intent_deadline"`
	FullProposalDeadline *time.Time `json:"full_proposal_deadline"`
	ReviewDeadline       *time.Time `json:"review_deadline"`
	AllowResubmissions   bool       `json:"allow_resubmissions"`
	IsPublic             bool       `json:"is_public"`
	TotalBudget          *float64   `json:"total_budget"`
	Currency             string     `json:"currency"`
}

// GetCalls lists calls. Anonymous callers see only public calls; staff see
// everything.
func GetCalls(c *gin.Context) {
	caller := middleware.CallerFromContext(c)

	query := config.DB.Preload("RequiredDocuments", "deleted_at IS NULL").
		Where("deleted_at IS NULL")
	if !caller.HasAnyRole(services.RoleProgramOfficer, services.RoleAreaChair) {
		query = query.Where("is_public = ?", true)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var calls []models.CallForProposal
	if err := query.Order("created_at DESC").Find(&calls).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch calls"})
		return
	}

	now := requestNow(c)
	states := make([]services.CallDeadlineState, len(calls))
	for i := range calls {
		states[i] = services.DeriveCallDeadlineState(&calls[i], now)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"calls":           calls,
		"deadline_states": states,
		"total":           len(calls),
	})
}

// GetCall returns a single call with its derived deadline state.
func GetCall(c *gin.Context) {
	callID, err := strconv.Atoi(c.Param("id"))
	if err != nil || callID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call ID"})
		return
	}

	var call models.CallForProposal
	if err := config.DB.Preload("RequiredDocuments", "deleted_at IS NULL").
		Preload("Program").Preload("Program.Criteria", "deleted_at IS NULL").
		Where("call_id = ? AND deleted_at IS NULL", callID).
		First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load call"})
		return
	}

	caller := middleware.CallerFromContext(c)
	if !call.IsPublic && !caller.HasAnyRole(services.RoleProgramOfficer, services.RoleAreaChair) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"call":           call,
		"deadline_state": services.DeriveCallDeadlineState(&call, requestNow(c)),
	})
}

// GetCallDeadlineState exposes the derived predicates on their own. The state
// is recomputed from the request's now; nothing here is cached.
func GetCallDeadlineState(c *gin.Context) {
	callID, err := strconv.Atoi(c.Param("id"))
	if err != nil || callID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call ID"})
		return
	}

	var call models.CallForProposal
	if err := config.DB.Where("call_id = ? AND deleted_at IS NULL", callID).
		First(&call).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"deadline_state": services.DeriveCallDeadlineState(&call, requestNow(c)),
	})
}

// CreateCall creates a draft call. Program officers and admins only.
func CreateCall(c *gin.Context) {
	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visibility := req.ReviewVisibility
	if visibility == "" {
		visibility = models.ReviewVisibilityPrivate
	}

	call := models.CallForProposal{
		ProgramID:            req.ProgramID,
		CallNumber:           generateCallNumber(),
		Title:                req.Title,
		Description:          req.Description,
		Status:               models.CallStatusDraft,
		ReviewVisibility:     visibility,
		OpenDate:             req.OpenDate,
		CloseDate:            req.CloseDate,
		IntentDeadline:       req.IntentDeadline,
		FullProposalDeadline: req.FullProposalDeadline,
		ReviewDeadline:       req.ReviewDeadline,
		AllowResubmissions:   req.AllowResubmissions,
		IsPublic:             req.IsPublic,
		TotalBudget:          req.TotalBudget,
		Currency:             req.Currency,
	}

	if err := services.ValidateCallDates(&call); err != nil {
		respondEngineError(c, err)
		return
	}

	userID, _ := c.Get("userID")
	if id, ok := userID.(int); ok {
		call.CreatedBy = id
	}
	call.CreatedAt = time.Now()
	call.UpdatedAt = call.CreatedAt

	if err := config.DB.Create(&call).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create call"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "call": call})
}

// UpdateCall updates call configuration. Date changes are re-validated for
// internal ordering before they land.
func UpdateCall(c *gin.Context) {
	callID, err := strconv.Atoi(c.Param("id"))
	if err != nil || callID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call ID"})
		return
	}

	var call models.CallForProposal
	if err := config.DB.Where("call_id = ? AND deleted_at IS NULL", callID).
		First(&call).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call.Title = req.Title
	call.Description = req.Description
	if req.ReviewVisibility != "" {
		call.ReviewVisibility = req.ReviewVisibility
	}
	call.OpenDate = req.OpenDate
	call.CloseDate = req.CloseDate
	call.IntentDeadline = req.IntentDeadline
	call.FullProposalDeadline = req.FullProposalDeadline
	call.ReviewDeadline = req.ReviewDeadline
	call.AllowResubmissions = req.AllowResubmissions
	call.IsPublic = req.IsPublic
	call.TotalBudget = req.TotalBudget
	if req.Currency != "" {
		call.Currency = req.Currency
	}

	if err := services.ValidateCallDates(&call); err != nil {
		respondEngineError(c, err)
		return
	}

	call.UpdatedAt = time.Now()
	if err := config.DB.Save(&call).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update call"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "call": call})
}

// TransitionCallStatus applies an administrative status change.
func TransitionCallStatus(c *gin.Context) {
	callID, err := strconv.Atoi(c.Param("id"))
	if err != nil || callID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var call models.CallForProposal
	if err := config.DB.Where("call_id = ? AND deleted_at IS NULL", callID).
		First(&call).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	updated, engineErr := services.TransitionCall(&call, req.Status, caller, now)
	if engineErr != nil {
		respondEngineError(c, engineErr)
		return
	}

	tx := config.DB.Begin()
	if err := tx.Model(&models.CallForProposal{}).
		Where("call_id = ?", call.CallID).
		Updates(map[string]interface{}{
			"status":     updated.Status,
			"updated_at": now,
		}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update call"})
		return
	}

	if err := writeAuditLog(tx, c, caller.UserID, "transition", "call", call.CallID, call.CallNumber,
		map[string]interface{}{"status": updated.Status}, "Call status changed"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize transition"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "call": updated})
}

// PublishCallResults flips the results_public flag. Publishing is a deliberate
// administrative action, never derived from the review deadline.
func PublishCallResults(c *gin.Context) {
	callID, err := strconv.Atoi(c.Param("id"))
	if err != nil || callID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid call ID"})
		return
	}

	var req struct {
		ResultsPublic bool `json:"results_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var call models.CallForProposal
	if err := config.DB.Where("call_id = ? AND deleted_at IS NULL", callID).
		First(&call).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	caller := middleware.CallerFromContext(c)
	if err := config.DB.Model(&models.CallForProposal{}).
		Where("call_id = ?", call.CallID).
		Updates(map[string]interface{}{
			"results_public": req.ResultsPublic,
			"updated_at":     time.Now(),
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update call"})
		return
	}

	if err := writeAuditLog(config.DB, c, caller.UserID, "publish_results", "call", call.CallID, call.CallNumber,
		map[string]interface{}{"results_public": req.ResultsPublic}, "Call results visibility changed"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "results_public": req.ResultsPublic})
}
