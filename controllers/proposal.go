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
	"grant-review-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProposalRequest struct {
	CallID        int      `json:"call_id" binding:"required"`
	InstitutionID int      `json:"institution_id" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Abstract      *string  `json:"abstract"`
	TotalBudget   *float64 `json:"total_budget"`
	Currency      string   `json:"currency"`
	DurationYears int      `json:"duration_years"`
}

// GetProposals lists proposals the caller is allowed to enumerate: staff see
// everything, everyone else sees proposals they own, collaborate on or review.
func GetProposals(c *gin.Context) {
	caller := middleware.CallerFromContext(c)

	query := config.DB.Preload("Call").Where("proposals.deleted_at IS NULL")
	if !caller.IsAdmin() && !caller.IsStaff() {
		query = query.Where(
			"principal_investigator_id = ?"+
				" OR proposal_id IN (SELECT proposal_id FROM proposal_collaborators WHERE user_id = ? AND accepted_at IS NOT NULL)"+
				" OR proposal_id IN (SELECT proposal_id FROM review_assignments WHERE reviewer_id = ? AND deleted_at IS NULL AND status != ?)",
			caller.UserID, caller.UserID, caller.UserID, models.AssignmentStatusCancelled)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if callID := c.Query("call_id"); callID != "" {
		query = query.Where("call_id = ?", callID)
	}

	var proposals []models.Proposal
	if err := query.Order("updated_at DESC").Find(&proposals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch proposals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"proposals": proposals,
		"total":     len(proposals),
	})
}

// GetProposal returns the caller's filtered view of a proposal. Every read
// goes through the visibility gate; nothing is served from a cached
// projection.
func GetProposal(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	proposal, call, assignments, loadErr := loadProposalSnapshot(config.DB, proposalID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	caller := middleware.CallerFromContext(c)
	view, gateErr := services.ComputeVisibleView(caller, proposal, call, assignments, requestNow(c))
	if gateErr != nil {
		respondEngineError(c, gateErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "proposal": view})
}

// CreateProposal opens a new draft under a call.
func CreateProposal(c *gin.Context) {
	var req ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var call models.CallForProposal
	if err := config.DB.Where("call_id = ? AND deleted_at IS NULL", req.CallID).
		First(&call).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	durationYears := req.DurationYears
	if durationYears <= 0 {
		durationYears = 1
	}

	proposal := models.Proposal{
		ProposalNumber:          generateProposalNumber(),
		CallID:                  req.CallID,
		InstitutionID:           req.InstitutionID,
		PrincipalInvestigatorID: caller.UserID,
		Title:                   utils.SanitizeInput(req.Title),
		Abstract:                req.Abstract,
		Status:                  models.ProposalStatusDraft,
		TotalBudget:             req.TotalBudget,
		Currency:                req.Currency,
		DurationYears:           durationYears,
		Version:                 1,
		RowVersion:              1,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if proposal.Currency == "" {
		proposal.Currency = call.Currency
	}

	if err := config.DB.Create(&proposal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create proposal"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "proposal": proposal})
}

// UpdateProposal edits draft content. Submitted proposals are immutable for
// authors; only status transitions touch them afterwards.
func UpdateProposal(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	var req struct {
		Title         *string  `json:"title"`
		Abstract      *string  `json:"abstract"`
		TotalBudget   *float64 `json:"total_budget"`
		DurationYears *int     `json:"duration_years"`
		RowVersion    int      `json:"row_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var proposal models.Proposal
	if err := config.DB.Preload("Collaborators").
		Where("proposal_id = ? AND deleted_at IS NULL", proposalID).
		First(&proposal).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}

	caller := middleware.CallerFromContext(c)
	if !services.CanEditProposal(caller, &proposal) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You may not edit this proposal"})
		return
	}
	if proposal.Status != models.ProposalStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft proposals can be edited"})
		return
	}

	updates := map[string]interface{}{
		"updated_at":  time.Now(),
		"row_version": proposal.RowVersion + 1,
	}
	if req.Title != nil {
		updates["title"] = utils.SanitizeInput(*req.Title)
	}
	if req.Abstract != nil {
		updates["abstract"] = *req.Abstract
	}
	if req.TotalBudget != nil {
		updates["total_budget"] = *req.TotalBudget
	}
	if req.DurationYears != nil && *req.DurationYears > 0 {
		updates["duration_years"] = *req.DurationYears
	}

	// Optimistic concurrency: the update only lands if nobody else moved the
	// row since the caller's snapshot.
	result := config.DB.Model(&models.Proposal{}).
		Where("proposal_id = ? AND row_version = ?", proposal.ProposalID, req.RowVersion).
		Updates(updates)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal was modified concurrently, refresh and retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "row_version": proposal.RowVersion + 1})
}

// SaveBudget replaces the proposal's budget items. Saving a draft is never
// blocked by validation; the advisory result rides along in the response.
func SaveBudget(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	var req struct {
		Items []struct {
			Category    string  `json:"category" binding:"required"`
			Year        int     `json:"year" binding:"required"`
			Description *string `json:"description"`
			Amount      float64 `json:"amount"`
		} `json:"items" binding:"required"`
		RowVersion int `json:"row_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var proposal models.Proposal
	if err := config.DB.Preload("Collaborators").
		Where("proposal_id = ? AND deleted_at IS NULL", proposalID).
		First(&proposal).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}

	caller := middleware.CallerFromContext(c)
	if !services.CanEditProposal(caller, &proposal) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You may not edit this proposal"})
		return
	}
	if proposal.Status != models.ProposalStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft proposals can be edited"})
		return
	}

	items := make([]models.BudgetItem, 0, len(req.Items))
	for _, item := range req.Items {
		if !models.IsBudgetCategoryValid(item.Category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget category: " + item.Category})
			return
		}
		if item.Year < 1 || item.Year > proposal.DurationYears {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Budget year out of range"})
			return
		}
		items = append(items, models.BudgetItem{
			ProposalID:  proposal.ProposalID,
			Category:    item.Category,
			Year:        item.Year,
			Description: item.Description,
			Amount:      item.Amount,
			Currency:    proposal.Currency,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		})
	}

	tx := config.DB.Begin()
	result := tx.Model(&models.Proposal{}).
		Where("proposal_id = ? AND row_version = ?", proposal.ProposalID, req.RowVersion).
		Updates(map[string]interface{}{
			"updated_at":  time.Now(),
			"row_version": req.RowVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal was modified concurrently, refresh and retry"})
		return
	}

	now := time.Now()
	if err := tx.Model(&models.BudgetItem{}).
		Where("proposal_id = ? AND deleted_at IS NULL", proposal.ProposalID).
		Update("deleted_at", now).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace budget items"})
		return
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save budget items"})
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save budget"})
		return
	}

	var call models.CallForProposal
	var caps []models.CategoryCap
	if err := config.DB.Where("call_id = ?", proposal.CallID).First(&call).Error; err == nil {
		config.DB.Where("program_id = ?", call.ProgramID).Find(&caps)
	}
	ceiling := services.ResolveBudgetCeiling(&proposal, &call)
	validation := services.ValidateBudget(items, ceiling, caps)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"row_version": req.RowVersion + 1,
		"validation":  validation,
	})
}

// SubmitProposal moves a draft to submitted. Guards run against a snapshot
// read inside the transaction; the optimistic version check rejects
// concurrent movers.
func SubmitProposal(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	var req struct {
		Force         bool `json:"force"`
		AllowWarnings bool `json:"allow_warnings"`
	}
	// The body is optional; an empty request submits with defaults.
	_ = c.ShouldBindJSON(&req)

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	proposal, call, _, loadErr := loadProposalSnapshot(tx, proposalID)
	if loadErr != nil {
		tx.Rollback()
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	var caps []models.CategoryCap
	tx.Where("program_id = ?", call.ProgramID).Find(&caps)
	ceiling := services.ResolveBudgetCeiling(proposal, call)
	budget := services.ValidateBudget(proposal.BudgetItems, ceiling, caps)

	updated, engineErr := services.TransitionProposal(proposal, call, services.ProposalTransitionRequest{
		Target:           models.ProposalStatusSubmitted,
		Caller:           caller,
		Now:              now,
		Force:            req.Force,
		AllowWarnings:    req.AllowWarnings,
		Budget:           &budget,
		MissingDocuments: services.MissingRequiredDocuments(proposal, call),
	})
	if engineErr != nil {
		tx.Rollback()
		respondEngineError(c, engineErr)
		return
	}

	result := tx.Model(&models.Proposal{}).
		Where("proposal_id = ? AND row_version = ?", proposal.ProposalID, proposal.RowVersion).
		Updates(map[string]interface{}{
			"status":       updated.Status,
			"submitted_at": updated.SubmittedAt,
			"updated_at":   now,
			"row_version":  proposal.RowVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal was modified concurrently, refresh and retry"})
		return
	}

	if err := recordStatusHistory(tx, proposal.ProposalID, proposal.Status, updated.Status, caller.UserID, "", "submission"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log status history"})
		return
	}
	if err := writeAuditLog(tx, c, caller.UserID, "submit", "proposal", proposal.ProposalID, proposal.ProposalNumber,
		map[string]interface{}{"status": updated.Status, "budget_warnings": budget.Warnings},
		"Proposal submitted"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize submission"})
		return
	}

	var pi models.User
	if err := config.DB.Where("user_id = ?", proposal.PrincipalInvestigatorID).First(&pi).Error; err == nil {
		services.DefaultNotificationService().NotifyProposalSubmitted(updated, &pi)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"proposal": updated,
		"warnings": budget.Warnings,
	})
}

// WithdrawProposal lets the principal investigator pull a proposal back at any
// point before a decision is recorded.
func WithdrawProposal(c *gin.Context) {
	transitionProposalStatus(c, models.ProposalStatusWithdrawn, "withdraw", "Proposal withdrawn")
}

// StartProposalReview moves a submitted proposal into the review phase
// explicitly; the same transition also fires automatically when the first
// assignment starts.
func StartProposalReview(c *gin.Context) {
	transitionProposalStatus(c, models.ProposalStatusUnderReview, "start_review", "Proposal moved to review")
}

// DecideProposal records the accept/reject decision.
func DecideProposal(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	var req struct {
		Decision string `json:"decision" binding:"required"`
		Reason   string `json:"reason"`
		Force    bool   `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Decision != models.ProposalStatusAccepted && req.Decision != models.ProposalStatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Decision must be either 'accepted' or 'rejected'"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	proposal, call, assignments, loadErr := loadProposalSnapshot(tx, proposalID)
	if loadErr != nil {
		tx.Rollback()
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	// All live assignments must be complete before a decision, unless an
	// admin forces one through.
	if !services.AllReviewsComplete(assignments) && !(req.Force && caller.IsAdmin()) {
		tx.Rollback()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   "not all reviews are complete",
		})
		return
	}

	updated, engineErr := services.TransitionProposal(proposal, call, services.ProposalTransitionRequest{
		Target: req.Decision,
		Caller: caller,
		Now:    now,
	})
	if engineErr != nil {
		tx.Rollback()
		respondEngineError(c, engineErr)
		return
	}

	result := tx.Model(&models.Proposal{}).
		Where("proposal_id = ? AND row_version = ?", proposal.ProposalID, proposal.RowVersion).
		Updates(map[string]interface{}{
			"status":      updated.Status,
			"updated_at":  now,
			"row_version": proposal.RowVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal was modified concurrently, refresh and retry"})
		return
	}

	if err := recordStatusHistory(tx, proposal.ProposalID, proposal.Status, updated.Status, caller.UserID, req.Reason, "decision"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log status history"})
		return
	}
	if err := writeAuditLog(tx, c, caller.UserID, "decision", "proposal", proposal.ProposalID, proposal.ProposalNumber,
		map[string]interface{}{"status": updated.Status, "reason": req.Reason}, "Decision recorded"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize decision"})
		return
	}

	var pi models.User
	if err := config.DB.Where("user_id = ?", proposal.PrincipalInvestigatorID).First(&pi).Error; err == nil {
		services.DefaultNotificationService().NotifyProposalStatusChanged(updated, &pi, proposal.Status)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "proposal": updated})
}

// transitionProposalStatus is the shared flow for single-field status moves.
func transitionProposalStatus(c *gin.Context, target, action, description string) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	proposal, call, _, loadErr := loadProposalSnapshot(tx, proposalID)
	if loadErr != nil {
		tx.Rollback()
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	updated, engineErr := services.TransitionProposal(proposal, call, services.ProposalTransitionRequest{
		Target: target,
		Caller: caller,
		Now:    now,
	})
	if engineErr != nil {
		tx.Rollback()
		respondEngineError(c, engineErr)
		return
	}

	result := tx.Model(&models.Proposal{}).
		Where("proposal_id = ? AND row_version = ?", proposal.ProposalID, proposal.RowVersion).
		Updates(map[string]interface{}{
			"status":      updated.Status,
			"updated_at":  now,
			"row_version": proposal.RowVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal was modified concurrently, refresh and retry"})
		return
	}

	if err := recordStatusHistory(tx, proposal.ProposalID, proposal.Status, updated.Status, caller.UserID, "", action); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log status history"})
		return
	}
	if err := writeAuditLog(tx, c, caller.UserID, action, "proposal", proposal.ProposalID, proposal.ProposalNumber,
		map[string]interface{}{"status": updated.Status}, description); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize transition"})
		return
	}

	var pi models.User
	if err := config.DB.Where("user_id = ?", proposal.PrincipalInvestigatorID).First(&pi).Error; err == nil {
		services.DefaultNotificationService().NotifyProposalStatusChanged(updated, &pi, proposal.Status)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "proposal": updated})
}

// ResubmitProposal creates the next version of a rejected proposal as a new
// draft; the rejected record stays untouched.
func ResubmitProposal(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	proposal, call, _, loadErr := loadProposalSnapshot(config.DB, proposalID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	next, engineErr := services.NewProposalVersion(proposal, call, caller, now)
	if engineErr != nil {
		respondEngineError(c, engineErr)
		return
	}
	next.ProposalNumber = generateProposalNumber()
	next.RowVersion = 1

	if err := config.DB.Create(next).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create resubmission"})
		return
	}

	if err := writeAuditLog(config.DB, c, caller.UserID, "resubmit", "proposal", next.ProposalID, next.ProposalNumber,
		map[string]interface{}{"previous_proposal_id": proposal.ProposalID, "version": next.Version},
		"Proposal resubmitted as new version"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "proposal": next})
}

// AddCollaborator invites a user onto a proposal.
func AddCollaborator(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	var req struct {
		UserID  int    `json:"user_id" binding:"required"`
		Role    string `json:"role"`
		CanEdit bool   `json:"can_edit"`
		CanView bool   `json:"can_view"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var proposal models.Proposal
	if err := config.DB.Preload("Collaborators").
		Where("proposal_id = ? AND deleted_at IS NULL", proposalID).
		First(&proposal).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}

	caller := middleware.CallerFromContext(c)
	if caller.UserID != proposal.PrincipalInvestigatorID && !caller.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the principal investigator may invite collaborators"})
		return
	}

	collaborator := models.ProposalCollaborator{
		ProposalID: proposal.ProposalID,
		UserID:     req.UserID,
		Role:       req.Role,
		CanEdit:    req.CanEdit,
		CanView:    req.CanView || req.CanEdit,
		InvitedAt:  time.Now(),
	}
	if err := config.DB.Create(&collaborator).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite collaborator"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "collaborator": collaborator})
}

// AcceptCollaboration marks the caller's pending invitation as accepted; only
// then does the collaborator gain access.
func AcceptCollaboration(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := time.Now()

	result := config.DB.Model(&models.ProposalCollaborator{}).
		Where("proposal_id = ? AND user_id = ? AND accepted_at IS NULL", proposalID, caller.UserID).
		Update("accepted_at", now)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending invitation found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "accepted_at": now})
}

// GetProposalScores aggregates review scores for decision makers.
func GetProposalScores(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	proposal, call, assignments, loadErr := loadProposalSnapshot(config.DB, proposalID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	var criteria []models.ReviewCriteria
	if err := config.DB.Where("program_id = ? AND deleted_at IS NULL", call.ProgramID).
		Find(&criteria).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load review criteria"})
		return
	}

	reviews := make([]models.Review, 0, len(assignments))
	for _, a := range assignments {
		if a.Review != nil && a.Status == models.AssignmentStatusCompleted {
			reviews = append(reviews, *a.Review)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"proposal_id":          proposal.ProposalID,
		"aggregate":            services.AggregateScores(reviews, criteria),
		"all_reviews_complete": services.AllReviewsComplete(assignments),
	})
}
