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

type AssignmentRequest struct {
	ProposalID int        `json:"proposal_id" binding:"required"`
	ReviewerID int        `json:"reviewer_id" binding:"required"`
	DueDate    *time.Time `json:"due_date"`
}

type ReviewContentRequest struct {
	OverallScore        *float64 `json:"overall_score"`
	Summary             *string  `json:"summary"`
	Strengths           *string  `json:"strengths"`
	Weaknesses          *string  `json:"weaknesses"`
	CommentsToAuthors   *string  `json:"comments_to_authors"`
	CommentsToCommittee *string  `json:"comments_to_committee"`
	Recommendation      *string  `json:"recommendation"`
	Scores              []struct {
		CriteriaID int     `json:"criteria_id" binding:"required"`
		Score      float64 `json:"score"`
		Comments   *string `json:"comments"`
	} `json:"scores"`
	RowVersion int `json:"row_version"`
}

// CreateAssignment pairs a reviewer with a proposal. Area chairs and program
// officers only; a reviewer holds at most one live assignment per proposal.
func CreateAssignment(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.CallerFromContext(c)

	var proposal models.Proposal
	if err := config.DB.Where("proposal_id = ? AND deleted_at IS NULL", req.ProposalID).
		First(&proposal).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}
	if proposal.Status != models.ProposalStatusSubmitted && proposal.Status != models.ProposalStatusUnderReview {
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal is not in a reviewable state"})
		return
	}

	var reviewer models.User
	if err := config.DB.Preload("Roles").
		Where("user_id = ? AND delete_at IS NULL", req.ReviewerID).
		First(&reviewer).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reviewer not found"})
		return
	}
	if reviewer.UserID == proposal.PrincipalInvestigatorID {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "A principal investigator cannot review their own proposal"})
		return
	}

	var existing []models.ReviewAssignment
	config.DB.Where("proposal_id = ?", req.ProposalID).Find(&existing)
	if services.HasOpenAssignment(existing, req.ReviewerID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Reviewer already has an open assignment for this proposal"})
		return
	}

	now := requestNow(c)
	assignment := models.ReviewAssignment{
		ProposalID: req.ProposalID,
		ReviewerID: req.ReviewerID,
		Status:     models.AssignmentStatusPending,
		AssignedBy: caller.UserID,
		AssignedAt: now,
		DueDate:    req.DueDate,
		RowVersion: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx := config.DB.Begin()
	if err := tx.Create(&assignment).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create assignment"})
		return
	}
	if err := writeAuditLog(tx, c, caller.UserID, "assign_reviewer", "review_assignment",
		assignment.AssignmentID, proposal.ProposalNumber,
		map[string]interface{}{"reviewer_id": req.ReviewerID, "due_date": req.DueDate},
		"Reviewer assigned"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize assignment"})
		return
	}

	services.DefaultNotificationService().NotifyReviewAssigned(&assignment, &reviewer, &proposal)

	c.JSON(http.StatusCreated, gin.H{"success": true, "assignment": assignment})
}

// GetMyAssignments lists the caller's review assignments.
func GetMyAssignments(c *gin.Context) {
	caller := middleware.CallerFromContext(c)

	query := config.DB.Preload("Proposal").Preload("Review").
		Where("reviewer_id = ? AND deleted_at IS NULL", caller.UserID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var assignments []models.ReviewAssignment
	if err := query.Order("assigned_at DESC").Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// AcceptAssignment moves the caller's pending assignment to in_progress. When
// the proposal is still in submitted, the acceptance also moves it to
// under_review inside the same transaction.
func AcceptAssignment(c *gin.Context) {
	assignmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil || assignmentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
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

	var assignment models.ReviewAssignment
	if err := tx.Where("assignment_id = ? AND deleted_at IS NULL", assignmentID).
		First(&assignment).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	var proposal models.Proposal
	if err := tx.Where("proposal_id = ? AND deleted_at IS NULL", assignment.ProposalID).
		First(&proposal).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}
	var call models.CallForProposal
	if err := tx.Where("call_id = ?", proposal.CallID).First(&call).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load call"})
		return
	}

	updated, _, engineErr := services.TransitionReviewAssignment(
		&assignment, nil, &call, models.AssignmentStatusInProgress, caller, now)
	if engineErr != nil {
		tx.Rollback()
		respondEngineError(c, engineErr)
		return
	}

	result := tx.Model(&models.ReviewAssignment{}).
		Where("assignment_id = ? AND row_version = ?", assignment.AssignmentID, assignment.RowVersion).
		Updates(map[string]interface{}{
			"status":      updated.Status,
			"accepted_at": updated.AcceptedAt,
			"updated_at":  now,
			"row_version": assignment.RowVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update assignment"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment was modified concurrently, refresh and retry"})
		return
	}

	// First acceptance pulls the proposal into the review phase.
	if services.ShouldStartReview(&proposal, models.AssignmentStatusInProgress) {
		if err := tx.Model(&models.Proposal{}).
			Where("proposal_id = ? AND status = ?", proposal.ProposalID, models.ProposalStatusSubmitted).
			Updates(map[string]interface{}{
				"status":      models.ProposalStatusUnderReview,
				"updated_at":  now,
				"row_version": gorm.Expr("row_version + 1"),
			}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
			return
		}
		if err := recordStatusHistory(tx, proposal.ProposalID, models.ProposalStatusSubmitted,
			models.ProposalStatusUnderReview, caller.UserID, "", "first assignment accepted"); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log status history"})
			return
		}
	}

	// Open an empty review shell so edits have a row to land on.
	review := models.Review{
		AssignmentID: assignment.AssignmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Where("assignment_id = ?", assignment.AssignmentID).
		FirstOrCreate(&review).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open review"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize acceptance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": updated})
}

// CancelAssignment cancels a live assignment. Area chairs and program officers
// only.
func CancelAssignment(c *gin.Context) {
	assignmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil || assignmentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	var assignment models.ReviewAssignment
	if err := config.DB.Where("assignment_id = ? AND deleted_at IS NULL", assignmentID).
		First(&assignment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	updated, _, engineErr := services.TransitionReviewAssignment(
		&assignment, nil, nil, models.AssignmentStatusCancelled, caller, now)
	if engineErr != nil {
		respondEngineError(c, engineErr)
		return
	}

	result := config.DB.Model(&models.ReviewAssignment{}).
		Where("assignment_id = ? AND row_version = ?", assignment.AssignmentID, assignment.RowVersion).
		Updates(map[string]interface{}{
			"status":      updated.Status,
			"updated_at":  now,
			"row_version": assignment.RowVersion + 1,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel assignment"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment was modified concurrently, refresh and retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": updated})
}

// UpdateReview saves draft review content. Edits stop once the assignment
// completes or the review deadline passes.
func UpdateReview(c *gin.Context) {
	assignmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil || assignmentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	var req ReviewContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	assignment, review, call, loadErr := loadAssignmentWithReview(config.DB, assignmentID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load assignment"})
		return
	}

	if engineErr := services.CanEditReview(assignment, call, caller, now); engineErr != nil {
		respondEngineError(c, engineErr)
		return
	}

	tx := config.DB.Begin()
	if err := applyReviewContent(tx, review, &req, now); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save review"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "review": review})
}

// SubmitReview finalizes the review and completes the assignment.
func SubmitReview(c *gin.Context) {
	assignmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil || assignmentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	var req ReviewContentRequest
	// The body is optional; reviewers may submit previously saved content.
	_ = c.ShouldBindJSON(&req)

	caller := middleware.CallerFromContext(c)
	now := requestNow(c)

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	assignment, review, call, loadErr := loadAssignmentWithReview(tx, assignmentID)
	if loadErr != nil {
		tx.Rollback()
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load assignment"})
		return
	}

	// Fold any last edits into the content before the completion guards run.
	if engineErr := services.CanEditReview(assignment, call, caller, now); engineErr != nil {
		// Admins completing late skip the edit gate; everyone else stops here.
		if !(caller.IsAdmin() && services.KindOf(engineErr) == services.ErrKindDeadlineExceeded) {
			tx.Rollback()
			respondEngineError(c, engineErr)
			return
		}
	}
	if err := applyReviewContent(tx, review, &req, now); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save review"})
		return
	}

	updatedAssignment, completedReview, engineErr := services.TransitionReviewAssignment(
		assignment, review, call, models.AssignmentStatusCompleted, caller, now)
	if engineErr != nil {
		tx.Rollback()
		respondEngineError(c, engineErr)
		return
	}

	result := tx.Model(&models.ReviewAssignment{}).
		Where("assignment_id = ? AND row_version = ?", assignment.AssignmentID, assignment.RowVersion).
		Updates(map[string]interface{}{
			"status":      updatedAssignment.Status,
			"updated_at":  now,
			"row_version": assignment.RowVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update assignment"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment was modified concurrently, refresh and retry"})
		return
	}

	if err := tx.Model(&models.Review{}).
		Where("review_id = ?", review.ReviewID).
		Updates(map[string]interface{}{
			"is_complete":  true,
			"submitted_at": completedReview.SubmittedAt,
			"updated_at":   now,
		}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize review"})
		return
	}

	var proposal models.Proposal
	if err := tx.Where("proposal_id = ?", assignment.ProposalID).First(&proposal).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}
	if err := writeAuditLog(tx, c, caller.UserID, "submit_review", "review_assignment",
		assignment.AssignmentID, proposal.ProposalNumber,
		map[string]interface{}{"status": updatedAssignment.Status, "overall_score": review.OverallScore},
		"Review submitted"); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize submission"})
		return
	}

	var officer models.User
	if err := config.DB.Where("user_id = ?", assignment.AssignedBy).First(&officer).Error; err == nil {
		services.DefaultNotificationService().NotifyReviewSubmitted(updatedAssignment, &officer, &proposal)
	} else {
		services.DefaultNotificationService().NotifyReviewSubmitted(updatedAssignment, nil, &proposal)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"assignment": updatedAssignment,
		"review":     completedReview,
	})
}

// GetAssignmentReview returns the review content for an assignment the caller
// owns, or any assignment for staff.
func GetAssignmentReview(c *gin.Context) {
	assignmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil || assignmentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	assignment, review, _, loadErr := loadAssignmentWithReview(config.DB, assignmentID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load assignment"})
		return
	}

	caller := middleware.CallerFromContext(c)
	if caller.UserID != assignment.ReviewerID && !caller.IsStaff() && !caller.IsAdmin() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"assignment": assignment,
		"review":     review,
	})
}

// loadAssignmentWithReview fetches an assignment, its review row and the
// governing call in one pass.
func loadAssignmentWithReview(db *gorm.DB, assignmentID int) (*models.ReviewAssignment, *models.Review, *models.CallForProposal, error) {
	var assignment models.ReviewAssignment
	if err := db.Preload("Review").Preload("Review.Scores").
		Where("assignment_id = ? AND deleted_at IS NULL", assignmentID).
		First(&assignment).Error; err != nil {
		return nil, nil, nil, err
	}

	var proposal models.Proposal
	if err := db.Select("proposal_id", "call_id").
		Where("proposal_id = ?", assignment.ProposalID).
		First(&proposal).Error; err != nil {
		return nil, nil, nil, err
	}
	var call models.CallForProposal
	if err := db.Where("call_id = ?", proposal.CallID).First(&call).Error; err != nil {
		return nil, nil, nil, err
	}

	review := assignment.Review
	if review == nil {
		review = &models.Review{AssignmentID: assignment.AssignmentID}
	}
	return &assignment, review, &call, nil
}

// applyReviewContent merges the request payload into the review row and
// replaces the per-criteria scores when the payload carries them.
func applyReviewContent(tx *gorm.DB, review *models.Review, req *ReviewContentRequest, now time.Time) error {
	if req.OverallScore != nil {
		review.OverallScore = req.OverallScore
	}
	if req.Summary != nil {
		review.Summary = utils.SanitizeInput(*req.Summary)
	}
	if req.Strengths != nil {
		review.Strengths = utils.SanitizeInput(*req.Strengths)
	}
	if req.Weaknesses != nil {
		review.Weaknesses = utils.SanitizeInput(*req.Weaknesses)
	}
	if req.CommentsToAuthors != nil {
		sanitized := utils.SanitizeInput(*req.CommentsToAuthors)
		review.CommentsToAuthors = &sanitized
	}
	if req.CommentsToCommittee != nil {
		sanitized := utils.SanitizeInput(*req.CommentsToCommittee)
		review.CommentsToCommittee = &sanitized
	}
	if req.Recommendation != nil {
		review.Recommendation = req.Recommendation
	}
	review.UpdatedAt = now

	if err := tx.Save(review).Error; err != nil {
		return err
	}

	if req.Scores != nil {
		if err := tx.Where("review_id = ?", review.ReviewID).
			Delete(&models.ReviewScore{}).Error; err != nil {
			return err
		}
		scores := make([]models.ReviewScore, 0, len(req.Scores))
		for _, s := range req.Scores {
			scores = append(scores, models.ReviewScore{
				ReviewID:   review.ReviewID,
				CriteriaID: s.CriteriaID,
				Score:      s.Score,
				Comments:   s.Comments,
			})
		}
		if len(scores) > 0 {
			if err := tx.Create(&scores).Error; err != nil {
				return err
			}
		}
		review.Scores = scores
	}
	return nil
}
