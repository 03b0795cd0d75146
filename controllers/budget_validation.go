package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"grant-review-api/config"
	"grant-review-api/middleware"
	"grant-review-api/models"
	"grant-review-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ValidateProposalBudget runs the budget rules against the proposal's current
// items without touching any state. Owners, collaborators and staff only.
func ValidateProposalBudget(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	proposal, call, _, loadErr := loadProposalSnapshot(config.DB, proposalID)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load proposal"})
		return
	}

	caller := middleware.CallerFromContext(c)
	if !services.CanViewProposal(caller, proposal) && !caller.IsStaff() {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}

	var caps []models.CategoryCap
	config.DB.Where("program_id = ?", call.ProgramID).Find(&caps)

	ceiling := services.ResolveBudgetCeiling(proposal, call)
	result := services.ValidateBudget(proposal.BudgetItems, ceiling, caps)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"validation": result,
	})
}

// ValidateBudgetDraft validates a budget payload that has not been saved yet,
// so the authoring UI can surface errors while the author is still typing.
func ValidateBudgetDraft(c *gin.Context) {
	var req struct {
		CallID  int      `json:"call_id" binding:"required"`
		Ceiling *float64 `json:"ceiling"`
		Items   []struct {
			Category string  `json:"category" binding:"required"`
			Year     int     `json:"year"`
			Amount   float64 `json:"amount"`
		} `json:"items" binding:"required"`
	}
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

	var caps []models.CategoryCap
	config.DB.Where("program_id = ?", call.ProgramID).Find(&caps)

	items := make([]models.BudgetItem, 0, len(req.Items))
	for _, item := range req.Items {
		if !models.IsBudgetCategoryValid(item.Category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget category: " + item.Category})
			return
		}
		items = append(items, models.BudgetItem{
			Category: item.Category,
			Year:     item.Year,
			Amount:   item.Amount,
		})
	}

	ceiling := services.DefaultBudgetCeiling
	if req.Ceiling != nil && *req.Ceiling > 0 {
		ceiling = *req.Ceiling
	} else if call.TotalBudget != nil && *call.TotalBudget > 0 {
		ceiling = *call.TotalBudget
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"validation": services.ValidateBudget(items, ceiling, caps),
	})
}
