package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"grant-review-api/config"
	"grant-review-api/middleware"
	"grant-review-api/models"
	"grant-review-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var allowedDocumentTypes = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// UploadProposalDocument attaches a file to a draft proposal, optionally
// against one of the call's required document slots.
func UploadProposalDocument(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
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
		c.JSON(http.StatusConflict, gin.H{"error": "Documents can only be attached to draft proposals"})
		return
	}

	var requiredDocumentID *int
	if raw := c.PostForm("required_document_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid required document ID"})
			return
		}
		var required models.RequiredDocument
		if err := config.DB.Where("required_document_id = ? AND call_id = ? AND deleted_at IS NULL", id, proposal.CallID).
			First(&required).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Required document slot not found"})
			return
		}
		requiredDocumentID = &id
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	// Validate file size
	maxSize := int64(10 * 1024 * 1024) // 10MB
	if file.Size > maxSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds 10MB limit"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedDocumentTypes[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return
	}

	uploadPath := os.Getenv("UPLOAD_PATH")
	if uploadPath == "" {
		uploadPath = "./uploads"
	}
	proposalFolder := filepath.Join(uploadPath, fmt.Sprintf("proposal-%d", proposal.ProposalID))
	if err := os.MkdirAll(proposalFolder, os.ModePerm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload directory"})
		return
	}

	storedName := uuid.NewString() + ext
	fullPath := filepath.Join(proposalFolder, storedName)
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	document := models.ProposalDocument{
		ProposalID:         proposal.ProposalID,
		RequiredDocumentID: requiredDocumentID,
		OriginalName:       file.Filename,
		StoredPath:         fullPath,
		MimeType:           file.Header.Get("Content-Type"),
		UploadedBy:         caller.UserID,
		UploadedAt:         time.Now(),
	}
	if err := config.DB.Create(&document).Error; err != nil {
		// Keep the filesystem consistent with the database.
		os.Remove(fullPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save document record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "document": document})
}

// GetProposalDocuments lists attachments with the per-requirement completeness
// the submission guard will check.
func GetProposalDocuments(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}

	proposal, call, _, loadErr := loadProposalSnapshot(config.DB, proposalID)
	if loadErr != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}

	caller := middleware.CallerFromContext(c)
	if !services.CanViewProposal(caller, proposal) && !caller.IsStaff() && !caller.IsAdmin() {
		c.JSON(http.StatusNotFound, gin.H{"error": services.MsgProposalNotFound})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"documents":         proposal.Documents,
		"missing_documents": services.MissingRequiredDocuments(proposal, call),
	})
}

// DeleteProposalDocument soft-deletes an attachment from a draft proposal.
func DeleteProposalDocument(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("id"))
	if err != nil || proposalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
		return
	}
	documentID, err := strconv.Atoi(c.Param("document_id"))
	if err != nil || documentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
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
		c.JSON(http.StatusConflict, gin.H{"error": "Documents can only be removed from draft proposals"})
		return
	}

	result := config.DB.Model(&models.ProposalDocument{}).
		Where("proposal_document_id = ? AND proposal_id = ? AND deleted_at IS NULL", documentID, proposalID).
		Update("deleted_at", time.Now())
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
