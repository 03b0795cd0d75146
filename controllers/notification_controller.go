package controllers

import (
	"net/http"
	"strconv"
	"time"

	"grant-review-api/config"
	"grant-review-api/middleware"
	"grant-review-api/models"

	"github.com/gin-gonic/gin"
)

// GetMyNotifications lists the caller's notifications, newest first.
func GetMyNotifications(c *gin.Context) {
	caller := middleware.CallerFromContext(c)

	query := config.DB.Where("user_id = ?", caller.UserID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("create_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	var unread int64
	config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", caller.UserID, false).
		Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(c *gin.Context) {
	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || notificationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	caller := middleware.CallerFromContext(c)
	now := time.Now()

	result := config.DB.Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", notificationID, caller.UserID).
		Updates(map[string]interface{}{"is_read": true, "update_at": now})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead marks every unread notification for the caller.
func MarkAllNotificationsRead(c *gin.Context) {
	caller := middleware.CallerFromContext(c)
	now := time.Now()

	result := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", caller.UserID, false).
		Updates(map[string]interface{}{"is_read": true, "update_at": now})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": result.RowsAffected})
}
