package handlers

import (
	"net/http"
	"strconv"

	"teemarker/services/notification"
	"teemarker/utils"

	"github.com/gin-gonic/gin"
)

const defaultNotificationLimit = 50

type NotificationHandler struct {
	Service notification.NotificationService
}

func NewNotificationHandler(svc notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: svc}
}

func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	limit := int64(defaultNotificationLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid limit", raw)
			return
		}
		limit = n
	}
	notifications, err := h.Service.ListForUser(c.Request.Context(), user.ID, limit)
	if err != nil {
		storeError(c, err, "", "Failed to fetch notifications")
		return
	}
	ok(c, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkNotificationHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	if err := h.Service.MarkRead(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		storeError(c, err, "Notification not found", "Failed to update notification")
		return
	}
	ok(c, http.StatusOK, gin.H{"id": c.Param("id"), "isRead": true})
}
