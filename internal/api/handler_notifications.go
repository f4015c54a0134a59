package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/mw"
)

// GetNotifications handles GET /api/notifications. ?unseen=true limits the
// feed to unseen entries.
func (h *Handler) GetNotifications(c *gin.Context) {
	page, err := h.feed.List(c.Request.Context(), mw.WorkerID(c), c.Query("unseen") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MarkNotificationSeen handles POST /api/notifications/:id/seen.
func (h *Handler) MarkNotificationSeen(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	unread, err := h.feed.MarkSeen(c.Request.Context(), mw.WorkerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// ClearNotifications handles DELETE /api/notifications.
func (h *Handler) ClearNotifications(c *gin.Context) {
	if err := h.feed.ClearAll(c.Request.Context(), mw.WorkerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type syncNotificationsRequest struct {
	Items []model.Notification `json:"items"`
}

// SyncNotifications handles POST /api/notifications/sync.
func (h *Handler) SyncNotifications(c *gin.Context) {
	var req syncNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	page, err := h.feed.Sync(c.Request.Context(), mw.WorkerID(c), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
