package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-kitchen-backend/internal/kitchen"
	"hotel-kitchen-backend/internal/mw"
)

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req kitchen.OpenOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	order, err := h.kitchen.OpenOrder(c.Request.Context(), mw.WorkerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// PayOrder handles POST /api/orders/:id/pay.
func (h *Handler) PayOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.kitchen.PayOrder(c.Request.Context(), orderID, mw.WorkerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type postMessageRequest struct {
	DepartmentID int64  `json:"departmentId" binding:"required"`
	Message      string `json:"message" binding:"required"`
}

// PostMessage handles POST /api/messages.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.kitchen.Announce(c.Request.Context(), mw.WorkerID(c), req.DepartmentID, req.Message); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
