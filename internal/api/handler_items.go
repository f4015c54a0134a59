package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/mw"
)

type itemCommand func(ctx context.Context, itemID, workerID int64) (*model.OrderItem, error)

func (h *Handler) runItemCommand(cmd itemCommand) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := idParam(c, "id")
		if !ok {
			return
		}

		item, err := cmd(c.Request.Context(), itemID, mw.WorkerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// AcceptItem handles POST /api/items/:id/accept.
func (h *Handler) AcceptItem(c *gin.Context) { h.runItemCommand(h.kitchen.Accept)(c) }

// CompleteItem handles POST /api/items/:id/complete.
func (h *Handler) CompleteItem(c *gin.Context) { h.runItemCommand(h.kitchen.Complete)(c) }

// RejectItem handles POST /api/items/:id/reject.
func (h *Handler) RejectItem(c *gin.Context) { h.runItemCommand(h.kitchen.Reject)(c) }

// ServeItem handles POST /api/items/:id/serve.
func (h *Handler) ServeItem(c *gin.Context) { h.runItemCommand(h.kitchen.MarkServed)(c) }
