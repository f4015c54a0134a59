package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTableStatus handles GET /api/tables/:id/status.
func (h *Handler) GetTableStatus(c *gin.Context) {
	tableID, ok := idParam(c, "id")
	if !ok {
		return
	}

	st, err := h.kitchen.TableStatus(c.Request.Context(), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
