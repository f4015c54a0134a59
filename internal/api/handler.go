package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"hotel-kitchen-backend/internal/hub"
	"hotel-kitchen-backend/internal/kitchen"
	"hotel-kitchen-backend/internal/notification"
	"hotel-kitchen-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	kitchen   *kitchen.Service
	feed      *notification.Feed
	hub       *hub.Hub
	webpush   *webpush.Options
	heartbeat time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, svc *kitchen.Service, feed *notification.Feed, h *hub.Hub, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:     s,
		kitchen:   svc,
		feed:      feed,
		hub:       h,
		webpush:   webpushOptions,
		heartbeat: 25 * time.Second,
	}
}

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_state", "detail": err.Error()})
	case errors.Is(err, store.ErrItemTaken):
		c.JSON(http.StatusConflict, gin.H{"error": store.ErrItemTaken.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, kitchen.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
