package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"hotel-kitchen-backend/internal/mw"
)

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	JWTSecret       string
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Table status is cached until an event touches the table.
	statusCache := mw.NewResponseCache(cfg.CacheTTL)
	h.hub.AddListener(statusCache.OnEvent)

	r.GET("/healthz", h.Healthz)

	public := r.Group("/api")
	public.Use(rateLimiter)
	{
		public.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	api := r.Group("/api")
	api.Use(mw.Auth(cfg.JWTSecret), rateLimiter)
	{
		api.POST("/items/:id/accept", h.AcceptItem)
		api.POST("/items/:id/complete", h.CompleteItem)
		api.POST("/items/:id/reject", h.RejectItem)
		api.POST("/items/:id/serve", h.ServeItem)

		api.POST("/orders", h.CreateOrder)
		api.POST("/orders/:id/pay", h.PayOrder)
		api.POST("/messages", h.PostMessage)

		api.GET("/tables/:id/status", statusCache.Handler(), h.GetTableStatus)

		api.GET("/notifications", h.GetNotifications)
		api.POST("/notifications/:id/seen", h.MarkNotificationSeen)
		api.POST("/notifications/sync", h.SyncNotifications)
		api.DELETE("/notifications", h.ClearNotifications)

		api.GET("/events", h.StreamEvents)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
