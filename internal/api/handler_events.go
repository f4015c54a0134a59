package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-kitchen-backend/internal/mw"
)

// StreamEvents handles GET /api/events as a server-sent event stream bound
// to the caller's session.
func (h *Handler) StreamEvents(c *gin.Context) {
	workerID := mw.WorkerID(c)
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = fmt.Sprintf("w%d-%d", workerID, time.Now().UnixNano())
	}

	sess, err := h.hub.Subscribe(c.Request.Context(), sessionID, workerID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer h.hub.Unsubscribe(sess)
	log.Printf("session %s opened for worker %d", sessionID, workerID)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.SSEvent("ready", gin.H{"session": sessionID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case e := <-sess.Events():
			c.SSEvent(string(e.Type), e)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-sess.Done():
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
	log.Printf("session %s closed", sessionID)
}
