package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/iap-event-logger/internal/models"
)

// EventCounter counts events already written by the analytics sink.
type EventCounter interface {
	CountEvents(ctx context.Context, eventName string, from, to time.Time) (int64, error)
}

// RegisterCountRoutes registers the serving-path endpoint.
//
// GET /events/count?event_name=...&from=...&to=...
// - Requires X-API-Key
// - Returns count for the window [from,to)
func RegisterCountRoutes(r gin.IRoutes, st EventCounter) {
	r.GET("/events/count", func(c *gin.Context) {
		eventName := c.Query("event_name")
		fromStr := c.Query("from")
		toStr := c.Query("to")

		// Required query params per contract.
		if eventName == "" || fromStr == "" || toStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_name, from, to are required"})
			return
		}

		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}

		from = from.UTC()
		to = to.UTC()

		// Validate window to avoid confusing results.
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be < to"})
			return
		}

		count, err := st.CountEvents(c.Request.Context(), eventName, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, models.EventCountResponse{
			EventName: eventName,
			Count:     count,
		})
	})
}
