package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/iap-event-logger/internal/event"
	"github.com/PratikDhanave/iap-event-logger/internal/models"
	"github.com/PratikDhanave/iap-event-logger/internal/sink"
)

// Ledger exposes the event kinds recorded for a transaction ID.
type Ledger interface {
	Kinds(id string) []event.Kind
}

// Flusher triggers an explicit sink flush.
type Flusher interface {
	Flush(ctx context.Context, reason sink.FlushReason)
}

// RegisterAdminRoutes registers operator endpoints.
//
// POST /flush                    - write buffered events now
// GET  /ledger/:transaction_id   - kinds recorded for an original or concrete transaction ID
func RegisterAdminRoutes(r gin.IRoutes, ledger Ledger, f Flusher) {
	r.POST("/flush", func(c *gin.Context) {
		f.Flush(c.Request.Context(), sink.FlushReasonExplicit)
		c.JSON(http.StatusOK, gin.H{"status": "flushed"})
	})

	r.GET("/ledger/:transaction_id", func(c *gin.Context) {
		id := c.Param("transaction_id")
		kinds := ledger.Kinds(id)
		if len(kinds) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not recorded"})
			return
		}

		names := make([]string, 0, len(kinds))
		for _, k := range kinds {
			names = append(names, k.String())
		}
		c.JSON(http.StatusOK, models.LedgerResponse{TransactionID: id, EventNames: names})
	})
}
