package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/iap-event-logger/internal/auth"
	"github.com/PratikDhanave/iap-event-logger/internal/logging"
	"github.com/PratikDhanave/iap-event-logger/internal/models"
)

// maxBatchConcurrency bounds the fan-out of POST /transactions/batch.
const maxBatchConcurrency = 8

// TransactionLogger reports storefront transactions. Calls never fail.
type TransactionLogger interface {
	LogNewTransaction(ctx context.Context, tx models.RawTransaction)
	LogRestoredTransaction(ctx context.Context, tx models.RawTransaction)
}

// validateTransaction checks the fields every storefront payload carries.
func validateTransaction(tx models.RawTransaction) error {
	switch {
	case tx.TransactionID == "":
		return errors.New("transaction_id required")
	case tx.ProductID == "":
		return errors.New("product_id required")
	case tx.State == "":
		return errors.New("state required")
	case tx.Quantity < 0:
		return errors.New("quantity must not be negative")
	}
	return nil
}

// RegisterTransactionRoutes registers the ingestion-path endpoints.
//
// POST /transactions          - transaction from the purchase stream
// POST /transactions/restore  - transaction surfaced by a restore flow
// POST /transactions/batch    - launch-time burst of both kinds
//
// All of them answer 202 once the transaction has been processed. Whether it
// was reported or suppressed as a duplicate is not part of the response.
func RegisterTransactionRoutes(r gin.IRoutes, lg TransactionLogger) {
	r.POST("/transactions", func(c *gin.Context) {
		tx, ok := bindTransaction(c)
		if !ok {
			return
		}
		lg.LogNewTransaction(requestContext(c), tx)
		c.JSON(http.StatusAccepted, models.TransactionAcceptedResponse{Status: "accepted", Accepted: 1})
	})

	r.POST("/transactions/restore", func(c *gin.Context) {
		tx, ok := bindTransaction(c)
		if !ok {
			return
		}
		lg.LogRestoredTransaction(requestContext(c), tx)
		c.JSON(http.StatusAccepted, models.TransactionAcceptedResponse{Status: "accepted", Accepted: 1})
	})

	r.POST("/transactions/batch", func(c *gin.Context) {
		var req models.TransactionBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if len(req.New)+len(req.Restored) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch is empty"})
			return
		}
		for _, tx := range append(append([]models.RawTransaction{}, req.New...), req.Restored...) {
			if err := validateTransaction(tx); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "transaction_id": tx.TransactionID})
				return
			}
		}

		ctx := requestContext(c)
		g := new(errgroup.Group)
		g.SetLimit(maxBatchConcurrency)
		for _, tx := range req.New {
			tx := tx
			g.Go(func() error {
				lg.LogNewTransaction(ctx, tx)
				return nil
			})
		}
		for _, tx := range req.Restored {
			tx := tx
			g.Go(func() error {
				lg.LogRestoredTransaction(ctx, tx)
				return nil
			})
		}
		_ = g.Wait()

		c.JSON(http.StatusAccepted, models.TransactionAcceptedResponse{
			Status:   "accepted",
			Accepted: len(req.New) + len(req.Restored),
		})
	})
}

func bindTransaction(c *gin.Context) (models.RawTransaction, bool) {
	var tx models.RawTransaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return tx, false
	}
	if err := validateTransaction(tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return tx, false
	}
	return tx, true
}

// requestContext carries the request logger, tagged with the calling client,
// into the transaction logger and classifier.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	l := logging.FromContext(ctx).With().Str("client", auth.Client(c)).Logger()
	return logging.WithContext(ctx, l)
}
