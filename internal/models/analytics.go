package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsEvent is one event accepted by the analytics sink and written to
// the events table.
type AnalyticsEvent struct {
	ID         uuid.UUID
	Name       string
	ValueToSum float64
	Parameters map[string]string
	LoggedAt   time.Time
}

// EventCountResponse is returned by GET /events/count.
type EventCountResponse struct {
	EventName string `json:"event_name"`
	Count     int64  `json:"count"`
}

// LedgerResponse is returned by GET /ledger/:transaction_id.
type LedgerResponse struct {
	TransactionID string   `json:"transaction_id"`
	EventNames    []string `json:"event_names"`
}
