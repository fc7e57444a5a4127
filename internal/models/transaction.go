package models

import "time"

// Storefront transaction states as delivered by the client SDK.
const (
	StatePurchasing = "purchasing"
	StatePurchased  = "purchased"
	StateFailed     = "failed"
	StateRestored   = "restored"
	StateDeferred   = "deferred"
)

// Introductory offer payment modes.
const (
	OfferFreeTrial  = "free_trial"
	OfferPayAsYouGo = "pay_as_you_go"
	OfferPayUpFront = "pay_up_front"
)

// RawTransaction is the storefront transaction payload accepted by
// POST /transactions and POST /transactions/restore.
// original_transaction_id defaults to transaction_id when omitted.
type RawTransaction struct {
	TransactionID         string     `json:"transaction_id"`
	OriginalTransactionID string     `json:"original_transaction_id,omitempty"`
	ProductID             string     `json:"product_id"`
	Quantity              int        `json:"quantity,omitempty"`
	State                 string     `json:"state"`
	PurchaseDate          *time.Time `json:"purchase_date,omitempty"`
	RevocationDate        *time.Time `json:"revocation_date,omitempty"`
	// OfferType is set when the transaction redeemed an introductory offer.
	OfferType string `json:"offer_type,omitempty"`
}

// Lineage returns the original transaction ID, falling back to the
// transaction's own ID for first purchases.
func (t RawTransaction) Lineage() string {
	if t.OriginalTransactionID != "" {
		return t.OriginalTransactionID
	}
	return t.TransactionID
}

// TransactionBatchRequest is the POST /transactions/batch payload. Launch-time
// replays deliver many unfinished transactions at once.
type TransactionBatchRequest struct {
	New      []RawTransaction `json:"new"`
	Restored []RawTransaction `json:"restored"`
}

// TransactionAcceptedResponse is returned by the transaction endpoints.
// Logging is best-effort so the response never reports whether the
// transaction was reported or suppressed.
type TransactionAcceptedResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}
