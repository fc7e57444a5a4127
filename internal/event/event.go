package event

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the analytics event name reported for a storefront transaction.
type Kind string

const (
	Purchased        Kind = "fb_mobile_purchase"
	PurchaseRestored Kind = "fb_mobile_purchase_restored"
	PurchaseFailed   Kind = "fb_mobile_purchase_failed"
	Subscribe        Kind = "Subscribe"
	StartTrial       Kind = "StartTrial"
	SubscribeRestore Kind = "SubscriptionRestore"
	SubscribeFailed  Kind = "SubscriptionFailed"
)

// IsSubscription reports whether k belongs to the subscription family.
func (k Kind) IsSubscription() bool {
	switch k {
	case Subscribe, StartTrial, SubscribeRestore, SubscribeFailed:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// PeriodUnit is the single-letter ISO-8601 duration designator.
type PeriodUnit string

const (
	Day   PeriodUnit = "D"
	Week  PeriodUnit = "W"
	Month PeriodUnit = "M"
	Year  PeriodUnit = "Y"
)

// Valid reports whether u is one of the known units.
func (u PeriodUnit) Valid() bool {
	switch u {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// Period is a subscription or introductory offer length, e.g. 1 month.
type Period struct {
	Unit  PeriodUnit
	Count int
}

// Duration renders the period as "P<count><unit>". A nil period renders as "".
func (p *Period) Duration() string {
	if p == nil {
		return ""
	}
	return "P" + strconv.Itoa(p.Count) + string(p.Unit)
}

// Event is the semantic, reportable form of a storefront transaction.
// Values are produced by a classifier and not modified afterwards.
type Event struct {
	Name                  Kind
	TransactionID         string
	OriginalTransactionID string
	Amount                decimal.Decimal
	Currency              string
	Quantity              int
	ProductID             string
	ProductTitle          string
	ProductDescription    string
	TransactionDate       *time.Time

	IsSubscription                      bool
	SubscriptionPeriod                  *Period
	IsStartTrial                        bool
	HasIntroductoryOffer                bool
	HasFreeTrial                        bool
	IntroductoryOfferSubscriptionPeriod *Period
	IntroductoryOfferPrice              *decimal.Decimal
}
