// Package classifier turns raw storefront transactions into semantic
// analytics events.
package classifier

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/PratikDhanave/iap-event-logger/internal/catalog"
	"github.com/PratikDhanave/iap-event-logger/internal/event"
	"github.com/PratikDhanave/iap-event-logger/internal/logging"
	"github.com/PratikDhanave/iap-event-logger/internal/models"
)

// Resolver classifies raw transactions. Both methods may block on product
// lookups and return false when the transaction is not reportable.
type Resolver interface {
	ResolveNewEvent(ctx context.Context, tx models.RawTransaction) (*event.Event, bool)
	ResolveRestoredEvent(ctx context.Context, tx models.RawTransaction) (*event.Event, bool)
}

// ProductSource looks up storefront product metadata.
type ProductSource interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
}

// CatalogResolver classifies transactions against a product catalog.
type CatalogResolver struct {
	products ProductSource
}

var _ Resolver = (*CatalogResolver)(nil)

func NewCatalogResolver(products ProductSource) *CatalogResolver {
	return &CatalogResolver{products: products}
}

// ResolveNewEvent classifies a transaction from the purchase stream.
// Purchased transactions map to Purchased, Subscribe or StartTrial; failed
// ones to the matching failure kind. Anything else is not reportable.
func (r *CatalogResolver) ResolveNewEvent(ctx context.Context, tx models.RawTransaction) (*event.Event, bool) {
	p, ok := r.lookup(ctx, tx)
	if !ok {
		return nil, false
	}

	var kind event.Kind
	startTrial := false
	switch tx.State {
	case models.StatePurchased:
		switch {
		case !p.IsSubscription():
			kind = event.Purchased
		case isFreeTrialRedemption(tx, p):
			kind = event.StartTrial
			startTrial = true
		default:
			kind = event.Subscribe
		}
	case models.StateFailed:
		kind = event.PurchaseFailed
		if p.IsSubscription() {
			kind = event.SubscribeFailed
		}
	default:
		return nil, false
	}

	return build(kind, tx, p, startTrial), true
}

// ResolveRestoredEvent classifies a transaction surfaced by a restore flow.
func (r *CatalogResolver) ResolveRestoredEvent(ctx context.Context, tx models.RawTransaction) (*event.Event, bool) {
	if tx.State != models.StatePurchased && tx.State != models.StateRestored {
		return nil, false
	}
	p, ok := r.lookup(ctx, tx)
	if !ok {
		return nil, false
	}

	kind := event.PurchaseRestored
	if p.IsSubscription() {
		kind = event.SubscribeRestore
	}
	return build(kind, tx, p, false), true
}

func (r *CatalogResolver) lookup(ctx context.Context, tx models.RawTransaction) (catalog.Product, bool) {
	if tx.TransactionID == "" || tx.ProductID == "" || tx.Quantity < 0 {
		return catalog.Product{}, false
	}
	if tx.RevocationDate != nil {
		return catalog.Product{}, false
	}

	p, err := r.products.Product(ctx, tx.ProductID)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("transaction_id", tx.TransactionID).
			Str("product_id", tx.ProductID).
			Msg("product lookup failed")
		return catalog.Product{}, false
	}
	return p, true
}

func isFreeTrialRedemption(tx models.RawTransaction, p catalog.Product) bool {
	return p.IntroductoryOffer != nil &&
		p.IntroductoryOffer.Mode == models.OfferFreeTrial &&
		tx.OfferType == models.OfferFreeTrial
}

func build(kind event.Kind, tx models.RawTransaction, p catalog.Product, startTrial bool) *event.Event {
	qty := tx.Quantity
	if qty == 0 {
		qty = 1
	}

	amount := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	if startTrial {
		amount = p.IntroductoryOffer.Price
	}

	ev := &event.Event{
		Name:                  kind,
		TransactionID:         tx.TransactionID,
		OriginalTransactionID: tx.Lineage(),
		Amount:                amount,
		Currency:              p.Currency,
		Quantity:              qty,
		ProductID:             p.ID,
		ProductTitle:          p.Title,
		ProductDescription:    p.Description,
		TransactionDate:       tx.PurchaseDate,
		IsSubscription:        p.IsSubscription(),
		IsStartTrial:          startTrial,
	}

	if ev.IsSubscription {
		ev.SubscriptionPeriod = p.SubscriptionPeriod.EventPeriod()
		if o := p.IntroductoryOffer; o != nil {
			price := o.Price
			ev.HasIntroductoryOffer = true
			ev.HasFreeTrial = o.Mode == models.OfferFreeTrial
			ev.IntroductoryOfferSubscriptionPeriod = o.Period.EventPeriod()
			ev.IntroductoryOfferPrice = &price
		}
	}

	return ev
}
