package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/PratikDhanave/iap-event-logger/internal/event"
)

// ErrUnknownProduct is returned when a product ID is not in the catalog.
var ErrUnknownProduct = errors.New("unknown product")

// Product types as configured in the storefront.
const (
	TypeConsumable    = "consumable"
	TypeNonConsumable = "non_consumable"
	TypeAutoRenewable = "auto_renewable"
	TypeNonRenewing   = "non_renewing"
)

// Period is the YAML form of a subscription period.
type Period struct {
	Unit  string `yaml:"unit"`
	Count int    `yaml:"count"`
}

// IntroductoryOffer describes the introductory price of a subscription.
type IntroductoryOffer struct {
	Mode   string          `yaml:"mode"`
	Price  decimal.Decimal `yaml:"price"`
	Period *Period         `yaml:"period"`
}

// Product is the storefront metadata needed to classify a transaction.
type Product struct {
	ID                 string             `yaml:"id"`
	Title              string             `yaml:"title"`
	Description        string             `yaml:"description"`
	Price              decimal.Decimal    `yaml:"price"`
	Currency           string             `yaml:"currency"`
	Type               string             `yaml:"type"`
	SubscriptionPeriod *Period            `yaml:"subscription_period"`
	IntroductoryOffer  *IntroductoryOffer `yaml:"introductory_offer"`
}

// IsSubscription reports whether the product renews automatically.
func (p Product) IsSubscription() bool {
	return p.Type == TypeAutoRenewable
}

// EventPeriod converts a YAML period to the event form. Nil stays nil.
func (p *Period) EventPeriod() *event.Period {
	if p == nil {
		return nil
	}
	return &event.Period{Unit: event.PeriodUnit(p.Unit), Count: p.Count}
}

type file struct {
	Products []Product `yaml:"products"`
}

// Catalog is an immutable, in-memory product catalog.
type Catalog struct {
	products map[string]Product
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{products: make(map[string]Product, len(f.Products))}
	for i, p := range f.Products {
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		c.products[p.ID] = p
	}
	return c, nil
}

func validate(p Product) error {
	if p.ID == "" {
		return errors.New("id required")
	}
	switch p.Type {
	case TypeConsumable, TypeNonConsumable, TypeNonRenewing:
	case TypeAutoRenewable:
		if err := validatePeriod(p.SubscriptionPeriod); err != nil {
			return fmt.Errorf("subscription_period: %w", err)
		}
	default:
		return fmt.Errorf("unsupported type %q", p.Type)
	}
	if o := p.IntroductoryOffer; o != nil {
		switch o.Mode {
		case "free_trial", "pay_as_you_go", "pay_up_front":
		default:
			return fmt.Errorf("introductory_offer: unsupported mode %q", o.Mode)
		}
		if o.Period != nil {
			if err := validatePeriod(o.Period); err != nil {
				return fmt.Errorf("introductory_offer.period: %w", err)
			}
		}
	}
	return nil
}

func validatePeriod(p *Period) error {
	if p == nil {
		return errors.New("required")
	}
	if !event.PeriodUnit(p.Unit).Valid() {
		return fmt.Errorf("unsupported unit %q", p.Unit)
	}
	if p.Count < 1 {
		return errors.New("count must be positive")
	}
	return nil
}

// Product looks up a product by ID. The context is accepted so remote
// catalog implementations can share the signature.
func (c *Catalog) Product(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	p, ok := c.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	return p, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
