package txlog

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/PratikDhanave/iap-event-logger/internal/event"
)

func TestBuildParameters_Product(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	ev := &event.Event{
		Name:               event.Purchased,
		TransactionID:      "t1",
		Amount:             decimal.RequireFromString("2.97"),
		Currency:           "USD",
		Quantity:           3,
		ProductID:          "coins.100",
		ProductTitle:       "100 Coins",
		ProductDescription: "A pile of coins",
		TransactionDate:    &date,
	}

	value, params := BuildParameters(ev)

	assert.Equal(t, 2.97, value)
	assert.Equal(t, map[string]string{
		ParamContentID:          "coins.100",
		ParamNumItems:           "3",
		ParamTransactionDate:    "2024-03-01 12:30:45+0000",
		ParamCurrency:           "USD",
		ParamImplicitlyLogged:   "1",
		ParamProductTitle:       "100 Coins",
		ParamProductDescription: "A pile of coins",
		ParamTransactionID:      "t1",
		ParamProductType:        "inapp",
	}, params)
}

func TestBuildParameters_OptionalFieldsAbsent(t *testing.T) {
	_, params := BuildParameters(&event.Event{Name: event.Purchased, ProductID: "p", Quantity: 1})

	assert.Equal(t, "", params[ParamTransactionDate])
	assert.Equal(t, "", params[ParamCurrency])
	assert.NotContains(t, params, ParamProductTitle)
	assert.NotContains(t, params, ParamProductDescription)
	assert.NotContains(t, params, ParamTransactionID)
	assert.NotContains(t, params, ParamSubsPeriod)
}

func TestBuildParameters_Subscription(t *testing.T) {
	trialPrice := decimal.RequireFromString("0.49")

	t.Run("with introductory offer", func(t *testing.T) {
		ev := &event.Event{
			Name:                                event.StartTrial,
			ProductID:                           "pro.monthly",
			Quantity:                            1,
			IsSubscription:                      true,
			IsStartTrial:                        true,
			SubscriptionPeriod:                  &event.Period{Unit: event.Month, Count: 1},
			HasIntroductoryOffer:                true,
			HasFreeTrial:                        false,
			IntroductoryOfferSubscriptionPeriod: &event.Period{Unit: event.Week, Count: 2},
			IntroductoryOfferPrice:              &trialPrice,
		}

		_, params := BuildParameters(ev)

		assert.Equal(t, "subs", params[ParamProductType])
		assert.Equal(t, "P1M", params[ParamSubsPeriod])
		assert.Equal(t, "1", params[ParamIsStartTrial])
		assert.Equal(t, "0", params[ParamHasFreeTrial])
		assert.Equal(t, "P2W", params[ParamTrialPeriod])
		assert.Equal(t, "0.49", params[ParamTrialPrice])
	})

	t.Run("without introductory offer", func(t *testing.T) {
		ev := &event.Event{
			Name:           event.Subscribe,
			ProductID:      "pro.yearly",
			Quantity:       1,
			IsSubscription: true,
		}

		_, params := BuildParameters(ev)

		assert.Equal(t, "subs", params[ParamProductType])
		assert.Equal(t, "", params[ParamSubsPeriod])
		assert.Equal(t, "0", params[ParamIsStartTrial])
		assert.NotContains(t, params, ParamHasFreeTrial)
		assert.NotContains(t, params, ParamTrialPeriod)
		assert.NotContains(t, params, ParamTrialPrice)
	})
}

func TestBuildParameters_Truncation(t *testing.T) {
	exact := strings.Repeat("a", 100)
	over := strings.Repeat("b", 101)

	_, params := BuildParameters(&event.Event{ProductTitle: exact, ProductDescription: over})

	assert.Equal(t, exact, params[ParamProductTitle])
	assert.Equal(t, strings.Repeat("b", 100), params[ParamProductDescription])
}

func TestTruncate_MultiByte(t *testing.T) {
	s := strings.Repeat("é", 101)
	assert.Equal(t, strings.Repeat("é", 100), truncate(s, 100))
	assert.Equal(t, "abc", truncate("abc", 100))
}
