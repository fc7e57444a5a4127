package txlog

import (
	"strconv"

	"github.com/PratikDhanave/iap-event-logger/internal/event"
)

// Parameter keys understood by the analytics sink. Values are part of the
// wire contract: flags are "1"/"0" strings, not booleans.
const (
	ParamContentID          = "fb_content_id"
	ParamNumItems           = "fb_num_items"
	ParamTransactionDate    = "fb_transaction_date"
	ParamCurrency           = "fb_currency"
	ParamImplicitlyLogged   = "_implicitlyLogged"
	ParamProductTitle       = "fb_iap_product_title"
	ParamProductDescription = "fb_iap_product_description"
	ParamTransactionID      = "fb_transaction_id"
	ParamProductType        = "fb_iap_product_type"
	ParamSubsPeriod         = "fb_iap_subs_period"
	ParamIsStartTrial       = "fb_iap_is_start_trial"
	ParamHasFreeTrial       = "fb_iap_has_free_trial"
	ParamTrialPeriod        = "fb_iap_trial_period"
	ParamTrialPrice         = "fb_iap_trial_price"
)

const (
	productTypeSubscription = "subs"
	productTypeProduct      = "inapp"

	transactionDateLayout = "2006-01-02 15:04:05-0700"

	// MaxParameterValueLength caps product title and description.
	MaxParameterValueLength = 100
)

// BuildParameters shapes ev into the value to sum and the parameter map
// sent to the sink.
func BuildParameters(ev *event.Event) (float64, map[string]string) {
	params := map[string]string{
		ParamContentID:        ev.ProductID,
		ParamNumItems:         strconv.Itoa(ev.Quantity),
		ParamTransactionDate:  formatDate(ev),
		ParamCurrency:         ev.Currency,
		ParamImplicitlyLogged: "1",
	}

	if ev.ProductTitle != "" {
		params[ParamProductTitle] = truncate(ev.ProductTitle, MaxParameterValueLength)
	}
	if ev.ProductDescription != "" {
		params[ParamProductDescription] = truncate(ev.ProductDescription, MaxParameterValueLength)
	}
	if ev.TransactionID != "" {
		params[ParamTransactionID] = ev.TransactionID
	}

	if ev.IsSubscription {
		params[ParamProductType] = productTypeSubscription
		params[ParamSubsPeriod] = ev.SubscriptionPeriod.Duration()
		params[ParamIsStartTrial] = flag(ev.IsStartTrial)
		if ev.HasIntroductoryOffer {
			params[ParamHasFreeTrial] = flag(ev.HasFreeTrial)
			params[ParamTrialPeriod] = ev.IntroductoryOfferSubscriptionPeriod.Duration()
			price := 0.0
			if ev.IntroductoryOfferPrice != nil {
				price = ev.IntroductoryOfferPrice.InexactFloat64()
			}
			params[ParamTrialPrice] = strconv.FormatFloat(price, 'f', -1, 64)
		}
	} else {
		params[ParamProductType] = productTypeProduct
	}

	return ev.Amount.InexactFloat64(), params
}

func formatDate(ev *event.Event) string {
	if ev.TransactionDate == nil {
		return ""
	}
	return ev.TransactionDate.Format(transactionDateLayout)
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
