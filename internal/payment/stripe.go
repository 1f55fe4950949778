package payment

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// Charges are denominated in INR; MinorUnits amounts are paise.
const currency = string(stripe.CurrencyINR)

// StripeGateway implements Gateway over the Stripe payment intents API.
type StripeGateway struct{}

var _ Gateway = (*StripeGateway)(nil)

// NewStripe configures the process-wide Stripe key and returns the gateway.
func NewStripe(apiKey string) (*StripeGateway, error) {
	if apiKey == "" {
		return nil, errors.New("payment: stripe api key is required")
	}
	stripe.Key = apiKey
	return &StripeGateway{}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, orderID string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("orderId", orderID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (Intent, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return Intent{}, fmt.Errorf("retrieve payment intent %s: %w", intentID, err)
	}
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}
