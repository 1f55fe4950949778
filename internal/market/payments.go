package market

import (
	"context"
	"fmt"
	"math"
	"time"

	"findmyservice.org/internal/payment"
)

// PaymentInitiation is returned to the client so it can complete the
// charge against the gateway directly.
type PaymentInitiation struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Amount          float64 `json:"amount"`
	AmountInPaise   int64   `json:"amountInPaise"`
}

// Payments runs the two-phase payment flow for orders. It is decoupled
// from the generic order update path: PAID is only ever reached here.
type Payments struct {
	store   Store
	gateway payment.Gateway
	now     func() time.Time
}

// NewPayments wires the flow to a store and a gateway.
func NewPayments(store Store, gw payment.Gateway) *Payments {
	return &Payments{
		store:   store,
		gateway: gw,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Initiate creates a payment intent for the order. Orders that are
// COMPLETED, CANCELLED or PAID are rejected before the gateway is called.
func (p *Payments) Initiate(ctx context.Context, orderID string) (PaymentInitiation, error) {
	order, err := p.store.Orders().Find(ctx, orderID)
	if err != nil {
		return PaymentInitiation{}, err
	}
	if order.PaymentClosed() {
		return PaymentInitiation{}, fmt.Errorf("%w: cannot pay for an order with status %s", ErrInvalidArgument, order.Status)
	}
	if order.TotalCost <= 0 {
		return PaymentInitiation{}, fmt.Errorf("%w: order has no payable amount", ErrInvalidArgument)
	}

	amount := math.Round(order.TotalCost*100) / 100
	amountMinor := payment.MinorUnits(amount)

	intent, err := p.gateway.CreateIntent(ctx, amountMinor, order.ID)
	if err != nil {
		return PaymentInitiation{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	order.TransactionID = intent.ID
	if err := p.store.Orders().Update(ctx, order); err != nil {
		return PaymentInitiation{}, err
	}

	return PaymentInitiation{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          amount,
		AmountInPaise:   amountMinor,
	}, nil
}

// Confirm retrieves the intent status from the gateway and, when it
// reports success, transitions the order to PAID and stamps the payment
// date. Any other gateway status is a validation failure carrying that
// status; gateway errors surface as ErrGateway.
func (p *Payments) Confirm(ctx context.Context, orderID, intentID string) (*Order, error) {
	order, err := p.store.Orders().Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if intentID == "" {
		return nil, fmt.Errorf("%w: paymentIntentId is required", ErrInvalidArgument)
	}

	intent, err := p.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if intent.Status != payment.StatusSucceeded {
		return nil, fmt.Errorf("%w: payment not completed, gateway status %q", ErrInvalidArgument, intent.Status)
	}

	now := p.now()
	order.Status = StatusPaid
	order.PaymentDate = &now
	order.TransactionID = intent.ID
	if err := p.store.Orders().Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
