// Package payment holds the narrow contract consumed from the external
// payment processor: create a payment intent and read one back. No retry
// or backoff logic lives here; a single call is made and errors surface
// to the caller unchanged.
package payment

import (
	"context"
	"math"
)

// Intent is the gateway's handle for a pending charge.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// StatusSucceeded is the only gateway status that completes an order.
const StatusSucceeded = "succeeded"

// Gateway is the external payment processor, treated as a black box.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, orderID string) (Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (Intent, error)
}

// MinorUnits converts a decimal cost into the smallest currency unit
// (paise): rounded to 2 decimal places, then ×100 as an exact integer.
// This is the only money conversion in the system; it funds a real charge.
func MinorUnits(cost float64) int64 {
	return int64(math.Round(cost * 100))
}
