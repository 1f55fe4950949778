package market

import (
	"fmt"
	"math"
	"time"
)

// ValidateBatch enforces the all-or-nothing precondition on batch order
// creation: the batch is non-empty, every item carries the same non-empty
// user id, and that id matches the caller (ADMIN exempt from the match,
// not from the presence check). Any violation rejects the whole batch
// before a single order is created.
func ValidateBatch(orders []OrderCreate, callerID string, role Role) error {
	if len(orders) == 0 {
		return fmt.Errorf("%w: order list cannot be empty", ErrInvalidArgument)
	}
	userID := orders[0].UserID
	for _, o := range orders {
		if o.UserID != userID {
			return fmt.Errorf("%w: all orders must belong to the same user", ErrInvalidArgument)
		}
	}
	if userID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}
	if role == RoleAdmin {
		return nil
	}
	if callerID == "" {
		return ErrUnauthenticated
	}
	if callerID != userID {
		return fmt.Errorf("%w: you are not authorized to create these orders", ErrForbidden)
	}
	return nil
}

// CheckoutItem prices an order off the catalog instead of carrying a cost.
type CheckoutItem struct {
	ServiceID     string     `json:"serviceId"`
	Quantity      int        `json:"quantity"`
	RequestedDate *time.Time `json:"requestedDate,omitempty"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
}

// PriceItem computes unit cost × quantity, rounded to 2 decimal places.
func PriceItem(svc *ServiceOffering, quantity int) (float64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be > 0", ErrInvalidArgument)
	}
	total := svc.Cost * float64(quantity)
	return math.Round(total*100) / 100, nil
}
