package market

import (
	"fmt"
	"time"
)

// OrderUpdate is a partial order mutation. Every field is optional; which
// fields a caller may set depends on its role.
type OrderUpdate struct {
	RequestedDate *time.Time   `json:"requestedDate,omitempty"`
	ScheduledDate *time.Time   `json:"scheduledDate,omitempty"`
	Quantity      *int         `json:"quantity,omitempty"`
	TotalCost     *float64     `json:"totalCost,omitempty"`
	Status        *OrderStatus `json:"orderStatus,omitempty"`
}

// IsZero reports whether the update carries no fields at all.
func (u OrderUpdate) IsZero() bool {
	return u.RequestedDate == nil && u.ScheduledDate == nil &&
		u.Quantity == nil && u.TotalCost == nil && u.Status == nil
}

// UpdateOwnerID returns the owner identity the acting role is checked
// against before an update is applied. ADMIN is exempt from ownership.
func UpdateOwnerID(role Role, o *Order) (string, bool) {
	switch role {
	case RoleUser:
		return o.UserID, true
	case RoleProvider:
		return o.ProviderID, true
	default:
		return "", false
	}
}

// ApplyUpdate enforces the role-gated field and status transition policy
// and mutates the order in place. The whole update is rejected when any
// forbidden field is present; the first offending field is named. No
// partial mutation survives a rejection: forbidden-field checks run before
// any write.
func ApplyUpdate(role Role, o *Order, upd OrderUpdate) error {
	switch role {
	case RoleUser:
		if upd.ScheduledDate != nil {
			return fmt.Errorf("%w: users cannot modify scheduledDate", ErrInvalidArgument)
		}
		if upd.Quantity != nil {
			return fmt.Errorf("%w: users cannot modify quantity", ErrInvalidArgument)
		}
		if upd.TotalCost != nil {
			return fmt.Errorf("%w: users cannot modify totalCost", ErrInvalidArgument)
		}
		if upd.Status != nil && *upd.Status != StatusCancelled {
			return fmt.Errorf("%w: users can only cancel orders", ErrInvalidArgument)
		}
		if upd.RequestedDate != nil {
			o.RequestedDate = upd.RequestedDate
		}
		if upd.Status != nil {
			o.Status = StatusCancelled
		}
		return nil

	case RoleProvider:
		if upd.RequestedDate != nil {
			return fmt.Errorf("%w: providers cannot modify requestedDate", ErrInvalidArgument)
		}
		if upd.Quantity != nil {
			return fmt.Errorf("%w: providers cannot modify quantity", ErrInvalidArgument)
		}
		if upd.TotalCost != nil {
			return fmt.Errorf("%w: providers cannot modify totalCost", ErrInvalidArgument)
		}
		if upd.Status != nil {
			switch *upd.Status {
			case StatusScheduled, StatusCompleted, StatusCancelled:
			default:
				return fmt.Errorf("%w: providers can only set status to SCHEDULED, COMPLETED, or CANCELLED", ErrInvalidArgument)
			}
		}
		if upd.ScheduledDate != nil {
			o.ScheduledDate = upd.ScheduledDate
		}
		if upd.Status != nil {
			o.Status = *upd.Status
		}
		return nil

	case RoleAdmin:
		if upd.Quantity != nil && *upd.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be > 0", ErrInvalidArgument)
		}
		if upd.TotalCost != nil && *upd.TotalCost <= 0 {
			return fmt.Errorf("%w: totalCost must be > 0", ErrInvalidArgument)
		}
		if upd.RequestedDate != nil {
			o.RequestedDate = upd.RequestedDate
		}
		if upd.ScheduledDate != nil {
			o.ScheduledDate = upd.ScheduledDate
		}
		if upd.Quantity != nil {
			o.Quantity = *upd.Quantity
		}
		if upd.TotalCost != nil {
			o.TotalCost = *upd.TotalCost
		}
		if upd.Status != nil {
			o.Status = *upd.Status
		}
		return nil

	default:
		return fmt.Errorf("%w: invalid user role", ErrForbidden)
	}
}

// OrderCreate is the creation payload for a single order.
type OrderCreate struct {
	UserID        string     `json:"userId"`
	ProviderID    string     `json:"providerId"`
	ServiceID     string     `json:"serviceId"`
	Quantity      *int       `json:"quantity,omitempty"`
	TotalCost     *float64   `json:"totalCost,omitempty"`
	RequestedDate *time.Time `json:"requestedDate,omitempty"`
}

// NewOrder resolves creation defaults against the catalog entry: quantity 1
// and the service cost when the payload omits them. Orders start REQUESTED.
func NewOrder(req OrderCreate, svc *ServiceOffering, now time.Time) (*Order, error) {
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrInvalidArgument)
	}
	cost := svc.Cost
	if req.TotalCost != nil {
		cost = *req.TotalCost
	}
	if cost <= 0 {
		return nil, fmt.Errorf("%w: totalCost must be > 0", ErrInvalidArgument)
	}
	return &Order{
		UserID:        req.UserID,
		ProviderID:    req.ProviderID,
		ServiceID:     req.ServiceID,
		Status:        StatusRequested,
		Quantity:      quantity,
		TotalCost:     cost,
		RequestedDate: req.RequestedDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
