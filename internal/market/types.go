package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the caller's authority, resolved exactly once per request from
// the verified token and passed explicitly through the call chain.
type Role string

const (
	RoleUser     Role = "USER"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole maps a raw claim value onto the closed role set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleProvider:
		return RoleProvider, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, raw)
	}
}

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusRequested OrderStatus = "REQUESTED"
	StatusScheduled OrderStatus = "SCHEDULED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusPaid      OrderStatus = "PAID"
)

// ParseOrderStatus validates a raw status label.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusRequested:
		return StatusRequested, nil
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusPaid:
		return StatusPaid, nil
	default:
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidArgument, raw)
	}
}

// UnmarshalJSON rejects unknown status labels at decode time so a bad
// payload fails before any handler logic runs.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Ownable is implemented by every entity the ownership guard protects;
// it returns the canonical owner identity compared against the caller.
type Ownable interface {
	OwnerID() string
}

// User is a customer account. ADMIN accounts are user rows with an admin role.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) OwnerID() string { return u.ID }

// Provider is a fulfilling business account with a running rating average.
type Provider struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvgRating    float64   `json:"avg_rating"`
	TotalRatings int64     `json:"total_ratings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Provider) OwnerID() string { return p.ID }

// ServiceOffering is a catalog entry sold by a provider.
type ServiceOffering struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Cost         float64   `json:"cost"`
	AvgRating    float64   `json:"avg_rating"`
	TotalRatings int64     `json:"total_ratings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *ServiceOffering) OwnerID() string { return s.ProviderID }

// Order is jointly owned by the ordering user and the fulfilling provider;
// which owner may mutate what is decided by the role-gated update policy.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	ProviderID    string      `json:"provider_id"`
	ServiceID     string      `json:"service_id"`
	Status        OrderStatus `json:"status"`
	Quantity      int         `json:"quantity"`
	TotalCost     float64     `json:"total_cost"`
	RequestedDate *time.Time  `json:"requested_date,omitempty"`
	ScheduledDate *time.Time  `json:"scheduled_date,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
	PaymentDate   *time.Time  `json:"payment_date,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OwnerID returns the ordering user; the provider side is adjudicated by
// the update policy, not the generic guard.
func (o *Order) OwnerID() string { return o.UserID }

// PaymentClosed reports whether a new payment flow may no longer start.
func (o *Order) PaymentClosed() bool {
	switch o.Status {
	case StatusCompleted, StatusCancelled, StatusPaid:
		return true
	}
	return false
}

// Feedback is a user's rating of a service; creation folds the rating into
// the running averages of the service and its provider.
type Feedback struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ServiceID  string    `json:"service_id"`
	ProviderID string    `json:"provider_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f *Feedback) OwnerID() string { return f.UserID }
