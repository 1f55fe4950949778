package market

import (
	"fmt"
	"time"
)

// Rating is a bare numeric score for a service, optionally tied to the
// order it was earned on. Unlike Feedback it carries no comment; creation
// folds the score into the same running averages.
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ServiceID string    `json:"service_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Rating) OwnerID() string { return r.UserID }

// ValidateRating checks the score bounds before anything is persisted.
func ValidateRating(r *Rating) error {
	if r.Score < 0 || r.Score > 5 {
		return fmt.Errorf("%w: score must be between 0 and 5", ErrInvalidArgument)
	}
	if r.ServiceID == "" {
		return fmt.Errorf("%w: serviceId is required", ErrInvalidArgument)
	}
	return nil
}
