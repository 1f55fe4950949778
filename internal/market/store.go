package market

import "context"

// Store is the persistence boundary; implementations exist for Postgres
// and in-memory maps.
type Store interface {
	Users() UserStore
	Providers() ProviderStore
	Services() ServiceStore
	Orders() OrderStore
	Feedback() FeedbackStore
	Ratings() RatingStore
}

type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

type ProviderStore interface {
	Create(ctx context.Context, p *Provider) error
	Find(ctx context.Context, id string) (*Provider, error)
	FindByEmail(ctx context.Context, email string) (*Provider, error)
	List(ctx context.Context) ([]*Provider, error)
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id string) error
}

type ServiceStore interface {
	Create(ctx context.Context, s *ServiceOffering) error
	Find(ctx context.Context, id string) (*ServiceOffering, error)
	List(ctx context.Context) ([]*ServiceOffering, error)
	ListByProvider(ctx context.Context, providerID string) ([]*ServiceOffering, error)
	Update(ctx context.Context, s *ServiceOffering) error
	Delete(ctx context.Context, id string) error
}

type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	Find(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListByProvider(ctx context.Context, providerID string) ([]*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
}

type FeedbackStore interface {
	Create(ctx context.Context, f *Feedback) error
	List(ctx context.Context) ([]*Feedback, error)
	ListByService(ctx context.Context, serviceID string) ([]*Feedback, error)
}

type RatingStore interface {
	Create(ctx context.Context, r *Rating) error
	Find(ctx context.Context, id string) (*Rating, error)
	List(ctx context.Context) ([]*Rating, error)
}
