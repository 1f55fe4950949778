package market

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"findmyservice.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and DSN-less development runs.
type InMemory struct {
	mu        sync.RWMutex
	users     map[string]*User
	providers map[string]*Provider
	services  map[string]*ServiceOffering
	orders    map[string]*Order
	feedback  map[string]*Feedback
	ratings   map[string]*Rating
	now       func() time.Time
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:     make(map[string]*User),
		providers: make(map[string]*Provider),
		services:  make(map[string]*ServiceOffering),
		orders:    make(map[string]*Order),
		feedback:  make(map[string]*Feedback),
		ratings:   make(map[string]*Rating),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *InMemory) Users() UserStore         { return memUsers{m} }
func (m *InMemory) Providers() ProviderStore { return memProviders{m} }
func (m *InMemory) Services() ServiceStore   { return memServices{m} }
func (m *InMemory) Orders() OrderStore       { return memOrders{m} }
func (m *InMemory) Feedback() FeedbackStore  { return memFeedback{m} }
func (m *InMemory) Ratings() RatingStore     { return memRatings{m} }

// --- users ---

type memUsers struct{ m *InMemory }

func (s memUsers) Create(ctx context.Context, u *User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.m.users[u.ID] = &cp
	return nil
}

func (s memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memUsers) List(ctx context.Context) ([]*User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	res := make([]*User, 0, len(s.m.users))
	for _, u := range s.m.users {
		cp := *u
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memUsers) Update(ctx context.Context, u *User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = s.m.now()
	cp := *u
	s.m.users[u.ID] = &cp
	return nil
}

func (s memUsers) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.users, id)
	return nil
}

// --- providers ---

type memProviders struct{ m *InMemory }

func (s memProviders) Create(ctx context.Context, p *Provider) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.providers {
		if strings.EqualFold(existing.Email, p.Email) {
			return ErrAlreadyExists
		}
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := s.m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.m.providers[p.ID] = &cp
	return nil
}

func (s memProviders) Find(ctx context.Context, id string) (*Provider, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	p, ok := s.m.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s memProviders) FindByEmail(ctx context.Context, email string) (*Provider, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, p := range s.m.providers {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memProviders) List(ctx context.Context) ([]*Provider, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	res := make([]*Provider, 0, len(s.m.providers))
	for _, p := range s.m.providers {
		cp := *p
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memProviders) Update(ctx context.Context, p *Provider) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.providers[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = s.m.now()
	cp := *p
	s.m.providers[p.ID] = &cp
	return nil
}

func (s memProviders) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.providers[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.providers, id)
	return nil
}

// --- services ---

type memServices struct{ m *InMemory }

func (s memServices) Create(ctx context.Context, svc *ServiceOffering) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if svc.ID == "" {
		svc.ID = ids.New()
	}
	now := s.m.now()
	svc.CreatedAt, svc.UpdatedAt = now, now
	cp := *svc
	s.m.services[svc.ID] = &cp
	return nil
}

func (s memServices) Find(ctx context.Context, id string) (*ServiceOffering, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	svc, ok := s.m.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s memServices) List(ctx context.Context) ([]*ServiceOffering, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	res := make([]*ServiceOffering, 0, len(s.m.services))
	for _, svc := range s.m.services {
		cp := *svc
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memServices) ListByProvider(ctx context.Context, providerID string) ([]*ServiceOffering, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var res []*ServiceOffering
	for _, svc := range s.m.services {
		if svc.ProviderID == providerID {
			cp := *svc
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memServices) Update(ctx context.Context, svc *ServiceOffering) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.services[svc.ID]; !ok {
		return ErrNotFound
	}
	svc.UpdatedAt = s.m.now()
	cp := *svc
	s.m.services[svc.ID] = &cp
	return nil
}

func (s memServices) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.services[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.services, id)
	return nil
}

// --- orders ---

type memOrders struct{ m *InMemory }

func (s memOrders) Create(ctx context.Context, o *Order) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if o.ID == "" {
		o.ID = ids.New()
	}
	now := s.m.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	cp := *o
	s.m.orders[o.ID] = &cp
	return nil
}

func (s memOrders) Find(ctx context.Context, id string) (*Order, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	o, ok := s.m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s memOrders) List(ctx context.Context) ([]*Order, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	res := make([]*Order, 0, len(s.m.orders))
	for _, o := range s.m.orders {
		cp := *o
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memOrders) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var res []*Order
	for _, o := range s.m.orders {
		if o.UserID == userID {
			cp := *o
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memOrders) ListByProvider(ctx context.Context, providerID string) ([]*Order, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var res []*Order
	for _, o := range s.m.orders {
		if o.ProviderID == providerID {
			cp := *o
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memOrders) Update(ctx context.Context, o *Order) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = s.m.now()
	cp := *o
	s.m.orders[o.ID] = &cp
	return nil
}

func (s memOrders) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.orders, id)
	return nil
}

// --- feedback ---

type memFeedback struct{ m *InMemory }

func (s memFeedback) Create(ctx context.Context, f *Feedback) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if f.ID == "" {
		f.ID = ids.New()
	}
	f.CreatedAt = s.m.now()
	cp := *f
	s.m.feedback[f.ID] = &cp
	return nil
}

func (s memFeedback) List(ctx context.Context) ([]*Feedback, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	res := make([]*Feedback, 0, len(s.m.feedback))
	for _, f := range s.m.feedback {
		cp := *f
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memFeedback) ListByService(ctx context.Context, serviceID string) ([]*Feedback, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var res []*Feedback
	for _, f := range s.m.feedback {
		if f.ServiceID == serviceID {
			cp := *f
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// --- ratings ---

type memRatings struct{ m *InMemory }

func (s memRatings) Create(ctx context.Context, r *Rating) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	r.CreatedAt = s.m.now()
	cp := *r
	s.m.ratings[r.ID] = &cp
	return nil
}

func (s memRatings) Find(ctx context.Context, id string) (*Rating, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	r, ok := s.m.ratings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s memRatings) List(ctx context.Context) ([]*Rating, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	res := make([]*Rating, 0, len(s.m.ratings))
	for _, r := range s.m.ratings {
		cp := *r
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}
