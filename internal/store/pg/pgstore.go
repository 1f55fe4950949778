package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"findmyservice.org/internal/ids"
	"findmyservice.org/internal/market"
)

// Store implements market.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ market.Store = (*Store)(nil)

// Open connects with tuned pool defaults; adjust under load tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool (used by tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() market.UserStore         { return userStore{s.db} }
func (s *Store) Providers() market.ProviderStore { return providerStore{s.db} }
func (s *Store) Services() market.ServiceStore   { return serviceStore{s.db} }
func (s *Store) Orders() market.OrderStore       { return orderStore{s.db} }
func (s *Store) Feedback() market.FeedbackStore  { return feedbackStore{s.db} }
func (s *Store) Ratings() market.RatingStore     { return ratingStore{s.db} }

// mapError translates driver errors into the market taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return market.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return market.ErrAlreadyExists
	}
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// --- users ---

type userStore struct{ db *sql.DB }

func (s userStore) Create(ctx context.Context, u *market.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users(id, name, email, password_hash, role)
		values ($1,$2,$3,$4,$5)
		returning created_at, updated_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role)).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapError(err)
}

func (s userStore) Find(ctx context.Context, id string) (*market.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, created_at, updated_at
		from users where id=$1
	`, id))
}

func (s userStore) FindByEmail(ctx context.Context, email string) (*market.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, created_at, updated_at
		from users where lower(email)=lower($1)
	`, email))
}

func scanUser(row *sql.Row) (*market.User, error) {
	var u market.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	u.Role = market.Role(role)
	return &u, nil
}

func (s userStore) List(ctx context.Context) ([]*market.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, email, password_hash, role, created_at, updated_at
		from users order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*market.User
	for rows.Next() {
		var u market.User
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = market.Role(role)
		res = append(res, &u)
	}
	return res, rows.Err()
}

func (s userStore) Update(ctx context.Context, u *market.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users set name=$2, email=$3, password_hash=$4, role=$5, updated_at=now()
		where id=$1
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role))
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// --- providers ---

type providerStore struct{ db *sql.DB }

func (s providerStore) Create(ctx context.Context, p *market.Provider) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into providers(id, name, email, password_hash, avg_rating, total_ratings)
		values ($1,$2,$3,$4,$5,$6)
		returning created_at, updated_at
	`, p.ID, p.Name, p.Email, p.PasswordHash, p.AvgRating, p.TotalRatings).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

func (s providerStore) Find(ctx context.Context, id string) (*market.Provider, error) {
	return scanProvider(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, avg_rating, total_ratings, created_at, updated_at
		from providers where id=$1
	`, id))
}

func (s providerStore) FindByEmail(ctx context.Context, email string) (*market.Provider, error) {
	return scanProvider(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, avg_rating, total_ratings, created_at, updated_at
		from providers where lower(email)=lower($1)
	`, email))
}

func scanProvider(row *sql.Row) (*market.Provider, error) {
	var p market.Provider
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.AvgRating, &p.TotalRatings, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (s providerStore) List(ctx context.Context) ([]*market.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, email, password_hash, avg_rating, total_ratings, created_at, updated_at
		from providers order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*market.Provider
	for rows.Next() {
		var p market.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.AvgRating, &p.TotalRatings, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

func (s providerStore) Update(ctx context.Context, p *market.Provider) error {
	res, err := s.db.ExecContext(ctx, `
		update providers set name=$2, email=$3, password_hash=$4, avg_rating=$5, total_ratings=$6, updated_at=now()
		where id=$1
	`, p.ID, p.Name, p.Email, p.PasswordHash, p.AvgRating, p.TotalRatings)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s providerStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from providers where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// --- services ---

type serviceStore struct{ db *sql.DB }

func (s serviceStore) Create(ctx context.Context, svc *market.ServiceOffering) error {
	if svc.ID == "" {
		svc.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into services(id, provider_id, name, description, cost, avg_rating, total_ratings)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning created_at, updated_at
	`, svc.ID, svc.ProviderID, svc.Name, svc.Description, svc.Cost, svc.AvgRating, svc.TotalRatings).Scan(&svc.CreatedAt, &svc.UpdatedAt)
	return mapError(err)
}

func (s serviceStore) Find(ctx context.Context, id string) (*market.ServiceOffering, error) {
	var svc market.ServiceOffering
	err := s.db.QueryRowContext(ctx, `
		select id, provider_id, name, description, cost, avg_rating, total_ratings, created_at, updated_at
		from services where id=$1
	`, id).Scan(&svc.ID, &svc.ProviderID, &svc.Name, &svc.Description, &svc.Cost, &svc.AvgRating, &svc.TotalRatings, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &svc, nil
}

func (s serviceStore) List(ctx context.Context) ([]*market.ServiceOffering, error) {
	return s.query(ctx, `
		select id, provider_id, name, description, cost, avg_rating, total_ratings, created_at, updated_at
		from services order by created_at asc
	`)
}

func (s serviceStore) ListByProvider(ctx context.Context, providerID string) ([]*market.ServiceOffering, error) {
	return s.query(ctx, `
		select id, provider_id, name, description, cost, avg_rating, total_ratings, created_at, updated_at
		from services where provider_id=$1 order by created_at asc
	`, providerID)
}

func (s serviceStore) query(ctx context.Context, q string, args ...any) ([]*market.ServiceOffering, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*market.ServiceOffering
	for rows.Next() {
		var svc market.ServiceOffering
		if err := rows.Scan(&svc.ID, &svc.ProviderID, &svc.Name, &svc.Description, &svc.Cost, &svc.AvgRating, &svc.TotalRatings, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &svc)
	}
	return res, rows.Err()
}

func (s serviceStore) Update(ctx context.Context, svc *market.ServiceOffering) error {
	res, err := s.db.ExecContext(ctx, `
		update services set name=$2, description=$3, cost=$4, avg_rating=$5, total_ratings=$6, updated_at=now()
		where id=$1
	`, svc.ID, svc.Name, svc.Description, svc.Cost, svc.AvgRating, svc.TotalRatings)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s serviceStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from services where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// --- orders ---

type orderStore struct{ db *sql.DB }

const orderColumns = `id, user_id, provider_id, service_id, status, quantity, total_cost,
	requested_date, scheduled_date, transaction_id, payment_date, created_at, updated_at`

func (s orderStore) Create(ctx context.Context, o *market.Order) error {
	if o.ID == "" {
		o.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into orders(id, user_id, provider_id, service_id, status, quantity, total_cost,
			requested_date, scheduled_date, transaction_id, payment_date)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		returning created_at, updated_at
	`, o.ID, o.UserID, o.ProviderID, o.ServiceID, string(o.Status), o.Quantity, o.TotalCost,
		nullTime(o.RequestedDate), nullTime(o.ScheduledDate), o.TransactionID, nullTime(o.PaymentDate),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	return mapError(err)
}

func (s orderStore) Find(ctx context.Context, id string) (*market.Order, error) {
	row := s.db.QueryRowContext(ctx, `select `+orderColumns+` from orders where id=$1`, id)
	return scanOrderRow(row.Scan)
}

func (s orderStore) List(ctx context.Context) ([]*market.Order, error) {
	return s.query(ctx, `select `+orderColumns+` from orders order by created_at asc`)
}

func (s orderStore) ListByUser(ctx context.Context, userID string) ([]*market.Order, error) {
	return s.query(ctx, `select `+orderColumns+` from orders where user_id=$1 order by created_at asc`, userID)
}

func (s orderStore) ListByProvider(ctx context.Context, providerID string) ([]*market.Order, error) {
	return s.query(ctx, `select `+orderColumns+` from orders where provider_id=$1 order by created_at asc`, providerID)
}

func (s orderStore) query(ctx context.Context, q string, args ...any) ([]*market.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*market.Order
	for rows.Next() {
		o, err := scanOrderRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func scanOrderRow(scan func(dest ...any) error) (*market.Order, error) {
	var (
		o         market.Order
		status    string
		requested sql.NullTime
		scheduled sql.NullTime
		paid      sql.NullTime
	)
	if err := scan(&o.ID, &o.UserID, &o.ProviderID, &o.ServiceID, &status, &o.Quantity, &o.TotalCost,
		&requested, &scheduled, &o.TransactionID, &paid, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	o.Status = market.OrderStatus(status)
	o.RequestedDate = timePtr(requested)
	o.ScheduledDate = timePtr(scheduled)
	o.PaymentDate = timePtr(paid)
	return &o, nil
}

func (s orderStore) Update(ctx context.Context, o *market.Order) error {
	res, err := s.db.ExecContext(ctx, `
		update orders set status=$2, quantity=$3, total_cost=$4, requested_date=$5,
			scheduled_date=$6, transaction_id=$7, payment_date=$8, updated_at=now()
		where id=$1
	`, o.ID, string(o.Status), o.Quantity, o.TotalCost,
		nullTime(o.RequestedDate), nullTime(o.ScheduledDate), o.TransactionID, nullTime(o.PaymentDate))
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (s orderStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from orders where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// --- feedback ---

type feedbackStore struct{ db *sql.DB }

func (s feedbackStore) Create(ctx context.Context, f *market.Feedback) error {
	if f.ID == "" {
		f.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into feedback(id, user_id, service_id, provider_id, rating, comment)
		values ($1,$2,$3,$4,$5,$6)
		returning created_at
	`, f.ID, f.UserID, f.ServiceID, f.ProviderID, f.Rating, f.Comment).Scan(&f.CreatedAt)
	return mapError(err)
}

func (s feedbackStore) List(ctx context.Context) ([]*market.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, service_id, provider_id, rating, comment, created_at
		from feedback order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedbackRows(rows)
}

func (s feedbackStore) ListByService(ctx context.Context, serviceID string) ([]*market.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, service_id, provider_id, rating, comment, created_at
		from feedback where service_id=$1 order by created_at asc
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedbackRows(rows)
}

func scanFeedbackRows(rows *sql.Rows) ([]*market.Feedback, error) {
	var res []*market.Feedback
	for rows.Next() {
		var f market.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.ServiceID, &f.ProviderID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &f)
	}
	return res, rows.Err()
}

// --- ratings ---

type ratingStore struct{ db *sql.DB }

func (s ratingStore) Create(ctx context.Context, r *market.Rating) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into ratings(id, user_id, service_id, order_id, score)
		values ($1,$2,$3,nullif($4,''),$5)
		returning created_at
	`, r.ID, r.UserID, r.ServiceID, r.OrderID, r.Score).Scan(&r.CreatedAt)
	return mapError(err)
}

func (s ratingStore) Find(ctx context.Context, id string) (*market.Rating, error) {
	var r market.Rating
	var orderID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, service_id, order_id, score, created_at
		from ratings where id=$1
	`, id).Scan(&r.ID, &r.UserID, &r.ServiceID, &orderID, &r.Score, &r.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	r.OrderID = orderID.String
	return &r, nil
}

func (s ratingStore) List(ctx context.Context) ([]*market.Rating, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, service_id, order_id, score, created_at
		from ratings order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*market.Rating
	for rows.Next() {
		var r market.Rating
		var orderID sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.ServiceID, &orderID, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.OrderID = orderID.String
		res = append(res, &r)
	}
	return res, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return market.ErrNotFound
	}
	return nil
}
