package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("customer not found")

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	ListWithStats(ctx context.Context) ([]Stats, error)
}

// Tx is the executor Upsert runs against so it can join the checkout
// transaction.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Upsert creates the customer on first order and reuses the existing row
// afterwards, keyed by email. The DO UPDATE is a no-op write so RETURNING
// yields the existing id on conflict; stored contact details are not
// overwritten by later orders.
func Upsert(ctx context.Context, tx Tx, c *Customer) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO customers (id, name, email, phone, address, city, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`, c.ID, c.Name, c.Email, c.Phone, c.Address, c.City).Scan(&id)
	if err != nil {
		return "", err
	}
	c.ID = id
	return id, nil
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Customer
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, phone, address, city, created_at
		FROM customers WHERE email = $1
	`, email).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepo) ListWithStats(ctx context.Context) ([]Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.email, c.phone, c.address, c.city, c.created_at,
		       COUNT(o.id), COALESCE(SUM(o.total), 0)::text
		FROM customers c
		LEFT JOIN orders o ON o.customer_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var s Stats
		var spent string
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.City, &s.CreatedAt,
			&s.TotalOrders, &spent); err != nil {
			return nil, err
		}
		s.TotalSpent, err = decimal.NewFromString(spent)
		if err != nil {
			return nil, err
		}
		s.Status = "inactive"
		if s.TotalOrders > 0 {
			s.Status = "active"
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
