// Package product provides the repository and stock ledger for catalog products.
package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Query struct {
	Q        string
	Category string
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, q Query) ([]Product, error)
	Update(ctx context.Context, id string, upd UpdateProductRequest) (*Product, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Querier is the subset of pgx executors the stock ledger runs against.
// Both *pgxpool.Pool and pgx.Tx satisfy it, so decrements can join the
// checkout transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LockForUpdate reads the product rows for the given ids inside the
// caller's transaction, taking row locks so the stock check and the
// decrements that follow act as one check-and-set per product.
func LockForUpdate(ctx context.Context, q Querier, ids []string) ([]Product, error) {
	rows, err := q.Query(ctx, `
		SELECT `+productCols+` FROM products WHERE id = ANY($1) FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// DecrementStock reduces stock by qty only if enough units remain. The
// conditional WHERE makes concurrent checkouts for the last unit serialize
// on the row: at most one update reports success. Returns false when the
// product is missing or stock < qty; stock is never clamped below zero.
func DecrementStock(ctx context.Context, q Querier, id string, qty int) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RestoreStock returns qty units to the shelf (order cancellation).
func RestoreStock(ctx context.Context, q Querier, id string, qty int) error {
	tag, err := q.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StockOf reads the current stock count, for error reporting inside a
// transaction after a conditional decrement came back empty.
func StockOf(ctx context.Context, q Querier, id string) (int, error) {
	var stock int
	if err := q.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return stock, nil
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const productCols = `id, name, description, price::text, category, unit, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Category, &p.Unit, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	return &p, nil
}

func (r *PGRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price, category, unit, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
	`, p.ID, p.Name, p.Description, p.Price.String(), p.Category, p.Unit, p.Stock)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := scanProduct(r.db.QueryRow(ctx, `
		SELECT `+productCols+` FROM products WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT `+productCols+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, search, q.Category, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, id string, upd UpdateProductRequest) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	price := ""
	if upd.Price != "" {
		d, err := decimal.NewFromString(upd.Price)
		if err != nil || d.IsNegative() {
			return nil, errors.New("invalid price")
		}
		price = d.String()
	}

	p, err := scanProduct(r.db.QueryRow(ctx, `
		UPDATE products
		SET name = COALESCE(NULLIF($2,''), name),
		    description = COALESCE(NULLIF($3,''), description),
		    price = COALESCE(NULLIF($4,'')::numeric, price),
		    category = COALESCE(NULLIF($5,''), category),
		    unit = COALESCE(NULLIF($6,''), unit),
		    stock = COALESCE($7, stock),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+productCols+`
	`, id, upd.Name, upd.Description, price, upd.Category, upd.Unit, upd.Stock))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
