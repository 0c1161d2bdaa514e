// Package order implements the checkout core: pricing, the atomic
// place-order transaction and order persistence.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ameliamart/storefront/internal/customer"
	"github.com/ameliamart/storefront/internal/product"
)

// Draft is everything PlaceOrder needs to run the checkout transaction.
// The order number is generated by the caller so a duplicate can be
// retried with a fresh one.
type Draft struct {
	Number          string
	Customer        customer.Customer
	Lines           []CartLine
	PaymentMethod   string
	ShippingAddress string
	Notes           string
	Pricing         PricingConfig
}

type Repository interface {
	// PlaceOrder atomically upserts the customer, prices the cart against
	// live product rows, decrements stock per line and inserts the order
	// with its items. Either all of it commits or none of it does.
	PlaceOrder(ctx context.Context, d Draft) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, status string, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, number string, status Status) (*Order, error)
	// MarkPaid flips the order to paid/processing. The second return is
	// false when the order was already paid, which is not an error.
	MarkPaid(ctx context.Context, number string) (*Order, bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderCols = `id, order_number, customer_id, subtotal::text, tax::text, shipping::text, total::text,
	status, payment_status, payment_method, shipping_address, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var subtotal, tax, shipping, total string
	if err := row.Scan(&o.ID, &o.Number, &o.CustomerID, &subtotal, &tax, &shipping, &total,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.ShippingAddress, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.Subtotal, subtotal}, {&o.Tax, tax}, {&o.Shipping, shipping}, {&o.Total, total},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return &o, nil
}

func (r *PGRepo) PlaceOrder(ctx context.Context, d Draft) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cust := d.Customer
	custID, err := customer.Upsert(ctx, tx, &cust)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		ids = append(ids, l.ProductID)
	}
	// Row locks hold the read-stock-then-decrement sequence together:
	// two checkouts contending for the same scarce product serialize here.
	prods, err := product.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	items, totals, err := PriceCart(prods, d.Lines, d.Pricing)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(prods))
	for _, p := range prods {
		names[p.ID] = p.Name
	}
	for _, it := range items {
		ok, err := product.DecrementStock(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			left, err := product.StockOf(ctx, tx, it.ProductID)
			if err != nil {
				return nil, err
			}
			return nil, &InsufficientStockError{ProductName: names[it.ProductID], Available: left}
		}
	}

	o := &Order{
		ID:              uuid.NewString(),
		Number:          d.Number,
		CustomerID:      custID,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		PaymentMethod:   d.PaymentMethod,
		ShippingAddress: d.ShippingAddress,
		Notes:           d.Notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, customer_id, subtotal, tax, shipping, total,
			status, payment_status, payment_method, shipping_address, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.Number, o.CustomerID, o.Subtotal.String(), o.Tax.String(), o.Shipping.String(), o.Total.String(),
		o.Status, o.PaymentStatus, o.PaymentMethod, o.ShippingAddress, o.Notes).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateNumber
		}
		return nil, err
	}

	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, items[i].ID, items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].Price.String()); err != nil {
			return nil, err
		}
	}
	o.Items = items

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PGRepo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `
		SELECT `+orderCols+` FROM orders WHERE order_number = $1
	`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Items, err = r.itemsOf(ctx, r.db, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PGRepo) itemsOf(ctx context.Context, q queryer, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price::text
		FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) List(ctx context.Context, status string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+orderCols+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus applies a back-office status transition. Cancelling a
// pending unpaid order puts its units back on the shelf in the same
// transaction, keeping the ledger consistent with the policy that stock
// is consumed at order creation.
func (r *PGRepo) UpdateStatus(ctx context.Context, number string, status Status) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `
		SELECT `+orderCols+` FROM orders WHERE order_number = $1 FOR UPDATE
	`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if status == StatusCancelled && o.Status == StatusPending && o.PaymentStatus == PaymentUnpaid {
		items, err := r.itemsOf(ctx, tx, o.ID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if err := product.RestoreStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
				// Product rows may be deleted after the order; nothing to restock then.
				if !errors.Is(err, product.ErrNotFound) {
					return nil, err
				}
			}
		}
	}

	if err := tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE order_number = $1
		RETURNING updated_at
	`, number, status).Scan(&o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = status

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PGRepo) MarkPaid(ctx context.Context, number string) (*Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2, status = $3, updated_at = NOW()
		WHERE order_number = $1 AND payment_status <> $2
	`, number, PaymentPaid, StatusProcessing)
	if err != nil {
		return nil, false, err
	}
	o, err := r.GetByNumber(ctx, number)
	if err != nil {
		return nil, false, err
	}
	return o, tag.RowsAffected() > 0, nil
}
