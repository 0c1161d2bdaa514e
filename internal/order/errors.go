package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateNumber surfaces an order-number collision; the checkout
	// service retries once with a fresh number before giving up.
	ErrDuplicateNumber = errors.New("duplicate order number")
)

// ProductNotFoundError reports a cart line whose product id is unknown.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// InsufficientStockError reports a cart line asking for more units than
// the shelf holds, named after the offending product.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (available: %d)", e.ProductName, e.Available)
}
