package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Stored as NUMERIC in Postgres; decimal avoids float drift on money.
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateProductRequest payload of creation.
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Unit        string `json:"unit" binding:"required"`
	Stock       int    `json:"stock" binding:"gte=0"`
}

// UpdateProductRequest payload of partial update.
type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Stock       *int   `json:"stock"`
}

// ListResponse represents the paginated response of products.
type ListResponse struct {
	Q      string    `json:"q,omitempty"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Items  []Product `json:"items"`
}
