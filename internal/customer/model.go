package customer

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats is the back-office view of a customer with order aggregates.
type Stats struct {
	Customer
	TotalOrders int             `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	Status      string          `json:"status"` // active when at least one order exists
}
