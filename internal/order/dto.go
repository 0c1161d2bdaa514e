package order

// CartLine is the only shape the core accepts per cart entry. Price, name
// or any other client-claimed fields are not representable here: pricing
// is always re-resolved from the catalog inside the checkout transaction.
type CartLine struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CustomerInfo struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
	City    string `json:"city"`
}

// CreateOrderRequest payload of checkout.
type CreateOrderRequest struct {
	Customer      CustomerInfo `json:"customer" binding:"required"`
	Items         []CartLine   `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string       `json:"payment_method" binding:"required"`
	Notes         string       `json:"notes"`
}

// UpdateStatusRequest payload of the back-office status transition.
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}
