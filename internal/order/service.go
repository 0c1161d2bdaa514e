package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ameliamart/storefront/internal/customer"
)

// Service coordinates checkout: it shapes the draft, generates the order
// number and drives the atomic PlaceOrder, retrying a number collision
// exactly once.
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Checkout places the order described by req, priced against cfg.
func (s *Service) Checkout(ctx context.Context, req CreateOrderRequest, cfg PricingConfig) (*Order, error) {
	d := Draft{
		Number: NewNumber(s.now()),
		Customer: customer.Customer{
			Name:    strings.TrimSpace(req.Customer.Name),
			Email:   strings.ToLower(strings.TrimSpace(req.Customer.Email)),
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
			City:    req.Customer.City,
		},
		Lines:           req.Items,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: shippingAddress(req.Customer),
		Notes:           req.Notes,
		Pricing:         cfg,
	}

	o, err := s.repo.PlaceOrder(ctx, d)
	if errors.Is(err, ErrDuplicateNumber) {
		d.Number = NewNumber(s.now())
		s.log.Warn("order number collision, retrying", zap.String("order_number", d.Number))
		o, err = s.repo.PlaceOrder(ctx, d)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_number", o.Number),
		zap.String("customer_id", o.CustomerID),
		zap.String("total", o.Total.String()),
		zap.Int("items", len(o.Items)),
	)
	return o, nil
}

func shippingAddress(c CustomerInfo) string {
	parts := []string{strings.TrimSpace(c.Address)}
	if city := strings.TrimSpace(c.City); city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}
