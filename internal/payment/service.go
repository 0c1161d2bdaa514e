package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ameliamart/storefront/internal/order"
	"github.com/ameliamart/storefront/internal/settings"
)

// ErrAlreadyPaid rejects initializing a fresh payment session for an
// order that was already settled.
var ErrAlreadyPaid = errors.New("order is already paid")

type Gateway interface {
	Initialize(ctx context.Context, in InitializeRequest) (*InitializeData, error)
	Verify(ctx context.Context, reference string) (*TransactionData, error)
}

// OrderStore is the slice of the order repository the adapter needs.
// It never touches stock: units were reserved when the order was created.
type OrderStore interface {
	GetByNumber(ctx context.Context, number string) (*order.Order, error)
	MarkPaid(ctx context.Context, number string) (*order.Order, bool, error)
}

type Service struct {
	gateway      Gateway
	orders       OrderStore
	settings     settings.Repository
	callbackBase string
	log          *zap.Logger
}

func NewService(gateway Gateway, orders OrderStore, st settings.Repository, callbackBase string, log *zap.Logger) *Service {
	return &Service{gateway: gateway, orders: orders, settings: st, callbackBase: callbackBase, log: log}
}

// Initialize opens a hosted payment session for the order. The charged
// amount is the order total converted to minor units; the order number is
// the gateway reference, so a later redirect can be reconciled. A gateway
// failure here leaves the order untouched and recoverable.
func (s *Service) Initialize(ctx context.Context, orderNumber, email string) (*InitializeData, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == order.PaymentPaid {
		return nil, ErrAlreadyPaid
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	data, err := s.gateway.Initialize(ctx, InitializeRequest{
		Email:       email,
		Amount:      MinorUnits(o.Total),
		Currency:    st.Currency,
		Reference:   o.Number,
		CallbackURL: fmt.Sprintf("%s/order-confirmation?orderId=%s", s.callbackBase, o.Number),
		Metadata:    map[string]any{"orderId": o.Number},
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("payment initialized",
		zap.String("order_number", o.Number),
		zap.String("reference", data.Reference),
	)
	return data, nil
}

// Result is the outcome of a verify call.
type Result struct {
	Paid bool `json:"paid"`
	// AlreadyPaid marks the idempotent case: the order had been settled
	// by an earlier verify and nothing was re-applied.
	AlreadyPaid   bool            `json:"already_paid,omitempty"`
	Reference     string          `json:"reference"`
	GatewayStatus string          `json:"gateway_status"`
	Amount        decimal.Decimal `json:"amount,omitempty"`
	PaidAt        string          `json:"paid_at,omitempty"`
	Channel       string          `json:"channel,omitempty"`
}

// Verify fetches the transaction by reference. A remote "success" marks
// the matching order paid/processing exactly once; verifying an
// already-paid order is a no-op success. Any other remote status comes
// back as a non-success result without touching the order.
func (s *Service) Verify(ctx context.Context, reference string) (*Result, error) {
	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Status != "success" {
		return &Result{Paid: false, Reference: reference, GatewayStatus: tx.Status}, nil
	}

	o, updated, err := s.orders.MarkPaid(ctx, tx.Reference)
	if err != nil {
		return nil, err
	}
	if updated {
		s.log.Info("payment verified",
			zap.String("order_number", o.Number),
			zap.String("channel", tx.Channel),
		)
	}
	return &Result{
		Paid:          true,
		AlreadyPaid:   !updated,
		Reference:     tx.Reference,
		GatewayStatus: tx.Status,
		Amount:        FromMinorUnits(tx.Amount),
		PaidAt:        tx.PaidAt,
		Channel:       tx.Channel,
	}, nil
}

// MinorUnits converts a decimal amount to the gateway's integer minor
// currency unit (GHS → pesewas).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
}
