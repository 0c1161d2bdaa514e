// Package settings holds the single-row store configuration: identity,
// pricing knobs and payment gateway credentials.
package settings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Settings struct {
	StoreName             string          `json:"store_name"`
	StoreEmail            string          `json:"store_email"`
	StorePhone            string          `json:"store_phone"`
	StoreAddress          string          `json:"store_address"`
	Currency              string          `json:"currency"`
	TaxRate               decimal.Decimal `json:"tax_rate"` // percent
	ShippingFee           decimal.Decimal `json:"shipping_fee"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	DeliveryTime          string          `json:"delivery_time"`
	PaystackSecretKey     string          `json:"-"`
	PaystackPublicKey     string          `json:"paystack_public_key,omitempty"`
}

// Defaults mirror the seeded store configuration.
func Defaults() Settings {
	return Settings{
		StoreName:             "Amelia Mart",
		StoreEmail:            "info@ameliamart.com",
		StorePhone:            "0201234567",
		StoreAddress:          "123 Oxford Street, Accra, Ghana",
		Currency:              "GHS",
		TaxRate:               decimal.NewFromFloat(2.5),
		ShippingFee:           decimal.NewFromInt(10),
		FreeShippingThreshold: decimal.NewFromInt(100),
		DeliveryTime:          "3-5 days",
	}
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type PGRepo struct {
	db *pgxpool.Pool
	// fallback fills gaps when no settings row exists yet or the row
	// carries no gateway secret (env-provided credential).
	fallback Settings
}

func NewPGRepo(db *pgxpool.Pool, fallback Settings) *PGRepo {
	return &PGRepo{db: db, fallback: fallback}
}

func (r *PGRepo) Get(ctx context.Context) (*Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s Settings
	var taxRate, shippingFee, threshold string
	err := r.db.QueryRow(ctx, `
		SELECT store_name, store_email, store_phone, store_address, currency,
		       tax_rate::text, shipping_fee::text, free_shipping_threshold::text,
		       delivery_time, COALESCE(paystack_secret_key,''), COALESCE(paystack_public_key,'')
		FROM settings LIMIT 1
	`).Scan(&s.StoreName, &s.StoreEmail, &s.StorePhone, &s.StoreAddress, &s.Currency,
		&taxRate, &shippingFee, &threshold, &s.DeliveryTime, &s.PaystackSecretKey, &s.PaystackPublicKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			out := r.fallback
			return &out, nil
		}
		return nil, err
	}
	if s.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return nil, err
	}
	if s.ShippingFee, err = decimal.NewFromString(shippingFee); err != nil {
		return nil, err
	}
	if s.FreeShippingThreshold, err = decimal.NewFromString(threshold); err != nil {
		return nil, err
	}
	if s.PaystackSecretKey == "" {
		s.PaystackSecretKey = r.fallback.PaystackSecretKey
	}
	return &s, nil
}

func (r *PGRepo) Update(ctx context.Context, s *Settings) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Single-row table keyed on id=1.
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (id, store_name, store_email, store_phone, store_address, currency,
			tax_rate, shipping_fee, free_shipping_threshold, delivery_time,
			paystack_secret_key, paystack_public_key, updated_at)
		VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
		ON CONFLICT (id) DO UPDATE SET
			store_name = EXCLUDED.store_name,
			store_email = EXCLUDED.store_email,
			store_phone = EXCLUDED.store_phone,
			store_address = EXCLUDED.store_address,
			currency = EXCLUDED.currency,
			tax_rate = EXCLUDED.tax_rate,
			shipping_fee = EXCLUDED.shipping_fee,
			free_shipping_threshold = EXCLUDED.free_shipping_threshold,
			delivery_time = EXCLUDED.delivery_time,
			paystack_secret_key = EXCLUDED.paystack_secret_key,
			paystack_public_key = EXCLUDED.paystack_public_key,
			updated_at = NOW()
	`, s.StoreName, s.StoreEmail, s.StorePhone, s.StoreAddress, s.Currency,
		s.TaxRate.String(), s.ShippingFee.String(), s.FreeShippingThreshold.String(),
		s.DeliveryTime, s.PaystackSecretKey, s.PaystackPublicKey)
	return err
}
