// Package payment bridges orders to the Paystack hosted-payment flow.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://api.paystack.co"
	// The placeholder shipped in example configs; treated the same as no key.
	placeholderSecret = "sk_test_xxxxxxxxxxxxxxxxxx"
)

// ErrNotConfigured means no usable gateway secret is present. It is
// returned before any network call is attempted.
var ErrNotConfigured = errors.New("paystack is not configured: add your Paystack keys in Settings or .env")

// GatewayError wraps a remote failure or non-success response.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("paystack: %s", e.Message)
}

// SecretSource resolves the gateway secret as of the call, so key changes
// in the settings store take effect without a restart.
type SecretSource func(ctx context.Context) string

type Client struct {
	BaseURL string
	Secret  SecretSource
	HTTP    *http.Client
}

func NewClient(baseURL string, secret SecretSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		Secret:  secret,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type InitializeRequest struct {
	Email string `json:"email"`
	// Amount is in the minor currency unit (pesewas for GHS).
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type TransactionData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"` // minor units
	PaidAt    string `json:"paid_at"`
	Channel   string `json:"channel"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) secret(ctx context.Context) (string, error) {
	sec := ""
	if c.Secret != nil {
		sec = c.Secret(ctx)
	}
	if sec == "" || sec == placeholderSecret {
		return "", ErrNotConfigured
	}
	return sec, nil
}

func (c *Client) Initialize(ctx context.Context, in InitializeRequest) (*InitializeData, error) {
	sec, err := c.secret(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sec)
	req.Header.Set("Content-Type", "application/json")

	var out InitializeData
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (*TransactionData, error) {
	sec, err := c.secret(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sec)

	var out TransactionData
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return &GatewayError{Message: err.Error()}
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return &GatewayError{Message: fmt.Sprintf("unexpected response: %s", res.Status)}
	}
	if !env.Status {
		msg := env.Message
		if msg == "" {
			msg = res.Status
		}
		return &GatewayError{Message: msg}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &GatewayError{Message: "malformed response data"}
		}
	}
	return nil
}
