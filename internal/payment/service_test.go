package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ameliamart/storefront/internal/order"
	"github.com/ameliamart/storefront/internal/settings"
)

// ---------- stubs & fakes ----------

type stubOrders struct {
	mu        sync.Mutex
	byNumber  map[string]*order.Order
	markCalls int
}

func newStubOrders(orders ...*order.Order) *stubOrders {
	s := &stubOrders{byNumber: map[string]*order.Order{}}
	for _, o := range orders {
		s.byNumber[o.Number] = o
	}
	return s
}

func (s *stubOrders) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byNumber[number]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) MarkPaid(ctx context.Context, number string) (*order.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byNumber[number]
	if !ok {
		return nil, false, order.ErrNotFound
	}
	if o.PaymentStatus == order.PaymentPaid {
		return o, false, nil
	}
	s.markCalls++
	o.PaymentStatus = order.PaymentPaid
	o.Status = order.StatusProcessing
	return o, true, nil
}

type stubSettings struct{ s settings.Settings }

func (r *stubSettings) Get(ctx context.Context) (*settings.Settings, error) {
	out := r.s
	return &out, nil
}

func (r *stubSettings) Update(ctx context.Context, s *settings.Settings) error {
	r.s = *s
	return nil
}

func fixedSecret(sec string) SecretSource {
	return func(context.Context) string { return sec }
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func pendingOrder(t *testing.T, number, total string) *order.Order {
	return &order.Order{
		ID:            "id-" + number,
		Number:        number,
		Total:         mustDec(t, total),
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentUnpaid,
	}
}

// paystackFake records requests and serves canned envelopes.
type paystackFake struct {
	t        *testing.T
	mu       sync.Mutex
	inits    []InitializeRequest
	verifies []string
	txStatus string // status served by /transaction/verify
}

func (f *paystackFake) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			f.t.Errorf("missing bearer auth, got %q", got)
		}
		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.inits = append(f.inits, req)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         req.Reference,
			},
		})
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		f.mu.Lock()
		f.verifies = append(f.verifies, ref)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    f.txStatus,
				"reference": ref,
				"amount":    11788,
				"paid_at":   "2026-08-31T10:00:00.000Z",
				"channel":   "mobile_money",
			},
		})
	})
	return httptest.NewServer(mux)
}

func (f *paystackFake) initCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inits)
}

// ---------- tests ----------

func TestInitialize_SendsMinorUnitsAndReference(t *testing.T) {
	t.Parallel()

	fake := &paystackFake{t: t}
	srv := fake.server()
	defer srv.Close()

	orders := newStubOrders(pendingOrder(t, "ORD-20260831-K3F", "117.88"))
	client := NewClient(srv.URL, fixedSecret("sk_test_real"))
	svc := NewService(client, orders, &stubSettings{s: settings.Defaults()}, "http://localhost:3000", zap.NewNop())

	data, err := svc.Initialize(context.Background(), "ORD-20260831-K3F", "kwame@example.com")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if data.AuthorizationURL == "" || data.Reference != "ORD-20260831-K3F" {
		t.Errorf("unexpected data: %+v", data)
	}
	if len(fake.inits) != 1 {
		t.Fatalf("gateway calls=%d, want 1", len(fake.inits))
	}
	sent := fake.inits[0]
	if sent.Amount != 11788 {
		t.Errorf("amount=%d, want 11788 (117.88 in pesewas)", sent.Amount)
	}
	if sent.Reference != "ORD-20260831-K3F" {
		t.Errorf("reference=%q, want the order number", sent.Reference)
	}
	if sent.Currency != "GHS" {
		t.Errorf("currency=%q, want GHS", sent.Currency)
	}
	if !strings.Contains(sent.CallbackURL, "orderId=ORD-20260831-K3F") {
		t.Errorf("callback url=%q missing order id", sent.CallbackURL)
	}
}

func TestInitialize_UnconfiguredGatewayMakesNoCall(t *testing.T) {
	t.Parallel()

	fake := &paystackFake{t: t}
	srv := fake.server()
	defer srv.Close()

	orders := newStubOrders(pendingOrder(t, "ORD-20260831-AAA", "50"))

	for _, secret := range []string{"", "sk_test_xxxxxxxxxxxxxxxxxx"} {
		client := NewClient(srv.URL, fixedSecret(secret))
		svc := NewService(client, orders, &stubSettings{s: settings.Defaults()}, "http://localhost:3000", zap.NewNop())

		_, err := svc.Initialize(context.Background(), "ORD-20260831-AAA", "a@b.com")
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("secret=%q: err=%v, want ErrNotConfigured", secret, err)
		}
	}
	if fake.initCount() != 0 {
		t.Fatalf("gateway was called %d times, want 0", fake.initCount())
	}
}

func TestInitialize_AlreadyPaid(t *testing.T) {
	t.Parallel()

	paid := pendingOrder(t, "ORD-20260831-BBB", "50")
	paid.PaymentStatus = order.PaymentPaid
	orders := newStubOrders(paid)

	client := NewClient("http://unused.invalid", fixedSecret("sk_test_real"))
	svc := NewService(client, orders, &stubSettings{s: settings.Defaults()}, "http://localhost:3000", zap.NewNop())

	_, err := svc.Initialize(context.Background(), "ORD-20260831-BBB", "a@b.com")
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("err=%v, want ErrAlreadyPaid", err)
	}
}

func TestVerify_SuccessIsIdempotent(t *testing.T) {
	t.Parallel()

	fake := &paystackFake{t: t, txStatus: "success"}
	srv := fake.server()
	defer srv.Close()

	orders := newStubOrders(pendingOrder(t, "ORD-20260831-CCC", "117.88"))
	client := NewClient(srv.URL, fixedSecret("sk_test_real"))
	svc := NewService(client, orders, &stubSettings{s: settings.Defaults()}, "http://localhost:3000", zap.NewNop())

	first, err := svc.Verify(context.Background(), "ORD-20260831-CCC")
	if err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if !first.Paid || first.AlreadyPaid {
		t.Errorf("first verify: %+v", first)
	}

	second, err := svc.Verify(context.Background(), "ORD-20260831-CCC")
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if !second.Paid || !second.AlreadyPaid {
		t.Errorf("second verify should be a no-op success: %+v", second)
	}

	if orders.markCalls != 1 {
		t.Errorf("paid side effect applied %d times, want once", orders.markCalls)
	}
	o, _ := orders.GetByNumber(context.Background(), "ORD-20260831-CCC")
	if o.PaymentStatus != order.PaymentPaid || o.Status != order.StatusProcessing {
		t.Errorf("order is %s/%s, want processing/paid", o.Status, o.PaymentStatus)
	}
	if !second.Amount.Equal(mustDec(t, "117.88")) {
		t.Errorf("amount=%s, want 117.88", second.Amount)
	}
}

func TestVerify_NonSuccessLeavesOrderAlone(t *testing.T) {
	t.Parallel()

	fake := &paystackFake{t: t, txStatus: "abandoned"}
	srv := fake.server()
	defer srv.Close()

	orders := newStubOrders(pendingOrder(t, "ORD-20260831-DDD", "50"))
	client := NewClient(srv.URL, fixedSecret("sk_test_real"))
	svc := NewService(client, orders, &stubSettings{s: settings.Defaults()}, "http://localhost:3000", zap.NewNop())

	res, err := svc.Verify(context.Background(), "ORD-20260831-DDD")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Paid {
		t.Fatalf("res.Paid=true for abandoned transaction")
	}
	if res.GatewayStatus != "abandoned" {
		t.Errorf("gateway status=%q, want abandoned", res.GatewayStatus)
	}
	o, _ := orders.GetByNumber(context.Background(), "ORD-20260831-DDD")
	if o.PaymentStatus != order.PaymentUnpaid || o.Status != order.StatusPending {
		t.Errorf("order mutated on failed verify: %s/%s", o.Status, o.PaymentStatus)
	}
}

func TestClient_GatewayErrorSurfacesMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, fixedSecret("sk_test_bad"))
	_, err := client.Initialize(context.Background(), InitializeRequest{
		Email: "a@b.com", Amount: 1000, Currency: "GHS", Reference: "ORD-X",
	})
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("err=%v, want GatewayError", err)
	}
	if gwErr.Message != "Invalid key" {
		t.Errorf("message=%q, want remote message surfaced", gwErr.Message)
	}
}

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
	}{
		{"117.88", 11788},
		{"50", 5000},
		{"0.01", 1},
		{"10.005", 1001}, // rounds half away from zero
	}
	for _, tc := range cases {
		if got := MinorUnits(mustDec(t, tc.in)); got != tc.want {
			t.Errorf("MinorUnits(%s)=%d, want %d", tc.in, got, tc.want)
		}
	}
}
