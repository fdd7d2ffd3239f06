//go:build integration

// End-to-end checkout runs against a fake shop backend and a real Redis
// mirror, exercising the full wiring: backend clients, cart persistence,
// pricing refresh, and the submission sequence.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/checkout-flow/internal/backend"
	"github.com/xenking/checkout-flow/internal/domain/cart"
	"github.com/xenking/checkout-flow/internal/domain/checkout"
	"github.com/xenking/checkout-flow/internal/nav"
	"github.com/xenking/checkout-flow/internal/notify"
	redisstore "github.com/xenking/checkout-flow/internal/storage/redis"
)

// fakeShop implements the three backend endpoints the checkout consumes.
type fakeShop struct {
	mu          sync.Mutex
	orders      []map[string]any
	proofOrders []string
	rejectOrder string
}

func (s *fakeShop) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/checkout/calculate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []cart.LineItem `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		subtotal := 0
		items := make([]map[string]any, 0, len(req.Items))
		for _, it := range req.Items {
			subtotal += 10 * it.Quantity
			items = append(items, map[string]any{
				"productId":   it.ProductID,
				"productName": "Book " + it.ProductID,
				"price":       10,
				"quantity":    it.Quantity,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"subtotal":    subtotal,
			"taxes":       subtotal / 10,
			"shippingFee": 5,
			"total":       subtotal + subtotal/10 + 5,
			"items":       items,
		})
	})
	mux.HandleFunc("/api/checkout/process", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		reject := s.rejectOrder
		if reject == "" {
			s.orders = append(s.orders, req)
		}
		s.mu.Unlock()

		if reject != "" {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": reject})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"order":   map[string]any{"id": "ord-e2e-1"},
		})
	})
	mux.HandleFunc("/api/checkout/upload-proof", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.proofOrders = append(s.proofOrders, r.FormValue("orderId"))
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "received"})
	})
	return mux
}

type staticAuth struct {
	user *checkout.User
}

func (a staticAuth) CurrentUser() *checkout.User { return a.user }

type env struct {
	shop   *fakeShop
	store  *cart.MemoryStore
	mirror *redisstore.CartMirror
	router *nav.Router
	w      *checkout.Workflow
}

func newEnv(t *testing.T, items []cart.LineItem) *env {
	t.Helper()

	shop := &fakeShop{}
	srv := httptest.NewServer(shop.handler())
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(backend.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mirror := redisstore.NewCartMirror(rdb, "user-1", 0)

	store := cart.NewMemoryStore(items, mirror)

	lg := zaptest.NewLogger(t)
	router := nav.NewRouter(lg, checkout.RouteCart)

	w := checkout.New(
		checkout.Config{ConfirmDelay: 30 * time.Millisecond},
		checkout.Deps{
			Auth:    staticAuth{user: &checkout.User{ID: "user-1", Name: "Ayesha Khan"}},
			Cart:    store,
			Pricing: backend.NewPricingClient(client),
			Orders:  backend.NewOrderClient(client),
			Proofs:  backend.NewProofClient(client),
			Nav:     router,
			Notify:  notify.NewLog(lg),
			Logger:  lg,
		},
	)
	t.Cleanup(w.Close)

	return &env{shop: shop, store: store, mirror: mirror, router: router, w: w}
}

func fillForm(w *checkout.Workflow) {
	f := checkout.NewShippingForm()
	f.FirstName = "Ayesha"
	f.LastName = "Khan"
	f.Email = "ayesha@example.com"
	f.Address = "14-B Gulberg III"
	f.City = "Lahore"
	f.MobileNumber = "+92 300 1234567"
	w.SetForm(f)
}

func TestCheckout_CODEndToEnd(t *testing.T) {
	e := newEnv(t, []cart.LineItem{{ProductID: "B1", Quantity: 2}})
	ctx := context.Background()

	require.NoError(t, e.w.Start(ctx))

	totals := e.w.Totals()
	assert.True(t, decimal.NewFromInt(27).Equal(totals.Total), "total = %s", totals.Total)

	fillForm(e.w)
	require.NoError(t, e.w.Submit(ctx))

	assert.Equal(t, checkout.StateThankYouShown, e.w.State())
	assert.Empty(t, e.store.Items(), "cart clears after placement")

	// The mirror clears along with the in-memory cart.
	_, err := e.mirror.Load(ctx)
	assert.ErrorIs(t, err, redisstore.ErrNoCart)

	e.shop.mu.Lock()
	require.Len(t, e.shop.orders, 1)
	placed := e.shop.orders[0]
	e.shop.mu.Unlock()
	assert.Equal(t, "cod", placed["paymentMethod"])
	assert.Equal(t, float64(2), placed["taxes"])
	assert.Equal(t, float64(5), placed["shippingFee"])

	assert.Eventually(t, func() bool {
		return e.router.Current() == checkout.RouteOrders
	}, time.Second, 10*time.Millisecond, "thank-you screen redirects to orders")
}

func TestCheckout_OnlineWithProofEndToEnd(t *testing.T) {
	e := newEnv(t, []cart.LineItem{{ProductID: "B3", Quantity: 1}})
	ctx := context.Background()

	require.NoError(t, e.w.Start(ctx))
	fillForm(e.w)

	e.w.ChoosePaymentMethod(checkout.PaymentOnline)
	e.w.ConfirmOnlinePayment(true)
	e.w.SelectOnlineOption(checkout.OnlineJazzCash)
	require.NoError(t, e.w.AttachProof(checkout.Proof{
		Filename:    "receipt.png",
		ContentType: "image/png",
		Data:        make([]byte, 1024),
	}))

	require.NoError(t, e.w.Submit(ctx))

	e.shop.mu.Lock()
	require.Len(t, e.shop.orders, 1)
	placed := e.shop.orders[0]
	proofOrders := append([]string(nil), e.shop.proofOrders...)
	e.shop.mu.Unlock()

	assert.Equal(t, "online", placed["paymentMethod"])
	assert.Equal(t, "JazzCash", placed["onlinePaymentOption"])
	assert.Equal(t, []string{"ord-e2e-1"}, proofOrders, "proof uploads against the new order")
}

func TestCheckout_RejectionRollsBackCartAndMirror(t *testing.T) {
	items := []cart.LineItem{{ProductID: "B1", Quantity: 2}}
	e := newEnv(t, items)
	e.shop.rejectOrder = "Product B1 is out of stock"
	ctx := context.Background()

	require.NoError(t, e.w.Start(ctx))
	fillForm(e.w)

	err := e.w.Submit(ctx)
	var rej *checkout.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Product B1 is out of stock", rej.Message)

	assert.Equal(t, items, e.store.Items(), "cart survives a rejected order")
	assert.Equal(t, checkout.StateIdle, e.w.State())
	assert.NotEqual(t, checkout.RouteOrders, e.router.Current())

	// Mirror still carries the cart, so a retry after restart resumes it.
	stored, loadErr := e.mirror.Load(ctx)
	require.NoError(t, loadErr)
	assert.Equal(t, items, stored)

	// Backend recovers; the retry succeeds on the same session.
	e.shop.mu.Lock()
	e.shop.rejectOrder = ""
	e.shop.mu.Unlock()

	require.NoError(t, e.w.Submit(ctx))
	assert.Empty(t, e.store.Items())
}
