package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/testutil"
)

func newStripeStub(t *testing.T, handler http.HandlerFunc) *services.StripeBilling {
	t.Helper()
	testutil.InitLogger()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return services.NewStripeBilling(services.StripeConfig{
		SecretKey: "sk_test_123",
		Timeout:   5 * time.Second,
		BaseURL:   srv.URL,
	})
}

func TestStripeBillingCreateCustomer(t *testing.T) {
	billing := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "taro@example.com", r.PostForm.Get("email"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	})

	id, err := billing.CreateCustomer(context.Background(), "taro@example.com", "名古屋 太郎")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestStripeBillingUpdateDefaultPaymentMethod(t *testing.T) {
	billing := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/payment_methods/pm_123/attach":
			w.Write([]byte(`{"id":"pm_123","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242"}}`))
		case "/v1/customers/cus_123":
			w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"unknown"}}`))
		}
	})

	details, err := billing.UpdateDefaultPaymentMethod(context.Background(), "cus_123", "pm_123")
	require.NoError(t, err)
	assert.Equal(t, "visa", details.Type)
	assert.Equal(t, "4242", details.LastFour)
}

func TestStripeBillingBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	billing := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	})

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		err := billing.CancelSubscription(ctx, "sub_123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, services.ErrBillingUnavailable)
	}
	assert.Equal(t, int32(6), hits.Load())

	err := billing.CancelSubscription(ctx, "sub_123")
	assert.ErrorIs(t, err, services.ErrBillingUnavailable)
	assert.Equal(t, int32(6), hits.Load(), "open breaker must not reach the provider")
}

func TestStripeBillingBreakerIgnoresDeclinedCards(t *testing.T) {
	var hits atomic.Int32
	billing := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/customers" {
			w.Write([]byte(`{"id":"cus_other","object":"customer"}`))
			return
		}
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		_, err := billing.UpdateDefaultPaymentMethod(ctx, "cus_123", "pm_card_chargeDeclined")
		require.Error(t, err)
		assert.NotErrorIs(t, err, services.ErrBillingUnavailable)
	}
	assert.Equal(t, int32(8), hits.Load())

	// Another member is unaffected by the declines.
	id, err := billing.CreateCustomer(ctx, "hanako@example.com", "名古屋 花子")
	require.NoError(t, err)
	assert.Equal(t, "cus_other", id)
}

func TestDisabledBilling(t *testing.T) {
	var provider services.BillingProvider = services.DisabledBilling{}
	_, err := provider.CreateCustomer(context.Background(), "a@example.com", "a")
	assert.ErrorIs(t, err, services.ErrBillingUnavailable)
	assert.ErrorIs(t, provider.CancelSubscription(context.Background(), "sub"), services.ErrBillingUnavailable)
}
