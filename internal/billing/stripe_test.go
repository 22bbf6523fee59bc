package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/config"
)

func signPayload(secret string, ts time.Time, payload []byte) string {
	signed := fmt.Sprintf("%d.%s", ts.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newTestProvider(opts ...StripeOption) *StripeProvider {
	return NewStripeProvider(config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		SuccessURL:    "https://app.example.com/success",
		CancelURL:     "https://app.example.com/cancel",
	}, opts...)
}

func TestStripeProvider_VerifyWebhook(t *testing.T) {
	p := newTestProvider()
	now := time.Now()
	p.now = func() time.Time { return now }
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	t.Run("valid signature", func(t *testing.T) {
		header := signPayload("whsec_test", now, payload)
		assert.NoError(t, p.VerifyWebhook(payload, header))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := signPayload("whsec_other", now, payload)
		assert.ErrorIs(t, p.VerifyWebhook(payload, header), ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := signPayload("whsec_test", now, payload)
		assert.ErrorIs(t, p.VerifyWebhook([]byte(`{"id":"evt_2"}`), header), ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := signPayload("whsec_test", now.Add(-10*time.Minute), payload)
		assert.ErrorIs(t, p.VerifyWebhook(payload, header), ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.ErrorIs(t, p.VerifyWebhook(payload, ""), ErrInvalidSignature)
	})

	t.Run("extra v0 signature is ignored", func(t *testing.T) {
		header := signPayload("whsec_test", now, payload) + ",v0=deadbeef"
		assert.NoError(t, p.VerifyWebhook(payload, header))
	})
}

func TestStripeProvider_ParseEvent(t *testing.T) {
	p := newTestProvider()

	t.Run("checkout session", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_1",
			"type": "checkout.session.completed",
			"data": {"object": {
				"customer": "cus_123",
				"customer_details": {"email": "buyer@example.com"}
			}}
		}`)
		ev, err := p.ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, "checkout.session.completed", ev.Type)
		assert.Equal(t, "cus_123", ev.CustomerID)
		assert.Equal(t, "buyer@example.com", ev.CustomerEmail)
	})

	t.Run("subscription with price", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_2",
			"type": "customer.subscription.updated",
			"data": {"object": {
				"customer": "cus_123",
				"items": {"data": [{"price": {"id": "price_ent"}}]}
			}}
		}`)
		ev, err := p.ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, "price_ent", ev.PriceID)
		assert.Empty(t, ev.CustomerEmail)
	})

	t.Run("missing type fails", func(t *testing.T) {
		_, err := p.ParseEvent([]byte(`{"id":"evt_3"}`))
		assert.Error(t, err)
	})

	t.Run("malformed json fails", func(t *testing.T) {
		_, err := p.ParseEvent([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "buyer@example.com", r.PostForm.Get("customer_email"))
		assert.Equal(t, "price_pro", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))

		json.NewEncoder(w).Encode(map[string]string{"url": "https://checkout.stripe.com/pay/cs_1"})
	}))
	defer srv.Close()

	p := newTestProvider(WithStripeBaseURL(srv.URL))
	url, err := p.CreateCheckoutSession(context.Background(), "buyer@example.com", "price_pro")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_1", url)
}

func TestStripeProvider_CreatePortalSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://billing.stripe.com/p/session_1"})
	}))
	defer srv.Close()

	p := newTestProvider(WithStripeBaseURL(srv.URL))
	url, err := p.CreatePortalSession(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session_1", url)
}

func TestStripeProvider_SessionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	p := newTestProvider(WithStripeBaseURL(srv.URL))
	_, err := p.CreateCheckoutSession(context.Background(), "a@b.com", "price_pro")
	assert.Error(t, err)
}
