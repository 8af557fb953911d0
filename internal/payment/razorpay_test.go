package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"busbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSign(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	r := NewRazorpay("rzp_test_key", "key-secret", "hook-secret")

	good := testSign([]byte("order_1|pay_1"), "key-secret")
	assert.True(t, r.VerifyPaymentSignature("order_1", "pay_1", good))
	assert.False(t, r.VerifyPaymentSignature("order_1", "pay_2", good))
	assert.False(t, r.VerifyPaymentSignature("order_1", "pay_1", "deadbeef"))
	assert.False(t, r.VerifyPaymentSignature("order_1", "pay_1", ""))
}

func TestVerifyWebhookSignature(t *testing.T) {
	r := NewRazorpay("rzp_test_key", "key-secret", "hook-secret")

	body := []byte(`{"event":"payment.captured"}`)
	assert.True(t, r.VerifyWebhookSignature(body, testSign(body, "hook-secret")))
	// webhook signatures use the webhook secret, not the key secret
	assert.False(t, r.VerifyWebhookSignature(body, testSign(body, "key-secret")))
	assert.False(t, r.VerifyWebhookSignature([]byte("tampered"), testSign(body, "hook-secret")))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, http.MethodPost, req.Method)
		require.Equal(t, "/orders", req.URL.Path)

		user, pass, ok := req.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key-secret", pass)

		var or OrderRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&or))
		assert.Equal(t, int64(10000), or.Amount)
		assert.Equal(t, "INR", or.Currency)

		json.NewEncoder(w).Encode(Order{
			ID:       "order_srv1",
			Amount:   or.Amount,
			Currency: or.Currency,
			Receipt:  or.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	r := NewRazorpay("rzp_test_key", "key-secret", "hook-secret")
	r.BaseURL = srv.URL

	order, err := r.CreateOrder(context.Background(), OrderRequest{
		Amount:  10000,
		Receipt: "booking_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_srv1", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrderProcessorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewRazorpay("rzp_test_key", "key-secret", "hook-secret")
	r.BaseURL = srv.URL

	_, err := r.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	require.Error(t, err)
	assert.True(t, domain.IsInternal(err))
}

func TestFetchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/orders/order_srv1", req.URL.Path)
		json.NewEncoder(w).Encode(Order{ID: "order_srv1", Status: "paid"})
	}))
	defer srv.Close()

	r := NewRazorpay("rzp_test_key", "key-secret", "hook-secret")
	r.BaseURL = srv.URL

	order, err := r.FetchOrder(context.Background(), "order_srv1")
	require.NoError(t, err)
	assert.Equal(t, "paid", order.Status)
}
