package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"busbooking/internal/domain"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Razorpay talks to the Razorpay Orders API over HTTP basic auth and checks
// HMAC-SHA256 signatures the way the dashboard documents them:
// payment signatures sign "orderID|paymentID" with the key secret, webhook
// signatures sign the raw body with the webhook secret.
type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	return &Razorpay{
		KeyID:         keyID,
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		BaseURL:       defaultBaseURL,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if req.Currency == "" {
		req.Currency = "INR"
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Order{}, err
	}
	return r.do(ctx, http.MethodPost, "/orders", bytes.NewReader(payload))
}

func (r *Razorpay) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	return r.do(ctx, http.MethodGet, "/orders/"+orderID, nil)
}

func (r *Razorpay) do(ctx context.Context, method, path string, body io.Reader) (Order, error) {
	base := r.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return Order{}, err
	}
	req.SetBasicAuth(r.KeyID, r.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Order{}, domain.InternalError{Msg: "payment processor unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, domain.InternalError{Msg: "payment processor response unreadable", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Order{}, domain.InternalError{
			Msg: fmt.Sprintf("payment processor returned %d", resp.StatusCode),
		}
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return Order{}, domain.InternalError{Msg: "payment processor response invalid", Err: err}
	}
	return order, nil
}

func (r *Razorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := signHex([]byte(orderID+"|"+paymentID), r.KeySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (r *Razorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	expected := signHex(body, r.WebhookSecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func signHex(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
