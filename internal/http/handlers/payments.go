package handlers

import (
	"io"
	"net/http"

	"busbooking/internal/domain"
	"busbooking/internal/http/middleware"
	"busbooking/internal/repositories"
	"busbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func paymentService(c *gin.Context) services.PaymentService {
	return services.PaymentService{
		Gateway:   gateway,
		Bookings:  repositories.BookingRepository{},
		Buses:     repositories.BusRepository{},
		RequestID: middleware.GetRequestID(c),
	}
}

// POST /api/payments/checkout/:bookingId
func CheckoutPayment(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	result, err := paymentService(c).Checkout(c.Request.Context(), auth.UserID, auth.IsAdmin(), c.Param("bookingId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order": result,
		"keyId": env.RazorpayKeyID,
	})
}

type processPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// POST /api/payments/process/:bookingId
func ProcessPayment(c *gin.Context) {
	if _, ok := mustAuth(c); !ok {
		return
	}
	var req processPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		RespondDomainError(c, domain.ValidationError{Msg: "order id, payment id and signature are required"})
		return
	}

	if err := paymentService(c).ConfirmClient(c.Param("bookingId"), req.OrderID, req.PaymentID, req.Signature); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "payment confirmed"})
}

// POST /api/payments/webhook
// Unauthenticated route; trust comes from the HMAC signature over the raw
// body.
func PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "body", Msg: "unreadable body"})
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")

	if err := paymentService(c).HandleWebhook(body, signature); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
