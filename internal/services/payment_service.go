package services

import (
	"context"
	"encoding/json"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/payment"
	"busbooking/internal/utils"
)

// PaymentService drives checkout and the two confirmation paths: the
// synchronous client callback and the asynchronous processor webhook.
type PaymentService struct {
	Gateway   payment.Gateway
	Bookings  BookingStore
	Buses     BusStore
	RequestID string
	Now       func() time.Time
}

func (s PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckoutResult is what the client needs to open the processor's widget.
type CheckoutResult struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Booking  string `json:"bookingId"`
}

// Checkout opens a payment order for a pending booking the caller owns.
func (s PaymentService) Checkout(ctx context.Context, userID string, isAdmin bool, bookingID string) (CheckoutResult, error) {
	bk, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !isAdmin && bk.UserID != userID {
		return CheckoutResult{}, domain.ForbiddenError{Msg: "you do not have permission to pay for this booking"}
	}
	if bk.Status != models.BookingPending {
		return CheckoutResult{}, domain.ConflictError{Resource: "booking", Msg: "already " + bk.Status}
	}

	order, err := s.Gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   utils.RupeesToPaise(bk.TotalAmount),
		Currency: "INR",
		Receipt:  "booking_" + bk.ID,
		Notes:    map[string]string{"bookingId": bk.ID, "userId": bk.UserID},
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	if err := s.Bookings.SetOrder(bk.ID, order.ID); err != nil {
		return CheckoutResult{}, err
	}

	utils.LogEvent(s.RequestID, "payment", "order_created", "booking_id="+bk.ID+" order_id="+order.ID)
	return CheckoutResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Booking:  bk.ID,
	}, nil
}

// ConfirmClient handles the synchronous confirmation the checkout page posts
// back. The signature covers orderID|paymentID; a mismatch performs no
// mutation. The order must also be the one opened for this booking at
// checkout, otherwise a signature for a cheaper order could confirm any
// pending booking.
func (s PaymentService) ConfirmClient(bookingID, orderID, paymentID, signature string) error {
	if !s.Gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		return domain.UnauthorizedError{Msg: "invalid payment signature"}
	}

	bk, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return err
	}
	if bk.OrderID == "" || bk.OrderID != orderID {
		return domain.UnauthorizedError{Msg: "order does not belong to this booking"}
	}
	return s.confirm(bk, paymentID)
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies and processes a processor delivery. Re-delivery of
// an already-confirmed payment is a no-op; a bad signature processes nothing.
func (s PaymentService) HandleWebhook(body []byte, signature string) error {
	if !s.Gateway.VerifyWebhookSignature(body, signature) {
		return domain.UnauthorizedError{Msg: "invalid webhook signature"}
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.ValidationError{Field: "body", Msg: "malformed webhook payload"}
	}

	switch ev.Event {
	case "payment.captured":
		bk, err := s.Bookings.GetByOrderID(ev.Payload.Payment.Entity.OrderID)
		if err != nil {
			return err
		}
		return s.confirm(bk, ev.Payload.Payment.Entity.ID)

	case "payment.failed":
		bk, err := s.Bookings.GetByOrderID(ev.Payload.Payment.Entity.OrderID)
		if err != nil {
			return err
		}
		return s.failPayment(bk)

	default:
		// Unsubscribed events are acknowledged without processing.
		utils.LogEvent(s.RequestID, "payment", "webhook_ignored", "event="+ev.Event)
		return nil
	}
}

func (s PaymentService) confirm(bk models.Booking, paymentID string) error {
	switch bk.Status {
	case models.BookingConfirmed:
		// Idempotent: the processor may deliver the same event twice.
		utils.LogEvent(s.RequestID, "payment", "confirm_noop", "booking_id="+bk.ID)
		return nil
	case models.BookingCancelled:
		return domain.ConflictError{Resource: "booking", Msg: "cancelled, payment needs a refund"}
	}
	if err := s.Bookings.Confirm(bk.ID, paymentID); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "payment", "confirmed", "booking_id="+bk.ID+" payment_id="+paymentID)
	return nil
}

// failPayment cancels the pending booking and gives its held seats back.
func (s PaymentService) failPayment(bk models.Booking) error {
	if bk.Status != models.BookingPending {
		utils.LogEvent(s.RequestID, "payment", "failed_noop", "booking_id="+bk.ID+" status="+bk.Status)
		return nil
	}
	if err := s.Bookings.MarkPaymentFailed(bk.ID); err != nil {
		return err
	}
	if err := s.Bookings.MarkCancelled(bk.ID, "payment failed", s.now()); err != nil {
		return err
	}
	// Cancellation has committed; see BookingService.Cancel for why a failed
	// release is logged rather than returned.
	if err := releaseSeats(s.Buses, bk.BusID, bk.SeatNumbers()); err != nil {
		utils.LogEvent(s.RequestID, "payment", "seat_release_stuck",
			"booking_id="+bk.ID+" bus_id="+bk.BusID+" err="+err.Error())
		return nil
	}
	utils.LogEvent(s.RequestID, "payment", "failed_released", "booking_id="+bk.ID)
	return nil
}
