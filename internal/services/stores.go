package services

import (
	"time"

	"busbooking/internal/domain/models"
	"busbooking/internal/repositories"
)

// BusStore is the slice of the bus repository the services need.
type BusStore interface {
	GetByID(id string) (models.Bus, error)
	UpdateSeatMap(busID string, m models.SeatMap, version int64) error
	List(f repositories.BusFilter) ([]models.Bus, int, error)
}

// BookingStore is the slice of the booking repository the services need.
type BookingStore interface {
	Create(bk models.Booking) error
	GetByID(id string) (models.Booking, error)
	GetByOrderID(orderID string) (models.Booking, error)
	List(f repositories.BookingFilter) ([]models.Booking, int, error)
	SetOrder(id, orderID string) error
	Confirm(id, paymentID string) error
	MarkCancelled(id, reason string, at time.Time) error
	MarkPaymentFailed(id string) error
}

var (
	_ BusStore     = repositories.BusRepository{}
	_ BookingStore = repositories.BookingRepository{}
)
