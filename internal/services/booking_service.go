package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/repositories"
	"busbooking/internal/utils"

	"github.com/google/uuid"
)

// seatMapRetries bounds how often a seat-map write is retried after losing a
// version race before giving up with a conflict.
const seatMapRetries = 3

// BookingService owns the booking lifecycle and the seat-inventory updates
// that go with it. Seats are held (marked booked) at creation and released on
// cancellation or payment failure.
type BookingService struct {
	Buses     BusStore
	Bookings  BookingStore
	RequestID string
	Now       func() time.Time
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SeatSelection is one requested seat with its passenger.
type SeatSelection struct {
	SeatNumber    string `json:"seatNumber"`
	PassengerName string `json:"passengerName"`
}

type CreateBookingRequest struct {
	BusID string          `json:"busId"`
	Seats []SeatSelection `json:"seats"`
}

// Create reserves the requested seats and writes a pending booking. The seat
// map is read, transitioned in memory and written back with a version guard;
// losing the race re-reads and re-checks, so overlapping concurrent bookings
// cannot both succeed and no partial seat mutation is ever persisted.
func (s BookingService) Create(userID string, req CreateBookingRequest) (models.Booking, error) {
	if req.BusID == "" {
		return models.Booking{}, domain.ValidationError{Field: "busId", Msg: "required"}
	}
	if len(req.Seats) == 0 {
		return models.Booking{}, domain.ValidationError{Field: "seats", Msg: "select at least one seat"}
	}
	seatIDs := make([]string, 0, len(req.Seats))
	seen := map[string]bool{}
	for _, sel := range req.Seats {
		if sel.SeatNumber == "" {
			return models.Booking{}, domain.ValidationError{Field: "seats", Msg: "seat number is required"}
		}
		if seen[sel.SeatNumber] {
			return models.Booking{}, domain.ValidationError{Field: "seats", Msg: "seat " + sel.SeatNumber + " selected twice"}
		}
		seen[sel.SeatNumber] = true
		seatIDs = append(seatIDs, sel.SeatNumber)
	}

	now := s.now()
	for attempt := 0; attempt < seatMapRetries; attempt++ {
		bus, err := s.Buses.GetByID(req.BusID)
		if err != nil {
			return models.Booking{}, err
		}
		if !bus.IsActive {
			return models.Booking{}, domain.NotFoundError{Resource: "bus"}
		}
		if !bus.DepartureTime.After(now) {
			return models.Booking{}, domain.ValidationError{Field: "busId", Msg: "bus has already departed"}
		}

		for _, id := range seatIDs {
			seat, ok := bus.SeatMap[id]
			if !ok {
				return models.Booking{}, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("seat %s does not exist on this bus", id)}
			}
			if seat.Status != models.SeatAvailable {
				return models.Booking{}, domain.ConflictError{Resource: "seat", Msg: fmt.Sprintf("seat %s is already %s", id, seat.Status)}
			}
		}

		next, err := bus.SeatMap.Transition(seatIDs, models.SeatBooked)
		if err != nil {
			return models.Booking{}, err
		}
		if err := s.Buses.UpdateSeatMap(bus.ID, next, bus.Version); err != nil {
			if errors.Is(err, repositories.ErrStaleSeatMap) {
				continue
			}
			return models.Booking{}, err
		}

		details := make([]models.SeatDetail, 0, len(req.Seats))
		var total int64
		for _, sel := range req.Seats {
			price := bus.SeatPrice(sel.SeatNumber)
			details = append(details, models.SeatDetail{
				SeatNumber:    sel.SeatNumber,
				SeatType:      bus.SeatMap[sel.SeatNumber].SeatType,
				Price:         price,
				PassengerName: sel.PassengerName,
			})
			total += price
		}

		booking := models.Booking{
			ID:            uuid.NewString(),
			UserID:        userID,
			BusID:         bus.ID,
			TravelDate:    bus.DepartureTime,
			SeatDetails:   details,
			TotalSeats:    len(details),
			TotalAmount:   total,
			Status:        models.BookingPending,
			PaymentStatus: models.PaymentPending,
		}
		if err := s.Bookings.Create(booking); err != nil {
			// Give the seats back; the ledger write failed after the hold.
			if relErr := releaseSeats(s.Buses, bus.ID, seatIDs); relErr != nil {
				utils.LogEvent(s.RequestID, "booking", "release_after_failed_create", relErr.Error())
			}
			return models.Booking{}, err
		}

		utils.LogEvent(s.RequestID, "booking", "created",
			"booking_id="+booking.ID+" bus_id="+bus.ID+" seats="+strconv.Itoa(len(seatIDs)))
		return booking, nil
	}

	return models.Booking{}, domain.ConflictError{Resource: "seat", Msg: "seats are being booked by someone else, try again"}
}

// Cancel releases a pending booking's seats. Owners may cancel their own
// bookings, admins anyone's, and only while departure is at least 2h away.
func (s BookingService) Cancel(userID string, isAdmin bool, bookingID, reason string) (models.Booking, error) {
	bk, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !isAdmin && bk.UserID != userID {
		return models.Booking{}, domain.ForbiddenError{Msg: "you do not have permission to cancel this booking"}
	}

	bus, err := s.Buses.GetByID(bk.BusID)
	if err != nil {
		return models.Booking{}, err
	}

	now := s.now()
	if err := bk.CanCancelAt(now, bus.DepartureTime); err != nil {
		return models.Booking{}, err
	}

	// Flip status first; its pending-only guard makes a concurrent double
	// cancel release the seats exactly once.
	if err := s.Bookings.MarkCancelled(bk.ID, reason, now); err != nil {
		return models.Booking{}, err
	}
	// The cancellation has committed; a failed release must not fail the
	// request or the seats stay booked with no retry path left. Log it for
	// operator cleanup instead.
	if err := releaseSeats(s.Buses, bk.BusID, bk.SeatNumbers()); err != nil {
		utils.LogEvent(s.RequestID, "booking", "seat_release_stuck",
			"booking_id="+bk.ID+" bus_id="+bk.BusID+" seats="+strings.Join(bk.SeatNumbers(), ",")+" err="+err.Error())
	}

	utils.LogEvent(s.RequestID, "booking", "cancelled", "booking_id="+bk.ID)
	return s.Bookings.GetByID(bk.ID)
}

// Get returns a booking, owner- or admin-gated.
func (s BookingService) Get(userID string, isAdmin bool, bookingID string) (models.Booking, error) {
	bk, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !isAdmin && bk.UserID != userID {
		return models.Booking{}, domain.ForbiddenError{Msg: "you do not have permission to view this booking"}
	}
	return bk, nil
}

// List pages through bookings; non-admins only ever see their own.
func (s BookingService) List(userID string, isAdmin bool, f repositories.BookingFilter) ([]models.Booking, int, error) {
	if !isAdmin {
		f.UserID = userID
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	return s.Bookings.List(f)
}

// Search returns active buses matching the route substrings that depart
// within the requested day and still have enough free seats.
func (s BookingService) Search(source, destination string, date time.Time, seats int) ([]models.Bus, error) {
	if seats <= 0 {
		seats = 1
	}
	buses, _, err := s.Buses.List(repositories.BusFilter{
		Source:      source,
		Destination: destination,
		Date:        &date,
		ActiveOnly:  true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Bus, 0, len(buses))
	for _, b := range buses {
		if b.SeatMap.AvailableCount() >= seats {
			out = append(out, b)
		}
	}
	return out, nil
}

// releaseSeats returns the given seats to available with the same
// read-transition-CAS loop used for holds.
func releaseSeats(buses BusStore, busID string, seatIDs []string) error {
	var lastErr error
	for attempt := 0; attempt < seatMapRetries; attempt++ {
		bus, err := buses.GetByID(busID)
		if err != nil {
			return err
		}
		next, err := bus.SeatMap.Transition(seatIDs, models.SeatAvailable)
		if err != nil {
			return err
		}
		err = buses.UpdateSeatMap(bus.ID, next, bus.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrStaleSeatMap) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
