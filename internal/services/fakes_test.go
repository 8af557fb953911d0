package services

import (
	"strings"
	"sync"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/repositories"
)

// fakeBusStore mimics the repository's version-guarded seat-map write.
type fakeBusStore struct {
	mu    sync.Mutex
	buses map[string]*models.Bus

	// forceStale makes the next n UpdateSeatMap calls fail with
	// ErrStaleSeatMap while still bumping the version, like a concurrent
	// writer winning the race.
	forceStale int
}

func newFakeBusStore(buses ...models.Bus) *fakeBusStore {
	s := &fakeBusStore{buses: map[string]*models.Bus{}}
	for i := range buses {
		b := buses[i]
		s.buses[b.ID] = &b
	}
	return s
}

func (s *fakeBusStore) GetByID(id string) (models.Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buses[id]
	if !ok {
		return models.Bus{}, domain.NotFoundError{Resource: "bus"}
	}
	out := *b
	out.SeatMap = make(models.SeatMap, len(b.SeatMap))
	for k, v := range b.SeatMap {
		out.SeatMap[k] = v
	}
	return out, nil
}

func (s *fakeBusStore) UpdateSeatMap(busID string, m models.SeatMap, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buses[busID]
	if !ok {
		return domain.NotFoundError{Resource: "bus"}
	}
	if s.forceStale > 0 {
		s.forceStale--
		b.Version++
		return repositories.ErrStaleSeatMap
	}
	if b.Version != version {
		return repositories.ErrStaleSeatMap
	}
	b.SeatMap = m
	b.Version++
	return nil
}

func (s *fakeBusStore) List(f repositories.BusFilter) ([]models.Bus, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bus
	for _, b := range s.buses {
		if f.ActiveOnly && !b.IsActive {
			continue
		}
		if f.Source != "" && !containsFold(b.Source, f.Source) {
			continue
		}
		if f.Destination != "" && !containsFold(b.Destination, f.Destination) {
			continue
		}
		if f.Date != nil {
			start := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, f.Date.Location())
			end := start.AddDate(0, 0, 1)
			if b.DepartureTime.Before(start) || !b.DepartureTime.Before(end) {
				continue
			}
		}
		out = append(out, *b)
	}
	// departure_time ASC, like the SQL ORDER BY
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].DepartureTime.Before(out[i].DepartureTime) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, len(out), nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking

	createErr error
}

func newFakeBookingStore(bookings ...models.Booking) *fakeBookingStore {
	s := &fakeBookingStore{bookings: map[string]*models.Booking{}}
	for i := range bookings {
		b := bookings[i]
		s.bookings[b.ID] = &b
	}
	return s
}

func (s *fakeBookingStore) Create(bk models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.bookings[bk.ID] = &bk
	return nil
}

func (s *fakeBookingStore) GetByID(id string) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return *b, nil
}

func (s *fakeBookingStore) GetByOrderID(orderID string) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.OrderID == orderID {
			return *b, nil
		}
	}
	return models.Booking{}, domain.NotFoundError{Resource: "booking"}
}

func (s *fakeBookingStore) List(f repositories.BookingFilter) ([]models.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.BusID != "" && b.BusID != f.BusID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (s *fakeBookingStore) SetOrder(id, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	b.OrderID = orderID
	return nil
}

func (s *fakeBookingStore) Confirm(id, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	if b.Status != models.BookingPending {
		return domain.ConflictError{Resource: "booking", Msg: "not pending"}
	}
	b.Status = models.BookingConfirmed
	b.PaymentID = paymentID
	b.PaymentStatus = models.PaymentCompleted
	return nil
}

func (s *fakeBookingStore) MarkCancelled(id, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	if b.Status != models.BookingPending {
		return domain.ConflictError{Resource: "booking", Msg: "not pending"}
	}
	b.Status = models.BookingCancelled
	b.CancelReason = reason
	b.CancelledAt = &at
	return nil
}

func (s *fakeBookingStore) MarkPaymentFailed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	b.PaymentStatus = models.PaymentFailed
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
