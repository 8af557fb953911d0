package services

import (
	"testing"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus(id string, seats int) models.Bus {
	return models.Bus{
		ID:            id,
		BusNumber:     "KA-01-" + id,
		BusName:       "Express " + id,
		Source:        "Springfield",
		Destination:   "Shelbyville",
		DepartureTime: time.Now().Add(24 * time.Hour),
		ArrivalTime:   time.Now().Add(30 * time.Hour),
		TotalSeats:    seats,
		Fare:          100,
		BusType:       "AC",
		IsActive:      true,
		SeatMap:       models.NewSeatMap(seats),
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateBookingHoldsSeatAndComputesTotal(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	bookings := newFakeBookingStore()
	svc := BookingService{Buses: buses, Bookings: bookings}

	bk, err := svc.Create("user1", CreateBookingRequest{
		BusID: "bus1",
		Seats: []SeatSelection{{SeatNumber: "1", PassengerName: "Homer"}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingPending, bk.Status)
	assert.Equal(t, int64(100), bk.TotalAmount)
	assert.Equal(t, 1, bk.TotalSeats)

	bus, _ := buses.GetByID("bus1")
	assert.Equal(t, models.SeatBooked, bus.SeatMap["1"].Status)
	assert.Equal(t, models.SeatAvailable, bus.SeatMap["2"].Status)
}

func TestCreateBookingPerSeatPricing(t *testing.T) {
	bus := testBus("bus1", 2)
	bus.SeatMap["1"] = models.Seat{Status: models.SeatAvailable, SeatType: "sleeper", Price: 250}
	buses := newFakeBusStore(bus)
	svc := BookingService{Buses: buses, Bookings: newFakeBookingStore()}

	bk, err := svc.Create("user1", CreateBookingRequest{
		BusID: "bus1",
		Seats: []SeatSelection{{SeatNumber: "1"}, {SeatNumber: "2"}},
	})
	require.NoError(t, err)

	// seat 1 has its own price, seat 2 falls back to the bus fare
	assert.Equal(t, int64(350), bk.TotalAmount)
	assert.Equal(t, "sleeper", bk.SeatDetails[0].SeatType)
}

func TestCreateBookingRejectsBookedSeat(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	bookings := newFakeBookingStore()
	svc := BookingService{Buses: buses, Bookings: bookings}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.NoError(t, err)

	_, err = svc.Create("user2", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestCreateBookingNoPartialMutationOnConflict(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 3))
	svc := BookingService{Buses: buses, Bookings: newFakeBookingStore()}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "3"}}})
	require.NoError(t, err)

	// asks for 2 seats where only seat selection overlaps a booked one
	_, err = svc.Create("user2", CreateBookingRequest{
		BusID: "bus1",
		Seats: []SeatSelection{{SeatNumber: "1"}, {SeatNumber: "3"}},
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	bus, _ := buses.GetByID("bus1")
	assert.Equal(t, models.SeatAvailable, bus.SeatMap["1"].Status, "seat 1 must not be half-booked")
}

func TestCreateBookingUnknownSeatIsValidationError(t *testing.T) {
	svc := BookingService{Buses: newFakeBusStore(testBus("bus1", 2)), Bookings: newFakeBookingStore()}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "99"}}})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestCreateBookingRetriesOnStaleSeatMap(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	buses.forceStale = 1
	svc := BookingService{Buses: buses, Bookings: newFakeBookingStore()}

	bk, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.NoError(t, err, "a single lost race should be retried")
	assert.Equal(t, models.BookingPending, bk.Status)
}

func TestCreateBookingGivesUpAfterRepeatedRaces(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	buses.forceStale = seatMapRetries
	svc := BookingService{Buses: buses, Bookings: newFakeBookingStore()}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestCreateBookingReleasesSeatsWhenLedgerWriteFails(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	bookings := newFakeBookingStore()
	bookings.createErr = domain.InternalError{Msg: "insert failed"}
	svc := BookingService{Buses: buses, Bookings: bookings}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.Error(t, err)

	bus, _ := buses.GetByID("bus1")
	assert.Equal(t, models.SeatAvailable, bus.SeatMap["1"].Status)
}

func TestCreateBookingInactiveBusNotFound(t *testing.T) {
	bus := testBus("bus1", 2)
	bus.IsActive = false
	svc := BookingService{Buses: newFakeBusStore(bus), Bookings: newFakeBookingStore()}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestCancelReleasesSeats(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	bookings := newFakeBookingStore()
	svc := BookingService{Buses: buses, Bookings: bookings}

	bk, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}, {SeatNumber: "2"}}})
	require.NoError(t, err)

	cancelled, err := svc.Cancel("user1", false, bk.ID, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	bus, _ := buses.GetByID("bus1")
	assert.Equal(t, models.SeatAvailable, bus.SeatMap["1"].Status)
	assert.Equal(t, models.SeatAvailable, bus.SeatMap["2"].Status)

	// released seats are selectable again
	_, err = svc.Create("user2", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	assert.NoError(t, err)
}

func TestCancelSucceedsWhenSeatReleaseLosesEveryRace(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	bookings := newFakeBookingStore()
	svc := BookingService{Buses: buses, Bookings: bookings}

	bk, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.NoError(t, err)

	// exhaust every release retry; the cancellation itself has already
	// committed, so the call must still report the cancelled booking
	buses.forceStale = seatMapRetries
	cancelled, err := svc.Cancel("user1", false, bk.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)

	// the seat stays held for operator cleanup, not silently freed
	bus, _ := buses.GetByID("bus1")
	assert.Equal(t, models.SeatBooked, bus.SeatMap["1"].Status)
}

func TestCancelCutoffBoundary(t *testing.T) {
	departure := time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local)
	bus := testBus("bus1", 2)
	bus.DepartureTime = departure
	bus.ArrivalTime = departure.Add(6 * time.Hour)

	cases := []struct {
		name    string
		now     time.Time
		allowed bool
	}{
		{"exactly 2h before", departure.Add(-2 * time.Hour), true},
		{"just under 2h", departure.Add(-2*time.Hour + time.Second), false},
		{"well before", departure.Add(-48 * time.Hour), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buses := newFakeBusStore(bus)
			bookings := newFakeBookingStore()
			svc := BookingService{Buses: buses, Bookings: bookings, Now: fixedNow(departure.Add(-72 * time.Hour))}

			bk, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
			require.NoError(t, err)

			svc.Now = fixedNow(tc.now)
			_, err = svc.Cancel("user1", false, bk.ID, "")
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err))
			}
		})
	}
}

func TestCancelOwnershipAndTerminalStates(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 2))
	bookings := newFakeBookingStore()
	svc := BookingService{Buses: buses, Bookings: bookings}

	bk, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.NoError(t, err)

	_, err = svc.Cancel("intruder", false, bk.ID, "")
	assert.True(t, domain.IsForbidden(err))

	// admin may cancel anyone's booking
	_, err = svc.Cancel("some-admin", true, bk.ID, "ops")
	require.NoError(t, err)

	// cancelled is terminal
	_, err = svc.Cancel("user1", false, bk.ID, "")
	assert.True(t, domain.IsConflict(err))
}

func TestListScopesNonAdminsToOwnBookings(t *testing.T) {
	buses := newFakeBusStore(testBus("bus1", 4))
	bookings := newFakeBookingStore()
	svc := BookingService{Buses: buses, Bookings: bookings}

	_, err := svc.Create("user1", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "1"}}})
	require.NoError(t, err)
	_, err = svc.Create("user2", CreateBookingRequest{BusID: "bus1", Seats: []SeatSelection{{SeatNumber: "2"}}})
	require.NoError(t, err)

	mine, _, err := svc.List("user1", false, repositories.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "user1", mine[0].UserID)

	all, _, err := svc.List("some-admin", true, repositories.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearchFiltersByDayRouteAndCapacity(t *testing.T) {
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)

	inDay := testBus("in-day", 3)
	inDay.DepartureTime = day.Add(9 * time.Hour)
	inDay.ArrivalTime = day.Add(15 * time.Hour)

	later := testBus("later", 3)
	later.DepartureTime = day.Add(18 * time.Hour)
	later.ArrivalTime = day.Add(23 * time.Hour)

	nextDay := testBus("next-day", 3)
	nextDay.DepartureTime = day.AddDate(0, 0, 1).Add(time.Hour)
	nextDay.ArrivalTime = day.AddDate(0, 0, 1).Add(7 * time.Hour)

	inactive := testBus("inactive", 3)
	inactive.DepartureTime = day.Add(10 * time.Hour)
	inactive.ArrivalTime = day.Add(16 * time.Hour)
	inactive.IsActive = false

	full := testBus("full", 2)
	full.DepartureTime = day.Add(11 * time.Hour)
	full.ArrivalTime = day.Add(17 * time.Hour)
	full.SeatMap, _ = full.SeatMap.Transition([]string{"1", "2"}, models.SeatBooked)

	otherRoute := testBus("other-route", 3)
	otherRoute.Source = "Ogdenville"
	otherRoute.DepartureTime = day.Add(8 * time.Hour)
	otherRoute.ArrivalTime = day.Add(14 * time.Hour)

	buses := newFakeBusStore(inDay, later, nextDay, inactive, full, otherRoute)
	svc := BookingService{Buses: buses, Bookings: newFakeBookingStore()}

	// substring match is case-insensitive
	found, err := svc.Search("springfield", "SHELBY", day, 2)
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "in-day", found[0].ID, "ordered by departure time ascending")
	assert.Equal(t, "later", found[1].ID)
}
