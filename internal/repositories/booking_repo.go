package repositories

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"busbooking/internal/config"
	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
)

// BookingRepository wraps DB access for the booking ledger. Reads join the
// owning user and bus so callers get related entities in one round trip.
type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

// BookingFilter is the where-style filter for ledger listing.
type BookingFilter struct {
	UserID string
	BusID  string
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const bookingSelect = `SELECT
	b.id, b.user_id, b.bus_id, b.travel_date, b.seat_details, b.total_seats, b.total_amount,
	b.status, COALESCE(b.payment_id,''), COALESCE(b.order_id,''), b.payment_status,
	COALESCE(b.cancellation_reason,''), b.cancelled_at, b.created_at, b.updated_at,
	u.first_name, u.last_name, u.email,
	bus.bus_number, bus.bus_name, bus.source, bus.destination, bus.departure_time, bus.arrival_time, bus.fare
FROM bookings b
JOIN users u ON u.id = b.user_id
JOIN buses bus ON bus.id = b.bus_id`

func scanBooking(row interface{ Scan(...any) error }) (models.Booking, error) {
	var (
		bk          models.Booking
		rawSeats    []byte
		cancelledAt sql.NullTime
		user        models.User
		bus         models.Bus
	)
	err := row.Scan(
		&bk.ID, &bk.UserID, &bk.BusID, &bk.TravelDate, &rawSeats, &bk.TotalSeats, &bk.TotalAmount,
		&bk.Status, &bk.PaymentID, &bk.OrderID, &bk.PaymentStatus,
		&bk.CancelReason, &cancelledAt, &bk.CreatedAt, &bk.UpdatedAt,
		&user.FirstName, &user.LastName, &user.Email,
		&bus.BusNumber, &bus.BusName, &bus.Source, &bus.Destination, &bus.DepartureTime, &bus.ArrivalTime, &bus.Fare,
	)
	if err != nil {
		return models.Booking{}, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		bk.CancelledAt = &t
	}
	if len(rawSeats) > 0 {
		if err := json.Unmarshal(rawSeats, &bk.SeatDetails); err != nil {
			return models.Booking{}, domain.InternalError{Msg: "corrupt seat details", Err: err}
		}
	}
	user.ID = bk.UserID
	bus.ID = bk.BusID
	bk.User = &user
	bk.Bus = &bus
	return bk, nil
}

func (r BookingRepository) Create(bk models.Booking) error {
	rawSeats, err := json.Marshal(bk.SeatDetails)
	if err != nil {
		return err
	}
	_, err = r.db().Exec(`
		INSERT INTO bookings (id, user_id, bus_id, travel_date, seat_details, total_seats, total_amount,
			status, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		bk.ID, bk.UserID, bk.BusID, bk.TravelDate, rawSeats, bk.TotalSeats, bk.TotalAmount,
		bk.Status, bk.PaymentStatus,
	)
	return err
}

func (r BookingRepository) GetByID(id string) (models.Booking, error) {
	row := r.db().QueryRow(bookingSelect+` WHERE b.id = ? LIMIT 1`, id)
	bk, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return bk, err
}

// GetByOrderID resolves the booking a payment order was opened for; this is
// how webhook events find their booking.
func (r BookingRepository) GetByOrderID(orderID string) (models.Booking, error) {
	row := r.db().QueryRow(bookingSelect+` WHERE b.order_id = ? LIMIT 1`, orderID)
	bk, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return bk, err
}

func (r BookingRepository) List(f BookingFilter) ([]models.Booking, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if f.UserID != "" {
		where = append(where, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.BusID != "" {
		where = append(where, "b.bus_id = ?")
		args = append(args, f.BusID)
	}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil && f.To != nil {
		where = append(where, "b.created_at BETWEEN ? AND ?")
		args = append(args, *f.From, *f.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db().QueryRow(`SELECT COUNT(*) FROM bookings b WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := bookingSelect + ` WHERE ` + cond + ` ORDER BY b.created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		bk, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, bk)
	}
	return out, total, rows.Err()
}

// SetOrder records the payment order opened for a pending booking.
func (r BookingRepository) SetOrder(id, orderID string) error {
	_, err := r.db().Exec(`UPDATE bookings SET order_id = ?, updated_at = NOW() WHERE id = ?`, orderID, id)
	return err
}

// Confirm flips a pending booking to confirmed. The status guard in the
// WHERE clause keeps webhook re-delivery idempotent at the SQL level too.
func (r BookingRepository) Confirm(id, paymentID string) error {
	res, err := r.db().Exec(`
		UPDATE bookings SET status = ?, payment_id = ?, payment_status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?`,
		models.BookingConfirmed, paymentID, models.PaymentCompleted, id, models.BookingPending,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ConflictError{Resource: "booking", Msg: "not pending"}
	}
	return nil
}

func (r BookingRepository) MarkCancelled(id, reason string, at time.Time) error {
	res, err := r.db().Exec(`
		UPDATE bookings SET status = ?, cancellation_reason = ?, cancelled_at = ?, updated_at = NOW()
		WHERE id = ? AND status = ?`,
		models.BookingCancelled, reason, at, id, models.BookingPending,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ConflictError{Resource: "booking", Msg: "not pending"}
	}
	return nil
}

func (r BookingRepository) MarkPaymentFailed(id string) error {
	_, err := r.db().Exec(`UPDATE bookings SET payment_status = ?, updated_at = NOW() WHERE id = ?`,
		models.PaymentFailed, id)
	return err
}

// HeldSeatNumbersByBus collects seat numbers held by non-cancelled bookings
// on a bus. The admin seat-layout update uses it to refuse freeing seats
// that still back a live booking.
func (r BookingRepository) HeldSeatNumbersByBus(busID string) (map[string]bool, error) {
	rows, err := r.db().Query(`SELECT seat_details FROM bookings WHERE bus_id = ? AND status <> ?`,
		busID, models.BookingCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	held := map[string]bool{}
	for rows.Next() {
		var rawSeats []byte
		if err := rows.Scan(&rawSeats); err != nil {
			return nil, err
		}
		var details []models.SeatDetail
		if err := json.Unmarshal(rawSeats, &details); err != nil {
			return nil, domain.InternalError{Msg: "corrupt seat details", Err: err}
		}
		for _, d := range details {
			held[d.SeatNumber] = true
		}
	}
	return held, rows.Err()
}

// CountActiveByBus counts non-cancelled bookings on a bus; the admin delete
// guard uses it.
func (r BookingRepository) CountActiveByBus(busID string) (int, error) {
	var n int
	err := r.db().QueryRow(`SELECT COUNT(*) FROM bookings WHERE bus_id = ? AND status <> ?`,
		busID, models.BookingCancelled).Scan(&n)
	return n, err
}

// DashboardStats aggregates counts for the admin dashboard.
type DashboardStats struct {
	Users             int   `json:"users"`
	Buses             int   `json:"buses"`
	Bookings          int   `json:"bookings"`
	ConfirmedBookings int   `json:"confirmedBookings"`
	Revenue           int64 `json:"revenue"`
}

func (r BookingRepository) Stats() (DashboardStats, error) {
	var s DashboardStats
	if err := r.db().QueryRow(`SELECT COUNT(*) FROM users`).Scan(&s.Users); err != nil {
		return s, err
	}
	if err := r.db().QueryRow(`SELECT COUNT(*) FROM buses`).Scan(&s.Buses); err != nil {
		return s, err
	}
	err := r.db().QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN total_amount ELSE 0 END), 0)
		FROM bookings`,
		models.BookingConfirmed, models.BookingConfirmed,
	).Scan(&s.Bookings, &s.ConfirmedBookings, &s.Revenue)
	return s, err
}
