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

// ErrStaleSeatMap signals that the seat map changed between read and write.
// Callers re-read the bus and retry the transition.
var ErrStaleSeatMap error = domain.ConflictError{Resource: "seat map", Msg: "bus was updated concurrently"}

// BusRepository wraps DB access for the bus catalog. Seat maps live in a JSON
// column; every seat-map write is guarded by the version counter.
type BusRepository struct {
	DB *sql.DB
}

func (r BusRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

// BusFilter is the where-style filter for catalog listing and search.
type BusFilter struct {
	Source      string
	Destination string
	BusType     string
	MinFare     int64
	MaxFare     int64
	Date        *time.Time
	ActiveOnly  bool
	Limit       int
	Offset      int
}

const busColumns = `id, bus_number, bus_name, source, destination, departure_time, arrival_time,
	total_seats, fare, bus_type, is_active, seat_map, version, created_at, updated_at`

func scanBus(row interface{ Scan(...any) error }) (models.Bus, error) {
	var b models.Bus
	var rawSeatMap []byte
	err := row.Scan(
		&b.ID,
		&b.BusNumber,
		&b.BusName,
		&b.Source,
		&b.Destination,
		&b.DepartureTime,
		&b.ArrivalTime,
		&b.TotalSeats,
		&b.Fare,
		&b.BusType,
		&b.IsActive,
		&rawSeatMap,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return models.Bus{}, err
	}
	if len(rawSeatMap) > 0 {
		if err := json.Unmarshal(rawSeatMap, &b.SeatMap); err != nil {
			return models.Bus{}, domain.InternalError{Msg: "corrupt seat map", Err: err}
		}
	}
	if b.SeatMap == nil {
		b.SeatMap = models.SeatMap{}
	}
	return b, nil
}

func (r BusRepository) Create(b models.Bus) error {
	raw, err := json.Marshal(b.SeatMap)
	if err != nil {
		return err
	}
	_, err = r.db().Exec(`
		INSERT INTO buses (id, bus_number, bus_name, source, destination, departure_time, arrival_time,
			total_seats, fare, bus_type, is_active, seat_map, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NOW(), NOW())`,
		b.ID, b.BusNumber, b.BusName, b.Source, b.Destination, b.DepartureTime, b.ArrivalTime,
		b.TotalSeats, b.Fare, b.BusType, b.IsActive, raw,
	)
	return err
}

func (r BusRepository) GetByID(id string) (models.Bus, error) {
	row := r.db().QueryRow(`SELECT `+busColumns+` FROM buses WHERE id = ? LIMIT 1`, id)
	b, err := scanBus(row)
	if err == sql.ErrNoRows {
		return models.Bus{}, domain.NotFoundError{Resource: "bus"}
	}
	return b, err
}

func (r BusRepository) NumberExists(busNumber string) (bool, error) {
	var n int
	err := r.db().QueryRow(`SELECT COUNT(*) FROM buses WHERE bus_number = ?`, busNumber).Scan(&n)
	return n > 0, err
}

// Update persists catalog fields. Seat-map changes go through UpdateSeatMap.
func (r BusRepository) Update(b models.Bus) error {
	res, err := r.db().Exec(`
		UPDATE buses SET bus_number = ?, bus_name = ?, source = ?, destination = ?,
			departure_time = ?, arrival_time = ?, total_seats = ?, fare = ?, bus_type = ?, is_active = ?,
			updated_at = NOW()
		WHERE id = ?`,
		b.BusNumber, b.BusName, b.Source, b.Destination,
		b.DepartureTime, b.ArrivalTime, b.TotalSeats, b.Fare, b.BusType, b.IsActive,
		b.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "bus"}
	}
	return nil
}

// UpdateSeatMap writes the seat map with a compare-and-swap on the version
// column. Two concurrent bookings for overlapping seats cannot both succeed:
// the second write sees a bumped version and gets ErrStaleSeatMap.
func (r BusRepository) UpdateSeatMap(busID string, m models.SeatMap, version int64) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	res, err := r.db().Exec(`
		UPDATE buses SET seat_map = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		raw, busID, version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleSeatMap
	}
	return nil
}

func (r BusRepository) Delete(id string) error {
	res, err := r.db().Exec(`DELETE FROM buses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "bus"}
	}
	return nil
}

// List applies the filter and returns a page of buses ordered by departure
// time ascending, plus the unpaged total.
func (r BusRepository) List(f BusFilter) ([]models.Bus, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if s := strings.TrimSpace(f.Source); s != "" {
		where = append(where, "LOWER(source) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if d := strings.TrimSpace(f.Destination); d != "" {
		where = append(where, "LOWER(destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(d)+"%")
	}
	if f.BusType != "" {
		where = append(where, "bus_type = ?")
		args = append(args, f.BusType)
	}
	if f.MinFare > 0 {
		where = append(where, "fare >= ?")
		args = append(args, f.MinFare)
	}
	if f.MaxFare > 0 {
		where = append(where, "fare <= ?")
		args = append(args, f.MaxFare)
	}
	if f.Date != nil {
		start := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, f.Date.Location())
		where = append(where, "departure_time >= ? AND departure_time < ?")
		args = append(args, start, start.AddDate(0, 0, 1))
	}
	if f.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db().QueryRow(`SELECT COUNT(*) FROM buses WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + busColumns + ` FROM buses WHERE ` + cond + ` ORDER BY departure_time ASC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}
