package handlers

import (
	"net/http"
	"strings"
	"time"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/http/middleware"
	"busbooking/internal/repositories"
	"busbooking/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/admin/dashboard
func AdminDashboard(c *gin.Context) {
	stats, err := repositories.BookingRepository{}.Stats()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	recent, _, err := repositories.BookingRepository{}.List(repositories.BookingFilter{Limit: 10})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "recentBookings": recent})
}

type busRequest struct {
	BusNumber     string         `json:"busNumber"`
	BusName       string         `json:"busName"`
	Source        string         `json:"source"`
	Destination   string         `json:"destination"`
	DepartureTime time.Time      `json:"departureTime"`
	ArrivalTime   time.Time      `json:"arrivalTime"`
	TotalSeats    int            `json:"totalSeats"`
	Fare          int64          `json:"fare"`
	BusType       string         `json:"busType"`
	IsActive      *bool          `json:"isActive"`
	SeatMap       models.SeatMap `json:"seatMap"`
}

// POST /api/admin/buses
func AdminCreateBus(c *gin.Context) {
	var req busRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	buses := repositories.BusRepository{}
	exists, err := buses.NumberExists(req.BusNumber)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if exists {
		RespondDomainError(c, domain.ConflictError{Resource: "bus number", Msg: "already exists"})
		return
	}

	bus := models.Bus{
		ID:            uuid.NewString(),
		BusNumber:     strings.TrimSpace(req.BusNumber),
		BusName:       strings.TrimSpace(req.BusName),
		Source:        strings.TrimSpace(req.Source),
		Destination:   strings.TrimSpace(req.Destination),
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		TotalSeats:    req.TotalSeats,
		Fare:          req.Fare,
		BusType:       req.BusType,
		IsActive:      true,
		SeatMap:       req.SeatMap,
	}
	if err := bus.Validate(); err != nil {
		RespondDomainError(c, err)
		return
	}
	if len(bus.SeatMap) == 0 {
		bus.SeatMap = models.NewSeatMap(bus.TotalSeats)
	}

	if err := buses.Create(bus); err != nil {
		RespondDomainError(c, err)
		return
	}
	utils.LogEvent(middleware.GetRequestID(c), "admin", "bus_created", "bus_id="+bus.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "bus created", "bus": bus})
}

// PUT /api/admin/buses/:id
func AdminUpdateBus(c *gin.Context) {
	var req busRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	buses := repositories.BusRepository{}
	bus, err := buses.GetByID(c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	if req.BusNumber != "" {
		bus.BusNumber = strings.TrimSpace(req.BusNumber)
	}
	if req.BusName != "" {
		bus.BusName = strings.TrimSpace(req.BusName)
	}
	if req.Source != "" {
		bus.Source = strings.TrimSpace(req.Source)
	}
	if req.Destination != "" {
		bus.Destination = strings.TrimSpace(req.Destination)
	}
	if !req.DepartureTime.IsZero() {
		bus.DepartureTime = req.DepartureTime
	}
	if !req.ArrivalTime.IsZero() {
		bus.ArrivalTime = req.ArrivalTime
	}
	if req.TotalSeats > 0 {
		bus.TotalSeats = req.TotalSeats
	}
	if req.Fare > 0 {
		bus.Fare = req.Fare
	}
	if req.BusType != "" {
		bus.BusType = req.BusType
	}
	if req.IsActive != nil {
		bus.IsActive = *req.IsActive
	}

	if err := bus.Validate(); err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := buses.Update(bus); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bus updated", "bus": bus})
}

// DELETE /api/admin/buses/:id
// Refuses while active bookings exist; deactivate instead.
func AdminDeleteBus(c *gin.Context) {
	id := c.Param("id")
	buses := repositories.BusRepository{}
	if _, err := buses.GetByID(id); err != nil {
		RespondDomainError(c, err)
		return
	}

	n, err := repositories.BookingRepository{}.CountActiveByBus(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if n > 0 {
		RespondDomainError(c, domain.ConflictError{Resource: "bus", Msg: "has active bookings, deactivate instead"})
		return
	}

	if err := buses.Delete(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bus deleted"})
}

type seatLayoutRequest struct {
	SeatLayout models.SeatMap `json:"seatLayout"`
}

// PUT /api/admin/buses/:id/seats
// Admin seat-layout edit (block seats, reprice, fix types). Goes through the
// same version-guarded write as bookings do. Seats held by active bookings
// must stay booked in the submitted layout.
func AdminUpdateSeatLayout(c *gin.Context) {
	var req seatLayoutRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.SeatLayout) == 0 {
		RespondDomainError(c, domain.ValidationError{Field: "seatLayout", Msg: "required"})
		return
	}
	for id, seat := range req.SeatLayout {
		switch seat.Status {
		case models.SeatAvailable, models.SeatBooked, models.SeatBlocked:
		default:
			RespondDomainError(c, domain.ValidationError{Field: "seatLayout", Msg: "invalid status for seat " + id})
			return
		}
	}

	buses := repositories.BusRepository{}
	bus, err := buses.GetByID(c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if len(req.SeatLayout) != bus.TotalSeats {
		RespondDomainError(c, domain.ValidationError{Field: "seatLayout", Msg: "seat map size must match totalSeats"})
		return
	}

	held, err := repositories.BookingRepository{}.HeldSeatNumbersByBus(bus.ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	for id := range held {
		if seat, ok := req.SeatLayout[id]; !ok || seat.Status != models.SeatBooked {
			RespondDomainError(c, domain.ConflictError{Resource: "seat", Msg: "seat " + id + " is held by an active booking"})
			return
		}
	}

	if err := buses.UpdateSeatMap(bus.ID, req.SeatLayout, bus.Version); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "seat layout updated", "seatLayout": req.SeatLayout})
}

// GET /api/admin/users
func AdminListUsers(c *gin.Context) {
	limit, offset, page := pageParams(c)
	users, total, err := repositories.UserRepository{}.List(limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"count":       total,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
	})
}

type adminUpdateUserRequest struct {
	Role     string `json:"role"`
	IsActive *bool  `json:"isActive"`
}

// PUT /api/admin/users/:id
func AdminUpdateUser(c *gin.Context) {
	var req adminUpdateUserRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	users := repositories.UserRepository{}
	user, err := users.GetByID(c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	if req.Role != "" {
		if req.Role != models.RoleCustomer && req.Role != models.RoleAdmin {
			RespondDomainError(c, domain.ValidationError{Field: "role", Msg: "must be customer or admin"})
			return
		}
		if err := users.UpdateRole(user.ID, req.Role); err != nil {
			RespondDomainError(c, err)
			return
		}
		user.Role = req.Role
	}
	if req.IsActive != nil {
		if err := users.SetActive(user.ID, *req.IsActive); err != nil {
			RespondDomainError(c, err)
			return
		}
		user.IsActive = *req.IsActive
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated", "user": user})
}

// DELETE /api/admin/users/:id
func AdminDeleteUser(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == auth.UserID {
		RespondDomainError(c, domain.ValidationError{Msg: "you cannot delete your own account"})
		return
	}
	if err := (repositories.UserRepository{}).Delete(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
