package handlers

import (
	"net/http"
	"time"

	"busbooking/internal/http/middleware"
	"busbooking/internal/repositories"
	"busbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func bookingService(c *gin.Context) services.BookingService {
	return services.BookingService{
		Buses:     repositories.BusRepository{},
		Bookings:  repositories.BookingRepository{},
		RequestID: middleware.GetRequestID(c),
	}
}

// GET /api/bookings
func ListBookings(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	limit, offset, page := pageParams(c)

	f := repositories.BookingFilter{
		Status: c.Query("status"),
		BusID:  c.Query("busId"),
		UserID: c.Query("userId"),
		Limit:  limit,
		Offset: offset,
	}
	if from, to := c.Query("startDate"), c.Query("endDate"); from != "" && to != "" {
		if fromT, err := time.Parse("2006-01-02", from); err == nil {
			if toT, err := time.Parse("2006-01-02", to); err == nil {
				toT = toT.AddDate(0, 0, 1)
				f.From, f.To = &fromT, &toT
			}
		}
	}

	bookings, total, err := bookingService(c).List(auth.UserID, auth.IsAdmin(), f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings":    bookings,
		"count":       total,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
	})
}

// GET /api/bookings/:id
func GetBookingByID(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	bk, err := bookingService(c).Get(auth.UserID, auth.IsAdmin(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": bk})
}

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	var req services.CreateBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	bk, err := bookingService(c).Create(auth.UserID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "booking created, proceed to payment", "booking": bk})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// POST /api/bookings/:id/cancel
func CancelBooking(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if !BindJSONOrError(c, &req) {
			return
		}
	}

	bk, err := bookingService(c).Cancel(auth.UserID, auth.IsAdmin(), c.Param("id"), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled", "booking": bk})
}

// GET /api/bookings/:id/eticket
func GetBookingETicket(c *gin.Context) {
	auth, ok := mustAuth(c)
	if !ok {
		return
	}
	svc := services.TicketService{
		Bookings:  repositories.BookingRepository{},
		RequestID: middleware.GetRequestID(c),
	}
	pdf, filename, err := svc.GenerateETicket(auth.UserID, auth.IsAdmin(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
