package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"busbooking/internal/domain"
	"busbooking/internal/http/middleware"
	"busbooking/internal/repositories"
	"busbooking/internal/services"
	"busbooking/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/buses
func ListBuses(c *gin.Context) {
	limit, offset, page := pageParams(c)

	f := repositories.BusFilter{
		Source:      c.Query("source"),
		Destination: c.Query("destination"),
		BusType:     c.Query("busType"),
		Limit:       limit,
		Offset:      offset,
	}
	if v := c.Query("minFare"); v != "" {
		f.MinFare, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.Query("maxFare"); v != "" {
		f.MaxFare, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.Query("date"); v != "" {
		d, err := utils.ParseDate(v)
		if err != nil {
			RespondDomainError(c, domain.ValidationError{Field: "date", Msg: "expected YYYY-MM-DD"})
			return
		}
		f.Date = &d
	}

	buses, total, err := repositories.BusRepository{}.List(f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"buses":       buses,
		"count":       total,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
	})
}

// GET /api/buses/search
func SearchBuses(c *gin.Context) {
	source := strings.TrimSpace(c.Query("source"))
	destination := strings.TrimSpace(c.Query("destination"))
	rawDate := strings.TrimSpace(c.Query("date"))
	if source == "" || destination == "" || rawDate == "" {
		RespondDomainError(c, domain.ValidationError{Msg: "source, destination and date are required"})
		return
	}
	date, err := utils.ParseDate(rawDate)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "date", Msg: "expected YYYY-MM-DD"})
		return
	}
	passengers, _ := strconv.Atoi(c.DefaultQuery("passengers", "1"))

	svc := services.BookingService{
		Buses:     repositories.BusRepository{},
		Bookings:  repositories.BookingRepository{},
		RequestID: middleware.GetRequestID(c),
	}
	buses, err := svc.Search(source, destination, date, passengers)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buses": buses, "count": len(buses)})
}

// GET /api/buses/:id
func GetBusByID(c *gin.Context) {
	bus, err := repositories.BusRepository{}.GetByID(c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bus": bus})
}

// GET /api/buses/:id/seats
func GetBusSeatLayout(c *gin.Context) {
	bus, err := repositories.BusRepository{}.GetByID(c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seatLayout":     bus.SeatMap,
		"availableSeats": bus.SeatMap.AvailableSeats(),
		"totalSeats":     bus.TotalSeats,
		"fare":           bus.Fare,
	})
}
