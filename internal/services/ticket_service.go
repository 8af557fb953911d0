package services

import (
	"bytes"
	"fmt"
	"strings"

	"busbooking/internal/domain"
	"busbooking/internal/domain/models"
	"busbooking/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// TicketService renders the e-ticket PDF for a confirmed booking.
type TicketService struct {
	Bookings  BookingStore
	RequestID string
}

func (s TicketService) GenerateETicket(userID string, isAdmin bool, bookingID string) ([]byte, string, error) {
	bk, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, "", err
	}
	if !isAdmin && bk.UserID != userID {
		return nil, "", domain.ForbiddenError{Msg: "you do not have permission to view this ticket"}
	}
	if bk.Status != models.BookingConfirmed {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "e-ticket is only available after payment"}
	}

	utils.LogEvent(s.RequestID, "ticket", "generate_eticket", "booking_id="+bk.ID)
	return buildETicketPDF(bk)
}

func buildETicketPDF(bk models.Booking) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	var bus models.Bus
	if bk.Bus != nil {
		bus = *bk.Bus
	}
	passenger := "-"
	if bk.User != nil {
		passenger = bk.User.FullName()
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking        : %s", bk.ID),
		fmt.Sprintf("Passenger      : %s", passenger),
		fmt.Sprintf("Bus            : %s (%s)", safe(bus.BusName, "-"), safe(bus.BusNumber, "-")),
		fmt.Sprintf("Route          : %s -> %s", safe(bus.Source, "-"), safe(bus.Destination, "-")),
		fmt.Sprintf("Departure      : %s", utils.FormatDateTime(bus.DepartureTime)),
		fmt.Sprintf("Arrival        : %s", utils.FormatDateTime(bus.ArrivalTime)),
		fmt.Sprintf("Seats          : %s", strings.Join(bk.SeatNumbers(), ", ")),
		fmt.Sprintf("Total          : %s", utils.FormatINR(bk.TotalAmount)),
		fmt.Sprintf("Payment Ref    : %s", safe(bk.PaymentID, "-")),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Show this ticket and a valid ID when boarding.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "failed to render e-ticket", Err: err}
	}
	filename := fmt.Sprintf("eticket-%s.pdf", bk.ID)
	return buf.Bytes(), filename, nil
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
