package services

import (
	"strings"
	"testing"

	"busbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateETicket(t *testing.T) {
	_, bookings, bk := paidFixture(t)
	require.NoError(t, bookings.Confirm(bk.ID, "pay_1"))

	svc := TicketService{Bookings: bookings}
	pdf, filename, err := svc.GenerateETicket("user1", false, bk.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, pdf)
	assert.True(t, strings.HasPrefix(string(pdf[:5]), "%PDF-"))
	assert.Equal(t, "eticket-"+bk.ID+".pdf", filename)
}

func TestGenerateETicketGuards(t *testing.T) {
	_, bookings, bk := paidFixture(t)
	svc := TicketService{Bookings: bookings}

	// still pending, no ticket yet
	_, _, err := svc.GenerateETicket("user1", false, bk.ID)
	assert.True(t, domain.IsConflict(err))

	require.NoError(t, bookings.Confirm(bk.ID, "pay_1"))

	_, _, err = svc.GenerateETicket("intruder", false, bk.ID)
	assert.True(t, domain.IsForbidden(err))

	// admins can pull anyone's ticket
	_, _, err = svc.GenerateETicket("some-admin", true, bk.ID)
	assert.NoError(t, err)

	_, _, err = svc.GenerateETicket("user1", false, "missing")
	assert.True(t, domain.IsNotFound(err))
}
