package pdf

import (
	"bytes"
	"testing"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/tickets/qr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(t *testing.T) TicketData {
	t.Helper()
	starts := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)
	ticket := models.Ticket{ID: "tkt-1", BookingID: "bkg-1", SeatID: 7, EventID: 3, UserID: "alice", Price: 4250,
		Status: models.TicketStatusConfirmed, CreatedAt: starts.Add(-48 * time.Hour)}
	event := &models.Event{ID: 3, Name: "Symphonie fantastique", Location: "Salle Pleyel, Paris",
		StartsAt: starts, EndsAt: starts.Add(2 * time.Hour)}
	seat := &models.Seat{ID: 7, EventID: 3, Row: "C", Number: "012", Section: models.DefaultSection}

	gen, err := qr.NewQRGenerator("pdf-secret")
	require.NoError(t, err)
	png, err := gen.GenerateEncryptedQR(ticket, ticket.CreatedAt)
	require.NoError(t, err)
	return NewTicketData(ticket, event, seat, png)
}

func TestNewTicketData(t *testing.T) {
	data := sampleData(t)
	assert.Equal(t, "tkt-1", data.TicketID)
	assert.Equal(t, "C-012", data.SeatLabel)
	assert.Equal(t, "42.50", data.Price.String())
	assert.Equal(t, "alice", data.Holder)
	assert.NotEmpty(t, data.QRCodePNG)
}

func TestGenerateTicketPDF(t *testing.T) {
	doc, err := GenerateTicketPDF(sampleData(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	assert.Contains(t, string(doc[len(doc)-16:]), "EOF")
}

func TestGenerateTicketPDF_WithoutQR(t *testing.T) {
	data := sampleData(t)
	data.QRCodePNG = nil
	data.Location = ""

	doc, err := GenerateTicketPDF(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
}

func TestGenerateTicketPDF_BadImage(t *testing.T) {
	data := sampleData(t)
	data.QRCodePNG = []byte("not a png")

	_, err := GenerateTicketPDF(data)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Café d...", truncate("Café de la Paix", 9))
}
