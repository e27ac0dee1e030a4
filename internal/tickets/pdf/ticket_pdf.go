package pdf

import (
	"bytes"
	"fmt"
	"time"

	"ms-booking/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// TicketData is everything printed on one ticket document.
type TicketData struct {
	TicketID  string
	EventName string
	Location  string
	StartsAt  time.Time
	EndsAt    time.Time
	SeatLabel string
	Section   string
	Price     models.Money
	Holder    string
	// QRCodePNG is the encrypted gate code as PNG bytes.
	QRCodePNG []byte
}

// NewTicketData assembles the document fields from a booked ticket.
func NewTicketData(ticket models.Ticket, event *models.Event, seat *models.Seat, qrPNG []byte) TicketData {
	return TicketData{
		TicketID:  ticket.ID,
		EventName: event.Name,
		Location:  event.Location,
		StartsAt:  event.StartsAt,
		EndsAt:    event.EndsAt,
		SeatLabel: seat.Label(),
		Section:   seat.Section,
		Price:     ticket.Price,
		Holder:    ticket.UserID,
		QRCodePNG: qrPNG,
	}
}

// truncate keeps long names inside their column.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// GenerateTicketPDF renders an A4 ticket with the QR code on top and the
// event and seat details below it.
func GenerateTicketPDF(data TicketData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Ticket "+data.TicketID, false)
	pdf.AddPage()
	// Core fonts are latin-1 only.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(data.QRCodePNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		name := "qr_" + data.TicketID
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data.QRCodePNG))
		size := 90.0
		pdf.ImageOptions(name, (210.0-size)/2, pdf.GetY(), size, size, false, opts, 0, "")
		pdf.Ln(size + 4)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(8)

	top := pdf.GetY()
	pdf.SetFont("Arial", "B", 20)
	pdf.SetXY(20, top)
	pdf.MultiCell(85, 9, tr(truncate(data.EventName, 40)), "", "L", false)

	pdf.SetFont("Arial", "", 14)
	pdf.SetXY(115, top)
	pdf.CellFormat(75, 7, "Event time:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.SetX(115)
	pdf.CellFormat(75, 6, data.StartsAt.Format("January 2, 2006"), "", 1, "L", false, 0, "")
	pdf.SetX(115)
	pdf.CellFormat(75, 6, fmt.Sprintf("%s - %s", data.StartsAt.Format("3:04PM"), data.EndsAt.Format("3:04PM")), "", 1, "L", false, 0, "")
	if data.Location != "" {
		pdf.SetFont("Arial", "", 14)
		pdf.SetX(115)
		pdf.CellFormat(75, 7, "Location:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 14)
		pdf.SetX(115)
		pdf.MultiCell(75, 6, tr(truncate(data.Location, 60)), "", "L", false)
	}
	pdf.Ln(6)

	rows := [][2]string{
		{"Seat:", data.SeatLabel},
		{"Section:", data.Section},
		{"Holder:", truncate(data.Holder, 30)},
		{"Price:", data.Price.String()},
	}
	for _, row := range rows {
		pdf.SetX(20)
		pdf.SetFont("Arial", "", 16)
		pdf.CellFormat(40, 10, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(110, 10, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 12)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, "Ticket: "+data.TicketID, "", 1, "C", false, 0, "")
	pdf.MultiCell(0, 6, "Bring this ticket to the event.\nThe QR code is scanned at the entrance.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate ticket PDF: %w", err)
	}
	return buf.Bytes(), nil
}
