package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders the e-ticket PDF for a booking.
type DocsService struct {
	DB       intdb.DBTX
	Currency string
	Loader   func(ctx context.Context, bookingID int64) (models.BookingDetail, error)
}

func (s DocsService) load(ctx context.Context, bookingID int64) (models.BookingDetail, error) {
	if s.Loader != nil {
		return s.Loader(ctx, bookingID)
	}
	return repositories.BookingRepository{DB: s.DB}.GetDetail(ctx, bookingID)
}

// TicketPDF returns the e-ticket of a booking owned by actor. Only confirmed
// bookings whose payment is settled (or paid in cash on boarding) get one.
func (s DocsService) TicketPDF(ctx context.Context, actor domain.RequestContext, bookingID int64) ([]byte, string, error) {
	d, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !canAccess(actor, d.UserID) {
		return nil, "", domain.NotFoundError{Resource: "booking"}
	}
	if d.Status != models.BookingConfirmed {
		return nil, "", fmt.Errorf("%w: booking is %s", domain.ErrForbidden, d.Status)
	}
	if d.PaymentStatus != models.PaymentCompleted && d.PaymentMethod != "cash" {
		return nil, "", fmt.Errorf("%w: payment not completed", domain.ErrForbidden)
	}

	utils.LogEventCtx(ctx, "docs", "generate_eticket", fmt.Sprintf("booking_id=%d", d.ID))
	return s.GenerateTicket(d)
}

// GenerateTicket builds the A4 e-ticket for d.
func (s DocsService) GenerateTicket(d models.BookingDetail) ([]byte, string, error) {
	currency := s.Currency
	if currency == "" {
		currency = "TZS"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Passenger      : %s", safe(d.PassengerName, "-")),
		fmt.Sprintf("Email          : %s", safe(d.PassengerEmail, "-")),
		fmt.Sprintf("Route          : %s -> %s", safe(d.Origin, "-"), safe(d.Destination, "-")),
		fmt.Sprintf("Departure      : %s", utils.FormatDateTime(d.DepartureTime)),
		fmt.Sprintf("Arrival        : %s", utils.FormatDateTime(d.ArrivalTime)),
		fmt.Sprintf("Operator       : %s", safe(d.OperatorName, "-")),
		fmt.Sprintf("Bus            : %s", safe(d.PlateNumber, "-")),
		fmt.Sprintf("Seats          : %d", d.NumberOfSeats),
		fmt.Sprintf("Amount         : %s", utils.FormatAmount(currency, d.TotalAmount)),
		fmt.Sprintf("Payment        : %s (%s)", safe(d.PaymentMethod, "-"), safe(d.PaymentStatus, "-")),
		fmt.Sprintf("Booking        : #%d", d.ID),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Courier", "B", 14)
	pdf.CellFormat(0, 12, safe(d.QRCode, "-"), "1", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this code when boarding. Valid only for the departure shown above.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ETICKET_%d_%s.pdf", d.ID, utils.SafeFilenamePart(d.PassengerName))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
