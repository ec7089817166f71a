package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type TicketRepository struct {
	DB intdb.DBTX
}

func (r TicketRepository) Create(ctx context.Context, t models.Ticket) (int64, error) {
	issued := t.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO tickets (booking_id, qr_code, issued_at) VALUES (?, ?, ?)
	`, t.BookingID, t.QRCode, issued.UTC())
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "ticket", Msg: "ticket already issued", Err: err}
		}
		return 0, domain.Internal("create ticket", err)
	}
	return res.LastInsertId()
}

func (r TicketRepository) GetByBookingID(ctx context.Context, bookingID int64) (models.Ticket, error) {
	var t models.Ticket
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, qr_code, issued_at FROM tickets WHERE booking_id = ?
	`, bookingID).Scan(&t.ID, &t.BookingID, &t.QRCode, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ticket{}, domain.NotFoundError{Resource: "ticket", Err: err}
		}
		return models.Ticket{}, domain.Internal("get ticket", err)
	}
	return t, nil
}

// GetByQRCode is used at boarding to look a ticket up by its code.
func (r TicketRepository) GetByQRCode(ctx context.Context, code string) (models.Ticket, error) {
	var t models.Ticket
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, qr_code, issued_at FROM tickets WHERE qr_code = ?
	`, code).Scan(&t.ID, &t.BookingID, &t.QRCode, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ticket{}, domain.NotFoundError{Resource: "ticket", Err: err}
		}
		return models.Ticket{}, domain.Internal("get ticket by code", err)
	}
	return t, nil
}
