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

type PaymentRepository struct {
	DB intdb.DBTX
}

func (r PaymentRepository) Create(ctx context.Context, p models.Payment) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO payments (booking_id, amount, method, status, transaction_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.BookingID, p.Amount, p.Method, p.Status, intdb.NullIfEmpty(p.TransactionRef), now, now)
	if err != nil {
		return 0, domain.Internal("create payment", err)
	}
	return res.LastInsertId()
}

func (r PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (models.Payment, error) {
	var (
		p   models.Payment
		ref sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, amount, method, status, transaction_ref, created_at, updated_at
		FROM payments WHERE booking_id = ?
	`, bookingID).Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &ref, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
		}
		return models.Payment{}, domain.Internal("get payment", err)
	}
	p.TransactionRef = ref.String
	return p, nil
}

// Transition moves the booking's payment from one status to another. It
// reports false when the payment was not in the from status.
func (r PaymentRepository) Transition(ctx context.Context, bookingID int64, from, to, ref string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payments
		SET status = ?, transaction_ref = COALESCE(?, transaction_ref), updated_at = ?
		WHERE booking_id = ? AND status = ?
	`, to, intdb.NullIfEmpty(ref), time.Now().UTC(), bookingID, from)
	if err != nil {
		return false, domain.Internal("update payment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Internal("update payment rows", err)
	}
	return n == 1, nil
}
