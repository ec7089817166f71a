package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type BookingRepository struct {
	DB intdb.DBTX
}

func (r BookingRepository) Create(ctx context.Context, b models.Booking) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO bookings (user_id, schedule_id, number_of_seats, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.UserID, b.ScheduleID, b.NumberOfSeats, b.TotalAmount, b.Status, now, now)
	if err != nil {
		return 0, domain.Internal("create booking", err)
	}
	return res.LastInsertId()
}

func (r BookingRepository) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	var (
		b           models.Booking
		cancelledAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, schedule_id, number_of_seats, total_amount, status, created_at, updated_at, cancelled_at
		FROM bookings WHERE id = ?
	`, id).Scan(&b.ID, &b.UserID, &b.ScheduleID, &b.NumberOfSeats, &b.TotalAmount, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &cancelledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return models.Booking{}, domain.Internal("get booking", err)
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return b, nil
}

// MarkCancelled moves a confirmed booking to cancelled. It reports false
// when the booking was not confirmed at write time.
func (r BookingRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE bookings SET status = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, models.BookingCancelled, at.UTC(), at.UTC(), id, models.BookingConfirmed)
	if err != nil {
		return false, domain.Internal("cancel booking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Internal("cancel booking rows", err)
	}
	return n == 1, nil
}

const bookingDetailSelect = `
	SELECT b.id, b.user_id, b.schedule_id, b.number_of_seats, b.total_amount, b.status,
	       b.created_at, b.updated_at, b.cancelled_at,
	       u.name, u.email, r.origin, r.destination, s.departure_time, s.arrival_time,
	       bu.plate_number, o.company_name,
	       COALESCE(p.method, ''), COALESCE(p.status, ''), COALESCE(t.qr_code, '')
	FROM bookings b
	JOIN users u ON u.id = b.user_id
	JOIN schedules s ON s.id = b.schedule_id
	JOIN routes r ON r.id = s.route_id
	JOIN buses bu ON bu.id = s.bus_id
	JOIN operators o ON o.id = bu.operator_id
	LEFT JOIN payments p ON p.booking_id = b.id
	LEFT JOIN tickets t ON t.booking_id = b.id`

func scanBookingDetail(row interface{ Scan(...any) error }) (models.BookingDetail, error) {
	var (
		d           models.BookingDetail
		cancelledAt sql.NullTime
	)
	err := row.Scan(&d.ID, &d.UserID, &d.ScheduleID, &d.NumberOfSeats, &d.TotalAmount, &d.Status,
		&d.CreatedAt, &d.UpdatedAt, &cancelledAt,
		&d.PassengerName, &d.PassengerEmail, &d.Origin, &d.Destination, &d.DepartureTime, &d.ArrivalTime,
		&d.PlateNumber, &d.OperatorName,
		&d.PaymentMethod, &d.PaymentStatus, &d.QRCode)
	if err == nil && cancelledAt.Valid {
		t := cancelledAt.Time
		d.CancelledAt = &t
	}
	return d, err
}

func (r BookingRepository) GetDetail(ctx context.Context, id int64) (models.BookingDetail, error) {
	d, err := scanBookingDetail(r.DB.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BookingDetail{}, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return models.BookingDetail{}, domain.Internal("get booking detail", err)
	}
	return d, nil
}

// BookingFilter narrows ListDetails. Zero values are ignored.
type BookingFilter struct {
	UserID     int64
	OperatorID int64
	ScheduleID int64
	Status     string
}

func (r BookingRepository) ListDetails(ctx context.Context, f BookingFilter, page domain.Pagination) ([]models.BookingDetail, error) {
	page = page.Normalize()
	where := []string{}
	args := []any{}
	if f.UserID > 0 {
		where = append(where, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.OperatorID > 0 {
		where = append(where, "o.id = ?")
		args = append(args, f.OperatorID)
	}
	if f.ScheduleID > 0 {
		where = append(where, "b.schedule_id = ?")
		args = append(args, f.ScheduleID)
	}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	query := bookingDetailSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY b.id DESC LIMIT ? OFFSET ?`
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal("list bookings", err)
	}
	defer rows.Close()

	out := []models.BookingDetail{}
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, domain.Internal("scan booking", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate bookings", err)
	}
	return out, nil
}

// Stats aggregates booking counts and completed revenue.
type BookingStats struct {
	Total     int64 `json:"total"`
	Confirmed int64 `json:"confirmed"`
	Cancelled int64 `json:"cancelled"`
	Revenue   int64 `json:"revenue"`
}

func (r BookingRepository) Stats(ctx context.Context) (BookingStats, error) {
	var st BookingStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM bookings
	`, models.BookingConfirmed, models.BookingCancelled).Scan(&st.Total, &st.Confirmed, &st.Cancelled)
	if err != nil {
		return st, domain.Internal("booking stats", err)
	}
	err = r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = ?`,
		models.PaymentCompleted).Scan(&st.Revenue)
	if err != nil {
		return st, domain.Internal("revenue stats", err)
	}
	return st, nil
}

// DeleteForSchedule removes every booking of a schedule together with its
// payment and ticket. Callers check for live bookings first.
func (r BookingRepository) DeleteForSchedule(ctx context.Context, scheduleID int64) (int64, error) {
	for _, q := range []string{
		`DELETE FROM payments WHERE booking_id IN (SELECT id FROM bookings WHERE schedule_id = ?)`,
		`DELETE FROM tickets WHERE booking_id IN (SELECT id FROM bookings WHERE schedule_id = ?)`,
	} {
		if _, err := r.DB.ExecContext(ctx, q, scheduleID); err != nil {
			return 0, domain.Internal("delete schedule bookings", err)
		}
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM bookings WHERE schedule_id = ?`, scheduleID)
	if err != nil {
		return 0, domain.Internal("delete schedule bookings", err)
	}
	return res.RowsAffected()
}
