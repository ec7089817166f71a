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

type ScheduleRepository struct {
	DB intdb.DBTX
}

const scheduleColumns = `id, bus_id, route_id, departure_time, arrival_time, price, total_seats, available_seats, status, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (models.Schedule, error) {
	var s models.Schedule
	err := row.Scan(&s.ID, &s.BusID, &s.RouteID, &s.DepartureTime, &s.ArrivalTime, &s.Price,
		&s.TotalSeats, &s.AvailableSeats, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r ScheduleRepository) Create(ctx context.Context, s models.Schedule) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO schedules (bus_id, route_id, departure_time, arrival_time, price,
		                       total_seats, available_seats, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.BusID, s.RouteID, s.DepartureTime.UTC(), s.ArrivalTime.UTC(), s.Price,
		s.TotalSeats, s.AvailableSeats, s.Status, now, now)
	if err != nil {
		return 0, domain.Internal("create schedule", err)
	}
	return res.LastInsertId()
}

func (r ScheduleRepository) GetByID(ctx context.Context, id int64) (models.Schedule, error) {
	s, err := scanSchedule(r.DB.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Schedule{}, domain.ScheduleNotFound(err)
		}
		return models.Schedule{}, domain.Internal("get schedule", err)
	}
	return s, nil
}

// ReserveSeats atomically takes n seats from a bookable schedule. It is a
// single conditional UPDATE; false means the availability predicate did not
// hold at write time and nothing changed.
func (r ScheduleRepository) ReserveSeats(ctx context.Context, id int64, n int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE schedules
		SET available_seats = available_seats - ?, updated_at = ?
		WHERE id = ? AND status = ? AND available_seats >= ?
	`, n, time.Now().UTC(), id, models.ScheduleScheduled, n)
	if err != nil {
		return false, domain.Internal("reserve seats", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, domain.Internal("reserve seats rows", err)
	}
	return affected == 1, nil
}

// ReleaseSeats gives n seats back, never exceeding total_seats.
func (r ScheduleRepository) ReleaseSeats(ctx context.Context, id int64, n int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE schedules
		SET available_seats = CASE WHEN available_seats + ? > total_seats THEN total_seats ELSE available_seats + ? END,
		    updated_at = ?
		WHERE id = ?
	`, n, n, time.Now().UTC(), id)
	if err != nil {
		return domain.Internal("release seats", err)
	}
	return nil
}

// Update rewrites timing and price. Seat counts are left alone.
func (r ScheduleRepository) Update(ctx context.Context, s models.Schedule) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE schedules
		SET route_id = ?, departure_time = ?, arrival_time = ?, price = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, s.RouteID, s.DepartureTime.UTC(), s.ArrivalTime.UTC(), s.Price, s.Status, time.Now().UTC(), s.ID)
	if err != nil {
		return domain.Internal("update schedule", err)
	}
	return requireAffected(res, "schedule")
}

func (r ScheduleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("delete schedule", err)
	}
	return requireAffected(res, "schedule")
}

// CountActiveBookings counts non-cancelled bookings on a schedule.
func (r ScheduleRepository) CountActiveBookings(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings WHERE schedule_id = ? AND status <> ?
	`, id, models.BookingCancelled).Scan(&n)
	if err != nil {
		return 0, domain.Internal("count schedule bookings", err)
	}
	return n, nil
}

const scheduleSummarySelect = `
	SELECT s.id, r.origin, r.destination, s.departure_time, s.arrival_time, s.price,
	       s.total_seats, s.available_seats, s.status,
	       b.id, b.plate_number, b.model, b.amenities, o.id, o.company_name
	FROM schedules s
	JOIN routes r ON r.id = s.route_id
	JOIN buses b ON b.id = s.bus_id
	JOIN operators o ON o.id = b.operator_id`

func scanSummary(row interface{ Scan(...any) error }) (models.ScheduleSummary, error) {
	var s models.ScheduleSummary
	err := row.Scan(&s.ScheduleID, &s.Origin, &s.Destination, &s.DepartureTime, &s.ArrivalTime, &s.Price,
		&s.TotalSeats, &s.AvailableSeats, &s.Status,
		&s.BusID, &s.PlateNumber, &s.BusModel, &s.Amenities, &s.OperatorID, &s.OperatorName)
	return s, err
}

// SearchFilter narrows route search. Empty fields are ignored; From/To
// bound the departure time when set.
type SearchFilter struct {
	Origin      string
	Destination string
	From        time.Time
	To          time.Time
}

// Search lists bookable schedules of verified, active operators.
func (r ScheduleRepository) Search(ctx context.Context, f SearchFilter) ([]models.ScheduleSummary, error) {
	where := []string{
		"s.status = ?",
		"s.available_seats > 0",
		"o.verification_status = ?",
		"o.activity_status = ?",
	}
	args := []any{models.ScheduleScheduled, models.VerificationVerified, models.ActivityActive}
	if f.Origin != "" {
		where = append(where, "r.origin LIKE ?")
		args = append(args, "%"+f.Origin+"%")
	}
	if f.Destination != "" {
		where = append(where, "r.destination LIKE ?")
		args = append(args, "%"+f.Destination+"%")
	}
	if !f.From.IsZero() {
		where = append(where, "s.departure_time >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "s.departure_time < ?")
		args = append(args, f.To.UTC())
	}
	query := scheduleSummarySelect + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY s.departure_time ASC`
	return r.listSummaries(ctx, query, args...)
}

// ListByOperator lists every schedule on the operator's buses.
func (r ScheduleRepository) ListByOperator(ctx context.Context, operatorID int64) ([]models.ScheduleSummary, error) {
	return r.listSummaries(ctx, scheduleSummarySelect+` WHERE o.id = ? ORDER BY s.departure_time DESC`, operatorID)
}

// GetSummary loads one schedule with route, bus and operator.
func (r ScheduleRepository) GetSummary(ctx context.Context, id int64) (models.ScheduleSummary, error) {
	s, err := scanSummary(r.DB.QueryRowContext(ctx, scheduleSummarySelect+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ScheduleSummary{}, domain.ScheduleNotFound(err)
		}
		return models.ScheduleSummary{}, domain.Internal("get schedule summary", err)
	}
	return s, nil
}

func (r ScheduleRepository) listSummaries(ctx context.Context, query string, args ...any) ([]models.ScheduleSummary, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal("list schedules", err)
	}
	defer rows.Close()

	out := []models.ScheduleSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, domain.Internal("scan schedule", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate schedules", err)
	}
	return out, nil
}
