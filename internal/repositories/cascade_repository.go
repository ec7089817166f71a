package repositories

import (
	"context"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

// CascadeRepository removes a parent row together with everything that
// references it. It must run on a transaction handle; the statements are
// ordered children first so no foreign key is ever left dangling.
type CascadeRepository struct {
	DB intdb.DBTX
}

const (
	operatorBusIDs      = `SELECT id FROM buses WHERE operator_id = ?`
	operatorScheduleIDs = `SELECT s.id FROM schedules s JOIN buses bu ON bu.id = s.bus_id WHERE bu.operator_id = ?`
	operatorBookingIDs  = `SELECT b.id FROM bookings b JOIN schedules s ON s.id = b.schedule_id JOIN buses bu ON bu.id = s.bus_id WHERE bu.operator_id = ?`
)

// DeleteOperator removes the operator's buses, schedules, bookings (with
// payments and tickets), reviews about the operator or its buses, then the
// operator row itself. The owning user is left to the caller.
func (r CascadeRepository) DeleteOperator(ctx context.Context, operatorID int64) (models.CascadeReport, error) {
	var rep models.CascadeReport
	steps := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&rep.Payments, `DELETE FROM payments WHERE booking_id IN (` + operatorBookingIDs + `)`, []any{operatorID}},
		{&rep.Tickets, `DELETE FROM tickets WHERE booking_id IN (` + operatorBookingIDs + `)`, []any{operatorID}},
		{&rep.Bookings, `DELETE FROM bookings WHERE schedule_id IN (` + operatorScheduleIDs + `)`, []any{operatorID}},
		{&rep.Schedules, `DELETE FROM schedules WHERE bus_id IN (` + operatorBusIDs + `)`, []any{operatorID}},
		{&rep.Reviews, `DELETE FROM reviews WHERE (target_type = ? AND target_id = ?) OR (target_type = ? AND target_id IN (` + operatorBusIDs + `))`,
			[]any{models.ReviewTargetOperator, operatorID, models.ReviewTargetBus, operatorID}},
		{&rep.Buses, `DELETE FROM buses WHERE operator_id = ?`, []any{operatorID}},
		{&rep.Operators, `DELETE FROM operators WHERE id = ?`, []any{operatorID}},
	}
	for _, st := range steps {
		n, err := r.exec(ctx, st.query, st.args...)
		if err != nil {
			return rep, err
		}
		*st.dst += n
	}
	if rep.Operators == 0 {
		return rep, domain.NotFoundError{Resource: "operator"}
	}
	return rep, nil
}

// DeleteUser removes a user and everything they own: seats of their
// still-confirmed bookings go back to inventory, then payments, tickets,
// bookings, reviews and sessions are deleted before the user row.
// Operator accounts must be cleared with DeleteOperator first.
func (r CascadeRepository) DeleteUser(ctx context.Context, userID int64) (models.CascadeReport, error) {
	var rep models.CascadeReport

	if _, err := r.exec(ctx, `
		UPDATE schedules
		SET available_seats = CASE
			WHEN available_seats + (SELECT COALESCE(SUM(b.number_of_seats), 0) FROM bookings b
			                        WHERE b.schedule_id = schedules.id AND b.user_id = ? AND b.status = ?) > total_seats
			THEN total_seats
			ELSE available_seats + (SELECT COALESCE(SUM(b.number_of_seats), 0) FROM bookings b
			                        WHERE b.schedule_id = schedules.id AND b.user_id = ? AND b.status = ?)
		END
		WHERE id IN (SELECT schedule_id FROM bookings WHERE user_id = ? AND status = ?)
	`, userID, models.BookingConfirmed, userID, models.BookingConfirmed, userID, models.BookingConfirmed); err != nil {
		return rep, err
	}

	userBookingIDs := `SELECT id FROM bookings WHERE user_id = ?`
	steps := []struct {
		dst   *int64
		query string
	}{
		{&rep.Payments, `DELETE FROM payments WHERE booking_id IN (` + userBookingIDs + `)`},
		{&rep.Tickets, `DELETE FROM tickets WHERE booking_id IN (` + userBookingIDs + `)`},
		{&rep.Bookings, `DELETE FROM bookings WHERE user_id = ?`},
		{&rep.Reviews, `DELETE FROM reviews WHERE user_id = ?`},
		{&rep.Sessions, `DELETE FROM sessions WHERE user_id = ?`},
		{&rep.Users, `DELETE FROM users WHERE id = ?`},
	}
	for _, st := range steps {
		n, err := r.exec(ctx, st.query, userID)
		if err != nil {
			return rep, err
		}
		*st.dst += n
	}
	if rep.Users == 0 {
		return rep, domain.NotFoundError{Resource: "user"}
	}
	return rep, nil
}

func (r CascadeRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domain.Internal("cascade delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Internal("cascade rows", err)
	}
	return n, nil
}

// Merge adds the counts of other into rep.
func Merge(rep, other models.CascadeReport) models.CascadeReport {
	rep.Buses += other.Buses
	rep.Schedules += other.Schedules
	rep.Bookings += other.Bookings
	rep.Payments += other.Payments
	rep.Tickets += other.Tickets
	rep.Reviews += other.Reviews
	rep.Sessions += other.Sessions
	rep.Operators += other.Operators
	rep.Users += other.Users
	return rep
}
