package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestReserveSeatsConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE schedules\\s+SET available_seats = available_seats - \\?").
		WithArgs(3, sqlmock.AnyArg(), int64(9), "scheduled", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE schedules\\s+SET available_seats = available_seats - \\?").
		WithArgs(3, sqlmock.AnyArg(), int64(9), "scheduled", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := ScheduleRepository{DB: db}
	ok, err := repo.ReserveSeats(context.Background(), 9, 3)
	if err != nil || !ok {
		t.Fatalf("first reserve: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ReserveSeats(context.Background(), 9, 3)
	if err != nil || ok {
		t.Fatalf("second reserve should miss: ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveSeatsDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE schedules").WillReturnError(errors.New("connection reset"))

	_, err = ScheduleRepository{DB: db}.ReserveSeats(context.Background(), 1, 1)
	if !domain.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestSeatInventoryBounds(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.Fixture{T: t, DB: db}
	owner := fx.User("owner@example.com", domain.RoleOperator, "")
	bus := fx.Bus(fx.Operator(owner, "Safari"), "T1", 10)
	sched := fx.Schedule(bus, fx.Route("A", "B"), time.Now().Add(48*time.Hour), 1000, 10)

	repo := ScheduleRepository{DB: db}
	ctx := context.Background()

	if ok, err := repo.ReserveSeats(ctx, sched, 11); err != nil || ok {
		t.Fatalf("reserving more than capacity: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.ReserveSeats(ctx, sched, 10); err != nil || !ok {
		t.Fatalf("reserving all seats: ok=%v err=%v", ok, err)
	}
	if got := fx.AvailableSeats(sched); got != 0 {
		t.Fatalf("available = %d, want 0", got)
	}
	if ok, err := repo.ReserveSeats(ctx, sched, 1); err != nil || ok {
		t.Fatalf("reserving from a full schedule: ok=%v err=%v", ok, err)
	}

	if err := repo.ReleaseSeats(ctx, sched, 4); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := repo.ReleaseSeats(ctx, sched, 25); err != nil {
		t.Fatalf("release past total: %v", err)
	}
	if got := fx.AvailableSeats(sched); got != 10 {
		t.Fatalf("available = %d, want total 10", got)
	}

	if _, err := db.Exec(`UPDATE schedules SET status = 'departed' WHERE id = ?`, sched); err != nil {
		t.Fatalf("depart: %v", err)
	}
	if ok, err := repo.ReserveSeats(ctx, sched, 1); err != nil || ok {
		t.Fatalf("reserving on a departed schedule: ok=%v err=%v", ok, err)
	}
}

func TestPaymentTransition(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.Fixture{T: t, DB: db}
	owner := fx.User("owner@example.com", domain.RoleOperator, "")
	rider := fx.User("rider@example.com", domain.RolePassenger, "")
	bus := fx.Bus(fx.Operator(owner, "Safari"), "T1", 10)
	sched := fx.Schedule(bus, fx.Route("A", "B"), time.Now().Add(48*time.Hour), 1000, 10)
	booking := fx.Booking(rider, sched, 1, 1000)

	repo := PaymentRepository{DB: db}
	ctx := context.Background()
	ok, err := repo.Transition(ctx, booking, "pending", "completed", "PAY-1")
	if err != nil || !ok {
		t.Fatalf("pending->completed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Transition(ctx, booking, "pending", "cancelled", "")
	if err != nil || ok {
		t.Fatalf("second transition from pending should miss: ok=%v err=%v", ok, err)
	}
	p, err := repo.GetByBookingID(ctx, booking)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if p.Status != "completed" || p.TransactionRef != "PAY-1" {
		t.Fatalf("payment = %+v", p)
	}
}

func TestSessionPurge(t *testing.T) {
	db := testutil.OpenDB(t)
	fx := testutil.Fixture{T: t, DB: db}
	user := fx.User("rider@example.com", domain.RolePassenger, "")
	now := time.Now().UTC().Truncate(time.Second)

	for i, exp := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		if _, err := db.Exec(`INSERT INTO sessions (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
			user, string(rune('a'+i)), exp, now); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}

	n, err := SessionRepository{DB: db}.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d sessions, want 2", n)
	}
	if left := fx.Count("sessions", ""); left != 1 {
		t.Fatalf("%d sessions left, want 1", left)
	}
}
