package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type bookingEnv struct {
	fx         testutil.Fixture
	svc        BookingService
	passenger  int64
	scheduleID int64
	departure  time.Time
}

func newBookingEnv(t *testing.T, seats int, departIn time.Duration) bookingEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	fx := testutil.Fixture{T: t, DB: db}

	owner := fx.User("owner@example.com", domain.RoleOperator, "")
	op := fx.Operator(owner, "Kilimanjaro")
	bus := fx.Bus(op, "T123ABC", seats)
	route := fx.Route("Dar es Salaam", "Arusha")
	departure := time.Now().UTC().Add(departIn).Truncate(time.Second)
	sched := fx.Schedule(bus, route, departure, 45000, seats)

	return bookingEnv{
		fx:         fx,
		svc:        BookingService{DB: db, CancellationWindow: 24 * time.Hour},
		passenger:  fx.User("rider@example.com", domain.RolePassenger, ""),
		scheduleID: sched,
		departure:  departure,
	}
}

func TestCreateBookingWritesBookingPaymentTicket(t *testing.T) {
	env := newBookingEnv(t, 40, 72*time.Hour)

	res, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID:    env.scheduleID,
		NumberOfSeats: 3,
		PaymentMethod: "MPESA",
	})
	require.NoError(t, err)
	require.Positive(t, res.BookingID)
	require.Equal(t, int64(135000), res.TotalAmount)
	require.Equal(t, models.PaymentPending, res.PaymentStatus)
	require.Regexp(t, regexp.MustCompile(`^TKT-[0-9A-F]{32}$`), res.QRCode)

	require.Equal(t, 37, env.fx.AvailableSeats(env.scheduleID))
	require.EqualValues(t, 1, env.fx.Count("bookings", "id = ? AND status = 'confirmed' AND total_amount = 135000", res.BookingID))
	require.EqualValues(t, 1, env.fx.Count("payments", "booking_id = ? AND status = 'pending' AND method = 'mpesa' AND amount = 135000", res.BookingID))
	require.EqualValues(t, 1, env.fx.Count("tickets", "booking_id = ? AND qr_code = ?", res.BookingID, res.QRCode))
}

func TestCreateBookingInsufficientSeatsLeavesInventory(t *testing.T) {
	env := newBookingEnv(t, 2, 72*time.Hour)

	_, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID:    env.scheduleID,
		NumberOfSeats: 3,
		PaymentMethod: "card",
	})
	var seats domain.InsufficientSeatsError
	require.ErrorAs(t, err, &seats)
	require.Equal(t, 2, seats.Available)

	require.Equal(t, 2, env.fx.AvailableSeats(env.scheduleID))
	require.Zero(t, env.fx.Count("bookings", ""))
	require.Zero(t, env.fx.Count("payments", ""))
	require.Zero(t, env.fx.Count("tickets", ""))
}

func TestCreateBookingValidation(t *testing.T) {
	env := newBookingEnv(t, 10, 72*time.Hour)

	cases := []CreateBookingInput{
		{ScheduleID: 0, NumberOfSeats: 1, PaymentMethod: "card"},
		{ScheduleID: env.scheduleID, NumberOfSeats: 0, PaymentMethod: "card"},
		{ScheduleID: env.scheduleID, NumberOfSeats: -2, PaymentMethod: "card"},
		{ScheduleID: env.scheduleID, NumberOfSeats: models.MaxSeatsPerBooking + 1, PaymentMethod: "card"},
		{ScheduleID: env.scheduleID, NumberOfSeats: 1, PaymentMethod: "bitcoin"},
	}
	for _, in := range cases {
		_, err := env.svc.CreateBooking(context.Background(), env.passenger, in)
		if !domain.IsValidation(err) {
			t.Fatalf("input %+v: expected validation error, got %v", in, err)
		}
	}
	require.Equal(t, 10, env.fx.AvailableSeats(env.scheduleID))
}

func TestCreateBookingUnknownOrDepartedSchedule(t *testing.T) {
	env := newBookingEnv(t, 10, -time.Hour)

	_, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID: env.scheduleID, NumberOfSeats: 1, PaymentMethod: "cash",
	})
	var nf domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "schedule", nf.Resource)

	_, err = env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID: 9999, NumberOfSeats: 1, PaymentMethod: "cash",
	})
	require.ErrorAs(t, err, &nf)
	require.Equal(t, 10, env.fx.AvailableSeats(env.scheduleID))
}

func TestCreateBookingConcurrentLastSeats(t *testing.T) {
	const seats = 5
	const attempts = 20
	env := newBookingEnv(t, seats, 72*time.Hour)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		other     []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
				ScheduleID: env.scheduleID, NumberOfSeats: 1, PaymentMethod: "airtel_money",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case domain.IsInsufficientSeats(err):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, seats, succeeded)
	require.Equal(t, attempts-seats, rejected)
	require.Equal(t, 0, env.fx.AvailableSeats(env.scheduleID))
	require.EqualValues(t, seats, env.fx.Count("bookings", ""))
	require.EqualValues(t, seats, env.fx.Count("payments", ""))
	require.EqualValues(t, seats, env.fx.Count("tickets", ""))
}

func TestCancelBookingRestoresSeats(t *testing.T) {
	env := newBookingEnv(t, 10, 72*time.Hour)
	actor := domain.RequestContext{UserID: domain.ID(env.passenger), Role: domain.RolePassenger}

	res, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID: env.scheduleID, NumberOfSeats: 4, PaymentMethod: "tigo_pesa",
	})
	require.NoError(t, err)
	require.Equal(t, 6, env.fx.AvailableSeats(env.scheduleID))

	b, err := env.svc.CancelBooking(context.Background(), actor, res.BookingID)
	require.NoError(t, err)
	require.Equal(t, models.BookingCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)

	require.Equal(t, 10, env.fx.AvailableSeats(env.scheduleID))
	require.EqualValues(t, 1, env.fx.Count("payments", "booking_id = ? AND status = 'cancelled'", res.BookingID))

	_, err = env.svc.CancelBooking(context.Background(), actor, res.BookingID)
	require.True(t, domain.IsCancellationWindowClosed(err), "second cancel: %v", err)
	require.Equal(t, 10, env.fx.AvailableSeats(env.scheduleID))
}

func TestCancelBookingRefundsCompletedPayment(t *testing.T) {
	env := newBookingEnv(t, 10, 72*time.Hour)
	actor := domain.RequestContext{UserID: domain.ID(env.passenger), Role: domain.RolePassenger}

	res, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID: env.scheduleID, NumberOfSeats: 1, PaymentMethod: "card",
	})
	require.NoError(t, err)

	p, err := env.svc.PayBooking(context.Background(), actor, res.BookingID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentCompleted, p.Status)
	require.NotEmpty(t, p.TransactionRef)

	_, err = env.svc.PayBooking(context.Background(), actor, res.BookingID)
	require.True(t, domain.IsConflict(err), "second payment: %v", err)

	_, err = env.svc.CancelBooking(context.Background(), actor, res.BookingID)
	require.NoError(t, err)
	require.EqualValues(t, 1, env.fx.Count("payments", "booking_id = ? AND status = 'refunded'", res.BookingID))
}

func TestCancelBookingWindow(t *testing.T) {
	cases := []struct {
		name     string
		departIn time.Duration
		wantErr  bool
	}{
		{"well before departure", 48 * time.Hour, false},
		{"just outside the window", 24*time.Hour + 10*time.Minute, false},
		{"inside the window", 23 * time.Hour, true},
		{"an hour before departure", time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newBookingEnv(t, 10, tc.departIn)
			actor := domain.RequestContext{UserID: domain.ID(env.passenger), Role: domain.RolePassenger}
			res, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
				ScheduleID: env.scheduleID, NumberOfSeats: 2, PaymentMethod: "cash",
			})
			require.NoError(t, err)

			_, err = env.svc.CancelBooking(context.Background(), actor, res.BookingID)
			if tc.wantErr {
				require.True(t, domain.IsCancellationWindowClosed(err), "got %v", err)
				require.Equal(t, 8, env.fx.AvailableSeats(env.scheduleID))
				require.EqualValues(t, 1, env.fx.Count("bookings", "status = 'confirmed'"))
				return
			}
			require.NoError(t, err)
			require.Equal(t, 10, env.fx.AvailableSeats(env.scheduleID))
		})
	}
}

func TestCancelBookingOtherUsersBooking(t *testing.T) {
	env := newBookingEnv(t, 10, 72*time.Hour)
	res, err := env.svc.CreateBooking(context.Background(), env.passenger, CreateBookingInput{
		ScheduleID: env.scheduleID, NumberOfSeats: 1, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	stranger := env.fx.User("stranger@example.com", domain.RolePassenger, "")
	_, err = env.svc.CancelBooking(context.Background(),
		domain.RequestContext{UserID: domain.ID(stranger), Role: domain.RolePassenger}, res.BookingID)
	require.True(t, domain.IsNotFound(err), "got %v", err)

	admin := env.fx.User("admin@example.com", domain.RoleAdmin, "")
	_, err = env.svc.CancelBooking(context.Background(),
		domain.RequestContext{UserID: domain.ID(admin), Role: domain.RoleAdmin}, res.BookingID)
	require.NoError(t, err)
}

func TestCreateBookingRollsBackWhenTicketInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer db.Close()

	departure := time.Now().Add(48 * time.Hour)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM schedules WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bus_id", "route_id", "departure_time", "arrival_time", "price",
			"total_seats", "available_seats", "status", "created_at", "updated_at"}).
			AddRow(7, 1, 1, departure, departure.Add(8*time.Hour), 20000, 30, 30, "scheduled", now, now))
	mock.ExpectExec(`UPDATE schedules\s+SET available_seats = available_seats - \?`).
		WithArgs(2, sqlmock.AnyArg(), int64(7), "scheduled", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(`INSERT INTO tickets`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	svc := BookingService{DB: db, NewTicketCode: func() string { return "TKT-FIXED" }}
	_, err = svc.CreateBooking(context.Background(), 3, CreateBookingInput{ScheduleID: 7, NumberOfSeats: 2, PaymentMethod: "mpesa"})
	if !domain.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingLostRaceRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	defer db.Close()

	departure := time.Now().Add(48 * time.Hour)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM schedules WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bus_id", "route_id", "departure_time", "arrival_time", "price",
			"total_seats", "available_seats", "status", "created_at", "updated_at"}).
			AddRow(7, 1, 1, departure, departure.Add(8*time.Hour), 20000, 30, 1, "scheduled", now, now))
	// another transaction took the last seat between the read and the update
	mock.ExpectExec(`UPDATE schedules\s+SET available_seats = available_seats - \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	svc := BookingService{DB: db}
	_, err = svc.CreateBooking(context.Background(), 3, CreateBookingInput{ScheduleID: 7, NumberOfSeats: 1, PaymentMethod: "card"})
	var seats domain.InsufficientSeatsError
	if !errors.As(err, &seats) || seats.Available >= 0 {
		t.Fatalf("expected lost-race insufficient seats, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
