package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/testutil"

	"github.com/stretchr/testify/require"
)

type operatorEnv struct {
	svc     OperatorService
	fx      testutil.Fixture
	ownerID int64
	opID    int64
	routeID int64
	now     time.Time
}

func newOperatorEnv(t *testing.T) operatorEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	fx := testutil.Fixture{T: t, DB: db}
	now := time.Now().UTC().Truncate(time.Second)
	owner := fx.User("owner@example.com", domain.RoleOperator, "")
	return operatorEnv{
		svc:     OperatorService{DB: db, Now: func() time.Time { return now }},
		fx:      fx,
		ownerID: owner,
		opID:    fx.Operator(owner, "Safari"),
		routeID: fx.Route("Dar es Salaam", "Arusha"),
		now:     now,
	}
}

func (e operatorEnv) schedulePayload(busID int64, departIn time.Duration) models.SchedulePayload {
	dep := e.now.Add(departIn)
	return models.SchedulePayload{BusID: busID, RouteID: e.routeID, DepartureTime: dep, ArrivalTime: dep.Add(9 * time.Hour), Price: 35000}
}

func TestCreateBusValidation(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    models.BusPayload
		field string
	}{
		{"missing plate", models.BusPayload{PlateNumber: "  ", Capacity: 40}, "plate_number"},
		{"zero capacity", models.BusPayload{PlateNumber: "T 100 ABC", Capacity: 0}, "capacity"},
		{"capacity over limit", models.BusPayload{PlateNumber: "T 100 ABC", Capacity: models.MaxBusCapacity + 1}, "capacity"},
		{"unknown status", models.BusPayload{PlateNumber: "T 100 ABC", Capacity: 40, Status: "flying"}, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateBus(ctx, env.ownerID, tc.in)
			var ve domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			require.Equal(t, tc.field, ve.Field)
		})
	}

	b, err := env.svc.CreateBus(ctx, env.ownerID, models.BusPayload{PlateNumber: " t 100  abc ", Model: "Yutong", Capacity: 60})
	require.NoError(t, err)
	require.Equal(t, "T100ABC", b.PlateNumber)
	require.Equal(t, models.BusStatusActive, b.Status)
	require.Equal(t, env.opID, b.OperatorID)

	_, err = env.svc.CreateBus(ctx, env.ownerID, models.BusPayload{PlateNumber: "T100ABC", Capacity: 30})
	require.True(t, domain.IsConflict(err), "duplicate plate: %v", err)
}

func TestPendingOperatorCannotManageFleet(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()
	_, err := env.fx.DB.Exec(`UPDATE operators SET verification_status = 'pending' WHERE id = ?`, env.opID)
	require.NoError(t, err)

	_, err = env.svc.CreateBus(ctx, env.ownerID, models.BusPayload{PlateNumber: "T1", Capacity: 10})
	require.ErrorIs(t, err, domain.ErrForbidden)

	// reads stay open so the operator can see their profile
	op, err := env.svc.Profile(ctx, env.ownerID)
	require.NoError(t, err)
	require.False(t, op.CanOperate())
}

func TestCreateScheduleSeatsFollowBusCapacity(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()
	busID := env.fx.Bus(env.opID, "T200XYZ", 45)

	sum, err := env.svc.CreateSchedule(ctx, env.ownerID, env.schedulePayload(busID, 48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 45, sum.TotalSeats)
	require.Equal(t, 45, sum.AvailableSeats)
	require.Equal(t, models.ScheduleScheduled, sum.Status)
	require.Equal(t, "Dar es Salaam", sum.Origin)

	_, err = env.svc.CreateSchedule(ctx, env.ownerID, env.schedulePayload(busID, -time.Hour))
	require.True(t, domain.IsValidation(err), "past departure: %v", err)

	p := env.schedulePayload(busID, 48*time.Hour)
	p.ArrivalTime = p.DepartureTime
	_, err = env.svc.CreateSchedule(ctx, env.ownerID, p)
	require.True(t, domain.IsValidation(err), "arrival before departure: %v", err)

	p = env.schedulePayload(busID, 48*time.Hour)
	p.Price = 0
	_, err = env.svc.CreateSchedule(ctx, env.ownerID, p)
	require.True(t, domain.IsValidation(err), "zero price: %v", err)
}

func TestCreateScheduleOnForeignBus(t *testing.T) {
	env := newOperatorEnv(t)
	otherOwner := env.fx.User("rival@example.com", domain.RoleOperator, "")
	rivalBus := env.fx.Bus(env.fx.Operator(otherOwner, "Rival"), "T900RIV", 30)

	_, err := env.svc.CreateSchedule(context.Background(), env.ownerID, env.schedulePayload(rivalBus, 48*time.Hour))
	require.True(t, domain.IsNotFound(err), "got %v", err)
	require.Zero(t, env.fx.Count("schedules", ""))
}

func TestUpdateScheduleKeepsBus(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()
	busA := env.fx.Bus(env.opID, "T1AAA", 40)
	busB := env.fx.Bus(env.opID, "T2BBB", 40)
	sched := env.fx.Schedule(busA, env.routeID, env.now.Add(72*time.Hour), 30000, 40)

	p := env.schedulePayload(busB, 72*time.Hour)
	_, err := env.svc.UpdateSchedule(ctx, env.ownerID, sched, p)
	require.True(t, domain.IsValidation(err), "got %v", err)

	p = env.schedulePayload(busA, 96*time.Hour)
	p.Price = 42000
	sum, err := env.svc.UpdateSchedule(ctx, env.ownerID, sched, p)
	require.NoError(t, err)
	require.EqualValues(t, 42000, sum.Price)
	require.Equal(t, 40, sum.AvailableSeats)
}

func TestDeleteScheduleWithBookings(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()
	busID := env.fx.Bus(env.opID, "T300QQQ", 30)
	sched := env.fx.Schedule(busID, env.routeID, env.now.Add(72*time.Hour), 20000, 30)
	rider := env.fx.User("rider@example.com", domain.RolePassenger, "")
	booking := env.fx.Booking(rider, sched, 2, 40000)

	err := env.svc.DeleteSchedule(ctx, env.ownerID, sched)
	require.True(t, domain.IsConflict(err), "got %v", err)
	require.EqualValues(t, 1, env.fx.Count("schedules", "id = ?", sched))

	// once every booking is cancelled the schedule and its history can go
	_, err = env.fx.DB.Exec(`UPDATE bookings SET status = 'cancelled' WHERE id = ?`, booking)
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteSchedule(ctx, env.ownerID, sched))
	require.Zero(t, env.fx.Count("schedules", ""))
	require.Zero(t, env.fx.Count("bookings", ""))
	require.Zero(t, env.fx.Count("payments", ""))
	require.Zero(t, env.fx.Count("tickets", ""))

	err = env.svc.DeleteBus(ctx, env.ownerID, busID)
	require.NoError(t, err)
	require.Zero(t, env.fx.Count("buses", ""))
}

func TestDeleteBusWithSchedules(t *testing.T) {
	env := newOperatorEnv(t)
	busID := env.fx.Bus(env.opID, "T400WWW", 30)
	env.fx.Schedule(busID, env.routeID, env.now.Add(72*time.Hour), 20000, 30)

	err := env.svc.DeleteBus(context.Background(), env.ownerID, busID)
	require.True(t, domain.IsConflict(err), "got %v", err)
	require.EqualValues(t, 1, env.fx.Count("buses", ""))
}

func TestVerifyTicket(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()
	busID := env.fx.Bus(env.opID, "T500EEE", 30)
	sched := env.fx.Schedule(busID, env.routeID, env.now.Add(72*time.Hour), 20000, 30)
	rider := env.fx.User("rider@example.com", domain.RolePassenger, "")
	booking := env.fx.Booking(rider, sched, 1, 20000)

	var code string
	require.NoError(t, env.fx.DB.QueryRow(`SELECT qr_code FROM tickets WHERE booking_id = ?`, booking).Scan(&code))

	check, err := env.svc.VerifyTicket(ctx, env.ownerID, code)
	require.NoError(t, err)
	require.False(t, check.Valid)
	require.Equal(t, "payment is pending", check.Reason)

	_, err = env.fx.DB.Exec(`UPDATE payments SET status = 'completed' WHERE booking_id = ?`, booking)
	require.NoError(t, err)
	check, err = env.svc.VerifyTicket(ctx, env.ownerID, code)
	require.NoError(t, err)
	require.True(t, check.Valid)
	require.Equal(t, booking, check.Booking.ID)

	_, err = env.svc.VerifyTicket(ctx, env.ownerID, "TKT-NOPE")
	require.True(t, domain.IsNotFound(err))

	// another operator cannot board this ticket
	rivalOwner := env.fx.User("rival@example.com", domain.RoleOperator, "")
	env.fx.Operator(rivalOwner, "Rival")
	_, err = env.svc.VerifyTicket(ctx, rivalOwner, code)
	require.True(t, domain.IsNotFound(err))
}

func TestOperatorBookingsAreScoped(t *testing.T) {
	env := newOperatorEnv(t)
	ctx := context.Background()
	busID := env.fx.Bus(env.opID, "T600RRR", 30)
	sched := env.fx.Schedule(busID, env.routeID, env.now.Add(72*time.Hour), 20000, 30)
	rider := env.fx.User("rider@example.com", domain.RolePassenger, "")
	env.fx.Booking(rider, sched, 1, 20000)

	rivalOwner := env.fx.User("rival@example.com", domain.RoleOperator, "")
	rivalBus := env.fx.Bus(env.fx.Operator(rivalOwner, "Rival"), "T700ZZZ", 30)
	env.fx.Booking(rider, env.fx.Schedule(rivalBus, env.routeID, env.now.Add(72*time.Hour), 20000, 30), 1, 20000)

	list, err := env.svc.ListBookings(ctx, env.ownerID, 0, "", domain.Pagination{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, sched, list[0].ScheduleID)
}
