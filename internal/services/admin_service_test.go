package services

import (
	"context"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/testutil"

	"github.com/stretchr/testify/require"
)

type cascadeFixture struct {
	fx         testutil.Fixture
	svc        AdminService
	admin      domain.RequestContext
	ownerID    int64
	operatorID int64
	otherSched int64
	riderA     int64
}

// newCascadeFixture seeds an operator with 2 buses, 3 schedules and 5
// bookings, plus an unrelated operator that must survive deletes.
func newCascadeFixture(t *testing.T) cascadeFixture {
	t.Helper()
	db := testutil.OpenDB(t)
	fx := testutil.Fixture{T: t, DB: db}

	adminID := fx.User("admin@example.com", domain.RoleAdmin, "")
	owner := fx.User("owner@example.com", domain.RoleOperator, "")
	op := fx.Operator(owner, "Dar Express")
	bus1 := fx.Bus(op, "T100AAA", 30)
	bus2 := fx.Bus(op, "T200BBB", 30)
	route := fx.Route("Dar es Salaam", "Mwanza")
	dep := time.Now().Add(96 * time.Hour)
	s1 := fx.Schedule(bus1, route, dep, 50000, 30)
	s2 := fx.Schedule(bus1, route, dep.Add(24*time.Hour), 50000, 30)
	s3 := fx.Schedule(bus2, route, dep, 55000, 30)

	riderA := fx.User("a@example.com", domain.RolePassenger, "")
	riderB := fx.User("b@example.com", domain.RolePassenger, "")
	fx.Booking(riderA, s1, 2, 100000)
	fx.Booking(riderB, s1, 1, 50000)
	fx.Booking(riderA, s2, 1, 50000)
	fx.Booking(riderB, s3, 3, 165000)
	fx.Booking(riderA, s3, 1, 55000)

	if _, err := db.Exec(`INSERT INTO reviews (user_id, target_type, target_id, rating, comment, is_approved, created_at)
		VALUES (?, 'operator', ?, 5, 'great', 1, ?), (?, 'bus', ?, 4, 'clean', 1, ?), (?, 'platform', NULL, 3, 'ok', 1, ?)`,
		riderA, op, time.Now().UTC(), riderB, bus1, time.Now().UTC(), riderB, time.Now().UTC()); err != nil {
		t.Fatalf("seed reviews: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO sessions (user_id, token_hash, expires_at, ip_address, user_agent, created_at)
		VALUES (?, 'owner-session', ?, '', '', ?)`, owner, time.Now().Add(time.Hour).UTC(), time.Now().UTC()); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	otherOwner := fx.User("other@example.com", domain.RoleOperator, "")
	otherOp := fx.Operator(otherOwner, "Lake Coaches")
	otherBus := fx.Bus(otherOp, "T300CCC", 20)
	otherSched := fx.Schedule(otherBus, route, dep, 40000, 20)
	fx.Booking(riderA, otherSched, 2, 80000)

	return cascadeFixture{
		fx:         fx,
		svc:        AdminService{DB: db},
		admin:      domain.RequestContext{UserID: domain.ID(adminID), Role: domain.RoleAdmin},
		ownerID:    owner,
		operatorID: op,
		otherSched: otherSched,
		riderA:     riderA,
	}
}

func TestDeleteOperatorCascades(t *testing.T) {
	c := newCascadeFixture(t)

	rep, err := c.svc.DeleteOperator(context.Background(), c.admin, c.operatorID)
	require.NoError(t, err)
	require.Equal(t, models.CascadeReport{
		Buses:     2,
		Schedules: 3,
		Bookings:  5,
		Payments:  5,
		Tickets:   5,
		Reviews:   2,
		Sessions:  1,
		Operators: 1,
		Users:     1,
	}, rep)

	fx := c.fx
	require.Zero(t, fx.Count("operators", "id = ?", c.operatorID))
	require.Zero(t, fx.Count("users", "id = ?", c.ownerID))
	require.Zero(t, fx.Count("sessions", "user_id = ?", c.ownerID))

	// the other operator and everything it owns is untouched
	require.EqualValues(t, 1, fx.Count("operators", ""))
	require.EqualValues(t, 1, fx.Count("buses", ""))
	require.EqualValues(t, 1, fx.Count("schedules", ""))
	require.EqualValues(t, 1, fx.Count("bookings", ""))
	require.EqualValues(t, 1, fx.Count("payments", ""))
	require.EqualValues(t, 1, fx.Count("tickets", ""))
	require.EqualValues(t, 1, fx.Count("reviews", "target_type = 'platform'"))
	require.Equal(t, 18, fx.AvailableSeats(c.otherSched))
}

func TestDeleteOperatorUnknown(t *testing.T) {
	c := newCascadeFixture(t)
	_, err := c.svc.DeleteOperator(context.Background(), c.admin, 9999)
	require.True(t, domain.IsNotFound(err), "got %v", err)
	require.EqualValues(t, 2, c.fx.Count("operators", ""))
}

func TestDeleteOperatorUserTakesOperatorAlong(t *testing.T) {
	c := newCascadeFixture(t)

	rep, err := c.svc.DeleteUser(context.Background(), c.admin, c.ownerID)
	require.NoError(t, err)
	require.EqualValues(t, 1, rep.Operators)
	require.EqualValues(t, 2, rep.Buses)
	require.EqualValues(t, 5, rep.Bookings)
	require.EqualValues(t, 1, rep.Users)
	require.Zero(t, c.fx.Count("operators", "id = ?", c.operatorID))
}

func TestDeletePassengerReleasesSeats(t *testing.T) {
	c := newCascadeFixture(t)
	require.Equal(t, 18, c.fx.AvailableSeats(c.otherSched))

	rep, err := c.svc.DeleteUser(context.Background(), c.admin, c.riderA)
	require.NoError(t, err)
	require.EqualValues(t, 4, rep.Bookings)
	require.EqualValues(t, 4, rep.Payments)
	require.EqualValues(t, 4, rep.Tickets)
	require.EqualValues(t, 1, rep.Reviews)
	require.EqualValues(t, 1, rep.Users)

	require.Equal(t, 20, c.fx.AvailableSeats(c.otherSched))
	require.Zero(t, c.fx.Count("bookings", "user_id = ?", c.riderA))
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	c := newCascadeFixture(t)
	_, err := c.svc.DeleteUser(context.Background(), c.admin, int64(c.admin.UserID))
	require.True(t, domain.IsValidation(err), "got %v", err)
}

func TestSuspendUserEndsSessions(t *testing.T) {
	c := newCascadeFixture(t)

	u, err := c.svc.SetUserStatus(context.Background(), c.admin, c.ownerID, "suspended")
	require.NoError(t, err)
	require.Equal(t, models.UserStatusSuspended, u.Status)
	require.Zero(t, c.fx.Count("sessions", "user_id = ?", c.ownerID))

	_, err = c.svc.SetUserStatus(context.Background(), c.admin, c.ownerID, "banned")
	require.True(t, domain.IsValidation(err))
}

func TestRouteCRUD(t *testing.T) {
	c := newCascadeFixture(t)
	ctx := context.Background()

	rt, err := c.svc.CreateRoute(ctx, models.RoutePayload{Origin: "  Dodoma ", Destination: "Mbeya", DistanceKM: 500})
	require.NoError(t, err)
	require.Equal(t, "Dodoma", rt.Origin)

	_, err = c.svc.CreateRoute(ctx, models.RoutePayload{Origin: "Dodoma", Destination: "Mbeya"})
	require.True(t, domain.IsConflict(err), "duplicate route: %v", err)

	_, err = c.svc.CreateRoute(ctx, models.RoutePayload{Origin: "Mbeya", Destination: "mbeya"})
	require.True(t, domain.IsValidation(err))

	rt, err = c.svc.UpdateRoute(ctx, rt.ID, models.RoutePayload{Origin: "Dodoma", Destination: "Mbeya", DistanceKM: 520, EstimatedMinutes: 480})
	require.NoError(t, err)
	require.Equal(t, 520, rt.DistanceKM)

	require.NoError(t, c.svc.DeleteRoute(ctx, rt.ID))
	require.True(t, domain.IsNotFound(c.svc.DeleteRoute(ctx, rt.ID)))

	// the seeded route still has schedules
	var used int64
	require.NoError(t, c.fx.DB.QueryRow(`SELECT id FROM routes WHERE origin = 'Dar es Salaam'`).Scan(&used))
	require.True(t, domain.IsConflict(c.svc.DeleteRoute(ctx, used)))
}

func TestDashboard(t *testing.T) {
	c := newCascadeFixture(t)
	d, err := c.svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, d.UsersByRole[domain.RolePassenger])
	require.EqualValues(t, 2, d.UsersByRole[domain.RoleOperator])
	require.EqualValues(t, 2, d.OperatorsByStatus[models.VerificationVerified])
	require.EqualValues(t, 6, d.Bookings.Total)
	require.EqualValues(t, 6, d.Bookings.Confirmed)
}
