package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"busticket/internal/auth"
	"busticket/internal/domain"
	"busticket/internal/repositories"
	"busticket/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (AuthService, testutil.Fixture) {
	t.Helper()
	db := testutil.OpenDB(t)
	return AuthService{DB: db, Issuer: auth.NewIssuer("test-secret", time.Hour), BcryptCost: bcrypt.MinCost},
		testutil.Fixture{T: t, DB: db}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, fx := newAuthService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: " Asha  Mushi ", Email: "Asha@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.Equal(t, "Asha Mushi", u.Name)
	require.Equal(t, "asha@example.com", u.Email)
	require.Equal(t, domain.RolePassenger, u.Role)

	_, err = svc.Register(ctx, RegisterInput{Name: "Again", Email: "asha@example.com", Password: "s3cret-pass"})
	require.True(t, domain.IsConflict(err), "duplicate email: %v", err)

	res, err := svc.Login(ctx, "ASHA@example.com", "s3cret-pass", ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.EqualValues(t, 1, fx.Count("sessions", "user_id = ? AND token_hash = ?", u.ID, auth.HashToken(res.Token)))

	// the issued token passes the validator against the stored session
	v := auth.Validator{Issuer: svc.Issuer, Sessions: repositories.SessionRepository{DB: fx.DB}}
	rc, err := v.AuthenticateToken(ctx, res.Token)
	require.NoError(t, err)
	require.EqualValues(t, u.ID, rc.UserID)
	require.Equal(t, domain.RolePassenger, rc.Role)

	require.NoError(t, svc.Logout(ctx, res.Token))
	_, err = v.AuthenticateToken(ctx, res.Token)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Name: "Juma", Email: "juma@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "juma@example.com", "wrong-horse", ClientInfo{})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse", ClientInfo{})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginSuspendedUser(t *testing.T) {
	svc, fx := newAuthService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Name: "Neema", Email: "neema@example.com", Password: "password-1"})
	require.NoError(t, err)
	_, err = fx.DB.Exec(`UPDATE users SET status = 'suspended' WHERE id = ?`, u.ID)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "neema@example.com", "password-1", ClientInfo{})
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Zero(t, fx.Count("sessions", ""))
}

func TestRegisterValidation(t *testing.T) {
	svc, fx := newAuthService(t)
	cases := []RegisterInput{
		{Name: "", Email: "a@example.com", Password: "long-enough"},
		{Name: "A", Email: "not-an-email", Password: "long-enough"},
		{Name: "A", Email: "a@example.com", Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		var ve domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("input %+v: expected validation error, got %v", in, err)
		}
	}
	require.Zero(t, fx.Count("users", ""))
}

func TestRegisterOperatorIsAtomic(t *testing.T) {
	svc, fx := newAuthService(t)
	ctx := context.Background()

	u, op, err := svc.RegisterOperator(ctx, RegisterOperatorInput{
		RegisterInput: RegisterInput{Name: "Owner", Email: "owner@example.com", Phone: "0700", Password: "password-1"},
		CompanyName:   "Safari  Lines",
		LicenseNumber: "lat-001",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleOperator, u.Role)
	require.Equal(t, "Safari Lines", op.CompanyName)
	require.Equal(t, "LAT-001", op.LicenseNumber)
	require.Equal(t, "pending", op.VerificationStatus)
	require.Equal(t, "0700", op.ContactPhone)

	// the license clash rolls back the second user as well
	_, _, err = svc.RegisterOperator(ctx, RegisterOperatorInput{
		RegisterInput: RegisterInput{Name: "Copycat", Email: "copycat@example.com", Password: "password-1"},
		CompanyName:   "Copy Lines",
		LicenseNumber: "LAT-001",
	})
	require.True(t, domain.IsConflict(err), "got %v", err)
	require.Zero(t, fx.Count("users", "email = 'copycat@example.com'"))

	me, meOp, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, me.ID)
	require.NotNil(t, meOp)
	require.Equal(t, op.ID, meOp.ID)
}

func TestChangePasswordKeepsCurrentSessionOnly(t *testing.T) {
	svc, fx := newAuthService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Name: "Baraka", Email: "baraka@example.com", Password: "first-pass"})
	require.NoError(t, err)

	first, err := svc.Login(ctx, "baraka@example.com", "first-pass", ClientInfo{})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "baraka@example.com", "first-pass", ClientInfo{})
	require.NoError(t, err)
	require.EqualValues(t, 2, fx.Count("sessions", "user_id = ?", u.ID))

	err = svc.ChangePassword(ctx, u.ID, first.Token, "nope-nope", "second-pass")
	require.True(t, domain.IsValidation(err))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, first.Token, "first-pass", "second-pass"))
	require.EqualValues(t, 1, fx.Count("sessions", "user_id = ? AND token_hash = ?", u.ID, auth.HashToken(first.Token)))
	require.EqualValues(t, 1, fx.Count("sessions", "user_id = ?", u.ID))

	_, err = svc.Login(ctx, "baraka@example.com", "first-pass", ClientInfo{})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "baraka@example.com", "second-pass", ClientInfo{})
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Name: "Zawadi", Email: "zawadi@example.com", Password: "password-1"})
	require.NoError(t, err)

	got, err := svc.UpdateProfile(ctx, u.ID, "Zawadi  K", " 0755 ")
	require.NoError(t, err)
	require.Equal(t, "Zawadi K", got.Name)
	require.Equal(t, "0755", got.Phone)

	_, err = svc.UpdateProfile(ctx, u.ID, "   ", "")
	require.True(t, domain.IsValidation(err))
}
