package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"busticket/internal/auth"
	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AuthService handles registration, login and the session lifecycle.
type AuthService struct {
	DB         *sql.DB
	Issuer     *auth.Issuer
	BcryptCost int
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type RegisterOperatorInput struct {
	RegisterInput
	CompanyName   string `json:"company_name" binding:"required"`
	LicenseNumber string `json:"license_number" binding:"required"`
	ContactPhone  string `json:"contact_phone"`
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      models.User `json:"user"`
}

// ClientInfo is recorded on the session row.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func (s AuthService) cost() int {
	if s.BcryptCost > 0 {
		return s.BcryptCost
	}
	return bcrypt.DefaultCost
}

func (s AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return "", domain.Internal("hash password", err)
	}
	return string(h), nil
}

func normalizeRegister(in RegisterInput) (RegisterInput, error) {
	in.Name = utils.NormalizeSpace(in.Name)
	in.Email = utils.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return in, domain.ValidationError{Field: "name", Msg: "name is required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return in, domain.ValidationError{Field: "email", Msg: "invalid email address"}
	}
	if len(in.Password) < minPasswordLength {
		return in, domain.ValidationError{Field: "password", Msg: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	return in, nil
}

// Register creates a passenger account.
func (s AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in, err := normalizeRegister(in)
	if err != nil {
		return models.User{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	users := repositories.UserRepository{DB: s.DB}
	id, err := users.Create(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         domain.RolePassenger,
		Status:       models.UserStatusActive,
	})
	if err != nil {
		return models.User{}, err
	}
	utils.LogEventCtx(ctx, "auth", "register", fmt.Sprintf("user_id=%d role=%s", id, domain.RolePassenger))
	return users.GetByID(ctx, id)
}

// RegisterOperator creates the owning user and a pending operator in one
// transaction.
func (s AuthService) RegisterOperator(ctx context.Context, in RegisterOperatorInput) (models.User, models.Operator, error) {
	base, err := normalizeRegister(in.RegisterInput)
	if err != nil {
		return models.User{}, models.Operator{}, err
	}
	company := utils.NormalizeSpace(in.CompanyName)
	license := strings.ToUpper(strings.TrimSpace(in.LicenseNumber))
	if company == "" {
		return models.User{}, models.Operator{}, domain.ValidationError{Field: "company_name", Msg: "company_name is required"}
	}
	if license == "" {
		return models.User{}, models.Operator{}, domain.ValidationError{Field: "license_number", Msg: "license_number is required"}
	}
	contact := strings.TrimSpace(in.ContactPhone)
	if contact == "" {
		contact = base.Phone
	}
	hash, err := s.hash(base.Password)
	if err != nil {
		return models.User{}, models.Operator{}, err
	}

	var (
		user models.User
		op   models.Operator
	)
	err = intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		users := repositories.UserRepository{DB: tx}
		userID, err := users.Create(ctx, models.User{
			Name:         base.Name,
			Email:        base.Email,
			Phone:        base.Phone,
			PasswordHash: hash,
			Role:         domain.RoleOperator,
			Status:       models.UserStatusActive,
		})
		if err != nil {
			return err
		}
		operators := repositories.OperatorRepository{DB: tx}
		opID, err := operators.Create(ctx, models.Operator{
			UserID:        userID,
			CompanyName:   company,
			LicenseNumber: license,
			ContactPhone:  contact,
		})
		if err != nil {
			return err
		}
		if user, err = users.GetByID(ctx, userID); err != nil {
			return err
		}
		op, err = operators.GetByID(ctx, opID)
		return err
	})
	if err != nil {
		return models.User{}, models.Operator{}, err
	}
	utils.LogEventCtx(ctx, "auth", "register_operator", fmt.Sprintf("user_id=%d operator_id=%d", user.ID, op.ID))
	return user, op, nil
}

// Login checks credentials, issues a token and records its session.
func (s AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (LoginResult, error) {
	u, err := repositories.UserRepository{DB: s.DB}.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if u.Status == models.UserStatusSuspended {
		return LoginResult{}, fmt.Errorf("%w: account suspended", domain.ErrForbidden)
	}

	token, exp, err := s.Issuer.Issue(u.ID, u.Role)
	if err != nil {
		return LoginResult{}, domain.Internal("issue token", err)
	}
	if err := (repositories.SessionRepository{DB: s.DB}).Create(ctx, models.Session{
		UserID:    u.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: exp,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}); err != nil {
		return LoginResult{}, err
	}

	utils.LogEventCtx(ctx, "auth", "login", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return LoginResult{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339), User: u}, nil
}

// Logout drops the session of token. Unknown tokens are not an error.
func (s AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	n, err := repositories.SessionRepository{DB: s.DB}.DeleteByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		return err
	}
	utils.LogEventCtx(ctx, "auth", "logout", fmt.Sprintf("sessions_removed=%d", n))
	return nil
}

// Me returns the user and, for operators, their operator profile.
func (s AuthService) Me(ctx context.Context, userID int64) (models.User, *models.Operator, error) {
	u, err := repositories.UserRepository{DB: s.DB}.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, nil, err
	}
	if u.Role != domain.RoleOperator {
		return u, nil, nil
	}
	op, err := repositories.OperatorRepository{DB: s.DB}.GetByUserID(ctx, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return u, nil, nil
		}
		return models.User{}, nil, err
	}
	return u, &op, nil
}

func (s AuthService) UpdateProfile(ctx context.Context, userID int64, name, phone string) (models.User, error) {
	name = utils.NormalizeSpace(name)
	if name == "" {
		return models.User{}, domain.ValidationError{Field: "name", Msg: "name is required"}
	}
	users := repositories.UserRepository{DB: s.DB}
	if err := users.UpdateProfile(ctx, userID, name, strings.TrimSpace(phone)); err != nil {
		return models.User{}, err
	}
	return users.GetByID(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and
// signs out every other session of the user.
func (s AuthService) ChangePassword(ctx context.Context, userID int64, currentToken, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return domain.ValidationError{Field: "new_password", Msg: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}

	var removed int64
	err = intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		users := repositories.UserRepository{DB: tx}
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
			return domain.ValidationError{Field: "current_password", Msg: "current password is incorrect"}
		}
		if err := users.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		removed, err = repositories.SessionRepository{DB: tx}.DeleteOtherSessions(ctx, userID, auth.HashToken(currentToken))
		return err
	})
	if err != nil {
		return err
	}
	utils.LogEventCtx(ctx, "auth", "change_password", fmt.Sprintf("user_id=%d sessions_removed=%d", userID, removed))
	return nil
}
