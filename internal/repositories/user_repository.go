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

type UserRepository struct {
	DB intdb.DBTX
}

const userColumns = `id, name, email, phone, password_hash, role, status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts u and returns its id. Duplicate emails are a ConflictError.
func (r UserRepository) Create(ctx context.Context, u models.User) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (name, email, phone, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.Name, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.Role, u.Status, now, now)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
		}
		return 0, domain.Internal("create user", err)
	}
	return res.LastInsertId()
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, domain.Internal("get user", err)
	}
	return u, nil
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, domain.Internal("get user by email", err)
	}
	return u, nil
}

// List returns users filtered by role and a name/email search term.
func (r UserRepository) List(ctx context.Context, role, q string, page domain.Pagination) ([]models.User, error) {
	page = page.Normalize()
	where := []string{}
	args := []any{}
	if role != "" {
		where = append(where, "role = ?")
		args = append(args, role)
	}
	if q != "" {
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal("list users", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.Internal("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate users", err)
	}
	return out, nil
}

func (r UserRepository) UpdateProfile(ctx context.Context, id int64, name, phone string) error {
	return r.exec(ctx, "update profile",
		`UPDATE users SET name = ?, phone = ?, updated_at = ? WHERE id = ?`,
		name, phone, time.Now().UTC(), id)
}

func (r UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, "update password",
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id)
}

func (r UserRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.exec(ctx, "update user status",
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
}

// CountByRole returns the number of users per role.
func (r UserRepository) CountByRole(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, domain.Internal("count users", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, domain.Internal("scan user count", err)
		}
		out[role] = n
	}
	return out, rows.Err()
}

func (r UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Internal(op, err)
	}
	return requireAffected(res, "user")
}

// requireAffected turns a zero-row update into a NotFoundError.
func requireAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Internal("rows affected", err)
	}
	if n == 0 {
		return domain.NotFoundError{Resource: resource}
	}
	return nil
}
