package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type SessionRepository struct {
	DB intdb.DBTX
}

func (r SessionRepository) Create(ctx context.Context, s models.Session) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.UserID, s.TokenHash, s.ExpiresAt.UTC(), s.IPAddress, truncate(s.UserAgent, 255), time.Now().UTC())
	if err != nil {
		return domain.Internal("create session", err)
	}
	return nil
}

// FindByTokenHash loads the session and its user in one query.
func (r SessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (models.Session, models.User, error) {
	var (
		s models.Session
		u models.User
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.ip_address, s.user_agent, s.created_at,
		       u.id, u.name, u.email, u.role, u.status
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`, tokenHash).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.CreatedAt,
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, u, domain.NotFoundError{Resource: "session", Err: err}
		}
		return s, u, domain.Internal("find session", err)
	}
	return s, u, nil
}

func (r SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
}

// DeleteOtherSessions removes every session of userID except keepHash.
func (r SessionRepository) DeleteOtherSessions(ctx context.Context, userID int64, keepHash string) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE user_id = ? AND token_hash <> ?`, userID, keepHash)
}

func (r SessionRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
}

func (r SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
}

func (r SessionRepository) delete(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domain.Internal("delete sessions", err)
	}
	return res.RowsAffected()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
