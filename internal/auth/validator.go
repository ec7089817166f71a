package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

// SessionStore resolves a token digest to its session and owning user.
// A missing row must be reported as domain.NotFoundError.
type SessionStore interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (models.Session, models.User, error)
}

// Validator is the authentication gate: token present, signature and expiry
// valid, session row live. It never writes.
type Validator struct {
	Issuer     *Issuer
	Sessions   SessionStore
	CookieName string
	Now        func() time.Time
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Authenticate runs the full check for r.
func (v Validator) Authenticate(ctx context.Context, r *http.Request) (domain.RequestContext, error) {
	token := ExtractToken(r, v.CookieName)
	if token == "" {
		return domain.RequestContext{}, domain.ErrUnauthenticated
	}
	return v.AuthenticateToken(ctx, token)
}

// AuthenticateToken validates an already extracted token.
func (v Validator) AuthenticateToken(ctx context.Context, token string) (domain.RequestContext, error) {
	claims, err := v.Issuer.Parse(token)
	if err != nil {
		return domain.RequestContext{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	sess, user, err := v.Sessions.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.RequestContext{}, domain.ErrSessionExpired
		}
		return domain.RequestContext{}, err
	}
	if sess.Expired(v.now()) {
		return domain.RequestContext{}, domain.ErrSessionExpired
	}
	if sess.UserID != claims.UserID {
		return domain.RequestContext{}, domain.ErrInvalidToken
	}
	if user.Status == models.UserStatusSuspended {
		return domain.RequestContext{}, fmt.Errorf("%w: account suspended", domain.ErrForbidden)
	}

	return domain.RequestContext{UserID: domain.ID(user.ID), Role: user.Role}, nil
}
