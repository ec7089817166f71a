package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"

	"busticket/internal/domain"

	"github.com/gin-gonic/gin"
)

const requestContextKey = "request_context"

// Authenticator resolves the caller of a request. auth.Validator
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (domain.RequestContext, error)
}

// RequireAuth rejects requests without a valid token and live session and
// stores the caller for later handlers.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, err := a.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			status, code, msg := authFailure(err)
			if status == http.StatusInternalServerError {
				log.Printf("[AUTH] request_id=%s error=%v", GetRequestID(c), err)
			}
			AbortWithError(c, status, code, msg)
			return
		}
		c.Set(requestContextKey, rc)
		c.Next()
	}
}

// RequireRoles allows only callers whose role is one of roles. It must run
// after RequireAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, ok := GetRequestContext(c)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, "unauthenticated", domain.ErrUnauthenticated.Error())
			return
		}
		if !slices.Contains(roles, rc.Role) {
			AbortWithError(c, http.StatusForbidden, "forbidden", domain.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}

// GetRequestContext returns the authenticated caller, if any.
func GetRequestContext(c *gin.Context) (domain.RequestContext, bool) {
	if c == nil {
		return domain.RequestContext{}, false
	}
	v, ok := c.Get(requestContextKey)
	if !ok {
		return domain.RequestContext{}, false
	}
	rc, ok := v.(domain.RequestContext)
	return rc, ok
}

func authFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", domain.ErrUnauthenticated.Error()
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", domain.ErrInvalidToken.Error()
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired", domain.ErrSessionExpired.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

// AbortWithError writes the standard error payload and stops the chain.
func AbortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"message":    message,
		"code":       code,
		"request_id": GetRequestID(c),
	})
}
