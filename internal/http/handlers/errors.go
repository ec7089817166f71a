package handlers

import (
	"errors"
	"log"
	"net/http"

	"busticket/internal/domain"
	"busticket/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	middleware.AbortWithError(c, status, code, message)
}

// RespondDomainError maps domain errors to HTTP responses. Internal errors
// are logged with their cause and answered with a generic message.
func RespondDomainError(c *gin.Context, err error) {
	var (
		notFound domain.NotFoundError
		seats    domain.InsufficientSeatsError
		window   domain.CancellationWindowClosedError
		conflict domain.ConflictError
		invalid  domain.ValidationError
	)
	switch {
	case errors.As(err, &invalid):
		respondError(c, http.StatusBadRequest, "validation_error", invalid.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid_credentials", domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "unauthenticated", domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, "invalid_token", domain.ErrInvalidToken.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		respondError(c, http.StatusUnauthorized, "session_expired", domain.ErrSessionExpired.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.As(err, &seats):
		respondError(c, http.StatusConflict, "insufficient_seats", seats.Error())
	case errors.As(err, &window):
		respondError(c, http.StatusConflict, "cancellation_window_closed", window.Error())
	case errors.As(err, &notFound):
		code := "not_found"
		if notFound.Resource == "schedule" {
			code = "schedule_not_found"
		}
		respondError(c, http.StatusNotFound, code, notFound.Error())
	case errors.As(err, &conflict):
		respondError(c, http.StatusConflict, "conflict", conflict.Error())
	default:
		log.Printf("[ERROR] request_id=%s path=%s error=%v", middleware.GetRequestID(c), c.Request.URL.Path, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
