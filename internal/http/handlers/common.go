package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"busticket/internal/domain"
	"busticket/internal/http/middleware"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler carries the services every endpoint needs.
type Handler struct {
	DB         *sql.DB
	Auth       services.AuthService
	Bookings   services.BookingService
	Search     services.SearchService
	Operators  services.OperatorService
	Admin      services.AdminService
	Reviews    services.ReviewService
	Docs       services.DocsService
	CookieName string
	// SecureCookie marks the auth cookie Secure (HTTPS only).
	SecureCookie bool
}

// respondOK sends {"success": true} merged with payload.
func respondOK(c *gin.Context, status int, payload gin.H) {
	out := gin.H{"success": true}
	for k, v := range payload {
		out[k] = v
	}
	c.JSON(status, out)
}

// bindJSON ensures body is present and parsable.
func bindJSON[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "request body is required")
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(c.Query(name)), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func pagination(c *gin.Context) domain.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return domain.Pagination{Page: page, PageSize: size}.Normalize()
}

// caller returns the authenticated user set by RequireAuth.
func caller(c *gin.Context) (domain.RequestContext, bool) {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthenticated", domain.ErrUnauthenticated.Error())
	}
	return rc, ok
}
