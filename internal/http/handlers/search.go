package handlers

import (
	"net/http"
	"strings"

	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/search_routes?origin=&destination=&date=
func (h *Handler) SearchRoutes(c *gin.Context) {
	q := services.SearchQuery{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Date:        strings.TrimSpace(c.Query("date")),
	}
	list, err := h.Search.Search(c.Request.Context(), q)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedules": list, "count": len(list)})
}

// GET /api/routes
func (h *Handler) ListRoutes(c *gin.Context) {
	list, err := h.Search.Routes(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"routes": list})
}
