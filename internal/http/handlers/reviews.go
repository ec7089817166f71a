package handlers

import (
	"net/http"
	"strings"

	"busticket/internal/domain/models"
	"busticket/internal/repositories"

	"github.com/gin-gonic/gin"
)

// GET /api/reviews
func (h *Handler) PublicReviews(c *gin.Context) {
	page := pagination(c)
	list, err := h.Reviews.ListPublic(c.Request.Context(),
		strings.ToLower(strings.TrimSpace(c.Query("target_type"))), queryInt64(c, "target_id"), page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"reviews": list, "page": page})
}

// POST /api/passenger/reviews
func (h *Handler) CreateReview(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req models.ReviewPayload
	if !bindJSON(c, &req) {
		return
	}
	rv, err := h.Reviews.Create(c.Request.Context(), int64(rc.UserID), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"message": "review submitted for approval", "review": rv})
}

// GET /api/admin/reviews
func (h *Handler) AdminReviews(c *gin.Context) {
	page := pagination(c)
	list, err := h.Reviews.ListAll(c.Request.Context(), repositories.ReviewFilter{
		ApprovedOnly: c.Query("approved") == "true",
		TargetType:   strings.ToLower(strings.TrimSpace(c.Query("target_type"))),
		TargetID:     queryInt64(c, "target_id"),
	}, page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"reviews": list, "page": page})
}

// PUT /api/admin/reviews/:id/approve
func (h *Handler) ApproveReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Reviews.Approve(c.Request.Context(), id, true); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "review approved"})
}

// DELETE /api/admin/reviews/:id
func (h *Handler) DeleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Reviews.Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "review deleted"})
}
