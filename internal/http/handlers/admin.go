package handlers

import (
	"net/http"
	"strings"

	"busticket/internal/domain/models"
	"busticket/internal/repositories"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GET /api/admin/dashboard
func (h *Handler) AdminDashboard(c *gin.Context) {
	d, err := h.Admin.Dashboard(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"dashboard": d})
}

// ===== Users =====

func (h *Handler) AdminListUsers(c *gin.Context) {
	page := pagination(c)
	list, err := h.Admin.ListUsers(c.Request.Context(), c.Query("role"), c.Query("q"), page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"users": list, "page": page})
}

func (h *Handler) AdminGetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": u})
}

// PUT /api/admin/users/:id/status
func (h *Handler) AdminSetUserStatus(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Admin.SetUserStatus(c.Request.Context(), rc, id, req.Status)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": u})
}

// DELETE /api/admin/users/:id
func (h *Handler) AdminDeleteUser(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rep, err := h.Admin.DeleteUser(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "user deleted", "deleted": rep})
}

// ===== Operators =====

func (h *Handler) AdminListOperators(c *gin.Context) {
	page := pagination(c)
	list, err := h.Admin.ListOperators(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"operators": list, "page": page})
}

func (h *Handler) AdminGetOperator(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	op, err := h.Admin.GetOperator(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"operator": op})
}

// operatorVerification returns a handler that moves an operator to status.
func (h *Handler) operatorVerification(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		op, err := h.Admin.SetOperatorVerification(c.Request.Context(), id, status)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"operator": op})
	}
}

func (h *Handler) operatorActivity(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		op, err := h.Admin.SetOperatorActivity(c.Request.Context(), id, status)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"operator": op})
	}
}

func (h *Handler) AdminVerifyOperator() gin.HandlerFunc {
	return h.operatorVerification(models.VerificationVerified)
}

func (h *Handler) AdminRejectOperator() gin.HandlerFunc {
	return h.operatorVerification(models.VerificationRejected)
}

func (h *Handler) AdminSuspendOperator() gin.HandlerFunc {
	return h.operatorActivity(models.ActivitySuspended)
}

func (h *Handler) AdminActivateOperator() gin.HandlerFunc {
	return h.operatorActivity(models.ActivityActive)
}

// DELETE /api/admin/operators/:id
func (h *Handler) AdminDeleteOperator(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rep, err := h.Admin.DeleteOperator(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "operator deleted", "deleted": rep})
}

// ===== Routes =====

func (h *Handler) AdminCreateRoute(c *gin.Context) {
	var req models.RoutePayload
	if !bindJSON(c, &req) {
		return
	}
	rt, err := h.Admin.CreateRoute(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"route": rt})
}

func (h *Handler) AdminUpdateRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.RoutePayload
	if !bindJSON(c, &req) {
		return
	}
	rt, err := h.Admin.UpdateRoute(c.Request.Context(), id, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"route": rt})
}

func (h *Handler) AdminDeleteRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Admin.DeleteRoute(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "route deleted"})
}

// ===== Bookings =====

// GET /api/admin/bookings?user_id=&operator_id=&schedule_id=&status=
func (h *Handler) AdminBookings(c *gin.Context) {
	page := pagination(c)
	list, err := h.Bookings.List(c.Request.Context(), repositories.BookingFilter{
		UserID:     queryInt64(c, "user_id"),
		OperatorID: queryInt64(c, "operator_id"),
		ScheduleID: queryInt64(c, "schedule_id"),
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
	}, page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"bookings": list, "page": page})
}
