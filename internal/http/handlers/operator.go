package handlers

import (
	"net/http"
	"strings"

	"busticket/internal/domain/models"

	"github.com/gin-gonic/gin"
)

type operatorProfileRequest struct {
	CompanyName  string `json:"company_name" binding:"required"`
	ContactPhone string `json:"contact_phone"`
}

type verifyTicketRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}

// GET /api/operator/profile
func (h *Handler) OperatorProfile(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	op, err := h.Operators.Profile(c.Request.Context(), int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"operator": op})
}

// PUT /api/operator/profile
func (h *Handler) UpdateOperatorProfile(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req operatorProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	op, err := h.Operators.UpdateProfile(c.Request.Context(), int64(rc.UserID), req.CompanyName, req.ContactPhone)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"operator": op})
}

// ===== Buses =====

func (h *Handler) ListBuses(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.Operators.ListBuses(c.Request.Context(), int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"buses": list})
}

func (h *Handler) GetBus(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.Operators.GetBus(c.Request.Context(), int64(rc.UserID), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"bus": b})
}

func (h *Handler) CreateBus(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req models.BusPayload
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Operators.CreateBus(c.Request.Context(), int64(rc.UserID), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"bus": b})
}

func (h *Handler) UpdateBus(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.BusPayload
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Operators.UpdateBus(c.Request.Context(), int64(rc.UserID), id, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"bus": b})
}

func (h *Handler) DeleteBus(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Operators.DeleteBus(c.Request.Context(), int64(rc.UserID), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "bus deleted"})
}

// ===== Schedules =====

func (h *Handler) ListSchedules(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.Operators.ListSchedules(c.Request.Context(), int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedules": list})
}

func (h *Handler) GetSchedule(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.Operators.GetSchedule(c.Request.Context(), int64(rc.UserID), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req models.SchedulePayload
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.Operators.CreateSchedule(c.Request.Context(), int64(rc.UserID), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"schedule": s})
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.SchedulePayload
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.Operators.UpdateSchedule(c.Request.Context(), int64(rc.UserID), id, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Operators.DeleteSchedule(c.Request.Context(), int64(rc.UserID), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "schedule deleted"})
}

// ===== Bookings =====

// GET /api/operator/bookings?schedule_id=&status=
func (h *Handler) OperatorBookings(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	page := pagination(c)
	list, err := h.Operators.ListBookings(c.Request.Context(), int64(rc.UserID),
		queryInt64(c, "schedule_id"), strings.ToLower(strings.TrimSpace(c.Query("status"))), page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"bookings": list, "page": page})
}

// POST /api/operator/tickets/verify
func (h *Handler) VerifyTicket(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req verifyTicketRequest
	if !bindJSON(c, &req) {
		return
	}
	check, err := h.Operators.VerifyTicket(c.Request.Context(), int64(rc.UserID), req.QRCode)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"ticket": check})
}
