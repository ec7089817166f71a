package handlers

import (
	"net/http"
	"strings"

	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	ScheduleID    int64  `json:"schedule_id" binding:"required"`
	NumberOfSeats int    `json:"number_of_seats" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type cancelBookingRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// POST /api/bookings/create_booking
func (h *Handler) CreateBooking(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Bookings.CreateBooking(c.Request.Context(), int64(rc.UserID), services.CreateBookingInput{
		ScheduleID:    req.ScheduleID,
		NumberOfSeats: req.NumberOfSeats,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"message":        "booking confirmed",
		"booking_id":     res.BookingID,
		"qr_code":        res.QRCode,
		"total_amount":   res.TotalAmount,
		"payment_status": res.PaymentStatus,
		"booking":        res,
	})
}

// GET /api/passenger/bookings
func (h *Handler) MyBookings(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	page := pagination(c)
	list, err := h.Bookings.ListForUser(c.Request.Context(), int64(rc.UserID), status, page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"bookings": list, "page": page})
}

// GET /api/passenger/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.Bookings.Get(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"booking": d})
}

// POST /api/passenger/cancel_booking
func (h *Handler) CancelBooking(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Bookings.CancelBooking(c.Request.Context(), rc, req.BookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "booking cancelled", "booking": b})
}

// POST /api/passenger/bookings/:id/pay
func (h *Handler) PayBooking(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Bookings.PayBooking(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "payment completed", "payment": p})
}

// GET /api/passenger/bookings/:id/ticket.pdf
func (h *Handler) TicketPDF(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := h.Docs.TicketPDF(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
