package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/google/uuid"
)

// BookingService owns the seat-inventory transaction and the booking
// lifecycle that follows it (payment stub, cancellation).
type BookingService struct {
	DB                 *sql.DB
	CancellationWindow time.Duration
	Now                func() time.Time
	NewTicketCode      func() string
}

type CreateBookingInput struct {
	ScheduleID    int64
	NumberOfSeats int
	PaymentMethod string
}

type BookingResult struct {
	BookingID     int64  `json:"booking_id"`
	QRCode        string `json:"qr_code"`
	ScheduleID    int64  `json:"schedule_id"`
	NumberOfSeats int    `json:"number_of_seats"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s BookingService) window() time.Duration {
	if s.CancellationWindow > 0 {
		return s.CancellationWindow
	}
	return 24 * time.Hour
}

func (s BookingService) ticketCode() string {
	if s.NewTicketCode != nil {
		return s.NewTicketCode()
	}
	return NewTicketCode()
}

// NewTicketCode returns a fresh opaque QR identifier.
func NewTicketCode() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func validateBookingInput(in CreateBookingInput) error {
	if in.ScheduleID <= 0 {
		return domain.ValidationError{Field: "schedule_id", Msg: "schedule_id is required"}
	}
	if in.NumberOfSeats <= 0 {
		return domain.ValidationError{Field: "number_of_seats", Msg: "must be a positive integer"}
	}
	if in.NumberOfSeats > models.MaxSeatsPerBooking {
		return domain.ValidationError{Field: "number_of_seats", Msg: fmt.Sprintf("at most %d seats per booking", models.MaxSeatsPerBooking)}
	}
	if !models.PaymentMethods[in.PaymentMethod] {
		return domain.ValidationError{Field: "payment_method", Msg: "unsupported payment method"}
	}
	return nil
}

// CreateBooking reserves seats and writes booking, payment and ticket in one
// transaction. The seat decrement is a conditional update whose row count is
// checked, so concurrent requests can never take more seats than exist.
func (s BookingService) CreateBooking(ctx context.Context, userID int64, in CreateBookingInput) (BookingResult, error) {
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if err := validateBookingInput(in); err != nil {
		return BookingResult{}, err
	}

	var result BookingResult
	err := intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		schedules := repositories.ScheduleRepository{DB: tx}

		sched, err := schedules.GetByID(ctx, in.ScheduleID)
		if err != nil {
			return err
		}
		if !sched.Bookable(s.now()) {
			return domain.ScheduleNotFound(nil)
		}
		if sched.AvailableSeats < in.NumberOfSeats {
			return domain.InsufficientSeatsError{Requested: in.NumberOfSeats, Available: sched.AvailableSeats}
		}

		reserved, err := schedules.ReserveSeats(ctx, sched.ID, in.NumberOfSeats)
		if err != nil {
			return err
		}
		if !reserved {
			return domain.InsufficientSeatsError{Requested: in.NumberOfSeats, Available: -1}
		}

		amount, err := utils.MultiplyAmount(sched.Price, in.NumberOfSeats)
		if err != nil {
			return domain.ValidationError{Field: "number_of_seats", Msg: err.Error()}
		}

		bookingID, err := repositories.BookingRepository{DB: tx}.Create(ctx, models.Booking{
			UserID:        userID,
			ScheduleID:    sched.ID,
			NumberOfSeats: in.NumberOfSeats,
			TotalAmount:   amount,
			Status:        models.BookingConfirmed,
		})
		if err != nil {
			return err
		}

		if _, err := (repositories.PaymentRepository{DB: tx}).Create(ctx, models.Payment{
			BookingID: bookingID,
			Amount:    amount,
			Method:    in.PaymentMethod,
			Status:    models.PaymentPending,
		}); err != nil {
			return err
		}

		code := s.ticketCode()
		if _, err := (repositories.TicketRepository{DB: tx}).Create(ctx, models.Ticket{
			BookingID: bookingID,
			QRCode:    code,
			IssuedAt:  s.now(),
		}); err != nil {
			return err
		}

		result = BookingResult{
			BookingID:     bookingID,
			QRCode:        code,
			ScheduleID:    sched.ID,
			NumberOfSeats: in.NumberOfSeats,
			TotalAmount:   amount,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: models.PaymentPending,
			Status:        models.BookingConfirmed,
		}
		return nil
	})
	if err != nil {
		utils.LogEventCtx(ctx, "booking", "create", fmt.Sprintf("user_id=%d schedule_id=%d seats=%d failed: %v",
			userID, in.ScheduleID, in.NumberOfSeats, err))
		return BookingResult{}, err
	}

	utils.LogEventCtx(ctx, "booking", "create", fmt.Sprintf("booking_id=%d user_id=%d schedule_id=%d seats=%d",
		result.BookingID, userID, in.ScheduleID, in.NumberOfSeats))
	return result, nil
}

// CancelBooking cancels a confirmed booking owned by the actor (admins may
// cancel any booking) while departure is more than the cancellation window
// away. The reserved seats go back to the schedule and the payment is
// refunded or voided, all in one transaction.
func (s BookingService) CancelBooking(ctx context.Context, actor domain.RequestContext, bookingID int64) (models.Booking, error) {
	if bookingID <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "booking_id is required"}
	}

	var out models.Booking
	err := intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		bookings := repositories.BookingRepository{DB: tx}
		b, err := bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !canAccess(actor, b.UserID) {
			return domain.NotFoundError{Resource: "booking"}
		}
		if b.Status != models.BookingConfirmed {
			return domain.CancellationWindowClosedError{Msg: "only confirmed bookings can be cancelled"}
		}

		schedules := repositories.ScheduleRepository{DB: tx}
		sched, err := schedules.GetByID(ctx, b.ScheduleID)
		if err != nil {
			return err
		}
		now := s.now()
		if sched.DepartureTime.Sub(now) <= s.window() {
			return domain.CancellationWindowClosedError{
				Msg: fmt.Sprintf("bookings can only be cancelled more than %s before departure", humanDuration(s.window())),
			}
		}

		cancelled, err := bookings.MarkCancelled(ctx, b.ID, now)
		if err != nil {
			return err
		}
		if !cancelled {
			return domain.CancellationWindowClosedError{Msg: "booking is no longer confirmed"}
		}
		if err := schedules.ReleaseSeats(ctx, sched.ID, b.NumberOfSeats); err != nil {
			return err
		}

		payments := repositories.PaymentRepository{DB: tx}
		refunded, err := payments.Transition(ctx, b.ID, models.PaymentCompleted, models.PaymentRefunded, "")
		if err != nil {
			return err
		}
		if !refunded {
			if _, err := payments.Transition(ctx, b.ID, models.PaymentPending, models.PaymentCancelled, ""); err != nil {
				return err
			}
		}

		b.Status = models.BookingCancelled
		cancelledAt := now.UTC()
		b.CancelledAt = &cancelledAt
		out = b
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}

	utils.LogEventCtx(ctx, "booking", "cancel", fmt.Sprintf("booking_id=%d user_id=%d seats_released=%d",
		out.ID, actor.UserID, out.NumberOfSeats))
	return out, nil
}

// PayBooking is the payment stub: it settles the pending payment of a
// confirmed booking and records a generated transaction reference.
func (s BookingService) PayBooking(ctx context.Context, actor domain.RequestContext, bookingID int64) (models.Payment, error) {
	var out models.Payment
	err := intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		b, err := repositories.BookingRepository{DB: tx}.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !canAccess(actor, b.UserID) {
			return domain.NotFoundError{Resource: "booking"}
		}
		if b.Status != models.BookingConfirmed {
			return domain.ConflictError{Resource: "booking", Msg: "only confirmed bookings can be paid"}
		}

		payments := repositories.PaymentRepository{DB: tx}
		ref := "PAY-" + strings.ToUpper(uuid.NewString()[:18])
		ok, err := payments.Transition(ctx, b.ID, models.PaymentPending, models.PaymentCompleted, ref)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ConflictError{Resource: "payment", Msg: "payment is not pending"}
		}
		out, err = payments.GetByBookingID(ctx, b.ID)
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}
	utils.LogEventCtx(ctx, "payment", "complete", fmt.Sprintf("booking_id=%d ref=%s", bookingID, out.TransactionRef))
	return out, nil
}

// Get returns a booking with trip, payment and ticket details.
func (s BookingService) Get(ctx context.Context, actor domain.RequestContext, bookingID int64) (models.BookingDetail, error) {
	d, err := repositories.BookingRepository{DB: s.DB}.GetDetail(ctx, bookingID)
	if err != nil {
		return models.BookingDetail{}, err
	}
	if !canAccess(actor, d.UserID) {
		return models.BookingDetail{}, domain.NotFoundError{Resource: "booking"}
	}
	return d, nil
}

func (s BookingService) ListForUser(ctx context.Context, userID int64, status string, page domain.Pagination) ([]models.BookingDetail, error) {
	return repositories.BookingRepository{DB: s.DB}.ListDetails(ctx, repositories.BookingFilter{UserID: userID, Status: status}, page)
}

func (s BookingService) List(ctx context.Context, f repositories.BookingFilter, page domain.Pagination) ([]models.BookingDetail, error) {
	return repositories.BookingRepository{DB: s.DB}.ListDetails(ctx, f, page)
}

// canAccess allows the booking owner and admins.
func canAccess(actor domain.RequestContext, ownerID int64) bool {
	return actor.Role == domain.RoleAdmin || int64(actor.UserID) == ownerID
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
