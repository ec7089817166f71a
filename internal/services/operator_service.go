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
)

// OperatorService is the operator-facing surface: profile, fleet,
// schedules and the bookings made on them. Writes require a verified,
// active operator.
type OperatorService struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s OperatorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Profile returns the operator owned by userID.
func (s OperatorService) Profile(ctx context.Context, userID int64) (models.Operator, error) {
	return repositories.OperatorRepository{DB: s.DB}.GetByUserID(ctx, userID)
}

func (s OperatorService) requireActive(ctx context.Context, userID int64) (models.Operator, error) {
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Operator{}, err
	}
	if !op.CanOperate() {
		return models.Operator{}, fmt.Errorf("%w: operator is %s/%s", domain.ErrForbidden, op.VerificationStatus, op.ActivityStatus)
	}
	return op, nil
}

func (s OperatorService) UpdateProfile(ctx context.Context, userID int64, companyName, contactPhone string) (models.Operator, error) {
	companyName = utils.NormalizeSpace(companyName)
	if companyName == "" {
		return models.Operator{}, domain.ValidationError{Field: "company_name", Msg: "company_name is required"}
	}
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Operator{}, err
	}
	ops := repositories.OperatorRepository{DB: s.DB}
	if err := ops.UpdateProfile(ctx, op.ID, companyName, contactPhone); err != nil {
		return models.Operator{}, err
	}
	return ops.GetByID(ctx, op.ID)
}

// ===== Buses =====

var busStatuses = map[string]bool{
	models.BusStatusActive:      true,
	models.BusStatusMaintenance: true,
	models.BusStatusRetired:     true,
}

func validateBus(p models.BusPayload) (models.BusPayload, error) {
	p.PlateNumber = utils.NormalizePlate(p.PlateNumber)
	p.Model = utils.NormalizeSpace(p.Model)
	p.Amenities = strings.TrimSpace(p.Amenities)
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	if p.Status == "" {
		p.Status = models.BusStatusActive
	}
	if p.PlateNumber == "" {
		return p, domain.ValidationError{Field: "plate_number", Msg: "plate_number is required"}
	}
	if p.Capacity < 1 || p.Capacity > models.MaxBusCapacity {
		return p, domain.ValidationError{Field: "capacity", Msg: fmt.Sprintf("capacity must be between 1 and %d", models.MaxBusCapacity)}
	}
	if !busStatuses[p.Status] {
		return p, domain.ValidationError{Field: "status", Msg: "invalid bus status"}
	}
	return p, nil
}

func (s OperatorService) ListBuses(ctx context.Context, userID int64) ([]models.Bus, error) {
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return repositories.BusRepository{DB: s.DB}.ListByOperator(ctx, op.ID)
}

func (s OperatorService) GetBus(ctx context.Context, userID, busID int64) (models.Bus, error) {
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Bus{}, err
	}
	return s.ownBus(ctx, s.DB, op.ID, busID)
}

func (s OperatorService) ownBus(ctx context.Context, db intdb.DBTX, operatorID, busID int64) (models.Bus, error) {
	b, err := repositories.BusRepository{DB: db}.GetByID(ctx, busID)
	if err != nil {
		return models.Bus{}, err
	}
	if b.OperatorID != operatorID {
		return models.Bus{}, domain.NotFoundError{Resource: "bus"}
	}
	return b, nil
}

func (s OperatorService) CreateBus(ctx context.Context, userID int64, p models.BusPayload) (models.Bus, error) {
	p, err := validateBus(p)
	if err != nil {
		return models.Bus{}, err
	}
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return models.Bus{}, err
	}
	buses := repositories.BusRepository{DB: s.DB}
	id, err := buses.Create(ctx, models.Bus{
		OperatorID:  op.ID,
		PlateNumber: p.PlateNumber,
		Model:       p.Model,
		Capacity:    p.Capacity,
		Amenities:   p.Amenities,
		Status:      p.Status,
	})
	if err != nil {
		return models.Bus{}, err
	}
	utils.LogEventCtx(ctx, "operator", "create_bus", fmt.Sprintf("operator_id=%d bus_id=%d plate=%s", op.ID, id, p.PlateNumber))
	return buses.GetByID(ctx, id)
}

func (s OperatorService) UpdateBus(ctx context.Context, userID, busID int64, p models.BusPayload) (models.Bus, error) {
	p, err := validateBus(p)
	if err != nil {
		return models.Bus{}, err
	}
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return models.Bus{}, err
	}
	buses := repositories.BusRepository{DB: s.DB}
	err = buses.Update(ctx, models.Bus{
		ID:          busID,
		OperatorID:  op.ID,
		PlateNumber: p.PlateNumber,
		Model:       p.Model,
		Capacity:    p.Capacity,
		Amenities:   p.Amenities,
		Status:      p.Status,
	})
	if err != nil {
		return models.Bus{}, err
	}
	return buses.GetByID(ctx, busID)
}

// DeleteBus refuses buses that still have schedules.
func (s OperatorService) DeleteBus(ctx context.Context, userID, busID int64) error {
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return err
	}
	return intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		if _, err := s.ownBus(ctx, tx, op.ID, busID); err != nil {
			return err
		}
		buses := repositories.BusRepository{DB: tx}
		n, err := buses.CountSchedules(ctx, busID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictError{Resource: "bus", Msg: "bus has schedules; cancel or delete them first"}
		}
		if err := buses.Delete(ctx, busID, op.ID); err != nil {
			return err
		}
		utils.LogEventCtx(ctx, "operator", "delete_bus", fmt.Sprintf("operator_id=%d bus_id=%d", op.ID, busID))
		return nil
	})
}

// ===== Schedules =====

var scheduleStatuses = map[string]bool{
	models.ScheduleScheduled: true,
	models.ScheduleDeparted:  true,
	models.ScheduleCompleted: true,
	models.ScheduleCancelled: true,
}

func validateSchedule(p models.SchedulePayload) (models.SchedulePayload, error) {
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	if p.Status == "" {
		p.Status = models.ScheduleScheduled
	}
	if p.RouteID <= 0 {
		return p, domain.ValidationError{Field: "route_id", Msg: "route_id is required"}
	}
	if p.DepartureTime.IsZero() || p.ArrivalTime.IsZero() {
		return p, domain.ValidationError{Field: "departure_time", Msg: "departure_time and arrival_time are required"}
	}
	if !p.ArrivalTime.After(p.DepartureTime) {
		return p, domain.ValidationError{Field: "arrival_time", Msg: "arrival_time must be after departure_time"}
	}
	if p.Price <= 0 {
		return p, domain.ValidationError{Field: "price", Msg: "price must be positive"}
	}
	if !scheduleStatuses[p.Status] {
		return p, domain.ValidationError{Field: "status", Msg: "invalid schedule status"}
	}
	return p, nil
}

func (s OperatorService) ListSchedules(ctx context.Context, userID int64) ([]models.ScheduleSummary, error) {
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return repositories.ScheduleRepository{DB: s.DB}.ListByOperator(ctx, op.ID)
}

func (s OperatorService) GetSchedule(ctx context.Context, userID, scheduleID int64) (models.ScheduleSummary, error) {
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	return s.ownSchedule(ctx, s.DB, op.ID, scheduleID)
}

func (s OperatorService) ownSchedule(ctx context.Context, db intdb.DBTX, operatorID, scheduleID int64) (models.ScheduleSummary, error) {
	sum, err := repositories.ScheduleRepository{DB: db}.GetSummary(ctx, scheduleID)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	if sum.OperatorID != operatorID {
		return models.ScheduleSummary{}, domain.ScheduleNotFound(nil)
	}
	return sum, nil
}

// CreateSchedule opens a departure on one of the operator's active buses.
// Seat inventory starts at the bus capacity.
func (s OperatorService) CreateSchedule(ctx context.Context, userID int64, p models.SchedulePayload) (models.ScheduleSummary, error) {
	p, err := validateSchedule(p)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	if p.Status != models.ScheduleScheduled {
		return models.ScheduleSummary{}, domain.ValidationError{Field: "status", Msg: "new schedules start as scheduled"}
	}
	if !p.DepartureTime.After(s.now()) {
		return models.ScheduleSummary{}, domain.ValidationError{Field: "departure_time", Msg: "departure_time must be in the future"}
	}
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return models.ScheduleSummary{}, err
	}

	bus, err := s.ownBus(ctx, s.DB, op.ID, p.BusID)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	if bus.Status != models.BusStatusActive {
		return models.ScheduleSummary{}, domain.ValidationError{Field: "bus_id", Msg: "bus is not active"}
	}
	if _, err := (repositories.RouteRepository{DB: s.DB}).GetByID(ctx, p.RouteID); err != nil {
		return models.ScheduleSummary{}, err
	}

	schedules := repositories.ScheduleRepository{DB: s.DB}
	id, err := schedules.Create(ctx, models.Schedule{
		BusID:          bus.ID,
		RouteID:        p.RouteID,
		DepartureTime:  p.DepartureTime,
		ArrivalTime:    p.ArrivalTime,
		Price:          p.Price,
		TotalSeats:     bus.Capacity,
		AvailableSeats: bus.Capacity,
		Status:         models.ScheduleScheduled,
	})
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	utils.LogEventCtx(ctx, "operator", "create_schedule", fmt.Sprintf("operator_id=%d schedule_id=%d bus_id=%d seats=%d",
		op.ID, id, bus.ID, bus.Capacity))
	return schedules.GetSummary(ctx, id)
}

// UpdateSchedule changes route, timing, price or status. The bus and the
// seat counts stay fixed once created.
func (s OperatorService) UpdateSchedule(ctx context.Context, userID, scheduleID int64, p models.SchedulePayload) (models.ScheduleSummary, error) {
	p, err := validateSchedule(p)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return models.ScheduleSummary{}, err
	}

	err = intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		cur, err := s.ownSchedule(ctx, tx, op.ID, scheduleID)
		if err != nil {
			return err
		}
		if p.BusID != 0 && p.BusID != cur.BusID {
			return domain.ValidationError{Field: "bus_id", Msg: "bus cannot be changed; create a new schedule instead"}
		}
		if _, err := (repositories.RouteRepository{DB: tx}).GetByID(ctx, p.RouteID); err != nil {
			return err
		}
		return repositories.ScheduleRepository{DB: tx}.Update(ctx, models.Schedule{
			ID:            scheduleID,
			RouteID:       p.RouteID,
			DepartureTime: p.DepartureTime,
			ArrivalTime:   p.ArrivalTime,
			Price:         p.Price,
			Status:        p.Status,
		})
	})
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	utils.LogEventCtx(ctx, "operator", "update_schedule", fmt.Sprintf("operator_id=%d schedule_id=%d status=%s", op.ID, scheduleID, p.Status))
	return repositories.ScheduleRepository{DB: s.DB}.GetSummary(ctx, scheduleID)
}

// DeleteSchedule refuses schedules with live bookings; cancel them instead.
func (s OperatorService) DeleteSchedule(ctx context.Context, userID, scheduleID int64) error {
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return err
	}
	return intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		if _, err := s.ownSchedule(ctx, tx, op.ID, scheduleID); err != nil {
			return err
		}
		schedules := repositories.ScheduleRepository{DB: tx}
		n, err := schedules.CountActiveBookings(ctx, scheduleID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictError{Resource: "schedule", Msg: fmt.Sprintf("schedule has %d active booking(s)", n)}
		}
		if _, err := (repositories.BookingRepository{DB: tx}).DeleteForSchedule(ctx, scheduleID); err != nil {
			return err
		}
		if err := schedules.Delete(ctx, scheduleID); err != nil {
			return err
		}
		utils.LogEventCtx(ctx, "operator", "delete_schedule", fmt.Sprintf("operator_id=%d schedule_id=%d", op.ID, scheduleID))
		return nil
	})
}

// ===== Bookings & boarding =====

func (s OperatorService) ListBookings(ctx context.Context, userID, scheduleID int64, status string, page domain.Pagination) ([]models.BookingDetail, error) {
	op, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return repositories.BookingRepository{DB: s.DB}.ListDetails(ctx, repositories.BookingFilter{
		OperatorID: op.ID,
		ScheduleID: scheduleID,
		Status:     status,
	}, page)
}

// TicketCheck is the boarding verdict for a scanned code.
type TicketCheck struct {
	Valid   bool                 `json:"valid"`
	Reason  string               `json:"reason,omitempty"`
	Booking models.BookingDetail `json:"booking"`
}

// VerifyTicket looks a QR code up for boarding on one of the operator's
// schedules.
func (s OperatorService) VerifyTicket(ctx context.Context, userID int64, code string) (TicketCheck, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return TicketCheck{}, domain.ValidationError{Field: "qr_code", Msg: "qr_code is required"}
	}
	op, err := s.requireActive(ctx, userID)
	if err != nil {
		return TicketCheck{}, err
	}
	t, err := repositories.TicketRepository{DB: s.DB}.GetByQRCode(ctx, code)
	if err != nil {
		return TicketCheck{}, err
	}
	d, err := repositories.BookingRepository{DB: s.DB}.GetDetail(ctx, t.BookingID)
	if err != nil {
		return TicketCheck{}, err
	}
	if _, err := s.ownSchedule(ctx, s.DB, op.ID, d.ScheduleID); err != nil {
		if domain.IsNotFound(err) {
			return TicketCheck{}, domain.NotFoundError{Resource: "ticket"}
		}
		return TicketCheck{}, err
	}

	check := TicketCheck{Valid: true, Booking: d}
	switch {
	case d.Status != models.BookingConfirmed:
		check.Valid, check.Reason = false, "booking is "+d.Status
	case d.PaymentStatus != models.PaymentCompleted && d.PaymentMethod != "cash":
		check.Valid, check.Reason = false, "payment is "+d.PaymentStatus
	}
	utils.LogEventCtx(ctx, "operator", "verify_ticket", fmt.Sprintf("operator_id=%d booking_id=%d valid=%t", op.ID, d.ID, check.Valid))
	return check, nil
}
