package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

// AdminService backs the admin API: moderation, routes and the cascading
// deletes.
type AdminService struct {
	DB *sql.DB
}

// Dashboard is the admin overview.
type Dashboard struct {
	UsersByRole       map[string]int64          `json:"users_by_role"`
	OperatorsByStatus map[string]int64          `json:"operators_by_status"`
	Bookings          repositories.BookingStats `json:"bookings"`
}

func (s AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	users, err := repositories.UserRepository{DB: s.DB}.CountByRole(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	ops, err := repositories.OperatorRepository{DB: s.DB}.CountByVerification(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	stats, err := repositories.BookingRepository{DB: s.DB}.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{UsersByRole: users, OperatorsByStatus: ops, Bookings: stats}, nil
}

// ===== Users =====

func (s AdminService) ListUsers(ctx context.Context, role, q string, page domain.Pagination) ([]models.User, error) {
	return repositories.UserRepository{DB: s.DB}.List(ctx, strings.ToLower(strings.TrimSpace(role)), strings.TrimSpace(q), page)
}

func (s AdminService) GetUser(ctx context.Context, id int64) (models.User, error) {
	return repositories.UserRepository{DB: s.DB}.GetByID(ctx, id)
}

// SetUserStatus activates or suspends an account. Suspension also ends
// every session of the user.
func (s AdminService) SetUserStatus(ctx context.Context, actor domain.RequestContext, id int64, status string) (models.User, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return models.User{}, domain.ValidationError{Field: "status", Msg: "status must be active or suspended"}
	}
	if int64(actor.UserID) == id && status == models.UserStatusSuspended {
		return models.User{}, domain.ValidationError{Field: "id", Msg: "cannot suspend your own account"}
	}

	var out models.User
	err := intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		users := repositories.UserRepository{DB: tx}
		if err := users.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		if status == models.UserStatusSuspended {
			if _, err := (repositories.SessionRepository{DB: tx}).DeleteByUser(ctx, id); err != nil {
				return err
			}
		}
		var err error
		out, err = users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	utils.LogEventCtx(ctx, "admin", "user_status", fmt.Sprintf("user_id=%d status=%s by=%d", id, status, actor.UserID))
	return out, nil
}

// DeleteUser removes a user and everything hanging off it in one
// transaction. Operator accounts take their operator (fleet, schedules and
// the bookings on them) along.
func (s AdminService) DeleteUser(ctx context.Context, actor domain.RequestContext, id int64) (models.CascadeReport, error) {
	if int64(actor.UserID) == id {
		return models.CascadeReport{}, domain.ValidationError{Field: "id", Msg: "cannot delete your own account"}
	}

	var rep models.CascadeReport
	err := intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		u, err := repositories.UserRepository{DB: tx}.GetByID(ctx, id)
		if err != nil {
			return err
		}
		cascade := repositories.CascadeRepository{DB: tx}
		if u.Role == domain.RoleOperator {
			op, err := repositories.OperatorRepository{DB: tx}.GetByUserID(ctx, id)
			switch {
			case err == nil:
				opRep, err := cascade.DeleteOperator(ctx, op.ID)
				if err != nil {
					return err
				}
				rep = repositories.Merge(rep, opRep)
			case !domain.IsNotFound(err):
				return err
			}
		}
		userRep, err := cascade.DeleteUser(ctx, id)
		if err != nil {
			return err
		}
		rep = repositories.Merge(rep, userRep)
		return nil
	})
	if err != nil {
		return models.CascadeReport{}, err
	}
	utils.LogEventCtx(ctx, "admin", "delete_user", fmt.Sprintf("user_id=%d by=%d report=%+v", id, actor.UserID, rep))
	return rep, nil
}

// ===== Operators =====

func (s AdminService) ListOperators(ctx context.Context, verification string, page domain.Pagination) ([]models.Operator, error) {
	return repositories.OperatorRepository{DB: s.DB}.List(ctx, strings.ToLower(strings.TrimSpace(verification)), page)
}

func (s AdminService) GetOperator(ctx context.Context, id int64) (models.Operator, error) {
	return repositories.OperatorRepository{DB: s.DB}.GetByID(ctx, id)
}

func (s AdminService) SetOperatorVerification(ctx context.Context, id int64, status string) (models.Operator, error) {
	ops := repositories.OperatorRepository{DB: s.DB}
	if err := ops.SetVerification(ctx, id, status); err != nil {
		return models.Operator{}, err
	}
	utils.LogEventCtx(ctx, "admin", "operator_verification", fmt.Sprintf("operator_id=%d status=%s", id, status))
	return ops.GetByID(ctx, id)
}

func (s AdminService) SetOperatorActivity(ctx context.Context, id int64, status string) (models.Operator, error) {
	ops := repositories.OperatorRepository{DB: s.DB}
	if err := ops.SetActivity(ctx, id, status); err != nil {
		return models.Operator{}, err
	}
	utils.LogEventCtx(ctx, "admin", "operator_activity", fmt.Sprintf("operator_id=%d status=%s", id, status))
	return ops.GetByID(ctx, id)
}

// DeleteOperator cascades through the operator's fleet and then removes the
// owning user account.
func (s AdminService) DeleteOperator(ctx context.Context, actor domain.RequestContext, id int64) (models.CascadeReport, error) {
	var rep models.CascadeReport
	err := intdb.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx intdb.DBTX) error {
		op, err := repositories.OperatorRepository{DB: tx}.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if op.UserID == int64(actor.UserID) {
			return domain.ValidationError{Field: "id", Msg: "cannot delete your own account"}
		}
		cascade := repositories.CascadeRepository{DB: tx}
		opRep, err := cascade.DeleteOperator(ctx, id)
		if err != nil {
			return err
		}
		userRep, err := cascade.DeleteUser(ctx, op.UserID)
		if err != nil {
			return err
		}
		rep = repositories.Merge(opRep, userRep)
		return nil
	})
	if err != nil {
		return models.CascadeReport{}, err
	}
	utils.LogEventCtx(ctx, "admin", "delete_operator", fmt.Sprintf("operator_id=%d by=%d report=%+v", id, actor.UserID, rep))
	return rep, nil
}

// ===== Routes =====

func validateRoute(p models.RoutePayload) (models.RoutePayload, error) {
	p.Origin = utils.NormalizeSpace(p.Origin)
	p.Destination = utils.NormalizeSpace(p.Destination)
	if p.Origin == "" {
		return p, domain.ValidationError{Field: "origin", Msg: "origin is required"}
	}
	if p.Destination == "" {
		return p, domain.ValidationError{Field: "destination", Msg: "destination is required"}
	}
	if strings.EqualFold(p.Origin, p.Destination) {
		return p, domain.ValidationError{Field: "destination", Msg: "origin and destination must differ"}
	}
	if p.DistanceKM < 0 || p.EstimatedMinutes < 0 {
		return p, domain.ValidationError{Field: "distance_km", Msg: "distance and duration cannot be negative"}
	}
	return p, nil
}

func (s AdminService) CreateRoute(ctx context.Context, p models.RoutePayload) (models.Route, error) {
	p, err := validateRoute(p)
	if err != nil {
		return models.Route{}, err
	}
	routes := repositories.RouteRepository{DB: s.DB}
	id, err := routes.Create(ctx, models.Route{
		Origin:           p.Origin,
		Destination:      p.Destination,
		DistanceKM:       p.DistanceKM,
		EstimatedMinutes: p.EstimatedMinutes,
	})
	if err != nil {
		return models.Route{}, err
	}
	utils.LogEventCtx(ctx, "admin", "create_route", fmt.Sprintf("route_id=%d %s->%s", id, p.Origin, p.Destination))
	return routes.GetByID(ctx, id)
}

func (s AdminService) UpdateRoute(ctx context.Context, id int64, p models.RoutePayload) (models.Route, error) {
	p, err := validateRoute(p)
	if err != nil {
		return models.Route{}, err
	}
	routes := repositories.RouteRepository{DB: s.DB}
	if err := routes.Update(ctx, models.Route{
		ID:               id,
		Origin:           p.Origin,
		Destination:      p.Destination,
		DistanceKM:       p.DistanceKM,
		EstimatedMinutes: p.EstimatedMinutes,
	}); err != nil {
		return models.Route{}, err
	}
	return routes.GetByID(ctx, id)
}

func (s AdminService) DeleteRoute(ctx context.Context, id int64) error {
	if err := (repositories.RouteRepository{DB: s.DB}).Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEventCtx(ctx, "admin", "delete_route", fmt.Sprintf("route_id=%d", id))
	return nil
}
