package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type RouteRepository struct {
	DB intdb.DBTX
}

const routeColumns = `id, origin, destination, distance_km, estimated_minutes, created_at`

func scanRoute(row interface{ Scan(...any) error }) (models.Route, error) {
	var rt models.Route
	err := row.Scan(&rt.ID, &rt.Origin, &rt.Destination, &rt.DistanceKM, &rt.EstimatedMinutes, &rt.CreatedAt)
	return rt, err
}

func routeConflict(err error) error {
	return domain.ConflictError{Resource: "route", Msg: "route already exists", Err: err}
}

func (r RouteRepository) Create(ctx context.Context, rt models.Route) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO routes (origin, destination, distance_km, estimated_minutes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rt.Origin, rt.Destination, rt.DistanceKM, rt.EstimatedMinutes, time.Now().UTC())
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, routeConflict(err)
		}
		return 0, domain.Internal("create route", err)
	}
	return res.LastInsertId()
}

func (r RouteRepository) GetByID(ctx context.Context, id int64) (models.Route, error) {
	rt, err := scanRoute(r.DB.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Route{}, domain.NotFoundError{Resource: "route", Err: err}
		}
		return models.Route{}, domain.Internal("get route", err)
	}
	return rt, nil
}

func (r RouteRepository) List(ctx context.Context) ([]models.Route, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY origin, destination`)
	if err != nil {
		return nil, domain.Internal("list routes", err)
	}
	defer rows.Close()

	out := []models.Route{}
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, domain.Internal("scan route", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate routes", err)
	}
	return out, nil
}

func (r RouteRepository) Update(ctx context.Context, rt models.Route) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE routes SET origin = ?, destination = ?, distance_km = ?, estimated_minutes = ? WHERE id = ?
	`, rt.Origin, rt.Destination, rt.DistanceKM, rt.EstimatedMinutes, rt.ID)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return routeConflict(err)
		}
		return domain.Internal("update route", err)
	}
	return requireAffected(res, "route")
}

// Delete refuses routes still referenced by schedules.
func (r RouteRepository) Delete(ctx context.Context, id int64) error {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE route_id = ?`, id).Scan(&n); err != nil {
		return domain.Internal("count route schedules", err)
	}
	if n > 0 {
		return domain.ConflictError{Resource: "route", Msg: "route is used by existing schedules"}
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("delete route", err)
	}
	return requireAffected(res, "route")
}
