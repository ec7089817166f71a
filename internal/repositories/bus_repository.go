package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type BusRepository struct {
	DB intdb.DBTX
}

const busColumns = `id, operator_id, plate_number, model, capacity, amenities, status, created_at, updated_at`

func scanBus(row interface{ Scan(...any) error }) (models.Bus, error) {
	var b models.Bus
	err := row.Scan(&b.ID, &b.OperatorID, &b.PlateNumber, &b.Model, &b.Capacity, &b.Amenities, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func plateConflict(err error) error {
	return domain.ConflictError{Resource: "bus", Msg: "plate number already registered", Err: err}
}

func (r BusRepository) Create(ctx context.Context, b models.Bus) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO buses (operator_id, plate_number, model, capacity, amenities, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.OperatorID, strings.ToUpper(b.PlateNumber), b.Model, b.Capacity, b.Amenities, b.Status, now, now)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, plateConflict(err)
		}
		return 0, domain.Internal("create bus", err)
	}
	return res.LastInsertId()
}

func (r BusRepository) GetByID(ctx context.Context, id int64) (models.Bus, error) {
	b, err := scanBus(r.DB.QueryRowContext(ctx, `SELECT `+busColumns+` FROM buses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Bus{}, domain.NotFoundError{Resource: "bus", Err: err}
		}
		return models.Bus{}, domain.Internal("get bus", err)
	}
	return b, nil
}

func (r BusRepository) ListByOperator(ctx context.Context, operatorID int64) ([]models.Bus, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+busColumns+` FROM buses WHERE operator_id = ? ORDER BY id DESC`, operatorID)
	if err != nil {
		return nil, domain.Internal("list buses", err)
	}
	defer rows.Close()

	out := []models.Bus{}
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, domain.Internal("scan bus", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate buses", err)
	}
	return out, nil
}

// Update rewrites the mutable fields of a bus owned by b.OperatorID.
func (r BusRepository) Update(ctx context.Context, b models.Bus) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE buses
		SET plate_number = ?, model = ?, capacity = ?, amenities = ?, status = ?, updated_at = ?
		WHERE id = ? AND operator_id = ?
	`, strings.ToUpper(b.PlateNumber), b.Model, b.Capacity, b.Amenities, b.Status, time.Now().UTC(), b.ID, b.OperatorID)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return plateConflict(err)
		}
		return domain.Internal("update bus", err)
	}
	return requireAffected(res, "bus")
}

func (r BusRepository) Delete(ctx context.Context, id, operatorID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM buses WHERE id = ? AND operator_id = ?`, id, operatorID)
	if err != nil {
		return domain.Internal("delete bus", err)
	}
	return requireAffected(res, "bus")
}

// CountSchedules returns how many schedules reference the bus.
func (r BusRepository) CountSchedules(ctx context.Context, busID int64) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE bus_id = ?`, busID).Scan(&n); err != nil {
		return 0, domain.Internal("count bus schedules", err)
	}
	return n, nil
}
