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

type OperatorRepository struct {
	DB intdb.DBTX
}

const operatorSelect = `
	SELECT o.id, o.user_id, o.company_name, o.license_number, o.contact_phone,
	       o.verification_status, o.activity_status, u.email, o.created_at, o.updated_at
	FROM operators o
	JOIN users u ON u.id = o.user_id`

func scanOperator(row interface{ Scan(...any) error }) (models.Operator, error) {
	var o models.Operator
	err := row.Scan(&o.ID, &o.UserID, &o.CompanyName, &o.LicenseNumber, &o.ContactPhone,
		&o.VerificationStatus, &o.ActivityStatus, &o.OwnerEmail, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r OperatorRepository) Create(ctx context.Context, o models.Operator) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO operators (user_id, company_name, license_number, contact_phone,
		                       verification_status, activity_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.UserID, o.CompanyName, o.LicenseNumber, o.ContactPhone,
		models.VerificationPending, models.ActivityActive, now, now)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "operator", Msg: "license number already registered", Err: err}
		}
		return 0, domain.Internal("create operator", err)
	}
	return res.LastInsertId()
}

func (r OperatorRepository) GetByID(ctx context.Context, id int64) (models.Operator, error) {
	return r.getOne(ctx, operatorSelect+` WHERE o.id = ?`, id)
}

func (r OperatorRepository) GetByUserID(ctx context.Context, userID int64) (models.Operator, error) {
	return r.getOne(ctx, operatorSelect+` WHERE o.user_id = ?`, userID)
}

func (r OperatorRepository) getOne(ctx context.Context, query string, args ...any) (models.Operator, error) {
	o, err := scanOperator(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Operator{}, domain.NotFoundError{Resource: "operator", Err: err}
		}
		return models.Operator{}, domain.Internal("get operator", err)
	}
	return o, nil
}

// List filters by verification status when given.
func (r OperatorRepository) List(ctx context.Context, verification string, page domain.Pagination) ([]models.Operator, error) {
	page = page.Normalize()
	query := operatorSelect
	args := []any{}
	if verification != "" {
		query += ` WHERE o.verification_status = ?`
		args = append(args, verification)
	}
	query += ` ORDER BY o.id DESC LIMIT ? OFFSET ?`
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal("list operators", err)
	}
	defer rows.Close()

	out := []models.Operator{}
	for rows.Next() {
		o, err := scanOperator(rows)
		if err != nil {
			return nil, domain.Internal("scan operator", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate operators", err)
	}
	return out, nil
}

func (r OperatorRepository) UpdateProfile(ctx context.Context, id int64, companyName, contactPhone string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE operators SET company_name = ?, contact_phone = ?, updated_at = ? WHERE id = ?
	`, strings.TrimSpace(companyName), strings.TrimSpace(contactPhone), time.Now().UTC(), id)
	if err != nil {
		return domain.Internal("update operator", err)
	}
	return requireAffected(res, "operator")
}

func (r OperatorRepository) SetVerification(ctx context.Context, id int64, status string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE operators SET verification_status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return domain.Internal("update operator verification", err)
	}
	return requireAffected(res, "operator")
}

func (r OperatorRepository) SetActivity(ctx context.Context, id int64, status string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE operators SET activity_status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return domain.Internal("update operator activity", err)
	}
	return requireAffected(res, "operator")
}

// CountByVerification returns operator counts per verification status.
func (r OperatorRepository) CountByVerification(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT verification_status, COUNT(*) FROM operators GROUP BY verification_status`)
	if err != nil {
		return nil, domain.Internal("count operators", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.Internal("scan operator count", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
