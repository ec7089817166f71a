package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type ReviewRepository struct {
	DB intdb.DBTX
}

func (r ReviewRepository) Create(ctx context.Context, rv models.Review) (int64, error) {
	var target any
	if rv.TargetID != nil {
		target = *rv.TargetID
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (user_id, target_type, target_id, rating, comment, is_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rv.UserID, rv.TargetType, target, rv.Rating, rv.Comment, rv.IsApproved, time.Now().UTC())
	if err != nil {
		return 0, domain.Internal("create review", err)
	}
	return res.LastInsertId()
}

// ReviewFilter narrows List. ApprovedOnly is what the public listing uses.
type ReviewFilter struct {
	ApprovedOnly bool
	TargetType   string
	TargetID     int64
}

func (r ReviewRepository) List(ctx context.Context, f ReviewFilter, page domain.Pagination) ([]models.Review, error) {
	page = page.Normalize()
	where := []string{}
	args := []any{}
	if f.ApprovedOnly {
		where = append(where, "rv.is_approved = ?")
		args = append(args, true)
	}
	if f.TargetType != "" {
		where = append(where, "rv.target_type = ?")
		args = append(args, f.TargetType)
	}
	if f.TargetID > 0 {
		where = append(where, "rv.target_id = ?")
		args = append(args, f.TargetID)
	}
	query := `
		SELECT rv.id, rv.user_id, u.name, rv.target_type, rv.target_id, rv.rating,
		       COALESCE(rv.comment, ''), rv.is_approved, rv.created_at
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY rv.id DESC LIMIT ? OFFSET ?`
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal("list reviews", err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var (
			rv     models.Review
			target sql.NullInt64
		)
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.TargetType, &target, &rv.Rating,
			&rv.Comment, &rv.IsApproved, &rv.CreatedAt); err != nil {
			return nil, domain.Internal("scan review", err)
		}
		if target.Valid {
			id := target.Int64
			rv.TargetID = &id
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("iterate reviews", err)
	}
	return out, nil
}

func (r ReviewRepository) SetApproved(ctx context.Context, id int64, approved bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE reviews SET is_approved = ? WHERE id = ?`, approved, id)
	if err != nil {
		return domain.Internal("approve review", err)
	}
	return requireAffected(res, "review")
}

func (r ReviewRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("delete review", err)
	}
	return requireAffected(res, "review")
}
