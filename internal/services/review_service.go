package services

import (
	"context"
	"fmt"
	"strings"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

const maxReviewComment = 2000

// ReviewService stores passenger reviews. New reviews wait for admin
// approval before they show up publicly.
type ReviewService struct {
	DB intdb.DBTX
}

func (s ReviewService) Create(ctx context.Context, userID int64, p models.ReviewPayload) (models.Review, error) {
	p.TargetType = strings.ToLower(strings.TrimSpace(p.TargetType))
	p.Comment = strings.TrimSpace(p.Comment)
	if p.Rating < 1 || p.Rating > 5 {
		return models.Review{}, domain.ValidationError{Field: "rating", Msg: "rating must be between 1 and 5"}
	}
	if len(p.Comment) > maxReviewComment {
		return models.Review{}, domain.ValidationError{Field: "comment", Msg: "comment is too long"}
	}

	switch p.TargetType {
	case models.ReviewTargetPlatform:
		p.TargetID = nil
	case models.ReviewTargetBus:
		if p.TargetID == nil {
			return models.Review{}, domain.ValidationError{Field: "target_id", Msg: "target_id is required"}
		}
		if _, err := (repositories.BusRepository{DB: s.DB}).GetByID(ctx, *p.TargetID); err != nil {
			return models.Review{}, err
		}
	case models.ReviewTargetOperator:
		if p.TargetID == nil {
			return models.Review{}, domain.ValidationError{Field: "target_id", Msg: "target_id is required"}
		}
		if _, err := (repositories.OperatorRepository{DB: s.DB}).GetByID(ctx, *p.TargetID); err != nil {
			return models.Review{}, err
		}
	default:
		return models.Review{}, domain.ValidationError{Field: "target_type", Msg: "target_type must be bus, operator or platform"}
	}

	rv := models.Review{
		UserID:     userID,
		TargetType: p.TargetType,
		TargetID:   p.TargetID,
		Rating:     p.Rating,
		Comment:    p.Comment,
	}
	id, err := repositories.ReviewRepository{DB: s.DB}.Create(ctx, rv)
	if err != nil {
		return models.Review{}, err
	}
	rv.ID = id
	utils.LogEventCtx(ctx, "review", "create", fmt.Sprintf("review_id=%d user_id=%d target=%s", id, userID, p.TargetType))
	return rv, nil
}

// ListPublic lists approved reviews only.
func (s ReviewService) ListPublic(ctx context.Context, targetType string, targetID int64, page domain.Pagination) ([]models.Review, error) {
	return repositories.ReviewRepository{DB: s.DB}.List(ctx, repositories.ReviewFilter{
		ApprovedOnly: true,
		TargetType:   targetType,
		TargetID:     targetID,
	}, page)
}

func (s ReviewService) ListAll(ctx context.Context, f repositories.ReviewFilter, page domain.Pagination) ([]models.Review, error) {
	return repositories.ReviewRepository{DB: s.DB}.List(ctx, f, page)
}

func (s ReviewService) Approve(ctx context.Context, id int64, approved bool) error {
	if err := (repositories.ReviewRepository{DB: s.DB}).SetApproved(ctx, id, approved); err != nil {
		return err
	}
	utils.LogEventCtx(ctx, "review", "approve", fmt.Sprintf("review_id=%d approved=%t", id, approved))
	return nil
}

func (s ReviewService) Delete(ctx context.Context, id int64) error {
	if err := (repositories.ReviewRepository{DB: s.DB}).Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEventCtx(ctx, "review", "delete", fmt.Sprintf("review_id=%d", id))
	return nil
}
