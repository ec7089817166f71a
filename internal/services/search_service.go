package services

import (
	"context"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

// SearchService answers public route searches.
type SearchService struct {
	DB  intdb.DBTX
	Now func() time.Time
}

type SearchQuery struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD, optional
}

// Search lists upcoming departures with free seats between two places.
// With a date only that day is searched; departures already gone are
// never returned.
func (s SearchService) Search(ctx context.Context, q SearchQuery) ([]models.ScheduleSummary, error) {
	q.Origin = utils.NormalizeSpace(q.Origin)
	q.Destination = utils.NormalizeSpace(q.Destination)
	if q.Origin == "" {
		return nil, domain.ValidationError{Field: "origin", Msg: "origin is required"}
	}
	if q.Destination == "" {
		return nil, domain.ValidationError{Field: "destination", Msg: "destination is required"}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	f := repositories.SearchFilter{Origin: q.Origin, Destination: q.Destination, From: now}
	if q.Date != "" {
		start, end, err := utils.DayBounds(q.Date)
		if err != nil {
			return nil, domain.ValidationError{Field: "date", Msg: "date must be YYYY-MM-DD", Err: err}
		}
		if start.After(now) {
			f.From = start
		}
		f.To = end
	}
	return repositories.ScheduleRepository{DB: s.DB}.Search(ctx, f)
}

func (s SearchService) Routes(ctx context.Context) ([]models.Route, error) {
	return repositories.RouteRepository{DB: s.DB}.List(ctx)
}
