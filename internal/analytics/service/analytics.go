package service

import (
	"context"
	"time"

	"booktable/internal/analytics/repository"
	"booktable/pkg/civil"
	"booktable/pkg/config"
	apperrors "booktable/pkg/errors"
	"booktable/pkg/model"
)

type AnalyticsService interface {
	// DailyStats reports confirmed bookings per booking date. A nil since
	// means one month back from now.
	DailyStats(ctx context.Context, since *civil.Date) ([]model.DailyStat, error)
}

type analyticsService struct {
	repo repository.AnalyticsRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewAnalyticsService(repo repository.AnalyticsRepository, cfg *config.Config) AnalyticsService {
	return &analyticsService{repo: repo, cfg: cfg, now: time.Now}
}

func (s *analyticsService) DailyStats(ctx context.Context, since *civil.Date) ([]model.DailyStat, error) {
	from := s.now().AddDate(0, -1, 0)
	if since != nil {
		from = time.Date(since.Year, since.Month, since.Day, 0, 0, 0, 0, time.UTC)
	}

	stats, err := s.repo.DailyStats(ctx, from)
	if err != nil {
		s.cfg.Log.Error("Failed to compute booking analytics", "since", from, "error", err)
		return nil, apperrors.Internal("Failed to compute booking analytics", err)
	}
	return stats, nil
}
