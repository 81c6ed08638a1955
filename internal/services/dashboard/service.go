package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/models"
)

const weeksShown = 4

type subscriberCounter interface {
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

type deliveryStats interface {
	StatusCounts(ctx context.Context, newsletterID string) (map[string]int, error)
	StatusCountsBetween(ctx context.Context, from, to time.Time) (map[string]int, error)
}

// Service computes the admin dashboard figures from subscriber counts and
// the delivery log.
type Service struct {
	subs  subscriberCounter
	stats deliveryStats
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(subs subscriberCounter, stats deliveryStats, logger zerolog.Logger) *Service {
	return &Service{
		subs:  subs,
		stats: stats,
		log:   logger.With().Str("component", "DashboardService").Logger(),
		now:   time.Now,
	}
}

func (s *Service) Stats(ctx context.Context) (models.DashboardStats, error) {
	total, err := s.subs.CountAll(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}
	active, err := s.subs.CountByStatus(ctx, models.StatusConfirmed)
	if err != nil {
		return models.DashboardStats{}, err
	}

	counts, err := s.stats.StatusCounts(ctx, "")
	if err != nil {
		return models.DashboardStats{}, err
	}

	weekly, err := s.weeklySeries(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}

	return models.DashboardStats{
		SubscriberCount:   total,
		ActiveSubscribers: active,
		OpenRate:          rate(counts[models.EmailLogOpened], counts[models.EmailLogSent]),
		ClickRate:         rate(counts[models.EmailLogClicked], counts[models.EmailLogSent]),
		WeeklyStats:       weekly,
	}, nil
}

// weeklySeries builds the last four calendar weeks, oldest first.
func (s *Service) weeklySeries(ctx context.Context) ([]models.WeekStat, error) {
	now := s.now().UTC()
	series := make([]models.WeekStat, 0, weeksShown)

	for i := weeksShown; i >= 1; i-- {
		from := now.AddDate(0, 0, -7*i)
		to := now.AddDate(0, 0, -7*(i-1))

		newSubs, err := s.subs.CountCreatedBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		counts, err := s.stats.StatusCountsBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}

		series = append(series, models.WeekStat{
			Name:        fmt.Sprintf("Week %d", weeksShown-i+1),
			Subscribers: newSubs,
			Opens:       counts[models.EmailLogOpened],
			Clicks:      counts[models.EmailLogClicked],
		})
	}
	return series, nil
}

func rate(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return part * 100 / whole
}
