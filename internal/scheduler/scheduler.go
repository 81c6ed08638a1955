package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
)

const (
	timeoutDuration = 5 * time.Minute

	jobDispatch = "dispatch"
	jobCleanup  = "token_cleanup"
)

type newsletterDispatcher interface {
	DispatchDue(ctx context.Context) error
}

type tokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the background jobs: broadcasting due scheduled
// newsletters and purging expired verification tokens.
type Scheduler struct {
	newsletters  newsletterDispatcher
	tokens       tokenPurger
	logger       zerolog.Logger
	cron         *cron.Cron
	cancel       context.CancelFunc
	m            *metrics.Metrics
	dispatchSpec string
	cleanupSpec  string
}

func New(
	newsletters newsletterDispatcher,
	tokens tokenPurger,
	logger zerolog.Logger,
	dispatchSpec, cleanupSpec string,
	m *metrics.Metrics,
) *Scheduler {
	logger = logger.With().Str("component", "Scheduler").Logger()
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		newsletters:  newsletters,
		tokens:       tokens,
		logger:       logger,
		cron:         c,
		m:            m,
		dispatchSpec: dispatchSpec,
		cleanupSpec:  cleanupSpec,
	}
}

// Start schedules the dispatch and cleanup jobs.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if _, err := s.cron.AddFunc(s.dispatchSpec, func() { s.RunDispatch(ctx) }); err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule dispatch job")
		s.m.TechnicalErrors.WithLabelValues("cron_schedule_error", "critical").Inc()
		return
	}

	if _, err := s.cron.AddFunc(s.cleanupSpec, func() { s.RunCleanup(ctx) }); err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule cleanup job")
		s.m.TechnicalErrors.WithLabelValues("cron_schedule_error", "critical").Inc()
		return
	}

	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop cancels all scheduled jobs and waits for completion.
func (s *Scheduler) Stop() {
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("All cron jobs finished, scheduler stopped")
}

// RunDispatch broadcasts every scheduled newsletter whose send time has
// passed.
func (s *Scheduler) RunDispatch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()

	s.m.CronJob(jobDispatch, func() {
		if err := s.newsletters.DispatchDue(ctx); err != nil {
			s.logger.Error().Err(err).Msg("dispatch run failed")
			s.m.TechnicalErrors.WithLabelValues("dispatch_error", "critical").Inc()
		}
	})
}

// RunCleanup purges expired verification tokens.
func (s *Scheduler) RunCleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()

	s.m.CronJob(jobCleanup, func() {
		purged, err := s.tokens.PurgeExpired(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("token cleanup failed")
			s.m.TechnicalErrors.WithLabelValues("cleanup_error", "medium").Inc()
			return
		}
		s.logger.Info().Int64("purged", purged).Msg("expired tokens purged")
	})
}
