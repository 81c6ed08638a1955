package newsletters

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

var ErrNewsletterNotFound = errors.New("newsletter not found")

const contentTypeMarkdown = "markdown"

type newsletterRepository interface {
	Create(ctx context.Context, n models.Newsletter) error
	Get(ctx context.Context, id string) (models.Newsletter, bool, error)
	List(ctx context.Context, limit int) ([]models.Newsletter, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Newsletter, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id, status string, recipients, sent, failed int, sentAt time.Time) error
}

type audienceLister interface {
	ListAudience(ctx context.Context, audience string) ([]models.Subscriber, error)
}

type deliveryLogger interface {
	InsertEmail(ctx context.Context, entry models.EmailLog) error
}

type newsletterEmailer interface {
	SendNewsletter(toEmail, subject, htmlBody string) error
}

type contentRenderer interface {
	Render(content string) (string, error)
	Sanitize(html string) string
}

// Service creates newsletters and broadcasts them to their audience in
// fixed-size concurrent batches.
type Service struct {
	repo      newsletterRepository
	subs      audienceLister
	logs      deliveryLogger
	emailer   newsletterEmailer
	renderer  contentRenderer
	baseURL   string
	batchSize int
	log       zerolog.Logger
	m         *metrics.Metrics
}

func NewService(
	repo newsletterRepository,
	subs audienceLister,
	logs deliveryLogger,
	emailSvc newsletterEmailer,
	renderer contentRenderer,
	baseURL string,
	batchSize int,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		subs:      subs,
		logs:      logs,
		emailer:   emailSvc,
		renderer:  renderer,
		baseURL:   baseURL,
		batchSize: batchSize,
		log:       logger.With().Str("component", "NewsletterService").Logger(),
		m:         m,
	}
}

// Send creates the newsletter and either broadcasts it now or leaves it
// SCHEDULED for the dispatcher when scheduledFor lies in the future.
func (s *Service) Send(ctx context.Context, req models.SendNewsletterRequest, authorID string) (models.BroadcastReport, error) {
	html, err := s.renderContent(req)
	if err != nil {
		return models.BroadcastReport{}, err
	}

	now := time.Now().UTC()
	n := models.Newsletter{
		ID:           uuid.NewString(),
		Title:        req.Subject,
		Subject:      req.Subject,
		Content:      html,
		Status:       models.NewsletterSending,
		Audience:     req.Audience,
		ScheduledFor: req.ScheduledFor,
		CreatedAt:    now,
		AuthorID:     authorID,
	}

	if req.ScheduledFor != nil && req.ScheduledFor.After(now) {
		n.Status = models.NewsletterScheduled
		if err := s.repo.Create(ctx, n); err != nil {
			return models.BroadcastReport{}, err
		}
		s.log.Info().
			Str("newsletter", n.ID).
			Time("scheduled_for", *req.ScheduledFor).
			Msg("newsletter scheduled")
		return models.BroadcastReport{NewsletterID: n.ID, Scheduled: true}, nil
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return models.BroadcastReport{}, err
	}
	return s.broadcast(ctx, n)
}

func (s *Service) Get(ctx context.Context, id string) (models.Newsletter, error) {
	n, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Newsletter{}, err
	}
	if !found {
		return models.Newsletter{}, ErrNewsletterNotFound
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]models.Newsletter, error) {
	return s.repo.List(ctx, limit)
}

// DispatchDue broadcasts every SCHEDULED newsletter whose time has come.
// Claim guards against a concurrent dispatcher picking up the same row.
func (s *Service) DispatchDue(ctx context.Context) error {
	due, err := s.repo.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, n := range due {
		won, err := s.repo.Claim(ctx, n.ID)
		if err != nil {
			return err
		}
		if !won {
			continue
		}
		s.log.Info().Str("newsletter", n.ID).Msg("dispatching scheduled newsletter")
		if _, err := s.broadcast(ctx, n); err != nil {
			s.log.Error().Err(err).Str("newsletter", n.ID).Msg("scheduled broadcast failed")
		}
	}
	return nil
}

func (s *Service) renderContent(req models.SendNewsletterRequest) (string, error) {
	if req.ContentType == contentTypeMarkdown {
		return s.renderer.Render(req.Content)
	}
	return s.renderer.Sanitize(req.Content), nil
}

// broadcast sends to the whole audience in batches of batchSize concurrent
// sends. A failed recipient is logged and counted, never retried, and never
// stops the rest of the batch.
func (s *Service) broadcast(ctx context.Context, n models.Newsletter) (models.BroadcastReport, error) {
	recipients, err := s.subs.ListAudience(ctx, n.Audience)
	if err != nil {
		return models.BroadcastReport{}, err
	}

	report := models.BroadcastReport{
		NewsletterID: n.ID,
		Total:        len(recipients),
	}

	var mu sync.Mutex
	for start := 0; start < len(recipients); start += s.batchSize {
		end := start + s.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}

		var wg sync.WaitGroup
		for _, sub := range recipients[start:end] {
			wg.Add(1)
			go func(sub models.Subscriber) {
				defer wg.Done()

				body := s.personalize(n.Content, sub)
				err := s.emailer.SendNewsletter(sub.Email, n.Subject, body)

				mu.Lock()
				if err != nil {
					report.Failed++
					report.Errors = append(report.Errors, sub.Email+": "+err.Error())
				} else {
					report.Sent++
				}
				mu.Unlock()

				s.recordDelivery(ctx, n.ID, sub, err)
			}(sub)
		}
		wg.Wait()
	}

	status := models.NewsletterSent
	if report.Total > 0 && report.Sent == 0 {
		status = models.NewsletterFailed
	}
	if err := s.repo.MarkSent(ctx, n.ID, status,
		report.Total, report.Sent, report.Failed, time.Now().UTC()); err != nil {
		return report, err
	}

	s.m.NewslettersSent.WithLabelValues(n.Audience).Inc()
	s.log.Info().
		Str("newsletter", n.ID).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("broadcast finished")
	return report, nil
}

func (s *Service) personalize(content string, sub models.Subscriber) string {
	name := sub.DisplayName()
	firstName := name
	if i := strings.IndexByte(firstName, ' '); i > 0 {
		firstName = firstName[:i]
	}
	unsubscribeURL := s.baseURL + "/unsubscribe?email=" + url.QueryEscape(sub.Email)

	content = strings.ReplaceAll(content, "{{user_name}}", name)
	content = strings.ReplaceAll(content, "{{first_name}}", firstName)
	content = strings.ReplaceAll(content, "{{email}}", sub.Email)
	content = strings.ReplaceAll(content, "{{unsubscribe_url}}", unsubscribeURL)
	return content
}

func (s *Service) recordDelivery(ctx context.Context, newsletterID string, sub models.Subscriber, sendErr error) {
	status := models.EmailLogSent
	if sendErr != nil {
		status = models.EmailLogFailed
	}
	entry := models.EmailLog{
		ID:             uuid.NewString(),
		RecipientEmail: sub.Email,
		SubscriberID:   sub.ID,
		NewsletterID:   newsletterID,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.logs.InsertEmail(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("failed to record delivery")
	}
}
