package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

const newsletterColumns = `id, title, subject, content, status, audience,
	scheduled_for, sent_at, recipient_count, sent_count, failed_count,
	open_count, click_count, created_at, author_id`

type NewsletterRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewNewsletterRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *NewsletterRepository {
	logger = logger.With().Str("component", "NewsletterRepository").Logger()
	return &NewsletterRepository{DB: db, log: logger, m: m}
}

func (r *NewsletterRepository) Create(ctx context.Context, n models.Newsletter) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO newsletters
			(id, title, subject, content, status, audience, scheduled_for, created_at, author_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Subject, n.Content, n.Status, n.Audience,
		n.ScheduledFor, n.CreatedAt, n.AuthorID,
	)
	if err != nil {
		r.log.Error().Err(err).Str("newsletter", n.ID).Msg("failed to insert newsletter")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
	}
	return err
}

func (r *NewsletterRepository) Get(ctx context.Context, id string) (models.Newsletter, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters WHERE id = ?`, id)
	n, err := scanNewsletter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Newsletter{}, false, nil
		}
		r.log.Error().Err(err).Str("newsletter", id).Msg("failed to query newsletter")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.Newsletter{}, false, err
	}
	return n, true, nil
}

func (r *NewsletterRepository) List(ctx context.Context, limit int) ([]models.Newsletter, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list newsletters")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer rows.Close()

	return collectNewsletters(rows)
}

// ListDue returns scheduled newsletters whose scheduled_for has passed.
func (r *NewsletterRepository) ListDue(ctx context.Context, now time.Time) ([]models.Newsletter, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters
		 WHERE status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?
		 ORDER BY scheduled_for`,
		models.NewsletterScheduled, now)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list due newsletters")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer rows.Close()

	return collectNewsletters(rows)
}

// ListSentSince returns newsletters marked SENT on or after the cutoff.
func (r *NewsletterRepository) ListSentSince(ctx context.Context, since time.Time) ([]models.Newsletter, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters
		 WHERE status = ? AND sent_at >= ?
		 ORDER BY sent_at`,
		models.NewsletterSent, since)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list sent newsletters")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer rows.Close()

	return collectNewsletters(rows)
}

// Claim flips a SCHEDULED newsletter to SENDING. Only one dispatcher wins the
// guarded UPDATE, so a newsletter is broadcast at most once.
func (r *NewsletterRepository) Claim(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE newsletters SET status = ? WHERE id = ? AND status = ?`,
		models.NewsletterSending, id, models.NewsletterScheduled)
	if err != nil {
		r.log.Error().Err(err).Str("newsletter", id).Msg("failed to claim newsletter")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

func (r *NewsletterRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE newsletters SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		r.log.Error().Err(err).Str("newsletter", id).Msg("failed to update newsletter status")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
	}
	return err
}

// MarkSent records the broadcast outcome and final status.
func (r *NewsletterRepository) MarkSent(
	ctx context.Context,
	id, status string,
	recipients, sent, failed int,
	sentAt time.Time,
) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE newsletters
		 SET status = ?, recipient_count = ?, sent_count = ?, failed_count = ?, sent_at = ?
		 WHERE id = ?`,
		status, recipients, sent, failed, sentAt, id)
	if err != nil {
		r.log.Error().Err(err).Str("newsletter", id).Msg("failed to record broadcast result")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
	}
	return err
}

func collectNewsletters(rows *sql.Rows) ([]models.Newsletter, error) {
	var out []models.Newsletter
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNewsletter(row rowScanner) (models.Newsletter, error) {
	var (
		n            models.Newsletter
		scheduledFor sql.NullTime
		sentAt       sql.NullTime
	)
	err := row.Scan(
		&n.ID, &n.Title, &n.Subject, &n.Content, &n.Status, &n.Audience,
		&scheduledFor, &sentAt, &n.RecipientCount, &n.SentCount, &n.FailedCount,
		&n.OpenCount, &n.ClickCount, &n.CreatedAt, &n.AuthorID,
	)
	if err != nil {
		return models.Newsletter{}, err
	}
	n.ScheduledFor = nullTimePtr(scheduledFor)
	n.SentAt = nullTimePtr(sentAt)
	return n, nil
}
