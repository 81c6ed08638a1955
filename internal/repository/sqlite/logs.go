package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

// LogRepository holds the append-only unsubscribe and delivery logs.
type LogRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewLogRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *LogRepository {
	logger = logger.With().Str("component", "LogRepository").Logger()
	return &LogRepository{DB: db, log: logger, m: m}
}

func (r *LogRepository) InsertUnsubscribe(ctx context.Context, entry models.UnsubscribeLog) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO unsubscribe_logs (id, email, reason, subscriber_id, unsubscribed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Email, entry.Reason, entry.SubscriberID, entry.UnsubscribedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("email", entry.Email).Msg("failed to insert unsubscribe log")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "medium").Inc()
	}
	return err
}

func (r *LogRepository) InsertEmail(ctx context.Context, entry models.EmailLog) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO email_logs
			(id, message_id, recipient_email, subscriber_id, newsletter_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.MessageID, entry.RecipientEmail, entry.SubscriberID,
		entry.NewsletterID, entry.Status, entry.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("email", entry.RecipientEmail).Msg("failed to insert email log")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "medium").Inc()
	}
	return err
}

// StatusCounts aggregates email log rows by status, optionally for a single
// newsletter.
func (r *LogRepository) StatusCounts(ctx context.Context, newsletterID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM email_logs`
	args := make([]any, 0, 1)
	if newsletterID != "" {
		query += ` WHERE newsletter_id = ?`
		args = append(args, newsletterID)
	}
	query += ` GROUP BY status`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to aggregate email logs")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// StatusCountsBetween aggregates email log rows by status inside [from, to).
func (r *LogRepository) StatusCountsBetween(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM email_logs
		 WHERE created_at >= ? AND created_at < ?
		 GROUP BY status`, from, to)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to aggregate email logs by window")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CountUnsubscribesSince returns unsubscribe log rows at or after the cutoff.
func (r *LogRepository) CountUnsubscribesSince(ctx context.Context, since sql.NullTime) (int, error) {
	query := `SELECT COUNT(*) FROM unsubscribe_logs`
	args := make([]any, 0, 1)
	if since.Valid {
		query += ` WHERE unsubscribed_at >= ?`
		args = append(args, since.Time)
	}
	var count int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error().Err(err).Msg("failed to count unsubscribes")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return 0, err
	}
	return count, nil
}
