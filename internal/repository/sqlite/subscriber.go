package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

const (
	activeWindow  = 30 * 24 * time.Hour
	newWindow     = 7 * 24 * time.Hour
	engagedOpens  = 5
)

// SubscriberRepository handles CRUD operations on subscribers with
// structured logging and metrics.
type SubscriberRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewSubscriberRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *SubscriberRepository {
	logger = logger.With().Str("component", "SubscriberRepository").Logger()
	return &SubscriberRepository{DB: db, log: logger, m: m}
}

const subscriberColumns = `id, email, name, status, tags,
	open_count, click_count, bounce_count, complaint_count,
	created_at, subscribed_at, confirmed_at, unsubscribed_at, last_opened_at`

// GetByEmail looks a subscriber up by address. The email column is declared
// COLLATE NOCASE, so the match is case-insensitive.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (models.Subscriber, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE email = ?`, email)

	sub, err := scanSubscriber(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Subscriber{}, false, nil
		}
		r.log.Error().Err(err).Str("email", email).Msg("failed to query subscriber")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.Subscriber{}, false, err
	}
	return sub, true, nil
}

// UpsertPending creates the subscriber or resets an existing row to PENDING,
// overwriting name and tags. Re-subscribing from UNSUBSCRIBED restarts the
// lifecycle here.
func (r *SubscriberRepository) UpsertPending(
	ctx context.Context,
	email, name string,
	tags []string,
) (models.Subscriber, error) {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return models.Subscriber{}, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO subscribers (id, email, name, status, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		     status = excluded.status,
		     name   = excluded.name,
		     tags   = excluded.tags`,
		id, email, name, models.StatusPending, string(tagsJSON), now,
	)
	if err != nil {
		r.log.Error().Err(err).Str("email", email).Msg("failed to upsert subscriber")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
		return models.Subscriber{}, err
	}

	sub, _, err := r.GetByEmail(ctx, email)
	if err != nil {
		return models.Subscriber{}, err
	}
	r.log.Info().Str("email", email).Str("subscriber_id", sub.ID).Msg("subscriber upserted as pending")
	return sub, nil
}

// UpdateNameAndTags overwrites the profile fields mirrored from preferences.
func (r *SubscriberRepository) UpdateNameAndTags(ctx context.Context, id, name string, tags []string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE subscribers SET name = ?, tags = ? WHERE id = ?`,
		name, string(tagsJSON), id,
	)
	if err != nil {
		r.log.Error().Err(err).Str("subscriber_id", id).Msg("failed to update subscriber profile")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
	}
	return err
}

// UpdateTags mirrors preference categories into the denormalized tags field.
func (r *SubscriberRepository) UpdateTags(ctx context.Context, id string, tags []string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE subscribers SET tags = ? WHERE id = ?`, string(tagsJSON), id)
	if err != nil {
		r.log.Error().Err(err).Str("subscriber_id", id).Msg("failed to update tags")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
	}
	return err
}

// Confirm marks a subscriber as confirmed. Lifecycle timestamps are set at
// most once via COALESCE.
func (r *SubscriberRepository) Confirm(ctx context.Context, email string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE subscribers SET
		     status        = ?,
		     confirmed_at  = COALESCE(confirmed_at, ?),
		     subscribed_at = COALESCE(subscribed_at, ?)
		 WHERE email = ?`,
		models.StatusConfirmed, now, now, email,
	)
	if err != nil {
		r.log.Error().Err(err).Str("email", email).Msg("failed to confirm subscriber")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

// Unsubscribe marks a subscriber as unsubscribed.
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, email string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE subscribers SET
		     status          = ?,
		     unsubscribed_at = COALESCE(unsubscribed_at, ?)
		 WHERE email = ?`,
		models.StatusUnsubscribed, now, email,
	)
	if err != nil {
		r.log.Error().Err(err).Str("email", email).Msg("failed to unsubscribe subscriber")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

// List returns subscribers matching an optional substring search on email
// and an optional status filter, newest first.
func (r *SubscriberRepository) List(ctx context.Context, search, status string) ([]models.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE 1=1`
	args := []any{}
	if search != "" {
		query += ` AND email LIKE ?`
		args = append(args, "%"+search+"%")
	}
	if status != "" && status != "all" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	return r.querySubscribers(ctx, query, args...)
}

// ListAudience resolves a named audience filter to its subscriber set.
func (r *SubscriberRepository) ListAudience(ctx context.Context, audience string) ([]models.Subscriber, error) {
	now := time.Now().UTC()
	base := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE status = ?`

	switch audience {
	case models.AudienceAll:
		return r.querySubscribers(ctx, base, models.StatusConfirmed)
	case models.AudienceActive:
		return r.querySubscribers(ctx, base+` AND last_opened_at >= ?`,
			models.StatusConfirmed, now.Add(-activeWindow))
	case models.AudienceNew:
		return r.querySubscribers(ctx, base+` AND created_at >= ?`,
			models.StatusConfirmed, now.Add(-newWindow))
	case models.AudienceEngaged:
		return r.querySubscribers(ctx, base+` AND open_count >= ?`,
			models.StatusConfirmed, engagedOpens)
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}
}

// DeleteByIDs removes the given subscribers. Preference rows go with them
// via ON DELETE CASCADE.
func (r *SubscriberRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM subscribers WHERE id IN (?` // first placeholder
	args := []any{ids[0]}
	for _, id := range ids[1:] {
		query += `, ?`
		args = append(args, id)
	}
	query += `)`

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Int("count", len(ids)).Msg("failed to delete subscribers")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SubscriberRepository) CountAll(ctx context.Context) (int, error) {
	var cnt int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&cnt)
	return cnt, err
}

func (r *SubscriberRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var cnt int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE status = ?`, status).Scan(&cnt)
	return cnt, err
}

func (r *SubscriberRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var cnt int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE created_at >= ? AND created_at < ?`,
		from, to).Scan(&cnt)
	return cnt, err
}

func (r *SubscriberRepository) querySubscribers(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.Subscriber, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to query subscribers")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.log.Error().Err(err).Msg("failed to close rows")
		}
	}()

	var subs []models.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (models.Subscriber, error) {
	var (
		sub      models.Subscriber
		tagsJSON string

		subscribedAt, confirmedAt, unsubscribedAt, lastOpenedAt sql.NullTime
	)
	err := row.Scan(
		&sub.ID, &sub.Email, &sub.Name, &sub.Status, &tagsJSON,
		&sub.OpenCount, &sub.ClickCount, &sub.BounceCount, &sub.ComplaintCount,
		&sub.CreatedAt, &subscribedAt, &confirmedAt, &unsubscribedAt, &lastOpenedAt,
	)
	if err != nil {
		return models.Subscriber{}, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &sub.Tags); err != nil {
		return models.Subscriber{}, fmt.Errorf("malformed tags for %s: %w", sub.Email, err)
	}
	sub.SubscribedAt = nullTimePtr(subscribedAt)
	sub.ConfirmedAt = nullTimePtr(confirmedAt)
	sub.UnsubscribedAt = nullTimePtr(unsubscribedAt)
	sub.LastOpenedAt = nullTimePtr(lastOpenedAt)
	return sub, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
