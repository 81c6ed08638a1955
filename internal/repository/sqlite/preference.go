package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

// PreferenceRepository stores the 1:1 delivery preference row per subscriber.
type PreferenceRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewPreferenceRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *PreferenceRepository {
	logger = logger.With().Str("component", "PreferenceRepository").Logger()
	return &PreferenceRepository{DB: db, log: logger, m: m}
}

func (r *PreferenceRepository) Get(ctx context.Context, subscriberID string) (models.Preference, bool, error) {
	var (
		pref           models.Preference
		categoriesJSON string
		noEmails       int
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT subscriber_id, frequency, categories, no_emails, updated_at
		 FROM subscriber_preferences WHERE subscriber_id = ?`, subscriberID,
	).Scan(&pref.SubscriberID, &pref.Frequency, &categoriesJSON, &noEmails, &pref.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Preference{}, false, nil
		}
		r.log.Error().Err(err).Str("subscriber_id", subscriberID).Msg("failed to query preferences")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.Preference{}, false, err
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &pref.Categories); err != nil {
		return models.Preference{}, false, err
	}
	pref.NoEmails = noEmails != 0
	return pref, true, nil
}

// Upsert writes the full preference row, creating it lazily on first use.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref models.Preference) error {
	categoriesJSON, err := json.Marshal(pref.Categories)
	if err != nil {
		return err
	}
	noEmails := 0
	if pref.NoEmails {
		noEmails = 1
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO subscriber_preferences (subscriber_id, frequency, categories, no_emails, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(subscriber_id) DO UPDATE SET
		     frequency  = excluded.frequency,
		     categories = excluded.categories,
		     no_emails  = excluded.no_emails,
		     updated_at = excluded.updated_at`,
		pref.SubscriberID, pref.Frequency, string(categoriesJSON), noEmails, time.Now().UTC(),
	)
	if err != nil {
		r.log.Error().Err(err).Str("subscriber_id", pref.SubscriberID).Msg("failed to upsert preferences")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
	}
	return err
}
