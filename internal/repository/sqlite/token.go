package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
)

// TokenRepository stores verification tokens. Consumption is a single
// atomic DELETE so that two concurrent requests presenting the same live
// token resolve to exactly one winner.
type TokenRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewTokenRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *TokenRepository {
	logger = logger.With().Str("component", "TokenRepository").Logger()
	return &TokenRepository{DB: db, log: logger, m: m}
}

// DeleteByIdentifier invalidates every outstanding token for an identifier.
// Called before issuing a new one, so at most one live token exists per
// identifier.
func (r *TokenRepository) DeleteByIdentifier(ctx context.Context, identifier string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE identifier = ?`, identifier)
	if err != nil {
		r.log.Error().Err(err).Str("identifier", identifier).Msg("failed to delete tokens")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
	}
	return err
}

func (r *TokenRepository) Insert(ctx context.Context, identifier, token string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO verification_tokens (identifier, token, expires) VALUES (?, ?, ?)`,
		identifier, token, expires,
	)
	if err != nil {
		r.log.Error().Err(err).Str("identifier", identifier).Msg("failed to insert token")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
	}
	return err
}

// ConsumeDualKey deletes the row matching identifier+token if it has not
// expired, returning whether this caller won the row.
func (r *TokenRepository) ConsumeDualKey(
	ctx context.Context,
	identifier, token string,
	now time.Time,
) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM verification_tokens
		 WHERE identifier = ? AND token = ? AND expires >= ?`,
		identifier, token, now,
	)
	if err != nil {
		r.log.Error().Err(err).Str("identifier", identifier).Msg("failed to consume token")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

// ConsumeByToken deletes a non-expired row matched by token value alone and
// returns its identifier. Confirmation links carry only the token, so the
// identifier comes out of the matched row.
func (r *TokenRepository) ConsumeByToken(
	ctx context.Context,
	token string,
	now time.Time,
) (string, bool, error) {
	var identifier string
	err := r.DB.QueryRowContext(ctx,
		`DELETE FROM verification_tokens
		 WHERE token = ? AND expires >= ?
		 RETURNING identifier`,
		token, now,
	).Scan(&identifier)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		r.log.Error().Err(err).Msg("failed to consume token by value")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return "", false, err
	}
	return identifier, true, nil
}

// FindDualKey reports whether a row exists for identifier+token, and its
// expiry. Read-only; used to validate without consuming and to classify a
// failed consume as expired vs. unknown.
func (r *TokenRepository) FindDualKey(
	ctx context.Context,
	identifier, token string,
) (time.Time, bool, error) {
	var expires time.Time
	err := r.DB.QueryRowContext(ctx,
		`SELECT expires FROM verification_tokens WHERE identifier = ? AND token = ?`,
		identifier, token,
	).Scan(&expires)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		r.log.Error().Err(err).Str("identifier", identifier).Msg("failed to look up token")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return time.Time{}, false, err
	}
	return expires, true, nil
}

// FindByToken is the token-only variant of FindDualKey.
func (r *TokenRepository) FindByToken(ctx context.Context, token string) (time.Time, bool, error) {
	var expires time.Time
	err := r.DB.QueryRowContext(ctx,
		`SELECT expires FROM verification_tokens WHERE token = ?`, token,
	).Scan(&expires)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		r.log.Error().Err(err).Msg("failed to look up token by value")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return time.Time{}, false, err
	}
	return expires, true, nil
}

// DeleteExpired purges rows whose expiry has passed.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires < ?`, now)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to purge expired tokens")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return 0, err
	}
	return res.RowsAffected()
}
