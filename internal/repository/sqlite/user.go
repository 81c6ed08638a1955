package sqlite

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

type UserRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewUserRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *UserRepository {
	logger = logger.With().Str("component", "UserRepository").Logger()
	return &UserRepository{DB: db, log: logger, m: m}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, bool, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, name, password, role, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, false, nil
		}
		r.log.Error().Err(err).Str("email", email).Msg("failed to query user")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.User{}, false, err
	}
	return u, true, nil
}

func (r *UserRepository) Create(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("email", u.Email).Msg("failed to insert user")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
	}
	return err
}
