package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

const templateColumns = `id, name, subject, content, preview, category, author_id, created_at, updated_at`

type TemplateRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewTemplateRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *TemplateRepository {
	logger = logger.With().Str("component", "TemplateRepository").Logger()
	return &TemplateRepository{DB: db, log: logger, m: m}
}

// IsDuplicateName reports whether err is the unique-name constraint
// violation.
func IsDuplicateName(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *TemplateRepository) Create(ctx context.Context, t models.EmailTemplate) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO email_templates
			(id, name, subject, content, preview, category, author_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Subject, t.Content, t.Preview, t.Category, t.AuthorID, t.CreatedAt,
	)
	if err != nil && !IsDuplicateName(err) {
		r.log.Error().Err(err).Str("template", t.Name).Msg("failed to insert template")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
	}
	return err
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (models.EmailTemplate, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM email_templates WHERE id = ?`, id)
	return r.scanOne(row, id)
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (models.EmailTemplate, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM email_templates WHERE name = ?`, name)
	return r.scanOne(row, name)
}

func (r *TemplateRepository) List(ctx context.Context, category string) ([]models.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates`
	args := make([]any, 0, 1)
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list templates")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer rows.Close()

	var out []models.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) Update(ctx context.Context, t models.EmailTemplate, updatedAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE email_templates
		 SET name = ?, subject = ?, content = ?, preview = ?, category = ?, updated_at = ?
		 WHERE id = ?`,
		t.Name, t.Subject, t.Content, t.Preview, t.Category, updatedAt, t.ID,
	)
	if err != nil {
		if !IsDuplicateName(err) {
			r.log.Error().Err(err).Str("template", t.ID).Msg("failed to update template")
			r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		}
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_templates WHERE id = ?`, id)
	if err != nil {
		r.log.Error().Err(err).Str("template", id).Msg("failed to delete template")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return false, err
	}
	count, err := res.RowsAffected()
	return count > 0, err
}

func (r *TemplateRepository) scanOne(row rowScanner, key string) (models.EmailTemplate, bool, error) {
	t, err := scanTemplate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.EmailTemplate{}, false, nil
		}
		r.log.Error().Err(err).Str("template", key).Msg("failed to query template")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.EmailTemplate{}, false, err
	}
	return t, true, nil
}

func scanTemplate(row rowScanner) (models.EmailTemplate, error) {
	var (
		t         models.EmailTemplate
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Subject, &t.Content, &t.Preview, &t.Category,
		&t.AuthorID, &t.CreatedAt, &updatedAt,
	)
	if err != nil {
		return models.EmailTemplate{}, err
	}
	t.UpdatedAt = nullTimePtr(updatedAt)
	return t, nil
}
