package templates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/repository/sqlite"
)

var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrTemplateNameTaken = errors.New("template name already in use")
)

const defaultCategory = "general"

type templateRepository interface {
	Create(ctx context.Context, t models.EmailTemplate) error
	Get(ctx context.Context, id string) (models.EmailTemplate, bool, error)
	GetByName(ctx context.Context, name string) (models.EmailTemplate, bool, error)
	List(ctx context.Context, category string) ([]models.EmailTemplate, error)
	Update(ctx context.Context, t models.EmailTemplate, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo templateRepository
	log  zerolog.Logger
}

func NewService(repo templateRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  logger.With().Str("component", "TemplateService").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, req models.CreateTemplateRequest, authorID string) (models.EmailTemplate, error) {
	t := models.EmailTemplate{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Subject:   req.Subject,
		Content:   req.Content,
		Preview:   req.Preview,
		Category:  req.Category,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
	}
	if t.Category == "" {
		t.Category = defaultCategory
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if sqlite.IsDuplicateName(err) {
			return models.EmailTemplate{}, ErrTemplateNameTaken
		}
		return models.EmailTemplate{}, err
	}

	s.log.Info().Str("template", t.Name).Msg("template created")
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.EmailTemplate, error) {
	t, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.EmailTemplate{}, err
	}
	if !found {
		return models.EmailTemplate{}, ErrTemplateNotFound
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, category string) ([]models.EmailTemplate, error) {
	return s.repo.List(ctx, category)
}

// Update applies a partial update; omitted fields keep their stored values.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateTemplateRequest) (models.EmailTemplate, error) {
	t, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.EmailTemplate{}, err
	}
	if !found {
		return models.EmailTemplate{}, ErrTemplateNotFound
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Subject != nil {
		t.Subject = *req.Subject
	}
	if req.Content != nil {
		t.Content = *req.Content
	}
	if req.Preview != nil {
		t.Preview = *req.Preview
	}
	if req.Category != nil {
		t.Category = *req.Category
	}

	now := time.Now().UTC()
	ok, err := s.repo.Update(ctx, t, now)
	if err != nil {
		if sqlite.IsDuplicateName(err) {
			return models.EmailTemplate{}, ErrTemplateNameTaken
		}
		return models.EmailTemplate{}, err
	}
	if !ok {
		return models.EmailTemplate{}, ErrTemplateNotFound
	}

	t.UpdatedAt = &now
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTemplateNotFound
	}
	s.log.Info().Str("template", id).Msg("template deleted")
	return nil
}
