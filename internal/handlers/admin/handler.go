package admin

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/auth"
)

const timeoutDuration = 10 * time.Second

const sessionKey = "admin_session"

type authService interface {
	Login(ctx context.Context, email, password string) (string, error)
	ParseSession(token string) (auth.Session, error)
}

type subscriberAdmin interface {
	List(ctx context.Context, search, status string) ([]models.Subscriber, error)
	UpsertPending(ctx context.Context, email, name string, tags []string) (models.Subscriber, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type templateService interface {
	Create(ctx context.Context, req models.CreateTemplateRequest, authorID string) (models.EmailTemplate, error)
	Get(ctx context.Context, id string) (models.EmailTemplate, error)
	List(ctx context.Context, category string) ([]models.EmailTemplate, error)
	Update(ctx context.Context, id string, req models.UpdateTemplateRequest) (models.EmailTemplate, error)
	Delete(ctx context.Context, id string) error
}

type newsletterService interface {
	Send(ctx context.Context, req models.SendNewsletterRequest, authorID string) (models.BroadcastReport, error)
	Get(ctx context.Context, id string) (models.Newsletter, error)
	List(ctx context.Context, limit int) ([]models.Newsletter, error)
}

type dashboardService interface {
	Stats(ctx context.Context) (models.DashboardStats, error)
}

type Handler struct {
	Auth        authService
	Subscribers subscriberAdmin
	Templates   templateService
	Newsletters newsletterService
	Dashboard   dashboardService
	log         zerolog.Logger
}

func NewHandler(
	authSvc authService,
	subs subscriberAdmin,
	templates templateService,
	newsletters newsletterService,
	dashboard dashboardService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		Auth:        authSvc,
		Subscribers: subs,
		Templates:   templates,
		Newsletters: newsletters,
		Dashboard:   dashboard,
		log:         logger.With().Str("component", "AdminHandler").Logger(),
	}
}
