package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/zntb/automated-newsletter-service/docs"
	"github.com/zntb/automated-newsletter-service/internal/config"
	"github.com/zntb/automated-newsletter-service/internal/emailer"
	adminhandler "github.com/zntb/automated-newsletter-service/internal/handlers/admin"
	preferenceshandler "github.com/zntb/automated-newsletter-service/internal/handlers/preferences"
	subscriptionhandler "github.com/zntb/automated-newsletter-service/internal/handlers/subscription"
	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/repository/sqlite"
	"github.com/zntb/automated-newsletter-service/internal/scheduler"
	"github.com/zntb/automated-newsletter-service/internal/services/auth"
	"github.com/zntb/automated-newsletter-service/internal/services/cache"
	"github.com/zntb/automated-newsletter-service/internal/services/dashboard"
	"github.com/zntb/automated-newsletter-service/internal/services/email"
	"github.com/zntb/automated-newsletter-service/internal/services/markdown"
	"github.com/zntb/automated-newsletter-service/internal/services/newsletters"
	"github.com/zntb/automated-newsletter-service/internal/services/subscriptions"
	"github.com/zntb/automated-newsletter-service/internal/services/templates"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
	"github.com/zntb/automated-newsletter-service/pkg/logger"
)

const timeoutDuration = 5 * time.Second

type ServiceContainer struct {
	SubscriptionService *subscriptions.Service
	NewsletterService   *newsletters.Service
	TokenService        *tokens.Service
	Scheduler           *scheduler.Scheduler

	Router     *gin.Engine
	Srv        *http.Server
	Db         *sql.DB
	mailLogger *zap.Logger
	M          *metrics.Metrics

	subscriptionHandler *subscriptionhandler.Handler
	preferencesHandler  *preferenceshandler.Handler
	adminHandler        *adminhandler.Handler
}

type App struct {
	cfg config.Config
	l   zerolog.Logger
}

func New(cfg config.Config, log zerolog.Logger) *App {
	log = log.With().Str("service", "newsletter-service").Timestamp().Logger()
	log.Info().Msg("Logger initialized for newsletter-service")
	return &App{cfg: cfg, l: log}
}

func (a *App) Start(ctx context.Context) error {
	srvContainer := a.init()

	defer func() {
		if err := srvContainer.Srv.Close(); err != nil {
			a.l.Error().Err(err).Msg("Error closing HTTP server")
		}
	}()

	srvContainer.Router.Use(gin.Recovery(), func(c *gin.Context) {
		srvContainer.M.HTTPMiddleware()(c)
	})

	a.registerRoutes(srvContainer)

	ctxCron, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()
	srvContainer.Scheduler.Start(ctxCron)
	a.l.Info().Msg("Scheduler started")

	go func() {
		<-ctx.Done()
		sdCtx, sdCancel := context.WithTimeout(context.Background(), timeoutDuration)
		defer sdCancel()
		if err := srvContainer.Srv.Shutdown(sdCtx); err != nil {
			a.l.Error().Err(err).Msg("HTTP shutdown error")
		}
	}()

	a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server listening")
	if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.l.Error().Err(err).Msg("HTTP server error")
		return err
	}
	a.l.Info().Msg("HTTP server stopped")

	<-ctx.Done()
	a.l.Info().Msg("Shutdown signal received")
	return a.Stop(srvContainer)
}

func (a *App) Stop(srvContainer ServiceContainer) error {
	a.l.Info().Msg("Stopping application")

	srvContainer.Scheduler.Stop()
	a.l.Info().Msg("Scheduler stopped")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if err := srvContainer.Srv.Shutdown(ctx); err != nil {
		a.l.Error().Err(err).Msg("HTTP shutdown error")
	} else {
		a.l.Info().Msg("HTTP server stopped")
	}

	if srvContainer.mailLogger != nil {
		if err := srvContainer.mailLogger.Sync(); err != nil {
			a.l.Warn().Err(err).Msg("Mail logger sync error")
		}
	}

	if err := srvContainer.Db.Close(); err != nil {
		a.l.Error().Err(err).Msg("Database close error")
	} else {
		a.l.Info().Msg("Database closed")
	}

	a.l.Info().Msg("Application shutdown complete")
	return nil
}

func (a *App) init() ServiceContainer {
	a.l.Info().Msg("Initializing application")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	db, err := CreateSqliteDb(ctx, a.cfg.DB.Dialect, a.cfg.DB.Source)
	if err != nil {
		a.l.Error().Err(err).Msg("DB open error")
	}
	if err := InitSqliteDb(db, a.cfg.DB.Dialect, a.cfg.DB.MigrationsPath); err != nil {
		a.l.Error().Err(err).Msg("DB migration error")
	}

	m := metrics.NewMetrics("newsletter_service", db, a.cfg.DB.Source)

	router := gin.New()

	httpSrv := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}
	a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server configured")

	// Repositories
	subRepo := sqlite.NewSubscriberRepository(db, a.l, m)
	prefRepo := sqlite.NewPreferenceRepository(db, a.l, m)
	tokenRepo := sqlite.NewTokenRepository(db, a.l, m)
	newsletterRepo := sqlite.NewNewsletterRepository(db, a.l, m)
	templateRepo := sqlite.NewTemplateRepository(db, a.l, m)
	userRepo := sqlite.NewUserRepository(db, a.l, m)
	logRepo := sqlite.NewLogRepository(db, a.l, m)

	// Outbound mail pipeline: SMTP -> circuit breaker -> wire log
	mailLogger := logger.NewMailLogger(a.cfg.MailLogPath)
	smtpSvc := emailer.NewSMTPService(a.cfg.Email, a.l)
	sender := emailer.NewLogSender(mailLogger, emailer.NewBreakerSender("smtp", smtpSvc))

	// Business services
	tokenSvc := tokens.NewService(tokenRepo, m)
	emailSvc := email.NewService(sender, a.cfg.TemplatesDir, a.cfg.AppBaseURL, m)
	subSvc := subscriptions.NewService(subRepo, prefRepo, logRepo, tokenSvc, emailSvc, a.l, m)
	markdownSvc := markdown.NewService()
	newsletterSvc := newsletters.NewService(
		newsletterRepo, subRepo, logRepo, emailSvc, markdownSvc,
		a.cfg.AppBaseURL, a.cfg.Broadcast.BatchSize, a.l, m,
	)
	templateSvc := templates.NewService(templateRepo, a.l)
	authSvc := auth.NewService(userRepo, a.cfg.Admin, a.cfg.Auth, a.l)

	redisClient := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
	statsCache := cache.NewRedisClient[models.DashboardStats](
		redisClient, a.l, time.Duration(a.cfg.Redis.CacheTTL)*time.Second)
	dashboardSvc := dashboard.NewCachedService(
		dashboard.NewService(subRepo, logRepo, a.l), statsCache, a.l)

	sched := scheduler.New(newsletterSvc, tokenSvc, a.l,
		a.cfg.Scheduler.DispatchSpec, a.cfg.Scheduler.CleanupSpec, m)

	container := ServiceContainer{
		SubscriptionService: subSvc,
		NewsletterService:   newsletterSvc,
		TokenService:        tokenSvc,
		Scheduler:           sched,
		Router:              router,
		Srv:                 httpSrv,
		Db:                  db,
		mailLogger:          mailLogger,
		M:                   m,
	}

	container.adminHandler = adminhandler.NewHandler(
		authSvc, subRepo, templateSvc, newsletterSvc, dashboardSvc, a.l)
	container.subscriptionHandler = subscriptionhandler.NewHandler(subSvc, a.cfg.AppBaseURL, a.l)
	container.preferencesHandler = preferenceshandler.NewHandler(subSvc, a.l)

	return container
}

func (a *App) registerRoutes(c ServiceContainer) {
	api := c.Router.Group("/api")
	api.POST("/subscribe", c.subscriptionHandler.Subscribe)
	api.GET("/confirm", c.subscriptionHandler.Confirm)

	api.POST("/preferences/manage-link", c.preferencesHandler.ManageLink)
	api.GET("/preferences", c.preferencesHandler.GetPreferences)
	api.PUT("/preferences", c.preferencesHandler.UpdatePreferences)
	api.POST("/unsubscribe", c.preferencesHandler.Unsubscribe)

	api.POST("/admin/login", c.adminHandler.Login)

	admin := api.Group("/admin", c.adminHandler.RequireAdmin())
	admin.GET("/subscribers", c.adminHandler.ListSubscribers)
	admin.POST("/subscribers", c.adminHandler.AddSubscriber)
	admin.DELETE("/subscribers", c.adminHandler.DeleteSubscribers)

	admin.GET("/templates", c.adminHandler.ListTemplates)
	admin.POST("/templates", c.adminHandler.CreateTemplate)
	admin.GET("/templates/:id", c.adminHandler.GetTemplate)
	admin.PUT("/templates/:id", c.adminHandler.UpdateTemplate)
	admin.DELETE("/templates/:id", c.adminHandler.DeleteTemplate)

	admin.GET("/newsletters", c.adminHandler.ListNewsletters)
	admin.POST("/newsletters", c.adminHandler.SendNewsletter)
	admin.GET("/newsletters/:id", c.adminHandler.GetNewsletter)

	admin.GET("/dashboard", c.adminHandler.DashboardStats)

	c.Router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))
	c.Router.GET("/metrics", gin.WrapH(c.M.Handler()))
}

func CreateSqliteDb(ctx context.Context, dialect, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := "file:" + name + "?cache=shared&mode=rwc"
	db, err := sql.Open(dialect, connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

func InitSqliteDb(db *sql.DB, dialect, migrationPath string) error {
	log.Println("Initializing migrations:", migrationPath)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	if err := goose.Up(db, migrationPath); err != nil {
		return err
	}

	return nil
}
