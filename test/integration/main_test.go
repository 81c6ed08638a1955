//go:build integration
// +build integration

package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/zntb/automated-newsletter-service/internal/handlers/preferences"
	"github.com/zntb/automated-newsletter-service/internal/handlers/subscription"
	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/repository/sqlite"
	"github.com/zntb/automated-newsletter-service/internal/services/email"
	"github.com/zntb/automated-newsletter-service/internal/services/subscriptions"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
)

const frontendBaseURL = "http://localhost:3000"

var (
	testServerURL string
	db            *sql.DB
	outbox        *recordingEmailer
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingEmailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingEmailer) Send(to, subject, _, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (r *recordingEmailer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func (r *recordingEmailer) lastTo(to string) (sentMail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == to {
			return r.sent[i], true
		}
	}
	return sentMail{}, false
}

func TestMain(m *testing.M) {
	fmt.Println("Starting integration tests...")
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "newsletter-integration-*")
	if err != nil {
		log.Panicf("failed to create temp dir: %v", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Println("failed to remove temp dir:", err)
		}
	}()

	db, err = sql.Open("sqlite", "file:"+dir+"/newsletter.db?cache=shared&mode=rwc")
	if err != nil {
		log.Panicf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer func() {
		if err := db.Close(); err != nil {
			log.Println("failed to close database:", err)
		}
	}()

	if err := goose.SetDialect("sqlite"); err != nil {
		log.Panicf("failed to set goose dialect: %v", err)
	}
	if err := goose.Up(db, "../../migrations"); err != nil {
		log.Panicf("failed to run migrations: %v", err)
	}

	logger := zerolog.Nop()
	mtr := metrics.NewMetrics("integration", db, "integration")

	subRepo := sqlite.NewSubscriberRepository(db, logger, mtr)
	prefRepo := sqlite.NewPreferenceRepository(db, logger, mtr)
	tokenRepo := sqlite.NewTokenRepository(db, logger, mtr)
	logRepo := sqlite.NewLogRepository(db, logger, mtr)

	outbox = &recordingEmailer{}
	tokenSvc := tokens.NewService(tokenRepo, mtr)
	emailSvc := email.NewService(outbox, "../../templates", frontendBaseURL, mtr)
	subSvc := subscriptions.NewService(subRepo, prefRepo, logRepo, tokenSvc, emailSvc, logger, mtr)

	subHandler := subscription.NewHandler(subSvc, frontendBaseURL, logger)
	prefHandler := preferences.NewHandler(subSvc, logger)

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/subscribe", subHandler.Subscribe)
		api.GET("/confirm", subHandler.Confirm)
		api.POST("/preferences/manage-link", prefHandler.ManageLink)
		api.GET("/preferences", prefHandler.GetPreferences)
		api.PUT("/preferences", prefHandler.UpdatePreferences)
		api.POST("/unsubscribe", prefHandler.Unsubscribe)
	}

	testServer := httptest.NewServer(router)
	defer testServer.Close()
	testServerURL = testServer.URL

	_ = m.Run()
}

func resetTables(db *sql.DB) error {
	for _, table := range []string{
		"subscriber_preferences", "verification_tokens",
		"unsubscribe_logs", "email_logs", "subscribers",
	} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to reset %s table: %w", table, err)
		}
	}
	outbox.reset()
	return nil
}

// noRedirectClient lets the tests assert on the Location header of the
// confirmation redirect instead of following it.
var noRedirectClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func fetchToken(t *testing.T, identifier string) string {
	t.Helper()

	var token string
	err := db.QueryRow(
		`SELECT token FROM verification_tokens WHERE identifier = ?`, identifier,
	).Scan(&token)
	require.NoErrorf(t, err, "failed to fetch token for %s", identifier)
	return token
}

func fetchSubscriber(t *testing.T, email string) map[string]interface{} {
	t.Helper()

	row := db.QueryRow(
		`SELECT email, name, status FROM subscribers WHERE email = ?`, email,
	)
	var e, name, status string
	err := row.Scan(&e, &name, &status)
	assert.NoErrorf(t, err, "failed to fetch subscriber: %v", err)

	var frequency, categories string
	err = db.QueryRow(
		`SELECT p.frequency, p.categories
		   FROM subscriber_preferences p
		   JOIN subscribers s ON s.id = p.subscriber_id
		  WHERE s.email = ?`, email,
	).Scan(&frequency, &categories)
	assert.NoErrorf(t, err, "failed to fetch preferences: %v", err)

	return map[string]interface{}{
		"email":      e,
		"name":       name,
		"status":     status,
		"frequency":  frequency,
		"categories": categories,
	}
}
