package subscription_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zntb/automated-newsletter-service/internal/handlers/subscription"
	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/subscriptions"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
)

const baseURL = "http://localhost:3000"

type fakeSubscriber struct {
	subscribeResult models.SubscribeResult
	subscribeErr    error
	confirmResult   models.ConfirmResult
	confirmErr      error
	lastToken       string
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ models.SubscribeRequest) (models.SubscribeResult, error) {
	return f.subscribeResult, f.subscribeErr
}

func (f *fakeSubscriber) Confirm(_ context.Context, token string) (models.ConfirmResult, error) {
	f.lastToken = token
	return f.confirmResult, f.confirmErr
}

func newRouter(svc *fakeSubscriber) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := subscription.NewHandler(svc, baseURL, zerolog.Nop())
	r := gin.New()
	r.POST("/api/subscribe", h.Subscribe)
	r.GET("/api/confirm", h.Confirm)
	return r
}

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		service    *fakeSubscriber
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: `{"email":"jane@example.com","frequency":"WEEKLY","categories":["tech"]}`,
			service: &fakeSubscriber{subscribeResult: models.SubscribeResult{
				Email:   "jane@example.com",
				Message: "Check your inbox to confirm your subscription.",
			}},
			wantStatus: http.StatusOK,
			wantBody: `{"success":true,"message":"Check your inbox to confirm your subscription.",` +
				`"email":"jane@example.com","isUpdate":false}`,
		},
		{
			name: "existing subscriber updated",
			body: `{"email":"jane@example.com","frequency":"DAILY","categories":["tech"]}`,
			service: &fakeSubscriber{subscribeResult: models.SubscribeResult{
				Email:   "jane@example.com",
				Message: "Your preferences were updated.",
				Updated: true,
			}},
			wantStatus: http.StatusOK,
			wantBody: `{"success":true,"message":"Your preferences were updated.",` +
				`"email":"jane@example.com","isUpdate":true}`,
		},
		{
			name: "confirmation email warning surfaces",
			body: `{"email":"jane@example.com","frequency":"WEEKLY","categories":["tech"]}`,
			service: &fakeSubscriber{subscribeResult: models.SubscribeResult{
				Email:   "jane@example.com",
				Message: "Subscribed.",
				Warning: "Could not send the confirmation email, please try again later.",
			}},
			wantStatus: http.StatusOK,
			wantBody: `{"success":true,"message":"Subscribed.","email":"jane@example.com",` +
				`"isUpdate":false,"warning":"Could not send the confirmation email, please try again later."}`,
		},
		{
			name:       "malformed payload",
			body:       `{"email":`,
			service:    &fakeSubscriber{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Valid email, frequency and at least one category are required"}`,
		},
		{
			name:       "invalid email rejected by binding",
			body:       `{"email":"not-an-email","frequency":"WEEKLY","categories":["tech"]}`,
			service:    &fakeSubscriber{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Valid email, frequency and at least one category are required"}`,
		},
		{
			name:       "empty categories rejected by binding",
			body:       `{"email":"jane@example.com","frequency":"WEEKLY","categories":[]}`,
			service:    &fakeSubscriber{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Valid email, frequency and at least one category are required"}`,
		},
		{
			name:       "invalid email from service",
			body:       `{"email":"jane@example.com","frequency":"WEEKLY","categories":["tech"]}`,
			service:    &fakeSubscriber{subscribeErr: subscriptions.ErrInvalidEmail},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Invalid email address"}`,
		},
		{
			name:       "no categories from service",
			body:       `{"email":"jane@example.com","frequency":"WEEKLY","categories":["tech"]}`,
			service:    &fakeSubscriber{subscribeErr: subscriptions.ErrNoCategories},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"At least one category is required"}`,
		},
		{
			name:       "storage failure",
			body:       `{"email":"jane@example.com","frequency":"WEEKLY","categories":["tech"]}`,
			service:    &fakeSubscriber{subscribeErr: errors.New("disk full")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"error":"Failed to subscribe"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(tt.service)

			req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestConfirmRedirects(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		service      *fakeSubscriber
		wantLocation string
	}{
		{
			name:   "success",
			target: "/api/confirm?token=abc123",
			service: &fakeSubscriber{confirmResult: models.ConfirmResult{
				Email: "jane@example.com",
				Name:  "Jane Doe",
			}},
			wantLocation: baseURL + "/confirmation?confirmed=true&email=jane%40example.com&name=Jane+Doe",
		},
		{
			name:         "missing token",
			target:       "/api/confirm",
			service:      &fakeSubscriber{},
			wantLocation: baseURL + "/confirmation?error=missing-token",
		},
		{
			name:         "expired token",
			target:       "/api/confirm?token=abc123",
			service:      &fakeSubscriber{confirmErr: tokens.ErrTokenExpired},
			wantLocation: baseURL + "/confirmation?error=This+confirmation+link+has+expired",
		},
		{
			name:         "unknown token",
			target:       "/api/confirm?token=abc123",
			service:      &fakeSubscriber{confirmErr: tokens.ErrTokenNotFound},
			wantLocation: baseURL + "/confirmation?error=This+confirmation+link+is+invalid+or+was+already+used",
		},
		{
			name:         "storage failure",
			target:       "/api/confirm?token=abc123",
			service:      &fakeSubscriber{confirmErr: errors.New("disk full")},
			wantLocation: baseURL + "/confirmation?error=confirmation-failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(tt.service)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
		})
	}
}

func TestConfirmPassesTokenThrough(t *testing.T) {
	svc := &fakeSubscriber{confirmResult: models.ConfirmResult{Email: "jane@example.com"}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/confirm?token=deadbeef", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "deadbeef", svc.lastToken)
}
