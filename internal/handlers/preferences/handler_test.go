package preferences_test

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

	"github.com/zntb/automated-newsletter-service/internal/handlers/preferences"
	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/subscriptions"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
)

type fakeManager struct {
	manageLinkErr  error
	manageLinkFor  []string
	view           models.PreferencesView
	getErr         error
	updateErr      error
	unsubscribeErr error
	unsubscribed   []models.UnsubscribeRequest
}

func (f *fakeManager) RequestManageLink(_ context.Context, email string) error {
	f.manageLinkFor = append(f.manageLinkFor, email)
	return f.manageLinkErr
}

func (f *fakeManager) GetPreferences(_ context.Context, _, _ string) (models.PreferencesView, error) {
	return f.view, f.getErr
}

func (f *fakeManager) UpdatePreferences(_ context.Context, _ models.UpdatePreferencesRequest) error {
	return f.updateErr
}

func (f *fakeManager) Unsubscribe(_ context.Context, req models.UnsubscribeRequest) error {
	f.unsubscribed = append(f.unsubscribed, req)
	return f.unsubscribeErr
}

func newRouter(svc *fakeManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := preferences.NewHandler(svc, zerolog.Nop())
	r := gin.New()
	r.POST("/api/preferences/manage-link", h.ManageLink)
	r.GET("/api/preferences", h.GetPreferences)
	r.PUT("/api/preferences", h.UpdatePreferences)
	r.POST("/api/unsubscribe", h.Unsubscribe)
	return r
}

func postJSON(router *gin.Engine, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestManageLinkNeverRevealsMembership(t *testing.T) {
	wantBody := `{"success":true,"message":"If this address is subscribed, a preferences link has been sent to it."}`

	t.Run("known address", func(t *testing.T) {
		svc := &fakeManager{}
		w := postJSON(newRouter(svc), "/api/preferences/manage-link", `{"email":"jane@example.com"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, wantBody, w.Body.String())
		assert.Equal(t, []string{"jane@example.com"}, svc.manageLinkFor)
	})

	t.Run("service failure still returns the generic message", func(t *testing.T) {
		svc := &fakeManager{manageLinkErr: errors.New("smtp unavailable")}
		w := postJSON(newRouter(svc), "/api/preferences/manage-link", `{"email":"jane@example.com"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, wantBody, w.Body.String())
	})

	t.Run("invalid email", func(t *testing.T) {
		w := postJSON(newRouter(&fakeManager{}), "/api/preferences/manage-link", `{"email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"A valid email address is required"}`, w.Body.String())
	})
}

func TestGetPreferences(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeManager{view: models.PreferencesView{
			Email:      "jane@example.com",
			Name:       "Jane",
			Status:     models.StatusConfirmed,
			Frequency:  models.FrequencyWeekly,
			Categories: []string{"tech"},
		}}
		router := newRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/preferences?email=jane%40example.com&token=abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
		assert.Contains(t, w.Body.String(), `"email":"jane@example.com"`)
		assert.Contains(t, w.Body.String(), `"frequency":"WEEKLY"`)
	})

	t.Run("missing query params", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/preferences?email=jane%40example.com", nil)
		w := httptest.NewRecorder()
		newRouter(&fakeManager{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Email and token are required"}`, w.Body.String())
	})
}

func TestUpdatePreferencesErrors(t *testing.T) {
	body := `{"email":"jane@example.com","token":"abc","frequency":"DAILY"}`

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"expired token", tokens.ErrTokenExpired, http.StatusBadRequest,
			"This link has expired. Please request a new one."},
		{"unknown token", tokens.ErrTokenNotFound, http.StatusBadRequest,
			"This link is invalid or was already used."},
		{"subscriber gone", subscriptions.ErrSubscriberNotFound, http.StatusBadRequest,
			"This link is invalid or was already used."},
		{"empty categories", subscriptions.ErrNoCategories, http.StatusBadRequest,
			"At least one category is required unless emails are paused"},
		{"storage failure", errors.New("disk full"), http.StatusInternalServerError,
			"Failed to update preferences"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSONPut(newRouter(&fakeManager{updateErr: tt.err}), body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tt.wantError+`"}`, w.Body.String())
		})
	}

	t.Run("success", func(t *testing.T) {
		w := postJSONPut(newRouter(&fakeManager{}), body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"Your preferences have been updated."}`, w.Body.String())
	})
}

func postJSONPut(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUnsubscribe(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeManager{}
		w := postJSON(newRouter(svc), "/api/unsubscribe",
			`{"email":"jane@example.com","token":"abc","reason":"Too many emails"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"You have been unsubscribed."}`, w.Body.String())
		if assert.Len(t, svc.unsubscribed, 1) {
			assert.Equal(t, "Too many emails", svc.unsubscribed[0].Reason)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		w := postJSON(newRouter(&fakeManager{}), "/api/unsubscribe", `{"email":"jane@example.com"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Email and token are required"}`, w.Body.String())
	})

	t.Run("already used token", func(t *testing.T) {
		w := postJSON(newRouter(&fakeManager{unsubscribeErr: tokens.ErrTokenNotFound}), "/api/unsubscribe",
			`{"email":"jane@example.com","token":"abc"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"This link is invalid or was already used."}`, w.Body.String())
	})
}
