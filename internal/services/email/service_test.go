package email_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/services/email"
)

const (
	templatesDir = "../../../templates"
	baseURL      = "http://localhost:3000"
	htmlHeaders  = "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\""
)

type mockEmailer struct {
	mock.Mock
}

func (m *mockEmailer) Send(to, subject, additionalHeaders, body string) error {
	args := m.Called(to, subject, additionalHeaders, body)
	return args.Error(0)
}

func newService(emailer *mockEmailer) *email.Service {
	m := metrics.NewMetrics("test", nil, "test")
	return email.NewService(emailer, templatesDir, baseURL, m)
}

func TestSendConfirmation(t *testing.T) {
	emailer := new(mockEmailer)
	emailer.On("Send", "jane@example.com", "Confirm your newsletter subscription", htmlHeaders,
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "Jane") &&
				strings.Contains(body, baseURL+"/api/confirm?token=tok123")
		})).Return(nil)

	svc := newService(emailer)
	require.NoError(t, svc.SendConfirmation("jane@example.com", "Jane", "tok123"))
	emailer.AssertExpectations(t)
}

func TestSendManageLinkEscapesEmail(t *testing.T) {
	emailer := new(mockEmailer)
	emailer.On("Send", "jane+news@example.com", "Manage your newsletter preferences", htmlHeaders,
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, baseURL+"/manage-preferences?email=jane%2Bnews%40example.com&token=tok123")
		})).Return(nil)

	svc := newService(emailer)
	require.NoError(t, svc.SendManageLink("jane+news@example.com", "Jane", "tok123"))
	emailer.AssertExpectations(t)
}

func TestSendWelcome(t *testing.T) {
	emailer := new(mockEmailer)
	emailer.On("Send", "jane@example.com", "Welcome to the newsletter!", htmlHeaders,
		mock.AnythingOfType("string")).Return(nil)

	svc := newService(emailer)
	require.NoError(t, svc.SendWelcome("jane@example.com", "Jane"))
	emailer.AssertExpectations(t)
}

func TestSendPreferencesUpdated(t *testing.T) {
	emailer := new(mockEmailer)
	emailer.On("Send", "jane@example.com", "Your preferences have been updated", htmlHeaders,
		mock.AnythingOfType("string")).Return(nil)

	svc := newService(emailer)
	require.NoError(t, svc.SendPreferencesUpdated("jane@example.com", "Jane"))
	emailer.AssertExpectations(t)
}

func TestSendUnsubscribeConfirmation(t *testing.T) {
	emailer := new(mockEmailer)
	emailer.On("Send", "jane@example.com", "You have been unsubscribed", htmlHeaders,
		mock.AnythingOfType("string")).Return(nil)

	svc := newService(emailer)
	require.NoError(t, svc.SendUnsubscribeConfirmation("jane@example.com", "Jane"))
	emailer.AssertExpectations(t)
}

func TestSendNewsletterPassesBodyThrough(t *testing.T) {
	emailer := new(mockEmailer)
	emailer.On("Send", "jane@example.com", "This week", htmlHeaders, "<h1>News</h1>").Return(nil)

	svc := newService(emailer)
	require.NoError(t, svc.SendNewsletter("jane@example.com", "This week", "<h1>News</h1>"))
	emailer.AssertExpectations(t)
}

func TestSendPropagatesEmailerError(t *testing.T) {
	sendErr := errors.New("smtp unavailable")
	emailer := new(mockEmailer)
	emailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(sendErr)

	svc := newService(emailer)
	err := svc.SendConfirmation("jane@example.com", "Jane", "tok123")
	assert.ErrorIs(t, err, sendErr)
}
