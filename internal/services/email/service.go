package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
)

const htmlHeaders = "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\""

type Emailer interface {
	Send(to, subject, additionalHeaders, body string) error
}

// Service renders the transactional templates and hands the result to the
// configured emailer.
type Service struct {
	emailer      Emailer
	templatesDir string
	baseURL      string
	m            *metrics.Metrics
}

func NewService(service Emailer, tempsDir, baseURL string, m *metrics.Metrics) *Service {
	return &Service{
		emailer:      service,
		templatesDir: tempsDir,
		baseURL:      baseURL,
		m:            m,
	}
}

func (e *Service) SendConfirmation(toEmail, name, token string) error {
	body, err := e.render("confirm_email.html", map[string]string{
		"Name":  name,
		"Email": toEmail,
		"Link":  fmt.Sprintf("%s/api/confirm?token=%s", e.baseURL, token),
	})
	if err != nil {
		return err
	}

	err = e.emailer.Send(toEmail, "Confirm your newsletter subscription", htmlHeaders, body)
	e.m.RecordEmail("confirmation", err)
	return err
}

func (e *Service) SendWelcome(toEmail, name string) error {
	body, err := e.render("welcome_email.html", map[string]string{
		"Name":  name,
		"Email": toEmail,
	})
	if err != nil {
		return err
	}

	err = e.emailer.Send(toEmail, "Welcome to the newsletter!", htmlHeaders, body)
	e.m.RecordEmail("welcome", err)
	return err
}

func (e *Service) SendManageLink(toEmail, name, token string) error {
	link := fmt.Sprintf("%s/manage-preferences?email=%s&token=%s",
		e.baseURL, url.QueryEscape(toEmail), token)
	body, err := e.render("manage_preferences.html", map[string]string{
		"Name": name,
		"Link": link,
	})
	if err != nil {
		return err
	}

	err = e.emailer.Send(toEmail, "Manage your newsletter preferences", htmlHeaders, body)
	e.m.RecordEmail("manage_link", err)
	return err
}

func (e *Service) SendPreferencesUpdated(toEmail, name string) error {
	body, err := e.render("preferences_updated.html", map[string]string{
		"Name":  name,
		"Email": toEmail,
	})
	if err != nil {
		return err
	}

	err = e.emailer.Send(toEmail, "Your preferences have been updated", htmlHeaders, body)
	e.m.RecordEmail("preferences_updated", err)
	return err
}

func (e *Service) SendUnsubscribeConfirmation(toEmail, name string) error {
	body, err := e.render("unsubscribe_confirmation.html", map[string]string{
		"Name":  name,
		"Email": toEmail,
	})
	if err != nil {
		return err
	}

	err = e.emailer.Send(toEmail, "You have been unsubscribed", htmlHeaders, body)
	e.m.RecordEmail("unsubscribe", err)
	return err
}

// SendNewsletter delivers an already rendered and personalized HTML body.
func (e *Service) SendNewsletter(toEmail, subject, htmlBody string) error {
	err := e.emailer.Send(toEmail, subject, htmlHeaders, htmlBody)
	e.m.RecordEmail("newsletter", err)
	return err
}

func (e *Service) render(name string, data map[string]string) (string, error) {
	tmpl, err := template.ParseFiles(e.templatesDir + "/" + name)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}
