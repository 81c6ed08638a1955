package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Service converts markdown newsletter content to email-safe HTML. Output
// is sanitized, since the content originates from the admin editor and is
// sent straight into subscriber inboxes.
type Service struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewService() *Service {
	return &Service{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown to sanitized HTML wrapped in a minimal
// email-friendly document.
func (s *Service) Render(content string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	clean := s.policy.Sanitize(buf.String())
	return wrapEmailBody(clean), nil
}

// Sanitize strips unsafe markup from HTML supplied directly by the editor.
func (s *Service) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}

func wrapEmailBody(inner string) string {
	return `<div style="font-family: Arial, Helvetica, sans-serif; line-height: 1.6; color: #222; max-width: 600px; margin: 0 auto;">` +
		inner +
		`</div>`
}
