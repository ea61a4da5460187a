// Package mail sends notification email over SMTP or AWS SES.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer sends mail. Plain bodies get an HTML part with line breaks; HTML
// bodies get a tag-stripped text alternative.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string, isHTML bool) error
	SendTemplate(ctx context.Context, to, subject, name string, data any) error
}

// Message is a fully composed email handed to a Transport.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport delivers a composed Message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Service is the Mailer used by the application.
type Service struct {
	transport Transport
	templates *template.Template
	logger    *slog.Logger
	strip     *bluemonday.Policy
}

func NewService(transport Transport, logger *slog.Logger) (*Service, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		transport: transport,
		templates: tmpl,
		logger:    logger,
		strip:     bluemonday.StrictPolicy(),
	}, nil
}

func (s *Service) Send(ctx context.Context, to, subject, body string, isHTML bool) error {
	msg := s.compose(to, subject, body, isHTML)

	if err := s.transport.Deliver(ctx, msg); err != nil {
		s.logger.Error("failed to send email",
			slog.String("to", pkglogger.SanitizedEmail(to)),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", slog.String("to", pkglogger.SanitizedEmail(to)))
	return nil
}

// SendTemplate renders templates/<name>.html between the shared header and
// footer and sends the result as HTML.
func (s *Service) SendTemplate(ctx context.Context, to, subject, name string, data any) error {
	var buf bytes.Buffer
	view := struct {
		Subject string
		Data    any
	}{Subject: subject, Data: data}

	for _, part := range []string{"header.html", name + ".html", "footer.html"} {
		if err := s.templates.ExecuteTemplate(&buf, part, view); err != nil {
			return fmt.Errorf("failed to render email template %s: %w", part, err)
		}
	}

	return s.Send(ctx, to, subject, buf.String(), true)
}

func (s *Service) compose(to, subject, body string, isHTML bool) Message {
	msg := Message{
		To:      stripNewlines(to),
		Subject: stripNewlines(subject),
	}

	if isHTML {
		msg.HTMLBody = body
		msg.TextBody = s.plainText(body)
	} else {
		msg.HTMLBody = nl2br(body)
		msg.TextBody = body
	}
	return msg
}

// plainText strips every tag and decodes entities.
func (s *Service) plainText(body string) string {
	text := html.UnescapeString(s.strip.Sanitize(body))
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func nl2br(body string) string {
	escaped := template.HTMLEscapeString(body)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>\n")
}

// stripNewlines prevents header injection through recipient or subject.
func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// NopTransport drops every message. Used when MAIL_DRIVER=none.
type NopTransport struct {
	Logger *slog.Logger
}

func (n *NopTransport) Deliver(_ context.Context, msg Message) error {
	if n.Logger != nil {
		n.Logger.Debug("mail disabled, dropping message", slog.String("subject", msg.Subject))
	}
	return nil
}
