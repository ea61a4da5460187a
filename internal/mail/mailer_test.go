package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	sent []Message
	err  error
}

func (c *captureTransport) Deliver(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestService(t *testing.T, tr Transport) *Service {
	t.Helper()
	svc, err := NewService(tr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

func TestSend_PlainBody(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	err := svc.Send(context.Background(), "ops@example.com", "Hi", "line one\nline <two>", false)
	require.NoError(t, err)
	require.Len(t, tr.sent, 1)

	msg := tr.sent[0]
	assert.Equal(t, "line one\nline <two>", msg.TextBody)
	assert.Equal(t, "line one<br>\nline &lt;two&gt;", msg.HTMLBody)
}

func TestSend_HTMLBodyGetsStrippedAlternative(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	err := svc.Send(context.Background(), "ops@example.com", "Hi", "<p>Hello <b>there</b> &amp; bye</p>", true)
	require.NoError(t, err)

	msg := tr.sent[0]
	assert.Equal(t, "<p>Hello <b>there</b> &amp; bye</p>", msg.HTMLBody)
	assert.Equal(t, "Hello there & bye", msg.TextBody)
}

func TestSend_StripsHeaderInjection(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	err := svc.Send(context.Background(), "ops@example.com\r\nBcc: evil@example.com", "Hi\nBcc: x", "body", false)
	require.NoError(t, err)

	msg := tr.sent[0]
	assert.NotContains(t, msg.To, "\n")
	assert.NotContains(t, msg.Subject, "\n")
}

func TestSend_TransportError(t *testing.T) {
	svc := newTestService(t, &captureTransport{err: errors.New("connection refused")})

	err := svc.Send(context.Background(), "ops@example.com", "Hi", "body", false)
	assert.Error(t, err)
}

func TestSendTemplate_WrapsHeaderAndFooter(t *testing.T) {
	tr := &captureTransport{}
	svc := newTestService(t, tr)

	data := map[string]any{
		"IPAddress": "203.0.113.5",
		"Attempts":  3,
		"At":        "2026-01-01T00:00:00Z",
		"Window":    "72h0m0s",
	}
	err := svc.SendTemplate(context.Background(), "ops@example.com", "IP blacklisted", "blacklist_alert", data)
	require.NoError(t, err)

	msg := tr.sent[0]
	assert.Contains(t, msg.HTMLBody, "<!DOCTYPE html>")
	assert.Contains(t, msg.HTMLBody, "203.0.113.5")
	assert.Contains(t, msg.HTMLBody, "automated message")
	assert.Contains(t, msg.TextBody, "203.0.113.5 was blacklisted after 3 failed login attempts")
	assert.NotContains(t, msg.TextBody, "<")
}

func TestSendTemplate_UnknownTemplate(t *testing.T) {
	svc := newTestService(t, &captureTransport{})

	err := svc.SendTemplate(context.Background(), "ops@example.com", "x", "missing", nil)
	assert.Error(t, err)
}

func TestBuildMIME(t *testing.T) {
	raw, err := buildMIME("noreply@example.com", "Vestibule", Message{
		To:       "ops@example.com",
		Subject:  "Alert",
		HTMLBody: "<p>hi</p>",
		TextBody: "hi",
	})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: Vestibule <noreply@example.com>\r\n")
	assert.Contains(t, s, "To: ops@example.com\r\n")
	assert.Contains(t, s, "Subject: Alert\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative;")
	assert.Contains(t, s, "text/plain; charset=UTF-8")
	assert.Contains(t, s, "text/html; charset=UTF-8")
	assert.True(t, strings.Index(s, "text/plain") < strings.Index(s, "text/html"))
}

type fakeSES struct {
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESTransport_Deliver(t *testing.T) {
	client := &fakeSES{}
	tr := &SESTransport{client: client, fromAddress: "noreply@example.com", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := tr.Deliver(context.Background(), Message{To: "ops@example.com", Subject: "S", HTMLBody: "<p>h</p>", TextBody: "h"})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "noreply@example.com", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"ops@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "<p>h</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Equal(t, "h", aws.ToString(client.input.Message.Body.Text.Data))
}
